package rate

import "errors"

var (
	// ErrRateLimited is returned when the window budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
