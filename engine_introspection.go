package goVerify

import (
	"context"
	"time"

	"github.com/MrEthical07/goVerify/notify"
)

// HealthStatus is an on-demand backend health result. A store that cannot be
// pinged is reported available with zero latency.
type HealthStatus struct {
	LockoutStoreAvailable bool
	LockoutStoreLatency   time.Duration
	AccountStoreAvailable bool
	AccountStoreLatency   time.Duration
}

// Pinger is implemented by stores that can report their round-trip latency.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// Health pings the lockout and account stores.
//
// Health does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil {
		return HealthStatus{}
	}
	var status HealthStatus
	status.LockoutStoreAvailable, status.LockoutStoreLatency = ping(ctx, e.lockouts)
	status.AccountStoreAvailable, status.AccountStoreLatency = ping(ctx, e.accounts)
	return status
}

func ping(ctx context.Context, store any) (bool, time.Duration) {
	p, ok := store.(Pinger)
	if !ok {
		return store != nil, 0
	}
	latency, err := p.Ping(ctx)
	return err == nil, latency
}

// CodesSent returns how many codes were texted to the account in the current
// delivery window.
func (e *Engine) CodesSent(ctx context.Context, accountID string) (int, error) {
	if e == nil || e.throttle == nil {
		return 0, ErrEngineNotReady
	}
	if accountID == "" {
		return 0, nil
	}
	n, err := e.throttle.Used(ctx, string(notify.SMS), accountID)
	if err != nil {
		return 0, e.storeError(ctx, accountID, "delivery_used", err)
	}
	return n, nil
}

// ResetCodeBudget clears the account's delivery window so SendCode works
// again before the window elapses.
func (e *Engine) ResetCodeBudget(ctx context.Context, accountID string) error {
	if e == nil || e.throttle == nil {
		return ErrEngineNotReady
	}
	if err := e.throttle.Reset(ctx, string(notify.SMS), accountID); err != nil {
		return e.storeError(ctx, accountID, "delivery_reset", err)
	}
	return nil
}
