package goVerify

import "errors"

var (
	// ErrValidation is an exported constant or variable used by the verification engine.
	ErrValidation = errors.New("invalid input")
	// ErrAuthenticationFailed is an exported constant or variable used by the verification engine.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrExpired is an exported constant or variable used by the verification engine.
	ErrExpired = errors.New("credential expired")
	// ErrAccountLocked is an exported constant or variable used by the verification engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrStoreUnavailable is an exported constant or variable used by the verification engine.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrAccountNotFound is an exported constant or variable used by the verification engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is an exported constant or variable used by the verification engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountPending is an exported constant or variable used by the verification engine.
	ErrAccountPending = errors.New("account pending confirmation")
	// ErrReplayDetected is an exported constant or variable used by the verification engine.
	ErrReplayDetected = errors.New("signed request replay detected")
	// ErrDeliveryRateLimited is an exported constant or variable used by the verification engine.
	ErrDeliveryRateLimited = errors.New("code delivery rate limited")
	// ErrDeliveryUnavailable is an exported constant or variable used by the verification engine.
	ErrDeliveryUnavailable = errors.New("code delivery unavailable")
	// ErrOTPNotConfigured is an exported constant or variable used by the verification engine.
	ErrOTPNotConfigured = errors.New("one-time password not configured for account")
	// ErrPIIDisabled is an exported constant or variable used by the verification engine.
	ErrPIIDisabled = errors.New("contact encryption disabled")
	// ErrUnsupportedAction is an exported constant or variable used by the verification engine.
	ErrUnsupportedAction = errors.New("unsupported confirmation action")
	// ErrLoginChallenge reports a missing, expired or used login challenge.
	ErrLoginChallenge = errors.New("login challenge invalid or expired")
	// ErrEngineNotReady is an exported constant or variable used by the verification engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
