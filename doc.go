// Package goVerify is a credential-verification core: request signatures,
// action tokens, one-time passwords, bearer codes and contact encryption,
// each checked behind a per-account lockout state machine.
//
// An [Engine] is assembled with [Builder] and is safe for concurrent use.
// Every verification runs through the same guard: a locked account is
// rejected before the credential is looked at, and the outcome of the check
// is recorded against the account exactly once.
//
// # Stores
//
// Accounts live behind [AccountStore]; the sqlstore package provides
// Postgres and SQLite implementations. Lockout records live behind
// [LockoutStore] and default to the Redis store in the session package.
// Access codes, the signed-request replay cache and the delivery throttle
// always use the Redis client given to [Builder.WithRedis].
//
// # Errors
//
// Callers branch with errors.Is on the sentinels in errors.go. A failure
// that tipped the account into lockout wraps both [ErrAccountLocked] and
// [ErrAuthenticationFailed].
package goVerify
