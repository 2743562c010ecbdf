// Package lockout is the per-account failure counting state machine.
//
// A record moves from absent to counting failures and locks once failures
// exceed Policy.MaxFailures. A lock holds for Policy.LockTime; after that one
// probationary attempt is granted with failures treated as exactly MaxFailures,
// so a failure re-locks at once and a success clears everything.
//
// # What this package must NOT do
//
// It performs no I/O. Persistence is the caller's job and must apply Fail and
// Succeed inside an atomic read-modify-write so concurrent failures are never
// lost.
package lockout
