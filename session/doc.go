// Package session provides Redis-backed persistence for per-account lockout
// state (failure counter, lock timestamp, last login) and its compact binary
// encoding.
//
// # Binary encoding
//
// Records are stored as a versioned binary blob (schema v1 and v2) with forward
// migration on read. v1 carries only the failure counter and lock timestamp; v2
// adds last-login metadata. The encoder is append-only.
//
// # Concurrency
//
// [Store.UpdateLockout] is a WATCH/MULTI optimistic read-modify-write with
// retry on contention, so concurrent failed attempts across service instances
// are all counted.
//
// # What this package must NOT do
//
//   - Import goVerify (no upward imports).
//   - Decide whether an attempt is allowed; the lockout policy lives in package lockout.
//   - Turn a Redis failure into a lockout result.
package session
