// Package sqlstore persists accounts and lockout records in a SQL database.
//
// Two dialects are supported: Postgres through github.com/lib/pq and SQLite
// through the pure Go modernc.org/sqlite driver. [Store] implements both
// goVerify.AccountStore and goVerify.LockoutStore, so one handle can back an
// Engine without Redis.
//
// # Concurrency
//
// Lockout rows carry a version column. [Store.UpdateLockout] reads the row,
// applies the caller's transition and writes it back only if the version is
// unchanged, retrying otherwise. Inserting a first record races through
// ON CONFLICT DO NOTHING the same way. OTP counters advance with a single
// conditional UPDATE.
//
// # What this package must NOT do
//
//   - Decide whether an attempt is allowed; the lockout policy lives in package lockout.
//   - Turn a database failure into a lockout result.
package sqlstore
