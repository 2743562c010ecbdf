// Package rate provides the Redis-backed fixed-window throttle used for
// outbound code deliveries (SMS and email).
//
// # Window semantics
//
// INCR + EXPIRE on the first hit in a window. Keys are
// "<prefix>:<channel>:<account>", default prefix "vd".
//
// # What this package must NOT do
//
//   - Count verification failures; that is the lockout store's job.
//   - Be imported outside the goVerify module.
package rate
