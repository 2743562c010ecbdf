// Package identity derives stable, non-reversible account identifiers.
//
// An identifier is the standard base32 encoding of the first 30 bytes of a
// SHA-256 digest (or HMAC-SHA256 when keyed), which always yields 48 characters.
// Identifiers are used as primary keys for account and lockout records.
//
// # What this package must NOT do
//
//   - Perform I/O or keep state between calls.
//   - Accept non-UTF-8 input silently: callers hand over Go strings, which are
//     hashed as their UTF-8 bytes.
package identity
