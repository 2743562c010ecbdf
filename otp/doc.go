// Package otp generates and verifies HOTP (RFC 4226) and TOTP (RFC 6238)
// one-time codes and renders authenticator provisioning URIs.
//
// HOTP codes are 6 digits and verification scans a small resynchronization
// window forward from the stored counter. TOTP codes are 8 digits over a 30
// second step and only the current step is accepted.
//
// # What this package must NOT do
//
// It never stores counters. Callers persist matched+1 after a successful HOTP
// verification through a monotonic compare-and-set.
package otp
