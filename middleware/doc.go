// Package middleware exposes HTTP middleware adapters that put goVerify.Engine
// checks in front of a handler.
//
// # Guards
//
//   - [RequireSignedRequest] verifies an HMAC-signed request for the account
//     named in the X-Account-ID header.
//   - [RequireActionToken] verifies a bearer action token bound to one action.
//   - [RequireAccessCode] redeems a single-use bearer access code.
//
// Each guard attaches the client IP and User-Agent to the request context
// before calling the Engine, so lockout records and audit events carry them,
// and stores the verified identity in the context for the next handler.
//
// # Status codes
//
// Authentication failures answer 401, a locked account 423 and an
// unavailable record store 503. The response body never says which check
// failed.
//
// # What this package must NOT do
//
//   - Compute or compare signatures, tokens or codes directly (delegates to Engine).
//   - Access Redis or SQL (Engine handles I/O).
//   - Decide lockout state.
package middleware
