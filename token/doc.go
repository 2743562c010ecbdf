// Package token issues and validates salted, optionally timed, signed tokens.
//
// Tokens are compact HS256 JWS strings. Each salt (an action name such as
// "reset" or an email address) derives its own signing key, so a token issued
// for one action never validates for another. Timed tokens carry an issued-at
// claim and are rejected once older than the caller's max age.
package token
