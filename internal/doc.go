// Package internal contains helpers private to goVerify: random identifiers
// and temporary passwords.
//
// # Sub-packages
//
//   - rate: Redis fixed-window delivery throttle
//   - stores: Redis access-code index and signed-request replay cache
//
// # What this package must NOT do
//
//   - Export types that appear in the public goVerify API.
//   - Use math/rand for anything handed to a user.
package internal
