// Package password hashes and verifies account passwords with Argon2id.
//
// # Pre-hash
//
// Clients never hand the raw password to the hasher. [Preset] first binds the
// password to the account name with HMAC-SHA256(name, password) rendered as
// lower-case hex, so two accounts sharing a password never produce the same
// hasher input. The preset is what [Hasher.Hash] and [Hasher.Verify] see.
//
// # Output format
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.NeedsRehash] reports hashes made with weaker parameters so callers
// can upgrade them after the next successful verification.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other goVerify package.
//   - Log plaintext passwords or presets.
package password
