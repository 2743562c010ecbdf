// Package stores provides short-lived Redis records for verification flows:
// the access-code index, the login challenge and the signed-request replay
// cache.
//
// # Design
//
// Access codes are stored only under their lookup id, never in the clear. Each
// record is a versioned binary blob with a TTL, consumed exactly once through a
// WATCH/MULTI transaction that retries on contention. A login challenge ties
// the code step of a login to the account whose password step passed; it
// counts wrong codes and is deleted at the attempt cap. The replay cache is a
// plain SET NX with a TTL covering the request validity window.
//
// # What this package must NOT do
//
//   - Import goVerify or any sibling internal package.
//   - Store raw access codes or signatures.
//   - Make authentication decisions; lockout accounting belongs to the Engine.
package stores
