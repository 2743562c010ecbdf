// Package signing signs and validates time-bound HTTP-style requests.
//
// # Wire format
//
// A signature is the upper-case hex HMAC-SHA256 of the canonical message
//
//	HMAC_SHA256\n<timestamp>\n<method>\n<path>\n<HEX(SHA256(params))>
//
// keyed by a per-timestamp signing key, HMAC-SHA256(label || secret, timestamp).
// Params are the JSON body for POST/PUT/PATCH or the query string for GET/DELETE.
//
// # Replay
//
// Only the validity window bounds replay. Callers that need one-time semantics
// keep a seen-signature cache on top (the Engine offers one backed by Redis).
package signing
