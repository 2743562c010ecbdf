package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base32"
	"strings"
)

const digestPrefixBytes = 30

// Length is the number of characters in every derived identifier.
const Length = digestPrefixBytes * 8 / 5

// Derive returns the unkeyed identifier for value.
func Derive(value string) string {
	sum := sha256.Sum256([]byte(value))
	return encode(sum[:])
}

// DeriveKeyed returns an identifier computed as an HMAC over value. Without key
// nobody can recompute identifiers from a list of candidate emails.
func DeriveKeyed(key []byte, value string) string {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(value))
	return encode(mac.Sum(nil))
}

// Canonical normalizes a human-entered identity (typically an email address)
// before derivation so that "Alice@Example.com " and "alice@example.com" map to
// the same account.
func Canonical(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Valid reports whether s has the shape of a derived identifier.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	_, err := base32.StdEncoding.DecodeString(s)
	return err == nil
}

func encode(digest []byte) string {
	return base32.StdEncoding.EncodeToString(digest[:digestPrefixBytes])
}
