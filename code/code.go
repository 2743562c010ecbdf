package code

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"strings"
)

const (
	accessRandomBytes = 28
	accessMACBytes    = sha256.Size
	accessRawBytes    = accessRandomBytes + accessMACBytes

	// AccessCodeLength is the encoded length of an access code.
	AccessCodeLength = accessRawBytes / 3 * 4

	addressRandomBytes = 5
	addressTagBytes    = 5

	// AddressCodeLength is the encoded length of an address code.
	AddressCodeLength = (addressRandomBytes + addressTagBytes) * 8 / 5
)

// ErrMalformed indicates input that does not decode as a code.
var ErrMalformed = errors.New("malformed code")

// NewAccessCode returns a fresh access code authenticated under secret.
func NewAccessCode(secret []byte) (string, error) {
	raw := make([]byte, accessRandomBytes, accessRawBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	raw = append(raw, mac(secret, raw)...)
	return base64.URLEncoding.EncodeToString(raw), nil
}

// Validate reports whether code was produced by NewAccessCode under secret.
func Validate(secret []byte, code string) bool {
	raw, err := decodeAccess(code)
	if err != nil {
		return false
	}
	return hmac.Equal(raw[accessRandomBytes:], mac(secret, raw[:accessRandomBytes]))
}

// CheckFormat returns ErrMalformed unless code has the shape of an access
// code. It does not check the MAC.
func CheckFormat(code string) error {
	_, err := decodeAccess(code)
	return err
}

// LookupID derives the storage index for an access code. It does not check the
// MAC; call Validate first.
func LookupID(code string) (string, error) {
	raw, err := decodeAccess(code)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return base64.URLEncoding.EncodeToString(sum[1:31]), nil
}

// NewAddressCode returns a fresh address code bound to identifier.
func NewAddressCode(secret []byte, identifier string) (string, error) {
	raw := make([]byte, addressRandomBytes, addressRandomBytes+addressTagBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	raw = append(raw, addressTag(secret, raw, identifier)...)
	return base32.StdEncoding.EncodeToString(raw), nil
}

// ValidateAddress reports whether code was produced by NewAddressCode under
// secret for identifier.
func ValidateAddress(secret []byte, code, identifier string) bool {
	raw, err := decodeAddress(code)
	if err != nil {
		return false
	}
	return hmac.Equal(raw[addressRandomBytes:], addressTag(secret, raw[:addressRandomBytes], identifier))
}

// CheckAddressFormat returns ErrMalformed unless code has the shape of an
// address code. Case and surrounding space are ignored.
func CheckAddressFormat(code string) error {
	_, err := decodeAddress(code)
	return err
}

func decodeAddress(code string) ([]byte, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != AddressCodeLength {
		return nil, ErrMalformed
	}
	raw, err := base32.StdEncoding.DecodeString(code)
	if err != nil || len(raw) != addressRandomBytes+addressTagBytes {
		return nil, ErrMalformed
	}
	return raw, nil
}

func decodeAccess(code string) ([]byte, error) {
	code = strings.TrimSpace(code)
	if len(code) != AccessCodeLength {
		return nil, ErrMalformed
	}
	raw, err := base64.URLEncoding.DecodeString(code)
	if err != nil || len(raw) != accessRawBytes {
		return nil, ErrMalformed
	}
	return raw, nil
}

func mac(secret, msg []byte) []byte {
	h := hmac.New(sha256.New, secret)
	_, _ = h.Write(msg)
	return h.Sum(nil)
}

func addressTag(secret, random []byte, identifier string) []byte {
	h := hmac.New(sha256.New, secret)
	_, _ = h.Write(random)
	_, _ = h.Write([]byte(identifier))
	return h.Sum(nil)[:addressTagBytes]
}
