package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// Base58 omits 0, O, I and l so values survive being read aloud or retyped.
const Base58 = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// TempPasswordLength is the length of generated temporary passwords.
const TempPasswordLength = 12

// RandomString returns size characters drawn uniformly from alphabet.
func RandomString(size int, alphabet string) (string, error) {
	if size <= 0 {
		return "", errors.New("invalid random string size")
	}
	if len(alphabet) < 2 {
		return "", errors.New("alphabet too small")
	}

	var b strings.Builder
	b.Grow(size)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < size; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

// NewTempPassword returns a 12-character base58 temporary password.
func NewTempPassword() (string, error) {
	return RandomString(TempPasswordLength, Base58)
}

// NewDeviceID returns an 8-character base58 device id.
func NewDeviceID() (string, error) {
	return RandomString(8, Base58)
}

// NewChallengeID returns a 22-character base58 login challenge id.
func NewChallengeID() (string, error) {
	return RandomString(22, Base58)
}
