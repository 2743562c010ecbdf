// Package pii encrypts small personally identifiable records at rest.
//
// Records are JSON-encoded and sealed with AES-256-GCM under a key derived by
// HKDF-SHA256 from the configured secret. The stored blob is nonce || ciphertext,
// with a fresh 12-byte nonce per call.
package pii

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"

	"golang.org/x/crypto/hkdf"
)

const (
	keyBytes = 32
	// DefaultInfo is the HKDF info string.
	DefaultInfo = "frosty.alan"
)

// DefaultSalt is the HKDF salt used when none is configured.
var DefaultSalt = mustDecode("MTIzNDU2Nzg5MGFiY2RlZmdoaWprbG1ub3BxcnN0dXY=")

var (
	// ErrCiphertext indicates a blob that is too short or fails authentication.
	ErrCiphertext = errors.New("pii ciphertext rejected")
	// ErrPayload indicates an authenticated plaintext that does not decode into the target.
	ErrPayload = errors.New("pii payload malformed")
)

// Contact is the per-account PII record.
type Contact struct {
	Phone    string `json:"phone,omitempty"`
	AltEmail string `json:"alt_email,omitempty"`
	Address  string `json:"address,omitempty"`
}

// Empty reports whether no field is set.
func (c Contact) Empty() bool {
	return c.Phone == "" && c.AltEmail == "" && c.Address == ""
}

type options struct {
	salt []byte
	info string
}

// Option customizes key derivation.
type Option func(*options)

// WithSalt overrides the HKDF salt.
func WithSalt(salt []byte) Option {
	return func(o *options) {
		if len(salt) > 0 {
			o.salt = append([]byte(nil), salt...)
		}
	}
}

// WithInfo overrides the HKDF info string.
func WithInfo(info string) Option {
	return func(o *options) {
		if info != "" {
			o.info = info
		}
	}
}

// Cipher seals and opens PII blobs. Safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the record key from secret.
func NewCipher(secret []byte, opts ...Option) (*Cipher, error) {
	if len(secret) == 0 {
		return nil, errors.New("pii secret is required")
	}
	o := options{salt: DefaultSalt, info: DefaultInfo}
	for _, opt := range opts {
		opt(&o)
	}

	key := make([]byte, keyBytes)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, o.salt, []byte(o.info)), key); err != nil {
		return nil, fmt.Errorf("derive pii key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt JSON-encodes v and seals it.
func (c *Cipher) Encrypt(v any) ([]byte, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode pii: %w", err)
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plain, nil), nil
}

// Decrypt opens blob and decodes it into out, which must be a non-nil pointer.
// The payload is decoded into a fresh value that replaces *out only on
// success; on error out is left untouched.
func (c *Cipher) Decrypt(blob []byte, out any) error {
	dst := reflect.ValueOf(out)
	if dst.Kind() != reflect.Pointer || dst.IsNil() {
		return fmt.Errorf("%w: decrypt target must be a non-nil pointer", ErrPayload)
	}
	ns := c.aead.NonceSize()
	if len(blob) < ns+c.aead.Overhead() {
		return ErrCiphertext
	}
	plain, err := c.aead.Open(nil, blob[:ns], blob[ns:], nil)
	if err != nil {
		return ErrCiphertext
	}
	if !json.Valid(plain) {
		return ErrPayload
	}
	fresh := reflect.New(dst.Elem().Type())
	if err := json.Unmarshal(plain, fresh.Interface()); err != nil {
		return fmt.Errorf("%w: %v", ErrPayload, err)
	}
	dst.Elem().Set(fresh.Elem())
	return nil
}

func mustDecode(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
