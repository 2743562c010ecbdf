package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	// Algorithm is the first line of every canonical message.
	Algorithm = "HMAC_SHA256"
	// DefaultWindow bounds clock skew and replay exposure.
	DefaultWindow = 450 * time.Second
	// DefaultLabel prefixes the shared secret when deriving per-timestamp keys.
	DefaultLabel = "FROSTY"

	signatureHexLen = sha256.Size * 2
)

var (
	// ErrMalformed indicates the signature is not 64 hex characters.
	ErrMalformed = errors.New("malformed request signature")
	// ErrStale indicates the request timestamp is outside the validity window.
	ErrStale = errors.New("request timestamp outside validity window")
	// ErrMismatch indicates the signature does not match the request.
	ErrMismatch = errors.New("request signature mismatch")
)

// Request is the signed tuple.
type Request struct {
	Method    string
	Path      string
	Params    string
	Timestamp int64
	Signature string
}

// Signer holds the shared secret and tunables. It is immutable and safe for
// concurrent use.
type Signer struct {
	secret []byte
	label  string
	window time.Duration
}

// Option customizes a Signer.
type Option func(*Signer)

// WithWindow overrides the validity window. Non-positive values are ignored.
func WithWindow(d time.Duration) Option {
	return func(s *Signer) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithLabel overrides the key-derivation label.
func WithLabel(label string) Option {
	return func(s *Signer) {
		if label != "" {
			s.label = label
		}
	}
}

// NewSigner returns a Signer for secret.
func NewSigner(secret []byte, opts ...Option) *Signer {
	s := &Signer{
		secret: append([]byte(nil), secret...),
		label:  DefaultLabel,
		window: DefaultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the configured validity window.
func (s *Signer) Window() time.Duration {
	return s.window
}

// Sign returns the signature for the tuple.
func (s *Signer) Sign(method, path, params string, timestamp int64) string {
	return strings.ToUpper(hex.EncodeToString(s.mac(method, path, params, timestamp)))
}

// SignRequest fills in req.Signature and returns it.
func (s *Signer) SignRequest(req *Request) string {
	req.Signature = s.Sign(req.Method, req.Path, req.Params, req.Timestamp)
	return req.Signature
}

// Validate checks req against now. The returned error is one of ErrMalformed,
// ErrStale or ErrMismatch.
func (s *Signer) Validate(req Request, now time.Time) error {
	if err := CheckFormat(req.Signature); err != nil {
		return err
	}
	provided, _ := hex.DecodeString(req.Signature)

	w := int64(s.window / time.Second)
	if req.Timestamp < now.Unix()-w || req.Timestamp > now.Unix()+w {
		return ErrStale
	}

	expected := s.mac(req.Method, req.Path, req.Params, req.Timestamp)
	if !hmac.Equal(expected, provided) {
		return ErrMismatch
	}
	return nil
}

// CheckFormat returns ErrMalformed unless signature is 64 hex characters.
func CheckFormat(signature string) error {
	if len(signature) != signatureHexLen {
		return ErrMalformed
	}
	if _, err := hex.DecodeString(signature); err != nil {
		return ErrMalformed
	}
	return nil
}

// Valid is Validate collapsed to a boolean.
func (s *Signer) Valid(req Request, now time.Time) bool {
	return s.Validate(req, now) == nil
}

func (s *Signer) mac(method, path, params string, timestamp int64) []byte {
	ts := strconv.FormatInt(timestamp, 10)
	key := signingKey(s.label, s.secret, ts)

	paramHash := sha256.Sum256([]byte(params))
	var msg strings.Builder
	msg.Grow(len(Algorithm) + len(ts) + len(method) + len(path) + signatureHexLen + 4)
	msg.WriteString(Algorithm)
	msg.WriteByte('\n')
	msg.WriteString(ts)
	msg.WriteByte('\n')
	msg.WriteString(method)
	msg.WriteByte('\n')
	msg.WriteString(path)
	msg.WriteByte('\n')
	msg.WriteString(strings.ToUpper(hex.EncodeToString(paramHash[:])))

	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(msg.String()))
	return mac.Sum(nil)
}

func signingKey(label string, secret []byte, timestamp string) []byte {
	k := make([]byte, 0, len(label)+len(secret))
	k = append(k, label...)
	k = append(k, secret...)
	mac := hmac.New(sha256.New, k)
	_, _ = mac.Write([]byte(timestamp))
	return mac.Sum(nil)
}
