package otp

import (
	"bytes"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"image/png"
	"net/url"
	"strconv"
	"strings"
	"time"

	potp "github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"github.com/pquerna/otp/totp"
)

const (
	// SecretLength is the base32 length of generated secrets (80-bit keys).
	SecretLength = 16
	secretBytes  = SecretLength * 5 / 8

	// HOTPDigits is the HOTP code length.
	HOTPDigits = 6
	// TOTPDigits is the TOTP code length.
	TOTPDigits = 8
	// TOTPPeriod is the TOTP time step.
	TOTPPeriod = 30 * time.Second

	// DefaultResyncWidth is how many counters VerifyHOTP tries.
	DefaultResyncWidth = 3
	// DefaultIssuer labels provisioning URIs.
	DefaultIssuer = "FROSTY"
)

// ErrSecret indicates a secret that is not valid base32.
var ErrSecret = errors.New("invalid otp secret")

// Config tunes a Generator.
type Config struct {
	Issuer      string
	ResyncWidth int
}

// Generator produces and checks codes. It holds no per-account state and is
// safe for concurrent use.
type Generator struct {
	issuer      string
	resyncWidth int
}

// New returns a Generator; zero fields take defaults.
func New(cfg Config) *Generator {
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.ResyncWidth <= 0 {
		cfg.ResyncWidth = DefaultResyncWidth
	}
	return &Generator{issuer: cfg.Issuer, resyncWidth: cfg.ResyncWidth}
}

// GenerateSecret returns a fresh 16-character base32 secret.
func GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base32.StdEncoding.EncodeToString(raw), nil
}

// RandomCounter returns a random non-negative starting counter for a new HOTP
// enrollment, so first codes are not predictable from the secret alone.
func RandomCounter() (int64, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint32(b[:]) >> 1), nil
}

// ValidSecret reports whether secret decodes as base32.
func ValidSecret(secret string) bool {
	_, err := decodeSecret(secret)
	return err == nil
}

// HOTP returns the 6-digit code for counter.
func (g *Generator) HOTP(secret string, counter int64) (string, error) {
	if counter < 0 {
		return "", fmt.Errorf("negative counter %d", counter)
	}
	if _, err := decodeSecret(secret); err != nil {
		return "", err
	}
	return hotp.GenerateCodeCustom(secret, uint64(counter), hotp.ValidateOpts{
		Digits:    potp.DigitsSix,
		Algorithm: potp.AlgorithmSHA1,
	})
}

// VerifyHOTP scans counter through counter+width-1 and returns the first
// counter whose code equals code.
func (g *Generator) VerifyHOTP(secret, code string, counter int64) (int64, bool) {
	code = strings.TrimSpace(code)
	if len(code) != HOTPDigits || !isNumericString(code) || counter < 0 {
		return 0, false
	}
	for c := counter; c < counter+int64(g.resyncWidth); c++ {
		generated, err := g.HOTP(secret, c)
		if err != nil {
			return 0, false
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(code)) == 1 {
			return c, true
		}
	}
	return 0, false
}

// TOTP returns the 8-digit code for the step containing now.
func (g *Generator) TOTP(secret string, now time.Time) (string, error) {
	if _, err := decodeSecret(secret); err != nil {
		return "", err
	}
	return totp.GenerateCodeCustom(secret, now, totpOpts())
}

// VerifyTOTP checks code against the current step only.
func (g *Generator) VerifyTOTP(secret, code string, now time.Time) bool {
	code = strings.TrimSpace(code)
	if len(code) != TOTPDigits || !isNumericString(code) {
		return false
	}
	generated, err := g.TOTP(secret, now)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(generated), []byte(code)) == 1
}

// HOTPURI returns an otpauth://hotp provisioning URI.
func (g *Generator) HOTPURI(secret, label string, counter int64) string {
	return g.uri("hotp", secret, label, "&counter="+strconv.FormatInt(counter, 10))
}

// TOTPURI returns an otpauth://totp provisioning URI.
func (g *Generator) TOTPURI(secret, label string) string {
	return g.uri("totp", secret, label, "&digits="+strconv.Itoa(TOTPDigits))
}

func (g *Generator) uri(kind, secret, label, extra string) string {
	var b strings.Builder
	b.WriteString("otpauth://")
	b.WriteString(kind)
	b.WriteByte('/')
	b.WriteString(url.PathEscape(label))
	b.WriteString("?secret=")
	b.WriteString(url.QueryEscape(secret))
	b.WriteString(extra)
	b.WriteString("&issuer=")
	b.WriteString(url.QueryEscape(g.issuer))
	return b.String()
}

// QRCode renders uri as a size×size PNG.
func QRCode(uri string, size int) ([]byte, error) {
	if size <= 0 {
		size = 200
	}
	if !strings.HasPrefix(uri, "otpauth://") {
		return nil, fmt.Errorf("parse provisioning uri: unsupported scheme")
	}
	key, err := potp.NewKeyFromURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse provisioning uri: %w", err)
	}
	img, err := key.Image(size, size)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return buf.Bytes(), nil
}

func totpOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(TOTPPeriod / time.Second),
		Digits:    potp.DigitsEight,
		Algorithm: potp.AlgorithmSHA1,
	}
}

func decodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.TrimSpace(secret))
	if s == "" {
		return nil, ErrSecret
	}
	if n := len(s) % 8; n != 0 {
		s += strings.Repeat("=", 8-n)
	}
	raw, err := base32.StdEncoding.DecodeString(s)
	if err != nil || len(raw) == 0 {
		return nil, ErrSecret
	}
	return raw, nil
}

func isNumericString(v string) bool {
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}
