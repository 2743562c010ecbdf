package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	typeUntimed = "VT"
	typeTimed   = "VTT"

	keyPrefix = "goverify.token."

	// DefaultMaxAge is the max age applied when ValidateTimed receives zero.
	DefaultMaxAge = time.Hour
	// DefaultLeeway bounds how far in the future an issued-at claim may sit.
	DefaultLeeway = 30 * time.Second
)

var (
	// ErrInvalid indicates a malformed, tampered, wrong-salt or wrong-kind token.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired indicates a timed token older than the allowed max age.
	ErrExpired = errors.New("token expired")
	// ErrMalformed indicates a string that does not parse as a token at all.
	ErrMalformed = errors.New("malformed token")
)

// Config defines token manager settings.
type Config struct {
	Secret []byte
	Leeway time.Duration
	Now    func() time.Time
}

// Manager issues and validates tokens. It is immutable after construction and
// safe for concurrent use.
type Manager struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// Claims is the token payload.
type Claims struct {
	Value  string `json:"val"`
	Action string `json:"act"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = DefaultLeeway
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		secret: append([]byte(nil), cfg.Secret...),
		leeway: cfg.Leeway,
		now:    cfg.Now,
	}, nil
}

// Issue returns an untimed token binding value to salt.
func (m *Manager) Issue(value, salt string) (string, error) {
	return m.sign(Claims{Value: value, Action: salt}, typeUntimed, salt)
}

// IssueTimed returns a token binding value to salt and stamped with the
// current time.
func (m *Manager) IssueTimed(value, salt string) (string, error) {
	claims := Claims{
		Value:  value,
		Action: salt,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(m.now()),
		},
	}
	return m.sign(claims, typeTimed, salt)
}

// Validate returns the value carried by an untimed token issued under salt.
func (m *Manager) Validate(tokenStr, salt string) (string, bool) {
	claims, err := m.parse(tokenStr, salt, typeUntimed)
	if err != nil {
		return "", false
	}
	return claims.Value, true
}

// ValidateTimed returns the value carried by a timed token issued under salt
// if it is no older than maxAge at now. A zero maxAge selects DefaultMaxAge and
// a zero now selects the manager clock.
func (m *Manager) ValidateTimed(tokenStr, salt string, maxAge time.Duration, now time.Time) (string, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if now.IsZero() {
		now = m.now()
	}

	claims, err := m.parse(tokenStr, salt, typeTimed)
	if err != nil {
		return "", err
	}
	if claims.IssuedAt == nil {
		return "", ErrInvalid
	}
	issued := claims.IssuedAt.Time
	if issued.After(now.Add(m.leeway)) {
		return "", ErrInvalid
	}
	if now.Sub(issued) > maxAge {
		return "", ErrExpired
	}
	return claims.Value, nil
}

// CheckFormat reports ErrMalformed when tokenStr is not a compact token with a
// decodable header and payload. It checks no signature and needs no key.
func CheckFormat(tokenStr string) error {
	if tokenStr == "" {
		return ErrMalformed
	}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &Claims{}); err != nil {
		return ErrMalformed
	}
	return nil
}

func (m *Manager) sign(claims Claims, typ, salt string) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok.Header["typ"] = typ
	signed, err := tok.SignedString(m.key(salt))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(tokenStr, salt, typ string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if got, _ := t.Header["typ"].(string); got != typ {
			return nil, errors.New("unexpected token type")
		}
		return m.key(salt), nil
	})
	if err != nil {
		return nil, ErrInvalid
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.Action != salt {
		return nil, ErrInvalid
	}
	return claims, nil
}

func (m *Manager) key(salt string) []byte {
	mac := hmac.New(sha256.New, m.secret)
	_, _ = mac.Write([]byte(keyPrefix))
	_, _ = mac.Write([]byte(salt))
	return mac.Sum(nil)
}
