package goVerify

import (
	"errors"
	"time"

	"github.com/MrEthical07/goVerify/otp"
	"github.com/MrEthical07/goVerify/password"
	"github.com/MrEthical07/goVerify/pii"
	"github.com/MrEthical07/goVerify/signing"
)

// Config is the root configuration for the verification engine.
//
// Secrets are held here and injected into each component at Build time; no
// package keeps a process-wide copy.
type Config struct {
	Secrets  SecretsConfig
	Lockout  LockoutConfig
	Request  RequestConfig
	Token    TokenConfig
	OTP      OTPConfig
	Codes    CodesConfig
	PII      PIIConfig
	Password PasswordConfig
	Delivery DeliveryConfig
	Session  SessionConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
SECRETS CONFIG
====================================
*/

// SecretsConfig holds the process-wide secrets.
type SecretsConfig struct {
	// Signing is the shared secret behind request signatures, action tokens
	// and bearer codes.
	Signing []byte
	// Identity keys account identifier derivation.
	Identity []byte
	// PII keys contact encryption. Required when PII.Enabled is set.
	PII []byte
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig tunes the per-account failure state machine.
type LockoutConfig struct {
	MaxFailures int
	LockTime    time.Duration
}

/*
====================================
REQUEST SIGNING CONFIG
====================================
*/

// RequestConfig tunes signed request validation.
type RequestConfig struct {
	Window time.Duration
	Label  string

	// ReplayProtection rejects a signature seen before inside twice the window.
	ReplayProtection bool
	ReplayPrefix     string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig tunes action tokens.
type TokenConfig struct {
	MaxAge time.Duration
	Leeway time.Duration
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig tunes one-time passwords.
type OTPConfig struct {
	Issuer      string
	ResyncWidth int
	QRSize      int
}

/*
====================================
CODES CONFIG
====================================
*/

// CodesConfig tunes bearer access codes and the login challenge that links
// a passed password step to its code step.
type CodesConfig struct {
	AccessCodeTTL time.Duration
	RedisPrefix   string

	LoginChallengeTTL    time.Duration
	LoginChallengePrefix string
	// LoginMaxAttempts wrong codes delete the challenge.
	LoginMaxAttempts int
}

/*
====================================
PII CONFIG
====================================
*/

// PIIConfig tunes contact encryption.
type PIIConfig struct {
	Enabled bool
	Salt    []byte
	Info    string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters.
type PasswordConfig struct {
	Memory        uint32
	Time          uint32
	Parallelism   uint8
	SaltLength    uint32
	KeyLength     uint32
	MaxInputBytes int
}

/*
====================================
DELIVERY CONFIG
====================================
*/

// DeliveryConfig tunes outbound notifications.
type DeliveryConfig struct {
	Enabled    bool
	QueueSize  int
	DropIfFull bool

	// MaxCodesPerWindow caps SendCode per account. Zero disables throttling.
	MaxCodesPerWindow int
	Window            time.Duration
	RedisPrefix       string

	ProductName string
	// LinkBaseURL prefixes confirmation links, e.g. https://example.com/confirm.
	LinkBaseURL string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig tunes the Redis lockout record store.
type SessionConfig struct {
	RedisPrefix string
	TTL         time.Duration
	MaxRetries  int
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. Secrets are left empty and
// must be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		Lockout: LockoutConfig{
			MaxFailures: 3,
			LockTime:    1800 * time.Second,
		},
		Request: RequestConfig{
			Window:       signing.DefaultWindow,
			Label:        signing.DefaultLabel,
			ReplayPrefix: "vrp",
		},
		Token: TokenConfig{
			MaxAge: 3600 * time.Second,
			Leeway: 30 * time.Second,
		},
		OTP: OTPConfig{
			Issuer:      otp.DefaultIssuer,
			ResyncWidth: otp.DefaultResyncWidth,
			QRSize:      200,
		},
		Codes: CodesConfig{
			AccessCodeTTL: 24 * time.Hour,
			RedisPrefix:   "vac",

			LoginChallengeTTL:    5 * time.Minute,
			LoginChallengePrefix: "vlc",
			LoginMaxAttempts:     5,
		},
		PII: PIIConfig{
			Info: pii.DefaultInfo,
		},
		Password: PasswordConfig{
			Memory:        pw.Memory,
			Time:          pw.Time,
			Parallelism:   pw.Parallelism,
			SaltLength:    pw.SaltLength,
			KeyLength:     pw.KeyLength,
			MaxInputBytes: password.DefaultMaxInputBytes,
		},
		Delivery: DeliveryConfig{
			Enabled:           true,
			QueueSize:         256,
			DropIfFull:        true,
			MaxCodesPerWindow: 10,
			Window:            time.Hour,
			RedisPrefix:       "vd",
			ProductName:       "Frosty Web",
		},
		Session: SessionConfig{
			RedisPrefix: "vl",
			TTL:         7 * 24 * time.Hour,
			MaxRetries:  16,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// HighSecurityConfig returns a stricter preset: shorter tokens and locks that
// trigger sooner and hold longer, replay protection, audit and metrics on.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.Lockout.MaxFailures = 3
	cfg.Lockout.LockTime = time.Hour
	cfg.Request.Window = 120 * time.Second
	cfg.Request.ReplayProtection = true
	cfg.Token.MaxAge = 15 * time.Minute
	cfg.Token.Leeway = 5 * time.Second
	cfg.Codes.AccessCodeTTL = time.Hour
	cfg.Codes.LoginChallengeTTL = 3 * time.Minute
	cfg.Codes.LoginMaxAttempts = 3
	cfg.Delivery.MaxCodesPerWindow = 5
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Secrets.Signing = cloneBytes(cfg.Secrets.Signing)
	out.Secrets.Identity = cloneBytes(cfg.Secrets.Identity)
	out.Secrets.PII = cloneBytes(cfg.Secrets.PII)
	out.PII.Salt = cloneBytes(cfg.PII.Salt)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if len(c.Secrets.Signing) == 0 {
		return errors.New("Secrets Signing is required")
	}
	if len(c.Secrets.Identity) == 0 {
		return errors.New("Secrets Identity is required")
	}

	if c.Lockout.MaxFailures < 0 {
		return errors.New("Lockout MaxFailures must be >= 0")
	}
	if c.Lockout.LockTime <= 0 {
		return errors.New("Lockout LockTime must be > 0")
	}

	if c.Request.Window <= 0 {
		return errors.New("Request Window must be > 0")
	}
	if c.Request.Label == "" {
		return errors.New("Request Label is required")
	}
	if c.Request.ReplayProtection && c.Request.ReplayPrefix == "" {
		return errors.New("Request ReplayPrefix is required when ReplayProtection is enabled")
	}

	if c.Token.MaxAge <= 0 {
		return errors.New("Token MaxAge must be > 0")
	}
	if c.Token.Leeway < 0 {
		return errors.New("Token Leeway must be >= 0")
	}
	if c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be <= 2m")
	}

	if c.OTP.Issuer == "" {
		return errors.New("OTP Issuer is required")
	}
	if c.OTP.ResyncWidth < 1 || c.OTP.ResyncWidth > 10 {
		return errors.New("OTP ResyncWidth must be between 1 and 10")
	}
	if c.OTP.QRSize < 64 {
		return errors.New("OTP QRSize must be >= 64")
	}

	if c.Codes.AccessCodeTTL <= 0 {
		return errors.New("Codes AccessCodeTTL must be > 0")
	}
	if c.Codes.RedisPrefix == "" {
		return errors.New("Codes RedisPrefix is required")
	}
	if c.Codes.LoginChallengeTTL <= 0 {
		return errors.New("Codes LoginChallengeTTL must be > 0")
	}
	if c.Codes.LoginChallengePrefix == "" {
		return errors.New("Codes LoginChallengePrefix is required")
	}
	if c.Codes.LoginMaxAttempts < 1 {
		return errors.New("Codes LoginMaxAttempts must be >= 1")
	}

	if c.PII.Enabled {
		if len(c.Secrets.PII) == 0 {
			return errors.New("Secrets PII is required when PII is enabled")
		}
		if c.PII.Info == "" {
			return errors.New("PII Info is required when PII is enabled")
		}
	}

	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxInputBytes < 0 {
		return errors.New("Password MaxInputBytes must be >= 0")
	}

	if c.Delivery.Enabled && c.Delivery.QueueSize <= 0 {
		return errors.New("Delivery QueueSize must be > 0 when delivery is enabled")
	}
	if c.Delivery.MaxCodesPerWindow < 0 {
		return errors.New("Delivery MaxCodesPerWindow must be >= 0")
	}
	if c.Delivery.MaxCodesPerWindow > 0 && c.Delivery.Window <= 0 {
		return errors.New("Delivery Window must be > 0 when MaxCodesPerWindow is set")
	}

	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix is required")
	}
	if c.Session.TTL < c.Lockout.LockTime {
		return errors.New("Session TTL must be >= Lockout LockTime")
	}
	if c.Session.MaxRetries < 1 {
		return errors.New("Session MaxRetries must be >= 1")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Memory:        c.Password.Memory,
		Time:          c.Password.Time,
		Parallelism:   c.Password.Parallelism,
		SaltLength:    c.Password.SaltLength,
		KeyLength:     c.Password.KeyLength,
		MaxInputBytes: c.Password.MaxInputBytes,
	}
}
