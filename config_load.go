package goVerify

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const secretBase64Prefix = "base64:"

// fileConfig is the on-disk TOML shape of Config. Secrets are strings, either
// raw or prefixed with "base64:".
type fileConfig struct {
	Secrets struct {
		Signing  string `toml:"signing"`
		Identity string `toml:"identity"`
		PII      string `toml:"pii"`
	} `toml:"secrets"`
	Lockout struct {
		MaxFailures int           `toml:"max_failures"`
		LockTime    time.Duration `toml:"lock_time"`
	} `toml:"lockout"`
	Request struct {
		Window           time.Duration `toml:"window"`
		Label            string        `toml:"label"`
		ReplayProtection bool          `toml:"replay_protection"`
		ReplayPrefix     string        `toml:"replay_prefix"`
	} `toml:"request"`
	Token struct {
		MaxAge time.Duration `toml:"max_age"`
		Leeway time.Duration `toml:"leeway"`
	} `toml:"token"`
	OTP struct {
		Issuer      string `toml:"issuer"`
		ResyncWidth int    `toml:"resync_width"`
		QRSize      int    `toml:"qr_size"`
	} `toml:"otp"`
	Codes struct {
		AccessCodeTTL        time.Duration `toml:"access_code_ttl"`
		RedisPrefix          string        `toml:"redis_prefix"`
		LoginChallengeTTL    time.Duration `toml:"login_challenge_ttl"`
		LoginChallengePrefix string        `toml:"login_challenge_prefix"`
		LoginMaxAttempts     int           `toml:"login_max_attempts"`
	} `toml:"codes"`
	PII struct {
		Enabled bool   `toml:"enabled"`
		Salt    string `toml:"salt"`
		Info    string `toml:"info"`
	} `toml:"pii"`
	Password struct {
		Memory        uint32 `toml:"memory"`
		Time          uint32 `toml:"time"`
		Parallelism   uint8  `toml:"parallelism"`
		SaltLength    uint32 `toml:"salt_length"`
		KeyLength     uint32 `toml:"key_length"`
		MaxInputBytes int    `toml:"max_input_bytes"`
	} `toml:"password"`
	Delivery struct {
		Enabled           bool          `toml:"enabled"`
		QueueSize         int           `toml:"queue_size"`
		DropIfFull        bool          `toml:"drop_if_full"`
		MaxCodesPerWindow int           `toml:"max_codes_per_window"`
		Window            time.Duration `toml:"window"`
		RedisPrefix       string        `toml:"redis_prefix"`
		ProductName       string        `toml:"product_name"`
		LinkBaseURL       string        `toml:"link_base_url"`
	} `toml:"delivery"`
	Session struct {
		RedisPrefix string        `toml:"redis_prefix"`
		TTL         time.Duration `toml:"ttl"`
		MaxRetries  int           `toml:"max_retries"`
	} `toml:"session"`
	Audit struct {
		Enabled    bool `toml:"enabled"`
		BufferSize int  `toml:"buffer_size"`
		DropIfFull bool `toml:"drop_if_full"`
	} `toml:"audit"`
	Metrics struct {
		Enabled                 bool `toml:"enabled"`
		EnableLatencyHistograms bool `toml:"enable_latency_histograms"`
	} `toml:"metrics"`
}

// LoadConfigFile reads a TOML file over the defaults. Keys absent from the
// file keep their default value. The result is not validated.
func LoadConfigFile(path string) (Config, error) {
	fc := toFileConfig(defaultConfig())
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return fromFileConfig(fc)
}

// ConfigFromEnv builds a Config from GOVERIFY_* variables over the defaults.
// Unset or unparsable numeric values keep their default.
func ConfigFromEnv() (Config, error) {
	cfg := defaultConfig()

	var err error
	if cfg.Secrets.Signing, err = decodeSecret(getEnv("GOVERIFY_SIGNING_SECRET", "")); err != nil {
		return Config{}, fmt.Errorf("GOVERIFY_SIGNING_SECRET: %w", err)
	}
	if cfg.Secrets.Identity, err = decodeSecret(getEnv("GOVERIFY_IDENTITY_SECRET", "")); err != nil {
		return Config{}, fmt.Errorf("GOVERIFY_IDENTITY_SECRET: %w", err)
	}
	if cfg.Secrets.PII, err = decodeSecret(getEnv("GOVERIFY_PII_SECRET", "")); err != nil {
		return Config{}, fmt.Errorf("GOVERIFY_PII_SECRET: %w", err)
	}
	cfg.PII.Enabled = getEnvBool("GOVERIFY_PII_ENABLED", len(cfg.Secrets.PII) > 0)

	cfg.Lockout.MaxFailures = getEnvInt("GOVERIFY_MAX_FAILURES", cfg.Lockout.MaxFailures)
	cfg.Lockout.LockTime = getEnvSeconds("GOVERIFY_LOCK_TIME", cfg.Lockout.LockTime)

	cfg.Request.Window = getEnvSeconds("GOVERIFY_REQUEST_WINDOW", cfg.Request.Window)
	cfg.Request.Label = getEnv("GOVERIFY_REQUEST_LABEL", cfg.Request.Label)
	cfg.Request.ReplayProtection = getEnvBool("GOVERIFY_REPLAY_PROTECTION", cfg.Request.ReplayProtection)

	cfg.Token.MaxAge = getEnvSeconds("GOVERIFY_TOKEN_MAX_AGE", cfg.Token.MaxAge)

	cfg.OTP.Issuer = getEnv("GOVERIFY_OTP_ISSUER", cfg.OTP.Issuer)

	cfg.Codes.AccessCodeTTL = getEnvDuration("GOVERIFY_ACCESS_CODE_TTL", cfg.Codes.AccessCodeTTL)
	cfg.Codes.LoginChallengeTTL = getEnvDuration("GOVERIFY_LOGIN_CHALLENGE_TTL", cfg.Codes.LoginChallengeTTL)
	cfg.Codes.LoginMaxAttempts = getEnvInt("GOVERIFY_LOGIN_MAX_ATTEMPTS", cfg.Codes.LoginMaxAttempts)

	cfg.Delivery.Enabled = getEnvBool("GOVERIFY_DELIVERY_ENABLED", cfg.Delivery.Enabled)
	cfg.Delivery.MaxCodesPerWindow = getEnvInt("GOVERIFY_MAX_CODES_PER_WINDOW", cfg.Delivery.MaxCodesPerWindow)
	cfg.Delivery.ProductName = getEnv("GOVERIFY_PRODUCT_NAME", cfg.Delivery.ProductName)
	cfg.Delivery.LinkBaseURL = getEnv("GOVERIFY_LINK_BASE_URL", cfg.Delivery.LinkBaseURL)

	cfg.Audit.Enabled = getEnvBool("GOVERIFY_AUDIT_ENABLED", cfg.Audit.Enabled)
	cfg.Metrics.Enabled = getEnvBool("GOVERIFY_METRICS_ENABLED", cfg.Metrics.Enabled)

	return cfg, nil
}

func toFileConfig(cfg Config) fileConfig {
	var fc fileConfig
	fc.Lockout.MaxFailures = cfg.Lockout.MaxFailures
	fc.Lockout.LockTime = cfg.Lockout.LockTime
	fc.Request.Window = cfg.Request.Window
	fc.Request.Label = cfg.Request.Label
	fc.Request.ReplayProtection = cfg.Request.ReplayProtection
	fc.Request.ReplayPrefix = cfg.Request.ReplayPrefix
	fc.Token.MaxAge = cfg.Token.MaxAge
	fc.Token.Leeway = cfg.Token.Leeway
	fc.OTP.Issuer = cfg.OTP.Issuer
	fc.OTP.ResyncWidth = cfg.OTP.ResyncWidth
	fc.OTP.QRSize = cfg.OTP.QRSize
	fc.Codes.AccessCodeTTL = cfg.Codes.AccessCodeTTL
	fc.Codes.RedisPrefix = cfg.Codes.RedisPrefix
	fc.Codes.LoginChallengeTTL = cfg.Codes.LoginChallengeTTL
	fc.Codes.LoginChallengePrefix = cfg.Codes.LoginChallengePrefix
	fc.Codes.LoginMaxAttempts = cfg.Codes.LoginMaxAttempts
	fc.PII.Enabled = cfg.PII.Enabled
	fc.PII.Info = cfg.PII.Info
	fc.Password.Memory = cfg.Password.Memory
	fc.Password.Time = cfg.Password.Time
	fc.Password.Parallelism = cfg.Password.Parallelism
	fc.Password.SaltLength = cfg.Password.SaltLength
	fc.Password.KeyLength = cfg.Password.KeyLength
	fc.Password.MaxInputBytes = cfg.Password.MaxInputBytes
	fc.Delivery.Enabled = cfg.Delivery.Enabled
	fc.Delivery.QueueSize = cfg.Delivery.QueueSize
	fc.Delivery.DropIfFull = cfg.Delivery.DropIfFull
	fc.Delivery.MaxCodesPerWindow = cfg.Delivery.MaxCodesPerWindow
	fc.Delivery.Window = cfg.Delivery.Window
	fc.Delivery.RedisPrefix = cfg.Delivery.RedisPrefix
	fc.Delivery.ProductName = cfg.Delivery.ProductName
	fc.Delivery.LinkBaseURL = cfg.Delivery.LinkBaseURL
	fc.Session.RedisPrefix = cfg.Session.RedisPrefix
	fc.Session.TTL = cfg.Session.TTL
	fc.Session.MaxRetries = cfg.Session.MaxRetries
	fc.Audit.Enabled = cfg.Audit.Enabled
	fc.Audit.BufferSize = cfg.Audit.BufferSize
	fc.Audit.DropIfFull = cfg.Audit.DropIfFull
	fc.Metrics.Enabled = cfg.Metrics.Enabled
	fc.Metrics.EnableLatencyHistograms = cfg.Metrics.EnableLatencyHistograms
	return fc
}

func fromFileConfig(fc fileConfig) (Config, error) {
	cfg := defaultConfig()

	var err error
	if cfg.Secrets.Signing, err = decodeSecret(fc.Secrets.Signing); err != nil {
		return Config{}, fmt.Errorf("secrets.signing: %w", err)
	}
	if cfg.Secrets.Identity, err = decodeSecret(fc.Secrets.Identity); err != nil {
		return Config{}, fmt.Errorf("secrets.identity: %w", err)
	}
	if cfg.Secrets.PII, err = decodeSecret(fc.Secrets.PII); err != nil {
		return Config{}, fmt.Errorf("secrets.pii: %w", err)
	}
	if cfg.PII.Salt, err = decodeSecret(fc.PII.Salt); err != nil {
		return Config{}, fmt.Errorf("pii.salt: %w", err)
	}

	cfg.Lockout.MaxFailures = fc.Lockout.MaxFailures
	cfg.Lockout.LockTime = fc.Lockout.LockTime
	cfg.Request.Window = fc.Request.Window
	cfg.Request.Label = fc.Request.Label
	cfg.Request.ReplayProtection = fc.Request.ReplayProtection
	cfg.Request.ReplayPrefix = fc.Request.ReplayPrefix
	cfg.Token.MaxAge = fc.Token.MaxAge
	cfg.Token.Leeway = fc.Token.Leeway
	cfg.OTP.Issuer = fc.OTP.Issuer
	cfg.OTP.ResyncWidth = fc.OTP.ResyncWidth
	cfg.OTP.QRSize = fc.OTP.QRSize
	cfg.Codes.AccessCodeTTL = fc.Codes.AccessCodeTTL
	cfg.Codes.RedisPrefix = fc.Codes.RedisPrefix
	cfg.Codes.LoginChallengeTTL = fc.Codes.LoginChallengeTTL
	cfg.Codes.LoginChallengePrefix = fc.Codes.LoginChallengePrefix
	cfg.Codes.LoginMaxAttempts = fc.Codes.LoginMaxAttempts
	cfg.PII.Enabled = fc.PII.Enabled
	cfg.PII.Info = fc.PII.Info
	cfg.Password.Memory = fc.Password.Memory
	cfg.Password.Time = fc.Password.Time
	cfg.Password.Parallelism = fc.Password.Parallelism
	cfg.Password.SaltLength = fc.Password.SaltLength
	cfg.Password.KeyLength = fc.Password.KeyLength
	cfg.Password.MaxInputBytes = fc.Password.MaxInputBytes
	cfg.Delivery.Enabled = fc.Delivery.Enabled
	cfg.Delivery.QueueSize = fc.Delivery.QueueSize
	cfg.Delivery.DropIfFull = fc.Delivery.DropIfFull
	cfg.Delivery.MaxCodesPerWindow = fc.Delivery.MaxCodesPerWindow
	cfg.Delivery.Window = fc.Delivery.Window
	cfg.Delivery.RedisPrefix = fc.Delivery.RedisPrefix
	cfg.Delivery.ProductName = fc.Delivery.ProductName
	cfg.Delivery.LinkBaseURL = fc.Delivery.LinkBaseURL
	cfg.Session.RedisPrefix = fc.Session.RedisPrefix
	cfg.Session.TTL = fc.Session.TTL
	cfg.Session.MaxRetries = fc.Session.MaxRetries
	cfg.Audit.Enabled = fc.Audit.Enabled
	cfg.Audit.BufferSize = fc.Audit.BufferSize
	cfg.Audit.DropIfFull = fc.Audit.DropIfFull
	cfg.Metrics.Enabled = fc.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = fc.Metrics.EnableLatencyHistograms
	return cfg, nil
}

// decodeSecret returns nil for "", the decoded bytes for "base64:..." and the
// raw bytes otherwise.
func decodeSecret(v string) ([]byte, error) {
	if v == "" {
		return nil, nil
	}
	if enc, ok := strings.CutPrefix(v, secretBase64Prefix); ok {
		b, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 secret: %w", err)
		}
		return b, nil
	}
	return []byte(v), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvSeconds accepts a bare number of seconds or a Go duration string.
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
