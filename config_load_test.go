package goVerify

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goverify.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
[secrets]
signing = "signing-secret-0123456789abcdef0123"
identity = "base64:aWRlbnRpdHktc2VjcmV0"

[lockout]
max_failures = 5
lock_time = "45m"

[request]
replay_protection = true

[otp]
issuer = "Acme"
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if !bytes.Equal(cfg.Secrets.Identity, []byte("identity-secret")) {
		t.Fatalf("expected base64 secret decoded, got %q", cfg.Secrets.Identity)
	}
	if string(cfg.Secrets.Signing) != "signing-secret-0123456789abcdef0123" {
		t.Fatalf("unexpected signing secret %q", cfg.Secrets.Signing)
	}
	if cfg.Lockout.MaxFailures != 5 || cfg.Lockout.LockTime != 45*time.Minute {
		t.Fatalf("unexpected lockout %+v", cfg.Lockout)
	}
	if !cfg.Request.ReplayProtection || cfg.OTP.Issuer != "Acme" {
		t.Fatal("expected file values applied")
	}

	def := DefaultConfig()
	if cfg.Token.MaxAge != def.Token.MaxAge || cfg.Session.RedisPrefix != def.Session.RedisPrefix {
		t.Fatal("absent keys must keep their defaults")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}

func TestLoadConfigFileUnknownKey(t *testing.T) {
	path := writeConfigFile(t, `
[lockout]
max_failures = 3
max_attempts = 3
`)
	_, err := LoadConfigFile(path)
	if err == nil || !strings.Contains(err.Error(), "max_attempts") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadConfigFileBadSecret(t *testing.T) {
	path := writeConfigFile(t, `
[secrets]
signing = "base64:***"
`)
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("expected invalid base64 rejected")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("GOVERIFY_SIGNING_SECRET", "signing-secret-0123456789abcdef0123")
	t.Setenv("GOVERIFY_IDENTITY_SECRET", "identity-secret-0123456789abcdef012")
	t.Setenv("GOVERIFY_PII_SECRET", "base64:cGlpLXNlY3JldA==")
	t.Setenv("GOVERIFY_MAX_FAILURES", "7")
	t.Setenv("GOVERIFY_LOCK_TIME", "600")
	t.Setenv("GOVERIFY_REQUEST_WINDOW", "2m")
	t.Setenv("GOVERIFY_ACCESS_CODE_TTL", "not-a-duration")
	t.Setenv("GOVERIFY_REPLAY_PROTECTION", "true")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}
	if !cfg.PII.Enabled || string(cfg.Secrets.PII) != "pii-secret" {
		t.Fatalf("expected pii enabled with decoded secret, got %v %q", cfg.PII.Enabled, cfg.Secrets.PII)
	}
	if cfg.Lockout.MaxFailures != 7 {
		t.Fatalf("expected max failures 7, got %d", cfg.Lockout.MaxFailures)
	}
	if cfg.Lockout.LockTime != 10*time.Minute {
		t.Fatalf("expected bare seconds parsed, got %s", cfg.Lockout.LockTime)
	}
	if cfg.Request.Window != 2*time.Minute {
		t.Fatalf("expected duration parsed, got %s", cfg.Request.Window)
	}
	if cfg.Codes.AccessCodeTTL != DefaultConfig().Codes.AccessCodeTTL {
		t.Fatal("unparsable value must keep the default")
	}
	if !cfg.Request.ReplayProtection {
		t.Fatal("expected replay protection from env")
	}
}

func TestConfigFromEnvBadSecret(t *testing.T) {
	t.Setenv("GOVERIFY_SIGNING_SECRET", "base64:%%%")
	if _, err := ConfigFromEnv(); err == nil || !strings.Contains(err.Error(), "GOVERIFY_SIGNING_SECRET") {
		t.Fatalf("expected secret error, got %v", err)
	}
}
