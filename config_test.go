package goVerify

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing signing secret", mutate: func(c *Config) { c.Secrets.Signing = nil }, wantErr: "Secrets Signing"},
		{name: "missing identity secret", mutate: func(c *Config) { c.Secrets.Identity = nil }, wantErr: "Secrets Identity"},
		{name: "negative max failures", mutate: func(c *Config) { c.Lockout.MaxFailures = -1 }, wantErr: "Lockout MaxFailures"},
		{name: "zero max failures", mutate: func(c *Config) { c.Lockout.MaxFailures = 0 }},
		{name: "zero lock time", mutate: func(c *Config) { c.Lockout.LockTime = 0 }, wantErr: "Lockout LockTime"},
		{name: "zero request window", mutate: func(c *Config) { c.Request.Window = 0 }, wantErr: "Request Window"},
		{name: "empty request label", mutate: func(c *Config) { c.Request.Label = "" }, wantErr: "Request Label"},
		{name: "replay without prefix", mutate: func(c *Config) {
			c.Request.ReplayProtection = true
			c.Request.ReplayPrefix = ""
		}, wantErr: "Request ReplayPrefix"},
		{name: "leeway too large", mutate: func(c *Config) { c.Token.Leeway = 3 * time.Minute }, wantErr: "Token Leeway"},
		{name: "negative leeway", mutate: func(c *Config) { c.Token.Leeway = -time.Second }, wantErr: "Token Leeway"},
		{name: "zero token max age", mutate: func(c *Config) { c.Token.MaxAge = 0 }, wantErr: "Token MaxAge"},
		{name: "resync width zero", mutate: func(c *Config) { c.OTP.ResyncWidth = 0 }, wantErr: "OTP ResyncWidth"},
		{name: "resync width eleven", mutate: func(c *Config) { c.OTP.ResyncWidth = 11 }, wantErr: "OTP ResyncWidth"},
		{name: "qr too small", mutate: func(c *Config) { c.OTP.QRSize = 32 }, wantErr: "OTP QRSize"},
		{name: "empty issuer", mutate: func(c *Config) { c.OTP.Issuer = "" }, wantErr: "OTP Issuer"},
		{name: "zero access code ttl", mutate: func(c *Config) { c.Codes.AccessCodeTTL = 0 }, wantErr: "Codes AccessCodeTTL"},
		{name: "zero login challenge ttl", mutate: func(c *Config) { c.Codes.LoginChallengeTTL = 0 }, wantErr: "Codes LoginChallengeTTL"},
		{name: "no login attempts", mutate: func(c *Config) { c.Codes.LoginMaxAttempts = 0 }, wantErr: "Codes LoginMaxAttempts"},
		{name: "pii without secret", mutate: func(c *Config) { c.Secrets.PII = nil }, wantErr: "Secrets PII"},
		{name: "pii disabled without secret", mutate: func(c *Config) {
			c.PII.Enabled = false
			c.Secrets.PII = nil
		}},
		{name: "password memory low", mutate: func(c *Config) { c.Password.Memory = 1024 }, wantErr: "Password Memory"},
		{name: "password salt short", mutate: func(c *Config) { c.Password.SaltLength = 8 }, wantErr: "Password SaltLength"},
		{name: "delivery queue zero", mutate: func(c *Config) { c.Delivery.QueueSize = 0 }, wantErr: "Delivery QueueSize"},
		{name: "delivery queue zero when disabled", mutate: func(c *Config) {
			c.Delivery.Enabled = false
			c.Delivery.QueueSize = 0
		}},
		{name: "throttle without window", mutate: func(c *Config) { c.Delivery.Window = 0 }, wantErr: "Delivery Window"},
		{name: "session ttl below lock time", mutate: func(c *Config) { c.Session.TTL = 10 * time.Minute }, wantErr: "Session TTL"},
		{name: "session retries zero", mutate: func(c *Config) { c.Session.MaxRetries = 0 }, wantErr: "Session MaxRetries"},
		{name: "audit buffer zero", mutate: func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, wantErr: "Audit BufferSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := engineTestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestHighSecurityConfigValidates(t *testing.T) {
	cfg := HighSecurityConfig()
	cfg.Secrets = engineTestConfig().Secrets
	if err := cfg.Validate(); err != nil {
		t.Fatalf("HighSecurityConfig should validate once secrets are set: %v", err)
	}
	if !cfg.Request.ReplayProtection || !cfg.Audit.Enabled {
		t.Fatal("expected replay protection and audit enabled")
	}
}

func TestCloneConfigCopiesSecrets(t *testing.T) {
	cfg := engineTestConfig()
	cfg.PII.Salt = []byte("salt")
	out := cloneConfig(cfg)

	cfg.Secrets.Signing[0] = 'X'
	cfg.PII.Salt[0] = 'X'
	if out.Secrets.Signing[0] == 'X' || out.PII.Salt[0] == 'X' {
		t.Fatal("clone must not share secret backing arrays")
	}
}
