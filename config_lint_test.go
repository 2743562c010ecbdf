package goVerify

import (
	"strings"
	"testing"
	"time"
)

func lintBaseConfig() Config {
	cfg := DefaultConfig()
	cfg.Secrets.Signing = []byte("signing-secret-0123456789abcdef0123")
	cfg.Secrets.Identity = []byte("identity-secret-0123456789abcdef012")
	return cfg
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func TestLint_DefaultConfigNoHighWarnings(t *testing.T) {
	cfg := lintBaseConfig()
	ws := cfg.Lint()
	if high := ws.BySeverity(LintHigh); len(high) != 0 {
		t.Errorf("default config should have no high warnings, got %v", high.Codes())
	}
	if !containsCode(ws.Codes(), "request_replay_unprotected") {
		t.Error("expected request_replay_unprotected on default config")
	}
}

func TestLint_HighSecurityConfigReplayProtected(t *testing.T) {
	cfg := HighSecurityConfig()
	cfg.Secrets = lintBaseConfig().Secrets
	codes := cfg.Lint().Codes()
	if containsCode(codes, "request_replay_unprotected") {
		t.Error("HighSecurityConfig should enable replay protection")
	}
	if containsCode(codes, "token_leeway_large") {
		t.Error("HighSecurityConfig should keep leeway small")
	}
}

func TestLint_SigningSecretShort(t *testing.T) {
	cfg := lintBaseConfig()
	cfg.Secrets.Signing = []byte("short")
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "signing_secret_short") {
		t.Fatal("expected signing_secret_short")
	}
	for _, w := range ws {
		if w.Code == "signing_secret_short" && w.Severity != LintHigh {
			t.Errorf("signing_secret_short severity = %s, want high", w.Severity)
		}
	}
}

func TestLint_PIISecretShared(t *testing.T) {
	cfg := lintBaseConfig()
	cfg.PII.Enabled = true
	cfg.Secrets.PII = cfg.Secrets.Signing
	if !containsCode(cfg.Lint().Codes(), "pii_secret_shared") {
		t.Error("expected pii_secret_shared")
	}
}

func TestLint_TokenLeewayLarge(t *testing.T) {
	cfg := lintBaseConfig()
	cfg.Token.Leeway = 90 * time.Second
	if !containsCode(cfg.Lint().Codes(), "token_leeway_large") {
		t.Error("expected token_leeway_large")
	}
}

func TestLint_PasswordMemoryLow(t *testing.T) {
	cfg := lintBaseConfig()
	if containsCode(cfg.Lint().Codes(), "password_memory_low") {
		t.Fatal("default memory should not warn")
	}
	cfg.Password.Memory = 8 * 1024
	if !containsCode(cfg.Lint().Codes(), "password_memory_low") {
		t.Error("expected password_memory_low")
	}
}

func TestLint_DeliveryUnthrottled(t *testing.T) {
	cfg := lintBaseConfig()
	cfg.Delivery.MaxCodesPerWindow = 0
	ws := cfg.Lint()
	if !containsCode(ws.BySeverity(LintHigh).Codes(), "delivery_unthrottled") {
		t.Error("expected high delivery_unthrottled")
	}

	cfg.Delivery.Enabled = false
	codes := cfg.Lint().Codes()
	if containsCode(codes, "delivery_unthrottled") {
		t.Error("disabled delivery should not report delivery_unthrottled")
	}
	if !containsCode(codes, "delivery_disabled") {
		t.Error("expected delivery_disabled")
	}
}

func TestLint_Lockout(t *testing.T) {
	cfg := lintBaseConfig()
	cfg.Lockout.MaxFailures = 50
	cfg.Lockout.LockTime = time.Minute
	codes := cfg.Lint().Codes()
	if !containsCode(codes, "lockout_lenient") {
		t.Error("expected lockout_lenient")
	}
	if !containsCode(codes, "lock_time_short") {
		t.Error("expected lock_time_short")
	}

	cfg.Lockout.MaxFailures = 0
	if !containsCode(cfg.Lint().Codes(), "lockout_zero_tolerance") {
		t.Error("expected lockout_zero_tolerance")
	}
}

func TestLint_Windows(t *testing.T) {
	cfg := lintBaseConfig()
	cfg.Request.Window = time.Hour
	cfg.Token.MaxAge = 48 * time.Hour
	cfg.Codes.AccessCodeTTL = 30 * 24 * time.Hour
	cfg.OTP.ResyncWidth = 8
	codes := cfg.Lint().Codes()
	for _, want := range []string{"request_window_long", "token_max_age_long", "access_code_ttl_long", "otp_resync_wide"} {
		if !containsCode(codes, want) {
			t.Errorf("expected %s", want)
		}
	}
}

func TestLint_SessionAndAudit(t *testing.T) {
	cfg := lintBaseConfig()
	cfg.Session.TTL = cfg.Lockout.LockTime
	cfg.Audit.Enabled = true
	codes := cfg.Lint().Codes()
	if !containsCode(codes, "session_ttl_short") {
		t.Error("expected session_ttl_short")
	}
	if !containsCode(codes, "audit_drops") {
		t.Error("expected audit_drops")
	}
}

func TestLint_BySeverity(t *testing.T) {
	ws := LintWarnings{
		{Code: "a", Severity: LintInfo},
		{Code: "b", Severity: LintWarn},
		{Code: "c", Severity: LintHigh},
	}

	high := ws.BySeverity(LintHigh)
	if len(high) != 1 || high[0].Code != "c" {
		t.Errorf("BySeverity(LintHigh) = %v", high.Codes())
	}
	for _, w := range ws.BySeverity(LintWarn) {
		if w.Severity < LintWarn {
			t.Errorf("BySeverity(LintWarn) returned warning with severity %s", w.Severity)
		}
	}
	if got := len(ws.BySeverity(LintInfo)); got != 3 {
		t.Errorf("BySeverity(LintInfo) returned %d warnings, want 3", got)
	}
}

func TestLint_AsError(t *testing.T) {
	ws := LintWarnings{
		{Code: "quiet", Severity: LintInfo, Message: "fine"},
		{Code: "loud", Severity: LintHigh, Message: "bad"},
	}
	err := ws.AsError(LintHigh)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "loud: bad") || strings.Contains(err.Error(), "quiet") {
		t.Errorf("unexpected error text %q", err)
	}
	if err := ws[:1].AsError(LintWarn); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestLintSeverity_String(t *testing.T) {
	cases := map[LintSeverity]string{
		LintInfo:         "info",
		LintWarn:         "warn",
		LintHigh:         "high",
		LintSeverity(99): "unknown",
	}
	for sev, want := range cases {
		if got := sev.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", sev, got, want)
		}
	}
}
