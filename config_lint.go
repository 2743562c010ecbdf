package goVerify

import (
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity uint8

const (
	// LintInfo is an exported constant or variable used by the verification engine.
	LintInfo LintSeverity = iota
	// LintWarn is an exported constant or variable used by the verification engine.
	LintWarn
	// LintHigh is an exported constant or variable used by the verification engine.
	LintHigh
)

// String returns the severity name.
func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "info"
	case LintWarn:
		return "warn"
	case LintHigh:
		return "high"
	default:
		return "unknown"
	}
}

// LintWarning is a configuration that validates but is probably a mistake.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings with severity >= min.
func (ws LintWarnings) BySeverity(min LintSeverity) LintWarnings {
	var out LintWarnings
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins the warnings with severity >= min into one error, or returns
// nil when there are none.
func (ws LintWarnings) AsError(min LintSeverity) error {
	picked := ws.BySeverity(min)
	if len(picked) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(picked))
	for _, w := range picked {
		msgs = append(msgs, w.Code+": "+w.Message)
	}
	return fmt.Errorf("config lint (%s): %s", min, strings.Join(msgs, "; "))
}

// Lint reports settings that pass Validate but weaken verification. It never
// fails; callers decide whether to log or refuse warnings.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if len(c.Secrets.Signing) > 0 && len(c.Secrets.Signing) < 32 {
		add("signing_secret_short", LintHigh, "Secrets Signing is %d bytes; use at least 32", len(c.Secrets.Signing))
	}
	if len(c.Secrets.Identity) > 0 && len(c.Secrets.Identity) < 32 {
		add("identity_secret_short", LintWarn, "Secrets Identity is %d bytes; use at least 32", len(c.Secrets.Identity))
	}
	if c.PII.Enabled && string(c.Secrets.PII) == string(c.Secrets.Signing) {
		add("pii_secret_shared", LintWarn, "Secrets PII equals Secrets Signing")
	}

	if c.Lockout.MaxFailures == 0 {
		add("lockout_zero_tolerance", LintInfo, "Lockout MaxFailures is 0; the first failure locks the account")
	}
	if c.Lockout.MaxFailures > 10 {
		add("lockout_lenient", LintWarn, "Lockout MaxFailures is %d; online guessing budget is large", c.Lockout.MaxFailures)
	}
	if c.Lockout.LockTime < 5*time.Minute {
		add("lock_time_short", LintWarn, "Lockout LockTime is %s", c.Lockout.LockTime)
	}

	if c.Request.Window > 15*time.Minute {
		add("request_window_long", LintWarn, "Request Window is %s; replay exposure grows with it", c.Request.Window)
	}
	if !c.Request.ReplayProtection {
		add("request_replay_unprotected", LintInfo, "signed requests may be replayed inside the window")
	}

	if c.Token.MaxAge > 24*time.Hour {
		add("token_max_age_long", LintWarn, "Token MaxAge is %s", c.Token.MaxAge)
	}
	if c.Token.Leeway > time.Minute {
		add("token_leeway_large", LintWarn, "Token Leeway is %s", c.Token.Leeway)
	}

	if c.OTP.ResyncWidth > 5 {
		add("otp_resync_wide", LintWarn, "OTP ResyncWidth is %d; each verification accepts that many codes", c.OTP.ResyncWidth)
	}

	if c.Codes.AccessCodeTTL > 7*24*time.Hour {
		add("access_code_ttl_long", LintWarn, "Codes AccessCodeTTL is %s", c.Codes.AccessCodeTTL)
	}

	if !c.Delivery.Enabled {
		add("delivery_disabled", LintInfo, "notifications are disabled; codes and links are never sent")
	} else if c.Delivery.MaxCodesPerWindow == 0 {
		add("delivery_unthrottled", LintHigh, "SendCode is not throttled")
	}

	if c.Password.Memory < 19*1024 {
		add("password_memory_low", LintWarn, "Password Memory is %d KB", c.Password.Memory)
	}

	if c.Session.TTL < 2*c.Lockout.LockTime {
		add("session_ttl_short", LintInfo, "Session TTL %s may expire lockout records soon after a lock", c.Session.TTL)
	}

	if c.Audit.Enabled && c.Audit.DropIfFull {
		add("audit_drops", LintInfo, "audit events are dropped when the buffer is full")
	}

	return ws
}
