package goVerify

import "time"

// SecurityReport summarizes the effective security posture of an Engine.
type SecurityReport struct {
	MaxFailures          int
	LockTime             time.Duration
	RequestWindow        time.Duration
	ReplayProtection     bool
	TokenMaxAge          time.Duration
	AccessCodeTTL        time.Duration
	HOTPResyncWidth      int
	Argon2               PasswordConfigReport
	PIIEncryptionEnabled bool
	DeliveryEnabled      bool
	DeliveryThrottled    bool
	AuditEnabled         bool
	MetricsEnabled       bool
	LintWarnings         LintWarnings
}

// PasswordConfigReport carries the Argon2id cost parameters.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport returns the posture of e. It performs no I/O.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config
	return SecurityReport{
		MaxFailures:      cfg.Lockout.MaxFailures,
		LockTime:         cfg.Lockout.LockTime,
		RequestWindow:    e.signer.Window(),
		ReplayProtection: e.replay != nil,
		TokenMaxAge:      cfg.Token.MaxAge,
		AccessCodeTTL:    cfg.Codes.AccessCodeTTL,
		HOTPResyncWidth:  cfg.OTP.ResyncWidth,
		Argon2: PasswordConfigReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		PIIEncryptionEnabled: e.cipher != nil,
		DeliveryEnabled:      e.delivery != nil,
		DeliveryThrottled:    cfg.Delivery.MaxCodesPerWindow > 0,
		AuditEnabled:         e.audit != nil,
		MetricsEnabled:       cfg.Metrics.Enabled,
		LintWarnings:         cfg.Lint(),
	}
}
