package goVerify

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventVerifySuccess      = "verify_success"
	auditEventVerifyFailure      = "verify_failure"
	auditEventAccountLocked      = "account_locked"
	auditEventLockoutRejected    = "lockout_rejected"
	auditEventAccountUnlocked    = "account_unlocked"
	auditEventAccountCreated     = "account_created"
	auditEventAccountConfirmed   = "account_confirmed"
	auditEventPasswordReset      = "password_reset_request"
	auditEventPasswordChanged    = "password_changed"
	auditEventCodeSent           = "code_sent"
	auditEventCodeRateLimited    = "code_rate_limited"
	auditEventCodeVerified       = "code_verified"
	auditEventTOTPEnrolled       = "totp_enrolled"
	auditEventAccessCodeIssued   = "access_code_issued"
	auditEventAccessCodeRedeemed = "access_code_redeemed"
	auditEventRequestRejected    = "request_rejected"
	auditEventContactUpdated     = "contact_updated"
	auditEventStoreUnavailable   = "store_unavailable"
	auditEventChallengeExceeded  = "login_challenge_exceeded"
)

// AuditErrorCode is the error classification carried by an AuditEvent.
type AuditErrorCode string

const (
	auditErrAuthenticationFailed AuditErrorCode = "authentication_failed"
	auditErrExpired              AuditErrorCode = "expired"
	auditErrAccountLocked        AuditErrorCode = "account_locked"
	auditErrAccountNotFound      AuditErrorCode = "account_not_found"
	auditErrAccountPending       AuditErrorCode = "account_pending"
	auditErrDuplicate            AuditErrorCode = "duplicate"
	auditErrReplay               AuditErrorCode = "replay"
	auditErrRateLimited          AuditErrorCode = "rate_limited"
	auditErrOTPNotConfigured     AuditErrorCode = "otp_not_configured"
	auditErrValidation           AuditErrorCode = "invalid_input"
	auditErrUnavailable          AuditErrorCode = "backend_unavailable"
	auditErrInternal             AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrDeliveryUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrReplayDetected):
		return auditErrReplay
	case errors.Is(err, ErrExpired):
		return auditErrExpired
	case errors.Is(err, ErrAuthenticationFailed):
		return auditErrAuthenticationFailed
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrAccountPending):
		return auditErrAccountPending
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrDeliveryRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrOTPNotConfigured):
		return auditErrOTPNotConfigured
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrUnsupportedAction):
		return auditErrValidation
	default:
		return auditErrInternal
	}
}
