package goVerify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goVerify/code"
	"github.com/MrEthical07/goVerify/internal/stores"
)

// IssueAccessCode returns a single-use bearer code that lets the holder act
// for accountID on action until ttl elapses. A zero ttl selects
// Codes.AccessCodeTTL.
//
// Only the code's lookup id is stored; the code itself is returned once.
func (e *Engine) IssueAccessCode(ctx context.Context, accountID string, action Action, ttl time.Duration) (AccessCode, error) {
	if accountID == "" {
		return AccessCode{}, fmt.Errorf("%w: account id required", ErrValidation)
	}
	if action == "" {
		return AccessCode{}, fmt.Errorf("%w: action required", ErrValidation)
	}
	if ttl <= 0 {
		ttl = e.config.Codes.AccessCodeTTL
	}

	c, err := code.NewAccessCode(e.config.Secrets.Signing)
	if err != nil {
		return AccessCode{}, err
	}
	lookupID, err := code.LookupID(c)
	if err != nil {
		return AccessCode{}, err
	}

	now := e.now()
	expires := now.Add(ttl)
	err = e.accessCodes.Save(ctx, lookupID, &stores.AccessCodeRecord{
		AccountID: accountID,
		Action:    string(action),
		IssuedAt:  now.Unix(),
		ExpiresAt: expires.Unix(),
	}, ttl)
	if err != nil {
		return AccessCode{}, e.storeError(ctx, accountID, "save_access_code", err)
	}

	e.metricInc(MetricAccessCodeIssued)
	e.emitAudit(ctx, auditEventAccessCodeIssued, true, accountID, nil, func() map[string]string {
		return map[string]string{"action": string(action)}
	})
	return AccessCode{Code: c, LookupID: lookupID, ExpiresAt: expires}, nil
}

// RedeemAccessCode consumes an access code issued for action and returns the
// account it was issued for. The redemption runs under the owner's lockout
// guard: a locked owner leaves the code in place, and a bad code for a known
// owner counts as a failure.
//
// A code presented for the wrong action is burned. A string that is not shaped
// like an access code fails with ErrValidation.
func (e *Engine) RedeemAccessCode(ctx context.Context, c string, action Action) (string, error) {
	if err := code.CheckFormat(c); err != nil {
		e.metricInc(MetricAccessCodeRejected)
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if !code.Validate(e.config.Secrets.Signing, c) {
		e.metricInc(MetricAccessCodeRejected)
		return "", ErrAuthenticationFailed
	}
	lookupID, err := code.LookupID(c)
	if err != nil {
		e.metricInc(MetricAccessCodeRejected)
		return "", ErrAuthenticationFailed
	}

	peeked, err := e.accessCodes.Peek(ctx, lookupID)
	if err != nil {
		if errors.Is(err, stores.ErrAccessCodeNotFound) {
			e.metricInc(MetricAccessCodeRejected)
			return "", ErrAuthenticationFailed
		}
		return "", e.storeError(ctx, "", "peek_access_code", err)
	}
	accountID := peeked.AccountID

	err = e.guard(ctx, accountID, false, func(ctx context.Context) error {
		_, err := e.accessCodes.Consume(ctx, lookupID, string(action))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, stores.ErrAccessCodeNotFound):
			return authFailed(nil)
		case errors.Is(err, stores.ErrAccessCodeActionMismatch):
			return authFailed(ErrUnsupportedAction)
		default:
			return e.storeError(ctx, accountID, "consume_access_code", err)
		}
	})
	if err != nil {
		if errors.Is(err, ErrAuthenticationFailed) {
			e.metricInc(MetricAccessCodeRejected)
		}
		e.emitAudit(ctx, auditEventAccessCodeRedeemed, false, accountID, err, func() map[string]string {
			return map[string]string{"action": string(action)}
		})
		return "", err
	}

	e.metricInc(MetricAccessCodeRedeemed)
	e.emitAudit(ctx, auditEventAccessCodeRedeemed, true, accountID, nil, func() map[string]string {
		return map[string]string{"action": string(action)}
	})
	return accountID, nil
}

// IssueAddressCode returns a short code binding accountID to a device, for
// confirming a new address or device out of band. Nothing is stored.
func (e *Engine) IssueAddressCode(accountID, device string) (string, error) {
	if accountID == "" || device == "" {
		return "", fmt.Errorf("%w: account id and device required", ErrValidation)
	}
	return code.NewAddressCode(e.config.Secrets.Signing, addressIdentifier(accountID, device))
}

// VerifyAddressCode checks an address code under the lockout guard. A
// malformed code fails with ErrValidation before the guard runs.
func (e *Engine) VerifyAddressCode(ctx context.Context, accountID, device, c string) error {
	if accountID == "" || device == "" {
		return fmt.Errorf("%w: account id and device required", ErrValidation)
	}
	if err := code.CheckAddressFormat(c); err != nil {
		e.metricInc(MetricAddressCodeRejected)
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	err := e.guard(ctx, accountID, false, func(context.Context) error {
		if !code.ValidateAddress(e.config.Secrets.Signing, c, addressIdentifier(accountID, device)) {
			return authFailed(nil)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAuthenticationFailed) {
			e.metricInc(MetricAddressCodeRejected)
		}
		e.emitAudit(ctx, auditEventVerifyFailure, false, accountID, err, func() map[string]string {
			return map[string]string{"factor": "address_code"}
		})
		return err
	}
	e.metricInc(MetricAddressCodeVerified)
	e.emitAudit(ctx, auditEventVerifySuccess, true, accountID, nil, func() map[string]string {
		return map[string]string{"factor": "address_code"}
	})
	return nil
}

func addressIdentifier(accountID, device string) string {
	return accountID + ":" + device
}
