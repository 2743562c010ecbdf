package goVerify

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goVerify/signing"
)

// SignRequest fills in req.Signature under the shared signing secret.
func (e *Engine) SignRequest(req *signing.Request) string {
	return e.signer.SignRequest(req)
}

// VerifySignedRequest checks a signed request from accountID under the
// lockout guard. A stale timestamp fails with ErrExpired as the cause. A
// signature that is not 64 hex characters fails with ErrValidation and is not
// counted.
//
// With Request.ReplayProtection set, an accepted signature is remembered for
// twice the validity window and a second presentation fails with
// ErrReplayDetected as the cause.
func (e *Engine) VerifySignedRequest(ctx context.Context, accountID string, req signing.Request) error {
	if accountID == "" {
		return fmt.Errorf("%w: account id required", ErrValidation)
	}
	if err := signing.CheckFormat(req.Signature); err != nil {
		e.metricInc(MetricRequestRejected)
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	err := e.guard(ctx, accountID, false, func(ctx context.Context) error {
		if err := e.signer.Validate(req, e.now()); err != nil {
			if errors.Is(err, signing.ErrStale) {
				return authFailed(ErrExpired)
			}
			return authFailed(err)
		}
		if e.replay == nil {
			return nil
		}
		fresh, err := e.replay.Remember(ctx, accountID, req.Signature, 2*e.signer.Window())
		if err != nil {
			return e.storeError(ctx, accountID, "replay_cache", err)
		}
		if !fresh {
			e.metricInc(MetricReplayDetected)
			return authFailed(ErrReplayDetected)
		}
		return nil
	})
	if err != nil {
		e.metricInc(MetricRequestRejected)
		e.emitAudit(ctx, auditEventRequestRejected, false, accountID, err, func() map[string]string {
			return map[string]string{"method": req.Method, "path": req.Path}
		})
		return err
	}
	e.metricInc(MetricRequestAccepted)
	return nil
}
