package goVerify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/MrEthical07/goVerify/identity"
	"github.com/MrEthical07/goVerify/internal/rate"
	"github.com/MrEthical07/goVerify/internal/stores"
	"github.com/MrEthical07/goVerify/lockout"
	"github.com/MrEthical07/goVerify/notify"
	"github.com/MrEthical07/goVerify/otp"
	"github.com/MrEthical07/goVerify/password"
	"github.com/MrEthical07/goVerify/pii"
	"github.com/MrEthical07/goVerify/signing"
	"github.com/MrEthical07/goVerify/token"
	"github.com/google/uuid"
)

// Engine runs every credential check behind the per-account lockout state
// machine.
//
// Engine instances are configured by [Builder.Build] and then treated as
// immutable. All methods are safe for concurrent use.
type Engine struct {
	config Config
	logger *slog.Logger
	clock  func() time.Time

	accounts AccountStore
	lockouts LockoutStore
	policy   lockout.Policy

	signer *signing.Signer
	tokens *token.Manager
	otp    *otp.Generator
	hasher *password.Hasher
	cipher *pii.Cipher

	accessCodes     *stores.AccessCodeStore
	loginChallenges *stores.LoginChallengeStore
	replay          *stores.ReplayCache
	throttle        *rate.Limiter

	delivery *dispatcher[notify.Message]
	audit    *dispatcher[AuditEvent]
	metrics  *Metrics
}

// Close drains the delivery and audit queues.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.delivery.Close()
	e.audit.Close()
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// DeliveryDropped reports notifications dropped because the queue was full.
func (e *Engine) DeliveryDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.delivery.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AccountID derives the account identifier for an email address.
func (e *Engine) AccountID(email string) string {
	return identity.DeriveKeyed(e.config.Secrets.Identity, identity.Canonical(email))
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// maxAccountIDBytes matches the lockout record encoding.
const maxAccountIDBytes = 255

// guard runs check behind the lockout state machine: a locked account is
// rejected before check runs, and the outcome of check is reported to the
// lockout store exactly once. Only errors wrapping ErrAuthenticationFailed
// count as failures; any other error from check is returned uncounted.
//
// login records the caller's IP and agent as the last login on success.
func (e *Engine) guard(ctx context.Context, accountID string, login bool, check func(ctx context.Context) error) error {
	started := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricVerifyLatency, time.Since(started))
		}
	}()

	if len(accountID) > maxAccountIDBytes {
		return fmt.Errorf("%w: account id too long", ErrValidation)
	}

	now := e.now()
	rec, exists, err := e.lockouts.GetLockout(ctx, accountID)
	if err != nil {
		return e.storeError(ctx, accountID, "get_lockout", err)
	}

	decision := e.policy.Evaluate(rec, exists, now)
	switch decision.State {
	case lockout.Locked:
		if decision.Stamp {
			_, err := e.lockouts.UpdateLockout(ctx, accountID, func(cur lockout.Record, _ bool) (lockout.Record, error) {
				return e.policy.Stamp(cur, now), nil
			})
			if err != nil {
				return e.storeError(ctx, accountID, "stamp_lockout", err)
			}
		}
		e.metricInc(MetricLockoutRejected)
		e.emitAudit(ctx, auditEventLockoutRejected, false, accountID, ErrAccountLocked, func() map[string]string {
			return map[string]string{"retry_after_seconds": strconv.FormatInt(int64(decision.RetryAfter/time.Second), 10)}
		})
		return ErrAccountLocked
	case lockout.Probation:
		e.metricInc(MetricLockoutProbation)
	}

	checkErr := check(ctx)
	if checkErr == nil {
		if !login && (!exists || (rec.Failures == 0 && rec.LockedAt.IsZero())) {
			e.metricInc(MetricVerifySuccess)
			return nil
		}
		_, err := e.lockouts.UpdateLockout(ctx, accountID, func(cur lockout.Record, _ bool) (lockout.Record, error) {
			next := cur.LastLogin
			if login {
				next = lockout.Login{
					IP:    clientIPFromContext(ctx),
					Agent: userAgentFromContext(ctx),
					At:    now,
				}.Clip()
			}
			return e.policy.Succeed(cur, next), nil
		})
		if err != nil {
			return e.storeError(ctx, accountID, "record_success", err)
		}
		e.metricInc(MetricVerifySuccess)
		return nil
	}

	if !errors.Is(checkErr, ErrAuthenticationFailed) {
		return checkErr
	}

	updated, err := e.lockouts.UpdateLockout(ctx, accountID, func(cur lockout.Record, ok bool) (lockout.Record, error) {
		return e.policy.Fail(cur, ok, now), nil
	})
	if err != nil {
		return e.storeError(ctx, accountID, "record_failure", err)
	}
	e.metricInc(MetricVerifyFailure)

	if updated.Failures > e.policy.MaxFailures {
		e.metricInc(MetricAccountLocked)
		e.emitAudit(ctx, auditEventAccountLocked, false, accountID, ErrAccountLocked, func() map[string]string {
			return map[string]string{"failures": strconv.Itoa(updated.Failures)}
		})
		e.logger.LogAttrs(ctx, slog.LevelWarn, "account locked",
			slog.String("account_id", accountID),
			slog.Int("failures", updated.Failures),
		)
		return fmt.Errorf("%w: %w", ErrAccountLocked, checkErr)
	}
	return checkErr
}

// LockoutStatus describes the lockoutstatus operation and its observable behavior.
//
// LockoutStatus reads the record without stamping or modifying it.
func (e *Engine) LockoutStatus(ctx context.Context, accountID string) (LockoutStatus, error) {
	rec, exists, err := e.lockouts.GetLockout(ctx, accountID)
	if err != nil {
		return LockoutStatus{}, e.storeError(ctx, accountID, "get_lockout", err)
	}
	d := e.policy.Evaluate(rec, exists, e.now())
	return LockoutStatus{
		AccountID:  accountID,
		State:      d.State,
		Failures:   rec.Failures,
		LockedAt:   rec.LockedAt,
		RetryAfter: d.RetryAfter,
		LastLogin:  rec.LastLogin,
	}, nil
}

// Unlock clears the account's lockout record.
func (e *Engine) Unlock(ctx context.Context, accountID string) error {
	if err := e.lockouts.DeleteLockout(ctx, accountID); err != nil {
		return e.storeError(ctx, accountID, "delete_lockout", err)
	}
	e.metricInc(MetricAccountUnlocked)
	e.emitAudit(ctx, auditEventAccountUnlocked, true, accountID, nil, nil)
	return nil
}

func authFailed(cause error) error {
	if cause == nil {
		return ErrAuthenticationFailed
	}
	return fmt.Errorf("%w: %w", ErrAuthenticationFailed, cause)
}

func (e *Engine) storeError(ctx context.Context, accountID, op string, err error) error {
	e.metricInc(MetricStoreUnavailable)
	e.logger.LogAttrs(ctx, slog.LevelError, "record store unavailable",
		slog.String("op", op),
		slog.String("account_id", accountID),
		slog.String("error", err.Error()),
	)
	e.emitAudit(ctx, auditEventStoreUnavailable, false, accountID, ErrStoreUnavailable, func() map[string]string {
		return map[string]string{"op": op}
	})
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (e *Engine) loadAccount(ctx context.Context, id string) (Account, error) {
	acct, err := e.accounts.GetAccount(ctx, id)
	switch {
	case err == nil:
		return acct, nil
	case errors.Is(err, ErrAccountNotFound):
		return Account{}, ErrAccountNotFound
	default:
		return Account{}, e.storeError(ctx, id, "get_account", err)
	}
}

func (e *Engine) saveAccount(ctx context.Context, acct Account) error {
	acct.UpdatedAt = e.now().UTC()
	if err := e.accounts.PutAccount(ctx, acct); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return e.storeError(ctx, acct.ID, "put_account", err)
	}
	return nil
}

// send queues msg for background delivery.
func (e *Engine) send(ctx context.Context, msg notify.Message) {
	msg.ID = uuid.NewString()
	if e.delivery == nil {
		e.logger.LogAttrs(ctx, slog.LevelDebug, "notification delivery disabled",
			slog.String("message_id", msg.ID),
			slog.String("kind", msg.Kind),
		)
		return
	}
	e.delivery.Emit(ctx, msg)
}
