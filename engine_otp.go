package goVerify

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goVerify/internal"
	"github.com/MrEthical07/goVerify/internal/rate"
	"github.com/MrEthical07/goVerify/internal/stores"
	"github.com/MrEthical07/goVerify/notify"
	"github.com/MrEthical07/goVerify/otp"
)

const maxCounterRetries = 5

// SendCode texts the account a fresh HOTP code. The counter is advanced and
// persisted before the code is sent, so each text carries a new code.
//
// An account with a phone but no OTP secret is given one first. Sends are
// throttled per account and return ErrDeliveryRateLimited once the window
// budget is spent.
func (e *Engine) SendCode(ctx context.Context, accountID string) error {
	acct, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	return e.issueCode(ctx, acct)
}

func (e *Engine) issueCode(ctx context.Context, acct Account) error {
	contact, err := e.accountContact(acct)
	if err != nil {
		return err
	}
	if contact.Phone == "" {
		return fmt.Errorf("%w: no phone on account", ErrOTPNotConfigured)
	}

	if err := e.throttle.Allow(ctx, string(notify.SMS), acct.ID); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricCodeDeliveryRateLimited)
			e.emitAudit(ctx, auditEventCodeRateLimited, false, acct.ID, ErrDeliveryRateLimited, nil)
			return ErrDeliveryRateLimited
		}
		return e.storeError(ctx, acct.ID, "delivery_throttle", err)
	}

	if !acct.HasOTP() {
		if acct, err = e.provisionHOTP(ctx, acct); err != nil {
			return err
		}
	}

	for attempt := 0; attempt < maxCounterRetries; attempt++ {
		next := acct.OTPCounter + 1
		advanced, err := e.accounts.AdvanceOTPCounter(ctx, acct.ID, acct.OTPCounter, next)
		if err != nil {
			return e.storeError(ctx, acct.ID, "advance_otp_counter", err)
		}
		if advanced {
			code, err := e.otp.HOTP(acct.OTPSecret, next)
			if err != nil {
				return fmt.Errorf("generate code: %w", err)
			}
			e.sendCodeText(ctx, contact.Phone, code)
			e.metricInc(MetricCodeSent)
			e.emitAudit(ctx, auditEventCodeSent, true, acct.ID, nil, nil)
			return nil
		}
		if acct, err = e.loadAccount(ctx, acct.ID); err != nil {
			return err
		}
	}
	return e.storeError(ctx, acct.ID, "advance_otp_counter", errors.New("counter contention"))
}

func (e *Engine) provisionHOTP(ctx context.Context, acct Account) (Account, error) {
	secret, err := otp.GenerateSecret()
	if err != nil {
		return acct, err
	}
	counter, err := otp.RandomCounter()
	if err != nil {
		return acct, err
	}
	if err := e.resetOTP(ctx, acct.ID, secret, counter); err != nil {
		return acct, err
	}
	acct.OTPSecret = secret
	acct.OTPCounter = counter
	return acct, nil
}

func (e *Engine) resetOTP(ctx context.Context, accountID, secret string, counter int64) error {
	if err := e.accounts.ResetOTP(ctx, accountID, secret, counter); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return e.storeError(ctx, accountID, "reset_otp", err)
	}
	return nil
}

// VerifyCode checks an HOTP code under the lockout guard. A match anywhere in
// the resynchronization window ratchets the stored counter past it, so a code
// is accepted at most once.
func (e *Engine) VerifyCode(ctx context.Context, accountID, code string) error {
	acct, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if !acct.HasOTP() {
		return ErrOTPNotConfigured
	}
	err = e.guard(ctx, accountID, false, func(ctx context.Context) error {
		return e.checkHOTP(ctx, acct, code)
	})
	if err != nil {
		return err
	}
	e.metricInc(MetricCodeVerified)
	e.emitAudit(ctx, auditEventCodeVerified, true, accountID, nil, nil)
	return nil
}

// checkHOTP verifies code against acct and persists matched+1 with a
// compare-and-set. Losing the race to a concurrent verification of the same
// code is a failure; losing it to a SendCode is retried from the new counter.
func (e *Engine) checkHOTP(ctx context.Context, acct Account, code string) error {
	if !acct.HasOTP() {
		return authFailed(ErrOTPNotConfigured)
	}
	for attempt := 0; attempt < maxCounterRetries; attempt++ {
		matched, ok := e.otp.VerifyHOTP(acct.OTPSecret, code, acct.OTPCounter)
		if !ok {
			e.metricInc(MetricCodeRejected)
			return authFailed(nil)
		}
		advanced, err := e.accounts.AdvanceOTPCounter(ctx, acct.ID, acct.OTPCounter, matched+1)
		if err != nil {
			return e.storeError(ctx, acct.ID, "advance_otp_counter", err)
		}
		if advanced {
			return nil
		}
		fresh, err := e.loadAccount(ctx, acct.ID)
		if err != nil {
			return err
		}
		if fresh.OTPSecret != acct.OTPSecret || fresh.OTPCounter > matched {
			e.metricInc(MetricCodeRejected)
			return authFailed(nil)
		}
		acct = fresh
	}
	return authFailed(nil)
}

// VerifyLoginCode completes the second step of a Login that reported
// CodeRequired: an HOTP code for SMS accounts, a TOTP code for authenticator
// accounts. The challenge is consumed on success and deleted after
// Codes.LoginMaxAttempts wrong codes. It returns the signed-in account id.
//
// A missing, expired or already used challenge returns ErrAuthenticationFailed
// wrapping ErrLoginChallenge and is not counted against any account.
func (e *Engine) VerifyLoginCode(ctx context.Context, challengeID, code string) (string, error) {
	if challengeID == "" {
		return "", fmt.Errorf("%w: login challenge required", ErrValidation)
	}
	rec, err := e.loginChallenges.Get(ctx, challengeID)
	if err != nil {
		return "", e.loginChallengeError(ctx, "", err)
	}
	accountID := rec.AccountID

	acct, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	if !acct.HasOTP() {
		return "", ErrOTPNotConfigured
	}

	var check func(ctx context.Context) error
	switch acct.Method {
	case AuthPasswordSMS:
		check = func(ctx context.Context) error { return e.checkHOTP(ctx, acct, code) }
	case AuthPasswordTOTP:
		check = func(context.Context) error { return e.checkTOTP(acct, code) }
	default:
		return "", fmt.Errorf("%w: account has no second factor", ErrValidation)
	}

	if err := e.guard(ctx, accountID, true, check); err != nil {
		if errors.Is(err, ErrAuthenticationFailed) {
			e.failLoginChallenge(ctx, challengeID, accountID)
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, accountID, err, func() map[string]string {
			return map[string]string{"step": "code"}
		})
		return "", err
	}

	deleted, err := e.loginChallenges.Delete(ctx, challengeID)
	if err != nil {
		return "", e.loginChallengeError(ctx, accountID, err)
	}
	if !deleted {
		return "", e.loginChallengeError(ctx, accountID, stores.ErrLoginChallengeNotFound)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, accountID, nil, func() map[string]string {
		return map[string]string{"step": "code"}
	})
	return accountID, nil
}

func (e *Engine) openLoginChallenge(ctx context.Context, accountID string) (string, error) {
	id, err := internal.NewChallengeID()
	if err != nil {
		return "", err
	}
	ttl := e.config.Codes.LoginChallengeTTL
	rec := &stores.LoginChallenge{
		AccountID: accountID,
		ExpiresAt: e.now().Add(ttl).Unix(),
	}
	if err := e.loginChallenges.Save(ctx, id, rec, ttl); err != nil {
		return "", e.storeError(ctx, accountID, "save_login_challenge", err)
	}
	return id, nil
}

// failLoginChallenge counts a wrong code against the challenge. The lockout
// guard has already counted it against the account, so store errors here are
// only logged.
func (e *Engine) failLoginChallenge(ctx context.Context, challengeID, accountID string) {
	exceeded, err := e.loginChallenges.RecordFailure(ctx, challengeID, e.config.Codes.LoginMaxAttempts)
	switch {
	case err != nil && errors.Is(err, stores.ErrLoginChallengeBackend):
		e.logger.WarnContext(ctx, "login challenge failure not recorded",
			"account_id", accountID,
			"error", err.Error(),
		)
	case exceeded:
		e.emitAudit(ctx, auditEventChallengeExceeded, false, accountID, ErrLoginChallenge, nil)
	}
}

func (e *Engine) loginChallengeError(ctx context.Context, accountID string, err error) error {
	if errors.Is(err, stores.ErrLoginChallengeBackend) {
		return e.storeError(ctx, accountID, "login_challenge", err)
	}
	e.metricInc(MetricLoginFailure)
	failed := authFailed(ErrLoginChallenge)
	e.emitAudit(ctx, auditEventLoginFailure, false, accountID, failed, func() map[string]string {
		return map[string]string{"step": "challenge"}
	})
	return failed
}

// EnrollTOTP gives the account a new authenticator secret and returns its
// provisioning URI and QR code. The account switches to TOTP sign-in on the
// first successful VerifyTOTP.
func (e *Engine) EnrollTOTP(ctx context.Context, accountID string) (TOTPEnrollment, error) {
	acct, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return TOTPEnrollment{}, err
	}
	if acct.Method == AuthPasswordSMS {
		return TOTPEnrollment{}, fmt.Errorf("%w: sms account cannot enroll an authenticator", ErrValidation)
	}

	secret, err := otp.GenerateSecret()
	if err != nil {
		return TOTPEnrollment{}, err
	}
	if err := e.resetOTP(ctx, acct.ID, secret, 0); err != nil {
		return TOTPEnrollment{}, err
	}

	uri := e.otp.TOTPURI(secret, acct.Email)
	qr, err := otp.QRCode(uri, e.config.OTP.QRSize)
	if err != nil {
		return TOTPEnrollment{}, err
	}
	e.emitAudit(ctx, auditEventTOTPEnrolled, true, accountID, nil, nil)
	return TOTPEnrollment{Secret: secret, URI: uri, QRCode: qr}, nil
}

// VerifyTOTP checks a TOTP code for the current time step only, under the
// lockout guard.
func (e *Engine) VerifyTOTP(ctx context.Context, accountID, code string) error {
	acct, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if !acct.HasOTP() || acct.Method == AuthPasswordSMS {
		return ErrOTPNotConfigured
	}
	err = e.guard(ctx, accountID, false, func(context.Context) error {
		return e.checkTOTP(acct, code)
	})
	if err != nil {
		e.metricInc(MetricTOTPFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, accountID, err, func() map[string]string {
			return map[string]string{"factor": "totp"}
		})
		return err
	}
	e.metricInc(MetricTOTPSuccess)
	e.emitAudit(ctx, auditEventVerifySuccess, true, accountID, nil, func() map[string]string {
		return map[string]string{"factor": "totp"}
	})

	if acct.Method != AuthPasswordTOTP {
		acct.Method = AuthPasswordTOTP
		if err := e.saveAccount(ctx, acct); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) checkTOTP(acct Account, code string) error {
	if !e.otp.VerifyTOTP(acct.OTPSecret, code, e.now()) {
		return authFailed(nil)
	}
	return nil
}

// HOTPProvisioning returns the otpauth URI and QR code for the account's
// counter-based secret at its current counter.
func (e *Engine) HOTPProvisioning(ctx context.Context, accountID string) (HOTPSetup, error) {
	acct, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return HOTPSetup{}, err
	}
	if !acct.HasOTP() || acct.Method == AuthPasswordTOTP {
		return HOTPSetup{}, ErrOTPNotConfigured
	}
	uri := e.otp.HOTPURI(acct.OTPSecret, acct.Email, acct.OTPCounter)
	qr, err := otp.QRCode(uri, e.config.OTP.QRSize)
	if err != nil {
		return HOTPSetup{}, err
	}
	return HOTPSetup{URI: uri, QRCode: qr}, nil
}
