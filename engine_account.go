package goVerify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goVerify/identity"
	"github.com/MrEthical07/goVerify/internal"
	"github.com/MrEthical07/goVerify/otp"
	"github.com/MrEthical07/goVerify/password"
	"github.com/MrEthical07/goVerify/pii"
	"github.com/MrEthical07/goVerify/token"
)

// Invite creates a pending account with a generated temporary password and
// mails the user a timed invite link. SMS accounts are also texted a code.
func (e *Engine) Invite(ctx context.Context, in InviteInput) (CreateResult, error) {
	temp, err := internal.NewTempPassword()
	if err != nil {
		return CreateResult{}, err
	}
	acct, err := e.createAccount(ctx, in.Email, in.Name, in.Phone, in.Method, temp)
	if err != nil {
		return CreateResult{}, err
	}

	tok, err := e.tokens.IssueTimed(acct.Email, string(ActionInvite))
	if err != nil {
		return CreateResult{}, err
	}
	e.sendInvite(ctx, acct, temp, tok)
	e.sendInitialCode(ctx, acct)

	return CreateResult{AccountID: acct.ID, Token: tok}, nil
}

// Register creates a pending account with the user's own password and mails
// a timed confirmation link. SMS accounts are also texted a code.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (CreateResult, error) {
	if err := e.checkPasswordInput(in.Password); err != nil {
		return CreateResult{}, err
	}
	acct, err := e.createAccount(ctx, in.Email, in.Name, in.Phone, in.Method, in.Password)
	if err != nil {
		return CreateResult{}, err
	}

	tok, err := e.tokens.IssueTimed(acct.Email, string(ActionRegister))
	if err != nil {
		return CreateResult{}, err
	}
	e.sendRegistration(ctx, acct, tok)
	e.sendInitialCode(ctx, acct)

	return CreateResult{AccountID: acct.ID, Token: tok}, nil
}

func (e *Engine) createAccount(ctx context.Context, email, name, phone string, method AuthMethod, secret string) (Account, error) {
	email = identity.Canonical(email)
	if !validEmail(email) {
		return Account{}, fmt.Errorf("%w: email", ErrValidation)
	}
	if method == "" {
		method = AuthPassword
		if phone != "" {
			method = AuthPasswordSMS
		}
	}
	if !method.Valid() {
		return Account{}, fmt.Errorf("%w: authentication method %q", ErrValidation, method)
	}
	if method == AuthPasswordSMS && phone == "" {
		return Account{}, fmt.Errorf("%w: sms authentication requires a phone", ErrValidation)
	}

	hash, err := e.hasher.HashPreset(email, secret)
	if err != nil {
		return Account{}, e.passwordError(err)
	}

	now := e.now().UTC()
	acct := Account{
		ID:           e.AccountID(email),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Status:       AccountPending,
		Method:       method,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if phone != "" {
		if acct.Contact, err = e.sealContact(pii.Contact{Phone: phone}); err != nil {
			return Account{}, err
		}
		if acct.OTPSecret, err = otp.GenerateSecret(); err != nil {
			return Account{}, err
		}
		if acct.OTPCounter, err = otp.RandomCounter(); err != nil {
			return Account{}, err
		}
	}

	if err := e.accounts.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricAccountDuplicate)
			e.emitAudit(ctx, auditEventAccountCreated, false, acct.ID, ErrAccountExists, nil)
			return Account{}, ErrAccountExists
		}
		return Account{}, e.storeError(ctx, acct.ID, "create_account", err)
	}

	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, auditEventAccountCreated, true, acct.ID, nil, func() map[string]string {
		return map[string]string{"method": string(method)}
	})
	return acct, nil
}

// sendInitialCode texts the first code to a new SMS account. Failures are
// logged; the user can ask for another code.
func (e *Engine) sendInitialCode(ctx context.Context, acct Account) {
	if acct.Method != AuthPasswordSMS {
		return
	}
	if err := e.issueCode(ctx, acct); err != nil {
		e.logger.WarnContext(ctx, "initial code not sent",
			"account_id", acct.ID,
			"error", err.Error(),
		)
	}
}

// RequestPasswordReset stores the hash of a new temporary password beside
// the current one and mails both the temporary password and a timed reset
// link. The current password keeps working until the reset is confirmed.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = identity.Canonical(email)
	acct, err := e.loadAccount(ctx, e.AccountID(email))
	if err != nil {
		return "", err
	}

	temp, err := internal.NewTempPassword()
	if err != nil {
		return "", err
	}
	if acct.ResetHash, err = e.hasher.HashPreset(acct.Email, temp); err != nil {
		return "", e.passwordError(err)
	}
	if err := e.saveAccount(ctx, acct); err != nil {
		return "", err
	}

	tok, err := e.tokens.IssueTimed(acct.Email, string(ActionReset))
	if err != nil {
		return "", err
	}
	e.sendReset(ctx, acct, temp, tok)
	e.sendInitialCode(ctx, acct)

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordReset, true, acct.ID, nil, nil)
	return tok, nil
}

// ConfirmCredentials completes an invite, registration or reset. Under the
// lockout guard it checks, in order, the timed token for the action and
// email, the SMS code for SMS accounts, then the password being proven. Any
// of the three failing counts as one failure.
func (e *Engine) ConfirmCredentials(ctx context.Context, in ConfirmInput) error {
	switch in.Action {
	case ActionInvite, ActionRegister, ActionReset:
	default:
		return ErrUnsupportedAction
	}
	if in.NewPassword != "" || in.Action != ActionRegister {
		if err := e.checkPasswordInput(in.NewPassword); err != nil {
			return err
		}
	}

	email := identity.Canonical(in.Email)
	accountID := e.AccountID(email)
	acct, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if in.Action == ActionReset && acct.ResetHash == "" {
		return fmt.Errorf("%w: no pending password reset", ErrValidation)
	}

	err = e.guard(ctx, accountID, true, func(ctx context.Context) error {
		value, err := e.tokens.ValidateTimed(in.Token, string(in.Action), e.config.Token.MaxAge, e.now())
		if err != nil {
			e.metricInc(MetricTokenRejected)
			if errors.Is(err, token.ErrExpired) {
				return authFailed(ErrExpired)
			}
			return authFailed(nil)
		}
		if value != email {
			e.metricInc(MetricTokenRejected)
			return authFailed(nil)
		}

		if acct.Method == AuthPasswordSMS {
			if err := e.checkHOTP(ctx, acct, in.Code); err != nil {
				return err
			}
		}

		proven := acct.PasswordHash
		if in.Action == ActionReset {
			proven = acct.ResetHash
		}
		if err := e.checkPassword(acct.Email, in.Password, proven); err != nil {
			return err
		}

		fresh, err := e.loadAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if in.NewPassword != "" {
			if fresh.PasswordHash, err = e.hasher.HashPreset(fresh.Email, in.NewPassword); err != nil {
				return e.passwordError(err)
			}
		}
		switch in.Action {
		case ActionReset:
			fresh.ResetHash = ""
		case ActionInvite:
			if name := strings.TrimSpace(in.Name); name != "" {
				fresh.Name = name
			}
			fresh.Status = AccountActive
		case ActionRegister:
			fresh.Status = AccountActive
		}
		return e.saveAccount(ctx, fresh)
	})
	if err != nil {
		e.emitAudit(ctx, auditEventVerifyFailure, false, accountID, err, func() map[string]string {
			return map[string]string{"action": string(in.Action)}
		})
		return err
	}

	e.metricInc(MetricAccountConfirmed)
	e.emitAudit(ctx, auditEventAccountConfirmed, true, accountID, nil, func() map[string]string {
		return map[string]string{"action": string(in.Action)}
	})
	return nil
}

// Login checks an email and password under the lockout guard. Accounts with
// a second factor get CodeRequired and a ChallengeID that VerifyLoginCode
// consumes; SMS accounts are also texted a code.
//
// An unknown email is reported as ErrAuthenticationFailed wrapping
// ErrAccountNotFound and is not counted against any account.
func (e *Engine) Login(ctx context.Context, email, pw string) (LoginResult, error) {
	email = identity.Canonical(email)
	accountID := e.AccountID(email)
	acct, err := e.loadAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricLoginFailure)
			err = authFailed(ErrAccountNotFound)
			e.emitAudit(ctx, auditEventLoginFailure, false, accountID, err, nil)
		}
		return LoginResult{}, err
	}

	err = e.guard(ctx, accountID, true, func(context.Context) error {
		if err := e.checkPassword(acct.Email, pw, acct.PasswordHash); err != nil {
			return err
		}
		if acct.Status != AccountActive {
			return ErrAccountPending
		}
		return nil
	})
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, accountID, err, func() map[string]string {
			return map[string]string{"step": "password"}
		})
		return LoginResult{}, err
	}

	result := LoginResult{AccountID: accountID, Method: acct.Method}
	switch acct.Method {
	case AuthPasswordSMS, AuthPasswordTOTP:
		result.CodeRequired = true
		if result.ChallengeID, err = e.openLoginChallenge(ctx, accountID); err != nil {
			return LoginResult{}, err
		}
		if acct.Method == AuthPasswordSMS {
			if err := e.issueCode(ctx, acct); err != nil {
				return result, err
			}
		}
	default:
		e.metricInc(MetricLoginSuccess)
	}
	e.emitAudit(ctx, auditEventLoginSuccess, true, accountID, nil, func() map[string]string {
		return map[string]string{"step": "password"}
	})
	return result, nil
}

// ChangePassword replaces the password after proving the old one under the
// lockout guard.
func (e *Engine) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if err := e.checkPasswordInput(newPassword); err != nil {
		return err
	}
	acct, err := e.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}

	err = e.guard(ctx, accountID, false, func(ctx context.Context) error {
		if err := e.checkPassword(acct.Email, oldPassword, acct.PasswordHash); err != nil {
			return err
		}
		fresh, err := e.loadAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if fresh.PasswordHash, err = e.hasher.HashPreset(fresh.Email, newPassword); err != nil {
			return e.passwordError(err)
		}
		fresh.ResetHash = ""
		return e.saveAccount(ctx, fresh)
	})
	if err != nil {
		return err
	}

	e.metricInc(MetricPasswordChanged)
	e.emitAudit(ctx, auditEventPasswordChanged, true, accountID, nil, nil)
	return nil
}

// checkPassword compares pw, bound to email, against an Argon2id hash.
func (e *Engine) checkPassword(email, pw, encoded string) error {
	if encoded == "" {
		return authFailed(nil)
	}
	ok, err := e.hasher.VerifyPreset(email, pw, encoded)
	if err != nil {
		if errors.Is(err, password.ErrInputLength) {
			return authFailed(nil)
		}
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return authFailed(nil)
	}
	return nil
}

func (e *Engine) checkPasswordInput(pw string) error {
	if pw == "" {
		return fmt.Errorf("%w: password required", ErrValidation)
	}
	if max := e.config.Password.MaxInputBytes; max > 0 && len(pw) > max {
		return fmt.Errorf("%w: password too long", ErrValidation)
	}
	return nil
}

func (e *Engine) passwordError(err error) error {
	if errors.Is(err, password.ErrInputLength) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return err
}

func validEmail(email string) bool {
	at := strings.LastIndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}
