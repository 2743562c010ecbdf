package goVerify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goVerify/lockout"
	"github.com/MrEthical07/goVerify/notify"
)

func TestInviteConfirmLoginWithSMSCode(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := te.Invite(ctx, InviteInput{
		Email: "Alice@Example.com",
		Name:  "Alice",
		Phone: "+15550100",
	})
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if res.AccountID != te.AccountID("alice@example.com") {
		t.Fatalf("unexpected account id %q", res.AccountID)
	}

	acct := te.accounts.get(t, res.AccountID)
	if acct.Status != AccountPending || acct.Method != AuthPasswordSMS {
		t.Fatalf("unexpected account %+v", acct)
	}
	if !acct.HasOTP() || len(acct.Contact) == 0 {
		t.Fatal("expected otp secret and sealed contact")
	}
	if strings.Contains(string(acct.Contact), "+15550100") {
		t.Fatal("phone stored in clear")
	}

	invite := te.waitMessage(t, notify.Email, "alice@example.com", 0)
	temp := tempPassword(t, invite)
	if len(temp) != 12 {
		t.Fatalf("expected 12-char temporary password, got %q", temp)
	}
	code := smsCode(t, te.waitMessage(t, notify.SMS, "+15550100", 0))

	err = te.ConfirmCredentials(ctx, ConfirmInput{
		Action:      ActionInvite,
		Email:       "alice@example.com",
		Token:       res.Token,
		Code:        code,
		Password:    temp,
		NewPassword: "correct-horse-battery",
		Name:        "Alice A.",
	})
	if err != nil {
		t.Fatalf("ConfirmCredentials failed: %v", err)
	}

	acct = te.accounts.get(t, res.AccountID)
	if acct.Status != AccountActive || acct.Name != "Alice A." {
		t.Fatalf("unexpected confirmed account %+v", acct)
	}

	login, err := te.Login(ctx, "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !login.CodeRequired || login.Method != AuthPasswordSMS {
		t.Fatalf("unexpected login result %+v", login)
	}
	loginCode := smsCode(t, te.waitMessage(t, notify.SMS, "+15550100", 1))
	signedIn, err := te.VerifyLoginCode(ctx, login.ChallengeID, loginCode)
	if err != nil {
		t.Fatalf("VerifyLoginCode failed: %v", err)
	}
	if signedIn != res.AccountID {
		t.Fatalf("expected account %s, got %s", res.AccountID, signedIn)
	}

	snap := te.MetricsSnapshot()
	if snap.Counters[MetricAccountCreated] != 1 || snap.Counters[MetricAccountConfirmed] != 1 {
		t.Fatalf("unexpected counters %+v", snap.Counters)
	}
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("expected one completed login, got %d", snap.Counters[MetricLoginSuccess])
	}
}

func TestInviteTempPasswordCannotBeReused(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := te.Invite(ctx, InviteInput{Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	temp := tempPassword(t, te.waitMessage(t, notify.Email, "bob@example.com", 0))

	in := ConfirmInput{
		Action:      ActionInvite,
		Email:       "bob@example.com",
		Token:       res.Token,
		Password:    temp,
		NewPassword: "bob-new-password",
	}
	if err := te.ConfirmCredentials(ctx, in); err != nil {
		t.Fatalf("ConfirmCredentials failed: %v", err)
	}
	if err := te.ConfirmCredentials(ctx, in); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected reused temporary password to fail, got %v", err)
	}
	if _, err := te.Login(ctx, "bob@example.com", temp); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected temporary password login to fail, got %v", err)
	}
}

func TestRegisterConfirmLogin(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := te.Register(ctx, RegisterInput{
		Email:    "carol@example.com",
		Name:     "Carol",
		Password: "carol-password-1",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	msg := te.waitMessage(t, notify.Email, "carol@example.com", 0)
	if !strings.Contains(msg.Body, res.Token) {
		t.Fatal("expected confirmation link to carry the token")
	}

	if _, err := te.Login(ctx, "carol@example.com", "carol-password-1"); !errors.Is(err, ErrAccountPending) {
		t.Fatalf("expected ErrAccountPending before confirmation, got %v", err)
	}

	err = te.ConfirmCredentials(ctx, ConfirmInput{
		Action:   ActionRegister,
		Email:    "carol@example.com",
		Token:    res.Token,
		Password: "carol-password-1",
	})
	if err != nil {
		t.Fatalf("ConfirmCredentials failed: %v", err)
	}

	login, err := te.Login(ctx, "carol@example.com", "carol-password-1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if login.CodeRequired {
		t.Fatal("password account must not require a code")
	}
}

func TestCreateAccountValidation(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   InviteInput
		want error
	}{
		{name: "missing at", in: InviteInput{Email: "nobody"}, want: ErrValidation},
		{name: "sms without phone", in: InviteInput{Email: "d@example.com", Method: AuthPasswordSMS}, want: ErrValidation},
		{name: "unknown method", in: InviteInput{Email: "d@example.com", Method: "password:email"}, want: ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := te.Invite(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := te.Register(ctx, RegisterInput{Email: "d@example.com"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty password, got %v", err)
	}
}

func TestInviteDuplicateRejected(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := te.Invite(ctx, InviteInput{Email: "erin@example.com"}); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	_, err := te.Register(ctx, RegisterInput{Email: "ERIN@example.com", Password: "whatever-1"})
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if got := te.MetricsSnapshot().Counters[MetricAccountDuplicate]; got != 1 {
		t.Fatalf("expected duplicate metric 1, got %d", got)
	}
}

func TestInvitePhoneRequiresPII(t *testing.T) {
	te := newTestEngine(t, func(c *Config) {
		c.PII.Enabled = false
	})
	_, err := te.Invite(context.Background(), InviteInput{Email: "f@example.com", Phone: "+15550101"})
	if !errors.Is(err, ErrPIIDisabled) {
		t.Fatalf("expected ErrPIIDisabled, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	acct := te.seedAccount(t, "gina@example.com", "old-password-1")

	tok, err := te.RequestPasswordReset(ctx, "Gina@Example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	temp := tempPassword(t, te.waitMessage(t, notify.Email, "gina@example.com", 0))

	// The current password keeps working until the reset is confirmed.
	if _, err := te.Login(ctx, "gina@example.com", "old-password-1"); err != nil {
		t.Fatalf("Login with old password failed: %v", err)
	}

	err = te.ConfirmCredentials(ctx, ConfirmInput{
		Action:      ActionReset,
		Email:       "gina@example.com",
		Token:       tok,
		Password:    temp,
		NewPassword: "new-password-2",
	})
	if err != nil {
		t.Fatalf("ConfirmCredentials failed: %v", err)
	}

	if got := te.accounts.get(t, acct.ID); got.ResetHash != "" {
		t.Fatal("expected reset hash cleared")
	}
	if _, err := te.Login(ctx, "gina@example.com", "old-password-1"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, err := te.Login(ctx, "gina@example.com", "new-password-2"); err != nil {
		t.Fatalf("Login with new password failed: %v", err)
	}
}

func TestPasswordResetRequiresPendingReset(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	te.seedAccount(t, "hank@example.com", "hank-password")

	tok, err := te.IssueTimedActionToken("hank@example.com", ActionReset)
	if err != nil {
		t.Fatalf("IssueTimedActionToken failed: %v", err)
	}
	err = te.ConfirmCredentials(ctx, ConfirmInput{
		Action:      ActionReset,
		Email:       "hank@example.com",
		Token:       tok,
		Password:    "hank-password",
		NewPassword: "hank-password-2",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	if _, err := te.RequestPasswordReset(ctx, "nobody@example.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestConfirmRejectsWrongActionAndExpiredToken(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := te.Register(ctx, RegisterInput{Email: "ivy@example.com", Password: "ivy-password"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// A register token presented as an invite.
	err = te.ConfirmCredentials(ctx, ConfirmInput{
		Action:      ActionInvite,
		Email:       "ivy@example.com",
		Token:       res.Token,
		Password:    "ivy-password",
		NewPassword: "ivy-password-2",
	})
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}

	te.clock.Advance(2 * time.Hour)
	err = te.ConfirmCredentials(ctx, ConfirmInput{
		Action:   ActionRegister,
		Email:    "ivy@example.com",
		Token:    res.Token,
		Password: "ivy-password",
	})
	if !errors.Is(err, ErrExpired) || !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected expired token failure, got %v", err)
	}

	if err := te.ConfirmCredentials(ctx, ConfirmInput{Action: ActionLogin}); !errors.Is(err, ErrUnsupportedAction) {
		t.Fatalf("expected ErrUnsupportedAction, got %v", err)
	}
}

func TestConfirmFailuresLockAccount(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := te.Register(ctx, RegisterInput{Email: "jay@example.com", Password: "jay-password"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	bad := ConfirmInput{
		Action:   ActionRegister,
		Email:    "jay@example.com",
		Token:    res.Token,
		Password: "not-jay-password",
	}
	for i := 0; i < 3; i++ {
		if err := te.ConfirmCredentials(ctx, bad); errors.Is(err, ErrAccountLocked) {
			t.Fatalf("attempt %d locked early", i+1)
		}
	}
	if err := te.ConfirmCredentials(ctx, bad); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected lock on fourth failure, got %v", err)
	}

	good := bad
	good.Password = "jay-password"
	if err := te.ConfirmCredentials(ctx, good); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected correct credentials rejected while locked, got %v", err)
	}
}

func TestLoginUnknownEmailNotCounted(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := te.Login(ctx, "ghost@example.com", "whatever")
	if !errors.Is(err, ErrAuthenticationFailed) || !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected not-found authentication failure, got %v", err)
	}
	status, err := te.LockoutStatus(ctx, te.AccountID("ghost@example.com"))
	if err != nil {
		t.Fatalf("LockoutStatus failed: %v", err)
	}
	if status.Failures != 0 {
		t.Fatalf("unknown email must not be counted, failures=%d", status.Failures)
	}
}

func TestLoginLockout(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	te.seedAccount(t, "kim@example.com", "kim-password")

	for i := 0; i < 4; i++ {
		_, _ = te.Login(ctx, "kim@example.com", "wrong")
	}
	if _, err := te.Login(ctx, "kim@example.com", "kim-password"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	te.clock.Advance(31 * time.Minute)
	if _, err := te.Login(ctx, "kim@example.com", "kim-password"); err != nil {
		t.Fatalf("Login after lock time failed: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	acct := te.seedAccount(t, "lee@example.com", "lee-password")

	if err := te.ChangePassword(ctx, acct.ID, "wrong", "lee-password-2"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
	if err := te.ChangePassword(ctx, acct.ID, "lee-password", "lee-password-2"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := te.Login(ctx, "lee@example.com", "lee-password-2"); err != nil {
		t.Fatalf("Login with changed password failed: %v", err)
	}
	if got := te.MetricsSnapshot().Counters[MetricPasswordChanged]; got != 1 {
		t.Fatalf("expected password changed metric 1, got %d", got)
	}
}

func TestLoginLongUserAgent(t *testing.T) {
	te := newTestEngine(t, nil)
	acct := te.seedAccount(t, "ua@example.com", "ua-password-1")
	ctx := context.Background()

	if _, err := te.Login(ctx, "ua@example.com", "wrong-password"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected failure, got %v", err)
	}

	agent := strings.Repeat("x", 300)
	ctx = WithUserAgent(WithClientIP(ctx, "203.0.113.7"), agent)
	if _, err := te.Login(ctx, "ua@example.com", "ua-password-1"); err != nil {
		t.Fatalf("Login with long user agent failed: %v", err)
	}

	status, err := te.LockoutStatus(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("LockoutStatus failed: %v", err)
	}
	if status.Failures != 0 {
		t.Fatalf("expected failures cleared, got %d", status.Failures)
	}
	if status.LastLogin.Agent != agent[:lockout.MaxLoginField] || status.LastLogin.IP != "203.0.113.7" {
		t.Fatalf("unexpected last login %q / %q", status.LastLogin.IP, status.LastLogin.Agent)
	}
}

func TestGuardRejectsOversizedAccountID(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	id := strings.Repeat("a", 256)

	err := te.guard(ctx, id, false, failingCheck)
	if !errors.Is(err, ErrValidation) || errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if te.redis.Exists("vl:" + id) {
		t.Fatal("oversized id must not reach the store")
	}
}
