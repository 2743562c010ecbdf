package goVerify

import (
	"context"
	"time"

	"github.com/MrEthical07/goVerify/lockout"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	// AccountPending is an exported constant or variable used by the verification engine.
	AccountPending AccountStatus = "pending"
	// AccountActive is an exported constant or variable used by the verification engine.
	AccountActive AccountStatus = "active"
)

// AuthMethod names the credentials an account signs in with.
type AuthMethod string

const (
	// AuthPassword is an exported constant or variable used by the verification engine.
	AuthPassword AuthMethod = "password"
	// AuthPasswordSMS is an exported constant or variable used by the verification engine.
	AuthPasswordSMS AuthMethod = "password:sms"
	// AuthPasswordTOTP is an exported constant or variable used by the verification engine.
	AuthPasswordTOTP AuthMethod = "password:totp"
)

// Valid reports whether m is a known method.
func (m AuthMethod) Valid() bool {
	switch m {
	case AuthPassword, AuthPasswordSMS, AuthPasswordTOTP:
		return true
	}
	return false
}

// Action binds tokens and codes to one purpose.
type Action string

const (
	// ActionInvite is an exported constant or variable used by the verification engine.
	ActionInvite Action = "invite"
	// ActionRegister is an exported constant or variable used by the verification engine.
	ActionRegister Action = "register"
	// ActionReset is an exported constant or variable used by the verification engine.
	ActionReset Action = "reset"
	// ActionLogin is an exported constant or variable used by the verification engine.
	ActionLogin Action = "login"
	// ActionEnable is an exported constant or variable used by the verification engine.
	ActionEnable Action = "enable"
)

// Account is the persisted account record. Secrets in it are hashes or
// sealed blobs; Contact is the PII cipher output.
type Account struct {
	ID           string
	Email        string
	Name         string
	Status       AccountStatus
	Method       AuthMethod
	PasswordHash string
	// ResetHash holds the hash of a pending temporary reset password.
	ResetHash  string
	OTPSecret  string
	OTPCounter int64
	Contact    []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasOTP reports whether the account has an OTP secret.
func (a Account) HasOTP() bool {
	return a.OTPSecret != ""
}

// AccountStore is the account table contract.
//
// GetAccount returns ErrAccountNotFound for a missing id and CreateAccount
// returns ErrAccountExists for a duplicate one. PutAccount replaces every
// field except the OTP secret and counter, which only CreateAccount, ResetOTP
// and AdvanceOTPCounter write. AdvanceOTPCounter moves the counter from
// `from` to `to` only when the stored value still equals `from` and `to` is
// greater, reporting whether it did.
type AccountStore interface {
	GetAccount(ctx context.Context, id string) (Account, error)
	CreateAccount(ctx context.Context, account Account) error
	PutAccount(ctx context.Context, account Account) error
	ResetOTP(ctx context.Context, id, secret string, counter int64) error
	AdvanceOTPCounter(ctx context.Context, id string, from, to int64) (bool, error)
}

// LockoutStore is the lockout table contract. UpdateLockout must apply fn as
// one atomic read-modify-write; an error from fn aborts the write and is
// returned unchanged.
type LockoutStore interface {
	GetLockout(ctx context.Context, id string) (lockout.Record, bool, error)
	UpdateLockout(ctx context.Context, id string, fn func(rec lockout.Record, exists bool) (lockout.Record, error)) (lockout.Record, error)
	DeleteLockout(ctx context.Context, id string) error
}

// InviteInput creates an account on behalf of a user. A temporary password
// is generated and mailed.
type InviteInput struct {
	Email  string
	Name   string
	Phone  string
	Method AuthMethod
}

// RegisterInput creates an account with a user-chosen password.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
	Phone    string
	Method   AuthMethod
}

// ConfirmInput completes an invite, a registration or a password reset.
//
// Password is the credential being proven (the temporary password for invite
// and reset, the chosen one for register). NewPassword replaces it and is
// optional only for register.
type ConfirmInput struct {
	Action      Action
	Email       string
	Token       string
	Code        string
	Password    string
	NewPassword string
	Name        string
}

// CreateResult reports the account created by Invite or Register.
type CreateResult struct {
	AccountID string
	Token     string
}

// LoginResult reports a successful password step.
type LoginResult struct {
	AccountID string
	Method    AuthMethod
	// CodeRequired is set for accounts with a second factor; the login
	// completes with VerifyLoginCode on ChallengeID.
	CodeRequired bool
	ChallengeID  string
}

// LockoutStatus is a read-only view of an account's lockout record.
type LockoutStatus struct {
	AccountID  string
	State      lockout.State
	Failures   int
	LockedAt   time.Time
	RetryAfter time.Duration
	LastLogin  lockout.Login
}

// TOTPEnrollment is returned by EnrollTOTP.
type TOTPEnrollment struct {
	Secret string
	URI    string
	QRCode []byte
}

// HOTPSetup describes an account's counter-based OTP state for an
// authenticator app.
type HOTPSetup struct {
	URI    string
	QRCode []byte
}

// AccessCode is an issued bearer code. Code is shown once; only LookupID is
// stored.
type AccessCode struct {
	Code      string
	LookupID  string
	ExpiresAt time.Time
}
