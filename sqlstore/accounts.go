package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	goVerify "github.com/MrEthical07/goVerify"
)

const accountColumns = `id, email, name, status, method, password_hash, reset_hash,
	otp_secret, otp_counter, contact, created_at, updated_at`

// GetAccount loads an account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (goVerify.Account, error) {
	var (
		a                    goVerify.Account
		status, method       string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, s.q(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`), id).Scan(
		&a.ID, &a.Email, &a.Name, &status, &method, &a.PasswordHash, &a.ResetHash,
		&a.OTPSecret, &a.OTPCounter, &a.Contact, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return goVerify.Account{}, goVerify.ErrAccountNotFound
	}
	if err != nil {
		return goVerify.Account{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	a.Status = goVerify.AccountStatus(status)
	a.Method = goVerify.AuthMethod(method)
	a.CreatedAt = fromNanos(createdAt)
	a.UpdatedAt = fromNanos(updatedAt)
	return a, nil
}

// CreateAccount inserts a new account, returning goVerify.ErrAccountExists
// when the id is taken.
func (s *Store) CreateAccount(ctx context.Context, a goVerify.Account) error {
	now := s.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	res, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`),
		a.ID, a.Email, a.Name, string(a.Status), string(a.Method), a.PasswordHash, a.ResetHash,
		a.OTPSecret, a.OTPCounter, a.Contact, toNanos(a.CreatedAt), toNanos(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return goVerify.ErrAccountExists
	}
	return nil
}

// PutAccount replaces an existing account. The OTP secret and counter are
// left as stored.
func (s *Store) PutAccount(ctx context.Context, a goVerify.Account) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE accounts
		SET email = ?, name = ?, status = ?, method = ?, password_hash = ?, reset_hash = ?,
		    contact = ?, updated_at = ?
		WHERE id = ?`),
		a.Email, a.Name, string(a.Status), string(a.Method), a.PasswordHash, a.ResetHash,
		a.Contact, toNanos(s.now()), a.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return goVerify.ErrAccountNotFound
	}
	return nil
}

// ResetOTP replaces the OTP secret and counter together.
func (s *Store) ResetOTP(ctx context.Context, id, secret string, counter int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE accounts SET otp_secret = ?, otp_counter = ?, updated_at = ?
		WHERE id = ?`),
		secret, counter, toNanos(s.now()), id,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return goVerify.ErrAccountNotFound
	}
	return nil
}

// AdvanceOTPCounter moves the counter from `from` to `to` if it still equals
// `from`.
func (s *Store) AdvanceOTPCounter(ctx context.Context, id string, from, to int64) (bool, error) {
	if to <= from {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE accounts SET otp_counter = ?, updated_at = ?
		WHERE id = ? AND otp_counter = ?`),
		to, toNanos(s.now()), id, from,
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n == 1, nil
}
