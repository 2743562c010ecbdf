package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/goVerify/lockout"
)

type lockoutRow struct {
	rec     lockout.Record
	version int64
}

func (s *Store) getLockoutRow(ctx context.Context, accountID string) (lockoutRow, bool, error) {
	var (
		row               lockoutRow
		lockedAt, lastAt  int64
		lastIP, lastAgent string
	)
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT failures, locked_at, last_ip, last_agent, last_at, version
		FROM lockouts WHERE account_id = ?`), accountID).Scan(
		&row.rec.Failures, &lockedAt, &lastIP, &lastAgent, &lastAt, &row.version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return lockoutRow{}, false, nil
	}
	if err != nil {
		return lockoutRow{}, false, err
	}
	row.rec.LockedAt = fromNanos(lockedAt)
	row.rec.LastLogin = lockout.Login{IP: lastIP, Agent: lastAgent, At: fromNanos(lastAt)}
	return row, true, nil
}

// GetLockout returns the lockout record for accountID and whether it exists.
func (s *Store) GetLockout(ctx context.Context, accountID string) (lockout.Record, bool, error) {
	row, exists, err := s.getLockoutRow(ctx, accountID)
	if err != nil {
		return lockout.Record{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return row.rec, exists, nil
}

// UpdateLockout applies fn to the current record and writes the result with
// a version compare-and-swap, retrying when another writer commits first. An
// error from fn aborts without writing and is returned unchanged.
func (s *Store) UpdateLockout(
	ctx context.Context,
	accountID string,
	fn func(rec lockout.Record, exists bool) (lockout.Record, error),
) (lockout.Record, error) {
	for i := 0; i < s.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return lockout.Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		cur, exists, err := s.getLockoutRow(ctx, accountID)
		if err != nil {
			return lockout.Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		next, err := fn(cur.rec, exists)
		if err != nil {
			return lockout.Record{}, err
		}

		var res sql.Result
		if exists {
			res, err = s.db.ExecContext(ctx, s.q(`
				UPDATE lockouts
				SET failures = ?, locked_at = ?, last_ip = ?, last_agent = ?, last_at = ?, version = version + 1
				WHERE account_id = ? AND version = ?`),
				next.Failures, toNanos(next.LockedAt), next.LastLogin.IP, next.LastLogin.Agent,
				toNanos(next.LastLogin.At), accountID, cur.version,
			)
		} else {
			res, err = s.db.ExecContext(ctx, s.q(`
				INSERT INTO lockouts (account_id, failures, locked_at, last_ip, last_agent, last_at, version)
				VALUES (?, ?, ?, ?, ?, ?, 1)
				ON CONFLICT (account_id) DO NOTHING`),
				accountID, next.Failures, toNanos(next.LockedAt), next.LastLogin.IP, next.LastLogin.Agent,
				toNanos(next.LastLogin.At),
			)
		}
		if err != nil {
			return lockout.Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return lockout.Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if n == 1 {
			return next, nil
		}
	}

	return lockout.Record{}, fmt.Errorf("%w: %w", ErrUnavailable, ErrContention)
}

// DeleteLockout removes the record. Deleting a missing record is not an error.
func (s *Store) DeleteLockout(ctx context.Context, accountID string) error {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM lockouts WHERE account_id = ?`), accountID); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
