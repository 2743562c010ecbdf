package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable wraps every database failure.
var ErrUnavailable = errors.New("sql store unavailable")

// ErrContention is returned when UpdateLockout exhausts its retries.
var ErrContention = errors.New("sql store update contention")

const defaultMaxRetries = 16

// Store is a SQL-backed account and lockout record store.
type Store struct {
	db         *sql.DB
	dialect    Dialect
	maxRetries int
	now        func() time.Time
}

// Open connects with the dialect's registered driver and verifies the
// connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if dialect == SQLite {
		// In-memory databases are per connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return New(db, dialect), nil
}

// New wraps an existing handle.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:         db,
		dialect:    dialect,
		maxRetries: defaultMaxRetries,
		now:        time.Now,
	}
}

// WithMaxRetries overrides the compare-and-swap retry budget.
func (s *Store) WithMaxRetries(n int) *Store {
	if n > 0 {
		s.maxRetries = n
	}
	return s
}

// WithClock overrides the clock used for updated_at stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the accounts and lockouts tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL,
			name          TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL,
			method        TEXT NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			reset_hash    TEXT NOT NULL DEFAULT '',
			otp_secret    TEXT NOT NULL DEFAULT '',
			otp_counter   BIGINT NOT NULL DEFAULT 0,
			contact       ` + s.dialect.blobType() + `,
			created_at    BIGINT NOT NULL,
			updated_at    BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS lockouts (
			account_id TEXT PRIMARY KEY,
			failures   INTEGER NOT NULL DEFAULT 0,
			locked_at  BIGINT NOT NULL DEFAULT 0,
			last_ip    TEXT NOT NULL DEFAULT '',
			last_agent TEXT NOT NULL DEFAULT '',
			last_at    BIGINT NOT NULL DEFAULT 0,
			version    BIGINT NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migrate: %v", ErrUnavailable, err)
		}
	}
	return nil
}

// Ping measures database round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) q(query string) string {
	return s.dialect.rebind(query)
}

// Times are stored as unix nanoseconds; 0 is the zero time.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
