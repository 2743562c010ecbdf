package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goVerify/lockout"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned by Get when no record exists.
var ErrNotFound = errors.New("session not found")

// ErrContention is returned when UpdateLockout exhausts its retries.
var ErrContention = errors.New("session update contention")

// ErrCorrupt is returned when a stored blob cannot be decoded.
var ErrCorrupt = errors.New("session record corrupt")

const defaultMaxRetries = 16

// Store is a Redis-backed lockout record store.
type Store struct {
	redis      redis.UniversalClient
	prefix     string
	ttl        time.Duration
	maxRetries int
}

// NewStore creates a [Store]. prefix sets the key namespace; a positive ttl
// expires idle records, zero keeps them forever.
func NewStore(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "vl"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Store{
		redis:      redisClient,
		prefix:     prefix,
		ttl:        ttl,
		maxRetries: defaultMaxRetries,
	}
}

// WithMaxRetries overrides the optimistic transaction retry budget.
func (s *Store) WithMaxRetries(n int) *Store {
	if n > 0 {
		s.maxRetries = n
	}
	return s
}

func (s *Store) key(accountID string) string {
	return s.prefix + ":" + accountID
}

// Save writes sess unconditionally.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	encoded, err := Encode(sess)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(sess.AccountID), encoded, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads the record for accountID, migrating legacy blobs in place.
func (s *Store) Get(ctx context.Context, accountID string) (*Session, error) {
	key := s.key(accountID)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := s.maybeMigrateSchema(ctx, key, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetLockout returns the lockout record for accountID and whether it exists.
func (s *Store) GetLockout(ctx context.Context, accountID string) (lockout.Record, bool, error) {
	sess, err := s.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return lockout.Record{}, false, nil
		}
		return lockout.Record{}, false, err
	}
	return sess.Record(), true, nil
}

type abortError struct{ err error }

func (e abortError) Error() string { return e.err.Error() }

// UpdateLockout applies fn to the current record inside a WATCH/MULTI
// transaction, retrying when another writer commits first. An error from fn
// aborts without writing and is returned unchanged.
func (s *Store) UpdateLockout(
	ctx context.Context,
	accountID string,
	fn func(rec lockout.Record, exists bool) (lockout.Record, error),
) (lockout.Record, error) {
	key := s.key(accountID)

	for i := 0; i < s.maxRetries; i++ {
		var updated lockout.Record

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			var (
				current lockout.Record
				exists  bool
			)
			data, err := tx.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				sess, decErr := Decode(data)
				if decErr != nil {
					return fmt.Errorf("%w: %v", ErrCorrupt, decErr)
				}
				current, exists = sess.Record(), true
			case errors.Is(err, redis.Nil):
			default:
				return err
			}

			next, fnErr := fn(current, exists)
			if fnErr != nil {
				return abortError{fnErr}
			}

			encoded, err := Encode(FromRecord(accountID, next))
			if err != nil {
				return abortError{err}
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, s.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			updated = next
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			var abort abortError
			switch {
			case errors.As(err, &abort):
				return lockout.Record{}, abort.err
			case errors.Is(err, ErrCorrupt):
				return lockout.Record{}, err
			default:
				return lockout.Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}
		return updated, nil
	}

	return lockout.Record{}, fmt.Errorf("%w: %w", ErrRedisUnavailable, ErrContention)
}

// DeleteLockout removes the record. Deleting a missing record is not an error.
func (s *Store) DeleteLockout(ctx context.Context, accountID string) error {
	if err := s.redis.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping measures Redis round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) maybeMigrateSchema(ctx context.Context, key string, sess *Session) error {
	if sess.SchemaVersion == CurrentSchemaVersion {
		return nil
	}
	sess.SchemaVersion = CurrentSchemaVersion
	encoded, err := Encode(sess)
	if err != nil {
		return err
	}
	// KEEPTTL so migration never changes record lifetime.
	if err := s.redis.SetArgs(ctx, key, encoded, redis.SetArgs{KeepTTL: true, Mode: "XX"}).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
