package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginChallengeRecordVersionV1 = 1

var (
	ErrLoginChallengeNotFound = errors.New("login challenge not found")
	ErrLoginChallengeExpired  = errors.New("login challenge expired")
	ErrLoginChallengeBackend  = errors.New("login challenge redis unavailable")
)

// LoginChallenge binds the code step of a login to a passed password step.
type LoginChallenge struct {
	AccountID string
	ExpiresAt int64
	Attempts  uint16
}

type LoginChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewLoginChallengeStore(redisClient redis.UniversalClient, prefix string, now func() time.Time) *LoginChallengeStore {
	if prefix == "" {
		prefix = "vlc"
	}
	if now == nil {
		now = time.Now
	}
	return &LoginChallengeStore{redis: redisClient, prefix: prefix, now: now}
}

func (s *LoginChallengeStore) key(challengeID string) string {
	return s.prefix + ":" + challengeID
}

func (s *LoginChallengeStore) Save(ctx context.Context, challengeID string, record *LoginChallenge, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("login challenge ttl must be positive")
	}
	encoded, err := encodeLoginChallenge(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(challengeID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginChallengeBackend, err)
	}
	return nil
}

func (s *LoginChallengeStore) Get(ctx context.Context, challengeID string) (*LoginChallenge, error) {
	data, err := s.redis.Get(ctx, s.key(challengeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrLoginChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrLoginChallengeBackend, err)
	}

	record, err := decodeLoginChallenge(data)
	if err != nil {
		return nil, ErrLoginChallengeNotFound
	}
	if s.now().Unix() > record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(challengeID)).Result()
		return nil, ErrLoginChallengeExpired
	}
	return record, nil
}

// Delete removes the challenge and reports whether it was still present. The
// caller that sees true is the one that consumed it.
func (s *LoginChallengeStore) Delete(ctx context.Context, challengeID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(challengeID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLoginChallengeBackend, err)
	}
	return n > 0, nil
}

// RecordFailure counts a wrong code against the challenge and deletes it once
// maxAttempts is reached, reporting whether it did.
func (s *LoginChallengeStore) RecordFailure(ctx context.Context, challengeID string, maxAttempts int) (bool, error) {
	const maxRetries = 4
	key := s.key(challengeID)

	for i := 0; i < maxRetries; i++ {
		var exceeded bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			record, err := decodeLoginChallenge(data)
			if err != nil {
				return err
			}

			del := func() error {
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			ttl := time.Unix(record.ExpiresAt, 0).Sub(s.now())
			if ttl <= 0 {
				if err := del(); err != nil {
					return err
				}
				return ErrLoginChallengeExpired
			}

			record.Attempts++
			if int(record.Attempts) >= maxAttempts {
				exceeded = true
				return del()
			}

			updated, err := encodeLoginChallenge(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return false, ErrLoginChallengeNotFound
			case errors.Is(err, ErrLoginChallengeExpired):
				return false, err
			default:
				return false, fmt.Errorf("%w: %v", ErrLoginChallengeBackend, err)
			}
		}
		return exceeded, nil
	}

	return false, ErrLoginChallengeNotFound
}

func encodeLoginChallenge(record *LoginChallenge) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(loginChallengeRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if len(record.AccountID) > 65535 {
		return nil, errors.New("login challenge account id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.AccountID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.AccountID)
	return buf.Bytes(), nil
}

func decodeLoginChallenge(data []byte) (*LoginChallenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != loginChallengeRecordVersionV1 {
		return nil, errors.New("invalid login challenge version")
	}

	record := &LoginChallenge{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	id := make([]byte, n)
	if _, err := io.ReadFull(reader, id); err != nil {
		return nil, err
	}
	record.AccountID = string(id)
	return record, nil
}
