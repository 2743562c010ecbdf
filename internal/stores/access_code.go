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

const accessCodeRecordVersionV1 = 1

var (
	ErrAccessCodeNotFound         = errors.New("access code not found")
	ErrAccessCodeActionMismatch   = errors.New("access code action mismatch")
	ErrAccessCodeRedisUnavailable = errors.New("access code redis unavailable")
)

type AccessCodeRecord struct {
	AccountID string
	Action    string
	IssuedAt  int64
	ExpiresAt int64
}

type AccessCodeStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewAccessCodeStore(redisClient redis.UniversalClient, prefix string, now func() time.Time) *AccessCodeStore {
	if prefix == "" {
		prefix = "vac"
	}
	if now == nil {
		now = time.Now
	}
	return &AccessCodeStore{redis: redisClient, prefix: prefix, now: now}
}

func (s *AccessCodeStore) key(lookupID string) string {
	return s.prefix + ":" + lookupID
}

func (s *AccessCodeStore) Save(ctx context.Context, lookupID string, record *AccessCodeRecord, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("access code ttl must be positive")
	}
	encoded, err := encodeAccessCodeRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(lookupID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAccessCodeRedisUnavailable, err)
	}
	return nil
}

// Peek returns the record for lookupID without consuming it.
func (s *AccessCodeStore) Peek(ctx context.Context, lookupID string) (*AccessCodeRecord, error) {
	data, err := s.redis.Get(ctx, s.key(lookupID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAccessCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccessCodeRedisUnavailable, err)
	}
	record, err := decodeAccessCodeRecord(data)
	if err != nil {
		return nil, ErrAccessCodeNotFound
	}
	if s.now().Unix() > record.ExpiresAt {
		return nil, ErrAccessCodeNotFound
	}
	return record, nil
}

// Consume deletes and returns the record for lookupID. A record issued for a
// different action is deleted as well and reported as a mismatch, so a code is
// never usable twice.
func (s *AccessCodeStore) Consume(ctx context.Context, lookupID, action string) (*AccessCodeRecord, error) {
	const maxRetries = 4
	key := s.key(lookupID)

	for i := 0; i < maxRetries; i++ {
		var consumed *AccessCodeRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			record, err := decodeAccessCodeRecord(data)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}

			if s.now().Unix() > record.ExpiresAt {
				return ErrAccessCodeNotFound
			}
			consumed = record
			if record.Action != action {
				return ErrAccessCodeActionMismatch
			}
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil), errors.Is(err, ErrAccessCodeNotFound):
				return nil, ErrAccessCodeNotFound
			case errors.Is(err, ErrAccessCodeActionMismatch):
				return consumed, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrAccessCodeRedisUnavailable, err)
			}
		}
		return consumed, nil
	}

	return nil, ErrAccessCodeNotFound
}

func encodeAccessCodeRecord(record *AccessCodeRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(accessCodeRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	for _, field := range []string{record.AccountID, record.Action} {
		if len(field) > 65535 {
			return nil, errors.New("access code record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}
	return buf.Bytes(), nil
}

func decodeAccessCodeRecord(data []byte) (*AccessCodeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != accessCodeRecordVersionV1 {
		return nil, errors.New("invalid access code record version")
	}

	record := &AccessCodeRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	fields := []*string{&record.AccountID, &record.Action}
	for _, field := range fields {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(reader, b); err != nil {
			return nil, err
		}
		*field = string(b)
	}
	return record, nil
}
