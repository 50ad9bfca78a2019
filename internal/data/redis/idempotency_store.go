// Package redis keeps idempotency records for mutating API calls.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:"

// Record is the stored state of one idempotent request.
type Record struct {
	InProgress bool      `json:"in_progress"`
	Status     int       `json:"status"`
	Body       []byte    `json:"body,omitempty"`
	BodyHash   string    `json:"body_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// IdempotencyStore reserves request keys while a handler runs and keeps the
// final response for replay until ttl expires.
type IdempotencyStore struct {
	client  goredis.Cmdable
	ttl     time.Duration
	lockTTL time.Duration
	logger  *slog.Logger
}

func NewIdempotencyStore(logger *slog.Logger, client goredis.Cmdable, ttl, lockTTL time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		client:  client,
		ttl:     ttl,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

// Reserve claims key for a new request. When the key is already held it
// returns the existing record and false.
func (s *IdempotencyStore) Reserve(ctx context.Context, key, bodyHash string) (*Record, bool, error) {
	pending, err := json.Marshal(Record{InProgress: true, BodyHash: bodyHash, CreatedAt: time.Now().UTC()})
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode idempotency record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, keyPrefix+key, pending, s.lockTTL).Result()
	if err != nil {
		s.logger.Error("Failed to reserve idempotency key", "key", key, "error", err)
		return nil, false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	existing, err := s.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Get returns nil when the key is unknown or has expired.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load idempotency record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	return &rec, nil
}

// Complete stores the final response for replay.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, rec Record) error {
	rec.InProgress = false
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, s.ttl).Err(); err != nil {
		s.logger.Error("Failed to store idempotent response", "key", key, "error", err)
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	return nil
}

// Release drops a reservation so the client may retry.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
