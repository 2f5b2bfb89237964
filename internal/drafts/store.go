package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sealcard-backend/pkg/redis"
)

const draftKind = "program"

// ErrDraftNotFound is returned by Store.Load when the owner has no draft.
var ErrDraftNotFound = errors.New("draft not found")

// Store persists one draft per owner.
type Store interface {
	Load(ctx context.Context, ownerID uuid.UUID) (*Draft, error)
	Save(ctx context.Context, draft *Draft) error
	Delete(ctx context.Context, ownerID uuid.UUID) error
}

type keyValue interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error
	DraftKey(kind, ownerID string) string
}

// RedisStore keeps each draft as a JSON document that expires after ttl of
// inactivity.
type RedisStore struct {
	kv  keyValue
	ttl time.Duration
}

// NewRedisStore returns a draft store backed by the platform redis client.
func NewRedisStore(kv keyValue, ttl time.Duration) (*RedisStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("draft ttl must be positive")
	}
	return &RedisStore{kv: kv, ttl: ttl}, nil
}

func (s *RedisStore) Load(ctx context.Context, ownerID uuid.UUID) (*Draft, error) {
	raw, err := s.kv.GetBytes(ctx, s.kv.DraftKey(draftKind, ownerID.String()))
	if errors.Is(err, redis.ErrNotFound) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var draft Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &draft, nil
}

func (s *RedisStore) Save(ctx context.Context, draft *Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return s.kv.Set(ctx, s.kv.DraftKey(draftKind, draft.OwnerID.String()), raw, s.ttl)
}

func (s *RedisStore) Delete(ctx context.Context, ownerID uuid.UUID) error {
	return s.kv.Del(ctx, s.kv.DraftKey(draftKind, ownerID.String()))
}
