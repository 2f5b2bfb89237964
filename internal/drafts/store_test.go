package drafts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sealcard-backend/pkg/redis"
)

type fakeKV struct {
	values map[string][]byte
	ttls   map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.values[key] = value.([]byte)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) GetBytes(ctx context.Context, key string) ([]byte, error) {
	v, ok := f.values[key]
	if !ok {
		return nil, redis.ErrNotFound
	}
	return v, nil
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeKV) DraftKey(kind, ownerID string) string {
	return "sc:draft:" + kind + ":" + ownerID
}

func TestRedisStoreRoundTrip(t *testing.T) {
	kv := newFakeKV()
	store, err := NewRedisStore(kv, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	draft := completeDraft(t)
	require.NoError(t, store.Save(ctx, draft))
	key := "sc:draft:program:" + draft.OwnerID.String()
	require.Equal(t, time.Hour, kv.ttls[key])

	loaded, err := store.Load(ctx, draft.OwnerID)
	require.NoError(t, err)
	require.Equal(t, draft.CurrentStep, loaded.CurrentStep)
	require.Equal(t, draft.Input.BusinessName, loaded.Input.BusinessName)
	require.True(t, draft.Input.RewardValue.Equal(*loaded.Input.RewardValue))

	require.NoError(t, store.Delete(ctx, draft.OwnerID))
	_, err = store.Load(ctx, draft.OwnerID)
	require.ErrorIs(t, err, ErrDraftNotFound)
}

func TestRedisStoreRequiresTTL(t *testing.T) {
	_, err := NewRedisStore(newFakeKV(), 0)
	require.Error(t, err)

	_, err = NewRedisStore(nil, time.Hour)
	require.Error(t, err)

	store, err := NewRedisStore(newFakeKV(), time.Minute)
	require.NoError(t, err)
	_, err = store.Load(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrDraftNotFound)
}
