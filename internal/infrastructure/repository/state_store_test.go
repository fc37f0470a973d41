package repository

import (
	"context"
	"testing"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStateCmdable struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMockStateCmdable() *mockStateCmdable {
	return &mockStateCmdable{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockStateCmdable) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockStateCmdable) GetDel(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	delete(m.data, key)
	return redis.NewStringResult(v, nil)
}

func exerciseStateStore(t *testing.T, store ports.OAuthStateStore) {
	t.Helper()
	ctx := context.Background()

	state := domain.OAuthState{
		Nonce:     "abc123",
		Shop:      testShop,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, store.Save(ctx, state))

	got, err := store.Consume(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, testShop, got.Shop)

	// single use
	got, err = store.Consume(ctx, "abc123")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.Consume(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStateStore(t *testing.T) {
	mock := newMockStateCmdable()
	store := &RedisStateStore{store: mock, now: time.Now}

	exerciseStateStore(t, store)

	require.NoError(t, store.Save(context.Background(), domain.OAuthState{
		Nonce:     "ttl",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}))
	ttl := mock.ttls[stateKeyPrefix+"ttl"]
	assert.InDelta(t, (10 * time.Minute).Seconds(), ttl.Seconds(), 1)
}

func TestRedisStateStoreRejectsExpired(t *testing.T) {
	store := &RedisStateStore{store: newMockStateCmdable(), now: time.Now}
	err := store.Save(context.Background(), domain.OAuthState{Nonce: "old", ExpiresAt: time.Now().Add(-time.Second)})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestMemoryStateStore(t *testing.T) {
	exerciseStateStore(t, NewMemoryStateStore())
}

func TestMemoryStateStoreExpiry(t *testing.T) {
	store := NewMemoryStateStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(context.Background(), domain.OAuthState{Nonce: "n", ExpiresAt: now.Add(time.Minute)}))
	now = now.Add(2 * time.Minute)

	got, err := store.Consume(context.Background(), "n")
	require.NoError(t, err)
	assert.Nil(t, got)
}
