package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"

	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "fsb:oauth_state:"

type stateCmdable interface {
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	GetDel(context.Context, string) *redis.StringCmd
}

// RedisStateStore keeps OAuth nonces in Redis with a TTL
type RedisStateStore struct {
	store stateCmdable
	now   func() time.Time
}

// NewRedisStateStore creates a Redis-backed OAuth state store
func NewRedisStateStore(client *redis.Client) ports.OAuthStateStore {
	return &RedisStateStore{store: client, now: time.Now}
}

// NewRedisClient parses REDIS_URL and verifies connectivity
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Save stores the state until its expiry
func (s *RedisStateStore) Save(ctx context.Context, state domain.OAuthState) error {
	ttl := state.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("oauth state already expired: %w", domain.ErrInvalidState)
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode oauth state: %w", err)
	}
	if err := s.store.Set(ctx, stateKeyPrefix+state.Nonce, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes the state
func (s *RedisStateStore) Consume(ctx context.Context, nonce string) (*domain.OAuthState, error) {
	raw, err := s.store.GetDel(ctx, stateKeyPrefix+nonce).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume oauth state: %w", err)
	}
	var state domain.OAuthState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to decode oauth state: %w", err)
	}
	if state.Expired(s.now()) {
		return nil, nil
	}
	return &state, nil
}

// MemoryStateStore keeps OAuth nonces in process memory
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]domain.OAuthState
	now    func() time.Time
}

// NewMemoryStateStore creates an empty in-memory state store
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]domain.OAuthState), now: time.Now}
}

// Save stores the state and drops expired ones
func (s *MemoryStateStore) Save(_ context.Context, state domain.OAuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for nonce, st := range s.states {
		if st.Expired(now) {
			delete(s.states, nonce)
		}
	}
	s.states[state.Nonce] = state
	return nil
}

// Consume returns the state once
func (s *MemoryStateStore) Consume(_ context.Context, nonce string) (*domain.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[nonce]
	if !ok {
		return nil, nil
	}
	delete(s.states, nonce)
	if state.Expired(s.now()) {
		return nil, nil
	}
	return &state, nil
}
