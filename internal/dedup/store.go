package dedup

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store is the idempotency guard in front of the event table. Admit returns
// true for exactly one caller per hash, even under concurrent attempts; a
// duplicate is a no-op success, not an error.
type Store interface {
	Admit(ctx context.Context, contentHash string) (bool, error)
}

type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: map[string]struct{}{}}
}

func (s *MemoryStore) Admit(_ context.Context, contentHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[contentHash]; ok {
		return false, nil
	}
	s.seen[contentHash] = struct{}{}
	return true, nil
}

type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "dedup:"}
}

// Admit uses SETNX so exactly one concurrent caller wins. Keys are kept
// without expiry: dedup must hold for the lifetime of the event store.
func (s *RedisStore) Admit(ctx context.Context, contentHash string) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+contentHash, 1, 0).Result()
}
