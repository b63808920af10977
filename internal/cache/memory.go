package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is the default in-process backing store. go-cache handles
// lazy expiry on reads and runs a janitor goroutine as the periodic sweep.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore creates an in-memory store whose janitor sweeps stale
// entries at sweepInterval.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, sweepInterval)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false
	}
	raw, ok := v.([]byte)
	return raw, ok
}

func (s *MemoryStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) {
	s.c.Set(key, payload, ttl)
}
