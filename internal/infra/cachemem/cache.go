// Package cachemem caches positive public verification lookups so repeated
// checks of the same code do not hit the database.
package cachemem

import (
	"context"
	"sync"
	"time"

	"firma/internal/domain"
)

type entry struct {
	value     domain.VerificationSummary
	expiresAt time.Time
	hasExpiry bool
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
}

func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

func (c *Cache) Get(ctx context.Context, key string) (*domain.VerificationSummary, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.hasExpiry && time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	value := e.value
	return &value, true, nil
}

func (c *Cache) Put(ctx context.Context, key string, value domain.VerificationSummary, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{value: value}
	if ttl > 0 {
		e.hasExpiry = true
		e.expiresAt = time.Now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}
