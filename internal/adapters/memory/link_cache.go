package memory

import (
	"context"
	"sync"
	"time"

	"mates/internal/domain"
)

type cachedOutcome struct {
	outcome   domain.Outcome
	expiresAt time.Time
}

// LinkCache is a TTL map. Expired entries are ignored on read and removed by Sweep.
type LinkCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cachedOutcome
	now     func() time.Time
}

func NewLinkCache(ttl time.Duration) *LinkCache {
	return &LinkCache{
		ttl:     ttl,
		entries: make(map[string]cachedOutcome),
		now:     time.Now,
	}
}

func (c *LinkCache) Get(_ context.Context, key string) (*domain.Outcome, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	out := e.outcome
	return &out, true, nil
}

func (c *LinkCache) Put(_ context.Context, key string, outcome domain.Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cachedOutcome{outcome: outcome, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// Sweep drops expired entries and reports how many were removed.
func (c *LinkCache) Sweep(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed, nil
}

func (c *LinkCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
