package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mates/internal/domain"

	"github.com/redis/go-redis/v9"
)

// LinkCache shares processed-link outcomes between processes; entries expire with the key TTL.
type LinkCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewLinkCache(r *redis.Client, ttl time.Duration) *LinkCache {
	return &LinkCache{redis: r, ttl: ttl}
}

func (c *LinkCache) Get(ctx context.Context, key string) (*domain.Outcome, bool, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("link cache get failed: %w", err)
	}

	var out domain.Outcome
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false, fmt.Errorf("link cache unmarshal failed: %w", err)
	}

	return &out, true, nil
}

// Put keeps the first recorded outcome when two processes race on the same link.
func (c *LinkCache) Put(ctx context.Context, key string, outcome domain.Outcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("link cache marshal failed: %w", err)
	}

	if err := c.redis.SetNX(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("link cache set failed: %w", err)
	}

	return nil
}
