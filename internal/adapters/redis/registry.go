package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mates/internal/domain"
	"mates/internal/logger"

	"github.com/redis/go-redis/v9"
)

const (
	LinkOutcomeStream       = "deeplink:outcomes"
	linkOutcomeStreamMaxLen = 1000
)

// Registry appends resolver outcomes to a capped redis stream so recent
// sign-in attempts can be inspected across restarts.
type Registry struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRegistry(r *redis.Client, log logger.Logger) *Registry {
	return &Registry{redis: r, log: log}
}

// Handle is the event bus subscriber for link_resolved.
func (r *Registry) Handle(event any) {
	evt, ok := event.(domain.EventLinkResolved)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := r.Append(ctx, evt); err != nil {
		r.log.Warn("deeplink: failed to record outcome", "run_id", evt.RunID, "error", err)
	}
}

func (r *Registry) Append(ctx context.Context, evt domain.EventLinkResolved) (string, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return "", fmt.Errorf("registry marshal failed: %w", err)
	}

	id, err := r.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: LinkOutcomeStream,
		Values: map[string]any{
			"data": data,
		},
		MaxLen: linkOutcomeStreamMaxLen,
		Approx: true,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("registry xadd failed: %w", err)
	}

	return id, nil
}

func (r *Registry) Recent(ctx context.Context, limit int64) ([]domain.EventLinkResolved, error) {
	msgs, err := r.redis.XRevRangeN(ctx, LinkOutcomeStream, "+", "-", limit).Result()
	if err != nil {
		return nil, fmt.Errorf("registry xrevrange failed: %w", err)
	}

	events := make([]domain.EventLinkResolved, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}

		var evt domain.EventLinkResolved
		if err := json.Unmarshal([]byte(raw), &evt); err != nil {
			return nil, fmt.Errorf("registry unmarshal failed: %w", err)
		}
		events = append(events, evt)
	}

	return events, nil
}
