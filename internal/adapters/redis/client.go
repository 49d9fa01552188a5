// Package redis
package redis

import (
	"context"
	"fmt"
	"time"

	"mates/internal/logger"

	"github.com/redis/go-redis/v9"
)

func NewClient(ctx context.Context, redisURL string, log logger.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis not responding: %w", err)
	}

	log.Info("redis connection established successfully")

	return client, nil
}
