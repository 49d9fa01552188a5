package workers

import (
	"context"
	"fmt"

	"mates/internal/logger"
)

type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type LinkCacheSweepWorker struct {
	cache Sweeper
	log   logger.Logger
}

func NewLinkCacheSweepWorker(cache Sweeper, log logger.Logger) Worker {
	return &LinkCacheSweepWorker{
		cache: cache,
		log:   log,
	}
}

func (w *LinkCacheSweepWorker) Name() string {
	return "link_cache_sweep"
}

func (w *LinkCacheSweepWorker) Run(ctx context.Context) error {
	removed, err := w.cache.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep link cache: %w", err)
	}

	if removed > 0 {
		w.log.Debug("worker: expired processed links removed", "count", removed)
	}

	return nil
}
