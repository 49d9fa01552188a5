package workers

import (
	"context"
	"time"

	"mates/internal/logger"
)

type Scheduler struct {
	log logger.Logger
}

func NewScheduler(log logger.Logger) *Scheduler {
	return &Scheduler{log: log}
}

// RunByDuration runs worker every dur until ctx is done. A non-positive dur disables it.
func (s *Scheduler) RunByDuration(ctx context.Context, dur time.Duration, worker Worker) {
	if dur <= 0 {
		s.log.Info("worker: disabled", "name", worker.Name())
		return
	}

	go func() {
		ticker := time.NewTicker(dur)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()

				err := worker.Run(ctx)
				if err != nil {
					s.log.Error("worker: run failed", "name", worker.Name(), "error", err)
				}

				s.log.Debug("worker: run finished", "name", worker.Name(), "time", time.Since(start))
			}
		}
	}()
}
