// Package workers
package workers

import (
	"context"

	"mates/internal/config"
	"mates/internal/domain"
	"mates/internal/logger"
)

type Manager struct {
	cfg *config.Config
	log logger.Logger

	scheduler *Scheduler
	services  *ManagerServices
}

type ManagerServices struct {
	Session domain.SessionService

	// LinkCache is nil when dedup is off or the cache expires entries by itself.
	LinkCache Sweeper
}

type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

func NewManager(cfg *config.Config, log logger.Logger, scheduler *Scheduler, services *ManagerServices) *Manager {
	return &Manager{
		cfg: cfg,
		log: log,

		scheduler: scheduler,
		services:  services,
	}
}

func (m *Manager) Start(ctx context.Context) {
	m.log.Info("worker: manager started")

	m.scheduler.RunByDuration(ctx, m.cfg.RefreshInterval, NewSessionRefreshWorker(m.services.Session, m.log))

	if m.services.LinkCache != nil {
		m.scheduler.RunByDuration(ctx, m.cfg.CacheSweepInterval, NewLinkCacheSweepWorker(m.services.LinkCache, m.log))
	}
}
