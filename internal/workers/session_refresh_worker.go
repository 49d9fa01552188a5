package workers

import (
	"context"
	"errors"
	"fmt"

	"mates/internal/domain"
	"mates/internal/logger"
)

type SessionRefreshWorker struct {
	session domain.SessionService
	log     logger.Logger
}

func NewSessionRefreshWorker(session domain.SessionService, log logger.Logger) Worker {
	return &SessionRefreshWorker{
		session: session,
		log:     log,
	}
}

func (w *SessionRefreshWorker) Name() string {
	return "session_refresh"
}

func (w *SessionRefreshWorker) Run(ctx context.Context) error {
	if w.session.State().User == nil {
		return nil
	}

	if err := w.session.Refresh(ctx); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("failed to refresh session: %w", err)
	}

	return nil
}
