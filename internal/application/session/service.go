// Package session restores, refreshes and ends the signed-in session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mates/internal/domain"
	"mates/internal/logger"
)

// Service serialises Restore, Refresh and SignOut so a sign-out is never
// undone by a refresh that was already in flight.
type Service struct {
	mu sync.Mutex

	auth   domain.AuthClient
	state  domain.AuthStateStore
	log    logger.Logger
	margin time.Duration
	now    func() time.Time
}

func NewService(auth domain.AuthClient, state domain.AuthStateStore, refreshMargin time.Duration, log logger.Logger) *Service {
	return &Service{
		auth:   auth,
		state:  state,
		log:    log,
		margin: refreshMargin,
		now:    time.Now,
	}
}

// Restore runs once at startup. The state always ends up ready, with or
// without a user; a storage failure only costs the restored session.
func (s *Service) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.state.MarkReady()

	sess, err := s.auth.GetSession(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.log.Info("session: nothing to restore")
			return nil
		}
		return fmt.Errorf("failed to restore session: %w", err)
	}

	if sess == nil || sess.User == nil {
		s.log.Info("session: nothing to restore")
		return nil
	}

	s.state.SignedIn(sess.User)
	s.log.Info("session: restored", "user_id", sess.User.ID)

	return nil
}

// Refresh renews a persisted session that is about to expire. The renewed
// user is only published when the signed-in user did not change meanwhile.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.auth.GetSession(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil || !sess.ExpiresWithin(s.margin, s.now()) {
		return nil
	}

	before := s.state.Snapshot().User

	refreshed, err := s.auth.RefreshSession(ctx)
	if err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			// The provider revoked the refresh token; the user has to sign in again.
			s.log.Warn("session: refresh rejected, signing out", "status", apiErr.Status, "code", apiErr.Code)
			return s.signOut(ctx)
		}
		return fmt.Errorf("failed to refresh session: %w", err)
	}

	if refreshed == nil || refreshed.User == nil {
		return domain.ErrNoUserInSession
	}

	if !sameUser(before, s.state.Snapshot().User) {
		s.log.Info("session: signed-in user changed during refresh, keeping current state")
		return nil
	}

	s.state.SignedIn(refreshed.User)
	s.log.Debug("session: refreshed", "expires_at", refreshed.ExpiresAt)

	return nil
}

// SignOut always clears local state, even when the provider call fails.
func (s *Service) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.signOut(ctx)
}

func (s *Service) signOut(ctx context.Context) error {
	err := s.auth.SignOut(ctx)
	s.state.SignedOut()

	if err != nil {
		s.log.Warn("session: provider sign-out failed", "error", err)
		return fmt.Errorf("failed to sign out: %w", err)
	}

	s.log.Info("session: signed out")
	return nil
}

func (s *Service) State() domain.AuthState {
	return s.state.Snapshot()
}

func sameUser(a, b *domain.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
