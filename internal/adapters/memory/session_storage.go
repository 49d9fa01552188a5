// Package memory holds in-process adapters used when no database or redis is configured.
package memory

import (
	"context"
	"sync"

	"mates/internal/domain"
)

type SessionStorage struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewSessionStorage() *SessionStorage {
	return &SessionStorage{sessions: make(map[string]domain.Session)}
}

func (s *SessionStorage) Load(_ context.Context, key string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if sess.User != nil {
		u := *sess.User
		sess.User = &u
	}
	return &sess, nil
}

func (s *SessionStorage) Save(_ context.Context, key string, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := *session
	if session.User != nil {
		u := *session.User
		sess.User = &u
	}
	s.sessions[key] = sess
	return nil
}

func (s *SessionStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, key)
	return nil
}
