// Package authstate holds the process-wide authentication record.
package authstate

import (
	"sync"
	"sync/atomic"

	"mates/internal/domain"
)

// Store publishes every write as a single pointer swap, so readers never
// observe a half-written state. Writes are serialised together with their
// notification: subscribers see states in the order they were stored, and
// the last notification always matches Snapshot. Subscribers run
// synchronously and must not write to the store.
type Store struct {
	state atomic.Pointer[domain.AuthState]

	writeMu sync.Mutex

	mu     sync.RWMutex
	subs   map[int]func(domain.AuthState)
	nextID int
}

func NewStore() *Store {
	s := &Store{subs: make(map[int]func(domain.AuthState))}
	s.state.Store(&domain.AuthState{})
	return s
}

func (s *Store) Snapshot() domain.AuthState {
	st := *s.state.Load()
	st.User = cloneUser(st.User)
	return st
}

func (s *Store) SignedIn(user *domain.User) {
	s.swap(&domain.AuthState{User: cloneUser(user), IsReady: true})
}

func (s *Store) SignedOut() {
	s.swap(&domain.AuthState{IsReady: true})
}

// MarkReady flips IsReady without touching the user.
func (s *Store) MarkReady() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.state.Load()
	if cur.IsReady {
		return
	}
	next := &domain.AuthState{User: cur.User, IsReady: true}
	s.state.Store(next)
	s.notify(next)
}

func (s *Store) Subscribe(fn func(domain.AuthState)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) swap(next *domain.AuthState) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.state.Store(next)
	s.notify(next)
}

func (s *Store) notify(st *domain.AuthState) {
	s.mu.RLock()
	subs := make([]func(domain.AuthState), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(domain.AuthState{User: cloneUser(st.User), IsReady: st.IsReady})
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.UserMetadata != nil {
		c.UserMetadata = make(map[string]any, len(u.UserMetadata))
		for k, v := range u.UserMetadata {
			c.UserMetadata[k] = v
		}
	}
	return &c
}
