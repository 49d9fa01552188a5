package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrMissingTokens      = errors.New("access token and refresh token are required")
	ErrNoUserInSession    = errors.New("session has no user")
	ErrSessionNotFound    = errors.New("session not found")
)

// APIError is a non-2xx answer from the hosted auth service.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("auth api: %d: %s", e.Status, e.Message)
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

func (s *Session) ExpiresWithin(d time.Duration, now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(d).Before(s.ExpiresAt)
}

// AuthClient is the hosted identity provider. It owns persisted session storage.
type AuthClient interface {
	SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error)
	GetSession(ctx context.Context) (*Session, error)
	RefreshSession(ctx context.Context) (*Session, error)
	SignOut(ctx context.Context) error
}

type SessionStorage interface {
	Load(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, key string, session *Session) error
	Delete(ctx context.Context, key string) error
}

type AuthStateStore interface {
	Snapshot() AuthState
	SignedIn(user *User)
	SignedOut()
	MarkReady()
	Subscribe(fn func(AuthState)) (unsubscribe func())
}

type SessionService interface {
	Restore(ctx context.Context) error
	Refresh(ctx context.Context) error
	SignOut(ctx context.Context) error
	State() AuthState
}
