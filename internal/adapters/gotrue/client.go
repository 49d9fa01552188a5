// Package gotrue talks to a GoTrue-compatible hosted auth service
// (the API behind Supabase Auth).
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"mates/internal/domain"
	"mates/internal/logger"

	"github.com/golang-jwt/jwt/v5"
)

// expiryMargin treats tokens this close to expiry as already expired.
const expiryMargin = 10 * time.Second

type Config struct {
	BaseURL    string
	APIKey     string
	StorageKey string
	Timeout    time.Duration
}

// Client owns the persisted session. Every read-modify-write of that session
// runs under mu, so a sign-out cannot be overwritten by a refresh in flight.
type Client struct {
	mu sync.Mutex

	cfg     Config
	http    *http.Client
	storage domain.SessionStorage
	log     logger.Logger
	now     func() time.Time
}

func NewClient(cfg Config, storage domain.SessionStorage, log logger.Logger) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		storage: storage,
		log:     log,
		now:     time.Now,
	}
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         *domain.User `json:"user"`
}

type errorResponse struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// SetSession validates a token pair from a magic link and persists the
// resulting session. An expired access token is traded in via the refresh token.
func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*domain.Session, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, domain.ErrMissingTokens
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	exp, err := expiresAt(accessToken)
	if err != nil {
		return nil, err
	}

	now := c.now()

	var sess *domain.Session
	if !now.Add(expiryMargin).Before(exp) {
		c.log.Debug("gotrue: access token expired, refreshing")
		sess, err = c.refresh(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
	} else {
		user, err := c.getUser(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		sess = &domain.Session{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "bearer",
			ExpiresIn:    int64(exp.Sub(now).Seconds()),
			ExpiresAt:    exp,
			User:         user,
		}
	}

	if err := c.storage.Save(ctx, c.cfg.StorageKey, sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return sess, nil
}

// GetSession returns the persisted session, refreshing it first when expired.
func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, err := c.storage.Load(ctx, c.cfg.StorageKey)
	if err != nil {
		return nil, err
	}

	if !sess.ExpiresWithin(expiryMargin, c.now()) {
		return sess, nil
	}

	return c.refreshStored(ctx)
}

func (c *Client) RefreshSession(ctx context.Context) (*domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.refreshStored(ctx)
}

func (c *Client) refreshStored(ctx context.Context) (*domain.Session, error) {
	current, err := c.storage.Load(ctx, c.cfg.StorageKey)
	if err != nil {
		return nil, err
	}

	sess, err := c.refresh(ctx, current.RefreshToken)
	if err != nil {
		return nil, err
	}

	if err := c.storage.Save(ctx, c.cfg.StorageKey, sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return sess, nil
}

// SignOut revokes the session at the provider and always forgets it locally.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, err := c.storage.Load(ctx, c.cfg.StorageKey)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	var logoutErr error
	if err := c.do(ctx, http.MethodPost, "/logout?scope=local", sess.AccessToken, nil, nil); err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized ||
			apiErr.Status == http.StatusForbidden || apiErr.Status == http.StatusNotFound) {
			c.log.Debug("gotrue: session already invalid at provider", "status", apiErr.Status)
		} else {
			logoutErr = err
		}
	}

	if err := c.storage.Delete(ctx, c.cfg.StorageKey); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	return logoutErr
}

func (c *Client) getUser(ctx context.Context, accessToken string) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, domain.ErrNoUserInSession
	}
	return &user, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var res tokenResponse
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &res); err != nil {
		return nil, err
	}
	if res.User == nil || res.User.ID == "" {
		return nil, domain.ErrNoUserInSession
	}

	sess := &domain.Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
		ExpiresIn:    res.ExpiresIn,
		User:         res.User,
	}
	switch {
	case res.ExpiresAt > 0:
		sess.ExpiresAt = time.Unix(res.ExpiresAt, 0)
	case res.ExpiresIn > 0:
		sess.ExpiresAt = c.now().Add(time.Duration(res.ExpiresIn) * time.Second)
	}

	return sess, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gotrue: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("gotrue: build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("apikey", c.cfg.APIKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return decodeError(res)
	}

	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("gotrue: decode response: %w", err)
	}
	return nil
}

func decodeError(res *http.Response) error {
	apiErr := &domain.APIError{Status: res.StatusCode, Message: http.StatusText(res.StatusCode)}

	data, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	var e errorResponse
	if json.Unmarshal(data, &e) != nil {
		return apiErr
	}

	apiErr.Code = firstNonEmpty(e.ErrorCode, e.Error)
	if msg := firstNonEmpty(e.Msg, e.Message, e.ErrorDescription); msg != "" {
		apiErr.Message = msg
	}
	return apiErr
}

// expiresAt reads the exp claim. The signature is checked by the provider
// when the token is used, not here.
func expiresAt(accessToken string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", domain.ErrInvalidAccessToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("%w: missing exp claim", domain.ErrInvalidAccessToken)
	}
	return exp.Time, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
