package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mates/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionStorage struct {
	db *pgxpool.Pool
}

func NewSessionStorage(db *pgxpool.Pool) domain.SessionStorage {
	return &SessionStorage{db: db}
}

func (s *SessionStorage) Load(ctx context.Context, key string) (*domain.Session, error) {
	query := `
		SELECT
			access_token,
			refresh_token,
			token_type,
			expires_in,
			expires_at,
			user_id,
			user_email,
			user_phone,
			user_role,
			user_metadata,
			user_created_at
		FROM auth_sessions
		WHERE storage_key = $1
	`

	var (
		sess          domain.Session
		expiresAt     *time.Time
		userID        *string
		email         *string
		phone         *string
		role          *string
		metadata      []byte
		userCreatedAt *time.Time
	)

	err := s.db.QueryRow(ctx, query, key).Scan(
		&sess.AccessToken,
		&sess.RefreshToken,
		&sess.TokenType,
		&sess.ExpiresIn,
		&expiresAt,
		&userID,
		&email,
		&phone,
		&role,
		&metadata,
		&userCreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if expiresAt != nil {
		sess.ExpiresAt = *expiresAt
	}

	if userID != nil {
		sess.User = &domain.User{
			ID:    *userID,
			Email: deref(email),
			Phone: deref(phone),
			Role:  deref(role),
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &sess.User.UserMetadata); err != nil {
				return nil, fmt.Errorf("failed to decode user metadata: %w", err)
			}
		}
		if userCreatedAt != nil {
			sess.User.CreatedAt = *userCreatedAt
		}
	}

	return &sess, nil
}

func (s *SessionStorage) Save(ctx context.Context, key string, sess *domain.Session) error {
	query := `
		INSERT INTO auth_sessions (
			storage_key,
			access_token,
			refresh_token,
			token_type,
			expires_in,
			expires_at,
			user_id,
			user_email,
			user_phone,
			user_role,
			user_metadata,
			user_created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (storage_key) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			expires_in = EXCLUDED.expires_in,
			expires_at = EXCLUDED.expires_at,
			user_id = EXCLUDED.user_id,
			user_email = EXCLUDED.user_email,
			user_phone = EXCLUDED.user_phone,
			user_role = EXCLUDED.user_role,
			user_metadata = EXCLUDED.user_metadata,
			user_created_at = EXCLUDED.user_created_at,
			updated_at = NOW()
	`

	var (
		expiresAt     *time.Time
		userID        *string
		email         *string
		phone         *string
		role          *string
		metadata      []byte
		userCreatedAt *time.Time
	)

	if !sess.ExpiresAt.IsZero() {
		expiresAt = &sess.ExpiresAt
	}

	if u := sess.User; u != nil {
		userID = &u.ID
		email = nullable(u.Email)
		phone = nullable(u.Phone)
		role = nullable(u.Role)
		if len(u.UserMetadata) > 0 {
			raw, err := json.Marshal(u.UserMetadata)
			if err != nil {
				return fmt.Errorf("failed to encode user metadata: %w", err)
			}
			metadata = raw
		}
		if !u.CreatedAt.IsZero() {
			userCreatedAt = &u.CreatedAt
		}
	}

	tokenType := sess.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}

	_, err := s.db.Exec(ctx, query,
		key,
		sess.AccessToken,
		sess.RefreshToken,
		tokenType,
		sess.ExpiresIn,
		expiresAt,
		userID,
		email,
		phone,
		role,
		metadata,
		userCreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (s *SessionStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM auth_sessions WHERE storage_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
