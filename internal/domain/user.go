// Package domain
package domain

import (
	"time"
)

type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Identifier is what the UI shows as "signed in as".
func (u *User) Identifier() string {
	switch {
	case u == nil:
		return ""
	case u.Email != "":
		return u.Email
	case u.Phone != "":
		return u.Phone
	default:
		return u.ID
	}
}

// AuthState is the process-wide authentication record.
type AuthState struct {
	User    *User `json:"user"`
	IsReady bool  `json:"is_ready"`
}
