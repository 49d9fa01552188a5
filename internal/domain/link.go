package domain

import (
	"context"
	"net/url"
)

// IncomingLink is a received URL plus its parsed components.
type IncomingLink struct {
	Raw       string     `json:"raw"`
	Scheme    string     `json:"scheme"`
	Host      string     `json:"host"`
	Path      string     `json:"path"`
	Query     url.Values `json:"query"`
	Fragment  url.Values `json:"fragment"`
	Malformed bool       `json:"malformed"`
}

type AuthCredential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

func (c AuthCredential) HasTokens() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// Extraction is the credential material found in an auth callback.
type Extraction struct {
	Credential       AuthCredential
	Error            string
	ErrorDescription string
}

// LinkSource supplies the launch URL once and later URLs as they arrive.
type LinkSource interface {
	InitialURL(ctx context.Context) (string, bool, error)
	Subscribe(onURL func(string)) (unsubscribe func())
}

// LinkCache remembers outcomes of already processed links.
type LinkCache interface {
	Get(ctx context.Context, key string) (*Outcome, bool, error)
	Put(ctx context.Context, key string, outcome Outcome) error
}

type LinkResolver interface {
	Resolve(ctx context.Context, raw string) Outcome
}

type DeepLinkRequest struct {
	URL string `json:"url" validate:"required,max=8192"`
}

// LinkOutcomeLog keeps a bounded history of resolver runs.
type LinkOutcomeLog interface {
	Append(ctx context.Context, evt EventLinkResolved) (string, error)
	Recent(ctx context.Context, limit int64) ([]EventLinkResolved, error)
}
