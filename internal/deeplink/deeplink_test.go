package deeplink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mates/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		scheme    string
		path      string
		malformed bool
	}{
		{name: "app scheme host is part of path", raw: "mates://auth/callback#access_token=A1", scheme: "mates", path: "auth/callback"},
		{name: "app scheme triple slash", raw: "mates:///auth/callback", scheme: "mates", path: "auth/callback"},
		{name: "universal link", raw: "https://mates.app/auth/callback?x=1", scheme: "https", path: "auth/callback"},
		{name: "expo dev link", raw: "exp://192.168.1.2:8081/--/auth/callback", scheme: "exp", path: "192.168.1.2:8081/--/auth/callback"},
		{name: "plain route", raw: "mates://main", scheme: "mates", path: "main"},
		{name: "unparseable falls back to manual split", raw: "mates://auth/%zz?access_token=A1", scheme: "mates", path: "auth/%zz", malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := Parse(tt.raw)
			assert.Equal(t, tt.scheme, link.Scheme)
			assert.Equal(t, tt.path, link.Path)
			assert.Equal(t, tt.malformed, link.Malformed)
		})
	}
}

func TestParseKeepsDecodablePairs(t *testing.T) {
	link := Parse("mates://x#access_token=A1&bad=%zz&refresh_token=R1")

	assert.Equal(t, "A1", link.Fragment.Get("access_token"))
	assert.Equal(t, "R1", link.Fragment.Get("refresh_token"))
	assert.False(t, link.Fragment.Has("bad"))
}

func TestIsAuthCallback(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "empty", raw: "", want: false},
		{name: "blank", raw: "   ", want: false},
		{name: "unrelated app route", raw: "mates://chores/42", want: false},
		{name: "unrelated web page", raw: "https://mates.app/pricing?ref=home#top", want: false},
		{name: "callback path without tokens", raw: "mates://auth/callback", want: true},
		{name: "callback path reporting error only", raw: "https://mates.app/auth/callback?error=server_error", want: true},
		{name: "access token in query", raw: "mates://welcome?access_token=A1", want: true},
		{name: "refresh token in query", raw: "mates://welcome?refresh_token=R1", want: true},
		{name: "access token literal in fragment", raw: "mates://welcome#access_token=A1&refresh_token=R1", want: true},
		{name: "access token literal after ampersand", raw: "mates://welcome#refresh_token=R1&access_token=A1", want: true},
		{name: "refresh token only in fragment", raw: "mates://welcome#refresh_token=R1", want: false},
		{name: "escaped token name in fragment", raw: "https://mates.app/pricing#access%5Ftoken=A1", want: false},
		{name: "substring fallback on malformed link", raw: "mates://%zz#access_token=A1", want: true},
		{name: "substring fallback with ampersand", raw: "weird%zz&access_token=A1", want: true},
		{name: "bare error is not enough", raw: "mates://settings?error=oops", want: false},
		{name: "error with provider code outside callback path", raw: "mates://welcome#error=access_denied&error_code=otp_expired", want: false},
		{name: "error with state outside callback path", raw: "mates://welcome?error=invalid_request&state=xyz", want: false},
		{name: "error on callback path", raw: "mates://auth/callback#error=access_denied&error_code=otp_expired", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw))
		})
	}
}

func TestExtractFromFragmentIgnoresQueryForSameKeys(t *testing.T) {
	raw := "mates://auth/callback?access_token=Q1&refresh_token=QR&token_type=query&expires_in=10" +
		"#access_token=A1&refresh_token=R1&token_type=bearer&expires_in=3600"

	got := Extract(Parse(raw))

	assert.Equal(t, domain.AuthCredential{
		AccessToken:  "A1",
		RefreshToken: "R1",
		TokenType:    "bearer",
		ExpiresIn:    3600,
	}, got.Credential)
	assert.Empty(t, got.Error)
}

func TestExtractFallsBackToQueryPerField(t *testing.T) {
	raw := "mates://auth/callback?refresh_token=QR&expires_in=60#access_token=A1"

	got := Extract(Parse(raw))

	assert.Equal(t, "A1", got.Credential.AccessToken)
	assert.Equal(t, "QR", got.Credential.RefreshToken)
	assert.Equal(t, int64(60), got.Credential.ExpiresIn)
	assert.True(t, got.Credential.HasTokens())
}

func TestExtractError(t *testing.T) {
	got := Extract(Parse("mates://auth/callback#error=access_denied&error_description=User+cancelled"))

	assert.Equal(t, "access_denied", got.Error)
	assert.Equal(t, "User cancelled", got.ErrorDescription)
	assert.False(t, got.Credential.HasTokens())
}

func TestExtractIgnoresBadExpiry(t *testing.T) {
	got := Extract(Parse("mates://auth/callback#access_token=A1&refresh_token=R1&expires_in=soon"))

	assert.Zero(t, got.Credential.ExpiresIn)
}

func TestExtractIsSourceAgnostic(t *testing.T) {
	pairs := []string{
		"access_token=A1&refresh_token=R1&token_type=bearer&expires_in=3600",
		"access_token=eyJhbGciOi.x-y_z&refresh_token=r%2Fslash&token_type=bearer",
		"access_token=A1&refresh_token=R1",
		"refresh_token=R1",
	}

	for _, p := range pairs {
		t.Run(p, func(t *testing.T) {
			fromFragment := Extract(Parse("mates://auth/callback#" + p))
			fromQuery := Extract(Parse("mates://auth/callback?" + p))

			require.Equal(t, fromFragment.Credential, fromQuery.Credential)
		})
	}
}
