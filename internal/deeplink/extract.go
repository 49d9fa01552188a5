package deeplink

import (
	"strconv"
	"strings"

	"mates/internal/domain"
)

// Extract reads credential fields fragment first, query second, per field.
// Missing tokens are not an error here; the resolver decides what they mean.
func Extract(link domain.IncomingLink) domain.Extraction {
	get := func(key string) string {
		if v := strings.TrimSpace(link.Fragment.Get(key)); v != "" {
			return v
		}
		return strings.TrimSpace(link.Query.Get(key))
	}

	cred := domain.AuthCredential{
		AccessToken:  get("access_token"),
		RefreshToken: get("refresh_token"),
		TokenType:    get("token_type"),
	}

	if raw := get("expires_in"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			cred.ExpiresIn = n
		}
	}

	return domain.Extraction{
		Credential:       cred,
		Error:            get("error"),
		ErrorDescription: get("error_description"),
	}
}
