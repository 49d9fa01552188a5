package deeplink

import (
	"strings"

	"mates/internal/domain"
)

const callbackPath = "auth/callback"

// IsAuthCallback reports whether the link is an identity provider callback.
// Any one signal is enough:
//   - the path contains "auth/callback"
//   - the query carries access_token or refresh_token
//   - the raw string contains "#access_token=" or "&access_token="
//
// A provider error without the callback path is not recognised.
func IsAuthCallback(link domain.IncomingLink) bool {
	if strings.TrimSpace(link.Raw) == "" {
		return false
	}

	if strings.Contains(link.Path, callbackPath) {
		return true
	}

	if has(link.Query, "access_token") || has(link.Query, "refresh_token") {
		return true
	}

	// Fragment tokens and links the parser could only partially understand.
	return strings.Contains(link.Raw, "#access_token=") || strings.Contains(link.Raw, "&access_token=")
}

// Classify is IsAuthCallback over a raw string.
func Classify(raw string) bool {
	return IsAuthCallback(Parse(raw))
}

func has(params map[string][]string, key string) bool {
	v, ok := params[key]
	return ok && len(v) > 0
}
