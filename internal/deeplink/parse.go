// Package deeplink classifies incoming URLs and extracts auth credentials
// from them. Nothing in this package performs I/O.
package deeplink

import (
	"net/url"
	"strings"

	"mates/internal/domain"
)

// Parse never fails. URLs rejected by net/url are split by hand and flagged
// Malformed so that the substring checks in IsAuthCallback still apply.
func Parse(raw string) domain.IncomingLink {
	link := domain.IncomingLink{
		Raw:      raw,
		Query:    url.Values{},
		Fragment: url.Values{},
	}
	if strings.TrimSpace(raw) == "" {
		return link
	}

	u, err := url.Parse(raw)
	if err != nil {
		return parseLoose(link)
	}

	link.Scheme = strings.ToLower(u.Scheme)
	link.Host = u.Host
	link.Path = linkPath(link.Scheme, u.Host, u.Path, u.Opaque)
	link.Query = parseParams(u.RawQuery)
	link.Fragment = parseParams(u.EscapedFragment())

	return link
}

// For app schemes (mates://auth/callback) the host is the first path segment.
func linkPath(scheme, host, path, opaque string) string {
	if opaque != "" {
		path = opaque
	}
	if scheme == "" || scheme == "http" || scheme == "https" {
		return strings.TrimPrefix(path, "/")
	}
	if host == "" {
		return strings.TrimPrefix(path, "/")
	}
	return strings.TrimSuffix(host+"/"+strings.TrimPrefix(path, "/"), "/")
}

func parseLoose(link domain.IncomingLink) domain.IncomingLink {
	link.Malformed = true

	rest := link.Raw
	if i := strings.Index(rest, "#"); i >= 0 {
		link.Fragment = parseParams(rest[i+1:])
		rest = rest[:i]
	}
	if i := strings.Index(rest, "?"); i >= 0 {
		link.Query = parseParams(rest[i+1:])
		rest = rest[:i]
	}
	if i := strings.Index(rest, "://"); i >= 0 {
		link.Scheme = strings.ToLower(rest[:i])
		rest = rest[i+3:]
	}
	link.Path = strings.Trim(rest, "/")

	return link
}

// parseParams keeps whatever pairs it can decode; a bad escape drops only its own pair.
func parseParams(raw string) url.Values {
	values := url.Values{}
	for pair := range strings.SplitSeq(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil || k == "" {
			continue
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		values.Add(k, v)
	}
	return values
}
