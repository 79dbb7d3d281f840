package provision

import (
	"net/url"
	"strings"
)

// NormalizeDomain strips one leading "www." from host. Case is preserved, so
// "Example.com" and "example.com" are distinct cache keys.
func NormalizeDomain(host string) string {
	return strings.TrimPrefix(strings.TrimSpace(host), "www.")
}

// DomainFromURL returns the normalized hostname of a page URL, or "" when the URL
// has no host (file://, about:blank, garbage).
func DomainFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return NormalizeDomain(u.Hostname())
}
