package serp

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ErrBlocked is returned when the search engine answered with a challenge page.
var ErrBlocked = errors.New("search blocked")

// Result is one organic result link.
type Result struct {
	URL string `json:"url"`
	// Page is the zero-based result page the link was found on.
	Page int `json:"page"`
}

// SERPProvider abstracts a search engine provider that returns result links for
// a query. The limit parameter caps the number of results returned. Providers
// may return partial results together with an error.
type SERPProvider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// ProfileHosts are the hosts whose links count as profile results by default.
var ProfileHosts = []string{"t.me", "telegram.me", "instagram.com"}

// NormalizeHost lowercases host, converts it to its ASCII form and drops a
// leading "www.".
func NormalizeHost(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	return strings.TrimPrefix(host, "www.")
}

// MatchHost reports whether rawURL is an http(s) link with a path on one of
// hosts or their subdomains.
func MatchHost(rawURL string, hosts []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if strings.Trim(u.Path, "/") == "" {
		return false
	}

	host := NormalizeHost(u.Hostname())
	for _, h := range hosts {
		h = NormalizeHost(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// FilterHosts keeps the results whose URL matches hosts, preserving order.
func FilterHosts(results []Result, hosts []string) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if MatchHost(r.URL, hosts) {
			out = append(out, r)
		}
	}
	return out
}
