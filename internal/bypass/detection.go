package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Response is the part of an HTTP reply the detectors look at.
type Response struct {
	StatusCode int
	// URL is the final URL after redirects.
	URL     string
	Headers http.Header
	Body    []byte
}

// Detector examines a response to determine if an anti-bot mechanism blocked
// or challenged the request.
type Detector func(res *Response) (detected bool, source string)

// Detection sources.
const (
	SourceGoogleSorry   = "GoogleSorry"
	SourceGoogleConsent = "GoogleConsent"
	SourceRecaptcha     = "reCAPTCHA"
	SourceCloudflare    = "Cloudflare"
)

// DefaultDetectors returns the standard list of detectors for search result pages.
func DefaultDetectors() []Detector {
	return []Detector{
		detectGoogleSorry,
		detectGoogleConsent,
		detectRecaptcha,
		detectCloudflare,
	}
}

// Analyze runs the response through detectors and returns the first source
// that triggered, or "" if none did.
func Analyze(res *Response, detectors []Detector) string {
	if res == nil {
		return ""
	}
	for _, d := range detectors {
		if detected, source := d(res); detected {
			return source
		}
	}
	return ""
}

func getHeader(headers http.Header, key string) string {
	if v := headers.Get(key); v != "" {
		return v
	}
	// Case-insensitive fallback for headers not stored in canonical form
	lowerKey := strings.ToLower(key)
	for k, vals := range headers {
		if strings.ToLower(k) == lowerKey && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

// detectGoogleSorry looks for Google's automated-traffic interstitial.
func detectGoogleSorry(res *Response) (bool, string) {
	if strings.Contains(res.URL, "/sorry/") {
		return true, SourceGoogleSorry
	}
	if res.StatusCode == http.StatusTooManyRequests {
		return true, SourceGoogleSorry
	}
	if strings.Contains(getHeader(res.Headers, "Location"), "/sorry/") {
		return true, SourceGoogleSorry
	}
	if bytes.Contains(res.Body, []byte("unusual traffic from your computer network")) ||
		bytes.Contains(res.Body, []byte("/sorry/index")) {
		return true, SourceGoogleSorry
	}
	return false, ""
}

// detectGoogleConsent looks for the EU cookie consent wall served instead of results.
func detectGoogleConsent(res *Response) (bool, string) {
	if strings.Contains(res.URL, "consent.google.") {
		return true, SourceGoogleConsent
	}
	if strings.Contains(getHeader(res.Headers, "Location"), "consent.google.") {
		return true, SourceGoogleConsent
	}
	return false, ""
}

// detectRecaptcha looks for an embedded reCAPTCHA challenge.
func detectRecaptcha(res *Response) (bool, string) {
	if bytes.Contains(res.Body, []byte("g-recaptcha")) ||
		bytes.Contains(res.Body, []byte("www.google.com/recaptcha/api")) {
		return true, SourceRecaptcha
	}
	return false, ""
}

// detectCloudflare looks for common Cloudflare challenge/block signatures.
func detectCloudflare(res *Response) (bool, string) {
	if res.StatusCode != http.StatusForbidden && res.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}

	server := strings.ToLower(getHeader(res.Headers, "Server"))
	if strings.Contains(server, "cloudflare") {
		return true, SourceCloudflare
	}

	if bytes.Contains(res.Body, []byte("cf-browser-verification")) ||
		bytes.Contains(res.Body, []byte("cf-turnstile")) ||
		bytes.Contains(res.Body, []byte("Attention Required! | Cloudflare")) {
		return true, SourceCloudflare
	}
	return false, ""
}
