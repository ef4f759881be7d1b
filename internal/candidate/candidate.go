package candidate

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Source identifies the social network a profile URL was found on.
type Source string

const (
	SourceTelegram  Source = "telegram"
	SourceInstagram Source = "instagram"
)

// Sources lists the supported sources in their canonical processing order.
func Sources() []Source {
	return []Source{SourceTelegram, SourceInstagram}
}

// ParseSource maps a user-supplied source name to a Source.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceTelegram:
		return SourceTelegram, nil
	case SourceInstagram:
		return SourceInstagram, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

var (
	// ErrMalformedURL is returned when the input cannot be parsed as a URL.
	ErrMalformedURL = errors.New("malformed url")
	// ErrUnknownSource is returned for sources without a path convention.
	ErrUnknownSource = errors.New("unknown source")
)

// channelViewPrefix is the Telegram path segment for the public channel preview (t.me/s/<name>).
const channelViewPrefix = "s/"

// Candidate is a deduplicated, source-tagged handle eligible for domain verification.
type Candidate struct {
	Source    Source `json:"source"`
	Handle    string `json:"handle"`
	OriginURL string `json:"origin_url"`
}

// Key returns the uniqueness key of the candidate.
func (c Candidate) Key() string {
	return string(c.Source) + ":" + strings.ToLower(c.Handle)
}

// Domain builds the lookup domain for the candidate under tld.
func (c Candidate) Domain(tld string) string {
	return strings.ToLower(c.Handle) + "." + strings.TrimPrefix(tld, ".")
}

// Batch is the ordered list of profile URLs discovered for one source.
type Batch struct {
	Source Source
	URLs   []string
}

// Extract parses a profile URL and returns the bare handle for the given source.
// An empty handle with a nil error means the URL had no usable path.
func Extract(rawURL string, src Source) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}

	path := strings.Trim(u.Path, "/")

	var handle string
	switch src {
	case SourceTelegram:
		path = strings.TrimPrefix(path, channelViewPrefix)
		handle = firstSegment(path)
	case SourceInstagram:
		handle = firstSegment(path)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, src)
	}

	// Escaped query strings end up in the decoded path.
	if i := strings.IndexByte(handle, '?'); i != -1 {
		handle = handle[:i]
	}
	return strings.TrimSpace(handle), nil
}

// Handle is Extract without the failure detail: any fault yields "".
func Handle(rawURL string, src Source) string {
	h, err := Extract(rawURL, src)
	if err != nil {
		return ""
	}
	return h
}

func firstSegment(path string) string {
	if i := strings.IndexByte(path, '/'); i != -1 {
		return path[:i]
	}
	return path
}

// IsQualifying reports whether the handle ends with "uz", ignoring case.
func IsQualifying(handle string) bool {
	if handle == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(handle), "uz")
}

// Clean keeps only ASCII letters, digits, '-' and '_' and lowercases the result.
func Clean(handle string) string {
	var b strings.Builder
	b.Grow(len(handle))
	for i := 0; i < len(handle); i++ {
		c := handle[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + 32)
		}
	}
	return b.String()
}

// Collect extracts qualifying handles from every batch and drops duplicates.
// The first occurrence of a (source, lowercase handle) pair wins and output
// order follows the batches as given.
func Collect(batches []Batch, logger *slog.Logger) []Candidate {
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[string]struct{})
	var out []Candidate

	for _, b := range batches {
		found := 0
		for _, raw := range b.URLs {
			handle, err := Extract(raw, b.Source)
			if err != nil {
				logger.Debug("skipping url", "source", b.Source, "url", raw, "err", err)
				continue
			}
			if !IsQualifying(handle) {
				continue
			}

			c := Candidate{Source: b.Source, Handle: handle, OriginURL: raw}
			if _, dup := seen[c.Key()]; dup {
				continue
			}
			seen[c.Key()] = struct{}{}
			out = append(out, c)
			found++
		}
		logger.Info("collected candidates", "source", b.Source, "urls", len(b.URLs), "unique", found)
	}

	return out
}
