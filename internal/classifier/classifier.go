// Package classifier turns raw registry reply text into a VerificationRecord.
package classifier

import (
	"regexp"
	"strings"

	"github.com/FranksOps/uzhunt/internal/storage"
	"github.com/FranksOps/uzhunt/internal/whois"
)

// ExcerptLength is the number of characters of reply text kept on every record.
const ExcerptLength = 500

// notFoundPhrases mark a reply for a domain that has no registration.
var notFoundPhrases = []string{
	"not found",
	"no entries found",
	"no match",
	"nothing found",
	"domain not found",
	"not registered",
}

// throttlePhrases mark a reply where the registry refused to answer.
var throttlePhrases = []string{
	"number of allowed queries exceeded",
	"query limit",
	"rate limit",
	"too many requests",
}

// rule sets one record field from the first capture group of pattern.
type rule struct {
	field   string
	pattern *regexp.Regexp
	set     func(r *storage.VerificationRecord, v string)
}

const datePattern = `(\d{4}-\d{2}-\d{2})`

func setExpiry(r *storage.VerificationRecord, v string)    { r.ExpiryDate = v }
func setCreated(r *storage.VerificationRecord, v string)   { r.CreatedDate = v }
func setRegistrar(r *storage.VerificationRecord, v string) { r.Registrar = strings.TrimSpace(v) }

// rules are grouped by field; within a field the first matching pattern wins.
var rules = []rule{
	{"expiry", regexp.MustCompile(`(?i)expir[ey]\s*date:?\s*` + datePattern), setExpiry},
	{"expiry", regexp.MustCompile(`(?i)expiration\s*date:?\s*` + datePattern), setExpiry},
	{"expiry", regexp.MustCompile(`(?i)expire[sd]?:?\s*` + datePattern), setExpiry},
	{"expiry", regexp.MustCompile(`(?i)registry\s+expiry\s+date:?\s*` + datePattern), setExpiry},

	{"created", regexp.MustCompile(`(?i)creation\s*date:?\s*` + datePattern), setCreated},
	{"created", regexp.MustCompile(`(?i)created:?\s*` + datePattern), setCreated},
	{"created", regexp.MustCompile(`(?i)registered:?\s*` + datePattern), setCreated},

	{"registrar", regexp.MustCompile(`(?im)\bregistrar:\s*(\S.*)$`), setRegistrar},
	{"registrar", regexp.MustCompile(`(?im)sponsoring\s+registrar:?\s*(\S.*)$`), setRegistrar},
	{"registrar", regexp.MustCompile(`(?im)\bregistrar:?\s*(\S.*)$`), setRegistrar},
}

// Classify maps a lookup response for domain to a record. It performs no I/O and
// fills only the fields derived from the response; callers stamp the metadata.
func Classify(resp whois.Response, domain string) *storage.VerificationRecord {
	rec := &storage.VerificationRecord{
		Domain:     domain,
		RawExcerpt: Excerpt(resp.Text),
	}

	if resp.Failed() {
		rec.Status = storage.StatusError
		rec.ErrorKind = string(resp.Err)
		return rec
	}

	lower := strings.ToLower(resp.Text)

	if containsAny(lower, notFoundPhrases) {
		rec.Status = storage.StatusAvailable
		return rec
	}

	if strings.TrimSpace(lower) == "" || containsAny(lower, throttlePhrases) {
		rec.Status = storage.StatusUnknown
		return rec
	}

	rec.Status = storage.StatusRegistered
	applyRules(rec, resp.Text, rules)
	return rec
}

// applyRules runs each rule in order, skipping fields an earlier rule already set.
func applyRules(rec *storage.VerificationRecord, text string, rs []rule) {
	done := make(map[string]bool, 3)
	for _, r := range rs {
		if done[r.field] {
			continue
		}
		m := r.pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		r.set(rec, m[1])
		done[r.field] = true
	}
}

// Excerpt returns at most ExcerptLength characters of text.
func Excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= ExcerptLength {
		return text
	}
	return string(runes[:ExcerptLength])
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
