package serp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/FranksOps/uzhunt/internal/metrics"
	"github.com/FranksOps/uzhunt/internal/scraper"
	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultGoogleURL = "https://www.google.com/search"
	// ResultsPerPage is how many organic results Google shows per page.
	ResultsPerPage = 10
)

// Fetcher retrieves a result page. *scraper.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) (*scraper.Page, error)
}

// GoogleConfig configures GoogleScrape.
type GoogleConfig struct {
	// BaseURL is the search endpoint; defaults to DefaultGoogleURL.
	BaseURL string
	// Hosts restricts results to profile links; defaults to ProfileHosts.
	Hosts  []string
	Logger *slog.Logger
}

// GoogleScrape is a SERPProvider that scrapes Google's HTML result pages.
type GoogleScrape struct {
	fetcher Fetcher
	cfg     GoogleConfig
	logger  *slog.Logger
}

var _ SERPProvider = (*GoogleScrape)(nil)

// NewGoogleScrape creates a Google provider fetching pages through f. Pacing
// between pages is the fetcher's limiter.
func NewGoogleScrape(f Fetcher, cfg GoogleConfig) *GoogleScrape {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGoogleURL
	}
	if len(cfg.Hosts) == 0 {
		cfg.Hosts = ProfileHosts
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleScrape{fetcher: f, cfg: cfg, logger: logger}
}

// PageURL builds the URL of the zero-based result page for query.
func (g *GoogleScrape) PageURL(query string, page int) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("start", strconv.Itoa(page*ResultsPerPage))
	sep := "?"
	if strings.Contains(g.cfg.BaseURL, "?") {
		sep = "&"
	}
	return g.cfg.BaseURL + sep + v.Encode()
}

// Search walks result pages until limit profile links are found or
// limit/ResultsPerPage+1 pages were read. Pages that fail to load are skipped.
// A challenge page stops the search and the links found so far are returned
// with ErrBlocked.
func (g *GoogleScrape) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit cannot be negative: %d", limit)
	}
	if limit == 0 {
		return []Result{}, nil
	}

	pages := limit/ResultsPerPage + 1
	results := make([]Result, 0, limit)
	seen := make(map[string]struct{})

	for page := 0; page < pages && len(results) < limit; page++ {
		target := g.PageURL(query, page)
		g.logger.Debug("fetching result page", "query", query, "page", page+1)

		p, err := g.fetcher.Fetch(ctx, target)
		if err != nil {
			return results, fmt.Errorf("fetch page %d: %w", page+1, err)
		}
		if p.Blocked() {
			return results, fmt.Errorf("page %d: %w by %s", page+1, ErrBlocked, p.BlockedBy)
		}
		if p.Error != "" {
			g.logger.Warn("result page failed", "query", query, "page", page+1, "error", p.Error)
			continue
		}
		if p.StatusCode != http.StatusOK {
			g.logger.Warn("unexpected status for result page", "query", query, "page", page+1, "status", p.StatusCode)
			continue
		}

		links, err := ParseResults(p.Body)
		if err != nil {
			g.logger.Warn("failed to parse result page", "query", query, "page", page+1, "error", err)
			continue
		}

		for _, link := range links {
			if !MatchHost(link, g.cfg.Hosts) {
				continue
			}
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			results = append(results, Result{URL: link, Page: page})
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SearchSource runs a search and counts the results under source.
func SearchSource(ctx context.Context, p SERPProvider, source, query string, limit int) ([]Result, error) {
	results, err := p.Search(ctx, query, limit)
	metrics.SearchResultsTotal.WithLabelValues(source).Add(float64(len(results)))
	return results, err
}

// ParseResults extracts outbound links from a Google result page. Redirect
// links of the form /url?q=<target>&... are unwrapped; absolute http(s) links
// are returned as is. Order of appearance is preserved.
func ParseResults(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if link := unwrapLink(href); link != "" {
			links = append(links, link)
		}
	})
	return links, nil
}

func unwrapLink(href string) string {
	href = strings.TrimSpace(href)
	if i := strings.Index(href, "/url?"); i != -1 {
		// ParseQuery keeps the valid pairs even when it reports an error. The
		// target comes back percent-decoded, so non-ASCII handles are returned
		// in their readable form.
		q, _ := url.ParseQuery(href[i+len("/url?"):])
		target := q.Get("q")
		if target == "" {
			target = q.Get("url")
		}
		if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
			return target
		}
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return ""
}
