package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/uzhunt/internal/bypass"
	"github.com/FranksOps/uzhunt/internal/fingerprint"
	"github.com/FranksOps/uzhunt/internal/metrics"
	"github.com/FranksOps/uzhunt/pkg/httpclient"
	"github.com/FranksOps/uzhunt/pkg/proxy"
	"github.com/FranksOps/uzhunt/pkg/ratelimit"
	"github.com/FranksOps/uzhunt/pkg/useragent"
	"github.com/google/uuid"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// DefaultMaxBodyBytes caps how much of a page is kept.
const DefaultMaxBodyBytes = 5 << 20

// Page is a fetched document.
type Page struct {
	ID         string
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	FetchedAt  time.Time
	// Error describes a transport or read failure; StatusCode is 0 when the request failed.
	Error string
	// BlockedBy names the anti-bot mechanism that answered instead of the site.
	BlockedBy string
	Proxy     string
}

// Blocked reports whether an anti-bot page was returned.
func (p *Page) Blocked() bool {
	return p.BlockedBy != ""
}

// FetchConfig configures page fetches.
type FetchConfig struct {
	Timeout time.Duration
	// MaxRedirects defaults to 10; negative disables following redirects.
	MaxRedirects int
	UseCookieJar bool
	MaxBodyBytes int64
	ProxyPool    *proxy.Pool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	// InsecureSkipVerify disables TLS certificate checks.
	InsecureSkipVerify bool
	Limiter            *ratelimit.Limiter
	// Detectors default to bypass.DefaultDetectors.
	Detectors []bypass.Detector
	Logger    *slog.Logger
}

// Fetcher performs single URL fetches using the configured fingerprint, user
// agents and proxies. It holds one client, so cookies persist across fetches.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
	logger *slog.Logger
}

// NewFetcher initializes a new Fetcher with the given configuration.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 10
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if string(cfg.Fingerprint) == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(useragent.DefaultFor(string(cfg.Fingerprint)))
	}
	if cfg.Detectors == nil {
		cfg.Detectors = bypass.DefaultDetectors()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// The proxy for each request travels in its context so one transport can
	// rotate proxies without being rebuilt.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
			return u, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, fingerprint.Options{
		Proxy:              proxyFunc,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Header: http.Header{
			"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Language": {"en-US,en;q=0.7,ru;q=0.5,uz;q=0.3"},
		},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Fetcher{
		config: cfg,
		client: client,
		logger: cfg.Logger,
	}, nil
}

// Fetch GETs targetURL. Transport failures are reported in Page.Error; the
// returned error is reserved for a cancelled context.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	page := &Page{
		ID:  uuid.New().String(),
		URL: targetURL,
	}

	if f.config.Limiter != nil {
		if err := f.config.Limiter.Wait(ctx); err != nil {
			return page, fmt.Errorf("rate limiter: %w", err)
		}
		defer f.config.Limiter.Done()
	}

	start := time.Now()
	page.FetchedAt = start.UTC()
	host := hostOf(targetURL)

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		activeProxy = f.config.ProxyPool.Next()
	}

	reqCtx := ctx
	if activeProxy != nil {
		reqCtx = context.WithValue(ctx, proxyKey, activeProxy)
		page.Proxy = activeProxy.Redacted()
	}

	resp, err := f.client.Get(reqCtx, targetURL, http.Header{
		"User-Agent": {f.config.UAPool.Next()},
	})
	if err != nil {
		page.Error = fmt.Sprintf("request failed: %v", err)
		page.Duration = time.Since(start)
		if activeProxy != nil {
			_ = f.config.ProxyPool.MarkFailure(activeProxy)
			metrics.ProxyFailures.WithLabelValues(activeProxy.Redacted()).Inc()
		}
		metrics.RecordFetch(host, 0, true, "")
		if ctx.Err() != nil {
			return page, ctx.Err()
		}
		return page, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes))
	if err != nil {
		page.Error = fmt.Sprintf("failed to read body: %v", err)
	}

	page.StatusCode = resp.StatusCode
	page.FinalURL = resp.Request.URL.String()
	page.Headers = resp.Header
	page.Body = body
	page.Duration = time.Since(start)

	page.BlockedBy = bypass.Analyze(&bypass.Response{
		StatusCode: page.StatusCode,
		URL:        page.FinalURL,
		Headers:    page.Headers,
		Body:       page.Body,
	}, f.config.Detectors)

	if activeProxy != nil {
		if page.Blocked() {
			_ = f.config.ProxyPool.MarkBlocked(activeProxy)
		} else {
			_ = f.config.ProxyPool.MarkSuccess(activeProxy)
		}
	}

	if page.Blocked() {
		f.logger.Warn("request challenged", "url", targetURL, "status", page.StatusCode, "blocked_by", page.BlockedBy, "proxy", page.Proxy)
	}
	metrics.RecordFetch(host, page.StatusCode, page.Error != "", page.BlockedBy)

	return page, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
