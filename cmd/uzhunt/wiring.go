package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FranksOps/uzhunt/internal/config"
	"github.com/FranksOps/uzhunt/internal/fingerprint"
	"github.com/FranksOps/uzhunt/internal/scraper"
	"github.com/FranksOps/uzhunt/internal/serp"
	"github.com/FranksOps/uzhunt/internal/storage"
	"github.com/FranksOps/uzhunt/internal/storage/csvbackend"
	"github.com/FranksOps/uzhunt/internal/storage/jsonbackend"
	"github.com/FranksOps/uzhunt/internal/storage/postgres"
	"github.com/FranksOps/uzhunt/internal/storage/sqlite"
	"github.com/FranksOps/uzhunt/internal/verifier"
	"github.com/FranksOps/uzhunt/internal/whois"
	"github.com/FranksOps/uzhunt/pkg/proxy"
	"github.com/FranksOps/uzhunt/pkg/ratelimit"
)

// openBackend returns nil when storage is disabled.
func openBackend(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendNone, "":
		return nil, nil
	case config.BackendCSV:
		return csvbackend.New(cfg.DSN)
	case config.BackendJSON:
		return jsonbackend.New(cfg.DSN)
	case config.BackendSQLite:
		return sqlite.New(cfg.DSN)
	case config.BackendPostgres:
		return postgres.New(ctx, cfg.DSN)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func newVerifier(cfg *config.Config, backend storage.Backend, logger *slog.Logger) *verifier.Verifier {
	client := whois.NewClient(whois.Config{
		Server:           cfg.Whois.Server,
		Port:             cfg.Whois.Port,
		Timeout:          cfg.Whois.Timeout,
		MaxResponseBytes: cfg.Whois.MaxResponseBytes,
		Logger:           logger,
	})

	return verifier.New(client, verifier.Config{
		TLD:         cfg.Verify.TLD,
		Delay:       cfg.Verify.Delay,
		Concurrency: cfg.Verify.Concurrency,
		Sanitize:    cfg.Verify.Sanitize,
		Backend:     backend,
		Logger:      logger,
		OnRecord: func(i int, rec *storage.VerificationRecord) {
			logger.Info("checked", "n", i+1, "domain", rec.Domain, "status", rec.Status)
		},
	})
}

func newProvider(cfg *config.Config, logger *slog.Logger) (serp.SERPProvider, error) {
	profile, err := fingerprint.ParseProfile(cfg.Search.Fingerprint)
	if err != nil {
		return nil, err
	}

	var pool *proxy.Pool
	if cfg.Search.ProxiesFile != "" {
		pool = proxy.NewPool(proxy.Config{})
		if err := pool.LoadFile(cfg.Search.ProxiesFile); err != nil {
			return nil, fmt.Errorf("failed to load proxies: %w", err)
		}
		logger.Info("loaded proxies", "count", pool.Len())
	}

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:      cfg.Search.Timeout,
		UseCookieJar: true,
		ProxyPool:    pool,
		Fingerprint:  profile,
		Limiter:      ratelimit.NewLimiter(cfg.Search.Delay, cfg.Search.Jitter),
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return serp.NewGoogleScrape(fetcher, serp.GoogleConfig{
		BaseURL: cfg.Search.BaseURL,
		Logger:  logger,
	}), nil
}
