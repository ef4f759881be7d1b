package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FranksOps/uzhunt/internal/export"
	"github.com/FranksOps/uzhunt/internal/metrics"
	"github.com/FranksOps/uzhunt/internal/pipeline"
	"github.com/FranksOps/uzhunt/internal/report"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search for profiles, verify their .uz domains and write an xlsx report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd)
		},
	}

	cmd.Flags().IntP("max-results", "n", 50, "Maximum search results per query")
	cmd.Flags().IntP("concurrency", "c", 1, "Number of concurrent WHOIS lookups")
	cmd.Flags().Duration("delay", 500*time.Millisecond, "Minimum spacing between WHOIS lookups")
	cmd.Flags().Bool("sanitize", false, "Strip characters that are invalid in domain labels from handles")
	cmd.Flags().StringP("output", "o", "results", "Directory for the xlsx report")
	cmd.Flags().String("backend", "none", "Storage backend: none, csv, json, sqlite, postgres")
	cmd.Flags().String("dsn", "", "Storage file path or postgres connection string")
	cmd.Flags().Int("metrics-port", 0, "Expose Prometheus metrics on this port (0 disables)")

	a.bind(cmd, "search.max_results", "max-results")
	a.bind(cmd, "verify.concurrency", "concurrency")
	a.bind(cmd, "verify.delay", "delay")
	a.bind(cmd, "verify.sanitize", "sanitize")
	a.bind(cmd, "output.dir", "output")
	a.bind(cmd, "storage.backend", "backend")
	a.bind(cmd, "storage.dsn", "dsn")
	a.bind(cmd, "metrics.port", "metrics-port")

	return cmd
}

func (a *app) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := a.cfg

	backend, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	if backend != nil {
		defer backend.Close()
	}

	if cfg.Metrics.Port > 0 {
		srv := metrics.Start(cfg.Metrics.Port)
		a.logger.Info("metrics server listening", "port", cfg.Metrics.Port)
		defer srv.Stop(context.Background())
	}

	provider, err := newProvider(cfg, a.logger)
	if err != nil {
		return err
	}
	queries, err := cfg.SourceQueries()
	if err != nil {
		return err
	}

	p := &pipeline.Pipeline{
		Provider:   provider,
		Queries:    queries,
		MaxResults: cfg.Search.MaxResults,
		Verifier:   newVerifier(cfg, backend, a.logger),
		Logger:     a.logger,
	}

	res, runErr := p.Run(ctx)
	if res == nil {
		return runErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if len(res.Records) > 0 {
		path, err := export.SaveFile(cfg.Output.Dir, res.Records, res.StartTime.Local())
		if err != nil {
			return err
		}
		a.logger.Info("report saved", "path", path, "records", len(res.Records))
	}

	if err := report.WriteText(cmd.OutOrStdout(), report.GenerateSummary(res.Records)); err != nil {
		return err
	}
	return runErr
}
