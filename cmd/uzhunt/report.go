package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/FranksOps/uzhunt/internal/export"
	"github.com/FranksOps/uzhunt/internal/report"
	"github.com/FranksOps/uzhunt/internal/storage"
	"github.com/spf13/cobra"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		format string
		out    string
		filter storage.Filter
		status string
		since  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize stored verification records",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Status = storage.Status(status)
			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}
			return a.report(cmd, filter, format, out)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, html, xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this file instead of stdout")
	cmd.Flags().StringVar(&filter.Domain, "domain", "", "Only records for this domain")
	cmd.Flags().StringVar(&filter.Source, "source", "", "Only records from this source")
	cmd.Flags().StringVar(&status, "status", "", "Only records with this status (Available, Registered, Unknown, Error)")
	cmd.Flags().DurationVar(&since, "since", 0, "Only records checked within this period, e.g. 24h")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum number of records (0 for all)")
	cmd.Flags().String("backend", "none", "Storage backend: csv, json, sqlite, postgres")
	cmd.Flags().String("dsn", "", "Storage file path or postgres connection string")
	a.bind(cmd, "storage.backend", "backend")
	a.bind(cmd, "storage.dsn", "dsn")

	return cmd
}

func (a *app) report(cmd *cobra.Command, filter storage.Filter, format, out string) error {
	ctx := cmd.Context()

	backend, err := openBackend(ctx, a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	if backend == nil {
		return errors.New("report needs a storage backend; set storage.backend or --backend")
	}
	defer backend.Close()

	records, err := backend.Query(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to query records: %w", err)
	}
	a.logger.Debug("loaded records", "count", len(records))

	var w io.Writer = cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	return writeReport(w, format, records)
}

func writeReport(w io.Writer, format string, records []*storage.VerificationRecord) error {
	switch format {
	case "text":
		return report.WriteText(w, report.GenerateSummary(records))
	case "json":
		return report.WriteJSON(w, report.GenerateSummary(records))
	case "html":
		return report.WriteHTML(w, report.GenerateSummary(records))
	case "xlsx":
		return export.Write(w, records)
	}
	return fmt.Errorf("unknown format %q", format)
}
