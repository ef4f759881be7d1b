package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/uzhunt/internal/candidate"
	"github.com/FranksOps/uzhunt/internal/metrics"
	"github.com/FranksOps/uzhunt/internal/serp"
	"github.com/FranksOps/uzhunt/internal/storage"
	"github.com/FranksOps/uzhunt/internal/verifier"
)

// DefaultMaxResults is the per-query result cap when none is configured.
const DefaultMaxResults = 50

// SourceHosts maps each source to the hosts whose links are its profiles.
var SourceHosts = map[candidate.Source][]string{
	candidate.SourceTelegram:  {"t.me", "telegram.me"},
	candidate.SourceInstagram: {"instagram.com"},
}

// Pipeline wires search, extraction and verification together.
type Pipeline struct {
	Provider serp.SERPProvider
	// Queries lists the search queries run for each source.
	Queries    map[candidate.Source][]string
	MaxResults int
	Verifier   *verifier.Verifier
	Logger     *slog.Logger
}

// Result is the outcome of one pipeline run.
type Result struct {
	Batches    []candidate.Batch
	Candidates []candidate.Candidate
	Records    []*storage.VerificationRecord
	// SearchErrors counts queries that failed or were cut short.
	SearchErrors int
	StartTime    time.Time
	EndTime      time.Time
}

// Run searches every source, collects unique candidates and verifies them.
// Failed queries are logged and the run continues with what was found.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.Provider == nil {
		return nil, errors.New("pipeline requires a search provider")
	}
	if p.Verifier == nil {
		return nil, errors.New("pipeline requires a verifier")
	}
	logger := p.logger()

	res := &Result{StartTime: time.Now().UTC()}
	res.Batches, res.SearchErrors = p.Search(ctx)
	if err := ctx.Err(); err != nil {
		res.EndTime = time.Now().UTC()
		return res, fmt.Errorf("search interrupted: %w", err)
	}

	res.Candidates = candidate.Collect(res.Batches, logger)
	for _, c := range res.Candidates {
		metrics.CandidatesTotal.WithLabelValues(string(c.Source)).Inc()
	}

	if len(res.Candidates) == 0 {
		logger.Info("no candidates found, nothing to do")
		res.Records = []*storage.VerificationRecord{}
		res.EndTime = time.Now().UTC()
		return res, nil
	}

	res.Records = p.Verifier.VerifyAll(ctx, res.Candidates)
	res.EndTime = time.Now().UTC()

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("verification interrupted: %w", err)
	}
	return res, nil
}

// Search runs the configured queries and returns one batch per source in
// candidate.Sources order. The second value counts failed queries.
func (p *Pipeline) Search(ctx context.Context) ([]candidate.Batch, int) {
	logger := p.logger()
	limit := p.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	var batches []candidate.Batch
	failed := 0

	for _, src := range candidate.Sources() {
		queries := p.Queries[src]
		if len(queries) == 0 {
			continue
		}

		batch := candidate.Batch{Source: src}
		for _, q := range queries {
			if ctx.Err() != nil {
				break
			}

			results, err := serp.SearchSource(ctx, p.Provider, string(src), q, limit)
			if err != nil {
				failed++
				logger.Warn("search failed", "source", src, "query", q, "results", len(results), "error", err)
			}

			urls := serp.FilterHosts(results, SourceHosts[src])
			for _, r := range urls {
				batch.URLs = append(batch.URLs, r.URL)
			}
			logger.Info("search finished", "source", src, "query", q, "profiles", len(urls))
		}
		batches = append(batches, batch)
	}

	return batches, failed
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
