// Package verifier drives WHOIS lookups and classification over a batch of candidates.
package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/uzhunt/internal/candidate"
	"github.com/FranksOps/uzhunt/internal/classifier"
	"github.com/FranksOps/uzhunt/internal/metrics"
	"github.com/FranksOps/uzhunt/internal/storage"
	"github.com/FranksOps/uzhunt/internal/whois"
	"github.com/FranksOps/uzhunt/pkg/ratelimit"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTLD   = "uz"
	DefaultDelay = 500 * time.Millisecond
)

// Looker performs a single registry lookup. *whois.Client satisfies it.
type Looker interface {
	Lookup(ctx context.Context, domain string) whois.Response
}

// Config controls pacing, parallelism and persistence of a verification batch.
type Config struct {
	// TLD is appended to each handle to form the lookup domain.
	TLD string
	// Delay is the pause between the end of one lookup and the start of the
	// next, shared across all workers. Ignored when Limiter is set.
	Delay   time.Duration
	Limiter *ratelimit.Limiter
	// Concurrency bounds the number of outstanding lookups. Values below 1 mean 1.
	Concurrency int
	// Sanitize applies candidate.Clean to handles before building the domain.
	Sanitize bool
	// Backend, when set, receives every record as soon as it is produced.
	Backend storage.Backend
	// OnRecord is called after each record is produced. It may be called
	// concurrently when Concurrency > 1.
	OnRecord func(index int, rec *storage.VerificationRecord)
	Logger   *slog.Logger
}

// Verifier turns candidates into verification records.
type Verifier struct {
	cfg     Config
	looker  Looker
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// New creates a Verifier using looker for registry queries.
func New(looker Looker, cfg Config) *Verifier {
	if cfg.TLD == "" {
		cfg.TLD = DefaultTLD
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(cfg.Delay, 0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		cfg:     cfg,
		looker:  looker,
		limiter: limiter,
		logger:  logger,
	}
}

// Domain returns the lookup domain for c under the verifier's settings.
func (v *Verifier) Domain(c candidate.Candidate) string {
	if v.cfg.Sanitize {
		c.Handle = candidate.Clean(c.Handle)
	}
	return c.Domain(v.cfg.TLD)
}

// VerifyAll returns exactly one record per candidate, in candidate order.
// Lookup failures produce Error records and never stop the batch. Once ctx is
// done, the remaining candidates get Error records without being looked up.
func (v *Verifier) VerifyAll(ctx context.Context, candidates []candidate.Candidate) []*storage.VerificationRecord {
	records := make([]*storage.VerificationRecord, len(candidates))
	if len(candidates) == 0 {
		return records
	}

	v.logger.Info("verifying candidates",
		"count", len(candidates),
		"concurrency", v.cfg.Concurrency,
		"delay", v.limiter.Interval(),
	)

	var g errgroup.Group
	g.SetLimit(v.cfg.Concurrency)

	for i, c := range candidates {
		g.Go(func() error {
			rec := v.verify(ctx, c)
			records[i] = rec
			if v.cfg.OnRecord != nil {
				v.cfg.OnRecord(i, rec)
			}
			return nil
		})
	}
	_ = g.Wait()

	return records
}

// Verify checks a single candidate.
func (v *Verifier) Verify(ctx context.Context, c candidate.Candidate) *storage.VerificationRecord {
	return v.verify(ctx, c)
}

func (v *Verifier) verify(ctx context.Context, c candidate.Candidate) *storage.VerificationRecord {
	domain := v.Domain(c)
	checkedAt := time.Now().UTC()

	var resp whois.Response
	if v.cfg.Sanitize && candidate.Clean(c.Handle) == "" {
		resp = whois.Response{Err: whois.ErrSkipped, Detail: "handle is empty after cleaning"}
	} else if err := v.limiter.Wait(ctx); err != nil {
		resp = whois.Response{Err: whois.ErrSkipped, Detail: fmt.Sprintf("rate limiter: %v", err)}
	} else {
		resp = v.looker.Lookup(ctx, domain)
		// The delay runs from the end of a lookup so a slow registry still gets a pause.
		v.limiter.Done()
	}

	rec := classifier.Classify(resp, domain)
	rec.ID = uuid.NewString()
	rec.Source = string(c.Source)
	rec.Handle = c.Handle
	rec.OriginURL = c.OriginURL
	rec.ErrorKind = string(resp.Err)
	rec.CheckedAt = checkedAt
	rec.Duration = resp.Duration

	metrics.RecordLookup(rec)

	if resp.Failed() {
		v.logger.Warn("lookup failed", "domain", domain, "kind", resp.Err, "detail", resp.Detail)
	} else {
		v.logger.Debug("lookup done", "domain", domain, "status", rec.Status, "duration", resp.Duration)
	}

	if v.cfg.Backend != nil {
		// Records of a cancelled batch are still persisted.
		if err := v.cfg.Backend.Save(context.WithoutCancel(ctx), rec); err != nil {
			v.logger.Error("failed to save record", "domain", domain, "error", err)
		}
	}

	return rec
}
