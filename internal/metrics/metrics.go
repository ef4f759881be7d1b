package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/FranksOps/uzhunt/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WhoisLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uzhunt_whois_lookups_total",
			Help: "Total number of WHOIS lookups by resulting status",
		},
		[]string{"source", "status", "error_kind"},
	)

	WhoisLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uzhunt_whois_lookup_duration_seconds",
			Help:    "Duration of WHOIS lookups in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"status"},
	)

	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uzhunt_search_requests_total",
			Help: "Total number of search result pages fetched",
		},
		[]string{"host", "status", "blocked_by"},
	)

	SearchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uzhunt_search_results_total",
			Help: "Total number of profile URLs returned by search, per source",
		},
		[]string{"source"},
	)

	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uzhunt_candidates_total",
			Help: "Total number of unique qualifying candidates, per source",
		},
		[]string{"source"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uzhunt_proxy_failures_total",
			Help: "Total number of proxy failures during search fetches",
		},
		[]string{"proxy_url"},
	)
)

// RecordLookup updates the lookup metrics for a finished verification record.
func RecordLookup(rec *storage.VerificationRecord) {
	if rec == nil {
		return
	}
	status := string(rec.Status)
	WhoisLookupsTotal.WithLabelValues(rec.Source, status, rec.ErrorKind).Inc()
	WhoisLookupDuration.WithLabelValues(status).Observe(rec.Duration.Seconds())
}

// RecordFetch updates the search fetch counter. A failed request is labelled "error".
func RecordFetch(host string, statusCode int, failed bool, blockedBy string) {
	statusStr := strconv.Itoa(statusCode)
	if failed {
		statusStr = "error"
	}
	SearchRequestsTotal.WithLabelValues(host, statusStr, blockedBy).Inc()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "port", port, "error", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
