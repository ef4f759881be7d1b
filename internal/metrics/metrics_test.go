package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/uzhunt/internal/storage"
)

func TestMetricsServer(t *testing.T) {
	srv := Start(18931)
	// Give it a tiny bit of time to start up
	time.Sleep(100 * time.Millisecond)

	defer srv.Stop(context.Background())

	RecordLookup(&storage.VerificationRecord{
		Domain:   "shop_uz.uz",
		Source:   "telegram",
		Status:   storage.StatusAvailable,
		Duration: 200 * time.Millisecond,
	})
	RecordLookup(&storage.VerificationRecord{
		Domain:    "slow.uz",
		Source:    "instagram",
		Status:    storage.StatusError,
		ErrorKind: "timeout",
		Duration:  10 * time.Second,
	})
	RecordLookup(nil)
	RecordFetch("www.google.com", 429, false, "GoogleSorry")
	SearchResultsTotal.WithLabelValues("telegram").Add(3)

	resp, err := http.Get("http://localhost:18931/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	output := string(body)

	for _, want := range []string{
		`uzhunt_whois_lookups_total{error_kind="",source="telegram",status="Available"} 1`,
		`uzhunt_whois_lookups_total{error_kind="timeout",source="instagram",status="Error"} 1`,
		`uzhunt_whois_lookup_duration_seconds_bucket`,
		`uzhunt_search_requests_total{blocked_by="GoogleSorry",host="www.google.com",status="429"} 1`,
		`uzhunt_search_results_total{source="telegram"} 3`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected metrics output to contain %s", want)
		}
	}
}

func TestStopNilServer(t *testing.T) {
	var s *Server
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}
