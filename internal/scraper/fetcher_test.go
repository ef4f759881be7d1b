package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/uzhunt/internal/bypass"
	"github.com/FranksOps/uzhunt/internal/fingerprint"
	"github.com/FranksOps/uzhunt/pkg/proxy"
	"github.com/FranksOps/uzhunt/pkg/useragent"
)

func TestFetcher_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "TestBrowser/1.0" {
			t.Errorf("expected User-Agent TestBrowser/1.0, got %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Accept-Language") == "" {
			t.Errorf("expected Accept-Language header")
		}
		w.Header().Set("X-Test", "true")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	fetcher, err := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		UAPool:      useragent.NewPool([]string{"TestBrowser/1.0"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := fetcher.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Error != "" {
		t.Fatalf("expected no fetch error, got %s", res.Error)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", res.StatusCode)
	}
	if string(res.Body) != "ok" {
		t.Errorf("expected body 'ok', got %s", string(res.Body))
	}
	if res.Headers.Get("X-Test") != "true" {
		t.Errorf("expected X-Test header 'true', got %v", res.Headers["X-Test"])
	}
	if res.Duration == 0 {
		t.Errorf("expected non-zero duration")
	}
	if res.ID == "" {
		t.Errorf("expected non-empty UUID")
	}
	if res.Blocked() {
		t.Errorf("expected page not to be blocked, got %s", res.BlockedBy)
	}
}

func TestFetcher_FollowsRedirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("done"))
	}))
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{Fingerprint: fingerprint.ProfileGo})
	res, _ := fetcher.Fetch(context.Background(), ts.URL+"/start")
	if res.Error != "" {
		t.Fatalf("unexpected fetch error: %s", res.Error)
	}
	if !strings.HasSuffix(res.FinalURL, "/end") {
		t.Errorf("expected final URL to end with /end, got %s", res.FinalURL)
	}
}

func TestFetcher_Blocked(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("unusual traffic from your computer network"))
	}))
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{Fingerprint: fingerprint.ProfileGo})
	res, err := fetcher.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.BlockedBy != bypass.SourceGoogleSorry {
		t.Errorf("expected %s, got %q", bypass.SourceGoogleSorry, res.BlockedBy)
	}
}

func TestFetcher_MaxBodyBytes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 1000)))
	}))
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{Fingerprint: fingerprint.ProfileGo, MaxBodyBytes: 10})
	res, _ := fetcher.Fetch(context.Background(), ts.URL)
	if len(res.Body) != 10 {
		t.Errorf("expected body capped at 10 bytes, got %d", len(res.Body))
	}
}

func TestFetcher_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{
		Timeout:     10 * time.Millisecond,
		Fingerprint: fingerprint.ProfileGo,
	})

	res, err := fetcher.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("expected timeout to be reported on the page, got error %v", err)
	}
	if res.Error == "" || !strings.Contains(res.Error, "request failed") {
		t.Errorf("expected timeout error, got %v", res.Error)
	}
}

func TestFetcher_Cancelled(t *testing.T) {
	fetcher, _ := NewFetcher(FetchConfig{Fingerprint: fingerprint.ProfileGo})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fetcher.Fetch(ctx, "http://127.0.0.1:1/"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestFetcher_Proxy(t *testing.T) {
	// A server acting as the proxy answers every request itself.
	proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer proxyServer.Close()

	pPool := proxy.NewPool(proxy.Config{MaxFailures: 1, Cooldown: 1 * time.Second})
	if err := pPool.Add(proxyServer.URL); err != nil {
		t.Fatalf("failed to add proxy: %v", err)
	}

	fetcher, _ := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		ProxyPool:   pPool,
	})

	targetServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer targetServer.Close()

	res, _ := fetcher.Fetch(context.Background(), targetServer.URL)

	if res.StatusCode != http.StatusTeapot {
		t.Errorf("expected 418 Teapot from proxy, got %d, err: %v", res.StatusCode, res.Error)
	}
	if res.Proxy == "" {
		t.Errorf("expected proxy to be recorded on the page")
	}
}
