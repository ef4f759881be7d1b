package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/FranksOps/uzhunt/internal/storage"
	"github.com/google/uuid"
)

func TestPostgresBackend(t *testing.T) {
	// Only run this test if UZHUNT_TEST_PG_DSN is set
	dsn := os.Getenv("UZHUNT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres backend test: UZHUNT_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	b, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create Postgres backend: %v", err)
	}
	defer b.Close()

	now := time.Now().UTC()
	domain := "pg-" + uuid.NewString()[:8] + ".uz"

	rec := &storage.VerificationRecord{
		ID:         uuid.NewString(),
		Domain:     domain,
		Status:     storage.StatusRegistered,
		ExpiryDate: "2026-03-01",
		Registrar:  "Example LLC",
		Source:     "telegram",
		Handle:     "pg",
		CheckedAt:  now,
		Duration:   50 * time.Millisecond,
		RawExcerpt: "Registrar: Example LLC",
	}

	if err := b.Save(ctx, rec); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	results, err := b.Query(ctx, storage.Filter{Domain: domain})
	if err != nil {
		t.Fatalf("Failed to query records: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}

	got := results[0]
	if got.ID != rec.ID {
		t.Errorf("Expected ID %s, got %s", rec.ID, got.ID)
	}
	if got.Status != rec.Status {
		t.Errorf("Expected Status %s, got %s", rec.Status, got.Status)
	}
	if got.Registrar != rec.Registrar {
		t.Errorf("Expected Registrar %s, got %s", rec.Registrar, got.Registrar)
	}
	if got.Duration.Milliseconds() != rec.Duration.Milliseconds() {
		t.Errorf("Expected Duration %v, got %v", rec.Duration, got.Duration)
	}
	// Postgres timestamps might differ slightly in sub-millisecond precision
	if got.CheckedAt.Unix() != rec.CheckedAt.Unix() {
		t.Errorf("Expected CheckedAt %v, got %v", rec.CheckedAt, got.CheckedAt)
	}

	past := now.Add(-1 * time.Hour)
	resultsSince, err := b.Query(ctx, storage.Filter{Domain: domain, Since: &past, Status: storage.StatusRegistered})
	if err != nil {
		t.Fatalf("Failed to query records with Since: %v", err)
	}
	if len(resultsSince) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(resultsSince))
	}
}
