package csvbackend

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/uzhunt/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"domain",
	"status",
	"expiry_date",
	"created_date",
	"registrar",
	"source",
	"handle",
	"origin_url",
	"error_kind",
	"checked_at",
	"duration_ms",
	"raw_excerpt",
}

// New creates a new CSV-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("context: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("context: %w", err)
		}
	}

	return &csvBackend{
		file: f,
	}, nil
}

func (b *csvBackend) Save(ctx context.Context, r *storage.VerificationRecord) error {
	record := []string{
		r.ID,
		r.Domain,
		string(r.Status),
		r.ExpiryDate,
		r.CreatedDate,
		r.Registrar,
		r.Source,
		r.Handle,
		r.OriginURL,
		r.ErrorKind,
		r.CheckedAt.Format(time.RFC3339Nano),
		strconv.FormatInt(r.Duration.Milliseconds(), 10),
		r.RawExcerpt,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.VerificationRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	// Read headers
	_, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return []*storage.VerificationRecord{}, nil
		}
		return nil, fmt.Errorf("context: %w", err)
	}

	var matched []*storage.VerificationRecord

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}

		if len(row) != len(headers) {
			continue // skip malformed rows
		}

		checkedAt, _ := time.Parse(time.RFC3339Nano, row[10])
		durationMs, _ := strconv.ParseInt(row[11], 10, 64)

		rec := &storage.VerificationRecord{
			ID:          row[0],
			Domain:      row[1],
			Status:      storage.Status(row[2]),
			ExpiryDate:  row[3],
			CreatedDate: row[4],
			Registrar:   row[5],
			Source:      row[6],
			Handle:      row[7],
			OriginURL:   row[8],
			ErrorKind:   row[9],
			CheckedAt:   checkedAt,
			Duration:    time.Duration(durationMs) * time.Millisecond,
			RawExcerpt:  row[12],
		}

		if filter.Match(rec) {
			matched = append(matched, rec)
		}
	}

	return filter.Page(matched), nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
