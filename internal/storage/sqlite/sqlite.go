package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/FranksOps/uzhunt/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS verification_records (
	id TEXT PRIMARY KEY,
	domain TEXT NOT NULL,
	status TEXT NOT NULL,
	expiry_date TEXT NOT NULL DEFAULT '',
	created_date TEXT NOT NULL DEFAULT '',
	registrar TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	handle TEXT NOT NULL DEFAULT '',
	origin_url TEXT NOT NULL DEFAULT '',
	error_kind TEXT NOT NULL DEFAULT '',
	checked_at DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL,
	raw_excerpt TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_verification_records_domain ON verification_records (domain);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	// Verifier workers save concurrently; serialize writes on one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, r *storage.VerificationRecord) error {
	query := `
	INSERT INTO verification_records (
		id, domain, status, expiry_date, created_date, registrar, source, handle, origin_url, error_kind, checked_at, duration_ms, raw_excerpt
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
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
		r.CheckedAt.UTC(),
		r.Duration.Milliseconds(),
		r.RawExcerpt,
	)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.VerificationRecord, error) {
	query := `SELECT id, domain, status, expiry_date, created_date, registrar, source, handle, origin_url, error_kind, checked_at, duration_ms, raw_excerpt FROM verification_records WHERE 1=1`
	args := []any{}

	if filter.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, filter.Domain)
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Since != nil {
		query += ` AND checked_at >= ?`
		args = append(args, filter.Since.UTC())
	}

	query += ` ORDER BY checked_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// OFFSET requires a LIMIT clause in SQLite.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	defer rows.Close()

	var results []*storage.VerificationRecord
	for rows.Next() {
		var r storage.VerificationRecord
		var status string
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.Domain, &status, &r.ExpiryDate, &r.CreatedDate, &r.Registrar,
			&r.Source, &r.Handle, &r.OriginURL, &r.ErrorKind, &r.CheckedAt, &durationMs, &r.RawExcerpt,
		)
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}

		r.Status = storage.Status(status)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
