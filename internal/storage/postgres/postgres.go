package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/uzhunt/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
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
	checked_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL,
	raw_excerpt TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_verification_records_domain ON verification_records (domain);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, r *storage.VerificationRecord) error {
	query := `
	INSERT INTO verification_records (
		id, domain, status, expiry_date, created_date, registrar, source, handle, origin_url, error_kind, checked_at, duration_ms, raw_excerpt
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := b.pool.Exec(ctx, query,
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
		r.CheckedAt,
		r.Duration.Milliseconds(),
		r.RawExcerpt,
	)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.VerificationRecord, error) {
	query := `SELECT id, domain, status, expiry_date, created_date, registrar, source, handle, origin_url, error_kind, checked_at, duration_ms, raw_excerpt FROM verification_records WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.Domain != "" {
		query += fmt.Sprintf(` AND domain = $%d`, paramCount)
		args = append(args, filter.Domain)
		paramCount++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, paramCount)
		args = append(args, filter.Source)
		paramCount++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, paramCount)
		args = append(args, string(filter.Status))
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND checked_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY checked_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
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

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
