package historyrepo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/0xTanzim/contentchat/internal/domain/history"
)

// PostgresRepository implements history.Repository using pgx.
//
// Expected schema:
//
//	CREATE TABLE content_history (
//	    id         UUID PRIMARY KEY,
//	    kind       TEXT NOT NULL,
//	    title      TEXT,
//	    input      TEXT NOT NULL,
//	    output     TEXT NOT NULL,
//	    stopped    BOOLEAN NOT NULL DEFAULT FALSE,
//	    source_key TEXT,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new record.
func (r *PostgresRepository) Create(ctx context.Context, record history.Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO content_history (id, kind, title, input, output, stopped, source_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, record.ID, string(record.Kind), nullable(record.Title), record.Input, record.Output,
		record.Stopped, nullable(record.SourceKey), record.CreatedAt)
	return err
}

// Get fetches one record by id.
func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (history.Record, bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, title, input, output, stopped, source_key, created_at
		FROM content_history
		WHERE id = $1
		LIMIT 1
	`, id)
	if err != nil {
		return history.Record{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return history.Record{}, false, rows.Err()
	}
	record, err := scanRecord(rows)
	if err != nil {
		return history.Record{}, false, err
	}
	return record, true, rows.Err()
}

// List returns the newest records of a kind, most recent first.
func (r *PostgresRepository) List(ctx context.Context, kind history.Kind, limit int) ([]history.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, title, input, output, stopped, source_key, created_at
		FROM content_history
		WHERE ($1 = '' OR kind = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, string(kind), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []history.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Delete removes a record.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM content_history WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (history.Record, error) {
	var (
		record    history.Record
		kind      string
		title     sql.NullString
		sourceKey sql.NullString
	)
	if err := row.Scan(&record.ID, &kind, &title, &record.Input, &record.Output,
		&record.Stopped, &sourceKey, &record.CreatedAt); err != nil {
		return history.Record{}, err
	}
	record.Kind = history.Kind(kind)
	record.Title = title.String
	record.SourceKey = sourceKey.String
	return record, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ history.Repository = (*PostgresRepository)(nil)
