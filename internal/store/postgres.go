package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the calls table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS calls (
    id                 BIGSERIAL PRIMARY KEY,
    call_id            TEXT NOT NULL UNIQUE,
    transcript         TEXT NOT NULL DEFAULT '',
    confidence_score   DOUBLE PRECISION NOT NULL,
    emergency_detected BOOLEAN NOT NULL DEFAULT FALSE,
    audio_file_name    TEXT NOT NULL DEFAULT '',
    duration_seconds   DOUBLE PRECISION NOT NULL DEFAULT 0,
    compression_ratio  DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_calls_created_at ON calls(created_at DESC);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [CallStore] backed by PostgreSQL.
type PostgresStore struct {
	db DB
}

var _ CallStore = (*PostgresStore)(nil)

// NewPostgresStore creates a store over db. Call [PostgresStore.Migrate]
// before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Insert stores c and fills in ID and CreatedAt from the database.
func (s *PostgresStore) Insert(ctx context.Context, c *Call) error {
	const query = `
		INSERT INTO calls (
			call_id, transcript, confidence_score, emergency_detected,
			audio_file_name, duration_seconds, compression_ratio
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at`

	err := s.db.QueryRow(ctx, query,
		c.CallID, c.Transcript, c.ConfidenceScore, c.EmergencyDetected,
		c.AudioFileName, c.DurationSeconds, c.CompressionRatio,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateCall, c.CallID)
		}
		return fmt.Errorf("store: insert: %w", err)
	}
	return nil
}

// Recent returns up to limit calls ordered by creation time, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Call, error) {
	const query = `
		SELECT id, call_id, transcript, confidence_score, emergency_detected,
		       audio_file_name, duration_seconds, compression_ratio, created_at
		FROM calls
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	calls := make([]Call, 0, normalizeLimit(limit))
	for rows.Next() {
		var c Call
		if err := rows.Scan(
			&c.ID, &c.CallID, &c.Transcript, &c.ConfidenceScore, &c.EmergencyDetected,
			&c.AudioFileName, &c.DurationSeconds, &c.CompressionRatio, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan call: %w", err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return calls, nil
}

// Ping runs a trivial query.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// isDuplicateKeyError reports whether err is a PostgreSQL unique violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
