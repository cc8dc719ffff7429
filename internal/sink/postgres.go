package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/semaphore"

	"github.com/aditywn/csv-pickup/internal/pipeline"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS results (
	id        UUID PRIMARY KEY,
	filename  TEXT NOT NULL,
	state     TEXT NOT NULL,
	errors    JSONB NOT NULL,
	warnings  JSONB NOT NULL,
	info      JSONB NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_results_filename ON results(filename);
CREATE INDEX IF NOT EXISTS idx_results_state ON results(state);
`

// PostgresStore persists outcomes to Postgres. Unlike SQLite it takes
// concurrent writers; the weighted semaphore keeps the pipeline from
// saturating the pool when worker counts are cranked up.
type PostgresStore struct {
	db  *sqlx.DB
	sem *semaphore.Weighted
}

// OpenPostgres connects with the given DSN and ensures the results schema.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN must be provided")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to results database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply results schema: %w", err)
	}

	return &PostgresStore{
		db:  db,
		sem: semaphore.NewWeighted(10),
	}, nil
}

// Persist inserts one outcome in its own implicit transaction.
func (s *PostgresStore) Persist(ctx context.Context, outcome pipeline.ValidationOutcome) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("persist %s: %w", outcome.Filename, err)
	}
	defer s.sem.Release(1)

	errorsJSON, warningsJSON, infoJSON, err := marshalDetails(outcome)
	if err != nil {
		return fmt.Errorf("persist %s: %w", outcome.Filename, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (id, filename, state, errors, warnings, info, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`,
		uuid.NewString(),
		outcome.Filename,
		string(outcome.State),
		errorsJSON,
		warningsJSON,
		infoJSON,
		outcome.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("persist %s: %w", outcome.Filename, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ StructuredStore = (*PostgresStore)(nil)
