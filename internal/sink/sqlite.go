package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/aditywn/csv-pickup/internal/pipeline"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS results (
	id        TEXT PRIMARY KEY,
	filename  TEXT NOT NULL,
	state     TEXT NOT NULL,
	errors    TEXT NOT NULL,
	warnings  TEXT NOT NULL,
	info      TEXT NOT NULL,
	timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_results_filename ON results(filename);
CREATE INDEX IF NOT EXISTS idx_results_state ON results(state);
`

// SQLiteStore persists outcomes to a local SQLite database. SQLite only
// supports one writer at a time, so the pool is capped at a single
// connection and WAL mode keeps readers unblocked during a run.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the results database at path, applying
// pragmas and schema. Safe to call against an existing database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open results database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to results database: %w", err)
	}

	db.SetMaxOpenConns(1) // single writer avoids SQLITE_BUSY
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply results schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Persist inserts one outcome. IDs are autogenerated UUIDs; duplicate IDs
// are silently ignored so retried writes stay idempotent.
func (s *SQLiteStore) Persist(ctx context.Context, outcome pipeline.ValidationOutcome) error {
	errorsJSON, warningsJSON, infoJSON, err := marshalDetails(outcome)
	if err != nil {
		return fmt.Errorf("persist %s: %w", outcome.Filename, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (id, filename, state, errors, warnings, info, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
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

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CountByState returns how many stored results carry each state. Used by
// callers that query the store after a run.
func (s *SQLiteStore) CountByState(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM results GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan result count: %w", err)
		}
		counts[state] = n
	}
	return counts, rows.Err()
}

func marshalDetails(outcome pipeline.ValidationOutcome) (string, string, string, error) {
	errorsJSON, err := marshalStrings(outcome.Errors)
	if err != nil {
		return "", "", "", err
	}
	warningsJSON, err := marshalStrings(outcome.Warnings)
	if err != nil {
		return "", "", "", err
	}
	infoJSON, err := marshalStrings(outcome.Info)
	if err != nil {
		return "", "", "", err
	}
	return errorsJSON, warningsJSON, infoJSON, nil
}

func marshalStrings(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ StructuredStore = (*SQLiteStore)(nil)
