package sink

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aditywn/csv-pickup/internal/pipeline"
)

func openTestSQLite(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.db")
	store, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestSQLite_PersistAndCount(t *testing.T) {
	store, _ := openTestSQLite(t)
	ctx := context.Background()

	outcomes := []pipeline.ValidationOutcome{
		{Filename: "a.csv", State: pipeline.StateValid, Info: []string{"csv read successfully: 4 data rows"}},
		{Filename: "b.csv", State: pipeline.StateValid},
		{Filename: "c.csv", State: pipeline.StateInvalid, Errors: []string{"missing required column: id"}},
		{Filename: "d.csv", State: pipeline.StateError, Errors: []string{"fetch failed: connection reset"}},
	}
	for _, o := range outcomes {
		o.Timestamp = time.Now()
		require.NoError(t, store.Persist(ctx, o))
	}

	counts, err := store.CountByState(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"valid":   2,
		"invalid": 1,
		"error":   1,
	}, counts)
}

func TestSQLite_NilDetailListsPersistAsEmptyArrays(t *testing.T) {
	store, _ := openTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, store.Persist(ctx, pipeline.ValidationOutcome{
		Filename:  "bare.csv",
		State:     pipeline.StateValid,
		Timestamp: time.Now(),
	}))

	var errorsJSON, warningsJSON, infoJSON string
	err := store.db.QueryRowContext(ctx,
		`SELECT errors, warnings, info FROM results WHERE filename = ?`, "bare.csv").
		Scan(&errorsJSON, &warningsJSON, &infoJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]", errorsJSON)
	assert.Equal(t, "[]", warningsJSON)
	assert.Equal(t, "[]", infoJSON)
}

func TestSQLite_ReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	ctx := context.Background()

	first, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Persist(ctx, pipeline.ValidationOutcome{
		Filename: "a.csv", State: pipeline.StateValid, Timestamp: time.Now(),
	}))
	require.NoError(t, first.Close())

	// Reopening applies the schema idempotently and keeps prior rows.
	second, err := OpenSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, second.Persist(ctx, pipeline.ValidationOutcome{
		Filename: "b.csv", State: pipeline.StateValid, Timestamp: time.Now(),
	}))

	counts, err := second.CountByState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["valid"])
}

func TestSQLite_ConcurrentPersists(t *testing.T) {
	store, _ := openTestSQLite(t)
	ctx := context.Background()

	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(writer int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				err := store.Persist(ctx, pipeline.ValidationOutcome{
					Filename:  "shared.csv",
					State:     pipeline.StateValid,
					Timestamp: time.Now(),
				})
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	counts, err := store.CountByState(ctx)
	require.NoError(t, err)
	assert.Equal(t, writers*perWriter, counts["valid"])
}
