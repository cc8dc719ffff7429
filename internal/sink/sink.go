// Package sink persists validation outcomes: an append-only human-diffable
// log plus a queryable structured store.
package sink

import (
	"context"
	"fmt"

	"github.com/aditywn/csv-pickup/internal/pipeline"
	"github.com/aditywn/csv-pickup/pkg/logger"
)

// Recorder is what the pipeline writes outcomes through.
type Recorder interface {
	Record(ctx context.Context, outcome pipeline.ValidationOutcome) error
}

// StructuredStore is the queryable half of the sink. Implementations must
// support concurrent Persist calls.
type StructuredStore interface {
	Persist(ctx context.Context, outcome pipeline.ValidationOutcome) error
	Close() error
}

// Composite writes each outcome to the log first, then to the structured
// store. A failed log append fails the record: the log is the durable
// source of truth. A failed structured persist degrades to log-only — the
// failure is logged loudly but the outcome still counts.
type Composite struct {
	log   *LogWriter
	store StructuredStore
}

// NewComposite wires the two halves together. store may be nil for
// log-only operation.
func NewComposite(log *LogWriter, store StructuredStore) *Composite {
	return &Composite{log: log, store: store}
}

// Record persists one outcome.
func (c *Composite) Record(ctx context.Context, outcome pipeline.ValidationOutcome) error {
	if err := c.log.Append(outcome); err != nil {
		return fmt.Errorf("append log record for %s: %w", outcome.Filename, err)
	}
	if c.store == nil {
		return nil
	}
	if err := c.store.Persist(ctx, outcome); err != nil {
		// Log-only fallback: the line above already made it to the log.
		logger.Log.Error().
			Str("file", outcome.Filename).
			Err(err).
			Msg("structured store write failed, outcome recorded in log only")
	}
	return nil
}

// Close closes both halves, returning the first error encountered.
func (c *Composite) Close() error {
	logErr := c.log.Close()
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			return err
		}
	}
	return logErr
}

var _ Recorder = (*Composite)(nil)
