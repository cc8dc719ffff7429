package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aditywn/csv-pickup/internal/remote"
	"github.com/aditywn/csv-pickup/internal/retry"
	"github.com/aditywn/csv-pickup/internal/validate"
	"github.com/aditywn/csv-pickup/pkg/logger"
)

// Orchestrator runs one end-to-end pass: discover, partition into batches,
// drain each batch through the worker pool, and aggregate the summary.
// Recurring execution is an external scheduling concern.
type Orchestrator struct {
	discoverer Discoverer
	pool       *Pool
	opts       Options
}

// NewOrchestrator wires discovery and the worker pool for one run
// configuration.
func NewOrchestrator(discoverer Discoverer, store remote.Store, validator validate.Validator,
	recorder OutcomeRecorder, policy retry.Policy, opts Options) *Orchestrator {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	return &Orchestrator{
		discoverer: discoverer,
		pool:       NewPool(store, validator, recorder, policy, opts),
		opts:       opts,
	}
}

// Run blocks until every discovered file has exactly one outcome, then
// returns the summary. Per-file failures never abort the run; only a
// cancelled context cuts it short, and even then in-flight batches finish
// before Run returns. The summary is returned alongside the cancellation
// error so callers still see what completed.
func (o *Orchestrator) Run(ctx context.Context, roots []string) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	files, err := o.discoverer.Discover(ctx, roots)
	if err != nil {
		summary.CompletedAt = time.Now()
		return summary, fmt.Errorf("discovery aborted: %w", err)
	}

	summary.TotalFiles = len(files)
	o.pool.total = len(files)

	batches := partition(files, o.opts.BatchSize)
	logger.Log.Info().
		Str("run_id", summary.RunID).
		Int("files", len(files)).
		Int("batches", len(batches)).
		Int("batch_size", o.opts.BatchSize).
		Int("workers", o.opts.WorkerCount).
		Msg("starting run")

	var cancelled error
	for i, batch := range batches {
		// Stop dispatching new batches once cancelled; tasks already in
		// flight have finished (RunBatch drains fully before returning).
		if err := ctx.Err(); err != nil {
			cancelled = err
			summary.TotalFiles = countDispatched(batches[:i])
			break
		}

		start := time.Now()
		stats := o.pool.RunBatch(ctx, batch)
		summary.ValidCount += stats.Valid
		summary.InvalidCount += stats.Invalid
		summary.ErrorCount += stats.Error

		logger.Log.Info().
			Str("run_id", summary.RunID).
			Int("batch", i+1).
			Int("of", len(batches)).
			Int("files", len(batch)).
			Dur("took", time.Since(start)).
			Msg("batch completed")
	}

	summary.CompletedAt = time.Now()
	logger.Log.Info().
		Str("run_id", summary.RunID).
		Int("total", summary.TotalFiles).
		Int("valid", summary.ValidCount).
		Int("invalid", summary.InvalidCount).
		Int("errors", summary.ErrorCount).
		Dur("took", summary.CompletedAt.Sub(summary.StartedAt)).
		Msg("run completed")

	if cancelled != nil {
		return summary, fmt.Errorf("run cancelled: %w", cancelled)
	}
	return summary, nil
}

// partition splits files into fixed-size batches; the final batch carries
// the remainder.
func partition(files []FileDescriptor, size int) [][]FileDescriptor {
	if len(files) == 0 {
		return nil
	}
	batches := make([][]FileDescriptor, 0, (len(files)+size-1)/size)
	for start := 0; start < len(files); start += size {
		end := start + size
		if end > len(files) {
			end = len(files)
		}
		batches = append(batches, files[start:end])
	}
	return batches
}

func countDispatched(batches [][]FileDescriptor) int {
	n := 0
	for _, b := range batches {
		n += len(b)
	}
	return n
}
