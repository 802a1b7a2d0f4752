package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Kamar-Folarin/ticket-sync/internal/config"
)

const defaultBatchSize = 100

// Failure describes one batch that could not be processed.
type Failure struct {
	Index int
	Start int
	End   int
	Err   error
}

// Report summarizes a Process call.
type Report struct {
	Batches   int
	Processed int
	Failures  []Failure
}

// Processor partitions work into fixed-size batches and runs them one after
// another. A failing batch is recorded and the remaining batches still run.
type Processor struct {
	config *config.BatchConfig
}

// NewProcessor creates a new batch processor
func NewProcessor(cfg *config.BatchConfig) *Processor {
	if cfg == nil {
		cfg = &config.BatchConfig{}
	}
	return &Processor{config: cfg}
}

// BatchSize returns the effective batch size
func (p *Processor) BatchSize() int {
	if p.config.Size <= 0 {
		return defaultBatchSize
	}
	return p.config.Size
}

// Process calls processFn for each [start, end) window over total items. It
// only returns an error when ctx is done; batches not yet started at that
// point are neither processed nor failed.
func (p *Processor) Process(ctx context.Context, total int, processFn func(ctx context.Context, start, end int) error) (*Report, error) {
	report := &Report{}
	if total == 0 {
		return report, nil
	}

	batchSize := p.BatchSize()
	report.Batches = (total + batchSize - 1) / batchSize

	for i := 0; i < report.Batches; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		start := i * batchSize
		end := start + batchSize
		if end > total {
			end = total
		}

		if err := p.processBatchWithRetry(ctx, start, end, processFn); err != nil {
			report.Failures = append(report.Failures, Failure{Index: i, Start: start, End: end, Err: err})
		} else {
			report.Processed += end - start
		}

		if p.config.BatchDelay > 0 && i < report.Batches-1 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(p.config.BatchDelay):
			}
		}
	}

	return report, nil
}

// processBatchWithRetry runs one batch, retrying up to MaxRetries times with
// BatchDelay between attempts.
func (p *Processor) processBatchWithRetry(ctx context.Context, start, end int, processFn func(ctx context.Context, start, end int) error) error {
	retries := p.config.MaxRetries
	if retries < 0 {
		retries = 0
	}

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return processFn(ctx, start, end)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(p.config.BatchDelay), uint64(retries)), ctx)

	err := backoff.Retry(operation, policy)
	if err == nil || retries == 0 || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("failed to process batch after %d retries: %w", retries, err)
}
