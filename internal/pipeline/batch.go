package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/formcourier/internal/model"
)

// Processor produces the outcome for a single URL.
// Worker is the production implementation.
type Processor interface {
	Process(ctx context.Context, url string) model.Outcome
}

// ProgressFunc is called after each URL with its outcome and zero-based index.
type ProgressFunc func(outcome model.Outcome, index int)

// Batch runs a Processor over a URL list strictly in order.
type Batch struct {
	processor Processor
	logger    *slog.Logger

	// delay is the pause between the end of one URL and the start of the next.
	delay time.Duration
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithDelay sets the pause between consecutive URLs, measured from the end
// of one URL to the start of the next. Zero disables it.
func WithDelay(d time.Duration) BatchOption {
	return func(b *Batch) {
		if d >= 0 {
			b.delay = d
		}
	}
}

// WithBatchLogger sets a custom logger for the batch.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *Batch) {
		b.logger = logger
	}
}

// NewBatch creates a Batch over processor.
func NewBatch(processor Processor, opts ...BatchOption) *Batch {
	b := &Batch{
		processor: processor,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Run processes urls one at a time and returns one outcome per processed URL,
// in input order. Per-URL failures are outcomes, not errors. Run returns an
// error only when ctx is cancelled; the outcomes completed so far are returned
// with it.
func (b *Batch) Run(ctx context.Context, urls []string, progress ProgressFunc) ([]model.Outcome, error) {
	outcomes := make([]model.Outcome, 0, len(urls))

	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			b.logger.Warn("batch cancelled", "processed", len(outcomes), "total", len(urls))
			return outcomes, err
		}

		if i > 0 && b.delay > 0 {
			if err := b.pause(ctx); err != nil {
				b.logger.Warn("batch cancelled while waiting", "processed", len(outcomes), "total", len(urls))
				return outcomes, err
			}
		}

		b.logger.Info("processing site", "url", url, "index", i+1, "total", len(urls))

		outcome := b.processor.Process(ctx, url)
		outcomes = append(outcomes, outcome)

		b.logger.Info("site processed",
			"url", url,
			"status", outcome.Status,
			"duration", outcome.Duration,
		)

		if progress != nil {
			progress(outcome, i)
		}
	}

	return outcomes, nil
}

// pause blocks for the configured delay or until ctx is cancelled. The
// limiter is drained on creation, so the next token is due a full delay later.
func (b *Batch) pause(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(b.delay), 1)
	limiter.Allow()
	return limiter.Wait(ctx)
}
