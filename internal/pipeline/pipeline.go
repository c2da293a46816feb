package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Step is one stage of a submission attempt.
type Step interface {
	// Do executes the step. Heuristic misses call attempt.Finish and return nil;
	// returned errors end the attempt as an error outcome.
	Do(ctx context.Context, attempt *Attempt) error

	// Name returns the step's name for logging.
	Name() string
}

// Pipeline executes steps in order until one fails or finishes the attempt.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// stepTimeout bounds each step; zero means only the parent context applies.
	stepTimeout time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithStepTimeout bounds the duration of every step.
// Element lookups and clicks can otherwise wait indefinitely on some pages.
func WithStepTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.stepTimeout = d
		}
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in sequence.
// It returns the first step error, or ctx.Err() if cancelled between steps.
// It returns nil when all steps ran or one of them finished the attempt.
func (p *Pipeline) Execute(ctx context.Context, attempt *Attempt) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"url", attempt.URL,
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"url", attempt.URL,
		)

		if err := p.runStep(ctx, step, attempt); err != nil {
			p.logger.Warn("step failed",
				"step", step.Name(),
				"url", attempt.URL,
				"error", err,
			)
			return err
		}

		attempt.PerformedSteps = append(attempt.PerformedSteps, step.Name())

		if attempt.Finished() {
			p.logger.Debug("attempt finished",
				"step", step.Name(),
				"url", attempt.URL,
				"status", attempt.Status(),
			)
			return nil
		}
	}

	return nil
}

func (p *Pipeline) runStep(ctx context.Context, step Step, attempt *Attempt) error {
	if p.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.stepTimeout)
		defer cancel()
	}
	return step.Do(ctx, attempt)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
