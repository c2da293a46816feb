package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/formcourier/internal/browser"
	"github.com/nao1215/formcourier/internal/model"
)

// DefaultNavigationTimeout bounds each page load when no timeout is configured.
const DefaultNavigationTimeout = 60 * time.Second

// errNoOutcome is reported when every step ran but none finished the attempt.
var errNoOutcome = errors.New("submission steps ended without an outcome")

// Worker processes a single URL in its own browser session.
type Worker struct {
	launcher browser.Launcher
	contact  model.Contact
	logger   *slog.Logger

	navigationTimeout time.Duration

	// steps builds the step list; nil uses DefaultSteps.
	steps func(*slog.Logger) []Step
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets a custom logger for the worker and its steps.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithNavigationTimeout sets the per-page navigation timeout.
func WithNavigationTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.navigationTimeout = d
		}
	}
}

// WithSteps replaces the default submission steps.
func WithSteps(steps func(*slog.Logger) []Step) WorkerOption {
	return func(w *Worker) {
		w.steps = steps
	}
}

// NewWorker creates a Worker that opens sessions from launcher and submits contact.
func NewWorker(launcher browser.Launcher, contact model.Contact, opts ...WorkerOption) *Worker {
	w := &Worker{
		launcher:          launcher,
		contact:           contact,
		navigationTimeout: DefaultNavigationTimeout,
		steps:             DefaultSteps,
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = slog.Default()
	}

	return w
}

// Process attempts one submission against url and returns its outcome.
// It never returns an error: every failure, including a panic inside the
// browser driver, is reported as an error outcome. The browser session is
// closed before Process returns.
func (w *Worker) Process(ctx context.Context, url string) (outcome model.Outcome) {
	start := time.Now()
	defer func() {
		outcome.URL = url
		outcome.StartedAt = start
		outcome.Duration = time.Since(start)
	}()

	page, err := w.launcher.Open(ctx)
	if err != nil {
		return model.NewErrorOutcome(url, fmt.Errorf("open browser session: %w", err))
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			w.logger.Warn("failed to close browser session", "url", url, "error", cerr)
		}
	}()

	attempt := NewAttempt(url, page, w.contact, w.navigationTimeout)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("browser automation panicked", "url", url, "panic", r)
			outcome = model.NewErrorOutcome(url, fmt.Errorf("browser automation panicked: %v", r))
			outcome.ContactURL = attempt.ContactURL
			outcome.FilledFields = attempt.Filled
		}
	}()

	p := New(
		WithLogger(w.logger),
		WithStepTimeout(2*w.navigationTimeout),
	)
	p.AddSteps(w.steps(w.logger)...)
	w.logger.Debug("starting attempt", "url", url, "steps", p.StepNames())

	err = p.Execute(ctx, attempt)
	switch {
	case err != nil:
		outcome = model.NewErrorOutcome(url, err)
	case !attempt.Finished():
		outcome = model.NewErrorOutcome(url, errNoOutcome)
	default:
		outcome = model.Outcome{Status: attempt.Status()}
	}
	outcome.ContactURL = attempt.ContactURL
	outcome.FilledFields = attempt.Filled

	return outcome
}
