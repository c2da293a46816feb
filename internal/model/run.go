package model

import (
	"time"

	"github.com/google/uuid"
)

// Run is one batch invocation over a URL list.
type Run struct {
	// ID uniquely identifies the run in the history database.
	ID string `json:"id"`

	// StartedAt is when the batch started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last outcome was recorded.
	FinishedAt time.Time `json:"finished_at"`

	// Engine is the browser engine used ("rod" or "static").
	Engine string `json:"engine"`

	// InputFile is the URL list the run was loaded from.
	InputFile string `json:"input_file"`

	// Interrupted is true when the batch stopped before processing every URL.
	Interrupted bool `json:"interrupted,omitempty"`

	// Outcomes holds one entry per processed URL, in input order.
	Outcomes []Outcome `json:"outcomes"`
}

// NewRun creates a Run with a fresh ID and the current start time.
func NewRun(engine, inputFile string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Engine:    engine,
		InputFile: inputFile,
		Outcomes:  make([]Outcome, 0),
	}
}

// Finish records the outcomes and the finish time.
func (r *Run) Finish(outcomes []Outcome, interrupted bool) {
	r.Outcomes = outcomes
	r.Interrupted = interrupted
	r.FinishedAt = time.Now()
}

// Elapsed returns the wall-clock duration of the run.
func (r *Run) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary counts outcomes by status.
// Every known status is present in the map, with zero when unused.
func (r *Run) Summary() map[Status]int {
	counts := make(map[Status]int, len(AllStatuses))
	for _, s := range AllStatuses {
		counts[s] = 0
	}
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// Submitted returns how many forms were submitted.
func (r *Run) Submitted() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.IsSubmitted() {
			n++
		}
	}
	return n
}

// LogLines returns the results log lines in input order.
func (r *Run) LogLines() []string {
	lines := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		lines[i] = o.LogLine()
	}
	return lines
}
