package report

import (
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/formcourier/internal/model"
)

// Writer defines the interface for report output.
// Implementations write run results in various formats.
type Writer interface {
	// Write outputs the run to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(run *model.Run) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

var titleCaser = cases.Title(language.English)

// statusLabel renders a status for headings, e.g. "No Contact Page Found".
func statusLabel(s model.Status) string {
	return titleCaser.String(s.String())
}

// runState describes whether the run covered the whole list.
func runState(run *model.Run) string {
	if run.Interrupted {
		return "Interrupted (partial results)"
	}
	return "Complete"
}
