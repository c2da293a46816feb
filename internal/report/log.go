package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/formcourier/internal/model"
)

// LogWriter outputs the results log: one "<url>: <outcome>" line per site.
type LogWriter struct {
	baseWriter
}

// NewLogWriter creates a LogWriter that outputs to the given writer.
func NewLogWriter(output io.Writer) *LogWriter {
	return &LogWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the run's log lines in input order.
func (w *LogWriter) Write(run *model.Run) (int, error) {
	lines := run.LogLines()
	if len(lines) == 0 {
		return 0, nil
	}
	return w.output.Write([]byte(strings.Join(lines, "\n") + "\n"))
}

// WriteLogFile writes the results log to path, replacing any previous content.
// Parent directories are created when missing.
func WriteLogFile(path string, run *model.Run) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create results directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644) //nolint:gosec // results log is meant to be readable
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}

	if _, err := NewLogWriter(f).Write(run); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write results file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close results file: %w", err)
	}
	return nil
}
