package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/formcourier/internal/model"
)

// SimpleWriter outputs a human-readable run summary for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds the contact page and filled fields of every site.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary in human-readable format.
func (w *SimpleWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, run)
	w.writeSummary(&sb, run)
	w.writeSites(&sb, run)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.Run) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        FORMCOURIER RUN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Run ID:     %s\n", run.ID))
	sb.WriteString(fmt.Sprintf("Started:    %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Elapsed:    %s\n", run.Elapsed().Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Engine:     %s\n", run.Engine))
	sb.WriteString(fmt.Sprintf("Input:      %s\n", run.InputFile))
	sb.WriteString(fmt.Sprintf("Status:     %s\n", runState(run)))
	sb.WriteString("\n")
}

// writeSummary writes the per-status counts.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, run *model.Run) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	summary := run.Summary()
	for _, s := range model.AllStatuses {
		sb.WriteString(fmt.Sprintf("  %-26s %d\n", statusLabel(s)+":", summary[s]))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  %-26s %d sites\n", "Total:", len(run.Outcomes)))
	sb.WriteString("\n")
}

// writeSites writes one entry per processed site.
func (w *SimpleWriter) writeSites(sb *strings.Builder, run *model.Run) {
	if len(run.Outcomes) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SITES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, o := range run.Outcomes {
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", indicator(o.Status), o.LogLine()))
		if !w.verbose {
			continue
		}
		if o.ContactURL != "" {
			sb.WriteString(fmt.Sprintf("      Contact page: %s\n", o.ContactURL))
		}
		if len(o.FilledFields) > 0 {
			sb.WriteString(fmt.Sprintf("      Filled:       %s\n", strings.Join(o.FilledFields, ", ")))
		}
		sb.WriteString(fmt.Sprintf("      Duration:     %s\n", o.Duration.Round(time.Millisecond)))
	}
	sb.WriteString("\n")
}

// indicator returns a visual marker for the status.
func indicator(s model.Status) string {
	switch s {
	case model.StatusSubmitted:
		return "+"
	case model.StatusError:
		return "!"
	default:
		return "-"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by formcourier\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
