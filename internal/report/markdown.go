package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/formcourier/internal/model"
)

// MarkdownWriter outputs run reports in GitHub Flavored Markdown.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeSummary(md, run)
	w.writeSites(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run) {
	md.H1("formcourier Run Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + run.ID + "`"},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", run.Elapsed().Round(time.Second).String()},
			{"Engine", run.Engine},
			{"Input", "`" + run.InputFile + "`"},
			{"Sites", strconv.Itoa(len(run.Outcomes))},
			{"Status", runState(run)},
		},
	})
	md.PlainText("")
}

// writeSummary writes the status summary, its pie chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, run *model.Run) {
	md.H2("Summary")
	md.PlainText("")

	summary := run.Summary()
	rows := make([][]string, 0, len(model.AllStatuses)+1)
	for _, s := range model.AllStatuses {
		rows = append(rows, []string{statusLabel(s), strconv.Itoa(summary[s])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(len(run.Outcomes)) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(run.Outcomes) > 0 {
		w.writePieChart(md, summary)
	}

	w.writeAlert(md, run, summary)
}

// writePieChart writes a mermaid pie chart of the outcome distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary map[model.Status]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Outcome Distribution"),
		piechart.WithShowData(true),
	)

	for _, s := range model.AllStatuses {
		if summary[s] > 0 {
			chart.LabelAndIntValue(statusLabel(s), uint64(summary[s])) //nolint:gosec // counts are non-negative
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert that matches the overall result.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.Run, summary map[model.Status]int) {
	total := len(run.Outcomes)
	switch {
	case run.Interrupted:
		md.Warningf("The run was interrupted after %d site(s); the remaining sites were not processed.", total)
	case total == 0:
		md.Note("The URL list was empty.")
	case summary[model.StatusError] == total:
		md.Cautionf("All %d site(s) failed with an error. Check network access and the browser engine.", total)
	case summary[model.StatusSubmitted] == total:
		md.Tip("A form was submitted on every site.")
	case summary[model.StatusError] > 0:
		md.Importantf("%d of %d site(s) failed with an error.", summary[model.StatusError], total)
	default:
		md.Note(fmt.Sprintf("%d of %d site(s) submitted.", summary[model.StatusSubmitted], total))
	}
	md.PlainText("")
}

// writeSites writes one table row per processed site.
func (w *MarkdownWriter) writeSites(md *markdown.Markdown, run *model.Run) {
	md.H2("Sites")
	md.PlainText("")

	if len(run.Outcomes) == 0 {
		md.PlainText("No sites were processed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(run.Outcomes))
	for i, o := range run.Outcomes {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			o.URL,
			truncateString(escapeCell(o.String()), 80),
			orDash(o.ContactURL),
			orDash(strings.Join(o.FilledFields, ", ")),
			o.Duration.Round(time.Millisecond).String(),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "URL", "Outcome", "Contact page", "Filled", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [formcourier](https://github.com/nao1215/formcourier)*")
}

// escapeCell keeps error text from breaking the table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
