// Package report writes run results.
//
// The results log is the primary output: one "<url>: <outcome>" line per
// site, in input order, replacing the previous file content. The other
// writers render the same run for people and tools:
//   - LogWriter: the results log format
//   - SimpleWriter: human-readable text output for terminal display
//   - MarkdownWriter: GitHub Flavored Markdown with tables and a pie chart
//   - JSONWriter: structured JSON output for tool integration
package report
