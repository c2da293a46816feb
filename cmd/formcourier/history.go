package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/formcourier/internal/config"
	"github.com/nao1215/formcourier/internal/database"
	"github.com/nao1215/formcourier/internal/model"
)

// defaultHistoryLimit is the number of runs listed when --limit is not given.
const defaultHistoryLimit = 20

// shortIDLength is how many characters of a run ID are shown in listings.
const shortIDLength = 8

// errDeleteNeedsID is returned when --delete is used without a run ID.
var errDeleteNeedsID = errors.New("run id is required with --delete")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show previous runs",
		Long: `History lists the runs saved in the history database, newest first.

With a run ID (or a unique prefix of one) it prints the outcome of every site
in that run.

Examples:
  # List the last 20 runs
  formcourier history

  # Show one run
  formcourier history 3f1c2a9e

  # Show one run as Markdown
  formcourier history 3f1c2a9e --markdown > run.md

  # Delete a run
  formcourier history 3f1c2a9e --delete`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 lists every run)")
	cmd.Flags().Bool("delete", false,
		"Delete the given run")
	cmd.Flags().BoolP("json", "j", false,
		"Output the run in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the run in Markdown format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	deleteRun, err := cmd.Flags().GetBool("delete")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database
	if deleteRun && len(args) == 0 {
		return errDeleteNeedsID
	}
	if jsonOutput && markdownOutput {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingReportFormats)
	}

	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		return listRuns(ctx, out, db, limit)
	}

	run, err := db.GetRun(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	if deleteRun {
		if err := db.DeleteRun(ctx, run.ID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run %s (%d sites)\n", run.ID, len(run.Outcomes))
		return nil
	}

	_, err = newReportWriter(out, jsonOutput, markdownOutput, getVerboseFlag(cmd)).Write(run)
	return err
}

// listRuns prints the stored runs, newest first.
func listRuns(ctx context.Context, out io.Writer, db *database.RunDB, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the history database.")
		fmt.Fprintln(out, "\nUse 'formcourier run' to process a URL list.")
		return nil
	}

	fmt.Fprintf(out, "Runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-8s  %-19s  %-6s  %5s  %s\n", "ID", "Date", "Engine", "Sites", "Outcomes")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for _, meta := range runs {
		id := meta.ID
		if len(id) > shortIDLength {
			id = id[:shortIDLength]
		}
		line := fmt.Sprintf("  %-8s  %-19s  %-6s  %5d  %s",
			id,
			meta.StartedAt.Local().Format("2006-01-02 15:04:05"),
			meta.Engine,
			meta.Total(),
			formatOutcomeSummary(meta.Summary),
		)
		if meta.Interrupted {
			line += " (interrupted)"
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out, "\nUse 'formcourier history <id>' to see the outcome of every site in a run.")

	return nil
}

// formatOutcomeSummary formats the outcome counts into a compact string.
func formatOutcomeSummary(summary map[string]int) string {
	if len(summary) == 0 {
		return "N/A"
	}

	labels := map[model.Status]string{
		model.StatusSubmitted:     "submitted",
		model.StatusNoContactPage: "no-contact",
		model.StatusNoForm:        "no-form",
		model.StatusNoSubmit:      "no-submit",
		model.StatusError:         "error",
	}

	var parts []string
	for _, status := range model.AllStatuses {
		if n := summary[status.String()]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", labels[status], n))
		}
	}

	if len(parts) == 0 {
		return "no sites"
	}
	return strings.Join(parts, " ")
}
