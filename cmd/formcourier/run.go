package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/formcourier/internal/browser"
	"github.com/nao1215/formcourier/internal/config"
	"github.com/nao1215/formcourier/internal/database"
	seclog "github.com/nao1215/formcourier/internal/log"
	"github.com/nao1215/formcourier/internal/model"
	"github.com/nao1215/formcourier/internal/pipeline"
	"github.com/nao1215/formcourier/internal/prompt"
	"github.com/nao1215/formcourier/internal/report"
	"github.com/nao1215/formcourier/internal/target"
)

// stdinList is the --list value that reads URLs from standard input.
const stdinList = "-"

// errPromptWithStdinList is returned when answers would have to be read from
// the same stream as the URL list.
var errPromptWithStdinList = errors.New("cannot prompt for missing values while the URL list is read from standard input (set them with flags or the config file)")

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit the contact form of every website in a URL list",
		Long: `Run visits every URL in the list one at a time. For each site it:
- opens a fresh browser session
- finds the contact page (the landing page itself when its URL contains
  "contact", "support" or "form", otherwise the first link containing "contact")
- finds the first form and fills its e-mail, phone and message fields
- clicks the submit button

Every outcome is printed as it happens and written to the results log once all
sites are done. Values not given by flags or the config file are asked for
interactively.

Examples:
  # Ask for everything
  formcourier run

  # Fully non-interactive
  formcourier run -l sites.txt -e sales@example.com -p "+1 555 0100" \
    -m "Hello" -d 5 --no-prompt

  # Read URLs from standard input using the plain HTTP engine
  cat sites.txt | formcourier run -l - --engine static --no-prompt

  # Write a Markdown report of the run
  formcourier run -l sites.txt --markdown -o report.md

Configuration file (.formcourier) example:
  contact:
    email: sales@example.com
    phone: "+1 555 0100"
    message: |
      Hello,
      we would like to introduce our services.
  delay: 3`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	// Input flags
	cmd.Flags().StringP("list", "l", "",
		"File with one website URL per line (\"-\" reads standard input)")
	cmd.Flags().StringP("email", "e", "",
		"E-mail address typed into every form")
	cmd.Flags().StringP("phone", "p", "",
		"Phone number typed into every form")
	cmd.Flags().StringP("message", "m", "",
		"Message typed into every form")
	cmd.Flags().StringP("delay", "d", "",
		"Pause between sites, in seconds or as a duration such as 1500ms (default 3)")

	// Browser flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Navigation timeout for each page")
	cmd.Flags().String("engine", config.DefaultEngine,
		"Browser engine: rod (headless Chromium) or static (plain HTTP, no JavaScript)")
	cmd.Flags().Bool("headless", true,
		"Run Chromium without a window")
	cmd.Flags().String("browser-bin", "",
		"Chromium executable (default: found or downloaded automatically)")
	cmd.Flags().String("user-agent", "",
		"User agent sent to every site")

	// Output flags
	cmd.Flags().StringP("results", "r", config.DefaultResultsFile,
		"Results log path, overwritten on every run")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().Bool("markdown", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Configuration flags
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .formcourier in current, XDG config or home directory)")
	cmd.Flags().Bool("no-prompt", false,
		"Fail instead of asking for missing values")
	cmd.Flags().Bool("no-history", false,
		"Do not save the run to the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := completeConfig(cmd, cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, getBoolFlag(cmd, "log-json"), cfg.Contact)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, stopping after the current site")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runBatch(ctx, cmd, cfg, logger)
}

// getBoolFlag retrieves a boolean flag from the command or the root's
// persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return value
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getBoolFlag(cmd, "verbose")
}

// setupLogger creates a structured logger that masks the contact values
// wherever they show up, for example quoted back in an error.
func setupLogger(w io.Writer, verbose, jsonFormat bool, contact model.Contact) *slog.Logger {
	redact := seclog.WithRedactedValues(contact.Email, contact.Phone, contact.Message)
	if jsonFormat {
		return seclog.NewSecureJSONLogger(w, verbose, redact)
	}
	return seclog.NewSecureLogger(w, verbose, redact)
}

// buildConfig creates a Config from defaults, the config file and the flags
// that were set explicitly.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	stringFlags := []struct {
		name   string
		target *string
	}{
		{"list", &cfg.InputFile},
		{"email", &cfg.Contact.Email},
		{"phone", &cfg.Contact.Phone},
		{"message", &cfg.Contact.Message},
		{"engine", &cfg.Engine},
		{"browser-bin", &cfg.BrowserBin},
		{"user-agent", &cfg.UserAgent},
		{"results", &cfg.ResultsFile},
		{"db-dir", &cfg.DBDir},
	}
	for _, f := range stringFlags {
		if !flags.Changed(f.name) {
			continue
		}
		if *f.target, err = flags.GetString(f.name); err != nil {
			return nil, err
		}
	}

	if flags.Changed("delay") {
		text, err := flags.GetString("delay")
		if err != nil {
			return nil, err
		}
		cfg.Delay, err = parseDelayFlag(text)
		if err != nil {
			return nil, err
		}
		cfg.DelaySet = true
	}

	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}

	if flags.Changed("headless") {
		if cfg.Headless, err = flags.GetBool("headless"); err != nil {
			return nil, err
		}
	}

	if cfg.NoPrompt, err = flags.GetBool("no-prompt"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// parseDelayFlag accepts a whole number of seconds or a Go duration.
func parseDelayFlag(text string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(text); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("%w: %s", config.ErrInvalidDelay, text)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	d, err := time.ParseDuration(text)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s", config.ErrInvalidDelay, text)
	}
	return d, nil
}

// completeConfig asks for the values that neither flags nor the config file
// supplied. With --no-prompt nothing is asked and Validate reports what is
// missing.
func completeConfig(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.NoPrompt || !needsPrompt(cfg) {
		return nil
	}
	if cfg.InputFile == stdinList {
		return errPromptWithStdinList
	}

	defaults := prompt.Answers{
		InputFile: cfg.InputFile,
		Email:     cfg.Contact.Email,
		Phone:     cfg.Contact.Phone,
		Message:   cfg.Contact.Message,
	}
	if cfg.DelaySet {
		delay := cfg.Delay
		defaults.Delay = &delay
	}

	answers, err := prompt.New(cmd.InOrStdin(), cmd.OutOrStdout()).Collect(defaults)
	if err != nil {
		return fmt.Errorf("failed to read answers: %w", err)
	}

	cfg.InputFile = answers.InputFile
	cfg.Contact = model.Contact{
		Email:   answers.Email,
		Phone:   answers.Phone,
		Message: answers.Message,
	}
	if answers.Delay != nil {
		cfg.Delay = *answers.Delay
		cfg.DelaySet = true
	}
	return nil
}

// needsPrompt reports whether any prompted value is still missing.
func needsPrompt(cfg *config.Config) bool {
	return cfg.InputFile == "" ||
		cfg.Contact.Email == "" ||
		cfg.Contact.Phone == "" ||
		cfg.Contact.Message == "" ||
		!cfg.DelaySet
}

// loadTargets reads the URL list named by cfg.InputFile.
func loadTargets(cmd *cobra.Command, cfg *config.Config) ([]string, error) {
	if cfg.InputFile == stdinList {
		return target.LoadReader(cmd.InOrStdin())
	}
	return target.Load(cfg.InputFile)
}

// runBatch processes every URL and writes the results log, the optional
// report and the history entry.
func runBatch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	urls, err := loadTargets(cmd, cfg)
	if err != nil {
		return fmt.Errorf("failed to load URL list: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(urls) == 0 {
		logger.Warn("URL list is empty", "file", cfg.InputFile)
	}
	if cfg.Contact.IsEmpty() {
		logger.Warn("no contact values configured, forms will be submitted empty")
	}

	logger.Info("starting run",
		"sites", len(urls),
		"engine", cfg.Engine,
		"delay", cfg.Delay,
		"timeout", cfg.Timeout,
		"saveToDB", cfg.SaveToDB,
	)

	launcher, err := browser.New(cfg.Engine, cfg.BrowserOptions())
	if err != nil {
		return fmt.Errorf("failed to create browser: %w", err)
	}
	defer func() {
		if err := launcher.Close(); err != nil {
			logger.Error("failed to close browser", "error", err)
		}
	}()

	worker := pipeline.NewWorker(launcher, cfg.Contact,
		pipeline.WithNavigationTimeout(cfg.Timeout),
		pipeline.WithWorkerLogger(logger),
	)
	batch := pipeline.NewBatch(worker,
		pipeline.WithDelay(cfg.Delay),
		pipeline.WithBatchLogger(logger),
	)

	run := model.NewRun(cfg.Engine, cfg.InputFile)
	fmt.Fprintf(out, "Processing %d sites...\n\n", len(urls))

	outcomes, runErr := batch.Run(ctx, urls, func(outcome model.Outcome, index int) {
		fmt.Fprintf(out, "[%d/%d] %s\n", index+1, len(urls), outcome.LogLine())
	})
	run.Finish(outcomes, runErr != nil)

	fmt.Fprintf(out, "\nRun completed in %s: %d of %d forms submitted\n",
		run.Elapsed().Round(time.Millisecond), run.Submitted(), len(run.Outcomes))

	if err := report.WriteLogFile(cfg.ResultsFile, run); err != nil {
		return fmt.Errorf("failed to write results log: %w", err)
	}
	fmt.Fprintf(out, "Results written to %s\n", cfg.ResultsFile)

	if err := outputReport(out, cfg, run); err != nil {
		logger.Error("report failed", "error", err)
	}

	if cfg.SaveToDB {
		if err := saveRun(ctx, cfg, run, logger); err != nil {
			logger.Error("failed to save run", "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run interrupted after %d of %d sites: %w", len(outcomes), len(urls), runErr)
	}
	return nil
}

// outputReport outputs the run report in the requested format.
func outputReport(stdout io.Writer, cfg *config.Config, run *model.Run) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports contain the submitted contact pages and are readable by the owner only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	_, err := newReportWriter(output, cfg.JSONReport, cfg.MarkdownReport, cfg.Verbose).Write(run)
	return err
}

// newReportWriter selects the writer for the requested format.
func newReportWriter(output io.Writer, jsonOutput, markdownOutput, verbose bool) report.Writer {
	switch {
	case jsonOutput:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case markdownOutput:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(verbose))
	}
}

// saveRun stores the run in the history database.
func saveRun(ctx context.Context, cfg *config.Config, run *model.Run, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// An interrupted run is still recorded, so the save must not inherit the cancellation.
	if err := db.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	logger.Info("run saved to database", "id", run.ID, "path", db.Path())
	return nil
}
