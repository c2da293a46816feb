package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/nao1215/formcourier/internal/config"
	"github.com/nao1215/formcourier/internal/database"
	"github.com/nao1215/formcourier/internal/model"
	"github.com/nao1215/formcourier/internal/target"
)

// TestNewRunCmd tests the run command creation.
func TestNewRunCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRunCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "run" {
			t.Errorf("expected use 'run', got %q", cmd.Use)
		}
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty descriptions")
		}
	})

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"list", "l", ""},
		{"email", "e", ""},
		{"phone", "p", ""},
		{"message", "m", ""},
		{"delay", "d", ""},
		{"timeout", "t", config.DefaultTimeout.String()},
		{"engine", "", config.DefaultEngine},
		{"headless", "", "true"},
		{"browser-bin", "", ""},
		{"user-agent", "", ""},
		{"results", "r", config.DefaultResultsFile},
		{"json", "j", "false"},
		{"markdown", "", "false"},
		{"output", "o", ""},
		{"config", "c", ""},
		{"no-prompt", "", "false"},
		{"no-history", "", "false"},
		{"db-dir", "", ""},
	}

	for _, tt := range tests {
		t.Run("has "+tt.name+" flag", func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

// TestParseDelayFlag tests the --delay value formats.
func TestParseDelayFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "seconds", input: "5", want: 5 * time.Second},
		{name: "zero disables the pause", input: "0", want: 0},
		{name: "duration", input: "1500ms", want: 1500 * time.Millisecond},
		{name: "negative seconds", input: "-1", wantErr: true},
		{name: "negative duration", input: "-2s", wantErr: true},
		{name: "garbage", input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseDelayFlag(tt.input)
			if tt.wantErr {
				if !errors.Is(err, config.ErrInvalidDelay) {
					t.Errorf("expected ErrInvalidDelay, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseDelayFlag(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// parsedRunCmd returns the run command of a fresh root with args parsed but
// not executed.
func parsedRunCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	root := NewRootCmd()
	cmd, rest, err := root.Find(append([]string{"run"}, args...))
	if err != nil {
		t.Fatalf("failed to find run command: %v", err)
	}
	if err := cmd.ParseFlags(rest); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return cmd
}

// writeFile writes content to name inside dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// TestBuildConfig tests layering of defaults, the config file and flags.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("flags override the config file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeFile(t, dir, "config.yaml", `
input: from-file.txt
contact:
  email: file@example.com
  phone: "111"
delay: 7
timeout: 30
engine: static
`)

		cmd := parsedRunCmd(t, "-c", cfgPath, "-e", "flag@example.com", "-d", "2", "-v")
		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := model.Contact{Email: "flag@example.com", Phone: "111"}
		if diff := cmp.Diff(want, cfg.Contact); diff != "" {
			t.Errorf("contact mismatch (-want +got):\n%s", diff)
		}
		if cfg.InputFile != "from-file.txt" {
			t.Errorf("InputFile = %q, want from-file.txt", cfg.InputFile)
		}
		if cfg.Delay != 2*time.Second || !cfg.DelaySet {
			t.Errorf("Delay = %v (set %v), want 2s from the flag", cfg.Delay, cfg.DelaySet)
		}
		if cfg.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want 30s from the file", cfg.Timeout)
		}
		if cfg.Engine != "static" {
			t.Errorf("Engine = %q, want static", cfg.Engine)
		}
		if !cfg.Verbose {
			t.Error("expected verbose from the persistent flag")
		}
	})

	t.Run("unset flags keep defaults", func(t *testing.T) {
		t.Parallel()
		cfgPath := writeFile(t, t.TempDir(), "empty.yaml", "")

		cfg, err := buildConfig(parsedRunCmd(t, "-c", cfgPath))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Timeout != config.DefaultTimeout {
			t.Errorf("Timeout = %v, want %v", cfg.Timeout, config.DefaultTimeout)
		}
		if cfg.DelaySet {
			t.Error("expected delay to be left for the prompt")
		}
		if !cfg.SaveToDB {
			t.Error("expected history to be enabled by default")
		}
		if !cfg.Headless {
			t.Error("expected headless by default")
		}
	})

	t.Run("headless and history can be turned off", func(t *testing.T) {
		t.Parallel()
		cfgPath := writeFile(t, t.TempDir(), "empty.yaml", "")

		cfg, err := buildConfig(parsedRunCmd(t, "-c", cfgPath, "--headless=false", "--no-history"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Headless {
			t.Error("expected headless to be disabled")
		}
		if cfg.SaveToDB {
			t.Error("expected history to be disabled")
		}
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		t.Parallel()
		missing := filepath.Join(t.TempDir(), "missing.yaml")

		_, err := buildConfig(parsedRunCmd(t, "-c", missing))
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid delay is an error", func(t *testing.T) {
		t.Parallel()
		cfgPath := writeFile(t, t.TempDir(), "empty.yaml", "")

		_, err := buildConfig(parsedRunCmd(t, "-c", cfgPath, "-d", "-3"))
		if !errors.Is(err, config.ErrInvalidDelay) {
			t.Errorf("expected ErrInvalidDelay, got %v", err)
		}
	})
}

// TestCompleteConfig tests asking for missing values.
func TestCompleteConfig(t *testing.T) {
	t.Parallel()

	t.Run("asks for all five values", func(t *testing.T) {
		t.Parallel()
		cmd := parsedRunCmd(t)
		var out bytes.Buffer
		cmd.SetIn(strings.NewReader("sites.txt\nme@example.com\n555-0100\nHello there\n10\n"))
		cmd.SetOut(&out)

		cfg := config.NewConfig()
		if err := completeConfig(cmd, cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := model.Contact{Email: "me@example.com", Phone: "555-0100", Message: "Hello there"}
		if diff := cmp.Diff(want, cfg.Contact); diff != "" {
			t.Errorf("contact mismatch (-want +got):\n%s", diff)
		}
		if cfg.InputFile != "sites.txt" {
			t.Errorf("InputFile = %q, want sites.txt", cfg.InputFile)
		}
		if cfg.Delay != 10*time.Second {
			t.Errorf("Delay = %v, want 10s", cfg.Delay)
		}
		if got := strings.Count(out.String(), ": "); got != 5 {
			t.Errorf("expected 5 prompts, got %d in %q", got, out.String())
		}
	})

	t.Run("invalid delay answer falls back to the default", func(t *testing.T) {
		t.Parallel()
		cmd := parsedRunCmd(t)
		cmd.SetIn(strings.NewReader("abc\n"))
		cmd.SetOut(&bytes.Buffer{})

		cfg := config.NewConfig()
		cfg.InputFile = "sites.txt"
		cfg.Contact = model.Contact{Email: "a", Phone: "b", Message: "c"}
		if err := completeConfig(cmd, cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Delay != config.DefaultDelay {
			t.Errorf("Delay = %v, want %v", cfg.Delay, config.DefaultDelay)
		}
	})

	t.Run("nothing is asked when everything is set", func(t *testing.T) {
		t.Parallel()
		cmd := parsedRunCmd(t)
		var out bytes.Buffer
		cmd.SetIn(strings.NewReader(""))
		cmd.SetOut(&out)

		cfg := config.NewConfig()
		cfg.InputFile = "sites.txt"
		cfg.Contact = model.Contact{Email: "a", Phone: "b", Message: "c"}
		cfg.DelaySet = true
		if err := completeConfig(cmd, cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Len() != 0 {
			t.Errorf("expected no prompts, got %q", out.String())
		}
	})

	t.Run("no-prompt skips the questions", func(t *testing.T) {
		t.Parallel()
		cmd := parsedRunCmd(t)
		cmd.SetIn(strings.NewReader(""))

		cfg := config.NewConfig()
		cfg.NoPrompt = true
		if err := completeConfig(cmd, cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !errors.Is(cfg.Validate(), config.ErrNoInputFile) {
			t.Errorf("expected ErrNoInputFile from Validate, got %v", cfg.Validate())
		}
	})

	t.Run("standard input list cannot be combined with prompting", func(t *testing.T) {
		t.Parallel()
		cmd := parsedRunCmd(t)

		cfg := config.NewConfig()
		cfg.InputFile = stdinList
		if err := completeConfig(cmd, cfg); !errors.Is(err, errPromptWithStdinList) {
			t.Errorf("expected errPromptWithStdinList, got %v", err)
		}
	})
}

// contactSite serves a home page linking to a contact form and records submissions.
type contactSite struct {
	mu        sync.Mutex
	submitted []url.Values
}

func (s *contactSite) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><a href="/contact">Contact us</a></body></html>`)
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>
<form action="/send" method="post">
  <input name="email">
  <input name="phone">
  <textarea name="message"></textarea>
  <button type="submit">Send</button>
</form>
</body></html>`)
	})
	mux.HandleFunc("/support", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><p>Call us.</p></body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/team">Team</a></body></html>`)
	})
	mux.HandleFunc("/send", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.submitted = append(s.submitted, r.PostForm)
		s.mu.Unlock()
		fmt.Fprint(w, `<html><body><p>Thanks</p></body></html>`)
	})
	return mux
}

// executeRoot runs the root command with args and returns stdout.
func executeRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())

	err := cmd.Execute()
	return stdout.String(), err
}

// TestRunCmdStaticEngine runs whole batches against a local site.
func TestRunCmdStaticEngine(t *testing.T) {
	t.Parallel()

	t.Run("writes one outcome per site in order", func(t *testing.T) {
		t.Parallel()
		site := &contactSite{}
		srv := httptest.NewServer(site.handler())
		t.Cleanup(srv.Close)

		dir := t.TempDir()
		hostOnly := strings.TrimPrefix(srv.URL, "http://")
		list := writeFile(t, dir, "sites.txt", strings.Join([]string{
			srv.URL + "/",
			"",
			srv.URL + "/support",
			hostOnly + "/about",
		}, "\n"))
		results := filepath.Join(dir, "out", "results.log")
		cfgPath := writeFile(t, dir, "config.yaml", "")

		stdout, err := executeRoot(t, "", "run",
			"-c", cfgPath,
			"-l", list,
			"-e", "me@example.com",
			"-p", "555-0100",
			"-m", "Hello",
			"-d", "0",
			"-r", results,
			"--engine", "static",
			"--no-prompt",
			"--no-history",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(results)
		if err != nil {
			t.Fatalf("failed to read results log: %v", err)
		}
		want := strings.Join([]string{
			srv.URL + "/: submitted",
			srv.URL + "/support: no form found",
			"http://" + hostOnly + "/about: no contact page found",
		}, "\n") + "\n"
		if diff := cmp.Diff(want, string(content)); diff != "" {
			t.Errorf("results log mismatch (-want +got):\n%s", diff)
		}

		site.mu.Lock()
		defer site.mu.Unlock()
		if len(site.submitted) != 1 {
			t.Fatalf("expected 1 submission, got %d", len(site.submitted))
		}
		got := site.submitted[0]
		if got.Get("email") != "me@example.com" || got.Get("phone") != "555-0100" || got.Get("message") != "Hello" {
			t.Errorf("unexpected submitted values: %v", got)
		}

		if !strings.Contains(stdout, "[1/3] "+srv.URL+"/: submitted") {
			t.Errorf("expected progress line in output, got %q", stdout)
		}
		if !strings.Contains(stdout, "1 of 3 forms submitted") {
			t.Errorf("expected submitted count in output, got %q", stdout)
		}
	})

	t.Run("unreachable site is an error outcome", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		list := writeFile(t, dir, "sites.txt", "http://127.0.0.1:1/\n")
		results := filepath.Join(dir, "results.log")
		cfgPath := writeFile(t, dir, "config.yaml", "")

		_, err := executeRoot(t, "", "run",
			"-c", cfgPath, "-l", list, "-r", results, "-d", "0", "-t", "5s",
			"--engine", "static", "--no-prompt", "--no-history",
		)
		if err != nil {
			t.Fatalf("per-site failures must not fail the run: %v", err)
		}

		content, err := os.ReadFile(results)
		if err != nil {
			t.Fatalf("failed to read results log: %v", err)
		}
		if !strings.HasPrefix(string(content), "http://127.0.0.1:1/: error: ") {
			t.Errorf("expected error outcome, got %q", content)
		}
	})

	t.Run("URL list from standard input", func(t *testing.T) {
		t.Parallel()
		site := &contactSite{}
		srv := httptest.NewServer(site.handler())
		t.Cleanup(srv.Close)

		dir := t.TempDir()
		results := filepath.Join(dir, "results.log")
		cfgPath := writeFile(t, dir, "config.yaml", "")

		_, err := executeRoot(t, srv.URL+"/support\n", "run",
			"-c", cfgPath, "-l", "-", "-r", results, "-d", "0",
			"--engine", "static", "--no-prompt", "--no-history",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(results)
		if err != nil {
			t.Fatalf("failed to read results log: %v", err)
		}
		if string(content) != srv.URL+"/support: no form found\n" {
			t.Errorf("unexpected results log %q", content)
		}
	})

	t.Run("missing URL list writes no log", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		results := filepath.Join(dir, "results.log")
		cfgPath := writeFile(t, dir, "config.yaml", "")

		_, err := executeRoot(t, "", "run",
			"-c", cfgPath, "-l", filepath.Join(dir, "missing.txt"), "-r", results,
			"--engine", "static", "--no-prompt", "--no-history",
		)
		if !errors.Is(err, target.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := os.Stat(results); !os.IsNotExist(err) {
			t.Error("expected no results log after a load failure")
		}
	})

	t.Run("previous results are replaced", func(t *testing.T) {
		t.Parallel()
		site := &contactSite{}
		srv := httptest.NewServer(site.handler())
		t.Cleanup(srv.Close)

		dir := t.TempDir()
		results := writeFile(t, dir, "results.log", "stale line 1\nstale line 2\nstale line 3\n")
		list := writeFile(t, dir, "sites.txt", srv.URL+"/support\n")
		cfgPath := writeFile(t, dir, "config.yaml", "")

		_, err := executeRoot(t, "", "run",
			"-c", cfgPath, "-l", list, "-r", results, "-d", "0",
			"--engine", "static", "--no-prompt", "--no-history",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(results)
		if err != nil {
			t.Fatalf("failed to read results log: %v", err)
		}
		if strings.Contains(string(content), "stale") {
			t.Errorf("expected previous content to be truncated, got %q", content)
		}
	})

	t.Run("conflicting report formats are rejected", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeFile(t, dir, "config.yaml", "")

		_, err := executeRoot(t, "", "run",
			"-c", cfgPath, "-l", "sites.txt", "--json", "--markdown",
			"--engine", "static", "--no-prompt", "--no-history",
		)
		if !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("unknown engine is rejected", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfgPath := writeFile(t, dir, "config.yaml", "")

		_, err := executeRoot(t, "", "run",
			"-c", cfgPath, "-l", "sites.txt", "--engine", "lynx", "--no-prompt", "--no-history",
		)
		if !errors.Is(err, config.ErrUnknownEngine) {
			t.Errorf("expected ErrUnknownEngine, got %v", err)
		}
	})
}

// TestRunCmdReports tests the report formats and the history database.
func TestRunCmdReports(t *testing.T) {
	t.Parallel()

	site := &contactSite{}
	srv := httptest.NewServer(site.handler())
	t.Cleanup(srv.Close)

	tests := []struct {
		name string
		flag string
		want string
	}{
		{name: "markdown report", flag: "--markdown", want: "# formcourier Run Report"},
		{name: "json report", flag: "--json", want: `"summary"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			list := writeFile(t, dir, "sites.txt", srv.URL+"/\n")
			cfgPath := writeFile(t, dir, "config.yaml", "")
			reportPath := filepath.Join(dir, "reports", "run.out")

			_, err := executeRoot(t, "", "run",
				"-c", cfgPath, "-l", list, "-r", filepath.Join(dir, "results.log"), "-d", "0",
				"--engine", "static", "--no-prompt", "--no-history",
				tt.flag, "-o", reportPath,
			)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			content, err := os.ReadFile(reportPath)
			if err != nil {
				t.Fatalf("failed to read report: %v", err)
			}
			if !strings.Contains(string(content), tt.want) {
				t.Errorf("expected report to contain %q, got:\n%s", tt.want, content)
			}
		})
	}

	t.Run("run is saved to history", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		dbDir := filepath.Join(dir, "db")
		list := writeFile(t, dir, "sites.txt", srv.URL+"/\n"+srv.URL+"/support\n")
		cfgPath := writeFile(t, dir, "config.yaml", "")

		_, err := executeRoot(t, "", "run",
			"-c", cfgPath, "-l", list, "-r", filepath.Join(dir, "results.log"), "-d", "0",
			"--engine", "static", "--no-prompt", "--db-dir", dbDir,
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		db, err := database.Open(dbDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 stored run, got %d", len(runs))
		}
		if runs[0].Engine != "static" || runs[0].Total() != 2 {
			t.Errorf("unexpected stored run: %+v", runs[0])
		}
	})
}

// TestSetupLogger tests that the contact values never reach the log.
func TestSetupLogger(t *testing.T) {
	t.Parallel()

	contact := model.Contact{Email: "me@example.com", Phone: "555-0100", Message: "Buy our widgets"}

	for _, jsonFormat := range []bool{false, true} {
		t.Run(fmt.Sprintf("json=%v", jsonFormat), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := setupLogger(&buf, true, jsonFormat, contact)
			logger.Debug("fill failed", "detail", "typed 555-0100 and Buy our widgets")

			output := buf.String()
			if output == "" {
				t.Fatal("expected debug output in verbose mode")
			}
			for _, leak := range []string{"555-0100", "Buy our widgets"} {
				if strings.Contains(output, leak) {
					t.Errorf("expected %q to be masked, got: %s", leak, output)
				}
			}
		})
	}
}
