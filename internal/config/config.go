package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/formcourier/internal/browser"
	"github.com/nao1215/formcourier/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "formcourier"

	// DefaultTimeout bounds every page navigation.
	DefaultTimeout = 60 * time.Second

	// DefaultDelay is the pause between consecutive sites.
	DefaultDelay = 3 * time.Second

	// DefaultResultsFile is the results log written after every run.
	DefaultResultsFile = "results.log"

	// DefaultEngine is the browser engine used when none is configured.
	DefaultEngine = browser.EngineRod

	// DefaultUserAgent is sent by the static engine. The rod engine keeps
	// Chromium's own user agent unless one is configured.
	DefaultUserAgent = "formcourier/1.0 (+https://github.com/nao1215/formcourier)"

	// DefaultMaxBodySize limits how much of each page the static engine reads.
	DefaultMaxBodySize = browser.DefaultMaxBodySize
)

// Config holds all settings for one run.
// It is populated from defaults, the config file, CLI flags and the
// interactive prompt, in increasing order of precedence except that the
// prompt only fills values nothing else supplied.
type Config struct {
	// InputFile is the path of the URL list, one URL per line.
	// "-" reads the list from standard input.
	InputFile string

	// Contact holds the values typed into every form.
	Contact model.Contact

	// Delay is the pause between consecutive sites.
	Delay time.Duration

	// DelaySet records whether Delay came from a flag or the config file.
	// When false the prompt asks for it.
	DelaySet bool

	// Timeout bounds each page navigation.
	Timeout time.Duration

	// ResultsFile is where the "<url>: <outcome>" lines are written.
	ResultsFile string

	// Engine selects the browser engine: "rod" or "static".
	Engine string

	// Headless runs Chromium without a window.
	Headless bool

	// BrowserBin is the Chromium executable. Empty lets rod locate one.
	BrowserBin string

	// UserAgent overrides the user agent when non-empty.
	UserAgent string

	// MaxBodySize caps how many bytes the static engine reads per page.
	MaxBodySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// ConfigFilePath is the explicit configuration file from -c.
	ConfigFilePath string

	// NoPrompt fails instead of asking for missing values.
	NoPrompt bool

	// JSONReport writes a JSON run report. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport writes a Markdown run report. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file for the run report; empty means stdout.
	ReportFile string

	// DBDir is the directory of the run history database.
	DBDir string

	// SaveToDB enables saving the run to the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Delay:       DefaultDelay,
		Timeout:     DefaultTimeout,
		ResultsFile: DefaultResultsFile,
		Engine:      DefaultEngine,
		Headless:    true,
		MaxBodySize: DefaultMaxBodySize,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the XDG data directory for formcourier.
// On Linux: ~/.local/share/formcourier
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for formcourier.
// On Linux: ~/.config/formcourier
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ApplyFile copies the values set in the config file onto c.
// Zero values in the file leave c unchanged.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}

	if f.Input != "" {
		c.InputFile = f.Input
	}
	if f.Contact.Email != "" {
		c.Contact.Email = f.Contact.Email
	}
	if f.Contact.Phone != "" {
		c.Contact.Phone = f.Contact.Phone
	}
	if f.Contact.Message != "" {
		c.Contact.Message = f.Contact.Message
	}
	if f.Delay != nil {
		c.Delay = time.Duration(*f.Delay) * time.Second
		c.DelaySet = true
	}
	if f.Timeout > 0 {
		c.Timeout = time.Duration(f.Timeout) * time.Second
	}
	if f.ResultsFile != "" {
		c.ResultsFile = f.ResultsFile
	}
	if f.Engine != "" {
		c.Engine = f.Engine
	}
	if f.Browser.Bin != "" {
		c.BrowserBin = f.Browser.Bin
	}
	if f.Browser.Headless != nil {
		c.Headless = *f.Browser.Headless
	}
	if f.Browser.UserAgent != "" {
		c.UserAgent = f.Browser.UserAgent
	}
}

// BrowserOptions returns the engine options derived from c.
func (c *Config) BrowserOptions() browser.Options {
	ua := c.UserAgent
	if ua == "" && c.Engine == browser.EngineStatic {
		ua = DefaultUserAgent
	}
	return browser.Options{
		Headless:    c.Headless,
		Bin:         c.BrowserBin,
		UserAgent:   ua,
		MaxBodySize: c.MaxBodySize,
	}
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the package's sentinel errors.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return ErrNoInputFile
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if !slices.Contains(browser.Engines, c.Engine) {
		return ErrUnknownEngine
	}

	if c.ResultsFile == "" {
		return ErrNoResultsFile
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
