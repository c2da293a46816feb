package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/formcourier/internal/heuristic"
)

// Engine names accepted by New.
const (
	EngineRod    = "rod"
	EngineStatic = "static"
)

// Engines lists the supported engine names.
var Engines = []string{EngineRod, EngineStatic}

// Errors shared by the engines.
var (
	// ErrUnknownEngine is returned by New for an unsupported engine name.
	ErrUnknownEngine = errors.New("unknown browser engine")

	// ErrNotNavigated is returned when a page is queried before any navigation.
	ErrNotNavigated = errors.New("page has not been navigated")

	// ErrNotClickable is returned when an element cannot be clicked by the engine.
	ErrNotClickable = errors.New("element is not clickable")

	// ErrClosed is returned when a closed page or launcher is used.
	ErrClosed = errors.New("browser session closed")
)

// Launcher opens isolated browser sessions.
type Launcher interface {
	// Open starts a fresh session with no state shared with earlier sessions.
	// The caller must Close the returned page.
	Open(ctx context.Context) (Page, error)

	// Close releases the engine (for example the Chromium process).
	Close() error
}

// Page is one tab inside an isolated session.
type Page interface {
	// Navigate loads address and waits for the document to load, bounded by timeout.
	Navigate(ctx context.Context, address string, timeout time.Duration) error

	// URL returns the address of the currently loaded document, after redirects.
	URL(ctx context.Context) (string, error)

	// Query returns the first element in document order that matches rule.
	// found is false when nothing matches; this is not an error.
	Query(ctx context.Context, rule heuristic.Rule) (el Element, found bool, err error)

	// Close releases the page and its session.
	Close() error
}

// Element is a handle to a DOM element on a Page.
type Element interface {
	// Attribute returns the attribute value; ok is false when it is absent.
	Attribute(ctx context.Context, name string) (value string, ok bool, err error)

	// Fill replaces the element's value with value.
	Fill(ctx context.Context, value string) error

	// Click activates the element.
	Click(ctx context.Context) error
}

// Options configures engine construction.
type Options struct {
	// Headless runs Chromium without a window. Ignored by the static engine.
	Headless bool

	// Bin is the Chromium executable path. Empty lets rod find or download one.
	Bin string

	// UserAgent overrides the engine's user agent when non-empty.
	UserAgent string

	// MaxBodySize caps how many bytes the static engine reads per response.
	MaxBodySize int64
}

// New returns the launcher for the named engine.
func New(engine string, opts Options) (Launcher, error) {
	switch engine {
	case EngineRod:
		return NewRodLauncher(opts), nil
	case EngineStatic:
		return NewStaticLauncher(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: rod, static)", ErrUnknownEngine, engine)
	}
}
