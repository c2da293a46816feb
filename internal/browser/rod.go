package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/nao1215/formcourier/internal/heuristic"
)

// RodLauncher runs one Chromium process and hands out incognito sessions.
// Chromium is launched on the first Open and stopped by Close.
type RodLauncher struct {
	opts Options

	mu       sync.Mutex
	launch   *launcher.Launcher
	browser  *rod.Browser
	closed   bool
	launchFn func() (string, error)
}

// NewRodLauncher creates a launcher for headless Chromium.
func NewRodLauncher(opts Options) *RodLauncher {
	return &RodLauncher{opts: opts}
}

// NewRodLauncherWithControlURL creates a launcher that connects to an already
// running Chromium at the given DevTools URL instead of starting one.
func NewRodLauncherWithControlURL(controlURL string, opts Options) *RodLauncher {
	return &RodLauncher{
		opts:     opts,
		launchFn: func() (string, error) { return controlURL, nil },
	}
}

// start launches and connects to Chromium if that has not happened yet.
func (l *RodLauncher) start() error {
	if l.closed {
		return ErrClosed
	}
	if l.browser != nil {
		return nil
	}

	var controlURL string
	var err error
	if l.launchFn != nil {
		controlURL, err = l.launchFn()
	} else {
		l.launch = launcher.New().Headless(l.opts.Headless)
		if l.opts.Bin != "" {
			l.launch = l.launch.Bin(l.opts.Bin)
		}
		controlURL, err = l.launch.Launch()
	}
	if err != nil {
		return fmt.Errorf("launch chromium: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.cleanupLauncher()
		return fmt.Errorf("connect to chromium: %w", err)
	}
	l.browser = b
	return nil
}

// Open creates an incognito context with a single blank page.
func (l *RodLauncher) Open(ctx context.Context) (Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.start(); err != nil {
		return nil, err
	}

	incognito, err := l.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("create page: %w", err)
	}

	if l.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: l.opts.UserAgent}); err != nil {
			_ = page.Close()      //nolint:errcheck // Best effort cleanup
			_ = incognito.Close() //nolint:errcheck // Best effort cleanup
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}

	return &rodPage{page: page, session: incognito}, nil
}

// Close disconnects from Chromium and stops the process it launched.
func (l *RodLauncher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var err error
	if l.browser != nil {
		err = l.browser.Close()
		l.browser = nil
	}
	l.cleanupLauncher()
	return err
}

func (l *RodLauncher) cleanupLauncher() {
	if l.launch != nil {
		l.launch.Cleanup()
		l.launch = nil
	}
}

// rodPage is a page in its own incognito browser context.
type rodPage struct {
	page    *rod.Page
	session *rod.Browser
}

func (p *rodPage) Navigate(ctx context.Context, address string, timeout time.Duration) error {
	page := p.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	if err := page.Navigate(address); err != nil {
		return fmt.Errorf("navigate to %s: %w", address, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for %s to load: %w", address, err)
	}
	return nil
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

func (p *rodPage) Query(ctx context.Context, rule heuristic.Rule) (Element, bool, error) {
	found, el, err := p.page.Context(ctx).Has(rule.Selector())
	if err != nil {
		return nil, false, fmt.Errorf("query %s: %w", rule.Name, err)
	}
	if !found {
		return nil, false, nil
	}
	return &rodElement{el: el}, true, nil
}

// Close closes the page and disposes of its incognito context.
func (p *rodPage) Close() error {
	return errors.Join(p.page.Close(), p.session.Close())
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("read attribute %s: %w", name, err)
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

// clearValue empties a field and notifies listeners, for fills with "".
const clearValue = `() => { this.value = ''; this.dispatchEvent(new Event('input', { bubbles: true })); }`

func (e *rodElement) Fill(ctx context.Context, value string) error {
	el := e.el.Context(ctx)
	if value == "" {
		if _, err := el.Eval(clearValue); err != nil {
			return fmt.Errorf("clear field: %w", err)
		}
		return nil
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select field text: %w", err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("type into field: %w", err)
	}
	return nil
}

func (e *rodElement) Click(ctx context.Context) error {
	if err := e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return nil
}
