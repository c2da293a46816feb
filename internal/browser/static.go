package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/formcourier/internal/heuristic"
)

// DefaultMaxBodySize limits how much of a response the static engine parses.
const DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

// StaticLauncher fetches pages with net/http and evaluates rules with goquery.
// Every Open gets its own cookie jar.
type StaticLauncher struct {
	opts Options

	// transport is shared by all sessions; nil means http.DefaultTransport.
	transport http.RoundTripper

	mu     sync.Mutex
	closed bool
}

// NewStaticLauncher creates a launcher for the static HTML engine.
func NewStaticLauncher(opts Options) *StaticLauncher {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	return &StaticLauncher{opts: opts}
}

// WithTransport replaces the HTTP transport, mainly for tests.
func (l *StaticLauncher) WithTransport(rt http.RoundTripper) *StaticLauncher {
	l.transport = rt
	return l
}

// Open creates a session with an empty cookie jar.
func (l *StaticLauncher) Open(ctx context.Context) (Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &staticPage{
		client:    &http.Client{Jar: jar, Transport: l.transport},
		userAgent: l.opts.UserAgent,
		maxBody:   l.opts.MaxBodySize,
	}, nil
}

// Close marks the launcher closed. Idle connections are released.
func (l *StaticLauncher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if t, ok := l.transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
	return nil
}

// staticPage holds the parsed document of the last response.
type staticPage struct {
	client    *http.Client
	userAgent string
	maxBody   int64

	current *url.URL
	doc     *goquery.Document
	timeout time.Duration
	closed  bool
}

func (p *staticPage) Navigate(ctx context.Context, address string, timeout time.Duration) error {
	if p.closed {
		return ErrClosed
	}
	p.timeout = timeout

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", address, err)
	}
	if _, err := p.load(req); err != nil {
		return fmt.Errorf("navigate to %s: %w", address, err)
	}
	return nil
}

// load sends req and replaces the current document with the response.
// Like a browser, any HTTP status produces a document.
func (p *staticPage) load(req *http.Request) (*http.Response, error) {
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, p.maxBody))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	p.current = resp.Request.URL
	p.doc = doc
	return resp, nil
}

func (p *staticPage) URL(_ context.Context) (string, error) {
	if p.closed {
		return "", ErrClosed
	}
	if p.current == nil {
		return "", ErrNotNavigated
	}
	return p.current.String(), nil
}

func (p *staticPage) Query(_ context.Context, rule heuristic.Rule) (Element, bool, error) {
	if p.closed {
		return nil, false, ErrClosed
	}
	if p.doc == nil {
		return nil, false, ErrNotNavigated
	}

	sel := p.doc.Find(rule.Selector()).First()
	if sel.Length() == 0 {
		return nil, false, nil
	}
	return &staticElement{page: p, sel: sel}, true, nil
}

func (p *staticPage) Close() error {
	p.closed = true
	p.doc = nil
	p.client.CloseIdleConnections()
	return nil
}

// staticElement edits the parsed document in place, so later form
// serialization sees filled values.
type staticElement struct {
	page *staticPage
	sel  *goquery.Selection
}

func (e *staticElement) Attribute(_ context.Context, name string) (string, bool, error) {
	value, ok := e.sel.Attr(name)
	return value, ok, nil
}

func (e *staticElement) Fill(_ context.Context, value string) error {
	switch goquery.NodeName(e.sel) {
	case "textarea":
		e.sel.SetText(value)
	case "input":
		e.sel.SetAttr("value", value)
	default:
		return fmt.Errorf("cannot fill <%s> element", goquery.NodeName(e.sel))
	}
	return nil
}

func (e *staticElement) Click(ctx context.Context) error {
	if e.page.closed {
		return ErrClosed
	}

	tag := goquery.NodeName(e.sel)
	switch {
	case tag == "a":
		return e.follow(ctx)
	case isSubmitter(e.sel):
		return e.submit(ctx)
	default:
		return fmt.Errorf("%w: <%s>", ErrNotClickable, tag)
	}
}

// follow navigates to an anchor's href.
func (e *staticElement) follow(ctx context.Context) error {
	href, ok := e.sel.Attr("href")
	if !ok {
		return fmt.Errorf("%w: anchor without href", ErrNotClickable)
	}
	target, err := e.page.resolve(href)
	if err != nil {
		return err
	}
	return e.page.Navigate(ctx, target, e.page.timeout)
}

// submit sends the enclosing form the way a browser would for a
// urlencoded form and loads the response.
func (e *staticElement) submit(ctx context.Context) error {
	form := e.sel.Closest("form")
	if form.Length() == 0 {
		return fmt.Errorf("%w: submit control outside a form", ErrNotClickable)
	}

	method := strings.ToUpper(strings.TrimSpace(attrOverride(e.sel, form, "formmethod", "method")))
	if method != http.MethodPost {
		method = http.MethodGet
	}
	action, err := e.page.resolve(attrOverride(e.sel, form, "formaction", "action"))
	if err != nil {
		return err
	}

	values := serializeForm(form, e.sel)

	if e.page.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.page.timeout)
		defer cancel()
	}

	var req *http.Request
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, action, strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		var u *url.URL
		u, err = url.Parse(action)
		if err == nil {
			u.RawQuery = values.Encode()
			req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
		}
	}
	if err != nil {
		return fmt.Errorf("build form submission: %w", err)
	}

	resp, err := e.page.load(req)
	if err != nil {
		return fmt.Errorf("submit form to %s: %w", action, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("form submission to %s rejected: %s", action, resp.Status)
	}
	return nil
}

// resolve turns an href or action into an absolute URL against the current page.
func (p *staticPage) resolve(ref string) (string, error) {
	if p.current == nil {
		return "", ErrNotNavigated
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return p.current.String(), nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", ref, err)
	}
	return p.current.ResolveReference(u).String(), nil
}

// isSubmitter reports whether sel submits its form when clicked.
// A button without a type attribute is a submit button.
func isSubmitter(sel *goquery.Selection) bool {
	typ := strings.ToLower(sel.AttrOr("type", ""))
	switch goquery.NodeName(sel) {
	case "button":
		return typ == "" || typ == "submit"
	case "input":
		return typ == "submit" || typ == "image"
	default:
		return false
	}
}

// attrOverride returns the submitter's override attribute if present,
// otherwise the form's attribute.
func attrOverride(submitter, form *goquery.Selection, override, attr string) string {
	if v, ok := submitter.Attr(override); ok {
		return v
	}
	return form.AttrOr(attr, "")
}

// serializeForm collects the successful controls of form, plus the clicked
// submitter's name/value pair.
func serializeForm(form, submitter *goquery.Selection) url.Values {
	values := url.Values{}

	form.Find("input, textarea, select").Each(func(_ int, field *goquery.Selection) {
		name, ok := field.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := field.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(field) {
		case "textarea":
			values.Add(name, field.Text())
		case "select":
			if v, ok := selectedOption(field); ok {
				values.Add(name, v)
			}
		default:
			switch strings.ToLower(field.AttrOr("type", "text")) {
			case "submit", "image", "button", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := field.Attr("checked"); !checked {
					return
				}
				values.Add(name, field.AttrOr("value", "on"))
			default:
				values.Add(name, field.AttrOr("value", ""))
			}
		}
	})

	if name, ok := submitter.Attr("name"); ok && name != "" {
		values.Add(name, submitter.AttrOr("value", ""))
	}
	return values
}

// selectedOption returns the selected option's value, or the first option's.
func selectedOption(sel *goquery.Selection) (string, bool) {
	option := sel.Find("option[selected]").First()
	if option.Length() == 0 {
		option = sel.Find("option").First()
	}
	if option.Length() == 0 {
		return "", false
	}
	if v, ok := option.Attr("value"); ok {
		return v, true
	}
	return strings.TrimSpace(option.Text()), true
}
