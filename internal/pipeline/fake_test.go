package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nao1215/formcourier/internal/browser"
	"github.com/nao1215/formcourier/internal/heuristic"
)

// fakeNode is an element of a fakeSite document.
type fakeNode struct {
	tag   string
	attrs map[string]string

	clickErr   error
	clickPanic bool
}

// fakeSite describes one address served by fakeLauncher.
type fakeSite struct {
	// redirect is the address reported by URL after navigating here.
	redirect string
	navErr   error
	nodes    []*fakeNode
}

// fakeLauncher serves an in-memory set of documents and records every call.
type fakeLauncher struct {
	mu      sync.Mutex
	sites   map[string]*fakeSite
	openErr error
	pages   []*fakePage
}

func newFakeLauncher(sites map[string]*fakeSite) *fakeLauncher {
	return &fakeLauncher{sites: sites}
}

func (l *fakeLauncher) Open(ctx context.Context) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.openErr != nil {
		return nil, l.openErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p := &fakePage{launcher: l, fills: make(map[string]string)}
	l.pages = append(l.pages, p)
	return p, nil
}

func (l *fakeLauncher) Close() error { return nil }

func (l *fakeLauncher) lastPage() *fakePage {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pages) == 0 {
		return nil
	}
	return l.pages[len(l.pages)-1]
}

type fakePage struct {
	launcher *fakeLauncher

	current string
	site    *fakeSite

	navigations []string
	queries     []string
	fills       map[string]string
	clicks      []string
	closed      int
}

func (p *fakePage) Navigate(ctx context.Context, address string, _ time.Duration) error {
	p.navigations = append(p.navigations, address)
	site, ok := p.launcher.sites[address]
	if !ok {
		return errors.New("navigate to " + address + ": net::ERR_NAME_NOT_RESOLVED")
	}
	if site.navErr != nil {
		return site.navErr
	}
	p.current = address
	if site.redirect != "" {
		p.current = site.redirect
	}
	p.site = site
	return nil
}

func (p *fakePage) URL(context.Context) (string, error) {
	if p.site == nil {
		return "", browser.ErrNotNavigated
	}
	return p.current, nil
}

func (p *fakePage) Query(_ context.Context, rule heuristic.Rule) (browser.Element, bool, error) {
	p.queries = append(p.queries, rule.Name)
	if p.site == nil {
		return nil, false, browser.ErrNotNavigated
	}
	for _, n := range p.site.nodes {
		if rule.Match(n.tag, n.attrs) {
			return &fakeElement{page: p, node: n, rule: rule.Name}, true, nil
		}
	}
	return nil, false, nil
}

func (p *fakePage) Close() error {
	p.closed++
	return nil
}

func (p *fakePage) queried(name string) bool {
	for _, q := range p.queries {
		if q == name {
			return true
		}
	}
	return false
}

type fakeElement struct {
	page *fakePage
	node *fakeNode
	rule string
}

func (e *fakeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.node.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) Fill(_ context.Context, value string) error {
	e.page.fills[e.rule] = value
	return nil
}

func (e *fakeElement) Click(context.Context) error {
	if e.node.clickPanic {
		panic("cdp connection lost")
	}
	if e.node.clickErr != nil {
		return e.node.clickErr
	}
	e.page.clicks = append(e.page.clicks, e.rule)
	return nil
}

func node(tag string, kv ...string) *fakeNode {
	attrs := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs[kv[i]] = kv[i+1]
	}
	return &fakeNode{tag: tag, attrs: attrs}
}

// fullForm returns the nodes of a contact page with every supported field.
func fullForm() []*fakeNode {
	return []*fakeNode{
		node("form", "action", "/send"),
		node("input", "name", "your_email"),
		node("input", "id", "phone-number"),
		node("textarea", "placeholder", "Message"),
		node("button", "type", "submit"),
	}
}
