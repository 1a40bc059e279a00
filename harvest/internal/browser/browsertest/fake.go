// Package browsertest provides in-memory Session and Node fakes so the
// pipeline can be exercised without a browser. Fake pages are registered
// per URL; nodes declare the selectors they match.
package browsertest

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/mapharvest/harvest/internal/browser"
)

// Node is a scriptable DOM node.
type Node struct {
	Sels     []string // selectors this node answers to
	TextVal  string
	Attrs    map[string]string
	HTMLVal  string
	Hidden   bool
	ClickErr error
	OnClick  func() // e.g. drive a fake navigation
	Children []*Node
}

func (n *Node) matches(selector string) bool {
	for _, s := range n.Sels {
		if s == selector {
			return true
		}
	}
	return false
}

func (n *Node) Text(context.Context) (string, error) { return n.TextVal, nil }

func (n *Node) Attribute(_ context.Context, name string) (string, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

func (n *Node) HTML(context.Context) (string, error) { return n.HTMLVal, nil }

func (n *Node) Visible(context.Context) bool { return !n.Hidden }

func (n *Node) Click(context.Context) error {
	if n.ClickErr != nil {
		return n.ClickErr
	}
	if n.OnClick != nil {
		n.OnClick()
	}
	return nil
}

func (n *Node) Query(_ context.Context, selector string) []browser.Node {
	var out []browser.Node
	for _, c := range n.Children {
		out = append(out, collect(c, selector)...)
	}
	return out
}

func collect(n *Node, selector string) []browser.Node {
	var out []browser.Node
	if n.matches(selector) {
		out = append(out, n)
	}
	for _, c := range n.Children {
		out = append(out, collect(c, selector)...)
	}
	return out
}

// Page is the node tree served for one URL.
type Page struct {
	Nodes []*Node
	// OnScroll runs on every ScrollToBottom, letting tests simulate lazy
	// loading by appending nodes.
	OnScroll func(p *Page)
}

// Query returns the page nodes matching the selector, depth-first.
func (p *Page) Query(selector string) []browser.Node {
	var out []browser.Node
	for _, n := range p.Nodes {
		out = append(out, collect(n, selector)...)
	}
	return out
}

// Session is a fake browser session backed by registered pages.
type Session struct {
	Pages    map[string]*Page
	NavErr   map[string]error  // per-URL navigation failures
	Redirect map[string]string // navigations the server rewrites
	Current  string
	History  []string
	Scrolls  int
	Closed   bool
}

// NewSession creates an empty fake session.
func NewSession() *Session {
	return &Session{
		Pages:    map[string]*Page{},
		NavErr:   map[string]error{},
		Redirect: map[string]string{},
	}
}

// AddPage registers a page under a URL and returns it for mutation.
func (s *Session) AddPage(url string, nodes ...*Node) *Page {
	p := &Page{Nodes: nodes}
	s.Pages[url] = p
	return p
}

// Goto moves the session to a URL without going through Navigate, the way
// an in-page click changes the location. Used by Node.OnClick hooks.
func (s *Session) Goto(url string) {
	if s.Current != "" {
		s.History = append(s.History, s.Current)
	}
	s.Current = url
}

func (s *Session) Navigate(_ context.Context, url string, _ time.Duration) error {
	if err := s.NavErr[url]; err != nil {
		return err
	}
	if to, ok := s.Redirect[url]; ok {
		url = to
	}
	if _, ok := s.Pages[url]; !ok {
		return fmt.Errorf("browsertest: no page registered for %s", url)
	}
	s.Goto(url)
	return nil
}

func (s *Session) Back(context.Context) error {
	if len(s.History) == 0 {
		return fmt.Errorf("browsertest: empty history")
	}
	s.Current = s.History[len(s.History)-1]
	s.History = s.History[:len(s.History)-1]
	return nil
}

func (s *Session) CurrentURL(context.Context) (string, error) { return s.Current, nil }

func (s *Session) Query(_ context.Context, selector string) []browser.Node {
	p, ok := s.Pages[s.Current]
	if !ok {
		return nil
	}
	return p.Query(selector)
}

func (s *Session) ScrollToBottom(context.Context, browser.Node) error {
	s.Scrolls++
	if p, ok := s.Pages[s.Current]; ok && p.OnScroll != nil {
		p.OnScroll(p)
	}
	return nil
}

func (s *Session) Close() error {
	s.Closed = true
	return nil
}
