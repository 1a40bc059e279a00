package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// rodSession implements Session on a Rod page with stealth applied.
type rodSession struct {
	page   *rod.Page
	cfg    Config
	logger *slog.Logger
}

func newRodSession(ctx context.Context, b *rod.Browser, cfg Config) (*rodSession, error) {
	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create stealth page: %w", err)
	}
	if err := page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: 1366, Height: 900, DeviceScaleFactor: 1,
	}); err != nil {
		cfg.Logger.Warn("browser: set viewport failed", "error", err)
	}
	return &rodSession{page: page, cfg: cfg, logger: cfg.Logger}, nil
}

func (s *rodSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.cfg.NavigationTimeout
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := s.page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		// A slow load event is not fatal; the DOM may already be usable.
		s.logger.Warn("browser: wait load timeout", "url", url, "error", err)
	}
	return nil
}

func (s *rodSession) Back(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	p := s.page.Context(navCtx)
	if err := p.NavigateBack(); err != nil {
		return fmt.Errorf("browser: navigate back: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		s.logger.Warn("browser: wait load after back", "error", err)
	}
	return nil
}

func (s *rodSession) CurrentURL(ctx context.Context) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	info, err := s.page.Context(callCtx).Info()
	if err != nil {
		return "", fmt.Errorf("browser: page info: %w", err)
	}
	return info.URL, nil
}

func (s *rodSession) Query(ctx context.Context, selector string) []Node {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	els, err := s.page.Context(callCtx).Elements(selector)
	if err != nil {
		// Absence is not an error; a dead page or bad selector yields empty.
		s.logger.Debug("browser: query failed", "selector", selector, "error", err)
		return nil
	}
	return wrapElements(els, s)
}

func (s *rodSession) ScrollToBottom(ctx context.Context, scope Node) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	if scope == nil {
		_, err := s.page.Context(callCtx).Eval(
			`() => window.scrollTo(0, document.body.scrollHeight)`)
		if err != nil {
			return fmt.Errorf("browser: scroll window: %w", err)
		}
		return nil
	}

	rn, ok := scope.(*rodNode)
	if !ok {
		return fmt.Errorf("browser: scroll scope is not a live node")
	}
	_, err := rn.el.Context(callCtx).Eval(
		`() => { this.scrollTop = this.scrollHeight }`)
	if err != nil {
		return fmt.Errorf("browser: scroll container: %w", err)
	}
	return nil
}

func (s *rodSession) Close() error {
	if s.page == nil {
		return nil
	}
	err := s.page.Close()
	s.page = nil
	if err != nil && !strings.Contains(err.Error(), "already closed") {
		return fmt.Errorf("browser: close page: %w", err)
	}
	return nil
}

// rodNode implements Node on a Rod element.
type rodNode struct {
	el   *rod.Element
	sess *rodSession
}

func wrapElements(els rod.Elements, sess *rodSession) []Node {
	if len(els) == 0 {
		return nil
	}
	nodes := make([]Node, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, &rodNode{el: el, sess: sess})
	}
	return nodes
}

func (n *rodNode) Text(ctx context.Context) (string, error) {
	callCtx, cancel := n.callCtx(ctx)
	defer cancel()

	text, err := n.el.Context(callCtx).Text()
	if err != nil {
		return "", fmt.Errorf("browser: element text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (n *rodNode) Attribute(ctx context.Context, name string) (string, bool) {
	callCtx, cancel := n.callCtx(ctx)
	defer cancel()

	val, err := n.el.Context(callCtx).Attribute(name)
	if err != nil || val == nil {
		return "", false
	}
	return *val, true
}

func (n *rodNode) HTML(ctx context.Context) (string, error) {
	callCtx, cancel := n.callCtx(ctx)
	defer cancel()

	html, err := n.el.Context(callCtx).HTML()
	if err != nil {
		return "", fmt.Errorf("browser: element html: %w", err)
	}
	return html, nil
}

func (n *rodNode) Visible(ctx context.Context) bool {
	callCtx, cancel := n.callCtx(ctx)
	defer cancel()

	vis, err := n.el.Context(callCtx).Visible()
	return err == nil && vis
}

// Click tries a direct input click first. When the element is covered by
// an overlay or its remote reference went stale, it falls back to a
// scripted click, which bypasses hit testing.
func (n *rodNode) Click(ctx context.Context) error {
	callCtx, cancel := n.callCtx(ctx)
	defer cancel()

	el := n.el.Context(callCtx)
	if err := el.ScrollIntoView(); err != nil {
		n.sess.logger.Debug("browser: scroll into view failed", "error", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
		return nil
	}
	if _, err := el.Eval(`() => this.click()`); err != nil {
		return fmt.Errorf("%w: %v", ErrNotInteractable, err)
	}
	return nil
}

func (n *rodNode) Query(ctx context.Context, selector string) []Node {
	callCtx, cancel := n.callCtx(ctx)
	defer cancel()

	els, err := n.el.Context(callCtx).Elements(selector)
	if err != nil {
		return nil
	}
	return wrapElements(els, n.sess)
}

func (n *rodNode) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, n.sess.cfg.CallTimeout)
}
