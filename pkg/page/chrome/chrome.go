// Package chrome implements the page capability over the Chrome DevTools
// Protocol using chromedp.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"xscraper/pkg/logger"
	"xscraper/pkg/models"
	"xscraper/pkg/page"
)

// Options configures the launched browser
type Options struct {
	ExecPath     string
	Headless     bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	Logger       logger.Logger
}

// Browser is a running Chrome process
type Browser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	log           logger.Logger
}

// Launch starts Chrome. The process outlives ctx; release it with Close.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	lg := opts.Logger
	if lg == nil {
		lg = logger.GetLogger()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			lg.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			lg.Debug(fmt.Sprintf(format, args...))
		}),
	)

	b := &Browser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		log:           lg,
	}

	// An empty Run starts the process
	if err := run(ctx, browserCtx); err != nil {
		b.shutdown()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	lg.WithField("headless", opts.Headless).Debug("Browser launched")
	return b, nil
}

// NewPage opens a tab and installs cookies before any navigation
func (b *Browser) NewPage(ctx context.Context, cookies []models.Cookie) (page.Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	p := &Page{tabCtx: tabCtx, tabCancel: tabCancel}

	actions := []chromedp.Action{network.Enable()}
	if len(cookies) > 0 {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			params := make([]*network.CookieParam, 0, len(cookies))
			for _, c := range cookies {
				params = append(params, CookieParam(c))
			}
			return network.SetCookies(params).Do(ctx)
		}))
	}

	if err := run(ctx, tabCtx, actions...); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return p, nil
}

// Close shuts the browser down, giving up on a graceful exit when ctx is done
func (b *Browser) Close(ctx context.Context) error {
	err := cancelWithin(ctx, b.browserCtx)
	b.shutdown()
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

func (b *Browser) shutdown() {
	b.browserCancel()
	b.allocCancel()
}

// CookieParam converts a stored cookie into its CDP form
func CookieParam(c models.Cookie) *network.CookieParam {
	param := &network.CookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
	}
	if param.Path == "" {
		param.Path = "/"
	}
	if exp := c.ExpiresAt(); !exp.IsZero() {
		t := cdp.TimeSinceEpoch(exp)
		param.Expires = &t
	}
	switch strings.ToLower(c.SameSite) {
	case "strict":
		param.SameSite = network.CookieSameSiteStrict
	case "lax":
		param.SameSite = network.CookieSameSiteLax
	case "none":
		param.SameSite = network.CookieSameSiteNone
	}
	return param
}

// Page is one Chrome tab
type Page struct {
	tabCtx    context.Context
	tabCancel context.CancelFunc
}

type element struct {
	node *cdp.Node
}

func (e *element) Key() string {
	return fmt.Sprintf("%d", e.node.BackendNodeID)
}

func nodeIDs(el page.Element) ([]cdp.NodeID, error) {
	e, ok := el.(*element)
	if !ok || e.node == nil {
		return nil, fmt.Errorf("foreign element %T", el)
	}
	return []cdp.NodeID{e.node.NodeID}, nil
}

// Navigate loads url and waits for the load event. Content rendered later
// by scripts is picked up by the collection loop's own waits.
func (p *Page) Navigate(ctx context.Context, url string) error {
	return run(ctx, p.tabCtx, chromedp.Navigate(url))
}

func (p *Page) QueryAll(ctx context.Context, selector string) ([]page.Element, error) {
	var nodes []*cdp.Node
	if err := run(ctx, p.tabCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	return wrap(nodes), nil
}

func (p *Page) QueryWithin(ctx context.Context, parent page.Element, selector string) ([]page.Element, error) {
	e, ok := parent.(*element)
	if !ok {
		return nil, fmt.Errorf("foreign element %T", parent)
	}
	var nodes []*cdp.Node
	err := run(ctx, p.tabCtx, chromedp.Nodes(selector, &nodes,
		chromedp.ByQueryAll, chromedp.AtLeast(0), chromedp.FromNode(e.node)))
	if err != nil {
		return nil, err
	}
	return wrap(nodes), nil
}

func wrap(nodes []*cdp.Node) []page.Element {
	out := make([]page.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{node: n})
	}
	return out
}

// Text returns the rendered innerText of el
func (p *Page) Text(ctx context.Context, el page.Element) (string, error) {
	ids, err := nodeIDs(el)
	if err != nil {
		return "", err
	}
	var text string
	err = run(ctx, p.tabCtx, chromedp.JavascriptAttribute(ids, "innerText", &text,
		chromedp.ByNodeID, chromedp.NodeReady))
	return text, err
}

func (p *Page) Attribute(ctx context.Context, el page.Element, name string) (string, bool, error) {
	ids, err := nodeIDs(el)
	if err != nil {
		return "", false, err
	}
	var (
		value string
		ok    bool
	)
	err = run(ctx, p.tabCtx, chromedp.AttributeValue(ids, name, &value, &ok,
		chromedp.ByNodeID, chromedp.NodeReady))
	return value, ok, err
}

func (p *Page) OuterHTML(ctx context.Context, el page.Element) (string, error) {
	ids, err := nodeIDs(el)
	if err != nil {
		return "", err
	}
	var html string
	err = run(ctx, p.tabCtx, chromedp.OuterHTML(ids, &html, chromedp.ByNodeID, chromedp.NodeReady))
	return html, err
}

func (p *Page) Evaluate(ctx context.Context, script string, out any) error {
	return run(ctx, p.tabCtx, chromedp.Evaluate(script, out))
}

func (p *Page) WaitForSelector(ctx context.Context, selector string) error {
	return run(ctx, p.tabCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

// Screenshot captures the full page as PNG
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := run(ctx, p.tabCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close closes the tab
func (p *Page) Close(ctx context.Context) error {
	defer p.tabCancel()
	if err := cancelWithin(ctx, p.tabCtx); err != nil {
		return fmt.Errorf("close tab: %w", err)
	}
	return nil
}

// cancelWithin asks chromedp to close target gracefully, waiting at most
// until ctx is done
func cancelWithin(ctx context.Context, target context.Context) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(target) }()

	select {
	case err := <-done:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes actions on target while honouring the caller's deadline and
// cancellation. Cancelling a child of a chromedp context leaves the tab open.
func run(ctx context.Context, target context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(target)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}
