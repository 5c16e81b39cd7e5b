// Package snapshot implements the page capability over saved HTML. A site
// maps each URL to a sequence of frames, one per scroll position, so the
// infinite-scroll behaviour of a live profile can be replayed offline.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"xscraper/pkg/models"
	"xscraper/pkg/page"
)

// FrameHeight is the synthetic document height added by each frame
const FrameHeight = 1000

// LocalURL is the address FromHTML serves its document under
const LocalURL = "snapshot://local"

// ErrNoMatch is returned by WaitForSelector when nothing matches. A snapshot
// never changes on its own, so waiting longer cannot help.
var ErrNoMatch = errors.New("selector matched nothing")

// Site maps URLs to the frames rendered as the page is scrolled
type Site map[string][]string

// Browser serves pages from a Site
type Browser struct {
	site Site

	mu     sync.Mutex
	pages  []*Page
	closed bool
}

// NewBrowser creates a browser over site
func NewBrowser(site Site) *Browser {
	return &Browser{site: site}
}

// NewPage opens a page with the given cookies recorded
func (b *Browser) NewPage(ctx context.Context, cookies []models.Cookie) (page.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("browser closed")
	}
	p := &Page{site: b.site, cookies: cookies}
	b.pages = append(b.pages, p)
	return p, nil
}

// Close marks the browser closed
func (b *Browser) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Closed reports whether Close was called
func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Pages returns the pages opened so far
func (b *Browser) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Page(nil), b.pages...)
}

// Page is one snapshot tab
type Page struct {
	site    Site
	cookies []models.Cookie

	mu          sync.Mutex
	url         string
	frames      []string
	frame       int
	generation  int
	doc         *goquery.Document
	advance     bool
	closed      bool
	navigations []string
	keys        map[*html.Node]string
}

// FromHTML returns a page already showing html as a single frame
func FromHTML(html string) (*Page, error) {
	p := &Page{site: Site{LocalURL: {html}}}
	if err := p.Navigate(context.Background(), LocalURL); err != nil {
		return nil, err
	}
	return p, nil
}

type element struct {
	sel        *goquery.Selection
	key        string
	generation int
}

func (e *element) Key() string { return e.key }

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.check(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.navigations = append(p.navigations, url)
	frames, ok := p.site[url]
	if !ok || len(frames) == 0 {
		return fmt.Errorf("navigate %s: no snapshot for url", url)
	}
	p.url = url
	p.frames = frames
	p.frame = 0
	p.advance = false
	return p.load()
}

// load parses the current frame. Handles from earlier frames become detached.
func (p *Page) load() error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.frames[p.frame]))
	if err != nil {
		return fmt.Errorf("parse snapshot %s frame %d: %w", p.url, p.frame, err)
	}
	p.doc = doc
	p.generation++
	p.keys = make(map[*html.Node]string)
	return nil
}

func (p *Page) QueryAll(ctx context.Context, selector string) ([]page.Element, error) {
	if err := p.check(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return nil, errors.New("query before navigation")
	}
	return p.wrap(p.doc.Find(selector)), nil
}

func (p *Page) QueryWithin(ctx context.Context, parent page.Element, selector string) ([]page.Element, error) {
	if err := p.check(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.resolve(parent)
	if err != nil {
		return nil, err
	}
	return p.wrap(el.sel.Find(selector)), nil
}

func (p *Page) wrap(sel *goquery.Selection) []page.Element {
	out := make([]page.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{
			sel:        s,
			key:        p.keyOf(s.Nodes[0]),
			generation: p.generation,
		})
	})
	return out
}

// keyOf returns a key that is stable for a node within one frame
func (p *Page) keyOf(n *html.Node) string {
	if k, ok := p.keys[n]; ok {
		return k
	}
	k := fmt.Sprintf("%d:%d", p.generation, len(p.keys)+1)
	p.keys[n] = k
	return k
}

func (p *Page) resolve(el page.Element) (*element, error) {
	e, ok := el.(*element)
	if !ok {
		return nil, fmt.Errorf("foreign element %T", el)
	}
	if e.generation != p.generation {
		return nil, page.ErrDetached
	}
	return e, nil
}

// Text returns the element text with whitespace runs collapsed
func (p *Page) Text(ctx context.Context, el page.Element) (string, error) {
	if err := p.check(ctx); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.resolve(el)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(e.sel.Text()), " "), nil
}

func (p *Page) Attribute(ctx context.Context, el page.Element, name string) (string, bool, error) {
	if err := p.check(ctx); err != nil {
		return "", false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.resolve(el)
	if err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (p *Page) OuterHTML(ctx context.Context, el page.Element) (string, error) {
	if err := p.check(ctx); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.resolve(el)
	if err != nil {
		return "", err
	}
	return goquery.OuterHtml(e.sel)
}

// Evaluate understands the scroll scripts from package page. Scrolling arms
// an advance and the next height read moves to the following frame.
func (p *Page) Evaluate(ctx context.Context, script string, out any) error {
	if err := p.check(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return errors.New("evaluate before navigation")
	}

	switch {
	case script == page.ScrollToBottomScript, strings.HasPrefix(script, "window.scrollBy("):
		p.advance = true
		return nil
	case script == page.ScrollHeightScript:
		if p.advance && p.frame < len(p.frames)-1 {
			p.frame++
			if err := p.load(); err != nil {
				return err
			}
		}
		p.advance = false
		return decode((p.frame+1)*FrameHeight, out)
	default:
		return fmt.Errorf("unsupported script: %s", script)
	}
}

func decode(v any, out any) error {
	if out == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (p *Page) WaitForSelector(ctx context.Context, selector string) error {
	if err := p.check(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil || p.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("wait for %s: %w", selector, ErrNoMatch)
	}
	return nil
}

// Screenshot returns a blank PNG sized to the current document
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	if err := p.check(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	height := (p.frame + 1) * FrameHeight / 100
	p.mu.Unlock()

	img := image.NewGray(image.Rect(0, 0, 8, height))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Cookies returns the cookies the page was opened with
func (p *Page) Cookies() []models.Cookie {
	return p.cookies
}

// Navigations returns every URL passed to Navigate, in order
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Frame returns the index of the frame currently shown
func (p *Page) Frame() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

func (p *Page) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("page closed")
	}
	return nil
}
