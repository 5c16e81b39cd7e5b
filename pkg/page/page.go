// Package page defines the narrow browser capability the collection engine
// drives. Implementations live in the chrome (live browser) and snapshot
// (saved HTML) subpackages.
package page

import (
	"context"
	"errors"
	"fmt"

	"xscraper/pkg/models"
)

// ErrDetached is returned when an element no longer belongs to the page
var ErrDetached = errors.New("element detached from page")

// Element is an opaque handle to a node on the current page. Handles are only
// valid until the next navigation.
type Element interface {
	// Key identifies the node within the page it came from
	Key() string
}

// Page is one browser tab. Every method blocks at most until ctx is done.
type Page interface {
	// Navigate loads url and waits for the load event
	Navigate(ctx context.Context, url string) error
	// QueryAll returns all elements matching selector, in document order
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// QueryWithin returns descendants of parent matching selector
	QueryWithin(ctx context.Context, parent Element, selector string) ([]Element, error)
	// Text returns the rendered text of el
	Text(ctx context.Context, el Element) (string, error)
	// Attribute returns the named attribute. ok is false when it is absent.
	Attribute(ctx context.Context, el Element, name string) (value string, ok bool, err error)
	// OuterHTML returns the serialized markup of el
	OuterHTML(ctx context.Context, el Element) (string, error)
	// Evaluate runs script in the page and decodes its result into out (may be nil)
	Evaluate(ctx context.Context, script string, out any) error
	// WaitForSelector blocks until selector matches at least one element
	WaitForSelector(ctx context.Context, selector string) error
	// Close releases the tab
	Close(ctx context.Context) error
}

// Screenshotter is implemented by pages that can capture themselves as PNG
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Browser owns the remote browser process and creates pages in it
type Browser interface {
	// NewPage opens a tab with cookies installed before the first navigation
	NewPage(ctx context.Context, cookies []models.Cookie) (Page, error)
	// Close shuts the browser down
	Close(ctx context.Context) error
}

// Scripts evaluated by the collection loop. Implementations that do not run
// JavaScript recognise these exact strings.
const (
	ScrollHeightScript   = `document.body.scrollHeight`
	ScrollToBottomScript = `window.scrollTo(0, document.body.scrollHeight)`
)

// ScrollByScript returns the script that scrolls down by px pixels
func ScrollByScript(px int) string {
	return fmt.Sprintf("window.scrollBy(0, %d)", px)
}

// ProfileURL builds the profile address for identity under base
func ProfileURL(base, identity string) string {
	return fmt.Sprintf("%s/%s", trimSlash(base), identity)
}

// ListURL builds the address of one of the profile's lists
func ListURL(base, identity string, kind models.ListKind) string {
	if kind == models.ListTimeline {
		return ProfileURL(base, identity)
	}
	return fmt.Sprintf("%s/%s", ProfileURL(base, identity), kind)
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
