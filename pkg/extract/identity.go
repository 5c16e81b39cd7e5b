package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"xscraper/pkg/page"
)

const (
	markupHashBytes = 2000
	textHashRunes   = 500
)

var (
	statusIDPattern = regexp.MustCompile(`/status/(\d{10,})`)
	handlePath      = regexp.MustCompile(`^/([A-Za-z0-9_]{1,15})/?$`)

	// Site sections that look like handles in a link path
	reservedPaths = map[string]bool{
		"home": true, "explore": true, "notifications": true, "messages": true,
		"search": true, "settings": true, "compose": true, "i": true, "login": true,
	}
)

// ResolveIdentity returns a stable key for a content candidate. ok is false
// when no strategy produced one; such candidates are skipped.
func (e *Extractor) ResolveIdentity(ctx context.Context, p page.Page, el page.Element) (string, bool) {
	res := FirstSuccess(ctx, e.identityChain(p, el))
	return res.Value, res.OK
}

// ResolveSocialIdentity prefers the account handle linked from a user row
// and falls back to the content chain.
func (e *Extractor) ResolveSocialIdentity(ctx context.Context, p page.Page, el page.Element) (string, bool) {
	chain := append([]Attempt[string]{
		e.attempt("handle", func(ctx context.Context) (string, error) {
			handle, err := e.handleFromLinks(ctx, p, el, e.sel.SocialLink)
			if err != nil {
				return "", err
			}
			return "@" + handle, nil
		}),
	}, e.identityChain(p, el)...)

	res := FirstSuccess(ctx, chain)
	return res.Value, res.OK
}

func (e *Extractor) identityChain(p page.Page, el page.Element) []Attempt[string] {
	return []Attempt[string]{
		e.attempt("permalink", func(ctx context.Context) (string, error) {
			links, err := p.QueryWithin(ctx, el, e.sel.Permalink)
			if err != nil {
				return "", err
			}
			for _, link := range links {
				href, ok, err := p.Attribute(ctx, link, "href")
				if err != nil || !ok {
					continue
				}
				if m := statusIDPattern.FindStringSubmatch(href); m != nil {
					return m[1], nil
				}
			}
			return "", ErrNotFound
		}),
		e.attempt("timestamp", func(ctx context.Context) (string, error) {
			stamp, err := firstWithin(ctx, p, el, e.sel.ItemTime)
			if err != nil {
				return "", err
			}
			dt, ok, err := p.Attribute(ctx, stamp, "datetime")
			if err != nil {
				return "", err
			}
			if !ok || strings.TrimSpace(dt) == "" {
				return "", ErrNotFound
			}
			return "ts:" + strings.TrimSpace(dt), nil
		}),
		e.attempt("data-attribute", func(ctx context.Context) (string, error) {
			for _, name := range e.sel.DataAttributes {
				v, ok, err := p.Attribute(ctx, el, name)
				if err != nil {
					return "", err
				}
				if ok && strings.TrimSpace(v) != "" {
					return "attr:" + name + "=" + strings.TrimSpace(v), nil
				}
			}
			return "", ErrNotFound
		}),
		e.attempt("markup-hash", func(ctx context.Context) (string, error) {
			html, err := p.OuterHTML(ctx, el)
			if err != nil {
				return "", err
			}
			if html == "" {
				return "", ErrNotFound
			}
			if len(html) > markupHashBytes {
				html = html[:markupHashBytes]
			}
			return "html:" + shortHash(html), nil
		}),
		e.attempt("text-hash", func(ctx context.Context) (string, error) {
			text, err := p.Text(ctx, el)
			if err != nil {
				return "", err
			}
			runes := []rune(strings.TrimSpace(text))
			if len(runes) < e.minHashText {
				return "", ErrNotFound
			}
			if len(runes) > textHashRunes {
				runes = runes[:textHashRunes]
			}
			return "text:" + shortHash(string(runes)), nil
		}),
	}
}

// handleFromLinks finds the first link whose path is a bare account handle
func (e *Extractor) handleFromLinks(ctx context.Context, p page.Page, el page.Element, selector string) (string, error) {
	links, err := p.QueryWithin(ctx, el, selector)
	if err != nil {
		return "", err
	}
	for _, link := range links {
		href, ok, err := p.Attribute(ctx, link, "href")
		if err != nil || !ok {
			continue
		}
		if m := handlePath.FindStringSubmatch(href); m != nil && !reservedPaths[strings.ToLower(m[1])] {
			return m[1], nil
		}
	}
	return "", ErrNotFound
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
