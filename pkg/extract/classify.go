package extract

import (
	"context"
	"strings"

	"xscraper/pkg/page"
)

// IsRepost reports whether a timeline item was re-shared rather than
// authored by the profile owner. Any one positive signal decides.
func (e *Extractor) IsRepost(ctx context.Context, p page.Page, el page.Element) bool {
	signals := []Attempt[bool]{
		{Name: "social-context", Timeout: e.fieldTimeout, Fn: func(ctx context.Context) (bool, error) {
			label, err := textOf(ctx, p, el, e.sel.SocialContext)
			if err != nil {
				return false, err
			}
			if e.matchesPhrase(label) {
				return true, nil
			}
			return false, ErrNotFound
		}},
		{Name: "affordance", Timeout: e.fieldTimeout, Fn: func(ctx context.Context) (bool, error) {
			for _, marker := range e.sel.RepostMarkers {
				els, err := p.QueryWithin(ctx, el, marker)
				if err != nil {
					return false, err
				}
				if len(els) > 0 {
					return true, nil
				}
			}
			return false, ErrNotFound
		}},
		{Name: "text-pattern", Timeout: e.fieldTimeout, Fn: func(ctx context.Context) (bool, error) {
			if len(e.patterns) == 0 {
				return false, ErrNotFound
			}
			text, err := textOf(ctx, p, el, e.sel.ItemText)
			if err != nil {
				return false, err
			}
			for _, re := range e.patterns {
				if re.MatchString(text) {
					return true, nil
				}
			}
			return false, ErrNotFound
		}},
		{Name: "nested-item", Timeout: e.fieldTimeout, Fn: func(ctx context.Context) (bool, error) {
			if e.sel.NestedItem == "" {
				return false, ErrNotFound
			}
			nested, err := p.QueryWithin(ctx, el, e.sel.NestedItem)
			if err != nil {
				return false, err
			}
			if len(nested) > 0 {
				return true, nil
			}
			return false, ErrNotFound
		}},
	}

	return FirstSuccess(ctx, signals).OK
}

func (e *Extractor) matchesPhrase(label string) bool {
	label = strings.ToLower(label)
	for _, phrase := range e.phrases {
		if strings.Contains(label, phrase) {
			return true
		}
	}
	return false
}
