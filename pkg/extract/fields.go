package extract

import (
	"context"
	"regexp"
	"strings"

	"xscraper/pkg/models"
	"xscraper/pkg/page"
)

var handleInText = regexp.MustCompile(`@([A-Za-z0-9_]{1,15})`)

// Text returns the item's own text. It samples the text blocks outside any
// quoted item and falls back to the whole visible text, truncated.
func (e *Extractor) Text(ctx context.Context, p page.Page, el page.Element) (string, bool) {
	res := FirstSuccess(ctx, []Attempt[string]{
		e.attempt("text-nodes", func(ctx context.Context) (string, error) {
			blocks, err := p.QueryWithin(ctx, el, e.sel.ItemText)
			if err != nil {
				return "", err
			}
			quoted := e.quotedKeys(ctx, p, el)

			var parts []string
			for _, b := range blocks {
				if len(parts) == e.maxTextNodes {
					break
				}
				if quoted[b.Key()] {
					continue
				}
				text, err := p.Text(ctx, b)
				if err != nil {
					continue
				}
				if text = strings.TrimSpace(text); text != "" {
					parts = append(parts, text)
				}
			}
			return nonEmpty(strings.Join(parts, "\n"))
		}),
		e.attempt("visible-text", func(ctx context.Context) (string, error) {
			text, err := p.Text(ctx, el)
			if err != nil {
				return "", err
			}
			return nonEmpty(truncateRunes(strings.TrimSpace(text), e.maxFallbackText))
		}),
	})
	return res.Value, res.OK
}

// quotedKeys returns the keys of text blocks that belong to a quoted item
func (e *Extractor) quotedKeys(ctx context.Context, p page.Page, el page.Element) map[string]bool {
	keys := make(map[string]bool)
	containers, err := p.QueryWithin(ctx, el, e.sel.QuotedItem)
	if err != nil {
		return keys
	}
	for _, c := range containers {
		blocks, err := p.QueryWithin(ctx, c, e.sel.ItemText)
		if err != nil {
			continue
		}
		for _, b := range blocks {
			keys[b.Key()] = true
		}
	}
	return keys
}

// Quoted returns the text and author handle of a quoted item, if any
func (e *Extractor) Quoted(ctx context.Context, p page.Page, el page.Element) (text, author string) {
	container, err := firstWithin(ctx, p, el, e.sel.QuotedItem)
	if err != nil {
		return "", ""
	}
	text, _ = e.firstTextOrWhole(ctx, p, container, e.sel.ItemText)
	author, _ = e.Author(ctx, p, container)
	return text, author
}

func (e *Extractor) firstTextOrWhole(ctx context.Context, p page.Page, el page.Element, selector string) (string, bool) {
	res := FirstSuccess(ctx, []Attempt[string]{
		e.attempt(selector, func(ctx context.Context) (string, error) {
			return textOf(ctx, p, el, selector)
		}),
		e.attempt("visible-text", func(ctx context.Context) (string, error) {
			text, err := p.Text(ctx, el)
			if err != nil {
				return "", err
			}
			return nonEmpty(truncateRunes(strings.TrimSpace(text), e.maxFallbackText))
		}),
	})
	return res.Value, res.OK
}

// Author returns the @handle shown in an item's author block
func (e *Extractor) Author(ctx context.Context, p page.Page, el page.Element) (string, bool) {
	res := FirstSuccess(ctx, []Attempt[string]{
		e.attempt("author-text", func(ctx context.Context) (string, error) {
			text, err := textOf(ctx, p, el, e.sel.ItemAuthor)
			if err != nil {
				return "", err
			}
			if m := handleInText.FindString(text); m != "" {
				return m, nil
			}
			return "", ErrNotFound
		}),
		e.attempt("author-link", func(ctx context.Context) (string, error) {
			block, err := firstWithin(ctx, p, el, e.sel.ItemAuthor)
			if err != nil {
				return "", err
			}
			handle, err := e.handleFromLinks(ctx, p, block, "a[href]")
			if err != nil {
				return "", err
			}
			return "@" + handle, nil
		}),
	})
	return res.Value, res.OK
}

// PublishedAt returns the raw date string of an item, or models.UnknownDate
func (e *Extractor) PublishedAt(ctx context.Context, p page.Page, el page.Element) string {
	res := FirstSuccess(ctx, []Attempt[string]{
		e.attempt("datetime", func(ctx context.Context) (string, error) {
			stamp, err := firstWithin(ctx, p, el, e.sel.ItemTime)
			if err != nil {
				return "", err
			}
			dt, _, err := p.Attribute(ctx, stamp, "datetime")
			if err != nil {
				return "", err
			}
			return nonEmpty(strings.TrimSpace(dt))
		}),
		e.attempt("time-text", func(ctx context.Context) (string, error) {
			return textOf(ctx, p, el, e.sel.ItemTime)
		}),
	})
	if !res.OK {
		return models.UnknownDate
	}
	return res.Value
}

// Content extracts an authored post. ok is false when the item has no text.
func (e *Extractor) Content(ctx context.Context, p page.Page, el page.Element, id string) (models.ContentItem, bool) {
	text, ok := e.Text(ctx, p, el)
	if !ok {
		return models.ContentItem{}, false
	}
	item := models.ContentItem{
		ItemID:      id,
		Text:        text,
		PublishedAt: e.PublishedAt(ctx, p, el),
	}
	item.QuotedText, item.QuotedAuthor = e.Quoted(ctx, p, el)
	return item, true
}

// Repost extracts a re-shared item. The author bio is not visible on the
// timeline and stays empty.
func (e *Extractor) Repost(ctx context.Context, p page.Page, el page.Element, id string) (models.RepostItem, bool) {
	text, ok := e.Text(ctx, p, el)
	if !ok {
		return models.RepostItem{}, false
	}
	author, _ := e.Author(ctx, p, el)
	return models.RepostItem{
		ItemID:         id,
		OriginalText:   text,
		OriginalAuthor: author,
		RepostedAt:     e.PublishedAt(ctx, p, el),
	}, true
}

// Social extracts one row of a followers or following list. ok is false
// when neither a handle nor a display name could be read.
func (e *Extractor) Social(ctx context.Context, p page.Page, el page.Element, role models.SocialRole) (models.SocialEntry, bool) {
	entry := models.SocialEntry{Role: role}

	handle := FirstSuccess(ctx, []Attempt[string]{
		e.attempt("handle-link", func(ctx context.Context) (string, error) {
			h, err := e.handleFromLinks(ctx, p, el, e.sel.SocialLink)
			if err != nil {
				return "", err
			}
			return "@" + h, nil
		}),
		e.attempt("handle-text", func(ctx context.Context) (string, error) {
			text, err := p.Text(ctx, el)
			if err != nil {
				return "", err
			}
			return nonEmpty(handleInText.FindString(text))
		}),
	})
	entry.Handle = handle.Value

	if name, ok := e.firstText(ctx, p, el, []string{e.sel.SocialName}); ok {
		entry.DisplayName = name
	}
	if bio, ok := e.firstText(ctx, p, el, []string{e.sel.SocialBio}); ok {
		entry.Bio = bio
	}

	if entry.Handle == "" && entry.DisplayName == "" {
		return models.SocialEntry{}, false
	}
	return entry, true
}

// Profile reads the profile header. Missing fields stay empty.
func (e *Extractor) Profile(ctx context.Context, p page.Page) models.ProfileRecord {
	var rec models.ProfileRecord
	if name, ok := e.firstText(ctx, p, nil, e.sel.ProfileName); ok {
		rec.IdentityName = name
	}
	if bio, ok := e.firstText(ctx, p, nil, e.sel.ProfileBio); ok {
		rec.Bio = bio
	}
	return rec
}

// Verified waits for any profile signal to appear. It returns the selector
// that matched.
func (e *Extractor) Verified(ctx context.Context, p page.Page) (string, bool) {
	attempts := make([]Attempt[string], 0, len(e.sel.ProfileSignals))
	for _, signal := range e.sel.ProfileSignals {
		signal := signal
		attempts = append(attempts, Attempt[string]{
			Name:    signal,
			Timeout: e.selectorTimeout,
			Fn: func(ctx context.Context) (string, error) {
				if err := p.WaitForSelector(ctx, signal); err != nil {
					return "", err
				}
				return signal, nil
			},
		})
	}
	res := FirstSuccess(ctx, attempts)
	return res.Value, res.OK
}
