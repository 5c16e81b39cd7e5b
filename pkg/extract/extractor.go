package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"xscraper/pkg/config"
	"xscraper/pkg/page"
)

// Extractor applies the configured selector tables to page elements
type Extractor struct {
	sel      config.SelectorConfig
	phrases  []string
	patterns []*regexp.Regexp
	dates    DateRule

	fieldTimeout    time.Duration
	queryTimeout    time.Duration
	selectorTimeout time.Duration

	maxTextNodes    int
	maxFallbackText int
	minHashText     int
}

// New builds an Extractor from the extraction and timeout configuration
func New(cfg config.ExtractionConfig, timeouts config.TimeoutConfig) (*Extractor, error) {
	e := &Extractor{
		sel:             cfg.Selectors,
		dates:           DateRule{Formats: cfg.DateFormats},
		fieldTimeout:    timeouts.Field,
		queryTimeout:    timeouts.Query,
		selectorTimeout: timeouts.Selector,
		maxTextNodes:    cfg.MaxTextNodes,
		maxFallbackText: cfg.MaxFallbackText,
		minHashText:     cfg.MinHashText,
	}
	for _, phrase := range cfg.RepostPhrases {
		if p := strings.ToLower(strings.TrimSpace(phrase)); p != "" {
			e.phrases = append(e.phrases, p)
		}
	}
	for _, raw := range cfg.RepostPatterns {
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("repost pattern %q: %w", raw, err)
		}
		e.patterns = append(e.patterns, re)
	}
	if len(e.dates.Formats) == 0 {
		e.dates.Formats = config.DefaultDateFormats()
	}
	if e.maxTextNodes <= 0 {
		e.maxTextNodes = 3
	}
	if e.maxFallbackText <= 0 {
		e.maxFallbackText = 1000
	}
	if e.minHashText <= 0 {
		e.minHashText = 20
	}
	return e, nil
}

// Default returns an Extractor over the default tables
func Default() *Extractor {
	cfg := config.DefaultConfig()
	e, _ := New(cfg.Extraction, cfg.Timeouts)
	return e
}

// Dates exposes the date rule used for stop-date checks
func (e *Extractor) Dates() DateRule {
	return e.dates
}

// WithClock returns a copy whose date rule reads the current time from now
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	c := *e
	c.dates.Now = now
	return &c
}

// Selectors returns the selector table in use
func (e *Extractor) Selectors() config.SelectorConfig {
	return e.sel
}

func (e *Extractor) attempt(name string, fn func(ctx context.Context) (string, error)) Attempt[string] {
	return Attempt[string]{Name: name, Timeout: e.fieldTimeout, Fn: fn}
}

// firstWithin returns the first descendant of parent matching selector
func firstWithin(ctx context.Context, p page.Page, parent page.Element, selector string) (page.Element, error) {
	var (
		els []page.Element
		err error
	)
	if parent == nil {
		els, err = p.QueryAll(ctx, selector)
	} else {
		els, err = p.QueryWithin(ctx, parent, selector)
	}
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, ErrNotFound
	}
	return els[0], nil
}

// textOf returns the trimmed text of the first match of selector
func textOf(ctx context.Context, p page.Page, parent page.Element, selector string) (string, error) {
	el, err := firstWithin(ctx, p, parent, selector)
	if err != nil {
		return "", err
	}
	text, err := p.Text(ctx, el)
	if err != nil {
		return "", err
	}
	return nonEmpty(strings.TrimSpace(text))
}

// firstText tries each selector in order and returns the first non-empty text
func (e *Extractor) firstText(ctx context.Context, p page.Page, parent page.Element, selectors []string) (string, bool) {
	attempts := make([]Attempt[string], 0, len(selectors))
	for _, selector := range selectors {
		selector := selector
		attempts = append(attempts, e.attempt(selector, func(ctx context.Context) (string, error) {
			return textOf(ctx, p, parent, selector)
		}))
	}
	res := FirstSuccess(ctx, attempts)
	return res.Value, res.OK
}

// truncateRunes cuts s to at most n runes
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
