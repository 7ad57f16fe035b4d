// Package actions scrapes the public split and reverse-split calendars and
// normalizes them into corporate actions keyed by last-date-with-rights.
package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/logger"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
)

const (
	DefaultSplitURL         = "https://kabu.com/investment/meigara/bunkatu.html"
	DefaultConsolidationURL = "https://kabu.com/investment/meigara/gensi.html"
)

// PageFetcher loads a fully rendered page. The calendars are built client
// side, so a plain GET returns an empty table.
type PageFetcher interface {
	HTML(ctx context.Context, url string) (string, error)
}

// ChromeFetcher renders pages in headless Chrome.
type ChromeFetcher struct {
	Timeout time.Duration
}

func (f ChromeFetcher) HTML(ctx context.Context, url string) (string, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()
	timeoutCtx, cancelTimeout := context.WithTimeout(parent, timeout)
	defer cancelTimeout()

	var html string
	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitVisible("tbody", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return "", fmt.Errorf("render %s: %v: %w", url, err, market.ErrSourceUnavailable)
	}
	return html, nil
}

// Registry is the corporate-action source backed by the two calendar pages.
type Registry struct {
	fetcher          PageFetcher
	splitURL         string
	consolidationURL string
}

// Option adjusts a Registry.
type Option func(*Registry)

// WithURLs overrides the calendar endpoints.
func WithURLs(splitURL, consolidationURL string) Option {
	return func(r *Registry) {
		r.splitURL = splitURL
		r.consolidationURL = consolidationURL
	}
}

func NewRegistry(fetcher PageFetcher, opts ...Option) *Registry {
	r := &Registry{
		fetcher:          fetcher,
		splitURL:         DefaultSplitURL,
		consolidationURL: DefaultConsolidationURL,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Refresh scrapes both calendars. A failure on either page makes the whole
// refresh fail: a partial registry would look like missing actions downstream.
func (r *Registry) Refresh(ctx context.Context) ([]market.CorporateAction, error) {
	splits, err := r.scrape(ctx, r.splitURL, parseSplitRow)
	if err != nil {
		return nil, fmt.Errorf("split calendar: %w", err)
	}
	consolidations, err := r.scrape(ctx, r.consolidationURL, parseConsolidationRow)
	if err != nil {
		return nil, fmt.Errorf("consolidation calendar: %w", err)
	}
	logger.Infof("actions: %d splits, %d consolidations", len(splits), len(consolidations))
	return append(splits, consolidations...), nil
}

func (r *Registry) scrape(ctx context.Context, url string, parseRow rowParser) ([]market.CorporateAction, error) {
	html, err := r.fetcher.HTML(ctx, url)
	if err != nil {
		return nil, err
	}
	return parseCalendar(html, parseRow)
}
