// Package edinet lists securities filings from the EDINET disclosure API.
// Documents are keyed by docID; the listing endpoint is queried one day at a
// time.
package edinet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/logger"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
)

// Config holds the API settings. APIKey is the EDINET subscription key.
type Config struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.edinet-fsa.go.jp/api/v2"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 20 * time.Second
	}
	return c
}

// Client lists filings per day.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	final := cfg.withDefaults()
	return &Client{cfg: final, http: &http.Client{Timeout: final.HTTPTimeout}}
}

// List walks each day in [from, to] and collects filings that carry a
// securities code. Filings without one (funds, unlisted filers) are skipped.
func (c *Client) List(ctx context.Context, from, to time.Time) ([]market.Disclosure, error) {
	var out []market.Disclosure
	for day := market.Day(from); !day.After(market.Day(to)); day = day.AddDate(0, 0, 1) {
		docs, err := c.listDay(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("edinet %s: %w", day.Format("2006-01-02"), err)
		}
		out = append(out, docs...)
	}
	logger.Infof("edinet: %d filings between %s and %s",
		len(out), from.Format("2006-01-02"), to.Format("2006-01-02"))
	return out, nil
}

func (c *Client) listDay(ctx context.Context, day time.Time) ([]market.Disclosure, error) {
	endpoint := fmt.Sprintf("%s/documents.json?%s", c.cfg.BaseURL, url.Values{
		"date":             {day.Format("2006-01-02")},
		"type":             {"2"},
		"Subscription-Key": {c.cfg.APIKey},
	}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, market.ErrSourceUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, market.ErrSourceUnavailable)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var docs []market.Disclosure
	gjson.GetBytes(body, "results").ForEach(func(_, row gjson.Result) bool {
		secCode := row.Get("secCode").String()
		if secCode == "" {
			return true
		}
		submitted := day
		if ts := row.Get("submitDateTime").String(); ts != "" {
			if parsed, err := time.Parse("2006-01-02 15:04", ts); err == nil {
				submitted = parsed
			}
		}
		docs = append(docs, market.Disclosure{
			DocID:          row.Get("docID").String(),
			SecCode:        secCode,
			FilerName:      row.Get("filerName").String(),
			DocDescription: row.Get("docDescription").String(),
			SubmittedAt:    submitted,
		})
		return true
	})
	return docs, nil
}
