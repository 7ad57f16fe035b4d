package actions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/logger"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
)

// Calendar rows share a five-column layout: announcement date, code, company
// name, ratio text, last date with rights. Only the ratio text differs
// between the split and consolidation pages.
type rowParser func(ratioText string) (float64, error)

// parseSplitRow reads "1：2" style text: one old share becomes N new shares,
// so historical prices scale by 1/N.
func parseSplitRow(text string) (float64, error) {
	parts := strings.Split(text, "：")
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed split ratio %q", text)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("malformed split ratio %q", text)
	}
	return 1 / n, nil
}

// parseConsolidationRow reads "10株→1株" style text: N old shares become one
// new share, so historical prices scale by N.
func parseConsolidationRow(text string) (float64, error) {
	parts := strings.Split(text, "→")
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed consolidation ratio %q", text)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(parts[0]), "株")), 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("malformed consolidation ratio %q", text)
	}
	return n, nil
}

// parseCalendar walks the first tbody of the page. Rows that do not fit the
// layout are logged and skipped rather than failing the whole page.
func parseCalendar(html string, parseRatio rowParser) ([]market.CorporateAction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse calendar html: %w", err)
	}
	tbody := doc.Find("tbody").First()
	if tbody.Length() == 0 {
		return nil, fmt.Errorf("calendar table missing: %w", market.ErrSourceUnavailable)
	}

	var out []market.CorporateAction
	tbody.Find("tr").Each(func(i int, row *goquery.Selection) {
		cols := row.Find("td").Map(func(_ int, td *goquery.Selection) string {
			return strings.TrimSpace(td.Text())
		})
		if len(cols) < 5 {
			logger.Warnf("actions: row %d has %d columns, skipping", i, len(cols))
			return
		}
		ratio, err := parseRatio(cols[3])
		if err != nil {
			logger.Warnf("actions: row %d: %v", i, err)
			return
		}
		effective, err := market.ParseDay(cols[4])
		if err != nil {
			logger.Warnf("actions: row %d: bad date %q", i, cols[4])
			return
		}
		out = append(out, market.CorporateAction{
			Symbol:        cols[1] + ".T",
			CompanyName:   cols[2],
			Ratio:         ratio,
			EffectiveDate: effective,
		})
	})
	return out, nil
}
