// Package universe loads the JPX listing snapshot that defines which symbols
// the batch fetches.
package universe

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/logger"
)

// Listing is one tradable issue from the exchange listing.
type Listing struct {
	Code                  string // 4-5 digit security code, no suffix
	Name                  string
	MarketProductCategory string
	Type33                string
	Type17                string
}

// Symbol returns the provider symbol with the Tokyo exchange suffix.
func (l Listing) Symbol() string { return l.Code + ".T" }

// Product categories that are not ordinary equities and are excluded from the
// fetch universe.
var excludedCategories = map[string]bool{
	"ETF・ETN": true,
	"PRO Market": true,
	"REIT・ベンチャーファンド・カントリーファンド・インフラファンド": true,
	"出資証券": true,
}

// The Ito En class-1 preferred issue rides the ordinary-equity segments but
// is not comparable to common stock.
const excludedPreferredCode = "25935"

// Load reads the listing CSV (code, name, market/product category, 33-industry,
// 17-industry) and applies the universe filters.
func Load(path string) ([]Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("universe: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse consumes listing rows from r. The first row is treated as a header.
func Parse(r io.Reader) ([]Listing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var out []Listing
	first := true
	excluded := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("universe: %w", err)
		}
		if first {
			first = false
			continue
		}
		if len(record) < 5 {
			continue
		}
		l := Listing{
			Code:                  strings.TrimSpace(record[0]),
			Name:                  strings.TrimSpace(record[1]),
			MarketProductCategory: strings.TrimSpace(record[2]),
			Type33:                strings.TrimSpace(record[3]),
			Type17:                strings.TrimSpace(record[4]),
		}
		if l.Code == "" {
			continue
		}
		if excludedCategories[l.MarketProductCategory] || l.Code == excludedPreferredCode {
			excluded++
			continue
		}
		out = append(out, l)
	}
	logger.Infof("universe: %d listings loaded, %d excluded", len(out), excluded)
	return out, nil
}
