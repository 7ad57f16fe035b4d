// Package adjust rescales historical price series for stock splits and share
// consolidations. For ratio r effective on date d, every bar of the symbol
// with date <= d gets open/high/low/close/adjclose multiplied by r and volume
// divided by r, so price × volume at each pre-action bar is preserved. Bars
// after d already reflect post-action reality and are left alone.
package adjust

import (
	"fmt"
	"time"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/logger"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
)

// Adjust applies the actions whose effective date equals asOf to a copy of
// bars. Actions effective on any other date are ignored here: they either
// were applied in an earlier run or will trigger on their own date. Returns
// the rescaled series and the audit records of the actions applied.
func Adjust(bars []market.PriceBar, actions []market.CorporateAction, asOf time.Time) ([]market.PriceBar, []market.AdjustmentRecord, error) {
	if len(bars) == 0 {
		return nil, nil, fmt.Errorf("adjust: %w", market.ErrInsufficientData)
	}
	asOf = market.Day(asOf)
	var due []market.CorporateAction
	for _, act := range actions {
		if market.Day(act.EffectiveDate).Equal(asOf) {
			due = append(due, act)
		}
	}
	return apply(bars, due)
}

// ApplyAll rescales bars with the complete action history, each action scoped
// to its own effective date. The bootstrap path uses this to rebuild the
// adjusted table from raw history in one pass.
func ApplyAll(bars []market.PriceBar, actions []market.CorporateAction) ([]market.PriceBar, []market.AdjustmentRecord, error) {
	if len(bars) == 0 {
		return nil, nil, fmt.Errorf("adjust: %w", market.ErrInsufficientData)
	}
	return apply(bars, actions)
}

func apply(bars []market.PriceBar, actions []market.CorporateAction) ([]market.PriceBar, []market.AdjustmentRecord, error) {
	out := make([]market.PriceBar, len(bars))
	copy(out, bars)

	applied := make([]market.AdjustmentRecord, 0, len(actions))
	for _, act := range actions {
		if act.Ratio <= 0 {
			return nil, nil, fmt.Errorf("adjust %s: ratio must be positive, got %g", act.Symbol, act.Ratio)
		}
		if act.Ratio == 1 {
			// Degenerate notice. Applying it changes nothing, but it still
			// goes into the audit log as a data-quality signal.
			logger.Warnf("adjust %s: ratio 1 on %s, no-op action recorded",
				act.Symbol, act.EffectiveDate.Format("2006-01-02"))
		}
		n := rescale(out, act)
		logger.Infof("adjust %s: ratio %g applied to %d bars up to %s",
			act.Symbol, act.Ratio, n, act.EffectiveDate.Format("2006-01-02"))
		applied = append(applied, market.AdjustmentRecord{
			Symbol:        act.Symbol,
			CompanyName:   act.CompanyName,
			Ratio:         act.Ratio,
			EffectiveDate: market.Day(act.EffectiveDate),
		})
	}
	return out, applied, nil
}

// rescale mutates every bar of act.Symbol dated on or before the effective
// date, over the full history present in bars, and reports how many matched.
func rescale(bars []market.PriceBar, act market.CorporateAction) int {
	boundary := market.Day(act.EffectiveDate)
	n := 0
	for i := range bars {
		if bars[i].Symbol != act.Symbol || bars[i].Date.After(boundary) {
			continue
		}
		bars[i].Open *= act.Ratio
		bars[i].High *= act.Ratio
		bars[i].Low *= act.Ratio
		bars[i].Close *= act.Ratio
		bars[i].AdjClose *= act.Ratio
		bars[i].Volume /= act.Ratio
		n++
	}
	return n
}
