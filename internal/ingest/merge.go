// Package ingest reconciles freshly fetched price data with the persisted
// baseline and drives the daily batch. The coordinator is stateless across
// runs: the presence of the adjusted table is the only thing that selects
// bootstrap vs incremental.
package ingest

import (
	"fmt"
	"time"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/adjust"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/logger"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/store"
)

// Mode is the merge path for the current run.
type Mode int

const (
	// ModeBootstrap builds the first adjusted table from the full raw history
	// and the full action history.
	ModeBootstrap Mode = iota
	// ModeIncremental extends the previously adjusted baseline and applies
	// only actions effective on the run's evaluation date.
	ModeIncremental
)

func (m Mode) String() string {
	if m == ModeBootstrap {
		return "bootstrap"
	}
	return "incremental"
}

// Merge unions existing and incoming, deduplicates on (symbol, date) with the
// first copy winning, and returns the result sorted by (symbol, date).
// Duplicate keys are a data-quality signal, not an error.
func Merge(existing, incoming []market.PriceBar) []market.PriceBar {
	seen := make(map[market.BarKey]struct{}, len(existing)+len(incoming))
	out := make([]market.PriceBar, 0, len(existing)+len(incoming))
	dupes := 0
	for _, b := range existing {
		key := b.Key()
		if _, ok := seen[key]; ok {
			dupes++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}
	for _, b := range incoming {
		key := b.Key()
		if _, ok := seen[key]; ok {
			dupes++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}
	if dupes > 0 {
		logger.Warnf("merge: dropped %d duplicate (symbol, date) rows", dupes)
	}
	market.SortBars(out)
	return out
}

// Result is what one reconcile pass wants persisted.
type Result struct {
	Mode     Mode
	Raw      []market.PriceBar         // new content of stock_prices
	Adjusted []market.PriceBar         // new content of adjusted_stock_prices
	Applied  []market.AdjustmentRecord // audit entries for this run
	NoOp     bool                      // true when incoming was empty
}

// Coordinator decides the merge path and produces the full next state of the
// price tables in memory. Nothing is written here; persistence happens in one
// place after the result is complete.
type Coordinator struct {
	store *store.Store
	now   func() time.Time
}

func NewCoordinator(st *store.Store) *Coordinator {
	return &Coordinator{store: st, now: time.Now}
}

// Mode probes the store for the adjusted table.
func (c *Coordinator) Mode() Mode {
	if c.store.HasAdjustedPrices() {
		return ModeIncremental
	}
	return ModeBootstrap
}

// Reconcile merges incoming rows with the persisted state and recomputes the
// adjusted series. An empty incoming set leaves the baseline untouched: a
// fetch failure upstream must never clobber good data.
func (c *Coordinator) Reconcile(incoming []market.PriceBar) (*Result, error) {
	mode := c.Mode()

	existingRaw, err := c.store.LoadRawPrices()
	if err != nil {
		return nil, fmt.Errorf("load raw prices: %w", err)
	}
	if len(incoming) == 0 {
		logger.Warnf("merge: incoming set is empty, keeping baseline unchanged (%s)", mode)
		return &Result{Mode: mode, NoOp: true}, nil
	}

	mergedRaw := Merge(existingRaw, incoming)
	actions, err := c.store.LoadActions()
	if err != nil {
		return nil, fmt.Errorf("load corporate actions: %w", err)
	}

	var adjusted []market.PriceBar
	var applied []market.AdjustmentRecord
	switch mode {
	case ModeBootstrap:
		// No adjusted table yet: rebuild from the full raw history with the
		// full action history, each action at its own boundary.
		adjusted, applied, err = adjust.ApplyAll(mergedRaw, actions)
		if err != nil {
			return nil, fmt.Errorf("bootstrap adjust: %w", err)
		}
	case ModeIncremental:
		// The adjusted table already reflects all history up to the previous
		// run; it becomes the baseline and only today's actions apply.
		baseline, err := c.store.LoadAdjustedPrices()
		if err != nil {
			return nil, fmt.Errorf("load adjusted baseline: %w", err)
		}
		pending, err := c.pendingActions(actions)
		if err != nil {
			return nil, err
		}
		merged := Merge(baseline, incoming)
		adjusted, applied, err = adjust.Adjust(merged, pending, market.Day(c.now()))
		if err != nil {
			return nil, fmt.Errorf("incremental adjust: %w", err)
		}
	}

	logger.Infow("merge complete",
		"mode", mode.String(),
		"raw", len(mergedRaw),
		"adjusted", len(adjusted),
		"applied", len(applied))
	return &Result{Mode: mode, Raw: mergedRaw, Adjusted: adjusted, Applied: applied}, nil
}

// pendingActions drops actions already present in the applied audit log so a
// rerun of the same evaluation date cannot rescale the baseline twice.
func (c *Coordinator) pendingActions(actions []market.CorporateAction) ([]market.CorporateAction, error) {
	appliedLog, err := c.store.LoadApplied()
	if err != nil {
		return nil, fmt.Errorf("load applied adjustments: %w", err)
	}
	done := make(map[market.BarKey]struct{}, len(appliedLog))
	for _, rec := range appliedLog {
		done[market.BarKey{Symbol: rec.Symbol, Date: market.Day(rec.EffectiveDate)}] = struct{}{}
	}
	out := make([]market.CorporateAction, 0, len(actions))
	for _, a := range actions {
		key := market.BarKey{Symbol: a.Symbol, Date: market.Day(a.EffectiveDate)}
		if _, ok := done[key]; ok {
			logger.Debugf("merge: action %s@%s already applied, skipping",
				a.Symbol, a.EffectiveDate.Format("2006-01-02"))
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
