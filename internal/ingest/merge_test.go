package ingest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/store"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func bar(symbol, date string, close, volume float64) market.PriceBar {
	return market.PriceBar{
		Symbol: symbol, Date: day(date),
		Open: close, High: close, Low: close, Close: close, AdjClose: close,
		Volume: volume,
	}
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "finance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMergeDeduplicatesOnSymbolDate(t *testing.T) {
	existing := []market.PriceBar{
		bar("7203.T", "2024-03-01", 3000, 100),
		bar("7203.T", "2024-03-04", 3010, 110),
	}
	incoming := []market.PriceBar{
		bar("7203.T", "2024-03-04", 9999, 999), // refetched, first copy wins
		bar("7203.T", "2024-03-05", 3020, 120),
	}
	merged := Merge(existing, incoming)
	require.Len(t, merged, 3)
	assert.Equal(t, 3010.0, merged[1].Close)
	assert.Equal(t, day("2024-03-05"), merged[2].Date)
}

func TestMergeIsIdempotent(t *testing.T) {
	incoming := []market.PriceBar{
		bar("7203.T", "2024-03-01", 3000, 100),
		bar("6758.T", "2024-03-01", 1400, 200),
	}
	once := Merge(nil, incoming)
	twice := Merge(once, incoming)
	assert.Equal(t, once, twice)
}

func TestMergeSortsBySymbolThenDate(t *testing.T) {
	merged := Merge(nil, []market.PriceBar{
		bar("7203.T", "2024-03-04", 1, 1),
		bar("6758.T", "2024-03-05", 1, 1),
		bar("6758.T", "2024-03-01", 1, 1),
	})
	require.Len(t, merged, 3)
	assert.Equal(t, "6758.T", merged[0].Symbol)
	assert.Equal(t, day("2024-03-01"), merged[0].Date)
	assert.Equal(t, "7203.T", merged[2].Symbol)
}

func TestReconcileEmptyIncomingIsNoOp(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.ReplaceRawPrices([]market.PriceBar{bar("7203.T", "2024-03-01", 3000, 100)}))

	c := NewCoordinator(st)
	res, err := c.Reconcile(nil)
	require.NoError(t, err)
	assert.True(t, res.NoOp)
	assert.Empty(t, res.Adjusted)
}

func TestReconcileBootstrapUsesFullActionHistory(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.ReplaceRawPrices([]market.PriceBar{
		bar("7203.T", "2024-02-01", 3000, 100),
		bar("7203.T", "2024-03-01", 3010, 110),
	}))
	// Action far in the past relative to the run date; bootstrap must still
	// apply it.
	require.NoError(t, st.AppendActions([]market.CorporateAction{
		{Symbol: "7203.T", Ratio: 0.2, EffectiveDate: day("2024-02-01")},
	}))

	c := NewCoordinator(st)
	assert.Equal(t, ModeBootstrap, c.Mode())

	res, err := c.Reconcile([]market.PriceBar{bar("7203.T", "2024-03-04", 3020, 120)})
	require.NoError(t, err)
	assert.Equal(t, ModeBootstrap, res.Mode)
	require.Len(t, res.Applied, 1)
	assert.Len(t, res.Raw, 3)
	// 2024-02-01 bar is inside the boundary, later bars are not.
	assert.InDelta(t, 600, res.Adjusted[0].Close, 1e-9)
	assert.InDelta(t, 3010, res.Adjusted[1].Close, 1e-9)
}

func TestReconcileIncrementalUsesAdjustedBaselineAndTodaysActions(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.ReplaceRawPrices([]market.PriceBar{bar("7203.T", "2024-03-01", 3000, 100)}))
	require.NoError(t, st.ReplaceAdjustedPrices([]market.PriceBar{bar("7203.T", "2024-03-01", 600, 500)}))
	require.NoError(t, st.AppendActions([]market.CorporateAction{
		// Applied in a previous run; must not reapply today.
		{Symbol: "7203.T", Ratio: 0.2, EffectiveDate: day("2024-03-01")},
		// Effective today.
		{Symbol: "7203.T", Ratio: 2, EffectiveDate: day("2024-03-05")},
	}))

	c := NewCoordinator(st)
	c.now = func() time.Time { return day("2024-03-05") }
	assert.Equal(t, ModeIncremental, c.Mode())

	res, err := c.Reconcile([]market.PriceBar{bar("7203.T", "2024-03-05", 1200, 240)})
	require.NoError(t, err)
	assert.Equal(t, ModeIncremental, res.Mode)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, 2.0, res.Applied[0].Ratio)

	// Baseline bar got only today's ratio, not the historical one again.
	assert.InDelta(t, 1200, res.Adjusted[0].Close, 1e-9)
	assert.InDelta(t, 250, res.Adjusted[0].Volume, 1e-9)
	// Today's bar sits on the boundary and is adjusted too.
	assert.InDelta(t, 2400, res.Adjusted[1].Close, 1e-9)
}

func TestReconcileRepeatedRunsLeaveNoDuplicates(t *testing.T) {
	st := openTestStore(t)
	incoming := []market.PriceBar{
		bar("7203.T", "2024-03-01", 3000, 100),
		bar("7203.T", "2024-03-04", 3010, 110),
	}

	c := NewCoordinator(st)
	res, err := c.Reconcile(incoming)
	require.NoError(t, err)
	require.NoError(t, st.ReplaceRawPrices(res.Raw))
	require.NoError(t, st.ReplaceAdjustedPrices(res.Adjusted))

	// Second run with the identical incoming set.
	res2, err := c.Reconcile(incoming)
	require.NoError(t, err)
	assert.Len(t, res2.Raw, 2)
	assert.Len(t, res2.Adjusted, 2)

	seen := map[market.BarKey]bool{}
	for _, b := range res2.Raw {
		assert.False(t, seen[b.Key()], "duplicate key %v", b.Key())
		seen[b.Key()] = true
	}
}
