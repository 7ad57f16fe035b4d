package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/pkg/retry"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/universe"
)

type fakeActions struct {
	actions []market.CorporateAction
	err     error
}

func (f *fakeActions) Refresh(ctx context.Context) ([]market.CorporateAction, error) {
	return f.actions, f.err
}

type fakePrices struct {
	bars    map[string][]market.PriceBar
	failing map[string]error
}

func (f *fakePrices) DailyBars(ctx context.Context, symbol string, start time.Time) ([]market.PriceBar, error) {
	if err, ok := f.failing[symbol]; ok {
		return nil, err
	}
	return f.bars[symbol], nil
}

func (f *fakePrices) Metrics(ctx context.Context, symbol string) (market.CompanyMetrics, error) {
	return market.CompanyMetrics{Symbol: symbol, FetchedAt: time.Now()}, nil
}

func (f *fakePrices) Statements(ctx context.Context, symbol string) ([]market.Statement, error) {
	return nil, nil
}

func fastRetry() retry.Policy { return retry.Policy{MaxAttempts: 1, BaseDelay: 0} }

func TestRunOncePersistsMergedAndAdjustedTables(t *testing.T) {
	st := openTestStore(t)
	listings := []universe.Listing{{Code: "7203", Name: "トヨタ自動車"}}
	prices := &fakePrices{bars: map[string][]market.PriceBar{
		"7203.T": {
			bar("7203.T", "2024-03-01", 3000, 100),
			bar("7203.T", "2024-03-04", 3010, 110),
		},
	}}
	actions := &fakeActions{actions: []market.CorporateAction{
		{Symbol: "7203.T", CompanyName: "トヨタ自動車", Ratio: 0.2, EffectiveDate: day("2024-03-04")},
	}}

	r := NewRunner(RunnerConfig{Retry: fastRetry()}, st, actions, prices, nil, listings)
	r.now = func() time.Time { return day("2024-03-04") }
	r.coordinator.now = r.now

	require.NoError(t, r.RunOnce(context.Background()))

	raw, err := st.LoadRawPrices()
	require.NoError(t, err)
	assert.Len(t, raw, 2)

	assert.True(t, st.HasAdjustedPrices())
	adjusted, err := st.LoadAdjustedPrices()
	require.NoError(t, err)
	require.Len(t, adjusted, 2)
	// Bootstrap applied the split across the history inside the boundary.
	assert.InDelta(t, 600, adjusted[0].Close, 1e-9)

	applied, err := st.LoadApplied()
	require.NoError(t, err)
	assert.Len(t, applied, 1)
}

func TestRunOnceIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	listings := []universe.Listing{{Code: "7203", Name: "トヨタ自動車"}}
	prices := &fakePrices{bars: map[string][]market.PriceBar{
		"7203.T": {bar("7203.T", "2024-03-01", 3000, 100)},
	}}
	actions := &fakeActions{actions: []market.CorporateAction{
		{Symbol: "7203.T", Ratio: 0.2, EffectiveDate: day("2024-03-01")},
	}}

	r := NewRunner(RunnerConfig{Retry: fastRetry()}, st, actions, prices, nil, listings)
	r.now = func() time.Time { return day("2024-03-01") }
	r.coordinator.now = r.now

	require.NoError(t, r.RunOnce(context.Background()))
	first, err := st.LoadAdjustedPrices()
	require.NoError(t, err)

	// Same-day rerun takes the incremental path. The incoming raw rows
	// duplicate the (symbol, date) keys of the adjusted baseline and are
	// dropped, and the action is already in the applied log so it must not
	// rescale the baseline a second time.
	require.NoError(t, r.RunOnce(context.Background()))
	second, err := st.LoadAdjustedPrices()
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	assert.InDelta(t, 600, second[0].Close, 1e-9)

	applied, err := st.LoadApplied()
	require.NoError(t, err)
	assert.Len(t, applied, 1)
}

func TestRunOnceIsolatesFailingSymbols(t *testing.T) {
	st := openTestStore(t)
	listings := []universe.Listing{
		{Code: "1301", Name: "極洋"},
		{Code: "7203", Name: "トヨタ自動車"},
	}
	prices := &fakePrices{
		bars: map[string][]market.PriceBar{
			"7203.T": {bar("7203.T", "2024-03-01", 3000, 100)},
		},
		failing: map[string]error{"1301.T": errors.New("connection reset")},
	}
	r := NewRunner(RunnerConfig{Retry: fastRetry()}, st, &fakeActions{}, prices, nil, listings)

	require.NoError(t, r.RunOnce(context.Background()))

	raw, err := st.LoadRawPrices()
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "7203.T", raw[0].Symbol)
}

func TestRunOnceAbortsWhenRegistryUnavailable(t *testing.T) {
	st := openTestStore(t)
	actions := &fakeActions{err: market.ErrSourceUnavailable}
	r := NewRunner(RunnerConfig{Retry: fastRetry()}, st, actions, &fakePrices{}, nil, nil)

	err := r.RunOnce(context.Background())
	assert.ErrorIs(t, err, market.ErrSourceUnavailable)
	assert.False(t, st.HasAdjustedPrices())
}

func TestRunOnceEmptyFetchKeepsBaseline(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.ReplaceRawPrices([]market.PriceBar{bar("7203.T", "2024-03-01", 3000, 100)}))
	require.NoError(t, st.ReplaceAdjustedPrices([]market.PriceBar{bar("7203.T", "2024-03-01", 600, 500)}))

	r := NewRunner(RunnerConfig{Retry: fastRetry()}, st, &fakeActions{}, &fakePrices{}, nil, nil)
	require.NoError(t, r.RunOnce(context.Background()))

	adjusted, err := st.LoadAdjustedPrices()
	require.NoError(t, err)
	require.Len(t, adjusted, 1)
	assert.Equal(t, 600.0, adjusted[0].Close)
}
