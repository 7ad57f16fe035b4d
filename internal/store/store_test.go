package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "finance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func testBars() []market.PriceBar {
	return []market.PriceBar{
		{Symbol: "7203.T", Date: day("2024-03-01"), Open: 1, High: 2, Low: 0.5, Close: 1.5, AdjClose: 1.5, Volume: 100},
		{Symbol: "7203.T", Date: day("2024-03-04"), Open: 1.5, High: 2.5, Low: 1, Close: 2, AdjClose: 2, Volume: 120},
		{Symbol: "6758.T", Date: day("2024-03-01"), Open: 10, High: 11, Low: 9, Close: 10.5, AdjClose: 10.5, Volume: 50},
	}
}

func TestAdjustedTableExistsOnlyAfterFirstWrite(t *testing.T) {
	s := openTestStore(t)
	assert.False(t, s.HasAdjustedPrices())

	require.NoError(t, s.ReplaceAdjustedPrices(testBars()))
	assert.True(t, s.HasAdjustedPrices())

	bars, err := s.LoadAdjustedPrices()
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestFailedFirstAdjustedWriteLeavesNoTable(t *testing.T) {
	s := openTestStore(t)

	// Two rows sharing (symbol, date) violate the unique index and roll the
	// whole transaction back, table creation included.
	dupes := []market.PriceBar{
		{Symbol: "7203.T", Date: day("2024-03-01"), Close: 1.5},
		{Symbol: "7203.T", Date: day("2024-03-01"), Close: 1.6},
	}
	require.Error(t, s.ReplaceAdjustedPrices(dupes))
	assert.False(t, s.HasAdjustedPrices(), "failed first write must not leave an adjusted table")

	// A later clean write still takes the bootstrap path and succeeds.
	require.NoError(t, s.ReplaceAdjustedPrices(testBars()))
	assert.True(t, s.HasAdjustedPrices())
	bars, err := s.LoadAdjustedPrices()
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestReplaceRawPricesIsWholesale(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.ReplaceRawPrices(testBars()))
	require.NoError(t, s.ReplaceRawPrices(testBars()[:1]))

	bars, err := s.LoadRawPrices()
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, "7203.T", bars[0].Symbol)
}

func TestQueryAdjustedPricesFiltersSymbolAndRange(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.ReplaceAdjustedPrices(testBars()))

	bars, err := s.QueryAdjustedPrices("7203.T", day("2024-03-01"), day("2024-03-01"))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, day("2024-03-01"), bars[0].Date)
}

func TestAppendActionsDeduplicatesRepeatScrapes(t *testing.T) {
	s := openTestStore(t)
	actions := []market.CorporateAction{
		{Symbol: "7203.T", CompanyName: "トヨタ自動車", Ratio: 0.2, EffectiveDate: day("2024-03-29")},
	}
	require.NoError(t, s.AppendActions(actions))
	require.NoError(t, s.AppendActions(actions)) // notice still listed next day

	got, err := s.LoadActions()
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 0.2, got[0].Ratio)
}

func TestAppendAppliedIsIdempotentAcrossReruns(t *testing.T) {
	s := openTestStore(t)
	records := []market.AdjustmentRecord{
		{Symbol: "9984.T", Ratio: 3, EffectiveDate: day("2024-06-10")},
	}
	require.NoError(t, s.AppendApplied(records))
	require.NoError(t, s.AppendApplied(records))

	got, err := s.LoadApplied()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStatementsRoundTripKeepsKindTagging(t *testing.T) {
	s := openTestStore(t)
	rev := 1000.0
	assets := 5000.0
	statements := []market.Statement{
		{
			Symbol: "7203.T", AsOf: day("2024-03-31"), PeriodType: "12M",
			Kind:   market.StatementIncome,
			Income: &market.IncomeStatement{TotalRevenue: &rev},
		},
		{
			Symbol: "7203.T", AsOf: day("2024-03-31"), PeriodType: "12M",
			Kind:    market.StatementBalance,
			Balance: &market.BalanceSheet{TotalAssets: &assets},
		},
	}
	require.NoError(t, s.AppendStatements(statements))

	got, err := s.QueryStatements("7203.T", day("2024-01-01"), day("2024-12-31"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, st := range got {
		switch st.Kind {
		case market.StatementIncome:
			require.NotNil(t, st.Income)
			assert.Nil(t, st.Balance)
			assert.Equal(t, rev, *st.Income.TotalRevenue)
		case market.StatementBalance:
			require.NotNil(t, st.Balance)
			assert.Nil(t, st.Income)
			assert.Equal(t, assets, *st.Balance.TotalAssets)
		}
	}
}

func TestLatestMetricsReturnsNilWhenAbsent(t *testing.T) {
	s := openTestStore(t)
	m, err := s.LatestMetrics("0000.T")
	require.NoError(t, err)
	assert.Nil(t, m)

	yield := 2.5
	require.NoError(t, s.AppendMetrics([]market.CompanyMetrics{
		{Symbol: "7203.T", TickerName: "トヨタ自動車", DividendYield: &yield, FetchedAt: time.Now()},
	}))
	m, err = s.LatestMetrics("7203.T")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, yield, *m.DividendYield)
}

func TestAppendDisclosuresDeduplicatesByDocID(t *testing.T) {
	s := openTestStore(t)
	docs := []market.Disclosure{
		{DocID: "S100ABCD", SecCode: "72030", FilerName: "トヨタ自動車", SubmittedAt: day("2024-06-25")},
	}
	require.NoError(t, s.AppendDisclosures(docs))
	require.NoError(t, s.AppendDisclosures(docs))
	require.NoError(t, s.AppendSkipped("1301.T", "prices", "timeout"))
}
