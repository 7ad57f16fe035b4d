package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
)

func series(closes ...float64) []market.PriceBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = market.PriceBar{
			Symbol: "7203.T", Date: start.AddDate(0, 0, i),
			Open: c, High: c, Low: c, Close: c, AdjClose: c, Volume: 1000,
		}
	}
	return bars
}

func TestMovingAverageCrossBuysOnFirstCross(t *testing.T) {
	bars := series(10, 10, 10, 12, 14, 16, 16, 16)
	res, err := Run(bars, MovingAverageCross{ShortWindow: 2, LongWindow: 4}, 1000)
	require.NoError(t, err)

	// Both averages are first defined at index 3, where the short average
	// already sits above the long one.
	require.Len(t, res.Trades, 1)
	assert.Equal(t, market.TradeBuy, res.Trades[0].Action)
	assert.Equal(t, bars[3].Date, res.Trades[0].Date)
	assert.Equal(t, 12.0, res.Trades[0].Price)

	assert.InDelta(t, 1000.0/12.0*16.0, res.FinalValue, 1e-9)
	assert.InDelta(t, res.FinalValue-1000, res.Profit, 1e-9)
}

func TestMovingAverageCrossSellsOnCrossDown(t *testing.T) {
	bars := series(10, 10, 10, 12, 14, 16, 12, 8, 6, 6)
	res, err := Run(bars, MovingAverageCross{ShortWindow: 2, LongWindow: 4}, 1000)
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, market.TradeBuy, res.Trades[0].Action)
	assert.Equal(t, market.TradeSell, res.Trades[1].Action)
	// After the sell everything is back in cash: flat equity to the end.
	assert.InDelta(t, res.Equity[len(bars)-1], res.FinalValue, 1e-9)
	shares := 1000.0 / res.Trades[0].Price
	assert.InDelta(t, shares*res.Trades[1].Price, res.FinalValue, 1e-9)
}

func TestMovingAverageCrossTooFewBars(t *testing.T) {
	// Rising prices the whole way, but the long window never fills.
	bars := series(10, 12, 14)
	_, err := Run(bars, MovingAverageCross{ShortWindow: 2, LongWindow: 4}, 1000)
	assert.ErrorIs(t, err, market.ErrInsufficientData)
}

func TestRSIMonotonicDeclineBuysOnce(t *testing.T) {
	closes := make([]float64, 0, 20)
	for i := 0; i < 20; i++ {
		closes = append(closes, 100-float64(i))
	}
	bars := series(closes...)
	res, err := Run(bars, RSIReversal{Period: 14, Oversold: 30, Overbought: 70}, 1000)
	require.NoError(t, err)

	// Average gain is zero and average loss positive, so RSI is 0 as soon as
	// the window holds 14 deltas, which is index 14. One buy, no sell.
	require.Len(t, res.Trades, 1)
	assert.Equal(t, market.TradeBuy, res.Trades[0].Action)
	assert.Equal(t, bars[14].Date, res.Trades[0].Date)

	last := closes[len(closes)-1]
	assert.InDelta(t, 1000.0/res.Trades[0].Price*last, res.FinalValue, 1e-9)
}

func TestRSIAllGainsIsMaximalNotAnError(t *testing.T) {
	closes := make([]float64, 0, 20)
	for i := 0; i < 20; i++ {
		closes = append(closes, 100+float64(i))
	}
	res, err := Run(series(closes...), RSIReversal{Period: 14, Oversold: 30, Overbought: 70}, 1000)
	require.NoError(t, err)

	// RSI pins at 100 when the loss average is zero. That is overbought, and
	// with no shares held the sell transition cannot execute.
	assert.Empty(t, res.Trades)
	assert.InDelta(t, 1000, res.FinalValue, 1e-9)
}

func TestRSISellsAfterRecovery(t *testing.T) {
	closes := make([]float64, 0, 40)
	for i := 0; i < 18; i++ {
		closes = append(closes, 100-float64(i))
	}
	for i := 0; i < 18; i++ {
		closes = append(closes, 83+2*float64(i))
	}
	res, err := Run(series(closes...), RSIReversal{Period: 14, Oversold: 30, Overbought: 70}, 1000)
	require.NoError(t, err)

	require.NotEmpty(t, res.Trades)
	assert.Equal(t, market.TradeBuy, res.Trades[0].Action)
	if len(res.Trades) > 1 {
		assert.Equal(t, market.TradeSell, res.Trades[1].Action)
		assert.Greater(t, res.Trades[1].Price, res.Trades[0].Price)
	}
}

func TestRunEmptySeriesFails(t *testing.T) {
	_, err := Run(nil, MovingAverageCross{ShortWindow: 2, LongWindow: 4}, 1000)
	assert.ErrorIs(t, err, market.ErrInsufficientData)
}

func TestRunRejectsNonPositiveCash(t *testing.T) {
	_, err := Run(series(10, 11, 12, 13, 14), MovingAverageCross{ShortWindow: 2, LongWindow: 4}, 0)
	assert.Error(t, err)
}

func TestMovingAverageCrossRejectsInvertedWindows(t *testing.T) {
	_, err := Run(series(10, 11, 12, 13, 14), MovingAverageCross{ShortWindow: 4, LongWindow: 2}, 1000)
	assert.Error(t, err)
}

func TestEquityCurveTracksPosition(t *testing.T) {
	bars := series(10, 10, 10, 12, 14, 16, 16, 16)
	res, err := Run(bars, MovingAverageCross{ShortWindow: 2, LongWindow: 4}, 1000)
	require.NoError(t, err)

	require.Len(t, res.Equity, len(bars))
	// Flat at initial cash until the buy bar, then scales with the close.
	assert.InDelta(t, 1000, res.Equity[2], 1e-9)
	assert.InDelta(t, 1000, res.Equity[3], 1e-9) // bought at this close
	assert.InDelta(t, 1000.0/12.0*14.0, res.Equity[4], 1e-9)
}
