// Package backtest replays a daily close series against a signal strategy
// with an all-in/all-out single position.
package backtest

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
)

// Strategy turns a close series into a per-bar position signal: 1 wants to
// be long, -1 wants to be out, 0 is neutral. Trades happen on signal
// transitions, not on levels.
type Strategy interface {
	Name() string
	Signals(closes []float64) ([]int, error)
}

// MovingAverageCross goes long while the short SMA sits above the long SMA.
// Bars before the long window is fully populated always signal flat.
type MovingAverageCross struct {
	ShortWindow int
	LongWindow  int
}

func (s MovingAverageCross) Name() string {
	return fmt.Sprintf("ma_cross_%d_%d", s.ShortWindow, s.LongWindow)
}

func (s MovingAverageCross) Signals(closes []float64) ([]int, error) {
	if s.ShortWindow <= 0 || s.LongWindow <= 0 || s.ShortWindow >= s.LongWindow {
		return nil, fmt.Errorf("ma cross: invalid windows short=%d long=%d", s.ShortWindow, s.LongWindow)
	}
	if len(closes) < s.LongWindow {
		return nil, fmt.Errorf("ma cross: %d bars, need %d: %w", len(closes), s.LongWindow, market.ErrInsufficientData)
	}
	short := talib.Sma(closes, s.ShortWindow)
	long := talib.Sma(closes, s.LongWindow)
	signals := make([]int, len(closes))
	for i := s.LongWindow - 1; i < len(closes); i++ {
		if short[i] > long[i] {
			signals[i] = 1
		}
	}
	return signals, nil
}

// RSIReversal signals long below the oversold bound, short above the
// overbought bound, flat between. Gains and losses are averaged with a
// simple rolling mean over Period bars, so the first valid signal is at
// index Period.
type RSIReversal struct {
	Period     int
	Oversold   float64
	Overbought float64
}

func (s RSIReversal) Name() string {
	return fmt.Sprintf("rsi_%d_%g_%g", s.Period, s.Oversold, s.Overbought)
}

func (s RSIReversal) Signals(closes []float64) ([]int, error) {
	if s.Period <= 0 {
		return nil, fmt.Errorf("rsi: invalid period %d", s.Period)
	}
	if len(closes) <= s.Period {
		return nil, fmt.Errorf("rsi: %d bars, need more than %d: %w", len(closes), s.Period, market.ErrInsufficientData)
	}
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}
	signals := make([]int, len(closes))
	// The first delta only exists at index 1, so the earliest full window of
	// Period deltas ends at index Period.
	for i := s.Period; i < len(closes); i++ {
		var gainSum, lossSum float64
		for j := i - s.Period + 1; j <= i; j++ {
			gainSum += gains[j]
			lossSum += losses[j]
		}
		rsi := 100.0
		if lossSum > 0 {
			rs := gainSum / lossSum
			rsi = 100 - 100/(1+rs)
		}
		switch {
		case rsi < s.Oversold:
			signals[i] = 1
		case rsi > s.Overbought:
			signals[i] = -1
		}
	}
	return signals, nil
}
