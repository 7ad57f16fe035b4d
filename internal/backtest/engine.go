package backtest

import (
	"fmt"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/logger"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
)

// Result is the outcome of one replay.
type Result struct {
	Strategy    string         `json:"strategy"`
	InitialCash float64        `json:"initial_cash"`
	FinalValue  float64        `json:"final_value"`
	Profit      float64        `json:"profit"`
	Trades      []market.Trade `json:"trades"`
	Equity      []float64      `json:"equity"` // cash + shares*close per bar
}

// Run replays bars (ascending by date, single symbol) against the strategy.
// Execution is all-in/all-out at the close of the bar where the signal
// transitions: positive diff buys when cash is available, negative diff
// sells when shares are held. Exactly one of cash>0 / shares>0 holds at any
// time.
func Run(bars []market.PriceBar, strategy Strategy, initialCash float64) (*Result, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("backtest: empty price series: %w", market.ErrInsufficientData)
	}
	if initialCash <= 0 {
		return nil, fmt.Errorf("backtest: initial cash must be positive, got %g", initialCash)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	signals, err := strategy.Signals(closes)
	if err != nil {
		return nil, fmt.Errorf("backtest: %s: %w", strategy.Name(), err)
	}

	cash := initialCash
	shares := 0.0
	var trades []market.Trade
	equity := make([]float64, len(bars))
	prev := 0
	for i, b := range bars {
		diff := signals[i] - prev
		prev = signals[i]
		switch {
		case diff > 0 && cash > 0:
			shares = cash / b.Close
			cash = 0
			trades = append(trades, market.Trade{Date: b.Date, Action: market.TradeBuy, Price: b.Close})
		case diff < 0 && shares > 0:
			cash = shares * b.Close
			shares = 0
			trades = append(trades, market.Trade{Date: b.Date, Action: market.TradeSell, Price: b.Close})
		}
		equity[i] = cash + shares*b.Close
	}

	final := cash + shares*bars[len(bars)-1].Close
	res := &Result{
		Strategy:    strategy.Name(),
		InitialCash: initialCash,
		FinalValue:  final,
		Profit:      final - initialCash,
		Trades:      trades,
		Equity:      equity,
	}
	logger.Debugf("backtest: %s over %d bars, %d trades, profit %.2f",
		strategy.Name(), len(bars), len(trades), res.Profit)
	return res, nil
}
