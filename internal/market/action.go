package market

import "time"

// CorporateAction is one split or consolidation notice. Ratio is the factor
// applied to historical prices: a split of 1→N carries ratio 1/N, a
// consolidation of N→1 carries ratio N. EffectiveDate is the last date with
// rights; bars on or before it must be rescaled.
type CorporateAction struct {
	Symbol        string    `json:"symbol"`
	CompanyName   string    `json:"company_name"`
	Ratio         float64   `json:"ratio"`
	EffectiveDate time.Time `json:"last_date_with_rights"`
}

// AdjustmentRecord is the audit entry for an action that was actually applied
// during a run.
type AdjustmentRecord struct {
	Symbol        string    `json:"symbol"`
	CompanyName   string    `json:"company_name"`
	Ratio         float64   `json:"ratio"`
	EffectiveDate time.Time `json:"last_date_with_rights"`
}

// TradeAction is the side of a backtest trade.
type TradeAction string

const (
	TradeBuy  TradeAction = "buy"
	TradeSell TradeAction = "sell"
)

// Trade is one executed entry of a backtest trade log. Not persisted.
type Trade struct {
	Date   time.Time   `json:"date"`
	Action TradeAction `json:"action"`
	Price  float64     `json:"price"`
}
