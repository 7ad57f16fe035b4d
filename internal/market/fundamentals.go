package market

import "time"

// CompanyMetrics is the per-symbol valuation snapshot fetched alongside
// prices. Provider fields are optional: a nil pointer means the provider did
// not report the value, which is distinct from zero.
type CompanyMetrics struct {
	Symbol                   string     `json:"symbol"`
	TickerName               string     `json:"ticker_name"`
	MarketProductCategory    string     `json:"market_product_category"`
	Type33                   string     `json:"type_33"`
	Type17                   string     `json:"type_17"`
	DividendRate             *float64   `json:"dividend_rate,omitempty"`
	DividendYield            *float64   `json:"dividend_yield,omitempty"`
	FiveYearAvgDividendYield *float64   `json:"five_year_avg_dividend_yield,omitempty"`
	PayoutRatio              *float64   `json:"payout_ratio,omitempty"`
	MarketCap                *float64   `json:"market_cap,omitempty"`
	TrailingPE               *float64   `json:"trailing_pe,omitempty"`
	ForwardPE                *float64   `json:"forward_pe,omitempty"`
	ROE                      *float64   `json:"roe,omitempty"`
	ROA                      *float64   `json:"roa,omitempty"`
	ExDividendDate           *time.Time `json:"ex_dividend_date,omitempty"`
	FetchedAt                time.Time  `json:"fetched_at"`
}

// StatementKind tags which financial statement a record came from.
type StatementKind string

const (
	StatementIncome    StatementKind = "income"
	StatementBalance   StatementKind = "balance"
	StatementCashFlow  StatementKind = "cashflow"
	StatementValuation StatementKind = "valuation"
)

// IncomeStatement line items. All optional.
type IncomeStatement struct {
	TotalRevenue                *float64 `json:"total_revenue,omitempty"`
	GrossProfit                 *float64 `json:"gross_profit,omitempty"`
	OperatingIncome             *float64 `json:"operating_income,omitempty"`
	NetIncome                   *float64 `json:"net_income,omitempty"`
	NetIncomeCommonStockholders *float64 `json:"net_income_common_stockholders,omitempty"`
}

// BalanceSheet line items. All optional.
type BalanceSheet struct {
	TotalAssets                         *float64 `json:"total_assets,omitempty"`
	CurrentAssets                       *float64 `json:"current_assets,omitempty"`
	CurrentLiabilities                  *float64 `json:"current_liabilities,omitempty"`
	Inventory                           *float64 `json:"inventory,omitempty"`
	StockholdersEquity                  *float64 `json:"stockholders_equity,omitempty"`
	TotalLiabilitiesNetMinorityInterest *float64 `json:"total_liabilities_net_minority_interest,omitempty"`
}

// CashFlowStatement line items. All optional.
type CashFlowStatement struct {
	OperatingCashFlow *float64 `json:"operating_cash_flow,omitempty"`
	InvestingCashFlow *float64 `json:"investing_cash_flow,omitempty"`
	FinancingCashFlow *float64 `json:"financing_cash_flow,omitempty"`
	FreeCashFlow      *float64 `json:"free_cash_flow,omitempty"`
}

// ValuationMeasures line items. All optional.
type ValuationMeasures struct {
	MarketCap       *float64 `json:"market_cap,omitempty"`
	EnterpriseValue *float64 `json:"enterprise_value,omitempty"`
	PeRatio         *float64 `json:"pe_ratio,omitempty"`
	PbRatio         *float64 `json:"pb_ratio,omitempty"`
	PsRatio         *float64 `json:"ps_ratio,omitempty"`
}

// Statement is one dated, period-typed statement record for a symbol. Exactly
// the sub-record named by Kind is non-nil.
type Statement struct {
	Symbol     string             `json:"symbol"`
	AsOf       time.Time          `json:"as_of"`
	PeriodType string             `json:"period_type"` // "3M" or "12M"
	Kind       StatementKind      `json:"kind"`
	Income     *IncomeStatement   `json:"income,omitempty"`
	Balance    *BalanceSheet      `json:"balance,omitempty"`
	CashFlow   *CashFlowStatement `json:"cashflow,omitempty"`
	Valuation  *ValuationMeasures `json:"valuation,omitempty"`
}

// Disclosure is one narrative filing reference from the disclosure feed.
type Disclosure struct {
	DocID          string    `json:"doc_id"`
	SecCode        string    `json:"sec_code"`
	FilerName      string    `json:"filer_name"`
	DocDescription string    `json:"doc_description"`
	SubmittedAt    time.Time `json:"submitted_at"`
}
