// Package model holds the gorm table definitions for the persisted tables.
// Domain types live in internal/market; these rows exist only to give gorm a
// stable schema with per-table index names.
package model

import "time"

// StockPrice is the raw, append-then-replace union of all price fetches.
type StockPrice struct {
	ID       uint      `gorm:"primaryKey"`
	Symbol   string    `gorm:"size:16;uniqueIndex:idx_stock_prices_symbol_date"`
	Date     time.Time `gorm:"uniqueIndex:idx_stock_prices_symbol_date"`
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64
}

func (StockPrice) TableName() string { return "stock_prices" }

// AdjustedPrice is the derived table, replaced wholesale each run. It is
// deliberately not migrated at store open: its absence is what selects the
// bootstrap path.
type AdjustedPrice struct {
	ID       uint      `gorm:"primaryKey"`
	Symbol   string    `gorm:"size:16;uniqueIndex:idx_adjusted_prices_symbol_date"`
	Date     time.Time `gorm:"uniqueIndex:idx_adjusted_prices_symbol_date"`
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64
}

func (AdjustedPrice) TableName() string { return "adjusted_stock_prices" }

// CorporateActionRow accumulates every scraped split/consolidation notice.
// The unique key keeps repeated scrapes of a still-listed notice from
// duplicating the action.
type CorporateActionRow struct {
	ID            uint      `gorm:"primaryKey"`
	Symbol        string    `gorm:"size:16;uniqueIndex:idx_devide_union_symbol_date"`
	CompanyName   string    `gorm:"size:128"`
	Ratio         float64
	EffectiveDate time.Time `gorm:"uniqueIndex:idx_devide_union_symbol_date"`
}

func (CorporateActionRow) TableName() string { return "devide_union_data" }

// AppliedAdjustment is the append-only audit log of actions actually applied.
type AppliedAdjustment struct {
	ID            uint      `gorm:"primaryKey"`
	Symbol        string    `gorm:"size:16;uniqueIndex:idx_applied_data_symbol_date"`
	CompanyName   string    `gorm:"size:128"`
	Ratio         float64
	EffectiveDate time.Time `gorm:"uniqueIndex:idx_applied_data_symbol_date"`
	AppliedAt     time.Time
}

func (AppliedAdjustment) TableName() string { return "applied_data" }

// MetricsRow is one valuation snapshot per symbol per run.
type MetricsRow struct {
	ID                       uint   `gorm:"primaryKey"`
	Symbol                   string `gorm:"size:16;index"`
	TickerName               string `gorm:"size:128"`
	MarketProductCategory    string `gorm:"size:64"`
	Type33                   string `gorm:"size:64"`
	Type17                   string `gorm:"size:64"`
	DividendRate             *float64
	DividendYield            *float64
	FiveYearAvgDividendYield *float64
	PayoutRatio              *float64
	MarketCap                *float64
	TrailingPE               *float64
	ForwardPE                *float64
	ROE                      *float64
	ROA                      *float64
	ExDividendDate           *time.Time
	FetchedAt                time.Time `gorm:"index"`
}

func (MetricsRow) TableName() string { return "metrics" }

// StatementRow flattens the tagged statement records; columns outside the
// record's kind stay NULL.
type StatementRow struct {
	ID         uint      `gorm:"primaryKey"`
	Symbol     string    `gorm:"size:16;uniqueIndex:idx_financial_info_key"`
	AsOf       time.Time `gorm:"uniqueIndex:idx_financial_info_key"`
	PeriodType string    `gorm:"size:8;uniqueIndex:idx_financial_info_key"`
	Kind       string    `gorm:"size:16;uniqueIndex:idx_financial_info_key"`

	TotalRevenue                *float64
	GrossProfit                 *float64
	OperatingIncome             *float64
	NetIncome                   *float64
	NetIncomeCommonStockholders *float64

	TotalAssets                         *float64
	CurrentAssets                       *float64
	CurrentLiabilities                  *float64
	Inventory                           *float64
	StockholdersEquity                  *float64
	TotalLiabilitiesNetMinorityInterest *float64

	OperatingCashFlow *float64
	InvestingCashFlow *float64
	FinancingCashFlow *float64
	FreeCashFlow      *float64

	MarketCap       *float64
	EnterpriseValue *float64
	PeRatio         *float64
	PbRatio         *float64
	PsRatio         *float64
}

func (StatementRow) TableName() string { return "financial_info" }

// DisclosureRow is one narrative filing reference.
type DisclosureRow struct {
	ID             uint   `gorm:"primaryKey"`
	DocID          string `gorm:"size:16;uniqueIndex:idx_non_financial_doc_id"`
	SecCode        string `gorm:"size:16;index"`
	FilerName      string `gorm:"size:128"`
	DocDescription string `gorm:"size:256"`
	SubmittedAt    time.Time
}

func (DisclosureRow) TableName() string { return "non_financial_data" }

// SkippedSymbol is the side table of per-symbol fetch failures.
type SkippedSymbol struct {
	ID        uint   `gorm:"primaryKey"`
	Symbol    string `gorm:"size:16;index"`
	Stage     string `gorm:"size:32"`
	Reason    string `gorm:"size:512"`
	SkippedAt time.Time
}

func (SkippedSymbol) TableName() string { return "skipped_symbols" }
