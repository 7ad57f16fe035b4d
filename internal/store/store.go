// Package store wraps the relational store behind an explicitly constructed
// handle. All run semantics that call for "replace" happen inside a single
// transaction so a failed run never leaves a partially written table.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
	storemodel "github.com/Ishizuka-Ma/Company-Analysis/internal/store/model"
)

type Store struct {
	db *gorm.DB
}

// Open creates or opens the SQLite database at path and migrates every table
// except adjusted_stock_prices, whose existence is run-state (bootstrap vs
// incremental) and therefore owned by the first successful write.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: database path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	models := []interface{}{
		&storemodel.StockPrice{},
		&storemodel.CorporateActionRow{},
		&storemodel.AppliedAdjustment{},
		&storemodel.MetricsRow{},
		&storemodel.StatementRow{},
		&storemodel.DisclosureRow{},
		&storemodel.SkippedSymbol{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: keep lock contention low; the batch is sequential and the
	// dashboard only reads.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HasAdjustedPrices reports whether the adjusted table exists. This probe is
// the only state the merge coordinator consults across runs.
func (s *Store) HasAdjustedPrices() bool {
	return s.db.Migrator().HasTable(&storemodel.AdjustedPrice{})
}

// LoadRawPrices returns the full raw price history.
func (s *Store) LoadRawPrices() ([]market.PriceBar, error) {
	var rows []storemodel.StockPrice
	if err := s.db.Order("symbol, date").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]market.PriceBar, len(rows))
	for i, r := range rows {
		out[i] = market.PriceBar{
			Symbol: r.Symbol, Date: market.Day(r.Date),
			Open: r.Open, High: r.High, Low: r.Low, Close: r.Close,
			AdjClose: r.AdjClose, Volume: r.Volume,
		}
	}
	return out, nil
}

// LoadAdjustedPrices returns the full adjusted baseline. Callers must have
// checked HasAdjustedPrices first.
func (s *Store) LoadAdjustedPrices() ([]market.PriceBar, error) {
	var rows []storemodel.AdjustedPrice
	if err := s.db.Order("symbol, date").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]market.PriceBar, len(rows))
	for i, r := range rows {
		out[i] = market.PriceBar{
			Symbol: r.Symbol, Date: market.Day(r.Date),
			Open: r.Open, High: r.High, Low: r.Low, Close: r.Close,
			AdjClose: r.AdjClose, Volume: r.Volume,
		}
	}
	return out, nil
}

// QueryAdjustedPrices returns one symbol's adjusted bars inside [from, to],
// date ascending.
func (s *Store) QueryAdjustedPrices(symbol string, from, to time.Time) ([]market.PriceBar, error) {
	if !s.HasAdjustedPrices() {
		return nil, nil
	}
	var rows []storemodel.AdjustedPrice
	err := s.db.
		Where("symbol = ? AND date BETWEEN ? AND ?", symbol, market.Day(from), market.Day(to)).
		Order("date").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]market.PriceBar, len(rows))
	for i, r := range rows {
		out[i] = market.PriceBar{
			Symbol: r.Symbol, Date: market.Day(r.Date),
			Open: r.Open, High: r.High, Low: r.Low, Close: r.Close,
			AdjClose: r.AdjClose, Volume: r.Volume,
		}
	}
	return out, nil
}

// ReplaceRawPrices swaps the raw table content in one transaction.
func (s *Store) ReplaceRawPrices(bars []market.PriceBar) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&storemodel.StockPrice{}).Error; err != nil {
			return err
		}
		rows := make([]storemodel.StockPrice, len(bars))
		for i, b := range bars {
			rows[i] = storemodel.StockPrice{
				Symbol: b.Symbol, Date: market.Day(b.Date),
				Open: b.Open, High: b.High, Low: b.Low, Close: b.Close,
				AdjClose: b.AdjClose, Volume: b.Volume,
			}
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

// ReplaceAdjustedPrices swaps the adjusted table content in one transaction,
// creating the table on the first run. The CREATE TABLE runs inside the same
// transaction as the insert: a failed first write must not leave an empty
// adjusted table behind, because HasAdjustedPrices would then steer the next
// run onto the incremental path with no baseline.
func (s *Store) ReplaceAdjustedPrices(bars []market.PriceBar) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if !tx.Migrator().HasTable(&storemodel.AdjustedPrice{}) {
			if err := tx.Migrator().CreateTable(&storemodel.AdjustedPrice{}); err != nil {
				return err
			}
		} else if err := tx.Where("1 = 1").Delete(&storemodel.AdjustedPrice{}).Error; err != nil {
			return err
		}
		rows := make([]storemodel.AdjustedPrice, len(bars))
		for i, b := range bars {
			rows[i] = storemodel.AdjustedPrice{
				Symbol: b.Symbol, Date: market.Day(b.Date),
				Open: b.Open, High: b.High, Low: b.Low, Close: b.Close,
				AdjClose: b.AdjClose, Volume: b.Volume,
			}
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

// AppendActions upserts scraped notices. A notice stays on the source pages
// for days; the conflict clause keeps one row per (symbol, effective_date).
func (s *Store) AppendActions(actions []market.CorporateAction) error {
	if len(actions) == 0 {
		return nil
	}
	rows := make([]storemodel.CorporateActionRow, len(actions))
	for i, a := range actions {
		rows[i] = storemodel.CorporateActionRow{
			Symbol: a.Symbol, CompanyName: a.CompanyName,
			Ratio: a.Ratio, EffectiveDate: market.Day(a.EffectiveDate),
		}
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 200).Error
}

// LoadActions returns the full corporate-action history.
func (s *Store) LoadActions() ([]market.CorporateAction, error) {
	var rows []storemodel.CorporateActionRow
	if err := s.db.Order("effective_date, symbol").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]market.CorporateAction, len(rows))
	for i, r := range rows {
		out[i] = market.CorporateAction{
			Symbol: r.Symbol, CompanyName: r.CompanyName,
			Ratio: r.Ratio, EffectiveDate: market.Day(r.EffectiveDate),
		}
	}
	return out, nil
}

// AppendApplied appends audit records; re-running a day is a no-op thanks to
// the conflict clause.
func (s *Store) AppendApplied(records []market.AdjustmentRecord) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]storemodel.AppliedAdjustment, len(records))
	for i, r := range records {
		rows[i] = storemodel.AppliedAdjustment{
			Symbol: r.Symbol, CompanyName: r.CompanyName,
			Ratio: r.Ratio, EffectiveDate: market.Day(r.EffectiveDate),
			AppliedAt: now,
		}
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 200).Error
}

// LoadApplied returns the audit log, newest first.
func (s *Store) LoadApplied() ([]market.AdjustmentRecord, error) {
	var rows []storemodel.AppliedAdjustment
	if err := s.db.Order("effective_date desc, symbol").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]market.AdjustmentRecord, len(rows))
	for i, r := range rows {
		out[i] = market.AdjustmentRecord{
			Symbol: r.Symbol, CompanyName: r.CompanyName,
			Ratio: r.Ratio, EffectiveDate: market.Day(r.EffectiveDate),
		}
	}
	return out, nil
}

// AppendMetrics appends one snapshot row per symbol for this run.
func (s *Store) AppendMetrics(metrics []market.CompanyMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	rows := make([]storemodel.MetricsRow, len(metrics))
	for i, m := range metrics {
		rows[i] = storemodel.MetricsRow{
			Symbol:                   m.Symbol,
			TickerName:               m.TickerName,
			MarketProductCategory:    m.MarketProductCategory,
			Type33:                   m.Type33,
			Type17:                   m.Type17,
			DividendRate:             m.DividendRate,
			DividendYield:            m.DividendYield,
			FiveYearAvgDividendYield: m.FiveYearAvgDividendYield,
			PayoutRatio:              m.PayoutRatio,
			MarketCap:                m.MarketCap,
			TrailingPE:               m.TrailingPE,
			ForwardPE:                m.ForwardPE,
			ROE:                      m.ROE,
			ROA:                      m.ROA,
			ExDividendDate:           m.ExDividendDate,
			FetchedAt:                m.FetchedAt,
		}
	}
	return s.db.CreateInBatches(rows, 200).Error
}

// LatestMetrics returns the most recent snapshot for symbol, or nil.
func (s *Store) LatestMetrics(symbol string) (*market.CompanyMetrics, error) {
	var row storemodel.MetricsRow
	err := s.db.Where("symbol = ?", symbol).Order("fetched_at desc").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	m := market.CompanyMetrics{
		Symbol:                   row.Symbol,
		TickerName:               row.TickerName,
		MarketProductCategory:    row.MarketProductCategory,
		Type33:                   row.Type33,
		Type17:                   row.Type17,
		DividendRate:             row.DividendRate,
		DividendYield:            row.DividendYield,
		FiveYearAvgDividendYield: row.FiveYearAvgDividendYield,
		PayoutRatio:              row.PayoutRatio,
		MarketCap:                row.MarketCap,
		TrailingPE:               row.TrailingPE,
		ForwardPE:                row.ForwardPE,
		ROE:                      row.ROE,
		ROA:                      row.ROA,
		ExDividendDate:           row.ExDividendDate,
		FetchedAt:                row.FetchedAt,
	}
	return &m, nil
}

// AppendStatements upserts statement records on (symbol, as_of, period, kind).
func (s *Store) AppendStatements(statements []market.Statement) error {
	if len(statements) == 0 {
		return nil
	}
	rows := make([]storemodel.StatementRow, len(statements))
	for i, st := range statements {
		rows[i] = statementToRow(st)
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 200).Error
}

// QueryStatements returns a symbol's statements inside [from, to], oldest
// first.
func (s *Store) QueryStatements(symbol string, from, to time.Time) ([]market.Statement, error) {
	var rows []storemodel.StatementRow
	err := s.db.
		Where("symbol = ? AND as_of BETWEEN ? AND ?", symbol, market.Day(from), market.Day(to)).
		Order("as_of").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]market.Statement, len(rows))
	for i, r := range rows {
		out[i] = rowToStatement(r)
	}
	return out, nil
}

// AppendDisclosures upserts narrative filing references keyed by doc_id.
func (s *Store) AppendDisclosures(docs []market.Disclosure) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]storemodel.DisclosureRow, len(docs))
	for i, d := range docs {
		rows[i] = storemodel.DisclosureRow{
			DocID: d.DocID, SecCode: d.SecCode, FilerName: d.FilerName,
			DocDescription: d.DocDescription, SubmittedAt: d.SubmittedAt,
		}
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 200).Error
}

// Symbols returns the distinct symbols with price history, preferring the
// adjusted table when it exists.
func (s *Store) Symbols() ([]string, error) {
	var out []string
	query := s.db.Model(&storemodel.StockPrice{})
	if s.HasAdjustedPrices() {
		query = s.db.Model(&storemodel.AdjustedPrice{})
	}
	if err := query.Distinct("symbol").Order("symbol").Pluck("symbol", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// RecentDisclosures returns the newest filings, optionally filtered by
// securities code.
func (s *Store) RecentDisclosures(secCode string, limit int) ([]market.Disclosure, error) {
	if limit <= 0 {
		limit = 50
	}
	query := s.db.Order("submitted_at desc").Limit(limit)
	if secCode != "" {
		query = query.Where("sec_code = ?", secCode)
	}
	var rows []storemodel.DisclosureRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]market.Disclosure, len(rows))
	for i, r := range rows {
		out[i] = market.Disclosure{
			DocID: r.DocID, SecCode: r.SecCode, FilerName: r.FilerName,
			DocDescription: r.DocDescription, SubmittedAt: r.SubmittedAt,
		}
	}
	return out, nil
}

// AppendSkipped records one per-symbol failure in the side table.
func (s *Store) AppendSkipped(symbol, stage, reason string) error {
	row := storemodel.SkippedSymbol{
		Symbol: symbol, Stage: stage, Reason: reason, SkippedAt: time.Now(),
	}
	return s.db.Create(&row).Error
}

func statementToRow(st market.Statement) storemodel.StatementRow {
	row := storemodel.StatementRow{
		Symbol:     st.Symbol,
		AsOf:       market.Day(st.AsOf),
		PeriodType: st.PeriodType,
		Kind:       string(st.Kind),
	}
	if st.Income != nil {
		row.TotalRevenue = st.Income.TotalRevenue
		row.GrossProfit = st.Income.GrossProfit
		row.OperatingIncome = st.Income.OperatingIncome
		row.NetIncome = st.Income.NetIncome
		row.NetIncomeCommonStockholders = st.Income.NetIncomeCommonStockholders
	}
	if st.Balance != nil {
		row.TotalAssets = st.Balance.TotalAssets
		row.CurrentAssets = st.Balance.CurrentAssets
		row.CurrentLiabilities = st.Balance.CurrentLiabilities
		row.Inventory = st.Balance.Inventory
		row.StockholdersEquity = st.Balance.StockholdersEquity
		row.TotalLiabilitiesNetMinorityInterest = st.Balance.TotalLiabilitiesNetMinorityInterest
	}
	if st.CashFlow != nil {
		row.OperatingCashFlow = st.CashFlow.OperatingCashFlow
		row.InvestingCashFlow = st.CashFlow.InvestingCashFlow
		row.FinancingCashFlow = st.CashFlow.FinancingCashFlow
		row.FreeCashFlow = st.CashFlow.FreeCashFlow
	}
	if st.Valuation != nil {
		row.MarketCap = st.Valuation.MarketCap
		row.EnterpriseValue = st.Valuation.EnterpriseValue
		row.PeRatio = st.Valuation.PeRatio
		row.PbRatio = st.Valuation.PbRatio
		row.PsRatio = st.Valuation.PsRatio
	}
	return row
}

func rowToStatement(r storemodel.StatementRow) market.Statement {
	st := market.Statement{
		Symbol:     r.Symbol,
		AsOf:       market.Day(r.AsOf),
		PeriodType: r.PeriodType,
		Kind:       market.StatementKind(r.Kind),
	}
	switch st.Kind {
	case market.StatementIncome:
		st.Income = &market.IncomeStatement{
			TotalRevenue:                r.TotalRevenue,
			GrossProfit:                 r.GrossProfit,
			OperatingIncome:             r.OperatingIncome,
			NetIncome:                   r.NetIncome,
			NetIncomeCommonStockholders: r.NetIncomeCommonStockholders,
		}
	case market.StatementBalance:
		st.Balance = &market.BalanceSheet{
			TotalAssets:                         r.TotalAssets,
			CurrentAssets:                       r.CurrentAssets,
			CurrentLiabilities:                  r.CurrentLiabilities,
			Inventory:                           r.Inventory,
			StockholdersEquity:                  r.StockholdersEquity,
			TotalLiabilitiesNetMinorityInterest: r.TotalLiabilitiesNetMinorityInterest,
		}
	case market.StatementCashFlow:
		st.CashFlow = &market.CashFlowStatement{
			OperatingCashFlow: r.OperatingCashFlow,
			InvestingCashFlow: r.InvestingCashFlow,
			FinancingCashFlow: r.FinancingCashFlow,
			FreeCashFlow:      r.FreeCashFlow,
		}
	case market.StatementValuation:
		st.Valuation = &market.ValuationMeasures{
			MarketCap:       r.MarketCap,
			EnterpriseValue: r.EnterpriseValue,
			PeRatio:         r.PeRatio,
			PbRatio:         r.PbRatio,
			PsRatio:         r.PsRatio,
		}
	}
	return st
}
