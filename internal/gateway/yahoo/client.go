// Package yahoo fetches daily price history, valuation metrics and financial
// statements from the Yahoo Finance JSON endpoints.
package yahoo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/logger"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
)

// Config holds the endpoint settings.
type Config struct {
	BaseURL     string
	HTTPTimeout time.Duration
	UserAgent   string
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 20 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) company-analysis/1.0"
	}
	return c
}

// Client talks to the chart and quoteSummary endpoints.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time
}

func New(cfg Config) *Client {
	final := cfg.withDefaults()
	return &Client{
		cfg:  final,
		http: &http.Client{Timeout: final.HTTPTimeout},
		now:  time.Now,
	}
}

// DailyBars returns the 1d interval history from start to now. Bars the
// provider reports with null closes (halts, data gaps) are dropped.
func (c *Client) DailyBars(ctx context.Context, symbol string, start time.Time) ([]market.PriceBar, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.cfg.BaseURL, url.PathEscape(symbol),
		url.Values{
			"period1":  {fmt.Sprintf("%d", start.Unix())},
			"period2":  {fmt.Sprintf("%d", c.now().Unix())},
			"interval": {"1d"},
			"events":   {"div,split"},
		}.Encode())
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	root := gjson.GetBytes(body, "chart.result.0")
	if !root.Exists() {
		msg := gjson.GetBytes(body, "chart.error.description").String()
		return nil, fmt.Errorf("chart %s: no result (%s)", symbol, msg)
	}
	timestamps := root.Get("timestamp").Array()
	quote := root.Get("indicators.quote.0")
	adjclose := root.Get("indicators.adjclose.0.adjclose").Array()

	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	bars := make([]market.PriceBar, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(closes) || closes[i].Type == gjson.Null {
			continue
		}
		bar := market.PriceBar{
			Symbol: symbol,
			Date:   market.Day(time.Unix(ts.Int(), 0).UTC()),
			Close:  closes[i].Float(),
		}
		if i < len(opens) {
			bar.Open = opens[i].Float()
		}
		if i < len(highs) {
			bar.High = highs[i].Float()
		}
		if i < len(lows) {
			bar.Low = lows[i].Float()
		}
		if i < len(volumes) {
			bar.Volume = volumes[i].Float()
		}
		bar.AdjClose = bar.Close
		if i < len(adjclose) && adjclose[i].Type != gjson.Null {
			bar.AdjClose = adjclose[i].Float()
		}
		bars = append(bars, bar)
	}
	logger.Debugf("yahoo: %s returned %d bars", symbol, len(bars))
	return bars, nil
}

// Metrics returns the valuation snapshot from summaryDetail, financialData
// and defaultKeyStatistics. Fields the provider omits stay nil.
func (c *Client) Metrics(ctx context.Context, symbol string) (market.CompanyMetrics, error) {
	root, err := c.quoteSummary(ctx, symbol, "summaryDetail,financialData,defaultKeyStatistics")
	if err != nil {
		return market.CompanyMetrics{}, err
	}
	m := market.CompanyMetrics{
		Symbol:                   symbol,
		DividendRate:             optFloat(root, "summaryDetail.dividendRate.raw"),
		DividendYield:            optFloat(root, "summaryDetail.dividendYield.raw"),
		FiveYearAvgDividendYield: optFloat(root, "summaryDetail.fiveYearAvgDividendYield.raw"),
		PayoutRatio:              optFloat(root, "summaryDetail.payoutRatio.raw"),
		MarketCap:                optFloat(root, "summaryDetail.marketCap.raw"),
		TrailingPE:               optFloat(root, "summaryDetail.trailingPE.raw"),
		ForwardPE:                optFloat(root, "summaryDetail.forwardPE.raw"),
		ROE:                      optFloat(root, "financialData.returnOnEquity.raw"),
		ROA:                      optFloat(root, "financialData.returnOnAssets.raw"),
		FetchedAt:                c.now(),
	}
	if ts := root.Get("summaryDetail.exDividendDate.raw"); ts.Exists() {
		d := market.Day(time.Unix(ts.Int(), 0).UTC())
		m.ExDividendDate = &d
	}
	return m, nil
}

// Statements returns annual and quarterly income, balance and cash-flow
// records plus one valuation snapshot dated at fetch time.
func (c *Client) Statements(ctx context.Context, symbol string) ([]market.Statement, error) {
	root, err := c.quoteSummary(ctx, symbol,
		"incomeStatementHistory,incomeStatementHistoryQuarterly,"+
			"balanceSheetHistory,balanceSheetHistoryQuarterly,"+
			"cashflowStatementHistory,cashflowStatementHistoryQuarterly,"+
			"summaryDetail,defaultKeyStatistics")
	if err != nil {
		return nil, err
	}

	var out []market.Statement
	out = append(out, incomeStatements(symbol, root.Get("incomeStatementHistory.incomeStatementHistory"), "12M")...)
	out = append(out, incomeStatements(symbol, root.Get("incomeStatementHistoryQuarterly.incomeStatementHistory"), "3M")...)
	out = append(out, balanceSheets(symbol, root.Get("balanceSheetHistory.balanceSheetStatements"), "12M")...)
	out = append(out, balanceSheets(symbol, root.Get("balanceSheetHistoryQuarterly.balanceSheetStatements"), "3M")...)
	out = append(out, cashFlows(symbol, root.Get("cashflowStatementHistory.cashflowStatements"), "12M")...)
	out = append(out, cashFlows(symbol, root.Get("cashflowStatementHistoryQuarterly.cashflowStatements"), "3M")...)

	valuation := market.ValuationMeasures{
		MarketCap:       optFloat(root, "summaryDetail.marketCap.raw"),
		EnterpriseValue: optFloat(root, "defaultKeyStatistics.enterpriseValue.raw"),
		PeRatio:         optFloat(root, "summaryDetail.trailingPE.raw"),
		PbRatio:         optFloat(root, "defaultKeyStatistics.priceToBook.raw"),
		PsRatio:         optFloat(root, "summaryDetail.priceToSalesTrailing12Months.raw"),
	}
	out = append(out, market.Statement{
		Symbol:     symbol,
		AsOf:       market.Day(c.now()),
		PeriodType: "TTM",
		Kind:       market.StatementValuation,
		Valuation:  &valuation,
	})
	return out, nil
}

func (c *Client) quoteSummary(ctx context.Context, symbol, modules string) (gjson.Result, error) {
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		c.cfg.BaseURL, url.PathEscape(symbol), url.QueryEscape(modules))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return gjson.Result{}, err
	}
	root := gjson.GetBytes(body, "quoteSummary.result.0")
	if !root.Exists() {
		msg := gjson.GetBytes(body, "quoteSummary.error.description").String()
		return gjson.Result{}, fmt.Errorf("quoteSummary %s: no result (%s)", symbol, msg)
	}
	return root, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo: %v: %w", err, market.ErrSourceUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("yahoo: status %d: %w", resp.StatusCode, market.ErrSourceUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("yahoo: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}

func incomeStatements(symbol string, list gjson.Result, periodType string) []market.Statement {
	var out []market.Statement
	list.ForEach(func(_, row gjson.Result) bool {
		asOf, ok := statementDate(row)
		if !ok {
			return true
		}
		out = append(out, market.Statement{
			Symbol:     symbol,
			AsOf:       asOf,
			PeriodType: periodType,
			Kind:       market.StatementIncome,
			Income: &market.IncomeStatement{
				TotalRevenue:                optFloat(row, "totalRevenue.raw"),
				GrossProfit:                 optFloat(row, "grossProfit.raw"),
				OperatingIncome:             optFloat(row, "operatingIncome.raw"),
				NetIncome:                   optFloat(row, "netIncome.raw"),
				NetIncomeCommonStockholders: optFloat(row, "netIncomeApplicableToCommonShares.raw"),
			},
		})
		return true
	})
	return out
}

func balanceSheets(symbol string, list gjson.Result, periodType string) []market.Statement {
	var out []market.Statement
	list.ForEach(func(_, row gjson.Result) bool {
		asOf, ok := statementDate(row)
		if !ok {
			return true
		}
		out = append(out, market.Statement{
			Symbol:     symbol,
			AsOf:       asOf,
			PeriodType: periodType,
			Kind:       market.StatementBalance,
			Balance: &market.BalanceSheet{
				TotalAssets:                         optFloat(row, "totalAssets.raw"),
				CurrentAssets:                       optFloat(row, "totalCurrentAssets.raw"),
				CurrentLiabilities:                  optFloat(row, "totalCurrentLiabilities.raw"),
				Inventory:                           optFloat(row, "inventory.raw"),
				StockholdersEquity:                  optFloat(row, "totalStockholderEquity.raw"),
				TotalLiabilitiesNetMinorityInterest: optFloat(row, "totalLiab.raw"),
			},
		})
		return true
	})
	return out
}

func cashFlows(symbol string, list gjson.Result, periodType string) []market.Statement {
	var out []market.Statement
	list.ForEach(func(_, row gjson.Result) bool {
		asOf, ok := statementDate(row)
		if !ok {
			return true
		}
		operating := optFloat(row, "totalCashFromOperatingActivities.raw")
		investing := optFloat(row, "totalCashflowsFromInvestingActivities.raw")
		cf := &market.CashFlowStatement{
			OperatingCashFlow: operating,
			InvestingCashFlow: investing,
			FinancingCashFlow: optFloat(row, "totalCashFromFinancingActivities.raw"),
		}
		if operating != nil && investing != nil {
			free := *operating + *investing
			cf.FreeCashFlow = &free
		}
		out = append(out, market.Statement{
			Symbol:     symbol,
			AsOf:       asOf,
			PeriodType: periodType,
			Kind:       market.StatementCashFlow,
			CashFlow:   cf,
		})
		return true
	})
	return out
}

func statementDate(row gjson.Result) (time.Time, bool) {
	ts := row.Get("endDate.raw")
	if !ts.Exists() {
		return time.Time{}, false
	}
	return market.Day(time.Unix(ts.Int(), 0).UTC()), true
}

func optFloat(root gjson.Result, path string) *float64 {
	v := root.Get(path)
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	f := v.Float()
	return &f
}
