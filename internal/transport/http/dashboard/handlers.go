package dashboard

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/backtest"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
)

func (s *Server) handleSymbols(c *gin.Context) {
	symbols, err := s.store.Symbols()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols})
}

func (s *Server) handlePrices(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	from, to, err := parseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bars, err := s.store.QueryAdjustedPrices(symbol, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "bars": bars})
}

// handleSummary joins the latest valuation snapshot with ratios derived from
// the newest annual statements.
func (s *Server) handleSummary(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	metrics, err := s.store.LatestMetrics(symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if metrics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no metrics for " + symbol})
		return
	}
	statements, err := s.store.QueryStatements(symbol, time.Time{}, market.Day(time.Now()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"metrics": metrics,
		"ratios":  deriveRatios(statements),
	})
}

// deriveRatios computes equity ratio, net margin and return on equity from
// the newest annual balance sheet and income statement.
func deriveRatios(statements []market.Statement) gin.H {
	var balance *market.BalanceSheet
	var income *market.IncomeStatement
	for _, st := range statements { // oldest first, keep the newest annual
		if st.PeriodType != "12M" {
			continue
		}
		switch st.Kind {
		case market.StatementBalance:
			balance = st.Balance
		case market.StatementIncome:
			income = st.Income
		}
	}
	ratios := gin.H{}
	if income != nil && income.TotalRevenue != nil && *income.TotalRevenue != 0 {
		revenue := *income.TotalRevenue
		if income.GrossProfit != nil {
			ratios["gross_margin"] = *income.GrossProfit / revenue
		}
		if income.OperatingIncome != nil {
			ratios["operating_margin"] = *income.OperatingIncome / revenue
		}
		if income.NetIncome != nil {
			ratios["net_margin"] = *income.NetIncome / revenue
		}
	}
	if balance != nil {
		if balance.StockholdersEquity != nil && balance.TotalAssets != nil && *balance.TotalAssets != 0 {
			ratios["equity_ratio"] = *balance.StockholdersEquity / *balance.TotalAssets
		}
		if balance.CurrentAssets != nil && balance.CurrentLiabilities != nil && *balance.CurrentLiabilities != 0 {
			ratios["current_ratio"] = *balance.CurrentAssets / *balance.CurrentLiabilities
			if balance.Inventory != nil {
				ratios["quick_ratio"] = (*balance.CurrentAssets - *balance.Inventory) / *balance.CurrentLiabilities
			}
		}
		if income != nil && income.NetIncome != nil &&
			balance.StockholdersEquity != nil && *balance.StockholdersEquity != 0 {
			ratios["return_on_equity"] = *income.NetIncome / *balance.StockholdersEquity
		}
	}
	return ratios
}

func (s *Server) handleAdjustments(c *gin.Context) {
	applied, err := s.store.LoadApplied()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

func (s *Server) handleDisclosures(c *gin.Context) {
	docs, err := s.store.RecentDisclosures(c.Query("sec_code"), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"disclosures": docs})
}

type backtestRequest struct {
	Symbol      string  `json:"symbol" binding:"required"`
	Strategy    string  `json:"strategy" binding:"required"`
	InitialCash float64 `json:"initial_cash"`
	ShortWindow int     `json:"short_window"`
	LongWindow  int     `json:"long_window"`
	RSIPeriod   int     `json:"rsi_period"`
	From        string  `json:"from"`
	To          string  `json:"to"`
}

func (s *Server) handleBacktestRun(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	strategy, err := s.buildStrategy(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bars, err := s.store.QueryAdjustedPrices(req.Symbol, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	cash := req.InitialCash
	if cash <= 0 {
		cash = s.defaults.InitialCash
	}
	result, err := backtest.Run(bars, strategy, cash)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if !isClientFault(err) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.runs[id] = result
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"id": id, "result": result})
}

func (s *Server) handleBacktestResult(c *gin.Context) {
	s.mu.RLock()
	result, ok := s.runs[c.Param("id")]
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "result": result})
}

func (s *Server) buildStrategy(req backtestRequest) (backtest.Strategy, error) {
	switch strings.ToLower(req.Strategy) {
	case "ma_cross":
		short, long := req.ShortWindow, req.LongWindow
		if short <= 0 {
			short = s.defaults.ShortWindow
		}
		if long <= 0 {
			long = s.defaults.LongWindow
		}
		return backtest.MovingAverageCross{ShortWindow: short, LongWindow: long}, nil
	case "rsi":
		period := req.RSIPeriod
		if period <= 0 {
			period = s.defaults.RSIPeriod
		}
		return backtest.RSIReversal{
			Period:     period,
			Oversold:   s.defaults.RSIOversold,
			Overbought: s.defaults.RSIOverbought,
		}, nil
	default:
		return nil, &strategyError{name: req.Strategy}
	}
}

type strategyError struct{ name string }

func (e *strategyError) Error() string {
	return "unknown strategy " + e.name + " (want ma_cross or rsi)"
}

func isClientFault(err error) bool {
	return errors.Is(err, market.ErrInsufficientData)
}

// parseRange reads optional YYYY-MM-DD bounds, defaulting to all history.
func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from := time.Time{}
	to := market.Day(time.Now())
	if fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return from, to, err
		}
		from = market.Day(parsed)
	}
	if toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return from, to, err
		}
		to = market.Day(parsed)
	}
	return from, to, nil
}
