// Package dashboard serves the read-side HTTP API and the chart pages over
// the persisted tables.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/backtest"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/config"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/logger"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/store"
)

// Server exposes the dashboard API.
type Server struct {
	addr            string
	store           *store.Store
	defaults        config.BacktestConfig
	shutdownTimeout time.Duration
	router          *gin.Engine

	mu   sync.RWMutex
	runs map[string]*backtest.Result
}

// Config describes the server dependencies.
type Config struct {
	Addr            string
	Store           *store.Store
	Backtest        config.BacktestConfig
	ShutdownTimeout time.Duration
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("dashboard: store is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		addr:            cfg.Addr,
		store:           cfg.Store,
		defaults:        cfg.Backtest,
		shutdownTimeout: cfg.ShutdownTimeout,
		router:          router,
		runs:            make(map[string]*backtest.Result),
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/chart", s.handleChart)
	s.router.GET("/chart/backtest/:id", s.handleBacktestChart)

	api := s.router.Group("/api")
	api.GET("/symbols", s.handleSymbols)
	api.GET("/prices", s.handlePrices)
	api.GET("/summary", s.handleSummary)
	api.GET("/adjustments", s.handleAdjustments)
	api.GET("/disclosures", s.handleDisclosures)
	api.POST("/backtest", s.handleBacktestRun)
	api.GET("/backtest/:id", s.handleBacktestResult)
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("dashboard: listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("dashboard: %s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Truncate(time.Millisecond))
	}
}
