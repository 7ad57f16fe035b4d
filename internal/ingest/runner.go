package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/logger"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/market"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/pkg/retry"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/store"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/universe"
)

// ActionSource refreshes the corporate-action registry.
type ActionSource interface {
	Refresh(ctx context.Context) ([]market.CorporateAction, error)
}

// PriceSource is the per-symbol price/fundamentals provider.
type PriceSource interface {
	DailyBars(ctx context.Context, symbol string, start time.Time) ([]market.PriceBar, error)
	Metrics(ctx context.Context, symbol string) (market.CompanyMetrics, error)
	Statements(ctx context.Context, symbol string) ([]market.Statement, error)
}

// DisclosureSource lists narrative filings over a date window.
type DisclosureSource interface {
	List(ctx context.Context, from, to time.Time) ([]market.Disclosure, error)
}

// RunnerConfig carries the batch parameters.
type RunnerConfig struct {
	LookbackDays           int // price fetch window
	DisclosureLookbackDays int
	Retry                  retry.Policy
	Location               *time.Location // evaluation-date timezone
}

// Runner executes one ingestion run: refresh registry → fetch per symbol →
// merge → adjust → persist → fundamentals → disclosures. Sequential; every
// derived table is complete in memory before anything is written.
type Runner struct {
	cfg         RunnerConfig
	store       *store.Store
	coordinator *Coordinator
	actions     ActionSource
	prices      PriceSource
	disclosures DisclosureSource
	listings    []universe.Listing
	now         func() time.Time
}

func NewRunner(cfg RunnerConfig, st *store.Store, actions ActionSource, prices PriceSource, disclosures DisclosureSource, listings []universe.Listing) *Runner {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 5
	}
	if cfg.DisclosureLookbackDays <= 0 {
		cfg.DisclosureLookbackDays = 10
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Runner{
		cfg:         cfg,
		store:       st,
		coordinator: NewCoordinator(st),
		actions:     actions,
		prices:      prices,
		disclosures: disclosures,
		listings:    listings,
		now:         time.Now,
	}
}

// RunOnce executes a full batch. Per-symbol failures are logged and skipped;
// a registry failure aborts the run because adjusting against a silently
// empty registry would corrupt history.
func (r *Runner) RunOnce(ctx context.Context) error {
	started := r.now()
	logger.Infof("ingest: run started at %s", started.Format(time.RFC3339))

	actions, err := r.refreshActions(ctx)
	if err != nil {
		return err
	}
	if err := r.store.AppendActions(actions); err != nil {
		return fmt.Errorf("ingest: persist corporate actions: %w", err)
	}

	incoming, metrics, statements := r.fetchUniverse(ctx)

	result, err := r.coordinator.Reconcile(incoming)
	if err != nil {
		return fmt.Errorf("ingest: reconcile: %w", err)
	}
	if result.NoOp {
		logger.Warnf("ingest: no incoming rows, price tables left untouched")
	} else {
		if err := r.store.ReplaceRawPrices(result.Raw); err != nil {
			return fmt.Errorf("ingest: persist raw prices: %w", err)
		}
		if err := r.store.ReplaceAdjustedPrices(result.Adjusted); err != nil {
			return fmt.Errorf("ingest: persist adjusted prices: %w", err)
		}
		if err := r.store.AppendApplied(result.Applied); err != nil {
			return fmt.Errorf("ingest: persist applied adjustments: %w", err)
		}
	}

	if err := r.store.AppendMetrics(metrics); err != nil {
		return fmt.Errorf("ingest: persist metrics: %w", err)
	}
	if err := r.store.AppendStatements(statements); err != nil {
		return fmt.Errorf("ingest: persist statements: %w", err)
	}

	r.fetchDisclosures(ctx)

	logger.Infow("ingest run finished",
		"elapsed", time.Since(started).Truncate(time.Second).String(),
		"mode", result.Mode.String(),
		"symbols", len(r.listings),
		"bars", len(incoming),
		"adjustments", len(result.Applied))
	return nil
}

func (r *Runner) refreshActions(ctx context.Context) ([]market.CorporateAction, error) {
	var actions []market.CorporateAction
	err := r.cfg.Retry.Do(ctx, "corporate actions", func(ctx context.Context) error {
		var err error
		actions, err = r.actions.Refresh(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: refresh corporate actions: %w", err)
	}
	logger.Infof("ingest: %d corporate actions scraped", len(actions))
	return actions, nil
}

// fetchUniverse walks the listing and collects prices, metrics and statements
// per symbol. One bad symbol never blocks the batch.
func (r *Runner) fetchUniverse(ctx context.Context) ([]market.PriceBar, []market.CompanyMetrics, []market.Statement) {
	start := market.Day(r.now().In(r.cfg.Location)).AddDate(0, 0, -r.cfg.LookbackDays)

	var incoming []market.PriceBar
	var allMetrics []market.CompanyMetrics
	var allStatements []market.Statement
	for _, l := range r.listings {
		symbol := l.Symbol()

		var bars []market.PriceBar
		err := r.cfg.Retry.Do(ctx, symbol+" prices", func(ctx context.Context) error {
			var err error
			bars, err = r.prices.DailyBars(ctx, symbol, start)
			return err
		})
		if err != nil {
			r.skip(symbol, "prices", err)
			continue
		}
		incoming = append(incoming, bars...)

		var m market.CompanyMetrics
		err = r.cfg.Retry.Do(ctx, symbol+" metrics", func(ctx context.Context) error {
			var err error
			m, err = r.prices.Metrics(ctx, symbol)
			return err
		})
		if err != nil {
			r.skip(symbol, "metrics", err)
			continue
		}
		m.TickerName = l.Name
		m.MarketProductCategory = l.MarketProductCategory
		m.Type33 = l.Type33
		m.Type17 = l.Type17
		allMetrics = append(allMetrics, m)

		var sts []market.Statement
		err = r.cfg.Retry.Do(ctx, symbol+" statements", func(ctx context.Context) error {
			var err error
			sts, err = r.prices.Statements(ctx, symbol)
			return err
		})
		if err != nil {
			r.skip(symbol, "statements", err)
			continue
		}
		allStatements = append(allStatements, sts...)
	}
	return incoming, allMetrics, allStatements
}

func (r *Runner) skip(symbol, stage string, err error) {
	symErr := &market.SymbolError{Symbol: symbol, Err: err}
	logger.Skippedf(symbol, "%s: %v", stage, symErr.Err)
	if dbErr := r.store.AppendSkipped(symbol, stage, err.Error()); dbErr != nil {
		logger.Errorf("ingest: record skipped symbol %s: %v", symbol, dbErr)
	}
}

// fetchDisclosures pulls the trailing filing window. Failures are warned, not
// fatal: disclosure text is an enrichment, not run state.
func (r *Runner) fetchDisclosures(ctx context.Context) {
	if r.disclosures == nil {
		return
	}
	end := market.Day(r.now().In(r.cfg.Location))
	from := end.AddDate(0, 0, -r.cfg.DisclosureLookbackDays)
	var docs []market.Disclosure
	err := r.cfg.Retry.Do(ctx, "disclosures", func(ctx context.Context) error {
		var err error
		docs, err = r.disclosures.List(ctx, from, end)
		return err
	})
	if err != nil {
		logger.Warnf("ingest: disclosure fetch failed: %v", err)
		return
	}
	if err := r.store.AppendDisclosures(docs); err != nil {
		logger.Errorf("ingest: persist disclosures: %v", err)
		return
	}
	logger.Infof("ingest: %d disclosures stored", len(docs))
}
