package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/actions"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/config"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/edinet"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/gateway/yahoo"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/ingest"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/logger"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/pkg/retry"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/scheduler"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/store"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/universe"
)

func main() {
	cfgPath := flag.String("config", "", "path to the config file")
	once := flag.Bool("once", false, "run one batch and exit instead of scheduling")
	flag.Parse()

	cfg, err := config.Load(config.ResolvePath(*cfgPath))
	if err != nil {
		log.Fatalf("loading config failed: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("opening log file failed: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)

	sideFile, err := openSideLog(cfg.App.SkippedPath)
	if err != nil {
		log.Fatalf("opening skipped-symbol log failed: %v", err)
	}
	defer sideFile.Close()
	logger.SetSideWriter(sideFile)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("opening store failed: %v", err)
	}
	defer st.Close()

	listings, err := universe.Load(cfg.Universe.ListingPath)
	if err != nil {
		log.Fatalf("loading listing failed: %v", err)
	}
	logger.Infof("universe: %d listings loaded", len(listings))

	splitURL, consolidationURL := actionURLs(cfg)
	registry := actions.NewRegistry(
		actions.ChromeFetcher{Timeout: cfg.Actions.RenderTimeout},
		actions.WithURLs(splitURL, consolidationURL),
	)
	prices := yahoo.New(yahoo.Config{
		BaseURL:     cfg.Fetch.BaseURL,
		HTTPTimeout: cfg.Fetch.HTTPTimeout,
	})
	var disclosures ingest.DisclosureSource
	if cfg.Edinet.APIKey != "" {
		disclosures = edinet.New(edinet.Config{
			BaseURL: cfg.Edinet.BaseURL,
			APIKey:  cfg.Edinet.APIKey,
		})
	} else {
		logger.Warnf("edinet: no api key configured, disclosures disabled")
	}

	runner := ingest.NewRunner(ingest.RunnerConfig{
		LookbackDays:           cfg.Fetch.LookbackDays,
		DisclosureLookbackDays: cfg.Edinet.LookbackDays,
		Retry: retry.Policy{
			MaxAttempts: cfg.Fetch.MaxAttempts,
			BaseDelay:   cfg.Fetch.RetryDelay,
		},
		Location: cfg.Location(),
	}, st, registry, prices, disclosures, listings)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := runner.RunOnce(ctx); err != nil {
			log.Fatalf("batch failed: %v", err)
		}
		return
	}

	sched, err := scheduler.NewDailyScheduler(ctx, cfg.App.RunAt, cfg.Location())
	if err != nil {
		log.Fatalf("scheduler init failed: %v", err)
	}
	sched.Start(func() {
		if err := runner.RunOnce(ctx); err != nil {
			logger.Errorf("batch failed: %v", err)
		}
	})
}

func actionURLs(cfg *config.Config) (string, string) {
	split := cfg.Actions.SplitURL
	if split == "" {
		split = actions.DefaultSplitURL
	}
	consolidation := cfg.Actions.ConsolidationURL
	if consolidation == "" {
		consolidation = actions.DefaultConsolidationURL
	}
	return split, consolidation
}

// setupLogOutput tees the main log to a file when one is configured.
func setupLogOutput(path string) (*os.File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func openSideLog(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
