package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/config"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/logger"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/store"
	"github.com/Ishizuka-Ma/Company-Analysis/internal/transport/http/dashboard"
)

func main() {
	cfgPath := flag.String("config", "", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(config.ResolvePath(*cfgPath))
	if err != nil {
		log.Fatalf("loading config failed: %v", err)
	}
	logger.SetLevel(cfg.App.LogLevel)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("opening store failed: %v", err)
	}
	defer st.Close()

	server, err := dashboard.NewServer(dashboard.Config{
		Addr:            cfg.Dashboard.Listen,
		Store:           st,
		Backtest:        cfg.Backtest,
		ShutdownTimeout: cfg.Dashboard.ShutdownTimeout,
	})
	if err != nil {
		log.Fatalf("dashboard init failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(ctx) })
	if err := g.Wait(); err != nil {
		log.Fatalf("dashboard failed: %v", err)
	}
	logger.Infof("dashboard: stopped")
}
