package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"AuctionHarvester/internal/app"
	"AuctionHarvester/internal/config"
	"AuctionHarvester/internal/logging"
)

func main() {
	mode := flag.String("mode", app.ModeAll, "run mode: harvest, geocode, states, all, serve, schedule")
	regions := flag.String("regions", "", "comma separated UFs overriding the configured regions")
	categories := flag.String("categories", "", "comma separated category codes to harvest")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if *regions != "" {
		cfg.Harvest.Regions = config.SplitList(*regions)
	}
	if *categories != "" {
		cfg.Harvest.Categories = app.FilterCategories(cfg.Harvest.Categories, config.SplitList(*categories))
	}
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Run(ctx, *mode); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application stopped", "mode", *mode, "error", err)
		_ = application.Close()
		os.Exit(1)
	}
}
