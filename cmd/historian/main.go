// cmd/historian/main.go is an asynchronous historian service that pops
// finished-match events from Redis, stores them in Postgres and updates the
// players' ratings.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/cardlink/internal/cache"
	"github.com/jason-s-yu/cardlink/internal/config"
	"github.com/jason-s-yu/cardlink/internal/database"
	"github.com/jason-s-yu/cardlink/internal/historian"
)

func main() {
	cfg, err := config.Load[config.Historian]()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal(err)
	}
	defer store.Close()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatal(err)
	}
	defer rdb.Close()

	h := historian.New(rdb, store, historian.Config{
		Queue:      cfg.MatchEventsQueue,
		BatchSize:  cfg.BatchSize,
		FlushDelay: cfg.FlushDelay,
		Logger:     logger,
	})
	if err := h.Run(ctx); err != nil {
		logger.Error(err)
	}
	logger.Info("historian shutdown complete")
}
