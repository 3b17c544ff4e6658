// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/cardlink/internal/auth"
	"github.com/jason-s-yu/cardlink/internal/cache"
	"github.com/jason-s-yu/cardlink/internal/config"
	"github.com/jason-s-yu/cardlink/internal/database"
	"github.com/jason-s-yu/cardlink/internal/engine/duel"
	"github.com/jason-s-yu/cardlink/internal/handlers"
	"github.com/jason-s-yu/cardlink/internal/match"
	"github.com/jason-s-yu/cardlink/internal/matchmaker"
	"github.com/jason-s-yu/cardlink/internal/session"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load[config.Server]()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func run(ctx context.Context, cfg config.Server, logger *logrus.Logger) error {
	ttl, err := auth.ParseTTL(cfg.TokenExpireTime)
	if err != nil {
		return err
	}
	signer, err := auth.LoadSigner(cfg.TokenPrivateKeyPath, cfg.TokenPublicKeyPath, ttl)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	regCfg := session.Config{MinAccountNameLength: cfg.MinAccountNameLength, Logger: logger}
	var store *database.Store
	if cfg.DatabaseURL != "" {
		store, err = database.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		regCfg.Verifier = store
	}
	registry := session.NewRegistry(regCfg)

	matchCfg := match.Config{
		Factory:      duel.Factory,
		SkipMulligan: cfg.SkipMulligan,
		Logger:       logger,
	}
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		feed := cache.NewEventFeed(rdb, cfg.MatchEventsQueue, 0, logger)
		matchCfg.Observer = feed
		g.Go(func() error { return feed.Run(ctx) })
	}

	mm := matchmaker.New(registry, matchmaker.Config{
		Interval:   cfg.MatchmakerInterval,
		MaxPerTick: cfg.MatchmakerMaxPerTick,
		Match:      matchCfg,
		Logger:     logger,
	})
	g.Go(func() error { return mm.Run(ctx) })

	srv := handlers.NewServer(registry, mm, signer, logger)
	srv.WriterIdle = cfg.WriterIdle
	if store != nil {
		srv.Accounts = store
	}
	server := &http.Server{
		Handler:     srv.Routes(),
		ReadTimeout: 10 * time.Second,
	}
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	logger.Infof("listening on %s", l.Addr())

	g.Go(func() error {
		if err := server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("terminating")
		for _, s := range registry.Sessions() {
			registry.Remove(s)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
