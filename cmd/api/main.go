// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/briangreenhill/photofeed/internal/app"
	"github.com/briangreenhill/photofeed/internal/config"
	"github.com/briangreenhill/photofeed/internal/http/routes"
	"github.com/briangreenhill/photofeed/internal/logging"
	"github.com/briangreenhill/photofeed/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("error", false, os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}

	// Logger
	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty, os.Stdout)
	logger.Info().Str("port", cfg.Port).Str("feed", cfg.Feed.BaseURL).Msg("starting api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Feed
	f, err := app.NewFeed(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("feed setup")
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error().Err(err).Msg("close cache")
		}
	}()

	opts := routes.ServerOptions{Feed: f.Client}

	// DB
	if cfg.DatabaseURL != "" {
		st, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("db error")
		}
		defer st.Close()
		opts.Snapshots = st
	}

	// Queue
	if cfg.RedisAddr != "" {
		qc := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := qc.Close(); err != nil {
				logger.Error().Err(err).Msg("close asynq client")
			}
		}()
		opts.Queue = qc
	}

	// Router / server
	s := routes.New(opts)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Handler(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server")
	}
}
