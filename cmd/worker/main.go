package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/briangreenhill/photofeed/internal/app"
	"github.com/briangreenhill/photofeed/internal/config"
	"github.com/briangreenhill/photofeed/internal/jobs"
	"github.com/briangreenhill/photofeed/internal/logging"
	"github.com/briangreenhill/photofeed/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("error", false, os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty, os.Stdout).With().Str("service", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to connect to database")
	}
	defer st.Close()

	f, err := app.NewFeed(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("feed setup")
	}
	defer func() { _ = f.Close() }()

	redis := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: int(cfg.HTTP.MaxConcurrent),
		Queues: map[string]int{
			jobs.QueueRefresh: 10, // higher priority
			"default":         5,
		},
	})
	mux := asynq.NewServeMux()
	mux.Handle(jobs.TaskRefreshFeed, &jobs.RefreshHandler{Feed: f.Client, Saver: st, Log: logger})

	scheduler := asynq.NewScheduler(redis, nil)
	entryID, err := jobs.RegisterSchedule(scheduler, cfg.RefreshInterval)
	if err != nil {
		logger.Fatal().Err(err).Msg("register refresh schedule")
	}
	if entryID != "" {
		logger.Info().Str("entry", entryID).Dur("every", cfg.RefreshInterval).Msg("refresh scheduled")
		if err := scheduler.Start(); err != nil {
			logger.Fatal().Err(err).Msg("start scheduler")
		}
		defer scheduler.Shutdown()
	}

	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	logger.Info().Msg("worker running")
	<-ctx.Done()
	srv.Shutdown()
}
