package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/wpcache/internal/config"
	"github.com/briangreenhill/wpcache/internal/event"
	"github.com/briangreenhill/wpcache/internal/handler"
	"github.com/briangreenhill/wpcache/internal/jobs"
	"github.com/briangreenhill/wpcache/internal/logging"
	"github.com/briangreenhill/wpcache/internal/providers"
	"github.com/briangreenhill/wpcache/internal/refresh"
	"github.com/briangreenhill/wpcache/resolvers"
	"github.com/briangreenhill/wpcache/wordpress"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("configuration")
	}
	logger := logging.New(cfg.LogLevel)
	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("REDIS_ADDR is required for the worker")
	}

	p, err := providers.Setup(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("setup")
	}
	defer p.Close()

	// Refresh tasks are notification-sourced: they never publish further refreshes.
	h, err := handler.New(handler.Deps{Config: cfg, Cache: p.Cache, Fetcher: p.Fetcher, Logger: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("handler")
	}

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			jobs.QueueRefresh: 10,
			"default":         1,
		},
		Logger: asynqLogger{logger.With().Str("component", "asynq").Logger()},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TaskRefreshContent, func(ctx context.Context, t *asynq.Task) error {
		return refreshContent(ctx, h, logger, t)
	})

	logger.Info().Str("redis", cfg.RedisAddr).Msg("worker running")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}

// refreshContent never asks asynq for a retry: a failed refresh is logged and
// archived, and the next read of the stale entry schedules another one.
func refreshContent(ctx context.Context, h *handler.Handler, base zerolog.Logger, t *asynq.Task) error {
	var p jobs.RefreshContentPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		base.Error().Err(err).Msg("bad refresh payload")
		return dropTask(err)
	}
	ctx = logging.WithRequest(ctx, base, map[string]any{"field": p.Field, "task": t.Type()})
	log := zerolog.Ctx(ctx)

	start := time.Now()
	_, err := h.Resolve(ctx, event.Event{Field: p.Field, Args: p.Args, FromNotification: true})
	duration := time.Since(start)

	if err != nil {
		log.WithLevel(failureLevel(err)).Err(err).Dur("duration", duration).Msg("refresh failed, dropping task")
		return dropTask(err)
	}
	log.Info().Dur("duration", duration).Msg("refresh done")
	return nil
}

func dropTask(err error) error {
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}

// failureLevel logs content and routing problems as warnings. Anything else,
// configuration included, is an error.
func failureLevel(err error) zerolog.Level {
	var cerr *config.ConfigError
	switch {
	case errors.As(err, &cerr):
		return zerolog.ErrorLevel
	case errors.Is(err, wordpress.ErrShape),
		errors.Is(err, wordpress.ErrNotFound),
		errors.Is(err, resolvers.ErrUnknownField),
		errors.Is(err, resolvers.ErrInvalidArgs),
		errors.Is(err, refresh.ErrDisabled):
		return zerolog.WarnLevel
	}
	return zerolog.ErrorLevel
}

// asynqLogger adapts zerolog to asynq.Logger
type asynqLogger struct{ l zerolog.Logger }

func (a asynqLogger) Debug(args ...any) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...any)  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...any) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...any) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
