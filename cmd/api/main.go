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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/wpcache/internal/config"
	"github.com/briangreenhill/wpcache/internal/handler"
	"github.com/briangreenhill/wpcache/internal/http/routes"
	"github.com/briangreenhill/wpcache/internal/logging"
	"github.com/briangreenhill/wpcache/internal/providers"
)

func main() {
	// .env.local overrides .env; neither is required
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			l := zerolog.New(os.Stderr)
			l.Fatal().Err(err).Str("file", f).Msg("load env file")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("configuration")
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := providers.Setup(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("setup")
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn().Err(err).Msg("close providers")
		}
	}()

	h, err := handler.New(handler.Deps{
		Config:       cfg,
		Cache:        p.Cache,
		Fetcher:      p.Fetcher,
		NewPublisher: p.NewPublisher,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("handler")
	}

	s := routes.New(routes.ServerOptions{Backend: h, Logger: logger})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           hlog.NewHandler(logger)(s.Router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", srv.Addr).Msg("starting api")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server stopped")
	}
}
