// cmd/lambda/main.go
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/wpcache/internal/config"
	"github.com/briangreenhill/wpcache/internal/handler"
	"github.com/briangreenhill/wpcache/internal/logging"
	"github.com/briangreenhill/wpcache/internal/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("configuration")
	}
	logger := logging.New(cfg.LogLevel)

	p, err := providers.Setup(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("setup")
	}

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

	logger.Info().Str("function", cfg.FetcherFunc).Str("backend", cfg.CacheBackend).Msg("lambda starting")
	lambda.Start(func(ctx context.Context, raw json.RawMessage) (any, error) {
		return h.Handle(ctx, raw), nil
	})
}
