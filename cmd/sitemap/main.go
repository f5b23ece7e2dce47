// cmd/sitemap/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/wpcache/internal/config"
	"github.com/briangreenhill/wpcache/internal/event"
	"github.com/briangreenhill/wpcache/internal/handler"
	"github.com/briangreenhill/wpcache/internal/logging"
	"github.com/briangreenhill/wpcache/internal/providers"
	"github.com/briangreenhill/wpcache/sitemap"
	"github.com/briangreenhill/wpcache/wordpress"
)

type options struct {
	SiteURL    string `env:"SITE_URL,required,notEmpty"`
	ForceFetch bool   `env:"SITEMAP_FORCE_FETCH"`
}

func main() {
	_ = godotenv.Load()

	if err := run(context.Background()); err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("sitemap")
	}
}

func run(ctx context.Context) error {
	var opts options
	if err := env.Parse(&opts); err != nil {
		return &config.ConfigError{Err: err}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel)
	ctx = logging.WithRequest(ctx, logger, map[string]any{"job": "sitemap"})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	p, err := providers.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	h, err := handler.New(handler.Deps{
		Config:       cfg,
		Cache:        p.Cache,
		Fetcher:      p.Fetcher,
		NewPublisher: p.NewPublisher,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	args, _ := json.Marshal(map[string]bool{"forceFetch": opts.ForceFetch})
	out, err := h.Resolve(ctx, event.Event{Field: "getSitemapBlogList", Args: args})
	if err != nil {
		return err
	}
	posts, ok := out.([]wordpress.SitemapOutput)
	if !ok {
		return fmt.Errorf("unexpected sitemap output %T", out)
	}

	if err := sitemap.Write(ctx, p.Store, opts.SiteURL, posts); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Int("posts", len(posts)).Str("key", sitemap.Key).Msg("sitemap written")
	return nil
}
