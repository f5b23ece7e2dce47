// Package handler runs the request pipeline: decode, resolve configuration,
// route, resolve the field and validate its output.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/wpcache/cache"
	"github.com/briangreenhill/wpcache/internal/config"
	"github.com/briangreenhill/wpcache/internal/event"
	"github.com/briangreenhill/wpcache/internal/logging"
	"github.com/briangreenhill/wpcache/internal/refresh"
	"github.com/briangreenhill/wpcache/resolvers"
	"github.com/briangreenhill/wpcache/wordpress"
)

// PublisherFactory builds the refresh publisher. It is only called for the
// first direct request; notification-sourced requests never reach it.
type PublisherFactory func(cfg *config.Config) (refresh.Publisher, error)

// Deps are the collaborators a Handler needs
type Deps struct {
	Config       *config.Config
	Cache        *cache.ContentCache
	Fetcher      wordpress.Fetcher
	NewPublisher PublisherFactory
	Registry     *resolvers.Registry
	Logger       zerolog.Logger
}

type Handler struct {
	cfg       *config.Config
	cache     *cache.ContentCache
	fetcher   wordpress.Fetcher
	registry  *resolvers.Registry
	log       zerolog.Logger
	publisher func() (refresh.Publisher, error)
}

func New(d Deps) (*Handler, error) {
	if d.Config == nil || d.Cache == nil || d.Fetcher == nil {
		return nil, errors.New("handler: config, cache and fetcher are required")
	}
	if d.Registry == nil {
		d.Registry = resolvers.NewDefaultRegistry()
	}
	newPub := d.NewPublisher
	if newPub == nil {
		newPub = func(*config.Config) (refresh.Publisher, error) {
			return nil, &config.ConfigError{Err: errors.New("no refresh publisher configured")}
		}
	}
	return &Handler{
		cfg:      d.Config,
		cache:    d.Cache,
		fetcher:  d.Fetcher,
		registry: d.Registry,
		log:      d.Logger,
		publisher: sync.OnceValues(func() (refresh.Publisher, error) {
			return newPub(d.Config)
		}),
	}, nil
}

// Resolve runs ev through the pipeline. Every failure is returned.
func (h *Handler) Resolve(ctx context.Context, ev event.Event) (any, error) {
	log := zerolog.Ctx(ctx)

	includeRefresh := !ev.FromNotification
	if err := h.cfg.Resolve(includeRefresh); err != nil {
		return nil, err
	}
	pub := refresh.Disabled
	if includeRefresh {
		p, err := h.publisher()
		if err != nil {
			return nil, fmt.Errorf("refresh publisher: %w", err)
		}
		pub = p
	}

	res, err := h.registry.Get(ev.Field)
	if err != nil {
		return nil, err
	}

	loader := resolvers.NewLoader(h.cache, h.fetcher, pub, ev.Field, ev.Args)
	out, err := res.Resolve(ctx, loader, ev.Args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ev.Field, err)
	}
	if err := wordpress.ValidateOutput(out); err != nil {
		log.Error().Err(err).Str("field", ev.Field).Msg("output failed validation")
		return nil, fmt.Errorf("%s: %w", ev.Field, err)
	}
	return out, nil
}

// Handle decodes raw and resolves it. It never fails: any error, or a panic,
// is logged and yields nil.
func (h *Handler) Handle(ctx context.Context, raw json.RawMessage) (out any) {
	ctx = logging.WithRequest(ctx, h.log, nil)
	log := zerolog.Ctx(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("request panicked")
			out = nil
		}
	}()

	ev, err := event.Decode(raw)
	if err != nil {
		log.Error().Err(err).Msg("event rejected")
		return nil
	}
	log.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("field", ev.Field).Bool("from_notification", ev.FromNotification)
	})

	out, err = h.Resolve(ctx, ev)
	if err != nil {
		log.Error().Err(err).Msg("request failed")
		return nil
	}
	log.Info().Msg("request resolved")
	return out
}
