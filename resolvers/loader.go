package resolvers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/wpcache/cache"
	"github.com/briangreenhill/wpcache/internal/refresh"
	"github.com/briangreenhill/wpcache/wordpress"
)

// Loader runs the cache-then-source lookup for one request. It is not safe
// for concurrent use.
type Loader struct {
	cache     *cache.ContentCache
	fetcher   wordpress.Fetcher
	publisher refresh.Publisher

	field     string
	args      json.RawMessage
	published bool
}

// NewLoader binds the dependencies to the request's field and raw args. The
// args are re-published verbatim, with forceFetch set, when stale data is served.
func NewLoader(c *cache.ContentCache, f wordpress.Fetcher, pub refresh.Publisher, field string, args json.RawMessage) *Loader {
	if pub == nil {
		pub = refresh.Disabled
	}
	return &Loader{cache: c, fetcher: f, publisher: pub, field: field, args: args}
}

// Load returns the response for p. With force set the cache is not consulted.
func (l *Loader) Load(ctx context.Context, p wordpress.Payload, force bool) (wordpress.Response, error) {
	if err := wordpress.ValidatePayload(p); err != nil {
		return nil, err
	}
	if force {
		return l.fetchAndCache(ctx, p)
	}

	lookup, err := l.cache.Read(ctx, p.CacheKey(), p.Target())
	if err != nil {
		return nil, err
	}

	switch lookup.Status {
	case cache.ForceFetch:
		return l.fetchAndCache(ctx, p)
	case cache.QueueFetch:
		if err := l.scheduleRefresh(ctx); err != nil {
			return nil, err
		}
	}
	return lookup.Response, nil
}

func (l *Loader) fetchAndCache(ctx context.Context, p wordpress.Payload) (wordpress.Response, error) {
	resp, err := l.fetcher.Fetch(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Write(ctx, p.CacheKey(), resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// scheduleRefresh publishes at most one refresh per request; the refresh
// re-runs the whole field, so every page it touches is renewed.
func (l *Loader) scheduleRefresh(ctx context.Context) error {
	if l.published {
		return nil
	}
	msg, err := refresh.NewMessage(l.field, l.args)
	if err != nil {
		return err
	}
	if err := l.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	l.published = true
	zerolog.Ctx(ctx).Debug().Str("field", l.field).Msg("stale content served, refresh scheduled")
	return nil
}
