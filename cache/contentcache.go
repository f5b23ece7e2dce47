package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/briangreenhill/wpcache/wordpress"
)

// ErrCorrupt is returned when an entry with valid provenance fails to decode
var ErrCorrupt = errors.New("cached content corrupt")

const maxConcurrentWrites = 8

// Options configures a ContentCache
type Options struct {
	Provenance Provenance
	Timeout    time.Duration
	// Images mirrors images of responses that carry them; nil disables mirroring.
	Images *ImageMirror
	// StrictImages makes any failed image copy fail the whole write.
	StrictImages bool
	Now          func() time.Time
}

// ContentCache stores fetcher responses and classifies them on read
type ContentCache struct {
	store Store
	opts  Options
}

// Lookup is the result of a cache read
type Lookup struct {
	Status   Status
	Response wordpress.Response // nil when Status is ForceFetch
}

func NewContentCache(store Store, opts Options) *ContentCache {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ContentCache{store: store, opts: opts}
}

// Read classifies the entry under key. Only a corrupt entry is an error.
func (c *ContentCache) Read(ctx context.Context, key string, target wordpress.Target) (Lookup, error) {
	log := zerolog.Ctx(ctx)

	obj, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("cache read failed, fetching from source")
		}
		return Lookup{Status: ForceFetch}, nil
	}
	if !c.opts.Provenance.Admits(obj) {
		log.Debug().Str("key", key).Interface("metadata", obj.Metadata).Msg("cache provenance mismatch")
		return Lookup{Status: ForceFetch}, nil
	}

	resp, err := wordpress.DecodeResponse(target, obj.Body)
	if err != nil {
		return Lookup{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}

	status := Evaluate(obj, nil, c.opts.Provenance, c.opts.Timeout, c.opts.Now())
	log.Debug().Str("key", key).Stringer("status", status).Time("last_modified", obj.LastModified).Msg("cache lookup")
	return Lookup{Status: status, Response: resp}, nil
}

// Write stores resp under key together with its images. The content write and
// the image copies run concurrently.
func (c *ContentCache) Write(ctx context.Context, key string, resp wordpress.Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentWrites)

	g.Go(func() error {
		return c.store.Put(ctx, &Object{
			Key:         key,
			Body:        body,
			ContentType: "application/json",
			Metadata:    c.opts.Provenance.Metadata(),
		})
	})

	var (
		mu     sync.Mutex
		failed []error
	)
	if carrier, ok := resp.(wordpress.ImageCarrier); ok && c.opts.Images != nil {
		for _, img := range carrier.ImageRefs() {
			g.Go(func() error {
				err := c.opts.Images.Copy(ctx, img)
				if err == nil {
					return nil
				}
				if c.opts.StrictImages {
					return err
				}
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("cache write %s: %w", key, err)
	}
	if len(failed) > 0 {
		zerolog.Ctx(ctx).Warn().Err(errors.Join(failed...)).Str("key", key).Int("failed_images", len(failed)).
			Msg("image mirroring incomplete")
	}
	return nil
}
