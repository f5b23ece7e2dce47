package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/briangreenhill/wpcache/wordpress"
)

const (
	defaultImageCacheEntries = 32
	// Responses larger than this are never kept in the HTTP cache.
	maxCachedImageBytes = 2 << 20
)

// ImageMirror copies uploaded images from WordPress into the store.
type ImageMirror struct {
	http     *http.Client
	cache    *boundedCache
	store    Writer
	user     string
	password string
}

type MirrorOption func(*ImageMirror)

// WithCacheEntries caps how many image responses the in-process HTTP cache keeps
func WithCacheEntries(n int) MirrorOption {
	return func(m *ImageMirror) {
		if c, err := newBoundedCache(n, maxCachedImageBytes); err == nil {
			m.cache = c
			m.http.Transport = httpcache.NewTransport(c)
		}
	}
}

func WithHTTPClient(h *http.Client) MirrorOption {
	return func(m *ImageMirror) { m.http = h }
}

// WithBasicAuth sets credentials for WordPress hosts behind basic auth
func WithBasicAuth(user, password string) MirrorOption {
	return func(m *ImageMirror) { m.user, m.password = user, password }
}

// NewImageMirror uses a bounded in-memory HTTP cache so an image shared by
// several pages is usually downloaded once per process.
func NewImageMirror(store Writer, opts ...MirrorOption) *ImageMirror {
	c, _ := newBoundedCache(defaultImageCacheEntries, maxCachedImageBytes)
	m := &ImageMirror{
		http: &http.Client{
			Transport: httpcache.NewTransport(c),
			Timeout:   20 * time.Second,
		},
		cache: c,
		store: store,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Copy downloads img.URL and stores it under ImageKey(img.HTMLSrc)
func (m *ImageMirror) Copy(ctx context.Context, img wordpress.Image) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return fmt.Errorf("image request %s: %w", img.URL, err)
	}
	if m.user != "" {
		req.SetBasicAuth(m.user, m.password)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch image %s: %w", img.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch image %s: %s", img.URL, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read image %s: %w", img.URL, err)
	}

	return m.store.Put(ctx, &Object{
		Key:         ImageKey(img.HTMLSrc),
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	})
}

// boundedCache is an httpcache.Cache holding at most a fixed number of
// responses, none larger than maxBytes.
type boundedCache struct {
	lru      *lru.Cache[string, []byte]
	maxBytes int
}

func newBoundedCache(entries, maxBytes int) (*boundedCache, error) {
	l, err := lru.New[string, []byte](entries)
	if err != nil {
		return nil, fmt.Errorf("image cache: %w", err)
	}
	return &boundedCache{lru: l, maxBytes: maxBytes}, nil
}

func (c *boundedCache) Get(key string) ([]byte, bool) { return c.lru.Get(key) }

func (c *boundedCache) Set(key string, resp []byte) {
	if len(resp) > c.maxBytes {
		c.lru.Remove(key)
		return
	}
	c.lru.Add(key, resp)
}

func (c *boundedCache) Delete(key string) { c.lru.Remove(key) }

// Len reports the number of cached responses
func (c *boundedCache) Len() int { return c.lru.Len() }
