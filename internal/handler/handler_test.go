package handler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/wpcache/cache"
	"github.com/briangreenhill/wpcache/internal/config"
	"github.com/briangreenhill/wpcache/internal/event"
	"github.com/briangreenhill/wpcache/internal/refresh"
	"github.com/briangreenhill/wpcache/wordpress"
)

type fakeFetcher struct {
	replies map[string]wordpress.Response
	calls   []wordpress.Payload
}

func (f *fakeFetcher) Fetch(_ context.Context, p wordpress.Payload) (wordpress.Response, error) {
	f.calls = append(f.calls, p)
	if r, ok := f.replies[p.CacheKey()]; ok {
		return r, nil
	}
	return nil, errors.New("no reply for " + p.CacheKey())
}

type recordingPublisher struct {
	msgs []refresh.Message
}

func (r *recordingPublisher) Publish(_ context.Context, msg refresh.Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

type harness struct {
	h         *Handler
	store     *cache.DiskStore
	fetcher   *fakeFetcher
	pub       *recordingPublisher
	factories int
	now       time.Time
}

func newHarness(t *testing.T, env map[string]string) *harness {
	t.Helper()
	vars := map[string]string{
		"AWS_REGION":        "eu-west-1",
		"CACHE_TIMEOUT":     "60000",
		"SNS_TOPIC_ARN":     "arn:aws:sns:eu-west-1:1:refresh",
		"CACHE_BUCKET":      "wp-content",
		"FETCHER_FUNCTION":  "wp-fetcher",
		"WORDPRESS_API_URL": "https://wp.example.com/wp-json",
		"CACHE_VERSION":     "1",
	}
	for k, v := range env {
		if v == "" {
			delete(vars, k)
			continue
		}
		vars[k] = v
	}
	cfg, err := config.LoadFrom(vars)
	require.NoError(t, err)

	hs := &harness{
		fetcher: &fakeFetcher{replies: map[string]wordpress.Response{}},
		pub:     &recordingPublisher{},
		now:     time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return hs.now }

	hs.store, err = cache.NewMemoryStore(cache.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = hs.store.Close() })

	cc := cache.NewContentCache(hs.store, cache.Options{
		Provenance: cache.Provenance{Origin: cfg.APIURL, Version: cfg.CacheVersion},
		Timeout:    cfg.CacheTimeout(),
		Now:        clock,
	})
	hs.h, err = New(Deps{
		Config:  cfg,
		Cache:   cc,
		Fetcher: hs.fetcher,
		NewPublisher: func(*config.Config) (refresh.Publisher, error) {
			hs.factories++
			return hs.pub, nil
		},
	})
	require.NoError(t, err)
	return hs
}

func snsEvent(t *testing.T, inner string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"Records": []any{map[string]any{"Sns": map[string]any{"Message": inner}}},
	})
	require.NoError(t, err)
	return raw
}

func body(s string) *string { return &s }

func TestHandleContentPageOnEmptyCache(t *testing.T) {
	hs := newHarness(t, nil)
	hs.fetcher.replies["pages/about.json"] = &wordpress.Page{
		Title:    "About",
		Slug:     "about",
		BodyHTML: body(`<img src="$$DOMAIN$$/2024/team.jpg">`),
		Images:   []wordpress.Image{},
	}

	out := hs.h.Handle(context.Background(), json.RawMessage(`{"field":"getContentPage","args":{"path":"about"}}`))
	assert.Equal(t, wordpress.PageOutput{BodyHTML: `<img src="/images/2024/team.jpg">`}, out)

	require.Len(t, hs.fetcher.calls, 1)
	assert.Equal(t, wordpress.PagePayload{Path: "about"}, hs.fetcher.calls[0])

	obj, err := hs.store.Get(context.Background(), "pages/about.json")
	require.NoError(t, err)
	assert.Equal(t, "https://wp.example.com/wp-json", obj.Metadata[cache.MetaOrigin])
	assert.Equal(t, "1", obj.Metadata[cache.MetaCacheVersion])
}

func TestHandleStaleDirectRequestPublishes(t *testing.T) {
	hs := newHarness(t, nil)
	hs.fetcher.replies["pages/about.json"] = &wordpress.Page{Slug: "about", BodyHTML: body("v1"), Images: []wordpress.Image{}}
	raw := json.RawMessage(`{"field":"getContentPage","args":{"path":"about"}}`)

	require.NotNil(t, hs.h.Handle(context.Background(), raw))
	hs.now = hs.now.Add(2 * time.Minute)
	require.NotNil(t, hs.h.Handle(context.Background(), raw))
	require.NotNil(t, hs.h.Handle(context.Background(), raw))

	require.Len(t, hs.pub.msgs, 2)
	assert.Equal(t, "getContentPage", hs.pub.msgs[0].Field)
	assert.JSONEq(t, `{"path":"about","forceFetch":true}`, string(hs.pub.msgs[0].Args))
	assert.Equal(t, 1, hs.factories, "publisher is built once")
}

func TestHandleSNSCategoryList(t *testing.T) {
	hs := newHarness(t, map[string]string{"SNS_TOPIC_ARN": ""})
	hs.fetcher.replies["category/1.json"] = wordpress.BlogCategoryList{{ID: 3, Name: "News", Slug: "news", Count: 1}}
	hs.fetcher.replies["category/2.json"] = wordpress.BlogCategoryList{}

	out := hs.h.Handle(context.Background(),
		snsEvent(t, `{"field":"getBlogCategoryList","args":{"forceFetch":true}}`))
	assert.Equal(t, []wordpress.CategoryOutput{{Slug: "news", Name: "News", ID: 3, Count: 1}}, out)
	assert.Zero(t, hs.factories, "notification-sourced requests never build a publisher")
}

func TestResolveSNSQueueFetchWithoutTopicFails(t *testing.T) {
	hs := newHarness(t, map[string]string{"SNS_TOPIC_ARN": ""})
	hs.fetcher.replies["category/1.json"] = wordpress.BlogCategoryList{}

	ev := event.Event{Field: "getBlogCategoryList", Args: json.RawMessage(`{}`), FromNotification: true}
	_, err := hs.h.Resolve(context.Background(), ev)
	require.NoError(t, err)

	hs.now = hs.now.Add(time.Hour)
	_, err = hs.h.Resolve(context.Background(), ev)
	assert.ErrorIs(t, err, refresh.ErrDisabled)
	assert.Nil(t, hs.h.Handle(context.Background(), snsEvent(t, `{"field":"getBlogCategoryList"}`)))
}

func TestResolveDirectWithoutTopic(t *testing.T) {
	hs := newHarness(t, map[string]string{"SNS_TOPIC_ARN": ""})
	_, err := hs.h.Resolve(context.Background(), event.Event{Field: "getBlogCategoryList", Args: json.RawMessage(`{}`)})

	var cerr *config.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "SNS_TOPIC_ARN", cerr.Var)
	assert.Empty(t, hs.fetcher.calls)
}

func TestResolveErrors(t *testing.T) {
	hs := newHarness(t, nil)
	hs.fetcher.replies["pages/bad.json"] = &wordpress.Page{
		Slug:     "bad",
		BodyHTML: body("$$DOMAIN$$"),
		Images:   []wordpress.Image{},
	}

	_, err := hs.h.Resolve(context.Background(), event.Event{Field: "getJobs", Args: json.RawMessage(`{}`)})
	assert.ErrorContains(t, err, "unknown field")

	// an override containing the placeholder leaves it in the output
	_, err = hs.h.Resolve(context.Background(), event.Event{
		Field: "getContentPage",
		Args:  json.RawMessage(`{"path":"bad","urlOverride":"$$DOMAIN$$"}`),
	})
	assert.ErrorIs(t, err, wordpress.ErrShape)
}

func TestHandleFailSoft(t *testing.T) {
	hs := newHarness(t, nil)

	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"field":`},
		{"malformed sns message", string(snsEvent(t, "not json"))},
		{"unknown field", `{"field":"getJobs","args":{}}`},
		{"fetch failure", `{"field":"getContentPage","args":{"path":"missing"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, hs.h.Handle(context.Background(), json.RawMessage(tt.raw)))
		})
	}
}
