package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/wpcache/internal/event"
	"github.com/briangreenhill/wpcache/wordpress"
)

type fakeBackend struct {
	events []event.Event
	raws   []string
	out    any
	err    error
}

func (f *fakeBackend) Resolve(_ context.Context, ev event.Event) (any, error) {
	f.events = append(f.events, ev)
	return f.out, f.err
}

func (f *fakeBackend) Handle(_ context.Context, raw json.RawMessage) any {
	f.raws = append(f.raws, string(raw))
	return f.out
}

func serve(t *testing.T, b *fakeBackend, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	s := New(ServerOptions{Backend: b, Logger: zerolog.Nop()})
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(t, &fakeBackend{}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestInvokePassesRawEvent(t *testing.T) {
	b := &fakeBackend{out: wordpress.PageOutput{BodyHTML: "<p>hi</p>"}}
	rec := serve(t, b, http.MethodPost, "/invoke", `{"field":"getContentPage","args":{"path":"about"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bodyHtml":"<p>hi</p>"}`, rec.Body.String())
	assert.Equal(t, []string{`{"field":"getContentPage","args":{"path":"about"}}`}, b.raws)
}

func TestInvokeRejectsOversizedEvent(t *testing.T) {
	b := &fakeBackend{}
	body := `{"field":"getContentPage","args":{"path":"` + strings.Repeat("a", maxEventBytes) + `"}}`
	rec := serve(t, b, http.MethodPost, "/invoke", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, b.raws)
}

func TestPageRoute(t *testing.T) {
	b := &fakeBackend{out: wordpress.PageOutput{BodyHTML: "x"}}
	rec := serve(t, b, http.MethodGet, "/pages/careers/graduates?urlOverride=cdn.example.com&forceFetch=true", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, b.events, 1)
	assert.Equal(t, "getContentPage", b.events[0].Field)
	assert.False(t, b.events[0].FromNotification)
	assert.JSONEq(t, `{"path":"careers/graduates","urlOverride":"cdn.example.com","forceFetch":true}`,
		string(b.events[0].Args))
}

func TestBlogRoutes(t *testing.T) {
	b := &fakeBackend{out: []wordpress.CategoryOutput{}}

	rec := serve(t, b, http.MethodGet, "/blog?page=2&category=news", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"page":2,"category":"news"}`, string(b.events[0].Args))

	rec = serve(t, b, http.MethodGet, "/blog?page=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, b, http.MethodGet, "/blog/categories", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, "getBlogCategoryList", b.events[1].Field)

	serve(t, b, http.MethodGet, "/blog/sitemap", "")
	assert.Equal(t, "getSitemapBlogList", b.events[2].Field)
}

func TestResolveErrors(t *testing.T) {
	b := &fakeBackend{err: errors.Join(errors.New("getBlogList"), wordpress.ErrNotFound)}
	rec := serve(t, b, http.MethodGet, "/blog?page=40", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	b = &fakeBackend{err: wordpress.ErrUpstream}
	rec = serve(t, b, http.MethodGet, "/pages/about", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}
