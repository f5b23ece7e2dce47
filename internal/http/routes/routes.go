package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/wpcache/internal/event"
	appmw "github.com/briangreenhill/wpcache/internal/http/middleware"
	"github.com/briangreenhill/wpcache/wordpress"
)

const maxEventBytes = 1 << 20

// Backend is the request pipeline behind the HTTP front end
type Backend interface {
	Resolve(ctx context.Context, ev event.Event) (any, error)
	Handle(ctx context.Context, raw json.RawMessage) any
}

type Server struct {
	Router  *chi.Mux
	Backend Backend
}

type ServerOptions struct {
	Backend Backend
	Logger  zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(appmw.RequestLogger(opts.Logger))
	r.Use(appmw.AccessLog())
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, Backend: opts.Backend}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("write health check response")
		}
	})

	r.Post("/invoke", s.handleInvoke)
	r.Get("/pages/*", s.handlePage)
	r.Get("/blog", s.handleBlogList)
	r.Get("/blog/categories", s.handleField("getBlogCategoryList"))
	r.Get("/blog/sitemap", s.handleField("getSitemapBlogList"))

	return s
}

// handleInvoke accepts a raw handler event and answers exactly like the Lambda
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "event too large", http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		http.Error(w, "could not read body", http.StatusBadRequest)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.Backend.Handle(r.Context(), raw))
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	args := queryArgs(r)
	args["path"] = chi.URLParam(r, "*")
	s.resolve(w, r, "getContentPage", args)
}

func (s *Server) handleBlogList(w http.ResponseWriter, r *http.Request) {
	args := queryArgs(r)
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			http.Error(w, "page must be a positive integer", http.StatusBadRequest)
			return
		}
		args["page"] = n
	}
	if c := r.URL.Query().Get("category"); c != "" {
		args["category"] = c
	}
	s.resolve(w, r, "getBlogList", args)
}

func (s *Server) handleField(field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.resolve(w, r, field, queryArgs(r))
	}
}

// queryArgs collects the args shared by every field
func queryArgs(r *http.Request) map[string]any {
	q := r.URL.Query()
	args := map[string]any{}
	if o := q.Get("urlOverride"); o != "" {
		args["urlOverride"] = o
	}
	if f, _ := strconv.ParseBool(q.Get("forceFetch")); f {
		args["forceFetch"] = true
	}
	return args
}

// resolve answers 404 for missing content and null for every other failure,
// keeping the Lambda's fail-soft contract.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request, field string, args map[string]any) {
	log := zerolog.Ctx(r.Context())

	raw, err := json.Marshal(args)
	if err != nil {
		http.Error(w, "bad arguments", http.StatusBadRequest)
		return
	}
	out, err := s.Backend.Resolve(r.Context(), event.Event{Field: field, Args: raw})
	switch {
	case errors.Is(err, wordpress.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		log.Error().Err(err).Str("field", field).Msg("resolve failed")
		out = nil
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("write response")
	}
}
