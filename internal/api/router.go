package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tilerealm.gg/internal/sim/zone"
)

// RouterConfig carries the router's dependencies. NewRouter is pure: no
// goroutines, no listeners, safe under httptest.
type RouterConfig struct {
	Zone *zone.Zone

	// WSHandler serves the realtime endpoint. Split out so router tests
	// do not need a live websocket transport.
	WSHandler http.Handler

	// CORSOrigins defaults to localhost patterns when nil.
	CORSOrigins []string

	DisableLogging bool
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	if cfg.WSHandler != nil {
		r.Handle("/ws", cfg.WSHandler)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/debug/zone", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cfg.Zone.Metrics())
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
