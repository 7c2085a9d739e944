// Package api serves the stats service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/osker/internal/adapters/http/swagger"
	"github.com/okian/osker/internal/adapters/repository"
	service "github.com/okian/osker/internal/app"
	"github.com/okian/osker/internal/domain/aggregate"
	"github.com/okian/osker/internal/domain/calc"
	"github.com/okian/osker/internal/domain/model"
	"github.com/okian/osker/internal/domain/rank"
	"github.com/okian/osker/pkg/logger"
	"github.com/okian/osker/pkg/metrics"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	Player(ctx context.Context, name string) (model.Player, error)
	Average(ctx context.Context, r rank.Rank) (model.Player, error)
	Averages(ctx context.Context) []model.Player
	Leaderboard(ctx context.Context, n int) ([]repository.Entry, error)
	Compare(ctx context.Context, names []string) ([]model.Player, error)
	ComputeMetric(p model.Player, kind calc.Kind) float64
	RefreshFromSource(ctx context.Context) (aggregate.Result, error)
	Snapshot(ctx context.Context) *repository.Snapshot
	Stats(ctx context.Context) service.Stats
}

var _ Dependencies = (*service.Service)(nil)

// Server wires HTTP routes for the stats API.
type Server struct {
	deps         Dependencies
	logger       logger.Logger
	rateLimit    int
	corsOrigins  []string
	defaultLimit int
	refreshWait  time.Duration
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:         deps,
		rateLimit:    600,
		corsOrigins:  []string{"*"},
		defaultLimit: 50,
		refreshWait:  5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Router builds the chi router with every route and the global middleware.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.With(MetricsMiddleware("healthz")).Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	swagger.Register(r)

	r.Route("/api/v1", func(r chi.Router) {
		if s.rateLimit > 0 {
			r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))
		}
		r.With(MetricsMiddleware("stats")).Get("/stats", s.handleStats)
		r.With(MetricsMiddleware("leaderboard")).Get("/players", s.handleLeaderboard)
		r.With(MetricsMiddleware("player")).Get("/players/{name}", s.handlePlayer)
		r.With(MetricsMiddleware("metric")).Get("/players/{name}/metrics/{metric}", s.handleMetric)
		r.With(MetricsMiddleware("averages")).Get("/averages", s.handleAverages)
		r.With(MetricsMiddleware("average")).Get("/averages/{rank}", s.handleAverage)
		r.With(MetricsMiddleware("calc")).Get("/calc", s.handleCalc)
		r.With(MetricsMiddleware("compare")).Get("/compare", s.handleCompare)
		r.With(MetricsMiddleware("refresh")).Post("/refresh", s.handleRefresh)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and logs server-side failures.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}
