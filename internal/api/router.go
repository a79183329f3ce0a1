package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openpipe-labs/flowpulse/internal/api/middleware"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)

	// Global middleware
	r.Use(middleware.RequestLogger(s.log, s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer(s.log))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ipLimiter))

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/health", s.handler.Health)
			r.Get("/trends", s.handler.Trends)
			r.Get("/errors/runtimes", s.handler.ErrorRuntimes)
			r.Get("/errors/processors", s.handler.ErrorProcessors)
			r.Get("/errors/logs", s.handler.ErrorLogs)
			r.Get("/errors/timerange", s.handler.ErrorTimeRange)
			r.Get("/bottlenecks", s.handler.Bottlenecks)
			r.Get("/heatmap", s.handler.Heatmap)
			r.Get("/heatmap/runtimes", s.handler.HeatmapRuntimes)
			r.Get("/runtimes", s.handler.RuntimeInventory)
		})

		r.Get("/runtimes", s.handler.ListRuntimes)
		r.Post("/cache/clear", s.handler.ClearCache)
	})

	// Liveness probe with a store reachability check (no rate limit)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if s.pinger != nil {
			if err := s.pinger.Ping(r.Context()); err != nil {
				JSONError(w, &Error{
					Code:    ErrCodeInternalError,
					Message: "event store unreachable",
					Status:  http.StatusServiceUnavailable,
				})
				return
			}
		}
		OK(w, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
