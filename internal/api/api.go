// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openpipe-labs/flowpulse/internal/dashboard"
)

// Pinger reports whether the backing event store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config contains HTTP API server configuration.
type Config struct {
	Address        string
	RateLimitPerIP int // requests per minute, per client IP
	Verbose        bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 300
	}
}

// Server is the HTTP API server.
type Server struct {
	config  *Config
	handler *Handler
	pinger  Pinger
	log     *slog.Logger
	server  *http.Server
}

// New creates a new API server. cache and pinger may be nil.
func New(cfg *Config, svc *dashboard.Service, cache CacheClearer, pinger Pinger, log *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("dashboard service is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:  cfg,
		handler: NewHandler(svc, cache, log),
		pinger:  pinger,
		log:     log,
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.log.Info("http api listening", "address", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down http api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}
