// Package api serves a read-mostly HTTP view of a broker checkpoint: the
// loaded state summary, client sessions and retained messages, plus routes
// to reload the file and write a fresh checkpoint.
package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the HTTP routes. gatherer backs /metrics; nil means the
// default registry.
func (s *Server) Router(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", instrument(s.metrics, "GET", "/api/v1/health", s.handleHealth))
		r.Get("/state", instrument(s.metrics, "GET", "/api/v1/state", s.handleState))
		r.Get("/clients", instrument(s.metrics, "GET", "/api/v1/clients", s.handleListClients))
		r.Get("/clients/{id}", instrument(s.metrics, "GET", "/api/v1/clients/{id}", s.handleGetClient))
		r.Get("/retained", instrument(s.metrics, "GET", "/api/v1/retained", s.handleRetained))

		r.Group(func(r chi.Router) {
			if s.config.APIKey != "" {
				r.Use(apiKeyMiddleware(s.config.APIKey))
			}
			r.Post("/checkpoint", instrument(s.metrics, "POST", "/api/v1/checkpoint", s.handleCheckpoint))
			r.Post("/reload", instrument(s.metrics, "POST", "/api/v1/reload", s.handleReload))
		})
	})

	return r
}

// Addr returns the listen address from the config
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Bind, strconv.Itoa(s.config.Port))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, gatherer prometheus.Gatherer) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Router(gatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", srv.Addr).Info("starting brokerdb API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
