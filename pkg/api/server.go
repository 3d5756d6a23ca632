// Package api exposes legacy event log parsing and the record archive over
// a REST API protected by an X-API-Key header.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the routing tree for a server. Split out of StartServer
// so tests can drive the full middleware stack without a listener.
func NewRouter(server *Server, config ServerConfig) chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
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
	r.Handle("/metrics", promhttp.Handler())

	// API key authentication middleware for protected routes
	r.Route("/api/v1", func(r chi.Router) {
		auth := apiKeyMiddleware(config.APIKey)
		if server.metrics != nil {
			r.Use(server.metrics.InstrumentAuthMiddleware(auth))
		} else {
			r.Use(auth)
		}

		// Health check
		r.Get("/health", instrument(server, "GET", "/api/v1/health", server.handleHealth))

		// Parsing
		r.Post("/parse", instrument(server, "POST", "/api/v1/parse", server.handleParse))

		// Archive
		if server.archive != nil {
			r.Get("/archive/sources", instrument(server, "GET", "/api/v1/archive/sources", server.handleListSources))
			r.Get("/archive/records", instrument(server, "GET", "/api/v1/archive/records", server.handleArchiveRecords))
		}
	})

	return r
}

func instrument(server *Server, method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if server.metrics == nil {
		return handler
	}
	return server.metrics.InstrumentHandler(method, endpoint, handler)
}

// StartServer starts the HTTP server with all routes configured
func StartServer(archiver Archiver, config ServerConfig, logger *slog.Logger) error {
	metrics := NewMetrics()
	server := NewServer(archiver, config, metrics)
	r := NewRouter(server, config)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	logger.Info("starting REST API server", "addr", addr)
	logger.Info("metrics endpoint ready", "url", fmt.Sprintf("http://%s/metrics", addr))

	return http.ListenAndServe(addr, r)
}
