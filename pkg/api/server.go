// Package api exposes the run store over REST.
//
// All routes live under /api/v1 and require an X-API-Key header; the
// Prometheus scrape endpoint at /metrics is unauthenticated. Run IDs
// contain slashes, so they travel path-escaped in URLs.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the route tree for a server.
func NewRouter(server *Server) chi.Router {
	metrics := server.metrics

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.Handler())

	// API key authentication middleware for protected routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(server.config.APIKey)))

		// Health check
		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))

		// Run operations
		r.Put("/runs/{id}", metrics.InstrumentHandler("PUT", "/api/v1/runs/{id}", server.handleRecord))
		r.Get("/runs/{id}", metrics.InstrumentHandler("GET", "/api/v1/runs/{id}", server.handleShow))
		r.Delete("/runs/{id}", metrics.InstrumentHandler("DELETE", "/api/v1/runs/{id}", server.handleForget))
		r.Get("/runs", metrics.InstrumentHandler("GET", "/api/v1/runs", server.handleListRuns))
		r.Get("/runs/{id}/state", metrics.InstrumentHandler("GET", "/api/v1/runs/{id}/state", server.handleState))
		r.Post("/runs/{id}/pin", metrics.InstrumentHandler("POST", "/api/v1/runs/{id}/pin", server.handlePin))

		// Lineage
		r.Post("/links", metrics.InstrumentHandler("POST", "/api/v1/links", server.handleCreateLink))
		r.Delete("/links", metrics.InstrumentHandler("DELETE", "/api/v1/links", server.handleDeleteLink))
		r.Get("/links", metrics.InstrumentHandler("GET", "/api/v1/links", server.handleGetLinks))

		// Diagnostics
		r.Get("/explain", metrics.InstrumentHandler("GET", "/api/v1/explain", server.handleExplain))
		r.Get("/stats", metrics.InstrumentHandler("GET", "/api/v1/stats", server.handleStats))
	})

	return r
}

// StartServer runs the HTTP server until it fails. It blocks.
func StartServer(server *Server) error {
	r := NewRouter(server)

	// Start background metrics updater
	go server.startMetricsUpdater()

	addr := fmt.Sprintf("%s:%d", server.config.Bind, server.config.Port)
	fmt.Printf("Starting muninn REST API server on %s\n", addr)
	fmt.Printf("Metrics available at: http://%s/metrics\n", addr)
	return http.ListenAndServe(addr, r)
}
