// Package router provides HTTP routing configuration using Chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remotemaster/trustengine/internal/api/handler"
	"github.com/remotemaster/trustengine/internal/api/middleware"
)

// Handlers bundles the wired request handlers.
type Handlers struct {
	Health *handler.HealthHandler
	Cert   *handler.CertHandler
	CRL    *handler.CRLHandler
	Token  *handler.TokenHandler
}

// New creates a new Chi router with all routes configured.
func New(h Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CORS)

	// Health endpoints
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		// Certificate operations
		r.Route("/certs", func(r chi.Router) {
			r.Post("/issue", h.Cert.Issue)
			r.Post("/{serial}/revoke", h.Cert.Revoke)
		})

		// CRL operations
		r.Route("/crl", func(r chi.Router) {
			r.Post("/generate", h.CRL.Generate)
			r.Get("/", h.CRL.Get)
			r.Get("/metadata", h.CRL.Metadata)
		})

		// Session token operations
		r.Route("/tokens", func(r chi.Router) {
			r.Post("/issue", h.Token.Issue)
			r.Post("/refresh", h.Token.Refresh)
			r.Post("/revoke", h.Token.RevokeAll)
			r.Post("/validate", h.Token.Validate)
		})
	})

	return r
}
