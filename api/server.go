/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/pricing/configurations/*   Quote/policy lifecycle
  /api/claims/*                   Claim validation and accumulators

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Pricing routes
		r.Route("/pricing/configurations", func(r chi.Router) {
			r.Get("/", h.ListConfigurations)
			r.Post("/", h.CreateConfiguration)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetConfiguration)

				r.Get("/benefits", h.ListBenefits)
				r.Post("/benefits", h.ToggleBenefit)
				r.Post("/benefits/override", h.OverrideBenefitLimit)

				r.Get("/factors", h.ListFactors)
				r.Post("/factors", h.UpdateFactor)
				r.Get("/factors/{code}/options", h.ListFactorOptions)

				r.Get("/members", h.ListMembers)
				r.Post("/members", h.AddMember)
				r.Post("/members/import", h.ImportMembers)
				r.Delete("/members/{memberID}", h.TerminateMember)

				r.Post("/calculate", h.CalculatePremium)
				r.Get("/calculations/history", h.GetCalculationHistory)

				r.Post("/submit", h.Submit)
				r.Post("/approve", h.Approve)
				r.Post("/reject", h.Reject)
				r.Post("/revision", h.RequestRevision)
				r.Get("/approvals", h.GetApprovals)

				r.Get("/quote", h.GetQuoteDocument)
			})
		})

		// Claims routes
		r.Route("/claims", func(r chi.Router) {
			r.Post("/validate", h.ValidateClaim)
			r.Post("/accumulate", h.Accumulate)
		})
	})

	return r
}
