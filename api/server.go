/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. Auth:       Bearer token -> CallerContext (all routes except
                 hotel registration and the billing webhook)

ROUTE GROUPS:
  /api/requests/*         Service request lifecycle
  /api/staff/*            Workload listing
  /api/hotels, /rooms,
  /api/services, /users   Tenant onboarding
  /api/events             Audit trail
  /api/webhooks/billing   Gateway notifications (no auth)

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Auth and role gating
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, jwtSecret []byte) *chi.Mux {
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
		// Unauthenticated: onboarding entry point and gateway callback.
		r.Post("/hotels", h.CreateHotel)
		r.Post("/webhooks/billing", h.BillingWebhook)

		// Everything else requires a caller identity.
		r.Group(func(r chi.Router) {
			r.Use(Auth(jwtSecret))

			// Request routes
			r.Route("/requests", func(r chi.Router) {
				r.Post("/", h.CreateRequest)
				r.Get("/{id}", h.GetRequest)
				r.With(RequireStaff).Get("/", h.ListRequests)
				r.With(RequireStaff).Post("/{id}/assign", h.AssignRequest)
				r.With(RequireStaff).Post("/{id}/reassign", h.ReassignRequest)
				r.With(RequireStaff).Put("/{id}/status", h.UpdateStatus)
				r.With(RequireStaff).Post("/bulk", h.BulkApply)
			})

			// Staff routes
			r.Route("/staff", func(r chi.Router) {
				r.With(RequireStaff).Get("/availability", h.StaffAvailability)
			})

			// Onboarding routes
			r.With(RequireAdmin).Get("/hotels/{id}", h.GetHotel)
			r.With(RequireAdmin).Post("/rooms", h.CreateRoom)
			r.With(RequireAdmin).Post("/services", h.CreateService)
			r.Get("/services", h.ListServices)
			r.With(RequireAdmin).Post("/users", h.CreateUser)

			// Analytics routes
			r.With(RequireAdmin).Get("/events", h.ListEvents)
		})
	})

	return r
}
