/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions. This
  is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the warehouse frontend

ROUTE GROUPS:
  /api/materials/*      Material catalog, stock-in, lots, ledger, availability
  /api/reservations/*   PlanAndReserve and the release/deliver/cancel transitions

SECURITY NOTE:
  No authentication middleware. Authorization is handled upstream by the
  deployment's gateway.

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

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Material routes
		r.Route("/materials", func(r chi.Router) {
			r.Get("/", h.ListMaterials)
			r.Post("/", h.CreateMaterial)
			r.Get("/{id}", h.GetMaterial)
			r.Post("/{id}/shades", h.ActivateShade)
			r.Get("/{id}/lots", h.ListLots)
			r.Post("/{id}/lots", h.AddStock)
			r.Get("/{id}/ledger", h.ListLedger)
			r.Get("/{id}/availability", h.CheckAvailability)
		})

		// Reservation routes
		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", h.ListReservations)
			r.Post("/", h.Reserve)
			r.Post("/{id}/release", h.ReleaseReservation)
			r.Post("/{id}/deliver", h.DeliverReservation)
			r.Post("/{id}/cancel", h.CancelReservation)
		})
	})

	return r
}
