/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the admin frontend

SECURITY NOTE:
  Authentication and authorization live in front of this service; all
  endpoints here trust the caller. The ledgers only ever see stable
  teacher/student identifiers.

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

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Payroll
		r.Route("/teachers/{id}", func(r chi.Router) {
			r.Post("/hour-requests", h.SubmitHourRequest)
			r.Get("/hour-requests/{year}/{month}", h.ListHourRequestsInPeriod)
			r.Post("/salary-configurations", h.CreateSalaryConfig)
			r.Get("/salary-configurations", h.ListSalaryConfigs)
			r.Get("/payroll/{year}/{month}", h.GetMonthlyPayrollRecord)
		})

		r.Route("/hour-requests", func(r chi.Router) {
			r.Get("/pending", h.ListPendingHourRequests)
			r.Post("/{id}/review", h.ReviewHourRequest)
		})

		// Billing
		r.Route("/students/{id}", func(r chi.Router) {
			r.Put("/installments/{year}/{month}", h.GetOrCreateInstallment)
			r.Get("/installments", h.ListInstallments)
			r.Post("/discounts", h.ApplyDiscount)
			r.Get("/outstanding", h.GetOutstandingBalance)
		})

		r.Route("/installments/{id}", func(r chi.Router) {
			r.Get("/", h.GetInstallment)
			r.Post("/payments", h.RecordPayment)
			r.Get("/payments", h.ListPayments)
		})

		r.Post("/discounts/{id}/cancel", h.CancelDiscount)
	})

	return r
}
