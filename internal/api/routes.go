package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes. Everything under /decision is
// behind signature verification; health is open.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/decision", func(r chi.Router) {
		r.Use(h.RequireOAuth)

		r.Post("/create", h.Create)
		r.Post("/configure/save", h.Configure)
		r.Put("/configure/save", h.Configure)
		r.Post("/notify", h.Notify)
		r.Get("/status", h.Status)
		r.Delete("/delete", h.Delete)
		r.Get("/instances", h.Instances)
	})

	return r
}
