package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alinaaved/snippet-review/internal/config"
	"github.com/alinaaved/snippet-review/internal/logger"
)

// NewRouter собирает chi-роутер со всеми маршрутами /api
func NewRouter(h *Handler, cors config.CORSConfig, log *logger.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(log))
	r.Use(middleware.Recoverer)
	r.Use(CORS(cors))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/stats", h.Stats)

		r.Get("/codes", h.ListCodes)
		r.Post("/codes", h.AddCode)
		r.Post("/codes/bulk", h.AddCodesBulk)
		r.Get("/codes/random", h.RandomCode)
		r.Get("/codes/{id}/can-review", h.CanReview)

		r.Get("/reviews", h.ListReviews)
		r.Post("/reviews", h.SubmitReview)
		r.Get("/reviews/export", h.ExportReviews)
	})
	return r
}
