package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/tradebooks/internal/http/document"
	"github.com/MrJamesThe3rd/tradebooks/internal/http/importcsv"
	"github.com/MrJamesThe3rd/tradebooks/internal/http/inventory"
)

type Options struct {
	AllowedOrigins []string
	Timeout        time.Duration
}

func New(
	opts Options,
	documentsV1 *document.Handler,
	inventoryV1 *inventory.Handler,
	importV1 *importcsv.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			documentsV1.Routes(r)
		})

		r.Route("/totals", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			documentsV1.TotalsRoutes(r)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			inventoryV1.Routes(r)
		})

		r.Route("/line-items/import", importV1.Routes)
	})

	return router
}
