package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter builds the service API. The request timeout does not apply to
// the process route: a batch run outlives any reasonable request budget.
func NewRouter(h *Handler, logger *slog.Logger, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/abandoned-carts/process", h.Process)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Get("/abandoned-carts", h.ListRecords)
			r.Get("/abandoned-carts/{cartId}", h.GetRecord)

			r.Get("/configuration", h.GetConfiguration)
			r.Put("/configuration", h.PutConfiguration)

			r.Get("/service-administration", h.GetAdministration)
			r.Put("/service-administration", h.PutAdministration)

			r.Get("/runs", h.RecentRuns)
			r.Get("/runs/latest", h.LatestRun)
		})
	})

	return otelhttp.NewHandler(r, "abandoned-cart-service")
}
