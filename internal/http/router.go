package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter wires the checkout API, health and metrics endpoints.
func NewRouter(h *CheckoutHandler, metricsHandler http.Handler, logger zerolog.Logger, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(AuthMiddleware)
		r.Post("/", h.BeginCheckout)
		r.Get("/", h.GetCheckout)
		r.Delete("/", h.Abandon)
		r.Post("/shipping", h.SubmitShipping)
		r.Post("/payment", h.SelectPayment)
		r.Post("/back", h.Back)
		r.Post("/place-order", h.PlaceOrder)
	})

	return otelhttp.NewHandler(r, "checkout-api")
}
