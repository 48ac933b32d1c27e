package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/checkout-pipeline/internal/clients"
	"github.com/fjod/go_cart/checkout-pipeline/internal/service"
	"github.com/rs/zerolog/log"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps checkout errors to HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error) {
	var (
		shippingErr  *service.ShippingError
		transportErr *clients.TransportError
	)
	switch {
	case errors.As(err, &shippingErr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   service.ErrInvalidShipping.Error(),
			Code:    "invalid_shipping",
			Details: shippingErr.Fields,
		})
	case errors.Is(err, service.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "unauthenticated", "sign in to continue")
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, service.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, service.ErrPaymentMethodRequired):
		respondError(w, http.StatusUnprocessableEntity, "payment_method_required", err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrInvalidCart):
		respondError(w, http.StatusBadGateway, "invalid_cart", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "upstream request timed out")
	case errors.As(err, &transportErr):
		respondError(w, http.StatusBadGateway, "upstream_unavailable", transportErr.Service+" is unavailable")
	default:
		log.Error().Err(err).Msg("unhandled checkout error")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
