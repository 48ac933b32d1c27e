package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/fjod/go_cart/checkout-pipeline/internal/service"
)

const maxRequestBodySize = 1 << 20 // 1MB

type CheckoutService interface {
	Begin(ctx context.Context, credential, userID string) (*service.Checkout, error)
	Get(credential, userID string) (*service.Checkout, error)
	Abandon(credential, userID string) error
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type SelectPaymentRequestDTO struct {
	PaymentMethod string `json:"payment_method"`
}

type CartItemDTO struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type PricingDTO struct {
	Subtotal    string `json:"subtotal"`
	ShippingFee string `json:"shipping_fee"`
	Tax         string `json:"tax"`
	Surcharge   string `json:"surcharge"`
	Total       string `json:"total"`
}

type CheckoutResponseDTO struct {
	CheckoutID      string                  `json:"checkout_id"`
	Step            string                  `json:"step"`
	Items           []CartItemDTO           `json:"items"`
	Shipping        *domain.ShippingInfo    `json:"shipping,omitempty"`
	PaymentMethod   string                  `json:"payment_method,omitempty"`
	Pricing         PricingDTO              `json:"pricing"`
	Submission      string                  `json:"submission_state"`
	SubmissionError *domain.SubmissionError `json:"submission_error,omitempty"`
	FieldErrors     map[string]string       `json:"field_errors,omitempty"`
	OrderID         string                  `json:"order_id,omitempty"`
	UpdatedAt       string                  `json:"updated_at"`
}

func convertSession(s domain.CheckoutSession) CheckoutResponseDTO {
	items := make([]CartItemDTO, 0, len(s.Cart.Items))
	for _, item := range s.Cart.Items {
		items = append(items, CartItemDTO{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal().StringFixed(2),
		})
	}

	dto := CheckoutResponseDTO{
		CheckoutID: s.ID,
		Step:       s.Step.String(),
		Items:      items,
		Shipping:   s.Shipping,
		Pricing: PricingDTO{
			Subtotal:    s.Pricing.Subtotal.StringFixed(2),
			ShippingFee: s.Pricing.ShippingFee.StringFixed(2),
			Tax:         s.Pricing.Tax.StringFixed(2),
			Surcharge:   s.Pricing.Surcharge.StringFixed(2),
			Total:       s.Pricing.Total.StringFixed(2),
		},
		Submission:      string(s.Submission),
		SubmissionError: s.SubmissionError,
		FieldErrors:     s.FieldErrors,
		UpdatedAt:       s.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if s.PaymentMethod != nil {
		dto.PaymentMethod = s.PaymentMethod.String()
	}
	if s.OrderID != nil {
		dto.OrderID = *s.OrderID
	}
	return dto
}

// POST /api/v1/checkout
func (h *CheckoutHandler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	c, err := h.checkout.Begin(ctx, getCredentialFromContext(r.Context()), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, convertSession(c.View()))
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	c, ok := h.active(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, convertSession(c.View()))
}

// POST /api/v1/checkout/shipping
func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	c, ok := h.active(w, r)
	if !ok {
		return
	}

	var req domain.ShippingInfo
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	view, err := c.SubmitShipping(req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertSession(view))
}

// POST /api/v1/checkout/payment
func (h *CheckoutHandler) SelectPayment(w http.ResponseWriter, r *http.Request) {
	c, ok := h.active(w, r)
	if !ok {
		return
	}

	var req SelectPaymentRequestDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// an unknown name is treated like no selection
	method, parseErr := domain.ParsePaymentMethod(req.PaymentMethod)
	view, err := c.SelectPayment(method)
	if err != nil {
		if parseErr != nil && errors.Is(err, service.ErrPaymentMethodRequired) {
			respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:   err.Error(),
				Code:    "payment_method_required",
				Details: map[string]string{"payment_method": parseErr.Error()},
			})
			return
		}
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertSession(view))
}

// POST /api/v1/checkout/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	c, ok := h.active(w, r)
	if !ok {
		return
	}

	view, err := c.Back()
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertSession(view))
}

// POST /api/v1/checkout/place-order
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	c, ok := h.active(w, r)
	if !ok {
		return
	}

	view, err := c.PlaceOrder(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertSession(view))
}

// DELETE /api/v1/checkout
func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	if err := h.checkout.Abandon(getCredentialFromContext(r.Context()), userID); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) active(w http.ResponseWriter, r *http.Request) (*service.Checkout, bool) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return nil, false
	}
	c, err := h.checkout.Get(getCredentialFromContext(r.Context()), userID)
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return c, true
}
