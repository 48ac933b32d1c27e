package clients

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type OrderClient struct{ c *Client }

func NewOrderClient(c *Client) *OrderClient { return &OrderClient{c: c} }

type orderCreatedDTO struct {
	OrderID string `json:"order_id"`
}

type orderRejectedDTO struct {
	Reason       string        `json:"reason"`
	UpdatedItems []cartItemDTO `json:"updated_items,omitempty"`
}

// SubmitOrder posts the snapshot with the request's idempotency key.
//
//	201/200 -> order id
//	409     -> *domain.DuplicateOrderError (carries the existing order id when known)
//	400/422 -> *domain.OrderValidationError
//	other   -> *TransportError
func (oc *OrderClient) SubmitOrder(ctx context.Context, req *domain.OrderRequest) (string, error) {
	headers := http.Header{}
	headers.Set(HeaderIdempotencyKey, req.IdempotencyKey)

	resp, err := oc.c.Do(ctx, http.MethodPost, "/api/v1/orders", headers, req)
	if err != nil {
		return "", err
	}

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		var created orderCreatedDTO
		if err := decodeJSON(resp, &created); err != nil {
			return "", &TransportError{Service: oc.c.Name, Err: err}
		}
		if created.OrderID == "" {
			return "", &TransportError{Service: oc.c.Name, StatusCode: resp.StatusCode}
		}
		return created.OrderID, nil
	case http.StatusConflict:
		var existing orderCreatedDTO
		_ = decodeJSON(resp, &existing)
		return "", &domain.DuplicateOrderError{OrderID: existing.OrderID}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		var rejected orderRejectedDTO
		if err := decodeJSON(resp, &rejected); err != nil {
			return "", &domain.OrderValidationError{Reason: "order was rejected by the order service"}
		}
		verr := &domain.OrderValidationError{Reason: rejected.Reason}
		if rejected.UpdatedItems != nil {
			verr.UpdatedItems = toDomainCart(rejected.UpdatedItems).Items
		}
		return "", verr
	default:
		drain(resp)
		return "", &TransportError{Service: oc.c.Name, StatusCode: resp.StatusCode}
	}
}
