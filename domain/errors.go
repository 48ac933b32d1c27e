package domain

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned by the identity provider when the credential is missing,
// expired or does not belong to the requested user.
var ErrUnauthenticated = errors.New("unauthenticated")

// OrderValidationError is a rejection by the order service of the submitted snapshot,
// e.g. a price or stock change since the cart was fetched. UpdatedItems, when present,
// is the order service's view of the current cart.
type OrderValidationError struct {
	Reason       string
	UpdatedItems []CartItem
}

func (e *OrderValidationError) Error() string {
	return fmt.Sprintf("order rejected: %s", e.Reason)
}

// DuplicateOrderError means an order already exists for the idempotency key.
type DuplicateOrderError struct {
	OrderID string
}

func (e *DuplicateOrderError) Error() string {
	if e.OrderID == "" {
		return "order already submitted for this idempotency key"
	}
	return fmt.Sprintf("order %s already submitted for this idempotency key", e.OrderID)
}
