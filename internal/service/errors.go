package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/fjod/go_cart/checkout-pipeline/internal/validation"
)

var (
	ErrEmptyCart             = errors.New("cart is empty, nothing to checkout")
	ErrUnauthenticated       = domain.ErrUnauthenticated
	ErrIllegalTransition     = errors.New("illegal transition of checkout step")
	ErrPaymentMethodRequired = errors.New("a payment method must be selected")
	ErrInvalidShipping       = errors.New("shipping information is invalid")
	ErrSessionNotFound       = errors.New("checkout session not found")
	ErrInvalidCart           = errors.New("cart service returned an invalid cart")
)

// ShippingError carries the per-field messages of a rejected SubmitShipping.
type ShippingError struct {
	Fields validation.FieldErrors
}

func (e *ShippingError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s", ErrInvalidShipping, strings.Join(names, ", "))
}

func (e *ShippingError) Unwrap() error {
	return ErrInvalidShipping
}

func illegal(action string, step domain.CheckoutStep) error {
	if step.IsTerminal() {
		return fmt.Errorf("%w: checkout is already %s", ErrIllegalTransition, step)
	}
	return fmt.Errorf("%w: cannot %s while in %s", ErrIllegalTransition, action, step)
}
