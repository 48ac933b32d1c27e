// Package pricing computes the price breakdown of a cart. It has no side effects.
package pricing

import (
	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/fjod/go_cart/checkout-pipeline/internal/config"
	"github.com/shopspring/decimal"
)

type Engine struct {
	rules config.PricingRules
}

func NewEngine(rules config.PricingRules) *Engine {
	return &Engine{rules: rules}
}

// Compute applies, in order: subtotal, shipping fee, tax, payment surcharge, total.
// Free shipping needs a subtotal strictly above the threshold.
func (e *Engine) Compute(cart domain.Cart, method domain.PaymentMethod) domain.PricingBreakdown {
	subtotal := cart.Subtotal()

	shippingFee := e.rules.BaseShippingFee
	if subtotal.GreaterThan(e.rules.FreeShippingThreshold) {
		shippingFee = decimal.Zero
	}

	// decimal.Round is half away from zero, which is half-up for non-negative amounts
	tax := subtotal.Mul(e.rules.TaxRate).Round(e.rules.MinorUnits)

	surcharge := decimal.Zero
	if method == domain.PaymentMethodCashOnDelivery {
		surcharge = e.rules.CODFee
	}

	return domain.PricingBreakdown{
		Subtotal:    subtotal,
		ShippingFee: shippingFee,
		Tax:         tax,
		Surcharge:   surcharge,
		Total:       subtotal.Add(shippingFee).Add(tax).Add(surcharge),
	}
}
