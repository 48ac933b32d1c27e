package domain

import "github.com/shopspring/decimal"

// PricingBreakdown is recomputed whenever the cart or the payment method changes.
// Total is always Subtotal + ShippingFee + Tax + Surcharge.
type PricingBreakdown struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Surcharge   decimal.Decimal `json:"surcharge"`
	Total       decimal.Decimal `json:"total"`
}
