package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderRequest is the immutable snapshot sent to the order service.
type OrderRequest struct {
	IdempotencyKey string           `json:"idempotency_key"`
	UserID         string           `json:"user_id"`
	Items          []OrderItem      `json:"items"`
	Shipping       ShippingInfo     `json:"shipping"`
	PaymentMethod  PaymentMethod    `json:"payment_method"`
	Pricing        PricingBreakdown `json:"pricing"`
	PlacedAt       time.Time        `json:"placed_at"`
}

// LoyaltyAward is a point accrual request for a confirmed order.
type LoyaltyAward struct {
	UserID        string `json:"user_id"`
	Points        int64  `json:"points"`
	SourceOrderID string `json:"source_order_id"`
}

// PointsForTotal is floor(total * 10).
func PointsForTotal(total decimal.Decimal) int64 {
	return total.Mul(decimal.NewFromInt(10)).Floor().IntPart()
}
