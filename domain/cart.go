package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CartItem is a cart line with the price and stock captured when the cart was fetched.
type CartItem struct {
	ProductID    int64           `json:"product_id"`
	Title        string          `json:"title"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	StockAtFetch int             `json:"stock_at_fetch"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is a point-in-time snapshot of the user's remote cart.
type Cart struct {
	Items []CartItem `json:"items"`
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range c.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}

// Clone returns a copy that does not share the items slice.
func (c Cart) Clone() Cart {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items}
}

// InvalidCartItemError reports a cart line that breaks the cart item rules:
// unit price >= 0, quantity >= 1, stock at fetch >= 0.
type InvalidCartItemError struct {
	ProductID int64
	Reason    string
}

func (e *InvalidCartItemError) Error() string {
	return fmt.Sprintf("invalid cart item %d: %s", e.ProductID, e.Reason)
}

func (i CartItem) Validate() error {
	switch {
	case i.UnitPrice.IsNegative():
		return &InvalidCartItemError{ProductID: i.ProductID, Reason: "unit price " + i.UnitPrice.String() + " is negative"}
	case i.Quantity < 1:
		return &InvalidCartItemError{ProductID: i.ProductID, Reason: fmt.Sprintf("quantity %d is below 1", i.Quantity)}
	case i.StockAtFetch < 0:
		return &InvalidCartItemError{ProductID: i.ProductID, Reason: fmt.Sprintf("stock %d is negative", i.StockAtFetch)}
	}
	return nil
}

// Validate returns the first invalid line, if any.
func (c Cart) Validate() error {
	for _, item := range c.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}
