package clients

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/shopspring/decimal"
)

type CartClient struct{ c *Client }

func NewCartClient(c *Client) *CartClient { return &CartClient{c: c} }

type cartItemDTO struct {
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Stock     int             `json:"stock"`
}

type cartDTO struct {
	Items []cartItemDTO `json:"items"`
}

func cartPath(userID string) string {
	return "/api/v1/users/" + url.PathEscape(userID) + "/cart"
}

// GetCart returns an empty cart when the cart service has no cart for the user.
func (cc *CartClient) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	resp, err := cc.c.Do(ctx, http.MethodGet, cartPath(userID), nil, nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var dto cartDTO
		if err := decodeJSON(resp, &dto); err != nil {
			return nil, &TransportError{Service: cc.c.Name, Err: err}
		}
		return toDomainCart(dto.Items), nil
	case http.StatusNotFound:
		drain(resp)
		return &domain.Cart{}, nil
	default:
		drain(resp)
		return nil, &TransportError{Service: cc.c.Name, StatusCode: resp.StatusCode}
	}
}

func (cc *CartClient) ClearCart(ctx context.Context, userID string) error {
	resp, err := cc.c.Do(ctx, http.MethodDelete, cartPath(userID), nil, nil)
	if err != nil {
		return err
	}
	drain(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return &TransportError{Service: cc.c.Name, StatusCode: resp.StatusCode}
	}
}

func toDomainCart(items []cartItemDTO) *domain.Cart {
	cart := &domain.Cart{Items: make([]domain.CartItem, 0, len(items))}
	for _, it := range items {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:    it.ProductID,
			Title:        it.Title,
			UnitPrice:    it.UnitPrice,
			Quantity:     it.Quantity,
			StockAtFetch: it.Stock,
		})
	}
	return cart
}
