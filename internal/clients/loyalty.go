package clients

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
)

type LoyaltyClient struct{ c *Client }

func NewLoyaltyClient(c *Client) *LoyaltyClient { return &LoyaltyClient{c: c} }

// AwardPoints is keyed by the source order id; a 409 means the award already exists.
func (lc *LoyaltyClient) AwardPoints(ctx context.Context, award domain.LoyaltyAward) error {
	headers := http.Header{}
	headers.Set(HeaderIdempotencyKey, award.SourceOrderID)

	resp, err := lc.c.Do(ctx, http.MethodPost, "/api/v1/loyalty/awards", headers, award)
	if err != nil {
		return err
	}
	drain(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent, http.StatusConflict:
		return nil
	default:
		return &TransportError{Service: lc.c.Name, StatusCode: resp.StatusCode}
	}
}
