package clients

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
)

type IdentityClient struct{ c *Client }

func NewIdentityClient(c *Client) *IdentityClient { return &IdentityClient{c: c} }

func (ic *IdentityClient) CurrentUser(ctx context.Context, credential string) (*domain.User, error) {
	if credential == "" {
		return nil, domain.ErrUnauthenticated
	}
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+credential)

	resp, err := ic.c.Do(ctx, http.MethodGet, "/api/v1/me", headers, nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var user domain.User
		if err := decodeJSON(resp, &user); err != nil {
			return nil, &TransportError{Service: ic.c.Name, Err: err}
		}
		if user.ID == "" {
			return nil, domain.ErrUnauthenticated
		}
		return &user, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		drain(resp)
		return nil, domain.ErrUnauthenticated
	default:
		drain(resp)
		return nil, &TransportError{Service: ic.c.Name, StatusCode: resp.StatusCode}
	}
}
