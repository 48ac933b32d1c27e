package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("test", srv.URL, 2*time.Second, BreakerSettings{FailThreshold: 2, OpenTimeout: time.Minute}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// --- identity ---

func TestCurrentUser_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/me", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, domain.User{ID: "u-1", Email: "u1@example.com"})
	})

	user, err := NewIdentityClient(c).CurrentUser(context.Background(), "token-1")

	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
}

func TestCurrentUser_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := NewIdentityClient(c).CurrentUser(context.Background(), "expired")

	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestCurrentUser_EmptyCredential(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := NewIdentityClient(c).CurrentUser(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Zero(t, calls.Load())
}

// --- cart ---

func TestGetCart_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/users/u-1/cart", r.URL.Path)
		_, _ = w.Write([]byte(`{"items":[{"product_id":7,"title":"Kettle","unit_price":"30.00","quantity":2,"stock":5}]}`))
	})

	cart, err := NewCartClient(c).GetCart(context.Background(), "u-1")

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(7), cart.Items[0].ProductID)
	assert.True(t, cart.Items[0].UnitPrice.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 5, cart.Items[0].StockAtFetch)
}

func TestGetCart_NotFoundIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	cart, err := NewCartClient(c).GetCart(context.Background(), "u-1")

	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestClearCart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, NewCartClient(c).ClearCart(context.Background(), "u-1"))
}

// --- order ---

func orderRequest() *domain.OrderRequest {
	return &domain.OrderRequest{
		IdempotencyKey: "idem-1",
		UserID:         "u-1",
		Items:          []domain.OrderItem{{ProductID: 7, Quantity: 2, UnitPrice: decimal.NewFromInt(30)}},
		PaymentMethod:  domain.PaymentMethodCard,
	}
}

func TestSubmitOrder_Created(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "idem-1", r.Header.Get(HeaderIdempotencyKey))
		var body domain.OrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u-1", body.UserID)
		writeJSON(w, http.StatusCreated, map[string]string{"order_id": "ord-1"})
	})

	id, err := NewOrderClient(c).SubmitOrder(context.Background(), orderRequest())

	require.NoError(t, err)
	assert.Equal(t, "ord-1", id)
}

func TestSubmitOrder_Conflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"order_id": "ord-1"})
	})

	_, err := NewOrderClient(c).SubmitOrder(context.Background(), orderRequest())

	var dup *domain.DuplicateOrderError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "ord-1", dup.OrderID)
}

func TestSubmitOrder_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"reason": "price of Kettle changed",
			"updated_items": []map[string]any{
				{"product_id": 7, "title": "Kettle", "unit_price": 32.5, "quantity": 2, "stock": 4},
			},
		})
	})

	_, err := NewOrderClient(c).SubmitOrder(context.Background(), orderRequest())

	var verr *domain.OrderValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "price of Kettle changed", verr.Reason)
	require.Len(t, verr.UpdatedItems, 1)
	assert.True(t, verr.UpdatedItems[0].UnitPrice.Equal(decimal.RequireFromString("32.5")))
}

func TestSubmitOrder_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := NewOrderClient(c).SubmitOrder(context.Background(), orderRequest())

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
}

func TestSubmitOrder_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewOrderClient(c).SubmitOrder(ctx, orderRequest())

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	orders := NewOrderClient(c)

	for i := 0; i < 2; i++ {
		_, err := orders.SubmitOrder(context.Background(), orderRequest())
		require.Error(t, err)
	}
	_, err := orders.SubmitOrder(context.Background(), orderRequest())

	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}

// --- loyalty ---

func TestAwardPoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ord-1", r.Header.Get(HeaderIdempotencyKey))
		var award domain.LoyaltyAward
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&award))
		assert.Equal(t, int64(690), award.Points)
		w.WriteHeader(http.StatusAccepted)
	})

	err := NewLoyaltyClient(c).AwardPoints(context.Background(), domain.LoyaltyAward{UserID: "u-1", Points: 690, SourceOrderID: "ord-1"})

	assert.NoError(t, err)
}

func TestAwardPoints_AlreadyAwarded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	err := NewLoyaltyClient(c).AwardPoints(context.Background(), domain.LoyaltyAward{SourceOrderID: "ord-1"})

	assert.NoError(t, err)
}
