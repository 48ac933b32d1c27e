package http

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
)

type MockIdentity struct {
	users map[string]string // credential -> user id
}

func (m *MockIdentity) CurrentUser(_ context.Context, credential string) (*domain.User, error) {
	id, ok := m.users[credential]
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return &domain.User{ID: id}, nil
}

type MockCart struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
}

func (m *MockCart) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[userID]; ok {
		return c, nil
	}
	return &domain.Cart{}, nil
}

func (m *MockCart) ClearCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

type MockOrders struct {
	err error
}

func (m *MockOrders) SubmitOrder(_ context.Context, _ *domain.OrderRequest) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "order-1", nil
}

type MockLoyalty struct{}

func (MockLoyalty) AwardPoints(context.Context, domain.LoyaltyAward) error {
	return errors.New("loyalty offline")
}
