package service

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	r "github.com/fjod/go_cart/checkout-pipeline/internal/repository"
)

// MockIdentity implements IdentityProvider for testing
type MockIdentity struct {
	User *domain.User
	Err  error
}

func (m *MockIdentity) CurrentUser(_ context.Context, credential string) (*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if credential == "" {
		return nil, domain.ErrUnauthenticated
	}
	return m.User, nil
}

// MockCart implements CartService for testing
type MockCart struct {
	mu       sync.Mutex
	Cart     *domain.Cart
	GetErr   error
	ClearErr error
	Cleared  []string
	// ClearBlock, when set, holds ClearCart until it is closed.
	ClearBlock chan struct{}
}

func (m *MockCart) GetCart(_ context.Context, _ string) (*domain.Cart, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Cart, nil
}

func (m *MockCart) ClearCart(_ context.Context, userID string) error {
	if m.ClearBlock != nil {
		<-m.ClearBlock
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cleared = append(m.Cleared, userID)
	return m.ClearErr
}

func (m *MockCart) ClearedUsers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Cleared...)
}

// MockOrders implements OrderService for testing. Responses are consumed in order; once
// exhausted every call succeeds with OrderID.
type MockOrders struct {
	mu        sync.Mutex
	OrderID   string
	Responses []error
	Block     chan struct{}
	Requests  []*domain.OrderRequest
}

func (m *MockOrders) SubmitOrder(ctx context.Context, req *domain.OrderRequest) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	var err error
	if len(m.Responses) > 0 {
		err = m.Responses[0]
		m.Responses = m.Responses[1:]
	}
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return m.OrderID, nil
}

func (m *MockOrders) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// DedupOrders is an order service that creates at most one order per idempotency key and
// answers a replay with a duplicate error carrying the existing order id.
type DedupOrders struct {
	mu          sync.Mutex
	orders      map[string]string
	Calls       int
	LoseReplyOn int // 1-based call whose successful reply is lost in transit
}

func (m *DedupOrders) SubmitOrder(_ context.Context, req *domain.OrderRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.orders == nil {
		m.orders = make(map[string]string)
	}
	if id, ok := m.orders[req.IdempotencyKey]; ok {
		return "", &domain.DuplicateOrderError{OrderID: id}
	}
	id := "order-1"
	m.orders[req.IdempotencyKey] = id
	if m.Calls == m.LoseReplyOn {
		return "", errors.New("connection reset by peer")
	}
	return id, nil
}

func (m *DedupOrders) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// MockLoyalty implements LoyaltyService for testing
type MockLoyalty struct {
	mu     sync.Mutex
	Err    error
	Awards []domain.LoyaltyAward
}

func (m *MockLoyalty) AwardPoints(_ context.Context, award domain.LoyaltyAward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Awards = append(m.Awards, award)
	return m.Err
}

func (m *MockLoyalty) Received() []domain.LoyaltyAward {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LoyaltyAward(nil), m.Awards...)
}

// MockLedger implements AwardLedger for testing
type MockLedger struct {
	mu       sync.Mutex
	reserved map[string]bool
	Err      error
	Released []string
}

func (m *MockLedger) Reserve(_ context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if m.reserved == nil {
		m.reserved = make(map[string]bool)
	}
	if m.reserved[orderID] {
		return false, nil
	}
	m.reserved[orderID] = true
	return true, nil
}

func (m *MockLedger) Release(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved, orderID)
	m.Released = append(m.Released, orderID)
	return nil
}

// MockJournal implements SubmissionJournal for testing
type MockJournal struct {
	mu        sync.Mutex
	Statuses  map[string]domain.SubmissionState
	OrderIDs  map[string]string
	Err       error
	ReadErr   error
	Submitted int
}

func (m *MockJournal) init() {
	if m.Statuses == nil {
		m.Statuses = make(map[string]domain.SubmissionState)
		m.OrderIDs = make(map[string]string)
	}
}

func (m *MockJournal) GetAttemptByIdempotencyKey(_ context.Context, key string) (*r.CheckoutAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	status, ok := m.Statuses[key]
	if !ok {
		return nil, r.ErrIdempotencyKeyNotFound
	}
	attempt := &r.CheckoutAttempt{IdempotencyKey: key, Status: status}
	if id, ok := m.OrderIDs[key]; ok {
		attempt.OrderID = &id
	}
	return attempt, nil
}

func (m *MockJournal) RecordSubmitting(_ context.Context, attempt *r.CheckoutAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.Submitted++
	m.Statuses[attempt.IdempotencyKey] = domain.SubmissionSubmitting
	return m.Err
}

func (m *MockJournal) MarkSucceeded(_ context.Context, key, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.Statuses[key] = domain.SubmissionSucceeded
	m.OrderIDs[key] = orderID
	return m.Err
}

func (m *MockJournal) MarkFailed(_ context.Context, key, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.Statuses[key] = domain.SubmissionFailed
	return m.Err
}

func (m *MockJournal) Status(key string) domain.SubmissionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Statuses[key]
}
