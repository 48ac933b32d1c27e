package service

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/fjod/go_cart/checkout-pipeline/internal/metrics"
	"github.com/fjod/go_cart/checkout-pipeline/internal/pricing"
	r "github.com/fjod/go_cart/checkout-pipeline/internal/repository"
	"github.com/fjod/go_cart/checkout-pipeline/internal/validation"
	"github.com/rs/zerolog"
)

type IdentityProvider interface {
	// CurrentUser returns domain.ErrUnauthenticated for a missing or rejected credential.
	CurrentUser(ctx context.Context, credential string) (*domain.User, error)
}

type CartService interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

type OrderService interface {
	// SubmitOrder returns *domain.OrderValidationError or *domain.DuplicateOrderError for
	// business rejections and any other error for transport failures.
	SubmitOrder(ctx context.Context, req *domain.OrderRequest) (string, error)
}

type LoyaltyService interface {
	AwardPoints(ctx context.Context, award domain.LoyaltyAward) error
}

// AwardLedger remembers which orders already had loyalty points sent.
type AwardLedger interface {
	Reserve(ctx context.Context, orderID string) (bool, error)
	Release(ctx context.Context, orderID string) error
}

// SubmissionJournal records order submission attempts by idempotency key.
type SubmissionJournal interface {
	// GetAttemptByIdempotencyKey returns r.ErrIdempotencyKeyNotFound for an unknown key.
	GetAttemptByIdempotencyKey(ctx context.Context, key string) (*r.CheckoutAttempt, error)
	RecordSubmitting(ctx context.Context, attempt *r.CheckoutAttempt) error
	MarkSucceeded(ctx context.Context, key, orderID string) error
	MarkFailed(ctx context.Context, key, reason string) error
}

var _ SubmissionJournal = (*r.Repository)(nil)

type Timeouts struct {
	OrderSubmit time.Duration
	CartClear   time.Duration
	Loyalty     time.Duration
}

// Dependencies are the collaborators of the checkout pipeline. Ledger and Journal are optional.
type Dependencies struct {
	Identity IdentityProvider
	Cart     CartService
	Orders   OrderService
	Loyalty  LoyaltyService
	Ledger   AwardLedger
	Journal  SubmissionJournal
}

type CheckoutServiceImpl struct {
	identity IdentityProvider
	cart     CartService
	orders   OrderService
	loyalty  LoyaltyService
	ledger   AwardLedger
	journal  SubmissionJournal

	pricing   *pricing.Engine
	validator *validation.ShippingValidator
	metrics   *metrics.CheckoutMetrics
	log       zerolog.Logger
	timeouts  Timeouts
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Checkout // by user id

	background sync.WaitGroup
}

func NewCheckoutService(
	deps Dependencies,
	engine *pricing.Engine,
	m *metrics.CheckoutMetrics,
	log zerolog.Logger,
	timeouts Timeouts) *CheckoutServiceImpl {

	return &CheckoutServiceImpl{
		identity:  deps.Identity,
		cart:      deps.Cart,
		orders:    deps.Orders,
		loyalty:   deps.Loyalty,
		ledger:    deps.Ledger,
		journal:   deps.Journal,
		pricing:   engine,
		validator: validation.NewShippingValidator(),
		metrics:   m,
		log:       log.With().Str("component", "checkout").Logger(),
		timeouts:  timeouts,
		now:       time.Now,
		sessions:  make(map[string]*Checkout),
	}
}
