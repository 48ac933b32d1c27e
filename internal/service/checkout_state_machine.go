package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"sync"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/fjod/go_cart/checkout-pipeline/internal/validation"
)

// Checkout is one user's checkout session. Commands are serialized by mu; mu is released while
// the order service is called, the SUBMITTING step keeps other commands out meanwhile.
type Checkout struct {
	svc   *CheckoutServiceImpl
	owner [sha256.Size]byte // digest of the credential verified at Begin

	mu      sync.Mutex
	session domain.CheckoutSession
}

// ID is fixed at creation.
func (c *Checkout) ID() string {
	return c.session.ID
}

func (c *Checkout) ownedBy(credential string) bool {
	digest := sha256.Sum256([]byte(credential))
	return subtle.ConstantTimeCompare(digest[:], c.owner[:]) == 1
}

func (c *Checkout) View() domain.CheckoutSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Copy()
}

func (c *Checkout) SubmitShipping(info domain.ShippingInfo) (domain.CheckoutSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Step != domain.CheckoutStepShipping {
		return c.session.Copy(), illegal("submit shipping", c.session.Step)
	}

	info = validation.Normalize(info)
	if fields := c.svc.validator.Validate(info); len(fields) > 0 {
		c.session.FieldErrors = fields
		c.session.UpdatedAt = c.svc.now()
		return c.session.Copy(), &ShippingError{Fields: fields}
	}

	c.session.Shipping = &info
	c.session.FieldErrors = nil
	if err := c.transition(domain.CheckoutStepPayment); err != nil {
		return c.session.Copy(), err
	}
	return c.session.Copy(), nil
}

func (c *Checkout) SelectPayment(method domain.PaymentMethod) (domain.CheckoutSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Step != domain.CheckoutStepPayment {
		return c.session.Copy(), illegal("select payment", c.session.Step)
	}
	if !method.IsValid() {
		return c.session.Copy(), ErrPaymentMethodRequired
	}

	c.session.PaymentMethod = &method
	c.session.Pricing = c.svc.pricing.Compute(c.session.Cart, method)
	if err := c.transition(domain.CheckoutStepReview); err != nil {
		return c.session.Copy(), err
	}
	return c.session.Copy(), nil
}

// Back goes from PAYMENT to SHIPPING or from REVIEW to PAYMENT. Entered data is kept.
func (c *Checkout) Back() (domain.CheckoutSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var to domain.CheckoutStep
	switch c.session.Step {
	case domain.CheckoutStepPayment:
		to = domain.CheckoutStepShipping
	case domain.CheckoutStepReview:
		to = domain.CheckoutStepPayment
	default:
		return c.session.Copy(), illegal("go back", c.session.Step)
	}
	if err := c.transition(to); err != nil {
		return c.session.Copy(), err
	}
	return c.session.Copy(), nil
}

// PlaceOrder submits the reviewed order. Submission failures are reported on the returned
// session, not as an error. Calling it while a submission is in flight returns the current
// session without contacting the order service again.
func (c *Checkout) PlaceOrder(ctx context.Context) (domain.CheckoutSession, error) {
	c.mu.Lock()
	switch c.session.Step {
	case domain.CheckoutStepSubmitting:
		view := c.session.Copy()
		c.mu.Unlock()
		return view, nil
	case domain.CheckoutStepReview:
	default:
		view := c.session.Copy()
		c.mu.Unlock()
		return view, illegal("place order", view.Step)
	}
	if c.session.Cart.IsEmpty() {
		view := c.session.Copy()
		c.mu.Unlock()
		return view, ErrEmptyCart
	}
	if c.session.PaymentMethod == nil || c.session.Shipping == nil {
		view := c.session.Copy()
		c.mu.Unlock()
		return view, illegal("place order without shipping and payment", view.Step)
	}
	if err := checkCart(c.session.Cart); err != nil {
		c.rejectLocally(err)
		view := c.session.Copy()
		c.mu.Unlock()
		return view, nil
	}

	if err := c.transition(domain.CheckoutStepSubmitting); err != nil {
		view := c.session.Copy()
		c.mu.Unlock()
		return view, err
	}
	c.session.Submission = domain.SubmissionSubmitting
	c.session.SubmissionError = nil
	req := c.orderRequest()
	c.mu.Unlock()

	orderID, err := c.svc.submitOrder(ctx, req)

	c.mu.Lock()
	c.applySubmitResult(orderID, err)
	view := c.session.Copy()
	c.mu.Unlock()

	if view.Step == domain.CheckoutStepCompleted {
		c.svc.afterCompleted(ctx, c, view)
	}
	return view, nil
}

// transition must be called with mu held.
func (c *Checkout) transition(to domain.CheckoutStep) error {
	from := c.session.Step
	if !domain.CanTransitionTo(from, to) {
		return illegal("move to "+to.String(), from)
	}
	c.session.Step = to
	c.session.UpdatedAt = c.svc.now()
	c.svc.metrics.Transitions.WithLabelValues(from.String(), to.String()).Inc()
	c.svc.log.Debug().
		Str("session_id", c.session.ID).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("checkout transition")
	return nil
}

func (c *Checkout) orderRequest() *domain.OrderRequest {
	items := make([]domain.OrderItem, 0, len(c.session.Cart.Items))
	for _, item := range c.session.Cart.Items {
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return &domain.OrderRequest{
		IdempotencyKey: c.session.IdempotencyKey,
		UserID:         c.session.UserID,
		Items:          items,
		Shipping:       *c.session.Shipping,
		PaymentMethod:  *c.session.PaymentMethod,
		Pricing:        c.session.Pricing,
		PlacedAt:       c.svc.now(),
	}
}
