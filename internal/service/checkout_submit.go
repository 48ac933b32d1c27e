package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/fjod/go_cart/checkout-pipeline/internal/metrics"
	r "github.com/fjod/go_cart/checkout-pipeline/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	reasonUnavailable   = "We could not place your order right now. Please try again."
	reasonAlreadyPlaced = "This order was already submitted. Check your order history before trying again."
	reasonCartEmptied   = "None of the items in your cart are available anymore."
	reasonCartInvalid   = "Your cart could not be updated. Please start checkout again."
)

// StockError is a local rejection when a line asks for more than was in stock at fetch time.
type StockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("only %d of product %d in stock, %d requested", e.Available, e.ProductID, e.Requested)
}

// checkCart rejects a snapshot the order service must not see: malformed lines or
// quantities above the stock captured at fetch time.
func checkCart(cart domain.Cart) error {
	if err := cart.Validate(); err != nil {
		return err
	}
	return checkStock(cart)
}

func checkStock(cart domain.Cart) error {
	for _, item := range cart.Items {
		if item.Quantity > item.StockAtFetch {
			return &StockError{ProductID: item.ProductID, Requested: item.Quantity, Available: item.StockAtFetch}
		}
	}
	return nil
}

// rejectLocally records a failed attempt that never reached the order service.
func (c *Checkout) rejectLocally(err error) {
	c.session.Submission = domain.SubmissionFailed
	c.session.SubmissionError = &domain.SubmissionError{Reason: err.Error(), Retryable: false}
	c.session.UpdatedAt = c.svc.now()
	c.svc.metrics.Submissions.WithLabelValues(metrics.OutcomeValidationFailed).Inc()
	c.svc.log.Info().Str("session_id", c.session.ID).Err(err).Msg("order rejected before submission")
}

// submitOrder calls the order service once. The call outlives the caller's context but not
// the configured submit timeout.
func (s *CheckoutServiceImpl) submitOrder(ctx context.Context, req *domain.OrderRequest) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeouts.OrderSubmit)
	defer cancel()

	if orderID, ok := s.journaledOrder(ctx, req.IdempotencyKey); ok {
		s.log.Info().
			Str("idempotency_key", req.IdempotencyKey).
			Str("order_id", orderID).
			Msg("order already journaled as placed, not resubmitting")
		return orderID, nil
	}
	s.journalSubmitting(ctx, req)

	start := time.Now()
	orderID, err := s.orders.SubmitOrder(ctx, req)
	s.metrics.SubmitLatencyMS.Observe(float64(time.Since(start).Milliseconds()))

	var dup *domain.DuplicateOrderError
	switch {
	case err == nil:
		s.journalSucceeded(ctx, req.IdempotencyKey, orderID)
	case errors.As(err, &dup) && dup.OrderID != "":
		s.journalSucceeded(ctx, req.IdempotencyKey, dup.OrderID)
	default:
		s.journalFailed(ctx, req.IdempotencyKey, err)
	}
	return orderID, err
}

// applySubmitResult must be called with mu held and the session in SUBMITTING.
func (c *Checkout) applySubmitResult(orderID string, err error) {
	log := c.svc.log.With().Str("session_id", c.session.ID).Logger()

	var (
		dup      *domain.DuplicateOrderError
		rejected *domain.OrderValidationError
	)
	switch {
	case err == nil:
		c.complete(orderID)
		log.Info().Str("order_id", orderID).Msg("order placed")
	case errors.As(err, &dup) && dup.OrderID != "":
		c.complete(dup.OrderID)
		log.Info().Str("order_id", dup.OrderID).Msg("order already existed for idempotency key")
	case errors.As(err, &dup):
		c.fail(reasonAlreadyPlaced, false, metrics.OutcomeValidationFailed)
		log.Warn().Err(err).Msg("duplicate order without order id")
	case errors.As(err, &rejected):
		c.applyRejection(rejected, log)
	default:
		c.fail(reasonUnavailable, true, metrics.OutcomeTransportFailed)
		log.Warn().Err(err).Msg("order submission failed")
	}
}

// applyRejection adopts the order service's updated cart, when it sent a valid one, and
// reprices the session.
func (c *Checkout) applyRejection(rejected *domain.OrderValidationError, log zerolog.Logger) {
	if rejected.UpdatedItems != nil {
		updated := domain.Cart{Items: append([]domain.CartItem(nil), rejected.UpdatedItems...)}
		if err := updated.Validate(); err != nil {
			c.fail(reasonCartInvalid, false, metrics.OutcomeValidationFailed)
			log.Error().Err(err).Msg("order service returned an invalid cart")
			return
		}
		c.session.Cart = updated
		method := domain.PaymentMethodCard
		if c.session.PaymentMethod != nil {
			method = *c.session.PaymentMethod
		}
		c.session.Pricing = c.svc.pricing.Compute(c.session.Cart, method)
	}

	reason, retryable := rejected.Reason, true
	if c.session.Cart.IsEmpty() {
		reason, retryable = reasonCartEmptied, false
	}
	c.fail(reason, retryable, metrics.OutcomeValidationFailed)
	log.Info().Err(rejected).Bool("cart_updated", rejected.UpdatedItems != nil).Msg("order rejected")
}

func (c *Checkout) complete(orderID string) {
	if err := c.transition(domain.CheckoutStepCompleted); err != nil {
		c.svc.log.Error().Err(err).Str("session_id", c.session.ID).Msg("cannot complete checkout")
		return
	}
	c.session.Submission = domain.SubmissionSucceeded
	c.session.SubmissionError = nil
	c.session.OrderID = &orderID
	c.svc.metrics.Submissions.WithLabelValues(metrics.OutcomeSucceeded).Inc()
}

func (c *Checkout) fail(reason string, retryable bool, outcome string) {
	if err := c.transition(domain.CheckoutStepReview); err != nil {
		c.svc.log.Error().Err(err).Str("session_id", c.session.ID).Msg("cannot return checkout to review")
		return
	}
	c.session.Submission = domain.SubmissionFailed
	c.session.SubmissionError = &domain.SubmissionError{Reason: reason, Retryable: retryable}
	c.svc.metrics.Submissions.WithLabelValues(outcome).Inc()
}

// journaledOrder returns the order id of an attempt the journal already marks as succeeded.
func (s *CheckoutServiceImpl) journaledOrder(ctx context.Context, key string) (string, bool) {
	if s.journal == nil {
		return "", false
	}
	attempt, err := s.journal.GetAttemptByIdempotencyKey(ctx, key)
	if err != nil {
		if !errors.Is(err, r.ErrIdempotencyKeyNotFound) {
			s.journalError(err, key)
		}
		return "", false
	}
	if attempt.Status != domain.SubmissionSucceeded || attempt.OrderID == nil {
		return "", false
	}
	return *attempt.OrderID, true
}

func (s *CheckoutServiceImpl) journalSubmitting(ctx context.Context, req *domain.OrderRequest) {
	if s.journal == nil {
		return
	}
	err := s.journal.RecordSubmitting(ctx, &r.CheckoutAttempt{
		ID:             uuid.NewString(),
		IdempotencyKey: req.IdempotencyKey,
		UserID:         req.UserID,
		TotalAmount:    req.Pricing.Total,
	})
	s.journalError(err, req.IdempotencyKey)
}

func (s *CheckoutServiceImpl) journalSucceeded(ctx context.Context, key, orderID string) {
	if s.journal == nil {
		return
	}
	s.journalError(s.journal.MarkSucceeded(ctx, key, orderID), key)
}

func (s *CheckoutServiceImpl) journalFailed(ctx context.Context, key string, cause error) {
	if s.journal == nil {
		return
	}
	s.journalError(s.journal.MarkFailed(ctx, key, cause.Error()), key)
}

func (s *CheckoutServiceImpl) journalError(err error, key string) {
	if err == nil {
		return
	}
	s.metrics.SideEffectErrors.WithLabelValues(metrics.EffectJournal).Inc()
	s.log.Warn().Err(err).Str("idempotency_key", key).Msg("failed to write submission journal")
}
