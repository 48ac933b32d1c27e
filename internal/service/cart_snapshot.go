package service

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Begin resolves the caller and their cart concurrently and opens a checkout at SHIPPING.
// It replaces any checkout the user already had open.
func (s *CheckoutServiceImpl) Begin(ctx context.Context, credential, userID string) (*Checkout, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	var (
		user *domain.User
		cart *domain.Cart
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.identity.CurrentUser(gctx, credential)
		if err != nil {
			return fmt.Errorf("failed to resolve identity: %w", err)
		}
		user = u
		return nil
	})
	g.Go(func() error {
		c, err := s.cart.GetCart(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get cart: %w", err)
		}
		cart = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if user == nil || user.ID != userID {
		s.log.Warn().Str("user_id", userID).Msg("credential does not belong to requested user")
		return nil, ErrUnauthenticated
	}
	if cart == nil || cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if err := cart.Validate(); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("rejecting cart snapshot")
		return nil, fmt.Errorf("%w: %w", ErrInvalidCart, err)
	}

	snapshot := cart.Clone()
	now := s.now()
	c := &Checkout{
		svc:   s,
		owner: sha256.Sum256([]byte(credential)),
		session: domain.CheckoutSession{
			ID:             uuid.NewString(),
			UserID:         userID,
			IdempotencyKey: uuid.NewString(),
			Step:           domain.CheckoutStepShipping,
			Cart:           snapshot,
			Pricing:        s.pricing.Compute(snapshot, domain.PaymentMethodCard),
			Submission:     domain.SubmissionIdle,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
	s.register(c)

	s.log.Info().
		Str("session_id", c.session.ID).
		Str("user_id", userID).
		Int("items", len(snapshot.Items)).
		Str("subtotal", c.session.Pricing.Subtotal.StringFixed(2)).
		Msg("checkout started")
	return c, nil
}
