package service

import (
	"context"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/fjod/go_cart/checkout-pipeline/internal/metrics"
)

// afterCompleted starts the post-order effects of a confirmed order. None of them can change
// the outcome the user sees, and none of them delay it.
func (s *CheckoutServiceImpl) afterCompleted(ctx context.Context, c *Checkout, view domain.CheckoutSession) {
	s.discard(c, view.UserID)
	ctx = context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.reconcile(ctx, view)
	}()
	if view.OrderID != nil {
		s.accrueLoyalty(domain.LoyaltyAward{
			UserID:        view.UserID,
			Points:        domain.PointsForTotal(view.Pricing.Total),
			SourceOrderID: *view.OrderID,
		})
	}
}

// reconcile clears the remote cart of an ordered session.
func (s *CheckoutServiceImpl) reconcile(ctx context.Context, view domain.CheckoutSession) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.CartClear)
	defer cancel()

	if err := s.cart.ClearCart(ctx, view.UserID); err != nil {
		s.metrics.SideEffectErrors.WithLabelValues(metrics.EffectCartClear).Inc()
		s.log.Warn().Err(err).
			Str("session_id", view.ID).
			Str("user_id", view.UserID).
			Msg("failed to clear cart after order")
	}
}

// accrueLoyalty sends the award in the background. Each order id is awarded at most once
// when a ledger is configured.
func (s *CheckoutServiceImpl) accrueLoyalty(award domain.LoyaltyAward) {
	if award.Points <= 0 {
		return
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeouts.Loyalty)
		defer cancel()
		log := s.log.With().Str("order_id", award.SourceOrderID).Int64("points", award.Points).Logger()

		reserved := false
		if s.ledger != nil {
			ok, err := s.ledger.Reserve(ctx, award.SourceOrderID)
			switch {
			case err != nil:
				s.metrics.SideEffectErrors.WithLabelValues(metrics.EffectLoyaltyDedup).Inc()
				log.Warn().Err(err).Msg("award ledger unavailable, sending without reservation")
			case !ok:
				log.Info().Msg("loyalty points already awarded")
				return
			default:
				reserved = true
			}
		}

		if err := s.loyalty.AwardPoints(ctx, award); err != nil {
			s.metrics.SideEffectErrors.WithLabelValues(metrics.EffectLoyalty).Inc()
			log.Warn().Err(err).Msg("failed to award loyalty points")
			if reserved {
				if err := s.ledger.Release(context.WithoutCancel(ctx), award.SourceOrderID); err != nil {
					s.metrics.SideEffectErrors.WithLabelValues(metrics.EffectLoyaltyDedup).Inc()
					log.Warn().Err(err).Msg("failed to release award reservation")
				}
			}
			return
		}
		log.Info().Msg("loyalty points awarded")
	}()
}
