package service

// register makes c the user's active checkout, replacing any previous one.
func (s *CheckoutServiceImpl) register(c *Checkout) {
	s.mu.Lock()
	_, replaced := s.sessions[c.session.UserID]
	s.sessions[c.session.UserID] = c
	s.mu.Unlock()

	if replaced {
		s.metrics.SessionsAbandoned.Inc()
	}
}

// Get returns the user's active checkout. The credential must be the one the checkout was
// begun with.
func (s *CheckoutServiceImpl) Get(credential, userID string) (*Checkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !c.ownedBy(credential) {
		return nil, ErrUnauthenticated
	}
	return c, nil
}

// Abandon drops the user's active checkout. An order submission already in flight is not
// cancelled; its post-order effects still run.
func (s *CheckoutServiceImpl) Abandon(credential, userID string) error {
	s.mu.Lock()
	c, ok := s.sessions[userID]
	owned := ok && c.ownedBy(credential)
	if owned {
		delete(s.sessions, userID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	if !owned {
		return ErrUnauthenticated
	}
	s.metrics.SessionsAbandoned.Inc()
	s.log.Info().Str("session_id", c.ID()).Str("user_id", userID).Msg("checkout abandoned")
	return nil
}

// discard removes c if it is still the user's active checkout.
func (s *CheckoutServiceImpl) discard(c *Checkout, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[userID] == c {
		delete(s.sessions, userID)
	}
}

// Wait blocks until background loyalty sends have finished.
func (s *CheckoutServiceImpl) Wait() {
	s.background.Wait()
}
