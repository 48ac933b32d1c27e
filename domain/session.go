package domain

import "time"

type SubmissionState string

const (
	SubmissionIdle       SubmissionState = "IDLE"
	SubmissionSubmitting SubmissionState = "SUBMITTING"
	SubmissionSucceeded  SubmissionState = "SUCCEEDED"
	SubmissionFailed     SubmissionState = "FAILED"
)

// SubmissionError is the user-facing reason of the last failed placeOrder.
type SubmissionError struct {
	Reason    string `json:"reason"`
	Retryable bool   `json:"retryable"`
}

// CheckoutSession is the state of one checkout attempt.
type CheckoutSession struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	IdempotencyKey  string            `json:"-"`
	Step            CheckoutStep      `json:"step"`
	Cart            Cart              `json:"cart"`
	Shipping        *ShippingInfo     `json:"shipping,omitempty"`
	PaymentMethod   *PaymentMethod    `json:"payment_method,omitempty"`
	Pricing         PricingBreakdown  `json:"pricing"`
	Submission      SubmissionState   `json:"submission_state"`
	SubmissionError *SubmissionError  `json:"submission_error,omitempty"`
	FieldErrors     map[string]string `json:"field_errors,omitempty"`
	OrderID         *string           `json:"order_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Copy returns a deep copy safe to hand to callers outside the state machine.
func (s *CheckoutSession) Copy() CheckoutSession {
	out := *s
	out.Cart = s.Cart.Clone()
	if s.Shipping != nil {
		shipping := *s.Shipping
		out.Shipping = &shipping
	}
	if s.PaymentMethod != nil {
		method := *s.PaymentMethod
		out.PaymentMethod = &method
	}
	if s.SubmissionError != nil {
		subErr := *s.SubmissionError
		out.SubmissionError = &subErr
	}
	if s.FieldErrors != nil {
		out.FieldErrors = make(map[string]string, len(s.FieldErrors))
		for k, v := range s.FieldErrors {
			out.FieldErrors[k] = v
		}
	}
	if s.OrderID != nil {
		id := *s.OrderID
		out.OrderID = &id
	}
	return out
}
