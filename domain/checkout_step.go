package domain

type CheckoutStep string

const (
	CheckoutStepShipping   CheckoutStep = "SHIPPING"
	CheckoutStepPayment    CheckoutStep = "PAYMENT"
	CheckoutStepReview     CheckoutStep = "REVIEW"
	CheckoutStepSubmitting CheckoutStep = "SUBMITTING"
	CheckoutStepCompleted  CheckoutStep = "COMPLETED"
	CheckoutStepFailed     CheckoutStep = "FAILED"
)

var allowedTransitions = map[CheckoutStep][]CheckoutStep{
	CheckoutStepShipping:   {CheckoutStepPayment},
	CheckoutStepPayment:    {CheckoutStepShipping, CheckoutStepReview},
	CheckoutStepReview:     {CheckoutStepPayment, CheckoutStepSubmitting},
	CheckoutStepSubmitting: {CheckoutStepCompleted, CheckoutStepReview},
}

func CanTransitionTo(from, to CheckoutStep) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutStep) IsTerminal() bool {
	return s == CheckoutStepCompleted || s == CheckoutStepFailed
}

// String representation (for logging)
func (s CheckoutStep) String() string {
	return string(s)
}
