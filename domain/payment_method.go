package domain

import (
	"fmt"
	"strings"
)

type PaymentMethod string

const (
	PaymentMethodCard            PaymentMethod = "CARD"
	PaymentMethodApplePay        PaymentMethod = "APPLE_PAY"
	PaymentMethodCashOnDelivery  PaymentMethod = "CASH_ON_DELIVERY"
	PaymentMethodInstallmentPlan PaymentMethod = "INSTALLMENT_PLAN"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodApplePay, PaymentMethodCashOnDelivery, PaymentMethodInstallmentPlan:
		return true
	default:
		return false
	}
}

func (m PaymentMethod) String() string {
	return string(m)
}

// ParsePaymentMethod accepts the canonical names case-insensitively.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("unknown payment method %q", s)
	}
	return m, nil
}
