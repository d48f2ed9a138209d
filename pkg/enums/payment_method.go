package enums

import "fmt"

// PaymentMethod identifies how a payment attempt collects funds.
type PaymentMethod string

const (
	PaymentMethodStripeCard   PaymentMethod = "stripe_card"
	PaymentMethodStripeBank   PaymentMethod = "stripe_bank"
	PaymentMethodStripeWallet PaymentMethod = "stripe_wallet"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodStripeCard,
	PaymentMethodStripeBank,
	PaymentMethodStripeWallet,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
