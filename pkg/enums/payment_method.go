package enums

import "fmt"

// PaymentMethod records how the customer intends to pay.
type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodUPI     PaymentMethod = "upi"
	PaymentMethodPending PaymentMethod = "pending"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodUPI,
	PaymentMethodPending,
}

// String implements fmt.Stringer.
func (v PaymentMethod) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentMethod.
func (v PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == v {
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

// UnmarshalText rejects unknown methods while decoding request bodies. An
// empty string decodes to the zero value so callers can apply a default.
func (v *PaymentMethod) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*v = ""
		return nil
	}
	parsed, err := ParsePaymentMethod(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
