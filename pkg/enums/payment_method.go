package enums

import "slices"

// PaymentMethod is how the buyer intends to settle. No payment is captured
// in-process; the method is recorded on the order.
type PaymentMethod string

const (
	PaymentMethodCOD        PaymentMethod = "cod"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodPayPal     PaymentMethod = "paypal"
)

var validPaymentMethods = []PaymentMethod{PaymentMethodCOD, PaymentMethodCreditCard, PaymentMethodPayPal}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return slices.Contains(validPaymentMethods, p) }

// SettledOnDelivery reports whether money changes hands only at the door.
func (p PaymentMethod) SettledOnDelivery() bool { return p == PaymentMethodCOD }

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse("payment method", value, validPaymentMethods)
}
