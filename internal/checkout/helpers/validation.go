package helpers

import (
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// NormalizeShippingAddress trims every field and requires all five.
func NormalizeShippingAddress(addr *orders.ShippingAddress) (orders.ShippingAddress, error) {
	if addr == nil {
		return orders.ShippingAddress{}, pkgerrors.New(pkgerrors.CodeValidation, "Shipping address is required")
	}
	out := orders.ShippingAddress{
		Street:    strings.TrimSpace(addr.Street),
		City:      strings.TrimSpace(addr.City),
		Area:      strings.TrimSpace(addr.Area),
		Building:  strings.TrimSpace(addr.Building),
		Apartment: strings.TrimSpace(addr.Apartment),
	}
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"street", out.Street},
		{"city", out.City},
		{"area", out.Area},
		{"building", out.Building},
		{"apartment", out.Apartment},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return orders.ShippingAddress{}, pkgerrors.New(pkgerrors.CodeValidation, "Complete shipping address is required").
			WithDetails(map[string]any{"missing": missing})
	}
	return out, nil
}

// ParsePaymentMethod defaults an empty value to cash on delivery.
func ParsePaymentMethod(raw string) (enums.PaymentMethod, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return enums.PaymentMethodCOD, nil
	}
	method, err := enums.ParsePaymentMethod(raw)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Invalid payment method")
	}
	return method, nil
}
