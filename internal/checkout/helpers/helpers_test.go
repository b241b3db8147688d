package helpers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestNormalizeShippingAddress(t *testing.T) {
	t.Parallel()

	_, err := NormalizeShippingAddress(nil)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = NormalizeShippingAddress(&orders.ShippingAddress{Street: "1 Nile St", City: "Cairo", Area: " "})
	require.Error(t, err)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"area", "building", "apartment"}, details["missing"])

	got, err := NormalizeShippingAddress(&orders.ShippingAddress{
		Street: " 1 Nile St ", City: "Cairo", Area: "Zamalek", Building: "12", Apartment: "4B",
	})
	require.NoError(t, err)
	assert.Equal(t, "1 Nile St", got.Street)
}

func TestParsePaymentMethod(t *testing.T) {
	t.Parallel()

	method, err := ParsePaymentMethod("")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodCOD, method)

	method, err = ParsePaymentMethod(" PayPal ")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodPayPal, method)

	_, err = ParsePaymentMethod("bitcoin")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestDetectPriceMismatch(t *testing.T) {
	t.Parallel()
	item := models.CartItem{ID: uuid.New(), Title: "Tee", Price: decimal.RequireFromString("25.99")}

	_, mismatch := DetectPriceMismatch(item, decimal.RequireFromString("25.99"))
	assert.False(t, mismatch)

	got, mismatch := DetectPriceMismatch(item, decimal.RequireFromString("29.99"))
	assert.True(t, mismatch)
	assert.Equal(t, item.ID, got.ItemID)

	item.PriceChanged = true
	_, mismatch = DetectPriceMismatch(item, decimal.RequireFromString("25.99"))
	assert.True(t, mismatch)
}

func TestOrderTotal(t *testing.T) {
	t.Parallel()
	total := OrderTotal([]models.OrderItem{
		{Price: decimal.RequireFromString("29.99"), Quantity: 2},
		{Price: decimal.RequireFromString("0.01"), Quantity: 3},
	})
	assert.True(t, total.Equal(decimal.RequireFromString("60.01")))
}
