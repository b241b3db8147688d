package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type addBody struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"productId":"x","quantity":1,"extra":true}`))
	var body addBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"productId":"","quantity":0}`))
	var body addBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["productId"])
	assert.Equal(t, "is required", details["quantity"])
}

type variantBody struct {
	Price decimal.Decimal `json:"price" validate:"gt=0"`
}

type productBody struct {
	Title    string        `json:"title" validate:"required"`
	Variants []variantBody `json:"variants" validate:"required,min=1,dive"`
}

func TestDecodeJSONBodyValidatesDecimalsWithIndexedPaths(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"title":"Tee","variants":[{"price":10},{"price":0}]}`))
	var body productBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"variants[1].price": "must be greater than 0"}, details)
}

func TestDecodeJSONBodyRequiresSingleObject(t *testing.T) {
	var body addBody
	err := DecodeJSONBody(httptest.NewRequest("POST", "/", strings.NewReader("")), &body)
	require.Error(t, err)
	assert.Equal(t, "request body is required", pkgerrors.As(err).Message())

	raw := `{"productId":"` + uuid.NewString() + `","quantity":1}{}`
	err = DecodeJSONBody(httptest.NewRequest("POST", "/", strings.NewReader(raw)), &body)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "summer linen", SanitizeString("  summer \t\n linen ", 100))
	assert.Equal(t, "café", SanitizeString("café au lait", 4))
	assert.Equal(t, "", SanitizeString("   ", 10))
}

func TestParsePaginationClamps(t *testing.T) {
	req := httptest.NewRequest("GET", "/?page=-4&limit=1000", nil)
	params, err := ParsePagination(req)
	require.NoError(t, err)
	assert.Equal(t, pagination.Params{Page: 1, Limit: pagination.MaxLimit}, params)

	req = httptest.NewRequest("GET", "/?page=abc", nil)
	_, err = ParsePagination(req)
	require.Error(t, err)
}

func TestParseUUIDParam(t *testing.T) {
	_, err := ParseUUIDParam("not-a-uuid", "orderId")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR: invalid orderId", err.Error())
}

func TestParseOptionalBool(t *testing.T) {
	query := httptest.NewRequest("GET", "/?isApproved=false&isActive=maybe", nil).URL.Query()

	value, err := ParseOptionalBool(query, "isApproved")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.False(t, *value)

	value, err = ParseOptionalBool(query, "missing")
	require.NoError(t, err)
	assert.Nil(t, value)

	_, err = ParseOptionalBool(query, "isActive")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
