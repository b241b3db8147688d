package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_VALUE", "  console ")
	assert.Equal(t, "console", Get("STOREFRONT_TEST_VALUE", "json"))

	t.Setenv("STOREFRONT_TEST_VALUE", "")
	assert.Equal(t, "json", Get("STOREFRONT_TEST_VALUE", "json"))
}

func TestBool(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_FLAG", "true")
	assert.True(t, Bool("STOREFRONT_TEST_FLAG", false))

	t.Setenv("STOREFRONT_TEST_FLAG", "nope")
	assert.True(t, Bool("STOREFRONT_TEST_FLAG", true))

	t.Setenv("STOREFRONT_TEST_FLAG", "")
	assert.False(t, Bool("STOREFRONT_TEST_FLAG", false))
}
