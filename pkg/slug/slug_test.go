package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Classic Cotton T-Shirt": "classic-cotton-t-shirt",
		"  Crème Brûlée  ":       "creme-brulee",
		"Women's Jeans!!":        "women-s-jeans",
		"---":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Make(in), in)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("summer-dress"))
	assert.False(t, Valid("Summer Dress"))
	assert.False(t, Valid(""))
}
