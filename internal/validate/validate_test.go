package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	cases := map[string]int64{"1499": 149900, "1499.5": 149950, "1499.05": 149905, " 99.99 ": 9999}
	for in, want := range cases {
		got, ok := Price(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "0", "0.00", "-5", "12.345", "1e3", "₹100", "12345678"} {
		_, ok := Price(in)
		assert.False(t, ok, in)
	}
}

func TestSizeAndColor(t *testing.T) {
	s, ok := Size(" xl ")
	assert.True(t, ok)
	assert.Equal(t, "XL", s)
	_, ok = Size("XXXL")
	assert.False(t, ok)

	c, ok := Color(" Sky Blue ")
	assert.True(t, ok)
	assert.Equal(t, "Sky Blue", c)
	for _, in := range []string{"", "1Red", "Red<script>", "Blue-Green"} {
		_, ok := Color(in)
		assert.False(t, ok, in)
	}
}

func TestCategoryAndHex(t *testing.T) {
	c, ok := Category("T-Shirts")
	assert.True(t, ok)
	assert.Equal(t, "t-shirts", c)
	_, ok = Category("shirts & more")
	assert.False(t, ok)

	_, ok = HexColor("")
	assert.True(t, ok)
	_, ok = HexColor("#A1b2C3")
	assert.True(t, ok)
	_, ok = HexColor("#abc")
	assert.False(t, ok)
}

func TestName(t *testing.T) {
	n, ok := Name("  Corduroy Overshirt ")
	assert.True(t, ok)
	assert.Equal(t, "Corduroy Overshirt", n)
	_, ok = Name("")
	assert.False(t, ok)
	_, ok = Name("This product name is far too long to fit the column")
	assert.False(t, ok)
}
