package decimal

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatScaled(t *testing.T) {
	cases := []struct {
		raw      string
		decimals uint8
		want     string
	}{
		{"1000000", 6, "1"},
		{"1500000", 6, "1.5"},
		{"-1500000", 6, "-1.5"},
		{"0", 18, "0"},
		{"1236000", 6, "1.24"},  // 1.236 rounds up at the 2nd fractional digit
		{"1235000", 6, "1.24"},  // exact half rounds away from zero
		{"1234000", 6, "1.23"},  // below half rounds down
		{"-1236000", 6, "-1.24"}, // rounding is symmetric across the sign
		{"999999", 6, "1"},      // rounding the fraction up carries into the whole part
	}
	for _, c := range cases {
		v, ok := new(big.Int).SetString(c.raw, 10)
		require.True(t, ok)
		assert.Equal(t, c.want, FormatScaled(v, c.decimals, 2))
	}
}

func TestFormatSigned_AppendsPointZero(t *testing.T) {
	assert.Equal(t, "1.0", FormatSigned(big.NewInt(1000000), 6, 2))
	assert.Equal(t, "1.5", FormatSigned(big.NewInt(1500000), 6, 2))
}
