// Package decimal renders raw on-chain integer amounts (wei, token base
// units) as fixed-point decimal strings, shared by every component that
// needs to show a human amount: token metadata resolution, balance deltas,
// and message rendering.
package decimal

import (
	"math/big"
	"strings"
)

// FormatScaled renders amount scaled down by 10^decimals into a
// fixed-point string with up to precision fractional digits, rounding
// half away from zero at the precision boundary and trimming trailing
// zeros afterward.
func FormatScaled(amount *big.Int, decimals uint8, precision int) string {
	if amount == nil {
		return "0"
	}
	if precision < 0 {
		precision = 0
	}

	neg := amount.Sign() < 0
	abs := new(big.Int).Abs(amount)

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole := new(big.Int)
	rem := new(big.Int)
	whole.QuoRem(abs, divisor, rem)

	fracStr := ""
	if decimals > 0 {
		if precision >= int(decimals) {
			fracStr = rem.String()
			if pad := int(decimals) - len(fracStr); pad > 0 {
				fracStr = strings.Repeat("0", pad) + fracStr
			}
		} else {
			scaleDivisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(int(decimals)-precision)), nil)
			frac := new(big.Int)
			cut := new(big.Int)
			frac.QuoRem(rem, scaleDivisor, cut)

			// Round half away from zero: bump frac when the dropped
			// remainder is at least half of what one more frac unit
			// is worth.
			if new(big.Int).Lsh(cut, 1).Cmp(scaleDivisor) >= 0 {
				frac.Add(frac, big.NewInt(1))
			}

			precisionCap := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(precision)), nil)
			if frac.Cmp(precisionCap) >= 0 {
				frac.SetInt64(0)
				whole.Add(whole, big.NewInt(1))
			}

			fracStr = frac.String()
			if pad := precision - len(fracStr); pad > 0 {
				fracStr = strings.Repeat("0", pad) + fracStr
			}
		}
		fracStr = strings.TrimRight(fracStr, "0")
	}

	out := whole.String()
	if fracStr != "" {
		out += "." + fracStr
	}
	if neg {
		out = "-" + out
	}
	return out
}

// FormatSigned is FormatScaled but always includes a decimal point,
// appending ".0" to an integral result — the convention C6 uses for pnl
// and balance figures.
func FormatSigned(amount *big.Int, decimals uint8, precision int) string {
	s := FormatScaled(amount, decimals, precision)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
