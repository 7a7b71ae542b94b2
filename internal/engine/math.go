// Package engine implements the pricing, settlement, and liquidity engine for
// dual-outcome bonding-curve markets. All functions are pure state-transition
// helpers over domain structs: they validate fully before mutating, so a
// returned error always means nothing changed. Persistence, custody, and
// transport are the caller's job.
package engine

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// MaxEndingSlotDelay bounds how far past the creation slot a market's ending
// slot may lie: ~1 week of 400ms slots.
const MaxEndingSlotDelay uint64 = 1_512_000

// MulDiv computes a*b/den with a 256-bit intermediate so the product cannot
// overflow. Division is floor division. It returns domain.ErrOverflow when
// den is zero or the quotient does not fit in a uint64.
func MulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, domain.ErrOverflow
	}
	var x, y uint256.Int
	x.SetUint64(a)
	y.SetUint64(b)
	x.Mul(&x, &y)
	y.SetUint64(den)
	x.Div(&x, &y)
	if !x.IsUint64() {
		return 0, domain.ErrOverflow
	}
	return x.Uint64(), nil
}

// MulDivCeil is MulDiv with ceiling division.
func MulDivCeil(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, domain.ErrOverflow
	}
	var x, y, rem uint256.Int
	x.SetUint64(a)
	y.SetUint64(b)
	x.Mul(&x, &y)
	y.SetUint64(den)
	rem.Mod(&x, &y)
	x.Div(&x, &y)
	if !rem.IsZero() {
		one := uint256.NewInt(1)
		x.Add(&x, one)
	}
	if !x.IsUint64() {
		return 0, domain.ErrOverflow
	}
	return x.Uint64(), nil
}

// BpsMul applies a basis-point rate to a value, rounding down.
func BpsMul(bps, value uint64) (uint64, error) {
	if bps > domain.BpsDenominator {
		return 0, domain.ErrInvalidParameter
	}
	return MulDiv(value, bps, domain.BpsDenominator)
}

// CheckedAdd returns a+b or domain.ErrOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, domain.ErrOverflow
	}
	return a + b, nil
}

// CheckedSub returns a-b or domain.ErrOverflow when b > a.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, domain.ErrOverflow
	}
	return a - b, nil
}

// Pow10 returns 10^d. It returns domain.ErrOverflow for d > 19, which cannot
// be represented in a uint64.
func Pow10(d uint8) (uint64, error) {
	if d > 19 {
		return 0, domain.ErrOverflow
	}
	out := uint64(1)
	for i := uint8(0); i < d; i++ {
		out *= 10
	}
	return out, nil
}

// curveQuotient computes floor(solReserves*tokenReserves/den) keeping the
// constant-product k in 256-bit space. den must be nonzero.
func curveQuotient(solReserves, tokenReserves, den uint64) (uint64, error) {
	return MulDiv(solReserves, tokenReserves, den)
}

// curveQuotientCeil is curveQuotient with ceiling division; used on the sell
// leg so rounding always favors the pool.
func curveQuotientCeil(solReserves, tokenReserves, den uint64) (uint64, error) {
	return MulDivCeil(solReserves, tokenReserves, den)
}
