package fixedpoint

import (
	"fmt"

	"github.com/holiman/uint256"
)

var (
	// FeeDenominator scales every fee rate: a rate of FeeDenominator is 100%.
	FeeDenominator = uint256.NewInt(10_000_000_000)
	// One is 1.0 in 18-decimal fixed point.
	One = MustFromDecimal("1000000000000000000")
)

// Pow10 returns 10^n. n is capped at 77, the largest power that fits.
func Pow10(n uint8) (*uint256.Int, error) {
	if n > 77 {
		return nil, fmt.Errorf("%w: 10^%d", ErrOverflow, n)
	}
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(n))), nil
}

// PrecisionFor returns the multiplier that lifts an amount with the given
// number of decimals to 18-decimal fixed point.
func PrecisionFor(decimals uint8) (*uint256.Int, error) {
	if decimals > Decimals {
		return nil, fmt.Errorf("decimals %d exceed %d", decimals, Decimals)
	}
	return Pow10(Decimals - decimals)
}

// Normalize scales a raw token amount to 18 decimals.
func Normalize(amount, precision *uint256.Int) (*uint256.Int, error) {
	return Mul(amount, precision)
}

// Denormalize converts an 18-decimal value back to raw token units, rounding
// down.
func Denormalize(value, precision *uint256.Int) (*uint256.Int, error) {
	return Div(value, precision)
}

// ApplyRate returns amount*rate/FeeDenominator.
func ApplyRate(amount *uint256.Int, rate uint64) (*uint256.Int, error) {
	if rate == 0 {
		return new(uint256.Int), nil
	}
	return MulDiv(amount, uint256.NewInt(rate), FeeDenominator)
}

// ValidRate reports whether rate is within [0, FeeDenominator].
func ValidRate(rate uint64) bool {
	return rate <= FeeDenominator.Uint64()
}
