// Package fixedpoint provides checked 256-bit integer arithmetic for ledger
// amounts. Every operation either returns an exact result or one of the
// sentinel errors below; values never wrap around.
package fixedpoint

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow is returned when a result does not fit in 256 bits.
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrUnderflow is returned when a subtraction would go negative.
	ErrUnderflow = errors.New("arithmetic underflow")
	// ErrDivisionByZero is returned for any division by a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")
)

// Decimals is the precision every normalized balance is expressed in.
const Decimals = 18

// New returns a fresh integer holding v.
func New(v uint64) *uint256.Int { return uint256.NewInt(v) }

// Zero returns a fresh zero value.
func Zero() *uint256.Int { return new(uint256.Int) }

// MustFromDecimal parses a base-10 constant and panics on malformed input.
func MustFromDecimal(value string) *uint256.Int {
	v, err := uint256.FromDecimal(value)
	if err != nil {
		panic("invalid uint256 constant " + value)
	}
	return v
}

// Clone returns a copy of x. A nil input yields zero.
func Clone(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(x)
}

// CloneSlice deep copies xs.
func CloneSlice(xs []*uint256.Int) []*uint256.Int {
	out := make([]*uint256.Int, len(xs))
	for i, x := range xs {
		out[i] = Clone(x)
	}
	return out
}

// IsZero reports whether x is nil or zero.
func IsZero(x *uint256.Int) bool { return x == nil || x.IsZero() }

func Add(x, y *uint256.Int) (*uint256.Int, error) {
	a, b := Clone(x), Clone(y)
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: %s + %s", ErrOverflow, a.Dec(), b.Dec())
	}
	return z, nil
}

func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	a, b := Clone(x), Clone(y)
	z, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, fmt.Errorf("%w: %s - %s", ErrUnderflow, a.Dec(), b.Dec())
	}
	return z, nil
}

func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	a, b := Clone(x), Clone(y)
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrOverflow, a.Dec(), b.Dec())
	}
	return z, nil
}

// Div truncates towards zero.
func Div(x, y *uint256.Int) (*uint256.Int, error) {
	if IsZero(y) {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(Clone(x), y), nil
}

// MulDiv computes x*y/d with a 512-bit intermediate product.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if IsZero(d) {
		return nil, ErrDivisionByZero
	}
	if IsZero(x) || IsZero(y) {
		return new(uint256.Int), nil
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s / %s", ErrOverflow, x.Dec(), y.Dec(), d.Dec())
	}
	return z, nil
}

// Sum adds every element of xs.
func Sum(xs []*uint256.Int) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, x := range xs {
		next, err := Add(total, x)
		if err != nil {
			return nil, err
		}
		total = next
	}
	return total, nil
}

// AbsDiff returns |x - y|.
func AbsDiff(x, y *uint256.Int) *uint256.Int {
	a, b := Clone(x), Clone(y)
	if a.Lt(b) {
		return new(uint256.Int).Sub(b, a)
	}
	return new(uint256.Int).Sub(a, b)
}

// Max returns the larger of x and y.
func Max(x, y *uint256.Int) *uint256.Int {
	if Clone(x).Lt(Clone(y)) {
		return Clone(y)
	}
	return Clone(x)
}
