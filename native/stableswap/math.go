package stableswap

import (
	"fmt"

	"github.com/holiman/uint256"

	"basketswap/core/fixedpoint"
	nativecommon "basketswap/native/common"
)

// MaxIterations caps the Newton iterations of both invariant solvers.
const MaxIterations = 255

// iterationCap is the cap the solvers apply.
var iterationCap = MaxIterations

// Solution is the outcome of an iterative solve. Converged is false when the
// iteration cap was reached; Value then holds the last iterate.
type Solution struct {
	Value      *uint256.Int
	Iterations int
	Converged  bool
}

var one = uint256.NewInt(1)

func closeEnough(a, b *uint256.Int) bool {
	return !fixedpoint.AbsDiff(a, b).Gt(one)
}

// ComputeD solves the StableSwap invariant
//
//	A·n^n·S + D = A·n^n·D + D^(n+1) / (n^n·∏x_i)
//
// for D given normalized balances xp and amplification a. D is zero when
// every balance is zero.
func ComputeD(xp []*uint256.Int, a uint64) (Solution, error) {
	n := uint64(len(xp))
	if n == 0 {
		return Solution{}, fmt.Errorf("compute D: no balances: %w", nativecommon.ErrInvalidArgument)
	}
	if a == 0 {
		return Solution{}, fmt.Errorf("compute D: zero amplification: %w", nativecommon.ErrInvalidArgument)
	}
	var c fixedpoint.Calc
	sum := c.Sum(xp)
	if err := c.Err(); err != nil {
		return Solution{}, fmt.Errorf("compute D: %w", err)
	}
	if sum.IsZero() {
		return Solution{Value: new(uint256.Int), Converged: true}, nil
	}
	for i, x := range xp {
		if fixedpoint.IsZero(x) {
			return Solution{}, fmt.Errorf("compute D: balance %d is zero: %w", i, nativecommon.ErrInvalidArgument)
		}
	}

	ann := c.MulU(uint256.NewInt(a), n)
	annMinusOne := c.Sub(ann, one)
	d := fixedpoint.Clone(sum)
	for iter := 1; iter <= iterationCap; iter++ {
		dp := fixedpoint.Clone(d)
		for _, x := range xp {
			dp = c.MulDiv(dp, d, c.MulU(x, n))
		}
		prev := d
		numerator := c.Mul(c.Add(c.Mul(ann, sum), c.MulU(dp, n)), d)
		denominator := c.Add(c.Mul(annMinusOne, d), c.MulU(dp, n+1))
		d = c.Div(numerator, denominator)
		if err := c.Err(); err != nil {
			return Solution{}, fmt.Errorf("compute D: %w", err)
		}
		if closeEnough(d, prev) {
			return Solution{Value: d, Iterations: iter, Converged: true}, nil
		}
	}
	return Solution{Value: d, Iterations: iterationCap}, nil
}

// ComputeY solves for the balance of asset index that keeps the invariant at
// d, holding every other entry of xp fixed. xp[index] itself is ignored.
func ComputeY(xp []*uint256.Int, index int, d *uint256.Int, a uint64) (Solution, error) {
	n := uint64(len(xp))
	if n < 2 {
		return Solution{}, fmt.Errorf("compute Y: need at least two balances: %w", nativecommon.ErrInvalidArgument)
	}
	if index < 0 || index >= len(xp) {
		return Solution{}, fmt.Errorf("compute Y: index %d out of range: %w", index, nativecommon.ErrInvalidArgument)
	}
	if a == 0 {
		return Solution{}, fmt.Errorf("compute Y: zero amplification: %w", nativecommon.ErrInvalidArgument)
	}
	if fixedpoint.IsZero(d) {
		return Solution{Value: new(uint256.Int), Converged: true}, nil
	}

	var c fixedpoint.Calc
	ann := c.MulU(uint256.NewInt(a), n)
	cc := fixedpoint.Clone(d)
	s := new(uint256.Int)
	for k, x := range xp {
		if k == index {
			continue
		}
		if fixedpoint.IsZero(x) {
			return Solution{}, fmt.Errorf("compute Y: balance %d is zero: %w", k, nativecommon.ErrInvalidArgument)
		}
		s = c.Add(s, x)
		cc = c.MulDiv(cc, d, c.MulU(x, n))
	}
	cc = c.MulDiv(cc, d, c.MulU(ann, n))
	b := c.Add(s, c.Div(d, ann))
	if err := c.Err(); err != nil {
		return Solution{}, fmt.Errorf("compute Y: %w", err)
	}

	y := fixedpoint.Clone(d)
	for iter := 1; iter <= iterationCap; iter++ {
		prev := y
		numerator := c.Add(c.Mul(y, y), cc)
		denominator := c.Sub(c.Add(c.MulU(y, 2), b), d)
		y = c.Div(numerator, denominator)
		if err := c.Err(); err != nil {
			return Solution{}, fmt.Errorf("compute Y: %w", err)
		}
		if closeEnough(y, prev) {
			return Solution{Value: y, Iterations: iter, Converged: true}, nil
		}
	}
	return Solution{Value: y, Iterations: iterationCap}, nil
}
