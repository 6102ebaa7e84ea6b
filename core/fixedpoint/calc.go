package fixedpoint

import "github.com/holiman/uint256"

// Calc chains checked operations and keeps the first error. Once an error has
// been recorded every further operation returns zero, so long formulas can be
// written without an error check per step and inspected once through Err.
type Calc struct {
	err error
}

// Err returns the first error encountered by the calculator.
func (c *Calc) Err() error { return c.err }

func (c *Calc) do(fn func() (*uint256.Int, error)) *uint256.Int {
	if c.err != nil {
		return new(uint256.Int)
	}
	v, err := fn()
	if err != nil {
		c.err = err
		return new(uint256.Int)
	}
	return v
}

func (c *Calc) Add(x, y *uint256.Int) *uint256.Int {
	return c.do(func() (*uint256.Int, error) { return Add(x, y) })
}

func (c *Calc) Sub(x, y *uint256.Int) *uint256.Int {
	return c.do(func() (*uint256.Int, error) { return Sub(x, y) })
}

func (c *Calc) Mul(x, y *uint256.Int) *uint256.Int {
	return c.do(func() (*uint256.Int, error) { return Mul(x, y) })
}

func (c *Calc) MulU(x *uint256.Int, y uint64) *uint256.Int {
	return c.do(func() (*uint256.Int, error) { return Mul(x, uint256.NewInt(y)) })
}

func (c *Calc) Div(x, y *uint256.Int) *uint256.Int {
	return c.do(func() (*uint256.Int, error) { return Div(x, y) })
}

func (c *Calc) MulDiv(x, y, d *uint256.Int) *uint256.Int {
	return c.do(func() (*uint256.Int, error) { return MulDiv(x, y, d) })
}

func (c *Calc) Sum(xs []*uint256.Int) *uint256.Int {
	return c.do(func() (*uint256.Int, error) { return Sum(xs) })
}
