package fixedpoint

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestSubUnderflowIsAnError(t *testing.T) {
	_, err := Sub(New(50), New(1000))
	require.ErrorIs(t, err, ErrUnderflow)

	v, err := Sub(New(1000), New(50))
	require.NoError(t, err)
	require.Equal(t, uint64(950), v.Uint64())
}

func TestAddOverflowIsAnError(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	_, err := Add(max, New(1))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestMulDivUsesWideIntermediate(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	v, err := MulDiv(max, New(3), New(3))
	require.NoError(t, err)
	require.True(t, v.Eq(max))

	_, err = MulDiv(max, New(3), New(2))
	require.ErrorIs(t, err, ErrOverflow)

	_, err = MulDiv(New(1), New(1), Zero())
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestPrecisionFor(t *testing.T) {
	p, err := PrecisionFor(6)
	require.NoError(t, err)
	require.Equal(t, "1000000000000", p.Dec())

	p, err = PrecisionFor(18)
	require.NoError(t, err)
	require.Equal(t, uint64(1), p.Uint64())

	_, err = PrecisionFor(19)
	require.Error(t, err)
}

func TestApplyRate(t *testing.T) {
	// 4 bps of 1e18
	fee, err := ApplyRate(One, 4_000_000)
	require.NoError(t, err)
	require.Equal(t, "400000000000000", fee.Dec())

	zero, err := ApplyRate(One, 0)
	require.NoError(t, err)
	require.True(t, zero.IsZero())
	require.True(t, ValidRate(10_000_000_000))
	require.False(t, ValidRate(10_000_000_001))
}

func TestCalcKeepsFirstError(t *testing.T) {
	var c Calc
	a := c.Sub(New(1), New(2))
	b := c.Div(New(4), Zero())
	require.True(t, a.IsZero())
	require.True(t, b.IsZero())
	require.True(t, errors.Is(c.Err(), ErrUnderflow))
}

func TestNilInputsTreatedAsZero(t *testing.T) {
	v, err := Add(nil, New(7))
	require.NoError(t, err)
	require.Equal(t, uint64(7), v.Uint64())
	require.True(t, IsZero(nil))
	require.Equal(t, uint64(7), AbsDiff(nil, New(7)).Uint64())
}
