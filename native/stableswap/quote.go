package stableswap

import (
	"fmt"

	"github.com/holiman/uint256"

	"basketswap/core/fixedpoint"
	nativecommon "basketswap/native/common"
)

type mintPlan struct {
	balances []*uint256.Int
	oldD     *uint256.Int
	newD     *uint256.Int
	total    *uint256.Int
	fee      *uint256.Int
	net      *uint256.Int
}

func (p *Pool) planMint(st *poolState, a uint64, amounts []*uint256.Int) (mintPlan, error) {
	if len(amounts) != len(p.coins) {
		return mintPlan{}, fmt.Errorf("expected %d amounts, got %d: %w", len(p.coins), len(amounts), nativecommon.ErrInvalidArgument)
	}
	oldD, err := p.solveD(st.balances, a)
	if err != nil {
		return mintPlan{}, err
	}
	var c fixedpoint.Calc
	balances := fixedpoint.CloneSlice(st.balances)
	deposited := false
	for i, amount := range amounts {
		if fixedpoint.IsZero(amount) {
			if oldD.IsZero() {
				return mintPlan{}, fmt.Errorf("initial deposit must seed every coin, coin %d is zero: %w", i, nativecommon.ErrInvalidArgument)
			}
			continue
		}
		deposited = true
		balances[i] = c.Add(balances[i], c.Mul(amount, p.precisions[i]))
	}
	if err := c.Err(); err != nil {
		return mintPlan{}, err
	}
	if !deposited {
		return mintPlan{}, fmt.Errorf("no amounts to deposit: %w", nativecommon.ErrInvalidArgument)
	}
	newD, err := p.solveD(balances, a)
	if err != nil {
		return mintPlan{}, err
	}
	total := c.Sub(newD, oldD)
	fee := c.MulDiv(total, uint256.NewInt(st.fee), fixedpoint.FeeDenominator)
	net := c.Sub(total, fee)
	if err := c.Err(); err != nil {
		return mintPlan{}, err
	}
	return mintPlan{balances: balances, oldD: oldD, newD: newD, total: total, fee: fee, net: net}, nil
}

type exchangePlan struct {
	balances []*uint256.Int
	dy       *uint256.Int
	fee      *uint256.Int
}

// planExchange quotes selling dx of coin i for coin j. The fee is charged on
// the output and stays in the pool; dy rounds down in the pool's favour.
func (p *Pool) planExchange(st *poolState, a uint64, i, j int, dx *uint256.Int) (exchangePlan, error) {
	if err := p.checkIndex(i); err != nil {
		return exchangePlan{}, err
	}
	if err := p.checkIndex(j); err != nil {
		return exchangePlan{}, err
	}
	if i == j {
		return exchangePlan{}, fmt.Errorf("cannot exchange coin %d for itself: %w", i, nativecommon.ErrInvalidArgument)
	}
	if fixedpoint.IsZero(dx) {
		return exchangePlan{}, fmt.Errorf("amount must be positive: %w", nativecommon.ErrInvalidArgument)
	}
	d, err := p.solveD(st.balances, a)
	if err != nil {
		return exchangePlan{}, err
	}
	if d.IsZero() {
		return exchangePlan{}, fmt.Errorf("pool has no liquidity: %w", nativecommon.ErrInsufficientBalance)
	}
	var c fixedpoint.Calc
	balances := fixedpoint.CloneSlice(st.balances)
	balances[i] = c.Add(balances[i], c.Mul(dx, p.precisions[i]))
	if err := c.Err(); err != nil {
		return exchangePlan{}, err
	}
	y, err := p.solveY(balances, j, d, a)
	if err != nil {
		return exchangePlan{}, err
	}
	dyNorm := c.Sub(c.Sub(st.balances[j], y), uint256.NewInt(1))
	feeNorm := c.MulDiv(dyNorm, uint256.NewInt(st.fee), fixedpoint.FeeDenominator)
	dy := c.Div(c.Sub(dyNorm, feeNorm), p.precisions[j])
	fee := c.Div(feeNorm, p.precisions[j])
	balances[j] = c.Sub(balances[j], c.Mul(dy, p.precisions[j]))
	if err := c.Err(); err != nil {
		return exchangePlan{}, err
	}
	if dy.IsZero() {
		return exchangePlan{}, fmt.Errorf("output rounds to zero: %w", nativecommon.ErrInvalidArgument)
	}
	return exchangePlan{balances: balances, dy: dy, fee: fee}, nil
}

type redeemPlan struct {
	balances []*uint256.Int
	amounts  []*uint256.Int
	// gross is the pool token taken from the provider, fee the part of it
	// routed to the fee recipient and burn the remainder.
	gross *uint256.Int
	fee   *uint256.Int
	burn  *uint256.Int
	oldD  *uint256.Int
}

func (p *Pool) splitRedemptionFee(st *poolState, poolAmount *uint256.Int) (fee, burn *uint256.Int, err error) {
	if fixedpoint.IsZero(poolAmount) {
		return nil, nil, fmt.Errorf("pool amount must be positive: %w", nativecommon.ErrInvalidArgument)
	}
	if poolAmount.Gt(st.supply) {
		return nil, nil, fmt.Errorf("%w: pool amount %s exceeds supply %s", nativecommon.ErrInsufficientBalance,
			poolAmount.Dec(), st.supply.Dec())
	}
	var c fixedpoint.Calc
	fee = c.MulDiv(poolAmount, uint256.NewInt(st.redemptionFee), fixedpoint.FeeDenominator)
	burn = c.Sub(poolAmount, fee)
	return fee, burn, c.Err()
}

func (p *Pool) planRedeemProportion(st *poolState, a uint64, poolAmount *uint256.Int) (redeemPlan, error) {
	fee, burn, err := p.splitRedemptionFee(st, poolAmount)
	if err != nil {
		return redeemPlan{}, err
	}
	oldD, err := p.solveD(st.balances, a)
	if err != nil {
		return redeemPlan{}, err
	}
	var c fixedpoint.Calc
	balances := fixedpoint.CloneSlice(st.balances)
	amounts := make([]*uint256.Int, len(p.coins))
	for i := range balances {
		share := c.MulDiv(st.balances[i], burn, st.supply)
		amounts[i] = c.Div(share, p.precisions[i])
		balances[i] = c.Sub(balances[i], c.Mul(amounts[i], p.precisions[i]))
	}
	if err := c.Err(); err != nil {
		return redeemPlan{}, err
	}
	return redeemPlan{balances: balances, amounts: amounts, gross: fixedpoint.Clone(poolAmount), fee: fee, burn: burn, oldD: oldD}, nil
}

func (p *Pool) planRedeemSingle(st *poolState, a uint64, poolAmount *uint256.Int, i int) (redeemPlan, error) {
	if err := p.checkIndex(i); err != nil {
		return redeemPlan{}, err
	}
	fee, burn, err := p.splitRedemptionFee(st, poolAmount)
	if err != nil {
		return redeemPlan{}, err
	}
	oldD, err := p.solveD(st.balances, a)
	if err != nil {
		return redeemPlan{}, err
	}
	var c fixedpoint.Calc
	target := c.Sub(oldD, burn)
	if err := c.Err(); err != nil {
		return redeemPlan{}, err
	}
	y, err := p.solveY(st.balances, i, target, a)
	if err != nil {
		return redeemPlan{}, err
	}
	dyNorm := c.Sub(c.Sub(st.balances[i], y), uint256.NewInt(1))
	dy := c.Div(dyNorm, p.precisions[i])
	balances := fixedpoint.CloneSlice(st.balances)
	balances[i] = c.Sub(balances[i], c.Mul(dy, p.precisions[i]))
	if err := c.Err(); err != nil {
		return redeemPlan{}, err
	}
	if dy.IsZero() {
		return redeemPlan{}, fmt.Errorf("output rounds to zero: %w", nativecommon.ErrInvalidArgument)
	}
	amounts := make([]*uint256.Int, len(p.coins))
	for k := range amounts {
		amounts[k] = new(uint256.Int)
	}
	amounts[i] = dy
	return redeemPlan{balances: balances, amounts: amounts, gross: fixedpoint.Clone(poolAmount), fee: fee, burn: burn, oldD: oldD}, nil
}

// planRedeemMulti quotes withdrawing exact amounts. The pool token burned
// equals the drop in D; the redemption fee is grossed up on top of it so the
// provider pays burn*FeeDenominator/(FeeDenominator-redemptionFee).
func (p *Pool) planRedeemMulti(st *poolState, a uint64, amounts []*uint256.Int) (redeemPlan, error) {
	if len(amounts) != len(p.coins) {
		return redeemPlan{}, fmt.Errorf("expected %d amounts, got %d: %w", len(p.coins), len(amounts), nativecommon.ErrInvalidArgument)
	}
	oldD, err := p.solveD(st.balances, a)
	if err != nil {
		return redeemPlan{}, err
	}
	balances := fixedpoint.CloneSlice(st.balances)
	var c fixedpoint.Calc
	withdrawn := false
	for i, amount := range amounts {
		if fixedpoint.IsZero(amount) {
			continue
		}
		withdrawn = true
		norm := c.Mul(amount, p.precisions[i])
		if err := c.Err(); err != nil {
			return redeemPlan{}, err
		}
		if norm.Gt(balances[i]) {
			return redeemPlan{}, fmt.Errorf("%w: coin %d balance below %s", nativecommon.ErrInsufficientBalance, i, amount.Dec())
		}
		balances[i] = c.Sub(balances[i], norm)
	}
	if !withdrawn {
		return redeemPlan{}, fmt.Errorf("no amounts to redeem: %w", nativecommon.ErrInvalidArgument)
	}
	newD, err := p.solveD(balances, a)
	if err != nil {
		return redeemPlan{}, err
	}
	burn := c.Sub(oldD, newD)
	gross := fixedpoint.Clone(burn)
	if st.redemptionFee > 0 {
		gross = c.MulDiv(burn, fixedpoint.FeeDenominator, uint256.NewInt(fixedpoint.FeeDenominator.Uint64()-st.redemptionFee))
	}
	fee := c.Sub(gross, burn)
	if err := c.Err(); err != nil {
		return redeemPlan{}, err
	}
	if burn.Gt(st.supply) {
		return redeemPlan{}, fmt.Errorf("%w: burn %s exceeds supply %s", nativecommon.ErrInsufficientBalance, burn.Dec(), st.supply.Dec())
	}
	return redeemPlan{
		balances: balances,
		amounts:  fixedpoint.CloneSlice(amounts),
		gross:    gross,
		fee:      fee,
		burn:     burn,
		oldD:     oldD,
	}, nil
}

func (p *Pool) quoteState() (*poolState, uint64) {
	st := p.state.Load()
	return st, st.ramp.At(p.now().Unix())
}

// GetMintAmount returns the pool token a deposit of amounts would mint to the
// provider and the fee that would go to the fee recipient.
func (p *Pool) GetMintAmount(amounts []*uint256.Int) (mintAmount, feeAmount *uint256.Int, err error) {
	st, a := p.quoteState()
	plan, err := p.planMint(st, a, amounts)
	if err != nil {
		return nil, nil, err
	}
	return plan.net, plan.fee, nil
}

// GetRedemptionAmount returns the pool token needed to withdraw exactly
// amounts, fee included, and the fee portion.
func (p *Pool) GetRedemptionAmount(amounts []*uint256.Int) (poolAmount, feeAmount *uint256.Int, err error) {
	st, a := p.quoteState()
	plan, err := p.planRedeemMulti(st, a, amounts)
	if err != nil {
		return nil, nil, err
	}
	return plan.gross, plan.fee, nil
}

// GetExchangeAmount returns the output of selling dx of coin i for coin j and
// the fee charged in coin j.
func (p *Pool) GetExchangeAmount(i, j int, dx *uint256.Int) (dy, feeAmount *uint256.Int, err error) {
	st, a := p.quoteState()
	plan, err := p.planExchange(st, a, i, j, dx)
	if err != nil {
		return nil, nil, err
	}
	return plan.dy, plan.fee, nil
}

// GetRedeemProportionAmount returns the coins a proportional redemption of
// poolAmount would pay out and the pool token fee.
func (p *Pool) GetRedeemProportionAmount(poolAmount *uint256.Int) (amounts []*uint256.Int, feeAmount *uint256.Int, err error) {
	st, a := p.quoteState()
	plan, err := p.planRedeemProportion(st, a, poolAmount)
	if err != nil {
		return nil, nil, err
	}
	return plan.amounts, plan.fee, nil
}

// GetRedeemSingleAmount returns the amount of coin i a redemption of
// poolAmount would pay out and the pool token fee.
func (p *Pool) GetRedeemSingleAmount(poolAmount *uint256.Int, i int) (dy, feeAmount *uint256.Int, err error) {
	st, a := p.quoteState()
	plan, err := p.planRedeemSingle(st, a, poolAmount, i)
	if err != nil {
		return nil, nil, err
	}
	return plan.amounts[i], plan.fee, nil
}
