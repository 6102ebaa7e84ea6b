package stableswap

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"basketswap/core/events"
	"basketswap/core/fixedpoint"
	nativecommon "basketswap/native/common"
)

func requireProvider(addr common.Address) error {
	if nativecommon.IsZeroAddress(addr) {
		return fmt.Errorf("caller required: %w", nativecommon.ErrInvalidArgument)
	}
	return nil
}

// Mint deposits amounts (raw token units, index-aligned with the coins) and
// mints pool token to caller. The first deposit must seed every coin. Zero
// amounts are not transferred.
func (p *Pool) Mint(ctx context.Context, caller common.Address, amounts []*uint256.Int, minMintAmount *uint256.Int) (*uint256.Int, error) {
	var minted *uint256.Int
	err := p.execute(ctx, "mint", func(tx *poolTx) error {
		if err := tx.requireActive(); err != nil {
			return err
		}
		if err := requireProvider(caller); err != nil {
			return err
		}
		plan, err := p.planMint(tx.state, tx.a, amounts)
		if err != nil {
			return err
		}
		if plan.net.Lt(fixedpoint.Clone(minMintAmount)) {
			return fmt.Errorf("%w: mint %s below minimum %s", nativecommon.ErrSlippageExceeded,
				plan.net.Dec(), minMintAmount.Dec())
		}
		for i, amount := range amounts {
			if fixedpoint.IsZero(amount) {
				continue
			}
			if err := nativecommon.PullExact(p.custody, caller, p.coins[i], amount); err != nil {
				return fmt.Errorf("coin %d: %w", i, err)
			}
		}
		if !plan.fee.IsZero() {
			if err := p.token.Mint(p.feeRecipient, p.poolToken, plan.fee); err != nil {
				return err
			}
		}
		if err := p.token.Mint(caller, p.poolToken, plan.net); err != nil {
			return err
		}
		supply, err := fixedpoint.Add(tx.state.supply, plan.total)
		if err != nil {
			return err
		}
		tx.state.balances = plan.balances
		tx.state.supply = supply
		if _, err := tx.collect(); err != nil {
			return err
		}
		minted = plan.net
		tx.events.Emit(events.PoolMinted{
			OpID:       tx.opID,
			Provider:   caller,
			Amounts:    fixedpoint.CloneSlice(amounts),
			OldD:       plan.oldD,
			NewD:       plan.newD,
			MintAmount: fixedpoint.Clone(plan.net),
			FeeAmount:  fixedpoint.Clone(plan.fee),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return minted, nil
}

// Exchange sells dx of coin i for coin j. The output is at least minDy or the
// call fails with ErrSlippageExceeded. The exchange fee stays in the pool and
// the resulting invariant growth is minted to the fee recipient.
func (p *Pool) Exchange(ctx context.Context, caller common.Address, i, j int, dx, minDy *uint256.Int) (*uint256.Int, error) {
	var out *uint256.Int
	err := p.execute(ctx, "exchange", func(tx *poolTx) error {
		if err := tx.requireActive(); err != nil {
			return err
		}
		if err := requireProvider(caller); err != nil {
			return err
		}
		plan, err := p.planExchange(tx.state, tx.a, i, j, dx)
		if err != nil {
			return err
		}
		if plan.dy.Lt(fixedpoint.Clone(minDy)) {
			return fmt.Errorf("%w: output %s below minimum %s", nativecommon.ErrSlippageExceeded,
				plan.dy.Dec(), minDy.Dec())
		}
		if err := nativecommon.PullExact(p.custody, caller, p.coins[i], dx); err != nil {
			return err
		}
		if err := p.custody.TransferOut(caller, p.coins[j], plan.dy); err != nil {
			return err
		}
		tx.state.balances = plan.balances
		if _, err := tx.collect(); err != nil {
			return err
		}
		out = plan.dy
		tx.events.Emit(events.PoolExchanged{
			OpID:         tx.opID,
			Buyer:        caller,
			SoldIndex:    i,
			SoldAmount:   fixedpoint.Clone(dx),
			BoughtIndex:  j,
			BoughtAmount: fixedpoint.Clone(plan.dy),
			FeeAmount:    plan.fee,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RedeemProportion burns poolAmount (less the redemption fee) and pays out
// every coin in proportion to the reserves. minAmounts may be nil.
func (p *Pool) RedeemProportion(ctx context.Context, caller common.Address, poolAmount *uint256.Int, minAmounts []*uint256.Int) ([]*uint256.Int, error) {
	var amounts []*uint256.Int
	err := p.execute(ctx, "redeem_proportion", func(tx *poolTx) error {
		if err := tx.requireActive(); err != nil {
			return err
		}
		if err := requireProvider(caller); err != nil {
			return err
		}
		if minAmounts != nil && len(minAmounts) != len(p.coins) {
			return fmt.Errorf("expected %d minimum amounts, got %d: %w", len(p.coins), len(minAmounts), nativecommon.ErrInvalidArgument)
		}
		plan, err := p.planRedeemProportion(tx.state, tx.a, poolAmount)
		if err != nil {
			return err
		}
		for i, floor := range minAmounts {
			if plan.amounts[i].Lt(fixedpoint.Clone(floor)) {
				return fmt.Errorf("%w: coin %d output %s below minimum %s", nativecommon.ErrSlippageExceeded,
					i, plan.amounts[i].Dec(), floor.Dec())
			}
		}
		if err := tx.settleRedemption(caller, plan); err != nil {
			return err
		}
		amounts = plan.amounts
		return tx.emitRedeemed(events.RedeemKindProportion, caller, plan)
	})
	if err != nil {
		return nil, err
	}
	return fixedpoint.CloneSlice(amounts), nil
}

// RedeemSingle burns poolAmount (less the redemption fee) and pays out coin i
// only. The output is at least minDy or the call fails with
// ErrSlippageExceeded.
func (p *Pool) RedeemSingle(ctx context.Context, caller common.Address, poolAmount *uint256.Int, i int, minDy *uint256.Int) (*uint256.Int, error) {
	var out *uint256.Int
	err := p.execute(ctx, "redeem_single", func(tx *poolTx) error {
		if err := tx.requireActive(); err != nil {
			return err
		}
		if err := requireProvider(caller); err != nil {
			return err
		}
		plan, err := p.planRedeemSingle(tx.state, tx.a, poolAmount, i)
		if err != nil {
			return err
		}
		if plan.amounts[i].Lt(fixedpoint.Clone(minDy)) {
			return fmt.Errorf("%w: output %s below minimum %s", nativecommon.ErrSlippageExceeded,
				plan.amounts[i].Dec(), minDy.Dec())
		}
		if err := tx.settleRedemption(caller, plan); err != nil {
			return err
		}
		out = plan.amounts[i]
		return tx.emitRedeemed(events.RedeemKindSingle, caller, plan)
	})
	if err != nil {
		return nil, err
	}
	return fixedpoint.Clone(out), nil
}

// RedeemMulti withdraws exact amounts of each coin. The pool token taken,
// redemption fee included, must not exceed maxPoolAmount.
func (p *Pool) RedeemMulti(ctx context.Context, caller common.Address, amounts []*uint256.Int, maxPoolAmount *uint256.Int) (*uint256.Int, error) {
	var taken *uint256.Int
	err := p.execute(ctx, "redeem_multi", func(tx *poolTx) error {
		if err := tx.requireActive(); err != nil {
			return err
		}
		if err := requireProvider(caller); err != nil {
			return err
		}
		plan, err := p.planRedeemMulti(tx.state, tx.a, amounts)
		if err != nil {
			return err
		}
		if maxPoolAmount != nil && plan.gross.Gt(maxPoolAmount) {
			return fmt.Errorf("%w: pool amount %s above maximum %s", nativecommon.ErrSlippageExceeded,
				plan.gross.Dec(), maxPoolAmount.Dec())
		}
		if err := tx.settleRedemption(caller, plan); err != nil {
			return err
		}
		taken = plan.gross
		return tx.emitRedeemed(events.RedeemKindMulti, caller, plan)
	})
	if err != nil {
		return nil, err
	}
	return fixedpoint.Clone(taken), nil
}

// settleRedemption routes the fee to the fee recipient, burns the rest of the
// provider's pool token, pays out the coins and commits the new balances.
func (tx *poolTx) settleRedemption(caller common.Address, plan redeemPlan) error {
	p := tx.pool
	if !plan.fee.IsZero() {
		if err := p.token.Transfer(caller, p.feeRecipient, p.poolToken, plan.fee); err != nil {
			return err
		}
	}
	if !plan.burn.IsZero() {
		if err := p.token.Burn(caller, p.poolToken, plan.burn); err != nil {
			return err
		}
	}
	for i, amount := range plan.amounts {
		if fixedpoint.IsZero(amount) {
			continue
		}
		if err := p.custody.TransferOut(caller, p.coins[i], amount); err != nil {
			return fmt.Errorf("coin %d: %w", i, err)
		}
	}
	supply, err := fixedpoint.Sub(tx.state.supply, plan.burn)
	if err != nil {
		return err
	}
	tx.state.balances = plan.balances
	tx.state.supply = supply
	_, err = tx.collect()
	return err
}

func (tx *poolTx) emitRedeemed(kind string, caller common.Address, plan redeemPlan) error {
	newD, err := tx.pool.solveD(tx.state.balances, tx.a)
	if err != nil {
		return err
	}
	tx.events.Emit(events.PoolRedeemed{
		OpID:       tx.opID,
		Kind:       kind,
		Provider:   caller,
		Amounts:    fixedpoint.CloneSlice(plan.amounts),
		OldD:       plan.oldD,
		NewD:       newD,
		PoolAmount: fixedpoint.Clone(plan.gross),
		FeeAmount:  fixedpoint.Clone(plan.fee),
	})
	return nil
}
