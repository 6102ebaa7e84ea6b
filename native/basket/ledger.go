package basket

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"basketswap/core/events"
	"basketswap/core/fixedpoint"
	nativecommon "basketswap/native/common"
)

// Mint pulls amount of asset from source into custody, credits the reserve and
// mints amount minus feeAmount basket tokens to source. The fee is minted to
// the fee receiver.
func (l *Ledger) Mint(ctx context.Context, caller, source, asset common.Address, amount, feeAmount *uint256.Int) (*uint256.Int, error) {
	var minted *uint256.Int
	err := l.execute(ctx, "mint", caller, func(tx *ledgerTx) error {
		if err := l.validateAsset(source, asset, amount); err != nil {
			return fmt.Errorf("basket mint: %w", err)
		}
		net, err := fixedpoint.Sub(amount, feeAmount)
		if err != nil {
			return fmt.Errorf("basket mint: fee exceeds amount: %w", err)
		}
		if err := tx.pull(source, asset, amount); err != nil {
			return fmt.Errorf("basket mint: %w", err)
		}
		if err := tx.credit(asset, amount); err != nil {
			return fmt.Errorf("basket mint: %w", err)
		}
		if !fixedpoint.IsZero(feeAmount) {
			if err := l.token.Mint(l.feeReceiver, l.basketToken, feeAmount); err != nil {
				return fmt.Errorf("basket mint: fee: %w", err)
			}
			tx.notify(l.basketToken, feeAmount)
		}
		if err := l.token.Mint(source, l.basketToken, net); err != nil {
			return fmt.Errorf("basket mint: %w", err)
		}
		minted = net
		tx.events.Emit(events.BasketMinted{
			OpID:         tx.opID,
			Source:       source,
			Asset:        asset,
			Amount:       fixedpoint.Clone(amount),
			MintedAmount: fixedpoint.Clone(net),
			FeeAmount:    fixedpoint.Clone(feeAmount),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return minted, nil
}

// Redeem burns amount basket tokens from source and pays out amount minus
// feeAmount of asset. The reserve is debited by the net amount only; the fee is
// transferred to the fee receiver in basket tokens and stays circulating.
func (l *Ledger) Redeem(ctx context.Context, caller, source, asset common.Address, amount, feeAmount *uint256.Int) (*uint256.Int, error) {
	var redeemed *uint256.Int
	err := l.execute(ctx, "redeem", caller, func(tx *ledgerTx) error {
		if err := l.validateAsset(source, asset, amount); err != nil {
			return fmt.Errorf("basket redeem: %w", err)
		}
		if reserve := tx.state.balance(asset); reserve.Lt(amount) {
			return fmt.Errorf("basket redeem: %w: reserve %s below %s", nativecommon.ErrInsufficientBalance,
				reserve.Dec(), amount.Dec())
		}
		net, err := fixedpoint.Sub(amount, feeAmount)
		if err != nil {
			return fmt.Errorf("basket redeem: fee exceeds amount: %w", err)
		}
		if err := tx.debit(asset, net); err != nil {
			return fmt.Errorf("basket redeem: %w", err)
		}
		if err := tx.pull(source, l.basketToken, amount); err != nil {
			return fmt.Errorf("basket redeem: %w", err)
		}
		if err := tx.payFee(l.basketToken, feeAmount); err != nil {
			return fmt.Errorf("basket redeem: fee: %w", err)
		}
		if !net.IsZero() {
			if err := l.token.Burn(l.custody.Address(), l.basketToken, net); err != nil {
				return fmt.Errorf("basket redeem: %w", err)
			}
			if err := l.custody.TransferOut(source, asset, net); err != nil {
				return fmt.Errorf("basket redeem: %w", err)
			}
		}
		redeemed = net
		tx.events.Emit(events.BasketRedeemed{
			OpID:             tx.opID,
			Source:           source,
			Asset:            asset,
			Amount:           fixedpoint.Clone(amount),
			RedemptionAmount: fixedpoint.Clone(net),
			FeeAmount:        fixedpoint.Clone(feeAmount),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return redeemed, nil
}

// Swap exchanges amount of inputAsset for outputAsset one-to-one, less the
// input and output fees. By default the output reserve is checked against the
// gross amount; with StrictSwapCheck it is checked against the net output.
func (l *Ledger) Swap(ctx context.Context, caller, source, inputAsset, outputAsset common.Address, amount, inputFee, outputFee *uint256.Int) (*uint256.Int, error) {
	var output *uint256.Int
	err := l.execute(ctx, "swap", caller, func(tx *ledgerTx) error {
		if err := l.validateAsset(source, inputAsset, amount); err != nil {
			return fmt.Errorf("basket swap: input: %w", err)
		}
		if err := l.validateAsset(source, outputAsset, amount); err != nil {
			return fmt.Errorf("basket swap: output: %w", err)
		}
		if inputAsset == outputAsset {
			return fmt.Errorf("basket swap: identical assets: %w", nativecommon.ErrInvalidArgument)
		}
		afterInputFee, err := fixedpoint.Sub(amount, inputFee)
		if err != nil {
			return fmt.Errorf("basket swap: input fee exceeds amount: %w", err)
		}
		out, err := fixedpoint.Sub(afterInputFee, outputFee)
		if err != nil {
			return fmt.Errorf("basket swap: output fee exceeds amount: %w", err)
		}
		required := amount
		if l.strictSwapCheck {
			required = out
		}
		if reserve := tx.state.balance(outputAsset); reserve.Lt(required) {
			return fmt.Errorf("basket swap: %w: reserve %s below %s", nativecommon.ErrInsufficientBalance,
				reserve.Dec(), required.Dec())
		}
		if err := tx.credit(inputAsset, afterInputFee); err != nil {
			return fmt.Errorf("basket swap: %w", err)
		}
		if err := tx.debit(outputAsset, out); err != nil {
			return fmt.Errorf("basket swap: %w", err)
		}
		if err := tx.pull(source, inputAsset, amount); err != nil {
			return fmt.Errorf("basket swap: %w", err)
		}
		if err := tx.payFee(inputAsset, inputFee); err != nil {
			return fmt.Errorf("basket swap: input fee: %w", err)
		}
		if err := tx.payFee(outputAsset, outputFee); err != nil {
			return fmt.Errorf("basket swap: output fee: %w", err)
		}
		if !out.IsZero() {
			if err := l.custody.TransferOut(source, outputAsset, out); err != nil {
				return fmt.Errorf("basket swap: %w", err)
			}
		}
		output = out
		tx.events.Emit(events.BasketSwapped{
			OpID:         tx.opID,
			Source:       source,
			InputAsset:   inputAsset,
			OutputAsset:  outputAsset,
			Amount:       fixedpoint.Clone(amount),
			OutputAmount: fixedpoint.Clone(out),
			InputFee:     fixedpoint.Clone(inputFee),
			OutputFee:    fixedpoint.Clone(outputFee),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

func (l *Ledger) validateAsset(source, asset common.Address, amount *uint256.Int) error {
	if nativecommon.IsZeroAddress(source) {
		return fmt.Errorf("source required: %w", nativecommon.ErrInvalidArgument)
	}
	if nativecommon.IsZeroAddress(asset) {
		return fmt.Errorf("asset required: %w", nativecommon.ErrInvalidArgument)
	}
	if fixedpoint.IsZero(amount) {
		return fmt.Errorf("amount must be positive: %w", nativecommon.ErrInvalidArgument)
	}
	if asset == l.basketToken || !l.supported(asset) {
		return fmt.Errorf("unsupported asset %s: %w", asset.Hex(), nativecommon.ErrInvalidArgument)
	}
	return nil
}
