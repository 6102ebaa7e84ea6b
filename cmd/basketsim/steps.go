package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type stepHandler func(ctx context.Context, s *simulator, step Step) error

var stepHandlers = map[string]stepHandler{
	"basket.mint":             basketMint,
	"basket.redeem":           basketRedeem,
	"basket.swap":             basketSwap,
	"pool.mint":               poolMint,
	"pool.exchange":           poolExchange,
	"pool.redeem_proportion":  poolRedeemProportion,
	"pool.redeem_single":      poolRedeemSingle,
	"pool.redeem_multi":       poolRedeemMulti,
	"pool.pause":              poolPause,
	"pool.unpause":            poolUnpause,
	"pool.terminate":          poolTerminate,
	"pool.set_fee":            poolSetFee,
	"pool.set_redemption_fee": poolSetRedemptionFee,
	"pool.ramp_a":             poolRampA,
	"pool.stop_ramp_a":        poolStopRampA,
	"clock.advance":           clockAdvance,
}

// caller resolves the step caller, falling back to fallback when unset.
func (s *simulator) caller(step Step, fallback string) (common.Address, error) {
	raw := step.Caller
	if strings.TrimSpace(raw) == "" {
		raw = fallback
	}
	return parseAddress(raw)
}

func (s *simulator) basketArgs(step Step) (caller, source, asset common.Address, amount, fee *uint256.Int, err error) {
	if caller, err = s.caller(step, s.cfg.Basket.Manager); err != nil {
		return
	}
	if source, err = parseAddress(step.Source); err != nil {
		return
	}
	if asset, _, err = s.resolveAsset(step.Asset); err != nil {
		return
	}
	if amount, err = parseAmount(step.Amount, s.basketDecimals); err != nil {
		return
	}
	fee, err = parseAmount(step.Fee, s.basketDecimals)
	return
}

func basketMint(ctx context.Context, s *simulator, step Step) error {
	caller, source, asset, amount, fee, err := s.basketArgs(step)
	if err != nil {
		return err
	}
	net, err := s.ledger.Mint(ctx, caller, source, asset, amount, fee)
	if err != nil {
		return err
	}
	s.logger.Debug("basket mint", "source", source.Hex(), "minted", net.Dec())
	return nil
}

func basketRedeem(ctx context.Context, s *simulator, step Step) error {
	caller, source, asset, amount, fee, err := s.basketArgs(step)
	if err != nil {
		return err
	}
	net, err := s.ledger.Redeem(ctx, caller, source, asset, amount, fee)
	if err != nil {
		return err
	}
	s.logger.Debug("basket redeem", "source", source.Hex(), "paid", net.Dec())
	return nil
}

func basketSwap(ctx context.Context, s *simulator, step Step) error {
	caller, source, input, amount, inputFee, err := s.basketArgs(step)
	if err != nil {
		return err
	}
	output, _, err := s.resolveAsset(step.Output)
	if err != nil {
		return err
	}
	outputFee, err := parseAmount(step.OutputFee, s.basketDecimals)
	if err != nil {
		return err
	}
	out, err := s.ledger.Swap(ctx, caller, source, input, output, amount, inputFee, outputFee)
	if err != nil {
		return err
	}
	s.logger.Debug("basket swap", "source", source.Hex(), "output", out.Dec())
	return nil
}

func (s *simulator) coinDecimalsList() []uint8 {
	out := make([]uint8, len(s.cfg.Pool.Coins))
	for i, coin := range s.cfg.Pool.Coins {
		out[i] = coin.Decimals
	}
	return out
}

func (s *simulator) coinDecimalsAt(i int) (uint8, error) {
	if i < 0 || i >= len(s.cfg.Pool.Coins) {
		return 0, fmt.Errorf("coin index %d out of range", i)
	}
	return s.cfg.Pool.Coins[i].Decimals, nil
}

func poolMint(ctx context.Context, s *simulator, step Step) error {
	caller, err := s.caller(step, "")
	if err != nil {
		return err
	}
	amounts, err := parseAmounts(step.Amounts, s.coinDecimalsList())
	if err != nil {
		return err
	}
	floor, err := parseAmount(step.Limit, poolTokenDecimals)
	if err != nil {
		return err
	}
	minted, err := s.pool.Mint(ctx, caller, amounts, floor)
	if err != nil {
		return err
	}
	s.logger.Debug("pool mint", "provider", caller.Hex(), "minted", minted.Dec())
	return nil
}

func poolExchange(ctx context.Context, s *simulator, step Step) error {
	caller, err := s.caller(step, "")
	if err != nil {
		return err
	}
	inDecimals, err := s.coinDecimalsAt(step.From)
	if err != nil {
		return err
	}
	outDecimals, err := s.coinDecimalsAt(step.To)
	if err != nil {
		return err
	}
	dx, err := parseAmount(step.Amount, inDecimals)
	if err != nil {
		return err
	}
	minDy, err := parseAmount(step.Limit, outDecimals)
	if err != nil {
		return err
	}
	dy, err := s.pool.Exchange(ctx, caller, step.From, step.To, dx, minDy)
	if err != nil {
		return err
	}
	s.logger.Debug("pool exchange", "buyer", caller.Hex(), "bought", dy.Dec())
	return nil
}

func poolRedeemProportion(ctx context.Context, s *simulator, step Step) error {
	caller, err := s.caller(step, "")
	if err != nil {
		return err
	}
	amount, err := parseAmount(step.Amount, poolTokenDecimals)
	if err != nil {
		return err
	}
	floors, err := parseAmounts(step.Limits, s.coinDecimalsList())
	if err != nil {
		return err
	}
	_, err = s.pool.RedeemProportion(ctx, caller, amount, floors)
	return err
}

func poolRedeemSingle(ctx context.Context, s *simulator, step Step) error {
	caller, err := s.caller(step, "")
	if err != nil {
		return err
	}
	outDecimals, err := s.coinDecimalsAt(step.To)
	if err != nil {
		return err
	}
	amount, err := parseAmount(step.Amount, poolTokenDecimals)
	if err != nil {
		return err
	}
	minDy, err := parseAmount(step.Limit, outDecimals)
	if err != nil {
		return err
	}
	_, err = s.pool.RedeemSingle(ctx, caller, amount, step.To, minDy)
	return err
}

func poolRedeemMulti(ctx context.Context, s *simulator, step Step) error {
	caller, err := s.caller(step, "")
	if err != nil {
		return err
	}
	amounts, err := parseAmounts(step.Amounts, s.coinDecimalsList())
	if err != nil {
		return err
	}
	var ceiling *uint256.Int
	if strings.TrimSpace(step.Limit) != "" {
		if ceiling, err = parseAmount(step.Limit, poolTokenDecimals); err != nil {
			return err
		}
	}
	_, err = s.pool.RedeemMulti(ctx, caller, amounts, ceiling)
	return err
}

func (s *simulator) governor(step Step) (common.Address, error) {
	return s.caller(step, s.cfg.Pool.Governance)
}

func poolPause(ctx context.Context, s *simulator, step Step) error {
	caller, err := s.governor(step)
	if err != nil {
		return err
	}
	return s.pool.Pause(ctx, caller)
}

func poolUnpause(ctx context.Context, s *simulator, step Step) error {
	caller, err := s.governor(step)
	if err != nil {
		return err
	}
	return s.pool.Unpause(ctx, caller)
}

func poolTerminate(ctx context.Context, s *simulator, step Step) error {
	caller, err := s.governor(step)
	if err != nil {
		return err
	}
	return s.pool.Terminate(ctx, caller)
}

func poolSetFee(ctx context.Context, s *simulator, step Step) error {
	caller, err := s.governor(step)
	if err != nil {
		return err
	}
	return s.pool.SetFee(ctx, caller, step.Rate)
}

func poolSetRedemptionFee(ctx context.Context, s *simulator, step Step) error {
	caller, err := s.governor(step)
	if err != nil {
		return err
	}
	return s.pool.SetRedemptionFee(ctx, caller, step.Rate)
}

// poolRampA ramps A towards FutureA over the After duration from now.
func poolRampA(ctx context.Context, s *simulator, step Step) error {
	caller, err := s.governor(step)
	if err != nil {
		return err
	}
	return s.pool.RampA(ctx, caller, step.FutureA, s.now.Add(step.After.Duration))
}

func poolStopRampA(ctx context.Context, s *simulator, step Step) error {
	caller, err := s.governor(step)
	if err != nil {
		return err
	}
	return s.pool.StopRampA(ctx, caller)
}

func clockAdvance(_ context.Context, s *simulator, step Step) error {
	if step.After.Duration <= 0 {
		return fmt.Errorf("clock.advance needs a positive duration")
	}
	s.now = s.now.Add(step.After.Duration)
	return nil
}
