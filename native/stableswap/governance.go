package stableswap

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"basketswap/core/events"
	"basketswap/core/fixedpoint"
	nativecommon "basketswap/native/common"
)

func (p *Pool) governed(ctx context.Context, op string, caller common.Address, fn func(tx *poolTx) error) error {
	return p.execute(ctx, op, func(tx *poolTx) error {
		if err := p.auth.RequireGovernance(caller); err != nil {
			return err
		}
		if tx.state.terminated {
			return fmt.Errorf("pool terminated: %w", nativecommon.ErrNotActive)
		}
		return fn(tx)
	})
}

// SetFee updates the exchange and mint fee rate.
func (p *Pool) SetFee(ctx context.Context, caller common.Address, rate uint64) error {
	return p.governed(ctx, "set_fee", caller, func(tx *poolTx) error {
		if !fixedpoint.ValidRate(rate) {
			return fmt.Errorf("fee rate %d above denominator: %w", rate, nativecommon.ErrInvalidArgument)
		}
		tx.events.Emit(events.PoolFeeUpdated{Kind: FeeKindSwap, OldRate: tx.state.fee, NewRate: rate})
		tx.state.fee = rate
		return nil
	})
}

// SetRedemptionFee updates the redemption fee rate. A rate of 100% is
// rejected since exact-amount redemptions gross the fee up.
func (p *Pool) SetRedemptionFee(ctx context.Context, caller common.Address, rate uint64) error {
	return p.governed(ctx, "set_redemption_fee", caller, func(tx *poolTx) error {
		if rate >= fixedpoint.FeeDenominator.Uint64() {
			return fmt.Errorf("redemption fee rate %d must be below denominator: %w", rate, nativecommon.ErrInvalidArgument)
		}
		tx.events.Emit(events.PoolFeeUpdated{Kind: FeeKindRedemption, OldRate: tx.state.redemptionFee, NewRate: rate})
		tx.state.redemptionFee = rate
		return nil
	})
}

func (p *Pool) Pause(ctx context.Context, caller common.Address) error {
	return p.governed(ctx, "pause", caller, func(tx *poolTx) error {
		if tx.state.paused {
			return fmt.Errorf("pool already paused: %w", nativecommon.ErrInvalidArgument)
		}
		tx.state.paused = true
		tx.events.Emit(events.PoolStatusChanged{Type: events.TypePoolPaused, Caller: caller, At: tx.now.Unix()})
		return nil
	})
}

func (p *Pool) Unpause(ctx context.Context, caller common.Address) error {
	return p.governed(ctx, "unpause", caller, func(tx *poolTx) error {
		if !tx.state.paused {
			return fmt.Errorf("pool not paused: %w", nativecommon.ErrInvalidArgument)
		}
		tx.state.paused = false
		tx.events.Emit(events.PoolStatusChanged{Type: events.TypePoolUnpaused, Caller: caller, At: tx.now.Unix()})
		return nil
	})
}

// Terminate permanently disables every mutating operation.
func (p *Pool) Terminate(ctx context.Context, caller common.Address) error {
	return p.governed(ctx, "terminate", caller, func(tx *poolTx) error {
		tx.state.terminated = true
		tx.events.Emit(events.PoolStatusChanged{Type: events.TypePoolTerminated, Caller: caller, At: tx.now.Unix()})
		return nil
	})
}

// RampA starts a linear move of A from its current value to futureA, ending at
// futureTime. Ramps must last at least MinRampTime, start at least
// MinRampTime after the previous one and change A by at most MaxAChange times.
func (p *Pool) RampA(ctx context.Context, caller common.Address, futureA uint64, futureTime time.Time) error {
	return p.governed(ctx, "ramp_a", caller, func(tx *poolTx) error {
		now := tx.now.Unix()
		minSpacing := int64(MinRampTime / time.Second)
		if now < tx.state.ramp.InitialTime+minSpacing {
			return fmt.Errorf("ramp started less than %s ago: %w", MinRampTime, nativecommon.ErrInvalidArgument)
		}
		if futureTime.Unix() < now+minSpacing {
			return fmt.Errorf("ramp shorter than %s: %w", MinRampTime, nativecommon.ErrInvalidArgument)
		}
		if futureA == 0 || futureA >= MaxA {
			return fmt.Errorf("future A %d out of range: %w", futureA, nativecommon.ErrInvalidArgument)
		}
		current := tx.a
		if futureA < current && futureA*MaxAChange < current {
			return fmt.Errorf("future A %d drops more than %dx from %d: %w", futureA, MaxAChange, current, nativecommon.ErrInvalidArgument)
		}
		if futureA > current && futureA > current*MaxAChange {
			return fmt.Errorf("future A %d rises more than %dx from %d: %w", futureA, MaxAChange, current, nativecommon.ErrInvalidArgument)
		}
		tx.state.ramp = Ramp{
			InitialA:    current,
			FutureA:     futureA,
			InitialTime: now,
			FutureTime:  futureTime.Unix(),
		}
		tx.events.Emit(events.PoolRampA{
			InitialA:    current,
			FutureA:     futureA,
			InitialTime: now,
			FutureTime:  futureTime.Unix(),
		})
		return nil
	})
}

// StopRampA freezes A at its current value.
func (p *Pool) StopRampA(ctx context.Context, caller common.Address) error {
	return p.governed(ctx, "stop_ramp_a", caller, func(tx *poolTx) error {
		now := tx.now.Unix()
		current := tx.a
		tx.state.ramp = Ramp{InitialA: current, FutureA: current, InitialTime: now, FutureTime: now}
		tx.events.Emit(events.PoolStopRampA{A: current, At: now})
		return nil
	})
}
