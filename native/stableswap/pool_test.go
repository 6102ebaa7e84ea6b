package stableswap

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"basketswap/core/events"
	"basketswap/core/fixedpoint"
	nativecommon "basketswap/native/common"
	"basketswap/observability"
	"basketswap/state/bank"
)

var (
	governance   = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	provider     = common.HexToAddress("0x0000000000000000000000000000000000000b22")
	feeRecipient = common.HexToAddress("0x0000000000000000000000000000000000000f33")
	custodyAddr  = common.HexToAddress("0x0000000000000000000000000000000000000c44")
	poolToken    = common.HexToAddress("0x0000000000000000000000000000000000000d55")
	wbtc         = common.HexToAddress("0x0000000000000000000000000000000000000201")
	usdt         = common.HexToAddress("0x0000000000000000000000000000000000000202")
)

type poolFixture struct {
	bank     *bank.Bank
	pool     *Pool
	recorder *events.Recorder
	now      time.Time
}

func newPoolFixture(t *testing.T, fee uint64) *poolFixture {
	t.Helper()
	b := bank.New()
	auth := nativecommon.NewAuthority(common.Address{}, governance)
	pool, err := NewPool(Config{
		Coins:        []common.Address{wbtc, usdt},
		Decimals:     []uint8{18, 6},
		A:            100,
		Fee:          fee,
		PoolToken:    poolToken,
		FeeRecipient: feeRecipient,
	}, auth, b.Account(custodyAddr), b)
	require.NoError(t, err)
	f := &poolFixture{
		bank:     b,
		pool:     pool,
		recorder: &events.Recorder{},
		now:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	pool.SetEmitter(f.recorder)
	pool.SetNowFunc(func() time.Time { return f.now })
	require.NoError(t, b.Mint(provider, wbtc, e18(10_000)))
	require.NoError(t, b.Mint(provider, usdt, uint256.NewInt(10_000_000_000)))
	return f
}

// seed deposits 1000 of each coin.
func (f *poolFixture) seed(t *testing.T) *uint256.Int {
	t.Helper()
	minted, err := f.pool.Mint(context.Background(), provider, []*uint256.Int{e18(1000), uint256.NewInt(1_000_000_000)}, nil)
	require.NoError(t, err)
	return minted
}

func (f *poolFixture) requireSupplyTracksD(t *testing.T) {
	t.Helper()
	d, err := f.pool.D()
	require.NoError(t, err)
	require.Equal(t, d, f.pool.TotalSupply())
	supply, err := f.bank.TotalSupply(poolToken)
	require.NoError(t, err)
	require.Equal(t, supply, f.pool.TotalSupply())
}

func TestInitialDepositMustSeedEveryCoin(t *testing.T) {
	f := newPoolFixture(t, 0)
	_, err := f.pool.Mint(context.Background(), provider, []*uint256.Int{e18(1000), new(uint256.Int)}, nil)
	require.ErrorIs(t, err, nativecommon.ErrInvalidArgument)
	require.Equal(t, e18(10_000), f.bank.BalanceOf(provider, wbtc))
	require.Zero(t, f.pool.Sequence())

	_, err = f.pool.Mint(context.Background(), provider, []*uint256.Int{e18(1)}, nil)
	require.ErrorIs(t, err, nativecommon.ErrInvalidArgument)
}

func TestMintSplitsFee(t *testing.T) {
	f := newPoolFixture(t, 4_000_000) // 0.04%
	amounts := []*uint256.Int{e18(1000), uint256.NewInt(1_000_000_000)}
	quoted, quotedFee, err := f.pool.GetMintAmount(amounts)
	require.NoError(t, err)

	minted, err := f.pool.Mint(context.Background(), provider, amounts, nil)
	require.NoError(t, err)
	require.Equal(t, quoted, minted)

	fee := fixedpoint.MustFromDecimal("800000000000000000")
	require.Equal(t, fee, quotedFee)
	require.Equal(t, new(uint256.Int).Sub(e18(2000), fee), minted)
	require.Equal(t, fee, f.bank.BalanceOf(feeRecipient, poolToken))
	require.Equal(t, minted, f.bank.BalanceOf(provider, poolToken))
	require.Equal(t, []*uint256.Int{e18(1000), e18(1000)}, f.pool.Balances())
	require.Equal(t, uint64(1_000_000_000), f.bank.BalanceOf(custodyAddr, usdt).Uint64())
	f.requireSupplyTracksD(t)

	mintedEvents := f.recorder.OfType(events.TypePoolMinted)
	require.Len(t, mintedEvents, 1)
	evt := mintedEvents[0].(events.PoolMinted)
	require.True(t, evt.OldD.IsZero())
	require.Equal(t, e18(2000), evt.NewD)
	require.Equal(t, fee, evt.FeeAmount)
}

func TestMintSlippage(t *testing.T) {
	f := newPoolFixture(t, 0)
	f.seed(t)
	_, err := f.pool.Mint(context.Background(), provider, []*uint256.Int{e18(10), new(uint256.Int)}, e18(10))
	require.ErrorIs(t, err, nativecommon.ErrSlippageExceeded)
	require.Equal(t, []*uint256.Int{e18(1000), e18(1000)}, f.pool.Balances())
}

func TestMintRejectsFeeOnTransferCoin(t *testing.T) {
	f := newPoolFixture(t, 0)
	f.bank.SetTransferFee(wbtc, 10_000_000)
	_, err := f.pool.Mint(context.Background(), provider, []*uint256.Int{e18(1000), uint256.NewInt(1_000_000_000)}, nil)
	require.ErrorIs(t, err, nativecommon.ErrTransferMismatch)
	require.True(t, f.pool.TotalSupply().IsZero())
	require.True(t, f.bank.BalanceOf(provider, poolToken).IsZero())
}

func TestExchange(t *testing.T) {
	f := newPoolFixture(t, 4_000_000)
	f.seed(t)
	feeBefore := f.bank.BalanceOf(feeRecipient, poolToken)
	usdtBefore := f.bank.BalanceOf(provider, usdt)

	quoted, quotedFee, err := f.pool.GetExchangeAmount(0, 1, e18(10))
	require.NoError(t, err)
	dy, err := f.pool.Exchange(context.Background(), provider, 0, 1, e18(10), nil)
	require.NoError(t, err)
	require.Equal(t, quoted, dy)
	require.True(t, dy.Lt(uint256.NewInt(10_000_000)), "dy %s", dy.Dec())
	require.True(t, dy.Gt(uint256.NewInt(9_900_000)), "dy %s", dy.Dec())
	require.False(t, quotedFee.IsZero())

	require.Equal(t, new(uint256.Int).Add(usdtBefore, dy), f.bank.BalanceOf(provider, usdt))
	balances := f.pool.Balances()
	require.Equal(t, e18(1010), balances[0])
	require.Equal(t, new(uint256.Int).Sub(e18(1000), new(uint256.Int).Mul(dy, uint256.NewInt(1_000_000_000_000))), balances[1])
	require.True(t, f.bank.BalanceOf(feeRecipient, poolToken).Gt(feeBefore))
	f.requireSupplyTracksD(t)

	price, err := f.pool.VirtualPrice()
	require.NoError(t, err)
	require.Equal(t, fixedpoint.One, price)

	exchanged := f.recorder.OfType(events.TypePoolExchanged)
	require.Len(t, exchanged, 1)
	require.Equal(t, dy, exchanged[0].(events.PoolExchanged).BoughtAmount)
}

func TestExchangeSlippageLeavesStateUntouched(t *testing.T) {
	f := newPoolFixture(t, 4_000_000)
	f.seed(t)
	root := f.pool.StateRoot()
	wbtcBefore := f.bank.BalanceOf(provider, wbtc)

	_, err := f.pool.Exchange(context.Background(), provider, 0, 1, e18(10), uint256.NewInt(10_000_000))
	require.ErrorIs(t, err, nativecommon.ErrSlippageExceeded)
	require.Equal(t, root, f.pool.StateRoot())
	require.Equal(t, wbtcBefore, f.bank.BalanceOf(provider, wbtc))
	require.Empty(t, f.recorder.OfType(events.TypePoolExchanged))
}

func TestExchangeArguments(t *testing.T) {
	f := newPoolFixture(t, 0)
	_, err := f.pool.Exchange(context.Background(), provider, 0, 1, e18(1), nil)
	require.ErrorIs(t, err, nativecommon.ErrInsufficientBalance)

	f.seed(t)
	_, err = f.pool.Exchange(context.Background(), provider, 1, 1, uint256.NewInt(1), nil)
	require.ErrorIs(t, err, nativecommon.ErrInvalidArgument)
	_, err = f.pool.Exchange(context.Background(), provider, 0, 2, e18(1), nil)
	require.ErrorIs(t, err, nativecommon.ErrInvalidArgument)
	_, err = f.pool.Exchange(context.Background(), provider, 0, 1, new(uint256.Int), nil)
	require.ErrorIs(t, err, nativecommon.ErrInvalidArgument)
}

func TestRedeemProportion(t *testing.T) {
	f := newPoolFixture(t, 0)
	f.seed(t)

	amounts, err := f.pool.RedeemProportion(context.Background(), provider, e18(1000), nil)
	require.NoError(t, err)
	require.Equal(t, []*uint256.Int{e18(500), uint256.NewInt(500_000_000)}, amounts)
	require.Equal(t, []*uint256.Int{e18(500), e18(500)}, f.pool.Balances())
	require.Equal(t, e18(1000), f.bank.BalanceOf(provider, poolToken))
	f.requireSupplyTracksD(t)

	_, err = f.pool.RedeemProportion(context.Background(), provider, e18(10), []*uint256.Int{e18(10), nil})
	require.ErrorIs(t, err, nativecommon.ErrSlippageExceeded)
	_, err = f.pool.RedeemProportion(context.Background(), provider, e18(5000), nil)
	require.ErrorIs(t, err, nativecommon.ErrInsufficientBalance)
}

func TestRedeemSingle(t *testing.T) {
	f := newPoolFixture(t, 0)
	f.seed(t)

	quoted, _, err := f.pool.GetRedeemSingleAmount(e18(10), 1)
	require.NoError(t, err)
	dy, err := f.pool.RedeemSingle(context.Background(), provider, e18(10), 1, nil)
	require.NoError(t, err)
	require.Equal(t, quoted, dy)
	require.True(t, dy.Lt(uint256.NewInt(10_000_000)), "dy %s", dy.Dec())
	require.True(t, dy.Gt(uint256.NewInt(9_900_000)), "dy %s", dy.Dec())
	require.Equal(t, e18(1000), f.pool.Balances()[0])
	f.requireSupplyTracksD(t)

	redeemed := f.recorder.OfType(events.TypePoolRedeemed)
	require.Len(t, redeemed, 1)
	require.Equal(t, events.RedeemKindSingle, redeemed[0].(events.PoolRedeemed).Kind)
}

func TestRedeemMultiGrossesUpFee(t *testing.T) {
	f := newPoolFixture(t, 0)
	f.seed(t)
	require.NoError(t, f.pool.SetRedemptionFee(context.Background(), governance, 100_000_000)) // 1%
	amounts := []*uint256.Int{e18(10), new(uint256.Int)}

	quoted, quotedFee, err := f.pool.GetRedemptionAmount(amounts)
	require.NoError(t, err)
	_, err = f.pool.RedeemMulti(context.Background(), provider, amounts, uint256.NewInt(1))
	require.ErrorIs(t, err, nativecommon.ErrSlippageExceeded)

	taken, err := f.pool.RedeemMulti(context.Background(), provider, amounts, nil)
	require.NoError(t, err)
	require.Equal(t, quoted, taken)
	burned := new(uint256.Int).Sub(taken, quotedFee)
	// burn = taken * 99%
	expected := new(uint256.Int).Div(new(uint256.Int).Mul(taken, uint256.NewInt(99)), uint256.NewInt(100))
	require.True(t, fixedpoint.AbsDiff(burned, expected).Lt(uint256.NewInt(100)))
	require.Equal(t, quotedFee, f.bank.BalanceOf(feeRecipient, poolToken))
	require.Equal(t, e18(990), f.pool.Balances()[0])
	require.Equal(t, e18(9010), f.bank.BalanceOf(provider, wbtc))
	f.requireSupplyTracksD(t)
}

func TestPauseAndTerminate(t *testing.T) {
	f := newPoolFixture(t, 0)
	ctx := context.Background()
	f.seed(t)

	require.ErrorIs(t, f.pool.Pause(ctx, provider), nativecommon.ErrNotAuthorized)
	require.NoError(t, f.pool.Pause(ctx, governance))
	require.True(t, f.pool.Paused())
	_, err := f.pool.Exchange(ctx, provider, 0, 1, e18(1), nil)
	require.ErrorIs(t, err, nativecommon.ErrNotActive)
	_, err = f.pool.RedeemProportion(ctx, provider, e18(1), nil)
	require.ErrorIs(t, err, nativecommon.ErrNotActive)
	require.ErrorIs(t, f.pool.Pause(ctx, governance), nativecommon.ErrInvalidArgument)

	require.NoError(t, f.pool.Unpause(ctx, governance))
	_, err = f.pool.Exchange(ctx, provider, 0, 1, e18(1), nil)
	require.NoError(t, err)

	require.NoError(t, f.pool.Terminate(ctx, governance))
	_, err = f.pool.Mint(ctx, provider, []*uint256.Int{e18(1), uint256.NewInt(1_000_000)}, nil)
	require.ErrorIs(t, err, nativecommon.ErrNotActive)
	require.ErrorIs(t, f.pool.Unpause(ctx, governance), nativecommon.ErrNotActive)
	require.ErrorIs(t, f.pool.SetFee(ctx, governance, 1), nativecommon.ErrNotActive)

	require.Len(t, f.recorder.OfType(events.TypePoolPaused), 1)
	require.Len(t, f.recorder.OfType(events.TypePoolTerminated), 1)
}

func TestFeeUpdates(t *testing.T) {
	f := newPoolFixture(t, 0)
	ctx := context.Background()
	require.ErrorIs(t, f.pool.SetFee(ctx, provider, 1), nativecommon.ErrNotAuthorized)
	require.ErrorIs(t, f.pool.SetFee(ctx, governance, 10_000_000_001), nativecommon.ErrInvalidArgument)
	require.ErrorIs(t, f.pool.SetRedemptionFee(ctx, governance, 10_000_000_000), nativecommon.ErrInvalidArgument)
	require.NoError(t, f.pool.SetFee(ctx, governance, 30_000_000))
	require.Equal(t, uint64(30_000_000), f.pool.Fee())

	updates := f.recorder.OfType(events.TypePoolFeeUpdated)
	require.Len(t, updates, 1)
	require.Equal(t, events.PoolFeeUpdated{Kind: FeeKindSwap, OldRate: 0, NewRate: 30_000_000}, updates[0])
}

func TestRampA(t *testing.T) {
	f := newPoolFixture(t, 0)
	ctx := context.Background()
	start := f.now

	require.ErrorIs(t, f.pool.RampA(ctx, governance, 200, start.Add(time.Hour)), nativecommon.ErrInvalidArgument)
	require.ErrorIs(t, f.pool.RampA(ctx, governance, 1001, start.Add(48*time.Hour)), nativecommon.ErrInvalidArgument)
	require.ErrorIs(t, f.pool.RampA(ctx, governance, 9, start.Add(48*time.Hour)), nativecommon.ErrInvalidArgument)
	require.ErrorIs(t, f.pool.RampA(ctx, provider, 200, start.Add(48*time.Hour)), nativecommon.ErrNotAuthorized)

	require.NoError(t, f.pool.RampA(ctx, governance, 200, start.Add(48*time.Hour)))
	require.Equal(t, uint64(100), f.pool.A())

	f.now = start.Add(12 * time.Hour)
	require.Equal(t, uint64(125), f.pool.A())
	// ramps must be spaced at least a day apart
	require.ErrorIs(t, f.pool.RampA(ctx, governance, 300, f.now.Add(48*time.Hour)), nativecommon.ErrInvalidArgument)

	f.now = start.Add(24 * time.Hour)
	require.Equal(t, uint64(150), f.pool.A())
	require.NoError(t, f.pool.StopRampA(ctx, governance))
	f.now = start.Add(72 * time.Hour)
	require.Equal(t, uint64(150), f.pool.A())
	require.Len(t, f.recorder.OfType(events.TypePoolStopRampA), 1)
}

func TestNewPoolValidation(t *testing.T) {
	b := bank.New()
	auth := nativecommon.NewAuthority(common.Address{}, governance)
	base := Config{
		Coins:        []common.Address{wbtc, usdt},
		Decimals:     []uint8{18, 6},
		A:            100,
		PoolToken:    poolToken,
		FeeRecipient: feeRecipient,
	}
	cases := map[string]func(c *Config){
		"misaligned decimals": func(c *Config) { c.Decimals = []uint8{18} },
		"zero A":              func(c *Config) { c.A = 0 },
		"A too large":         func(c *Config) { c.A = MaxA },
		"duplicate coin":      func(c *Config) { c.Coins = []common.Address{wbtc, wbtc} },
		"decimals above 18":   func(c *Config) { c.Decimals = []uint8{18, 19} },
		"full redemption fee": func(c *Config) { c.RedemptionFee = 10_000_000_000 },
		"missing pool token":  func(c *Config) { c.PoolToken = common.Address{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			_, err := NewPool(cfg, auth, b.Account(custodyAddr), b)
			require.ErrorIs(t, err, nativecommon.ErrInvalidArgument)
		})
	}
}

func TestMintCompletesWhenSolverStopsAtCap(t *testing.T) {
	f := newPoolFixture(t, 0)
	_, err := f.pool.Mint(context.Background(), provider, []*uint256.Int{e18(1000), uint256.NewInt(100_000_000)}, nil)
	require.NoError(t, err)

	var logs bytes.Buffer
	f.pool.SetLogger(slog.New(slog.NewJSONHandler(&logs, nil)))
	counter := observability.Solver().NonConvergenceVec().WithLabelValues("d")
	before := testutil.ToFloat64(counter)

	withIterationCap(t, 1)
	minted, err := f.pool.Mint(context.Background(), provider, []*uint256.Int{e18(100), uint256.NewInt(10_000_000)}, nil)
	require.NoError(t, err)
	require.False(t, minted.IsZero())
	require.Equal(t, uint64(2), f.pool.Sequence())

	// two solves while planning plus one while collecting
	require.Equal(t, before+3, testutil.ToFloat64(counter))
	require.Contains(t, logs.String(), "invariant solver did not converge")
	require.Contains(t, logs.String(), `"solver":"d"`)
}
