package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"basketswap/config"
	"basketswap/core/events"
	"basketswap/core/types"
	"basketswap/native/basket"
	nativecommon "basketswap/native/common"
	"basketswap/native/stableswap"
	"basketswap/observability"
	"basketswap/state/bank"
	"basketswap/storage"
)

const poolTokenDecimals = 18

type simulator struct {
	cfg      *config.Config
	bank     *bank.Bank
	ledger   *basket.Ledger
	pool     *stableswap.Pool
	recorder *events.Recorder
	logger   *slog.Logger
	out      io.Writer

	now            time.Time
	basketDecimals uint8
	coinIndex      map[string]int
	coinDecimals   map[common.Address]uint8
	seen           int

	history *storage.History
	runName string
}

// feeLog is the fee receiver hook used by the simulator. It logs every fee
// the ledger routes to the fee receiver.
type feeLog struct {
	logger *slog.Logger
	total  map[common.Address]*uint256.Int
}

func (f *feeLog) OnFeeReceived(_ context.Context, asset common.Address, amount *uint256.Int) error {
	if f.total[asset] == nil {
		f.total[asset] = new(uint256.Int)
	}
	f.total[asset].Add(f.total[asset], amount)
	f.logger.Info("fee received", "asset", asset.Hex(), "amount", amount.Dec())
	return nil
}

func newSimulator(cfg *config.Config, logger *slog.Logger, out io.Writer, basketDecimals uint8, start time.Time) (*simulator, error) {
	b := bank.New()
	auth := nativecommon.NewAuthority(
		common.HexToAddress(cfg.Basket.Manager),
		common.HexToAddress(cfg.Pool.Governance),
	)

	assets := make([]common.Address, len(cfg.Basket.Assets))
	for i, asset := range cfg.Basket.Assets {
		assets[i] = common.HexToAddress(asset)
	}
	ledger, err := basket.NewLedger(basket.Config{
		Name:            cfg.Basket.Name,
		BasketToken:     common.HexToAddress(cfg.Basket.BasketToken),
		FeeReceiver:     common.HexToAddress(cfg.Basket.FeeReceiver),
		Assets:          assets,
		StrictSwapCheck: cfg.Basket.StrictSwapCheck,
	}, auth, b.Account(common.HexToAddress(cfg.Basket.Custody)), b)
	if err != nil {
		return nil, fmt.Errorf("basket ledger: %w", err)
	}

	coins := make([]common.Address, len(cfg.Pool.Coins))
	decimals := make([]uint8, len(cfg.Pool.Coins))
	coinIndex := make(map[string]int, len(cfg.Pool.Coins))
	coinDecimals := make(map[common.Address]uint8, len(cfg.Pool.Coins))
	for i, coin := range cfg.Pool.Coins {
		coins[i] = common.HexToAddress(coin.Address)
		decimals[i] = coin.Decimals
		coinDecimals[coins[i]] = coin.Decimals
		if coin.Symbol != "" {
			coinIndex[strings.ToUpper(coin.Symbol)] = i
		}
	}
	coinDecimals[common.HexToAddress(cfg.Pool.PoolToken)] = poolTokenDecimals
	pool, err := stableswap.NewPool(stableswap.Config{
		Name:          cfg.Pool.Name,
		Coins:         coins,
		Decimals:      decimals,
		A:             cfg.Pool.A,
		Fee:           cfg.Pool.Fee,
		RedemptionFee: cfg.Pool.RedemptionFee,
		PoolToken:     common.HexToAddress(cfg.Pool.PoolToken),
		FeeRecipient:  common.HexToAddress(cfg.Pool.FeeRecipient),
	}, auth, b.Account(common.HexToAddress(cfg.Pool.Custody)), b)
	if err != nil {
		return nil, fmt.Errorf("stable swap pool: %w", err)
	}

	s := &simulator{
		cfg:            cfg,
		bank:           b,
		ledger:         ledger,
		pool:           pool,
		recorder:       &events.Recorder{},
		logger:         logger,
		out:            out,
		now:            start,
		basketDecimals: basketDecimals,
		coinIndex:      coinIndex,
		coinDecimals:   coinDecimals,
	}
	ledger.SetLogger(logger)
	ledger.SetEmitter(s.recorder)
	ledger.SetFeeHook(&feeLog{logger: logger, total: make(map[common.Address]*uint256.Int)})
	pool.SetLogger(logger)
	pool.SetEmitter(s.recorder)
	pool.SetNowFunc(func() time.Time { return s.now })
	return s, nil
}

// recordTo makes run persist every step under runName.
func (s *simulator) recordTo(history *storage.History, runName string) {
	s.history = history
	s.runName = runName
}

// run funds the scenario accounts and replays every step. A step whose
// outcome differs from its expectation aborts the run.
func (s *simulator) run(ctx context.Context, sc *Scenario) error {
	for _, acct := range sc.Accounts {
		if err := s.fund(acct); err != nil {
			return err
		}
	}
	for i, step := range sc.Steps {
		err := stepHandlers[step.Op](ctx, s, step)
		reason := observability.ErrorReason(err)
		switch {
		case step.Expect == "" && err != nil:
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		case step.Expect != "" && err == nil:
			return fmt.Errorf("step %d (%s): expected %s, succeeded", i, step.Op, step.Expect)
		case step.Expect != "" && reason != step.Expect:
			return fmt.Errorf("step %d (%s): expected %s, got %s: %w", i, step.Op, step.Expect, reason, err)
		}
		if err != nil {
			fmt.Fprintf(s.out, "step %d %s rejected: %s\n", i, step.Op, reason)
		}
		rendered := s.printEvents(i)
		if s.history != nil {
			if err := s.history.Record(storage.StepRecord{
				Run:        s.runName,
				Step:       i,
				Op:         step.Op,
				Reason:     reason,
				BasketRoot: common.Hash(s.ledger.StateRoot()).Hex(),
				PoolRoot:   common.Hash(s.pool.StateRoot()).Hex(),
				Events:     rendered,
			}); err != nil {
				return fmt.Errorf("record step %d: %w", i, err)
			}
		}
		// drop the bank's supply logs, the engine events already cover the step
		s.bank.Finalise()
	}
	s.printSummary()
	return nil
}

func (s *simulator) fund(acct Account) error {
	holder, err := parseAddress(acct.Holder)
	if err != nil {
		return fmt.Errorf("account %q: %w", acct.Holder, err)
	}
	keys := make([]string, 0, len(acct.Balances))
	for key := range acct.Balances {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		asset, decimals, err := s.resolveAsset(key)
		if err != nil {
			return fmt.Errorf("account %s: %w", acct.Holder, err)
		}
		amount, err := parseAmount(acct.Balances[key], decimals)
		if err != nil {
			return fmt.Errorf("account %s: %s: %w", acct.Holder, key, err)
		}
		if err := s.bank.Mint(holder, asset, amount); err != nil {
			return err
		}
	}
	return nil
}

// resolveAsset accepts a pool coin symbol or an address.
func (s *simulator) resolveAsset(key string) (common.Address, uint8, error) {
	if idx, ok := s.coinIndex[strings.ToUpper(strings.TrimSpace(key))]; ok {
		return s.pool.Coins()[idx], s.cfg.Pool.Coins[idx].Decimals, nil
	}
	addr, err := parseAddress(key)
	if err != nil {
		return common.Address{}, 0, err
	}
	return addr, s.decimalsOf(addr), nil
}

func (s *simulator) decimalsOf(asset common.Address) uint8 {
	if d, ok := s.coinDecimals[asset]; ok {
		return d
	}
	return s.basketDecimals
}

// printEvents prints the events emitted since the previous step and returns
// their rendered payloads.
func (s *simulator) printEvents(step int) []*types.Event {
	all := s.recorder.Events()
	var rendered []*types.Event
	for _, evt := range all[s.seen:] {
		line := evt.EventType()
		if r, ok := evt.(events.Renderable); ok {
			payload := r.Event()
			rendered = append(rendered, payload)
			keys := make([]string, 0, len(payload.Attributes))
			for key := range payload.Attributes {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				line += fmt.Sprintf(" %s=%s", key, payload.Attributes[key])
			}
		}
		fmt.Fprintf(s.out, "step %d %s\n", step, line)
	}
	s.seen = len(all)
	return rendered
}

func (s *simulator) printSummary() {
	fmt.Fprintln(s.out, "basket reserves:")
	for _, entry := range s.ledger.Balances() {
		fmt.Fprintf(s.out, "  %s %s\n", entry.Asset.Hex(), formatAmount(entry.Balance, s.basketDecimals))
	}
	if total, err := s.ledger.TotalReserves(); err == nil {
		fmt.Fprintf(s.out, "  total %s\n", formatAmount(total, s.basketDecimals))
	}
	if supply, err := s.bank.TotalSupply(s.ledger.BasketToken()); err == nil {
		fmt.Fprintf(s.out, "  basket supply %s\n", formatAmount(supply, s.basketDecimals))
	}
	fmt.Fprintf(s.out, "  state root %s\n", common.Hash(s.ledger.StateRoot()).Hex())

	// pool balances are normalized to 18 decimals
	fmt.Fprintln(s.out, "pool:")
	for i, bal := range s.pool.Balances() {
		fmt.Fprintf(s.out, "  %s %s\n", s.coinLabel(i), formatAmount(bal, poolTokenDecimals))
	}
	fmt.Fprintf(s.out, "  A %d\n", s.pool.A())
	fmt.Fprintf(s.out, "  supply %s\n", formatAmount(s.pool.TotalSupply(), poolTokenDecimals))
	if price, err := s.pool.VirtualPrice(); err == nil {
		fmt.Fprintf(s.out, "  virtual price %s\n", formatAmount(price, poolTokenDecimals))
	}
	fmt.Fprintf(s.out, "  state root %s\n", common.Hash(s.pool.StateRoot()).Hex())

	if s.cfg.Metrics.Enabled {
		s.printMetrics()
	}
}

func (s *simulator) coinLabel(i int) string {
	if symbol := s.cfg.Pool.Coins[i].Symbol; symbol != "" {
		return symbol
	}
	return s.cfg.Pool.Coins[i].Address
}

func (s *simulator) printMetrics() {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		s.logger.Warn("gather metrics", "err", err)
		return
	}
	fmt.Fprintln(s.out, "metrics:")
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), "basketswap_") {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, pair := range metric.GetLabel() {
				labels = append(labels, pair.GetName()+"="+pair.GetValue())
			}
			var value string
			switch {
			case metric.GetCounter() != nil:
				value = fmt.Sprintf("%g", metric.GetCounter().GetValue())
			case metric.GetHistogram() != nil:
				value = fmt.Sprintf("count=%d", metric.GetHistogram().GetSampleCount())
			default:
				continue
			}
			fmt.Fprintf(s.out, "  %s{%s} %s\n", family.GetName(), strings.Join(labels, ","), value)
		}
	}
}

func parseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

// parseAmount converts a decimal string in whole units into base units.
// An empty string is zero.
func parseAmount(raw string, decimals uint8) (*uint256.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return new(uint256.Int), nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", raw)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", raw, decimals)
	}
	v, err := uint256.FromDecimal(scaled.StringFixed(0))
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", raw, err)
	}
	return v, nil
}

func formatAmount(v *uint256.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -int32(decimals)).String()
}

func parseAmounts(raw []string, decimals []uint8) ([]*uint256.Int, error) {
	if raw == nil {
		return nil, nil
	}
	if len(raw) != len(decimals) {
		return nil, fmt.Errorf("expected %d amounts, got %d", len(decimals), len(raw))
	}
	out := make([]*uint256.Int, len(raw))
	for i, value := range raw {
		amount, err := parseAmount(value, decimals[i])
		if err != nil {
			return nil, err
		}
		out[i] = amount
	}
	return out, nil
}
