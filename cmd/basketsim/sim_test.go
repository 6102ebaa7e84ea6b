package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"basketswap/config"
	"basketswap/storage"
)

const replayScenario = `
name: replay
start: "2026-03-01T00:00:00Z"
accounts:
  - holder: "0x00000000000000000000000000000000000000d1"
    balances:
      "0x0000000000000000000000000000000000000101": "1000"
      wbtc: "100"
      RENBTC: "100"
steps:
  - op: basket.mint
    source: "0x00000000000000000000000000000000000000d1"
    asset: "0x0000000000000000000000000000000000000101"
    amount: "100"
    fee: "1"
  - op: basket.redeem
    source: "0x00000000000000000000000000000000000000d1"
    asset: "0x0000000000000000000000000000000000000101"
    amount: "10"
    fee: "0.5"
  - op: basket.swap
    source: "0x00000000000000000000000000000000000000d1"
    asset: "0x0000000000000000000000000000000000000101"
    output: "0x0000000000000000000000000000000000000102"
    amount: "5"
    expect: insufficient_balance
  - op: pool.mint
    caller: "0x00000000000000000000000000000000000000d1"
    amounts: ["10", "10"]
  - op: pool.exchange
    caller: "0x00000000000000000000000000000000000000d1"
    from: 0
    to: 1
    amount: "1"
    limit: "2"
    expect: slippage_exceeded
  - op: pool.exchange
    caller: "0x00000000000000000000000000000000000000d1"
    from: 0
    to: 1
    amount: "1"
  - op: pool.pause
  - op: pool.exchange
    caller: "0x00000000000000000000000000000000000000d1"
    from: 1
    to: 0
    amount: "1"
    expect: not_active
  - op: pool.unpause
  - op: pool.redeem_proportion
    caller: "0x00000000000000000000000000000000000000d1"
    amount: "1"
  - op: pool.ramp_a
    future_a: 200
    after: 48h
  - op: clock.advance
    after: 24h
  - op: pool.stop_ramp_a
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseScenarioNormalisesOps(t *testing.T) {
	sc, err := ParseScenario([]byte("steps:\n  - op: \" Pool.Pause \"\n"))
	require.NoError(t, err)
	require.Equal(t, "pool.pause", sc.Steps[0].Op)

	start, err := sc.startTime()
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), start)
}

func TestParseScenarioRejectsUnknownOps(t *testing.T) {
	_, err := ParseScenario([]byte("steps:\n  - op: pool.drain\n"))
	require.ErrorContains(t, err, "unknown op")

	_, err = ParseScenario([]byte("name: empty\n"))
	require.ErrorContains(t, err, "no steps")

	_, err = ParseScenario([]byte("steps:\n  - op: clock.advance\n    after: soon\n"))
	require.ErrorContains(t, err, "parse duration")
}

func TestParseAmount(t *testing.T) {
	v, err := parseAmount("1.5", 6)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(1_500_000), v)

	v, err = parseAmount("", 18)
	require.NoError(t, err)
	require.True(t, v.IsZero())

	_, err = parseAmount("1.0000001", 6)
	require.ErrorContains(t, err, "more than 6 decimals")
	_, err = parseAmount("-1", 6)
	require.ErrorContains(t, err, "negative")
	_, err = parseAmount("ten", 6)
	require.Error(t, err)

	require.Equal(t, "1.5", formatAmount(uint256.NewInt(1_500_000), 6))
	require.Equal(t, "0", formatAmount(nil, 6))
}

func TestSimulatorReplaysScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(replayScenario))
	require.NoError(t, err)
	start, err := sc.startTime()
	require.NoError(t, err)

	var out bytes.Buffer
	sim, err := newSimulator(config.Default(), discardLogger(), &out, 18, start)
	require.NoError(t, err)
	require.NoError(t, sim.run(context.Background(), sc))

	report := out.String()
	require.Contains(t, report, "step 2 basket.swap rejected: insufficient_balance")
	require.Contains(t, report, "step 4 pool.exchange rejected: slippage_exceeded")
	require.Contains(t, report, "step 7 pool.exchange rejected: not_active")
	require.Contains(t, report, "  0x0000000000000000000000000000000000000101 90.5\n")
	require.Contains(t, report, "  basket supply 90.5\n")
	require.Contains(t, report, "  A 150\n")
	require.Equal(t, uint64(150), sim.pool.A())
}

func TestSimulatorStopsOnUnexpectedOutcome(t *testing.T) {
	cases := map[string]struct {
		scenario string
		want     string
	}{
		"unexpected failure": {
			scenario: "steps:\n  - op: pool.pause\n    caller: \"0x00000000000000000000000000000000000000d1\"\n",
			want:     "not authorized",
		},
		"unexpected success": {
			scenario: "steps:\n  - op: pool.pause\n    expect: not_authorized\n",
			want:     "expected not_authorized, succeeded",
		},
		"wrong reason": {
			scenario: "steps:\n  - op: pool.unpause\n    expect: not_authorized\n",
			want:     "got invalid_argument",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			sc, err := ParseScenario([]byte(tc.scenario))
			require.NoError(t, err)
			sim, err := newSimulator(config.Default(), discardLogger(), io.Discard, 18, time.Unix(0, 0))
			require.NoError(t, err)
			require.ErrorContains(t, sim.run(context.Background(), sc), tc.want)
		})
	}
}

func TestSolveCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"solve", "--a", "100", "--index", "1", "1000", "1000"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "D=2000 ")
	require.Contains(t, out.String(), "converged=true")
	require.Contains(t, out.String(), "y[1]=")
}

func TestInitConfigCommandWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "basketswap.toml")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "init-config"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "pool stableswap with 2 coins")
	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestSimulatorRecordsHistory(t *testing.T) {
	sc, err := ParseScenario([]byte(replayScenario))
	require.NoError(t, err)
	start, err := sc.startTime()
	require.NoError(t, err)
	sim, err := newSimulator(config.Default(), discardLogger(), io.Discard, 18, start)
	require.NoError(t, err)
	history := storage.NewHistory(storage.NewMemDB())
	sim.recordTo(history, "replay")
	require.NoError(t, sim.run(context.Background(), sc))

	steps, err := history.Steps("replay")
	require.NoError(t, err)
	require.Len(t, steps, len(sc.Steps))
	require.Equal(t, "basket.mint", steps[0].Op)
	require.NotEmpty(t, steps[0].Events)
	require.Equal(t, "basket.minted", steps[0].Events[0].Type)
	require.Equal(t, "slippage_exceeded", steps[4].Reason)
	require.Empty(t, steps[4].Events)
	// a rejected step leaves both roots untouched
	require.Equal(t, steps[3].PoolRoot, steps[4].PoolRoot)
	require.NotEqual(t, steps[4].PoolRoot, steps[5].PoolRoot)
}

func TestRunCommandWithHistory(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.History.Path = filepath.Join(dir, "history")
	configPath := filepath.Join(dir, "basketswap.toml")
	f, err := os.Create(configPath)
	require.NoError(t, err)
	require.NoError(t, toml.NewEncoder(f).Encode(cfg))
	require.NoError(t, f.Close())

	scenarioPath := filepath.Join(dir, "replay.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(replayScenario), 0o644))

	defer slog.SetDefault(slog.Default())
	run := newRootCmd()
	var out bytes.Buffer
	run.SetOut(&out)
	run.SetErr(io.Discard)
	run.SetArgs([]string{"--config", configPath, "run", scenarioPath})
	require.NoError(t, run.Execute())
	require.Contains(t, out.String(), "pool:")

	list := newRootCmd()
	out.Reset()
	list.SetOut(&out)
	list.SetArgs([]string{"--config", configPath, "history"})
	require.NoError(t, list.Execute())
	require.Equal(t, "replay\n", out.String())

	show := newRootCmd()
	out.Reset()
	show.SetOut(&out)
	show.SetArgs([]string{"--config", configPath, "history", "replay"})
	require.NoError(t, show.Execute())
	require.Contains(t, out.String(), "4 pool.exchange slippage_exceeded events=0")
	require.Contains(t, out.String(), "0 basket.mint ok")
}

func TestBundledScenarioReplays(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("..", "..", "scenarios", "exchange.yaml"))
	require.NoError(t, err)
	start, err := sc.startTime()
	require.NoError(t, err)
	var out bytes.Buffer
	sim, err := newSimulator(config.Default(), discardLogger(), &out, sc.BasketDecimals, start)
	require.NoError(t, err)
	require.NoError(t, sim.run(context.Background(), sc))
	require.Contains(t, out.String(), "rejected: slippage_exceeded")
	require.Contains(t, out.String(), "  A 250\n")
}
