package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"basketswap/config"
	"basketswap/native/stableswap"
	"basketswap/observability/logging"
	"basketswap/observability/tracing"
	"basketswap/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "basketsim",
		Short:        "Replay basket ledger and stable swap pool scenarios",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "./basketswap.toml", "path to the TOML configuration")
	root.AddCommand(
		cmdRun(&configPath),
		cmdSolve(),
		cmdInitConfig(&configPath),
		cmdHistory(&configPath),
	)
	return root
}

func cmdRun(configPath *string) *cobra.Command {
	var runName string
	cmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "Replay a scenario against freshly configured engines",
		Long: `Replay a scenario against a basket ledger and a stable swap pool built
from the configuration file. Every emitted event is printed, followed by the
final reserves and state roots.

Example:
  $ basketsim run --config basketswap.toml scenarios/exchange.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, closer := logging.New(logging.Options{
				Service:    cfg.Logging.Service,
				Env:        cfg.Logging.Env,
				Level:      cfg.Logging.Level,
				Output:     cmd.ErrOrStderr(),
				File:       cfg.Logging.File,
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
				MaxAgeDays: cfg.Logging.MaxAgeDays,
			})
			defer closer.Close()

			shutdown, err := tracing.Init(cmd.Context(), tracing.Config{
				ServiceName: cfg.Logging.Service,
				Environment: cfg.Logging.Env,
				Endpoint:    cfg.Telemetry.Endpoint,
				Insecure:    cfg.Telemetry.Insecure,
				Headers:     tracing.ParseHeaders(cfg.Telemetry.Headers),
				Traces:      cfg.Telemetry.Traces,
				Metrics:     cfg.Telemetry.Metrics,
			})
			if err != nil {
				return fmt.Errorf("telemetry: %w", err)
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Warn("telemetry shutdown", "err", err)
				}
			}()

			sc, err := LoadScenario(args[0])
			if err != nil {
				return err
			}
			start, err := sc.startTime()
			if err != nil {
				return fmt.Errorf("scenario start: %w", err)
			}
			decimals := sc.BasketDecimals
			if decimals == 0 {
				decimals = 18
			}
			sim, err := newSimulator(cfg, logger, cmd.OutOrStdout(), decimals, start)
			if err != nil {
				return err
			}
			if cfg.History.Path != "" {
				db, err := storage.NewLevelDB(cfg.History.Path)
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				defer db.Close()
				if runName == "" {
					runName = sc.Name
				}
				sim.recordTo(storage.NewHistory(db), runName)
			}
			logger.Info("replaying scenario", "name", sc.Name, "steps", len(sc.Steps))
			return sim.run(cmd.Context(), sc)
		},
	}
	cmd.Flags().StringVar(&runName, "run", "", "name the replay is recorded under (defaults to the scenario name)")
	return cmd
}

func cmdHistory(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history [run]",
		Short: "List recorded replays, or the steps of one replay",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.History.Path == "" {
				return fmt.Errorf("history: no [History] Path configured")
			}
			db, err := storage.NewLevelDB(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer db.Close()
			return printHistory(cmd.OutOrStdout(), storage.NewHistory(db), args)
		},
	}
}

func printHistory(out io.Writer, history *storage.History, args []string) error {
	if len(args) == 0 {
		runs, err := history.Runs()
		if err != nil {
			return err
		}
		for _, run := range runs {
			fmt.Fprintln(out, run)
		}
		return nil
	}
	steps, err := history.Steps(args[0])
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return fmt.Errorf("history: no run named %q", args[0])
	}
	for _, rec := range steps {
		outcome := "ok"
		if rec.Reason != "" {
			outcome = rec.Reason
		}
		fmt.Fprintf(out, "%d %s %s events=%d basket=%s pool=%s\n",
			rec.Step, rec.Op, outcome, len(rec.Events), rec.BasketRoot, rec.PoolRoot)
	}
	return nil
}

func cmdSolve() *cobra.Command {
	var (
		amp      uint64
		decimals uint8
		index    int
		target   string
	)
	cmd := &cobra.Command{
		Use:   "solve [balance] [balance]...",
		Short: "Solve the stable swap invariant for a set of balances",
		Long: `Compute the invariant D for the given balances. With --index, also solve
for the balance of that coin which keeps the invariant at --d (or at the
computed D when --d is unset).

Example:
  $ basketsim solve --a 100 1000 1200
  $ basketsim solve --a 100 --index 1 --d 2100 1100 1000`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			xp, err := parseAmounts(args, repeatDecimals(decimals, len(args)))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			d, err := stableswap.ComputeD(xp, amp)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "D=%s iterations=%d converged=%t\n", formatAmount(d.Value, decimals), d.Iterations, d.Converged)
			if index < 0 {
				return nil
			}
			goal := d.Value
			if strings.TrimSpace(target) != "" {
				if goal, err = parseAmount(target, decimals); err != nil {
					return err
				}
			}
			y, err := stableswap.ComputeY(xp, index, goal, amp)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "y[%d]=%s iterations=%d converged=%t\n", index, formatAmount(y.Value, decimals), y.Iterations, y.Converged)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&amp, "a", 100, "amplification coefficient")
	cmd.Flags().Uint8Var(&decimals, "decimals", 18, "decimals the balances are expressed in")
	cmd.Flags().IntVar(&index, "index", -1, "coin whose balance to solve for")
	cmd.Flags().StringVar(&target, "d", "", "invariant to hold when solving for a balance")
	return cmd
}

func repeatDecimals(decimals uint8, n int) []uint8 {
	out := make([]uint8, n)
	for i := range out {
		out[i] = decimals
	}
	return out
}

func cmdInitConfig(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config %s: basket %s with %d assets, pool %s with %d coins\n",
				*configPath, cfg.Basket.Name, len(cfg.Basket.Assets), cfg.Pool.Name, len(cfg.Pool.Coins))
			return nil
		},
	}
}
