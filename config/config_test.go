package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "basketswap.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	_, err = os.Stat(path)
	require.NoError(t, err)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestLoadParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `[Basket]
BasketToken = "0x00000000000000000000000000000000000000b0"
FeeReceiver = "0x00000000000000000000000000000000000000f0"
Custody = "0x00000000000000000000000000000000000000c0"
Manager = "0x00000000000000000000000000000000000000a0"
Assets = ["0x0000000000000000000000000000000000000101"]
StrictSwapCheck = true

[Pool]
A = 250
Fee = 3000000
PoolToken = "0x00000000000000000000000000000000000002b0"
FeeRecipient = "0x00000000000000000000000000000000000002f0"
Custody = "0x00000000000000000000000000000000000002c0"
Governance = "0x00000000000000000000000000000000000002a0"

[[Pool.Coins]]
Symbol = "USDC"
Address = "0x0000000000000000000000000000000000000201"
Decimals = 6

[[Pool.Coins]]
Symbol = "DAI"
Address = "0x0000000000000000000000000000000000000202"
Decimals = 18

[Logging]
Level = "debug"
File = "logs/basketsim.log"

[Metrics]
Enabled = true

[Telemetry]
Endpoint = "collector:4318"
Traces = true

[History]
Path = "data/history"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, cfg.Basket.StrictSwapCheck)
	require.Equal(t, "basket", cfg.Basket.Name)
	require.Equal(t, uint64(250), cfg.Pool.A)
	require.Len(t, cfg.Pool.Coins, 2)
	require.Equal(t, uint8(6), cfg.Pool.Coins[0].Decimals)
	require.Equal(t, "stableswap", cfg.Pool.Name)
	require.Equal(t, "basketsim", cfg.Logging.Service)
	require.Equal(t, 64, cfg.Logging.MaxSizeMB)
	require.True(t, cfg.Metrics.Enabled)
	require.True(t, cfg.Telemetry.Traces)
	require.False(t, cfg.Telemetry.Metrics)
	require.Equal(t, "data/history", cfg.History.Path)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Basket]\nBasketTokn = \"0x01\"\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Basket.BasketTokn")
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Config)
		want   string
	}{
		"bad manager":        {func(c *Config) { c.Basket.Manager = "nope" }, "Manager"},
		"zero fee receiver":  {func(c *Config) { c.Basket.FeeReceiver = "0x0000000000000000000000000000000000000000" }, "zero address"},
		"duplicate asset":    {func(c *Config) { c.Basket.Assets = append(c.Basket.Assets, c.Basket.Assets[0]) }, "duplicate asset"},
		"self-backed basket": {func(c *Config) { c.Basket.Assets = []string{c.Basket.BasketToken} }, "cannot back itself"},
		"single coin":        {func(c *Config) { c.Pool.Coins = c.Pool.Coins[:1] }, "two coins"},
		"decimals":           {func(c *Config) { c.Pool.Coins[1].Decimals = 19 }, "exceed 18"},
		"zero A":             {func(c *Config) { c.Pool.A = 0 }, "A must be"},
		"fee":                {func(c *Config) { c.Pool.Fee = FeeDenominator + 1 }, "Fee"},
		"redemption fee":     {func(c *Config) { c.Pool.RedemptionFee = FeeDenominator }, "RedemptionFee"},
		"log level":          {func(c *Config) { c.Logging.Level = "loud" }, "unknown level"},
		"telemetry scheme":   {func(c *Config) { c.Telemetry.Endpoint = "http://collector:4318" }, "without a scheme"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tc.want), err.Error())
		})
	}
	require.NoError(t, Validate(Default()))
}
