package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Basket    Basket    `toml:"Basket"`
	Pool      Pool      `toml:"Pool"`
	Logging   Logging   `toml:"Logging"`
	Metrics   Metrics   `toml:"Metrics"`
	Telemetry Telemetry `toml:"Telemetry"`
	History   History   `toml:"History"`
}

// Load loads the configuration from the given path. A missing file is
// replaced by the default configuration, which is written to path.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file exists: a two-asset
// basket and a two-coin pool with illustrative addresses.
func Default() *Config {
	cfg := &Config{
		Basket: Basket{
			Name:        "basket",
			BasketToken: "0x00000000000000000000000000000000000000b0",
			FeeReceiver: "0x00000000000000000000000000000000000000f0",
			Custody:     "0x00000000000000000000000000000000000000c0",
			Manager:     "0x00000000000000000000000000000000000000a0",
			Assets: []string{
				"0x0000000000000000000000000000000000000101",
				"0x0000000000000000000000000000000000000102",
			},
		},
		Pool: Pool{
			Name: "stableswap",
			Coins: []Coin{
				{Symbol: "WBTC", Address: "0x0000000000000000000000000000000000000201", Decimals: 8},
				{Symbol: "RENBTC", Address: "0x0000000000000000000000000000000000000202", Decimals: 8},
			},
			A:             100,
			Fee:           4_000_000,
			RedemptionFee: 0,
			PoolToken:     "0x00000000000000000000000000000000000002b0",
			FeeRecipient:  "0x00000000000000000000000000000000000002f0",
			Custody:       "0x00000000000000000000000000000000000002c0",
			Governance:    "0x00000000000000000000000000000000000002a0",
		},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Basket.Name) == "" {
		cfg.Basket.Name = "basket"
	}
	if strings.TrimSpace(cfg.Pool.Name) == "" {
		cfg.Pool.Name = "stableswap"
	}
	if cfg.Basket.Assets == nil {
		cfg.Basket.Assets = []string{}
	}
	if strings.TrimSpace(cfg.Logging.Service) == "" {
		cfg.Logging.Service = "basketsim"
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.File != "" {
		if cfg.Logging.MaxSizeMB <= 0 {
			cfg.Logging.MaxSizeMB = 64
		}
		if cfg.Logging.MaxBackups <= 0 {
			cfg.Logging.MaxBackups = 5
		}
		if cfg.Logging.MaxAgeDays <= 0 {
			cfg.Logging.MaxAgeDays = 14
		}
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
