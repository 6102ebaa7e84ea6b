package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// FeeDenominator scales Pool.Fee and Pool.RedemptionFee.
	FeeDenominator = uint64(10_000_000_000)
	// MaxA bounds Pool.A.
	MaxA = uint64(1_000_000)
)

func Validate(cfg *Config) error {
	if err := validateBasket(cfg.Basket); err != nil {
		return err
	}
	if err := validatePool(cfg.Pool); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", cfg.Logging.Level)
	}
	if strings.Contains(cfg.Telemetry.Endpoint, "://") {
		return fmt.Errorf("telemetry: Endpoint %q must be host:port without a scheme", cfg.Telemetry.Endpoint)
	}
	return nil
}

func validateBasket(b Basket) error {
	for field, value := range map[string]string{
		"BasketToken": b.BasketToken,
		"FeeReceiver": b.FeeReceiver,
		"Custody":     b.Custody,
		"Manager":     b.Manager,
	} {
		if err := requireAddress(value); err != nil {
			return fmt.Errorf("basket: %s: %w", field, err)
		}
	}
	seen := make(map[common.Address]struct{}, len(b.Assets))
	for i, asset := range b.Assets {
		if err := requireAddress(asset); err != nil {
			return fmt.Errorf("basket: Assets[%d]: %w", i, err)
		}
		addr := common.HexToAddress(asset)
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("basket: Assets[%d]: duplicate asset %s", i, asset)
		}
		if addr == common.HexToAddress(b.BasketToken) {
			return fmt.Errorf("basket: Assets[%d]: basket token cannot back itself", i)
		}
		seen[addr] = struct{}{}
	}
	return nil
}

func validatePool(p Pool) error {
	for field, value := range map[string]string{
		"PoolToken":    p.PoolToken,
		"FeeRecipient": p.FeeRecipient,
		"Custody":      p.Custody,
		"Governance":   p.Governance,
	} {
		if err := requireAddress(value); err != nil {
			return fmt.Errorf("pool: %s: %w", field, err)
		}
	}
	if len(p.Coins) < 2 {
		return fmt.Errorf("pool: at least two coins required, got %d", len(p.Coins))
	}
	seen := make(map[common.Address]struct{}, len(p.Coins))
	for i, coin := range p.Coins {
		if err := requireAddress(coin.Address); err != nil {
			return fmt.Errorf("pool: Coins[%d]: %w", i, err)
		}
		addr := common.HexToAddress(coin.Address)
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("pool: Coins[%d]: duplicate coin %s", i, coin.Address)
		}
		seen[addr] = struct{}{}
		if coin.Decimals > 18 {
			return fmt.Errorf("pool: Coins[%d]: decimals %d exceed 18", i, coin.Decimals)
		}
	}
	if p.A == 0 || p.A >= MaxA {
		return fmt.Errorf("pool: A must be in (0, %d), got %d", MaxA, p.A)
	}
	if p.Fee > FeeDenominator {
		return fmt.Errorf("pool: Fee %d exceeds %d", p.Fee, FeeDenominator)
	}
	if p.RedemptionFee >= FeeDenominator {
		return fmt.Errorf("pool: RedemptionFee %d must be below %d", p.RedemptionFee, FeeDenominator)
	}
	return nil
}

func requireAddress(value string) error {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return fmt.Errorf("invalid address %q", value)
	}
	if common.HexToAddress(value) == (common.Address{}) {
		return fmt.Errorf("zero address")
	}
	return nil
}
