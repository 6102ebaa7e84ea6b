package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Scenario is a scripted sequence of engine operations. Amounts are decimal
// strings in whole units; they are scaled by the asset's decimals.
type Scenario struct {
	Name string `yaml:"name"`
	// Start is the simulated wall clock at the first step, RFC 3339.
	Start          string    `yaml:"start"`
	BasketDecimals uint8     `yaml:"basket_decimals"`
	Accounts       []Account `yaml:"accounts"`
	Steps          []Step    `yaml:"steps"`
}

// Account funds holder with balances keyed by asset address or pool coin
// symbol.
type Account struct {
	Holder   string            `yaml:"holder"`
	Balances map[string]string `yaml:"balances"`
}

// Step is one operation. Op selects the engine operation; the remaining
// fields are interpreted per operation.
type Step struct {
	Op        string   `yaml:"op"`
	Caller    string   `yaml:"caller"`
	Source    string   `yaml:"source"`
	Asset     string   `yaml:"asset"`
	Output    string   `yaml:"output"`
	Amount    string   `yaml:"amount"`
	Fee       string   `yaml:"fee"`
	OutputFee string   `yaml:"output_fee"`
	Amounts   []string `yaml:"amounts"`
	Limit     string   `yaml:"limit"`
	Limits    []string `yaml:"limits"`
	From      int      `yaml:"from"`
	To        int      `yaml:"to"`
	Rate      uint64   `yaml:"rate"`
	FutureA   uint64   `yaml:"future_a"`
	After     Duration `yaml:"after"`
	// Expect names the error reason the step must fail with, as reported
	// by the engine metrics (for example slippage_exceeded).
	Expect string `yaml:"expect"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(raw)
}

// ParseScenario decodes a YAML scenario.
func ParseScenario(raw []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	for i := range sc.Steps {
		sc.Steps[i].Op = strings.ToLower(strings.TrimSpace(sc.Steps[i].Op))
		if _, ok := stepHandlers[sc.Steps[i].Op]; !ok {
			return nil, fmt.Errorf("step %d: unknown op %q", i, sc.Steps[i].Op)
		}
	}
	return &sc, nil
}

func (sc *Scenario) startTime() (time.Time, error) {
	if strings.TrimSpace(sc.Start) == "" {
		return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(time.RFC3339, sc.Start)
}
