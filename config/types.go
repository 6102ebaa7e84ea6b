package config

// Basket configures the basket ledger.
type Basket struct {
	Name            string   `toml:"Name"`
	BasketToken     string   `toml:"BasketToken"`
	FeeReceiver     string   `toml:"FeeReceiver"`
	Custody         string   `toml:"Custody"`
	Manager         string   `toml:"Manager"`
	Assets          []string `toml:"Assets"`
	StrictSwapCheck bool     `toml:"StrictSwapCheck"`
}

// Coin is one entry of the pool's coin list.
type Coin struct {
	Symbol   string `toml:"Symbol"`
	Address  string `toml:"Address"`
	Decimals uint8  `toml:"Decimals"`
}

// Pool configures the stable swap pool. Fee rates are scaled by 10^10.
type Pool struct {
	Name          string `toml:"Name"`
	Coins         []Coin `toml:"Coins"`
	A             uint64 `toml:"A"`
	Fee           uint64 `toml:"Fee"`
	RedemptionFee uint64 `toml:"RedemptionFee"`
	PoolToken     string `toml:"PoolToken"`
	FeeRecipient  string `toml:"FeeRecipient"`
	Custody       string `toml:"Custody"`
	Governance    string `toml:"Governance"`
}

// Logging controls the structured logger and its optional rotating file sink.
type Logging struct {
	Service    string `toml:"Service"`
	Env        string `toml:"Env"`
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Metrics toggles the end-of-run metrics summary.
type Metrics struct {
	Enabled bool `toml:"Enabled"`
}

// Telemetry configures the OpenTelemetry exporters. Both signals are off by
// default.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	// Headers is a comma separated key=value list sent with every export.
	Headers string `toml:"Headers"`
	Traces  bool   `toml:"Traces"`
	Metrics bool   `toml:"Metrics"`
}

// History points at the LevelDB directory where replayed scenarios are
// recorded. An empty Path disables recording.
type History struct {
	Path string `toml:"Path"`
}
