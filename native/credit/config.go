package credit

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/BurntSushi/toml"

	"creditvault/crypto"
)

// Config is the operator-facing TOML configuration for the credit module.
// Amounts are strings in base units so operators can use underscores for
// readability; thresholds and fees are basis points.
type Config struct {
	Service     string `toml:"Service"`
	Environment string `toml:"Environment"`
	MetricsAddr string `toml:"MetricsAddr"`

	Underlying    TokenConfig    `toml:"Underlying"`
	WrappedNative string         `toml:"WrappedNative"`
	DegenMode     bool           `toml:"DegenMode"`
	Risk          RiskConfig     `toml:"Risk"`
	Interest      InterestConfig `toml:"Interest"`
	Tokens        []TokenConfig  `toml:"Tokens"`
}

// RiskConfig captures the textual risk parameter settings.
type RiskConfig struct {
	MinBorrowedWei      string `toml:"MinBorrowedWei"`
	MaxBorrowedWei      string `toml:"MaxBorrowedWei"`
	FeeInterest         uint64 `toml:"FeeInterest"`
	FeeLiquidation      uint64 `toml:"FeeLiquidation"`
	LiquidationDiscount uint64 `toml:"LiquidationDiscount"`
	ChiThreshold        uint64 `toml:"ChiThreshold"`
	HFCheckInterval     uint64 `toml:"HFCheckInterval"`
}

// InterestConfig captures the kinked borrow rate curve as fractional rates.
type InterestConfig struct {
	BaseRate float64 `toml:"BaseRate"`
	Slope1   float64 `toml:"Slope1"`
	Slope2   float64 `toml:"Slope2"`
	Kink     float64 `toml:"Kink"`
}

// TokenConfig declares one collateral token.
type TokenConfig struct {
	Address              string `toml:"Address"`
	LiquidationThreshold uint64 `toml:"LiquidationThreshold"`
	StrictApprove        bool   `toml:"StrictApprove"`
}

// LoadConfig reads and decodes the TOML configuration at path.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("credit: decode config: %w", err)
	}
	return cfg.Normalise(), nil
}

// Normalise trims whitespace and applies canonical defaults to defensive
// copies.
func (c Config) Normalise() Config {
	cfg := c
	cfg.Service = strings.TrimSpace(c.Service)
	if cfg.Service == "" {
		cfg.Service = "creditd"
	}
	cfg.Environment = strings.TrimSpace(c.Environment)
	cfg.MetricsAddr = strings.TrimSpace(c.MetricsAddr)
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":9090"
	}
	cfg.WrappedNative = strings.TrimSpace(c.WrappedNative)
	cfg.Underlying = c.Underlying.normalise()
	cfg.Tokens = make([]TokenConfig, 0, len(c.Tokens))
	for _, token := range c.Tokens {
		normalised := token.normalise()
		if normalised.Address == "" {
			continue
		}
		cfg.Tokens = append(cfg.Tokens, normalised)
	}
	cfg.Risk = c.Risk.normalise()
	return cfg
}

func (tc TokenConfig) normalise() TokenConfig {
	tc.Address = strings.TrimSpace(tc.Address)
	return tc
}

func (rc RiskConfig) normalise() RiskConfig {
	rc.MinBorrowedWei = strings.TrimSpace(rc.MinBorrowedWei)
	rc.MaxBorrowedWei = strings.TrimSpace(rc.MaxBorrowedWei)
	return rc
}

// Parameters converts the textual risk settings into a validated runtime
// parameter set.
func (rc RiskConfig) Parameters() (RiskParameters, error) {
	normalised := rc.normalise()
	minBorrowed, err := parseAmount(normalised.MinBorrowedWei)
	if err != nil {
		return RiskParameters{}, fmt.Errorf("credit: invalid MinBorrowedWei: %w", err)
	}
	maxBorrowed, err := parseAmount(normalised.MaxBorrowedWei)
	if err != nil {
		return RiskParameters{}, fmt.Errorf("credit: invalid MaxBorrowedWei: %w", err)
	}
	params := RiskParameters{
		MinBorrowed:         minBorrowed,
		MaxBorrowed:         maxBorrowed,
		FeeInterest:         normalised.FeeInterest,
		FeeLiquidation:      normalised.FeeLiquidation,
		LiquidationDiscount: normalised.LiquidationDiscount,
		ChiThreshold:        normalised.ChiThreshold,
		HFCheckInterval:     normalised.HFCheckInterval,
	}
	if err := params.Validate(); err != nil {
		return RiskParameters{}, err
	}
	return params, nil
}

// Model converts the curve settings into an interest model, falling back to
// the default curve when every field is zero.
func (ic InterestConfig) Model() *InterestModel {
	if ic.BaseRate == 0 && ic.Slope1 == 0 && ic.Slope2 == 0 && ic.Kink == 0 {
		return DefaultInterestModel.Clone()
	}
	return NewInterestModel(ic.BaseRate, ic.Slope1, ic.Slope2, ic.Kink)
}

// Token decodes the bech32 address and returns the runtime token entry.
func (tc TokenConfig) Token() (Token, error) {
	addr, err := crypto.DecodeAddress(tc.Address)
	if err != nil {
		return Token{}, fmt.Errorf("credit: invalid token address %q: %w", tc.Address, err)
	}
	return Token{
		Address:              addr,
		LiquidationThreshold: tc.LiquidationThreshold,
		StrictApprove:        tc.StrictApprove,
	}, nil
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	if strings.HasPrefix(trimmed, "-") {
		return nil, fmt.Errorf("amount must not be negative")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount value")
	}
	return amount, nil
}
