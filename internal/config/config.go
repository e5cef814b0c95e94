// Package config provides centralized configuration for the crosslock
// daemon. Deployment parameters (contract addresses, fee policy,
// market endpoints) are defined here; policy thresholds are configuration,
// not hardcoded semantics.
package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crosslock/crosslockd/internal/chain"
	"github.com/crosslock/crosslockd/internal/fees"
	"github.com/crosslock/crosslockd/internal/swap"
)

// Config holds all configuration for the daemon.
type Config struct {
	// NetworkType selects mainnet or testnet chain parameters.
	NetworkType chain.Network `yaml:"network_type"`

	RPC      RPCConfig      `yaml:"rpc"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Ethereum EthereumConfig `yaml:"ethereum"`
	Algorand AlgorandConfig `yaml:"algorand"`
	Fees     FeesConfig     `yaml:"fees"`
	Market   MarketConfig   `yaml:"market"`
	Orders   OrdersConfig   `yaml:"orders"`
}

// RPCConfig holds JSON-RPC server settings.
type RPCConfig struct {
	// Addr is the listen address for the JSON-RPC API.
	Addr string `yaml:"addr"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	// DataDir is the directory for all data files.
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level"`
}

// EthereumConfig holds the EVM HTLC deployment parameters.
type EthereumConfig struct {
	// ContractAddress is the deployed HTLC contract.
	ContractAddress string `yaml:"contract_address"`

	// TokenAddress is the optional ERC-20 token for token-denominated
	// swaps; empty means the native asset.
	TokenAddress string `yaml:"token_address"`

	CreateGasLimit uint64 `yaml:"create_gas_limit"`
	RedeemGasLimit uint64 `yaml:"redeem_gas_limit"`
}

// AlgorandConfig holds the Algorand HTLC application parameters.
type AlgorandConfig struct {
	// AppID is the deployed HTLC application.
	AppID uint64 `yaml:"app_id"`

	// FlatFee is the per-transaction flat fee in microAlgos.
	FlatFee uint64 `yaml:"flat_fee"`

	// RoundWindow is the validity window for application calls.
	RoundWindow uint64 `yaml:"round_window"`
}

// FeesConfig holds the fee advisor policy.
type FeesConfig struct {
	// HighValueWei and LowValueWei are the tier-selection thresholds,
	// decimal wei strings.
	HighValueWei string `yaml:"high_value_wei"`
	LowValueWei  string `yaml:"low_value_wei"`

	EthPriceUSD  float64 `yaml:"eth_price_usd"`
	AlgoPriceUSD float64 `yaml:"algo_price_usd"`

	// CounterpartTxCount is how many Algorand transactions one full swap
	// needs.
	CounterpartTxCount uint64 `yaml:"counterpart_tx_count"`

	// Fallback quote in gwei, used when no live quote is available.
	FallbackBaseFeeGwei uint64    `yaml:"fallback_base_fee_gwei"`
	FallbackLowGwei     [2]uint64 `yaml:"fallback_low_gwei"`
	FallbackMediumGwei  [2]uint64 `yaml:"fallback_medium_gwei"`
	FallbackHighGwei    [2]uint64 `yaml:"fallback_high_gwei"`
	FallbackInstantGwei [2]uint64 `yaml:"fallback_instant_gwei"`

	// TierTimes are per-tier confirmation estimates shown to API callers.
	TierTimes map[string]string `yaml:"tier_times"`
}

// MarketConfig holds the intent-market API settings.
type MarketConfig struct {
	BaseURL   string `yaml:"base_url"`
	AuthToken string `yaml:"auth_token"`
	ChainID   uint64 `yaml:"chain_id"`

	// RefreshInterval is how often the gas quote is refreshed.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// OrdersConfig holds order-analysis conventions.
type OrdersConfig struct {
	// UnrevealedSentinel is the market's marker for a not-yet-revealed
	// secret slot.
	UnrevealedSentinel string `yaml:"unrevealed_sentinel"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		NetworkType: chain.Testnet,
		RPC: RPCConfig{
			Addr: "127.0.0.1:8080",
		},
		Storage: StorageConfig{
			DataDir: "~/.crosslock",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Ethereum: EthereumConfig{
			ContractAddress: "0x742d35Cc6634C0532925a3b8D4C9db96C4b4d8b6",
			TokenAddress:    "",
			CreateGasLimit:  200000,
			RedeemGasLimit:  150000,
		},
		Algorand: AlgorandConfig{
			AppID:       123456789,
			FlatFee:     1000,
			RoundWindow: 1000,
		},
		Fees: FeesConfig{
			HighValueWei:        "4000000000000000000", // 4 ETH
			LowValueWei:         "400000000000000000",  // 0.4 ETH
			EthPriceUSD:         2500,
			AlgoPriceUSD:        0.25,
			CounterpartTxCount:  2,
			FallbackBaseFeeGwei: 20,
			FallbackLowGwei:     [2]uint64{25, 1},
			FallbackMediumGwei:  [2]uint64{30, 2},
			FallbackHighGwei:    [2]uint64{40, 3},
			FallbackInstantGwei: [2]uint64{50, 5},
			TierTimes: map[string]string{
				"low":     "5-10 minutes",
				"medium":  "2-5 minutes",
				"high":    "1-2 minutes",
				"instant": "< 1 minute",
			},
		},
		Market: MarketConfig{
			BaseURL:         "https://api.1inch.dev",
			AuthToken:       "",
			ChainID:         1,
			RefreshInterval: 30 * time.Second,
		},
		Orders: OrdersConfig{
			UnrevealedSentinel: "0x",
		},
	}
}

// ConfigFileName is the default config file name.
const ConfigFileName = "config.yaml"

// ConfigPath returns the config file path for a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(expandPath(dataDir), ConfigFileName)
}

// Load loads configuration from a YAML file in the data directory.
// If the file doesn't exist, it creates one with default values.
func Load(dataDir string) (*Config, error) {
	configPath := ConfigPath(dataDir)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.Storage.DataDir = dataDir

		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to disk.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// AdvisorConfig maps the fee policy onto the advisor's configuration.
func (c *Config) AdvisorConfig() fees.Config {
	tierTimes := make(map[fees.Tier]string, len(c.Fees.TierTimes))
	for tier, estimate := range c.Fees.TierTimes {
		tierTimes[fees.Tier(tier)] = estimate
	}
	return fees.Config{
		Thresholds: fees.Thresholds{
			HighValueWei: parseBig(c.Fees.HighValueWei),
			LowValueWei:  parseBig(c.Fees.LowValueWei),
		},
		Profile: fees.GasProfile{
			CreateGas: c.Ethereum.CreateGasLimit,
			RedeemGas: c.Ethereum.RedeemGasLimit,
		},
		CounterpartFlatFee: c.Algorand.FlatFee,
		CounterpartTxCount: c.Fees.CounterpartTxCount,
		EthPriceUSD:        c.Fees.EthPriceUSD,
		AlgoPriceUSD:       c.Fees.AlgoPriceUSD,
		Fallback: fees.FallbackQuote{
			BaseFee: c.Fees.FallbackBaseFeeGwei,
			Low:     c.Fees.FallbackLowGwei,
			Medium:  c.Fees.FallbackMediumGwei,
			High:    c.Fees.FallbackHighGwei,
			Instant: c.Fees.FallbackInstantGwei,
		},
		TierTimes: tierTimes,
	}
}

// BuilderConfig maps the deployment parameters onto the descriptor
// builder's configuration.
func (c *Config) BuilderConfig() swap.BuilderConfig {
	return swap.BuilderConfig{
		Network:         c.NetworkType,
		ContractAddress: c.Ethereum.ContractAddress,
		TokenAddress:    c.Ethereum.TokenAddress,
		CreateGasLimit:  c.Ethereum.CreateGasLimit,
		RedeemGasLimit:  c.Ethereum.RedeemGasLimit,
		AppID:           c.Algorand.AppID,
		FlatFee:         c.Algorand.FlatFee,
		RoundWindow:     c.Algorand.RoundWindow,
	}
}

// IsTestnet returns true if running on testnet.
func (c *Config) IsTestnet() bool {
	return c.NetworkType == chain.Testnet
}

func parseBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
