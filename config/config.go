// Package config loads module configuration from a YAML file plus a .env
// file for secrets. Treasury addresses and token identifiers are deployment
// facts, so they live in the file; the verification bearer token and the
// oracle API key come from the environment only.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Gateway     GatewayConfig     `yaml:"gateway"`
	EVM         EVMConfig         `yaml:"evm"`
	Solana      SolanaConfig      `yaml:"solana"`
	Cardano     CardanoConfig     `yaml:"cardano"`
	RatesAPI    RatesAPIConfig    `yaml:"rates_api"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	LogLevel    string            `yaml:"log_level"`
}

type GatewayConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	// AuthToken is filled from ENTRYGATE_AUTH_TOKEN, never from the file.
	AuthToken string `yaml:"-"`
}

type EVMConfig struct {
	ChainID       int64  `yaml:"chain_id"`
	TokenContract string `yaml:"token_contract"`
	TokenDecimals int    `yaml:"token_decimals"`
	Treasury      string `yaml:"treasury"`
}

type SolanaConfig struct {
	Mint          string `yaml:"mint"`
	TokenDecimals int    `yaml:"token_decimals"`
	Treasury      string `yaml:"treasury"`
	Cluster       string `yaml:"cluster"`
	RPCUrl        string `yaml:"rpc_url"`
}

type CardanoConfig struct {
	Treasury          string  `yaml:"treasury"`
	FallbackUSDPerADA float64 `yaml:"fallback_usd_per_ada"`
	Network           string  `yaml:"network"`
}

type RatesAPIConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBackoffBase time.Duration `yaml:"retry_backoff_base"`
	// APIKey is filled from RATES_API_KEY.
	APIKey string `yaml:"-"`
}

type IdempotencyConfig struct {
	// StorePath selects the file-backed key store; empty means in-memory.
	StorePath string `yaml:"store_path"`
}

// Load reads the YAML file at path and layers environment secrets on top.
// A missing .env file is not an error; a missing config file is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration usable without a file, pointed at Base
// mainnet USDC. Secrets still come from the environment.
func Default() *Config {
	cfg := &Config{
		Gateway: GatewayConfig{Endpoint: "https://api.seedlabs.io/payments/verify"},
		EVM: EVMConfig{
			ChainID:       8453,
			TokenContract: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			TokenDecimals: 6,
		},
		Solana: SolanaConfig{
			Mint:          "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			TokenDecimals: 6,
			Cluster:       "mainnet-beta",
		},
		Cardano: CardanoConfig{Network: "mainnet"},
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ENTRYGATE_AUTH_TOKEN"); v != "" {
		c.Gateway.AuthToken = v
	}
	if v := os.Getenv("RATES_API_KEY"); v != "" {
		c.RatesAPI.APIKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = 30 * time.Second
	}
	if c.RatesAPI.BaseURL == "" {
		c.RatesAPI.BaseURL = "https://rest.coincap.io"
	}
	if c.RatesAPI.Timeout <= 0 {
		c.RatesAPI.Timeout = 10 * time.Second
	}
	if c.RatesAPI.MaxRetries <= 0 {
		c.RatesAPI.MaxRetries = 3
	}
	if c.RatesAPI.RetryBackoffBase <= 0 {
		c.RatesAPI.RetryBackoffBase = 500 * time.Millisecond
	}
	if c.Cardano.FallbackUSDPerADA <= 0 {
		c.Cardano.FallbackUSDPerADA = 0.25
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.Gateway.Endpoint == "" {
		return fmt.Errorf("gateway.endpoint is required")
	}
	if c.EVM.TokenDecimals < 0 || c.Solana.TokenDecimals < 0 {
		return fmt.Errorf("token_decimals must be non-negative")
	}
	return nil
}
