package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file. Environment variable
// references in the file are expanded before parsing. A missing file
// yields the pure defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Chain.ID == 0 {
		cfg.Chain.ID = 1337
	}
	if cfg.Chain.Name == "" {
		cfg.Chain.Name = "Monad Testnet"
	}
	if cfg.Chain.CurrencySymbol == "" {
		cfg.Chain.CurrencySymbol = "MONAD"
	}
	if cfg.Chain.CurrencyDecimals == 0 {
		cfg.Chain.CurrencyDecimals = 18
	}
	if cfg.Chain.RPCURL == "" {
		cfg.Chain.RPCURL = "https://rpc.monad.xyz"
	}
	if cfg.Chain.ExplorerURL == "" {
		cfg.Chain.ExplorerURL = "https://explorer.monad.xyz"
	}
	if cfg.Faucet.GrantDelay == "" {
		cfg.Faucet.GrantDelay = "2s"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
