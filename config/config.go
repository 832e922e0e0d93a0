package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/core"
)

// Config is the top-level daemon configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Chain   ChainConfig   `yaml:"chain"`
	Faucet  FaucetConfig  `yaml:"faucet"`
	Signer  SignerConfig  `yaml:"signer"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ChainConfig holds the target network parameters.
type ChainConfig struct {
	ID               uint64 `yaml:"id"`
	Name             string `yaml:"name"`
	CurrencySymbol   string `yaml:"currency_symbol"`
	CurrencyDecimals int    `yaml:"currency_decimals"`
	RPCURL           string `yaml:"rpc_url"`
	ExplorerURL      string `yaml:"explorer_url"`
}

// Profile converts the chain settings into the immutable runtime profile.
func (c ChainConfig) Profile() core.ChainProfile {
	return core.ChainProfile{
		ChainID:                c.ID,
		Name:                   c.Name,
		NativeCurrencySymbol:   c.CurrencySymbol,
		NativeCurrencyDecimals: c.CurrencyDecimals,
		RPCURL:                 c.RPCURL,
		ExplorerURL:            c.ExplorerURL,
	}
}

// FaucetConfig holds faucet backend settings. An empty BackendURL selects
// the built-in simulator.
type FaucetConfig struct {
	BackendURL string            `yaml:"backend_url"`
	GrantDelay string            `yaml:"grant_delay"`
	Amounts    map[string]string `yaml:"amounts"`
}

// Delay parses the simulated grant delay.
func (c FaucetConfig) Delay() (time.Duration, error) {
	if c.GrantDelay == "" {
		return 2 * time.Second, nil
	}
	d, err := time.ParseDuration(c.GrantDelay)
	if err != nil {
		return 0, fmt.Errorf("faucet grant_delay: %w", err)
	}
	return d, nil
}

// AmountTable parses the configured per-token grant amounts.
func (c FaucetConfig) AmountTable() (map[core.Token]decimal.Decimal, error) {
	if len(c.Amounts) == 0 {
		return nil, nil
	}
	table := make(map[core.Token]decimal.Decimal, len(c.Amounts))
	for symbol, raw := range c.Amounts {
		token, err := core.ParseToken(symbol)
		if err != nil {
			return nil, fmt.Errorf("faucet amounts: %w: %q", err, symbol)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("faucet amount for %s: %w", symbol, err)
		}
		table[token] = amount
	}
	return table, nil
}

// SignerConfig holds local signer settings. With no keys configured a
// fresh development key is generated at startup.
type SignerConfig struct {
	PrivateKeys []string `yaml:"private_keys"`
}

// RedisConfig holds the broker connection for session events. An empty
// URL disables event publishing.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
