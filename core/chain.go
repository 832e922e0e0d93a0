package core

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ChainProfile describes a target network. It is loaded once from
// configuration at process start and treated as read-only afterwards.
type ChainProfile struct {
	ChainID                uint64 `json:"chain_id"`
	Name                   string `json:"name"`
	NativeCurrencySymbol   string `json:"native_currency_symbol"`
	NativeCurrencyDecimals int    `json:"native_currency_decimals"`
	RPCURL                 string `json:"rpc_url"`
	ExplorerURL            string `json:"explorer_url"`
}

// Token identifies a testnet token the faucet can grant.
type Token string

const (
	TokenMonad Token = "MONAD"
	TokenUSDC  Token = "USDC"
	TokenDAI   Token = "DAI"
)

// ParseToken validates a token symbol from an external caller.
func ParseToken(s string) (Token, error) {
	switch Token(strings.ToUpper(s)) {
	case TokenMonad:
		return TokenMonad, nil
	case TokenUSDC:
		return TokenUSDC, nil
	case TokenDAI:
		return TokenDAI, nil
	}
	return "", ErrUnknownToken
}

// NormalizeAddress validates a hex account address and returns it in the
// canonical lowercase form used throughout the session.
func NormalizeAddress(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(common.HexToAddress(s).Hex()), nil
}
