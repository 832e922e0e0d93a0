package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/core"
)

// GrantBackend is the faucet service that grants testnet tokens. It
// eventually returns a transaction reference or an error.
type GrantBackend interface {
	Grant(ctx context.Context, address string, token core.Token, amount decimal.Decimal) (string, error)
}

// GrantFunc adapts a function to the GrantBackend interface.
type GrantFunc func(ctx context.Context, address string, token core.Token, amount decimal.Decimal) (string, error)

func (f GrantFunc) Grant(ctx context.Context, address string, token core.Token, amount decimal.Decimal) (string, error) {
	return f(ctx, address, token, amount)
}
