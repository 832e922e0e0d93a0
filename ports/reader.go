package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/core"
)

// ChainReader is read access to the chain RPC endpoint.
type ChainReader interface {
	// Balance returns the native currency balance of an address, in
	// native units.
	Balance(ctx context.Context, address string) (decimal.Decimal, error)

	// Transaction looks up a transaction and its receipt by hash.
	Transaction(ctx context.Context, hash string) (*core.TransactionInfo, error)
}
