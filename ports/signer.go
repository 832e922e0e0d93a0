package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/core"
)

// SignerProvider is the external signing capability: it holds the keys and
// authorizes accounts and transactions on behalf of the user. Any concrete
// wallet implements this set.
type SignerProvider interface {
	// RequestAccounts asks the provider for account access. It may prompt
	// the user and suspends the caller until the user responds or the
	// provider reports an error.
	RequestAccounts(ctx context.Context) ([]string, error)

	// Accounts returns the already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]string, error)

	// ChainID returns the chain the provider is currently bound to.
	ChainID(ctx context.Context) (uint64, error)

	// AddOrSwitchChain asks the provider to switch to the described chain,
	// registering it first if the provider does not know it.
	AddOrSwitchChain(ctx context.Context, profile core.ChainProfile) error

	// SendTransaction signs and submits a native value transfer, returning
	// the transaction hash.
	SendTransaction(ctx context.Context, to string, amount decimal.Decimal) (string, error)

	// SignMessage signs an arbitrary message with the active account.
	SignMessage(ctx context.Context, message []byte) (string, error)

	// Subscribe registers a handler for provider notifications. The
	// returned disposer unregisters the handler and must be called on
	// teardown.
	Subscribe(handler func(core.SignerEvent)) (unsubscribe func())
}

// PermissionRevoker is an optional provider capability to revoke granted
// account permissions remotely. Disconnect calls it best-effort when the
// provider supports it.
type PermissionRevoker interface {
	RevokePermissions(ctx context.Context) error
}
