package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agentpay/walletd/core"
	"github.com/agentpay/walletd/metrics"
	"github.com/agentpay/walletd/ports"
)

// NetworkSwitcher ensures the session's active chain matches a target
// profile, registering the chain with the provider when it is unknown.
type NetworkSwitcher struct {
	session  *SigningSession
	provider ports.SignerProvider
	logger   *slog.Logger
}

// NewNetworkSwitcher creates a switcher over the given session and
// provider.
func NewNetworkSwitcher(session *SigningSession, provider ports.SignerProvider, logger *slog.Logger) *NetworkSwitcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NetworkSwitcher{
		session:  session,
		provider: provider,
		logger:   logger,
	}
}

// Ensure makes the provider's active chain match profile. When the session
// already reports the target chain no provider call is issued. A provider
// response of "chain not recognized" is the expected add path and is
// swallowed; any other failure wraps ErrNetworkSwitchFailed. Ensure never
// changes the session address; the new chain id is observed through the
// next chain-changed notification.
func (n *NetworkSwitcher) Ensure(ctx context.Context, profile core.ChainProfile) error {
	if chainID, ok := n.session.ChainID(); ok && chainID == profile.ChainID {
		metrics.NetworkSwitches.WithLabelValues("noop").Inc()
		return nil
	}
	if n.provider == nil {
		metrics.NetworkSwitches.WithLabelValues("failed").Inc()
		return fmt.Errorf("%w: %v", core.ErrNetworkSwitchFailed, core.ErrNoSignerAvailable)
	}

	err := n.provider.AddOrSwitchChain(ctx, profile)
	if err != nil {
		var perr *core.ProviderError
		if errors.As(err, &perr) && perr.Code == core.CodeChainNotRecognized {
			// The provider asked for the chain to be added; the add was
			// carried in this request, so this is not a failure.
			n.logger.Debug("chain not recognized by provider, added", "chain_id", profile.ChainID)
		} else {
			metrics.NetworkSwitches.WithLabelValues("failed").Inc()
			return fmt.Errorf("%w: %v", core.ErrNetworkSwitchFailed, err)
		}
	}

	metrics.NetworkSwitches.WithLabelValues("switched").Inc()
	n.logger.Info("network switch requested", "chain_id", profile.ChainID, "name", profile.Name)
	return nil
}
