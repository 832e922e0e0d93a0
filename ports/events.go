package ports

import (
	"context"

	"github.com/agentpay/walletd/core"
)

// EventPublisher publishes session lifecycle events to notify other
// local components.
type EventPublisher interface {
	PublishConnected(ctx context.Context, address string, chainID uint64) error
	PublishDisconnected(ctx context.Context, address string) error
	PublishFaucetResolved(ctx context.Context, req core.FaucetRequest) error
}
