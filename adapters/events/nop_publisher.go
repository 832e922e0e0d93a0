package events

import (
	"context"

	"github.com/agentpay/walletd/core"
	"github.com/agentpay/walletd/ports"
)

// NopPublisher discards all events. Used when no message broker is
// configured.
type NopPublisher struct{}

// NewNopPublisher creates a publisher that drops everything.
func NewNopPublisher() ports.EventPublisher {
	return NopPublisher{}
}

func (NopPublisher) PublishConnected(ctx context.Context, address string, chainID uint64) error {
	return nil
}

func (NopPublisher) PublishDisconnected(ctx context.Context, address string) error {
	return nil
}

func (NopPublisher) PublishFaucetResolved(ctx context.Context, req core.FaucetRequest) error {
	return nil
}
