package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/agentpay/walletd/core"
	"github.com/agentpay/walletd/ports"
)

// Topics for session lifecycle events.
const (
	TopicSessionConnected    = "walletd.session.connected"
	TopicSessionDisconnected = "walletd.session.disconnected"
	TopicFaucetResolved      = "walletd.faucet.resolved"
)

// SessionEvent is the payload for connect/disconnect notifications.
type SessionEvent struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chain_id,omitempty"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishConnected publishes a session-connected event.
func (p *WatermillPublisher) PublishConnected(ctx context.Context, address string, chainID uint64) error {
	return p.publish(TopicSessionConnected, SessionEvent{Address: address, ChainID: chainID})
}

// PublishDisconnected publishes a session-disconnected event.
func (p *WatermillPublisher) PublishDisconnected(ctx context.Context, address string) error {
	return p.publish(TopicSessionDisconnected, SessionEvent{Address: address})
}

// PublishFaucetResolved publishes the terminal state of a faucet request.
func (p *WatermillPublisher) PublishFaucetResolved(ctx context.Context, req core.FaucetRequest) error {
	return p.publish(TopicFaucetResolved, req)
}

func (p *WatermillPublisher) publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), data)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
