// Package faucet provides grant backend implementations: a simulator for
// local development and a client for a real faucet service.
package faucet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/core"
)

// DefaultSimDelay mirrors the latency of a typical testnet faucet round
// trip.
const DefaultSimDelay = 2 * time.Second

// Simulated is a grant backend that always succeeds after a fixed delay,
// returning a synthetic transaction reference.
type Simulated struct {
	delay time.Duration
}

// NewSimulated creates a simulator. A non-positive delay falls back to
// DefaultSimDelay.
func NewSimulated(delay time.Duration) *Simulated {
	if delay <= 0 {
		delay = DefaultSimDelay
	}
	return &Simulated{delay: delay}
}

// Grant waits out the configured delay and fabricates a reference.
func (s *Simulated) Grant(ctx context.Context, address string, token core.Token, amount decimal.Decimal) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(s.delay):
	}

	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(buf[:]), nil
}
