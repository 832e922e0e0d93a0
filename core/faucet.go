package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus is the lifecycle status of a faucet request. Transitions
// are forward-only: pending moves to exactly one of success or failed and
// never reverts.
type RequestStatus string

const (
	StatusPending RequestStatus = "pending"
	StatusSuccess RequestStatus = "success"
	StatusFailed  RequestStatus = "failed"
)

// FaucetRequest records one token-grant request. A record is created in
// pending state and mutated once when the grant resolves; it carries no
// assigned id and is identified by (Address, Token, Timestamp).
type FaucetRequest struct {
	Address   string          `json:"address"`
	Token     Token           `json:"token"`
	Amount    decimal.Decimal `json:"amount"`
	Status    RequestStatus   `json:"status"`
	TxRef     string          `json:"tx_ref,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
