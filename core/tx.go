package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionInfo is the read model for a transaction looked up by hash,
// combined from the transaction itself and its receipt.
type TransactionInfo struct {
	Hash        string          `json:"hash"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Value       decimal.Decimal `json:"value"`
	GasUsed     uint64          `json:"gas_used"`
	GasPrice    decimal.Decimal `json:"gas_price"`
	BlockNumber uint64          `json:"block_number"`
	Status      string          `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
}
