// Package rpc reads chain state through an Ethereum JSON-RPC endpoint.
package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/core"
)

const nativeDecimals = 18

// EthReader implements ports.ChainReader over an ethclient connection.
type EthReader struct {
	client *ethclient.Client
}

// NewEthReader wraps an established client.
func NewEthReader(client *ethclient.Client) *EthReader {
	return &EthReader{client: client}
}

// Dial connects to the RPC endpoint of a chain profile.
func Dial(ctx context.Context, profile core.ChainProfile) (*EthReader, error) {
	client, err := ethclient.DialContext(ctx, profile.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", profile.RPCURL, err)
	}
	return NewEthReader(client), nil
}

// Balance returns the latest native balance of address in native units.
func (r *EthReader) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	wei, err := r.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance of %s: %w", address, err)
	}
	return decimal.NewFromBigInt(wei, -nativeDecimals), nil
}

// Transaction looks up a transaction by hash and folds in its receipt.
// A transaction that is known but not yet mined reports pending status
// with zero receipt fields.
func (r *EthReader) Transaction(ctx context.Context, hash string) (*core.TransactionInfo, error) {
	txHash := common.HexToHash(hash)
	tx, pending, err := r.client.TransactionByHash(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", hash, err)
	}

	info := &core.TransactionInfo{
		Hash:     tx.Hash().Hex(),
		Value:    decimal.NewFromBigInt(tx.Value(), -nativeDecimals),
		GasPrice: decimal.NewFromBigInt(tx.GasPrice(), 0),
		Status:   "pending",
	}
	if to := tx.To(); to != nil {
		info.To = to.Hex()
	}
	if sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		info.From = sender.Hex()
	}
	if pending {
		return info, nil
	}

	receipt, err := r.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("receipt %s: %w", hash, err)
	}
	info.GasUsed = receipt.GasUsed
	info.BlockNumber = receipt.BlockNumber.Uint64()
	if receipt.Status == types.ReceiptStatusSuccessful {
		info.Status = "success"
	} else {
		info.Status = "failed"
	}

	if header, err := r.client.HeaderByNumber(ctx, receipt.BlockNumber); err == nil {
		info.Timestamp = time.Unix(int64(header.Time), 0).UTC()
	}
	return info, nil
}
