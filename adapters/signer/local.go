// Package signer provides an in-process signing provider for development
// and testnet use. It plays the role a browser wallet plays for the UI:
// it holds keys, authorizes accounts, signs, and emits notifications.
package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/core"
)

const transferGasLimit = 21000

// Local is an in-process SignerProvider backed by raw ECDSA keys. Account
// access starts unauthorized; RequestAccounts grants it, so a fresh
// process resumes silently only after a prior grant within its lifetime.
type Local struct {
	client *ethclient.Client
	logger *slog.Logger

	mu          sync.Mutex
	keys        []*ecdsa.PrivateKey
	addresses   []string
	authorized  bool
	chainID     uint64
	knownChains map[uint64]core.ChainProfile

	subs    map[int]func(core.SignerEvent)
	nextSub int
}

// NewLocal creates a local signer bound to chainID. client may be nil when
// no RPC endpoint is reachable; transaction submission then fails.
func NewLocal(keys []*ecdsa.PrivateKey, chainID uint64, client *ethclient.Client, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	addresses := make([]string, 0, len(keys))
	for _, key := range keys {
		addresses = append(addresses, crypto.PubkeyToAddress(key.PublicKey).Hex())
	}
	return &Local{
		client:      client,
		logger:      logger,
		keys:        keys,
		addresses:   addresses,
		chainID:     chainID,
		knownChains: make(map[uint64]core.ChainProfile),
		subs:        make(map[int]func(core.SignerEvent)),
	}
}

// RegisterChain marks a chain as known without switching to it.
func (l *Local) RegisterChain(profile core.ChainProfile) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.knownChains[profile.ChainID] = profile
}

// RequestAccounts grants account access. A signer with no keys behaves
// like a user declining the prompt and grants nothing.
func (l *Local) RequestAccounts(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.addresses) == 0 {
		return nil, nil
	}
	l.authorized = true
	return append([]string(nil), l.addresses...), nil
}

// Accounts returns granted accounts without prompting.
func (l *Local) Accounts(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.authorized {
		return nil, nil
	}
	return append([]string(nil), l.addresses...), nil
}

// ChainID returns the chain the signer is currently bound to.
func (l *Local) ChainID(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chainID, nil
}

// AddOrSwitchChain switches the signer's active chain. An unrecognized
// chain is registered from the supplied profile and reported with the
// chain-not-recognized code; callers treat that as the expected add path.
func (l *Local) AddOrSwitchChain(ctx context.Context, profile core.ChainProfile) error {
	if profile.ChainID == 0 {
		return &core.ProviderError{Code: -32602, Message: "invalid chain id"}
	}

	l.mu.Lock()
	if l.chainID == profile.ChainID {
		l.mu.Unlock()
		return nil
	}
	_, known := l.knownChains[profile.ChainID]
	l.knownChains[profile.ChainID] = profile
	l.chainID = profile.ChainID
	l.mu.Unlock()

	l.emit(core.ChainChanged{ChainID: profile.ChainID})

	if !known {
		return &core.ProviderError{
			Code:    core.CodeChainNotRecognized,
			Message: fmt.Sprintf("unrecognized chain %d added", profile.ChainID),
		}
	}
	return nil
}

// SendTransaction signs and submits a native value transfer from the
// first account.
func (l *Local) SendTransaction(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	l.mu.Lock()
	key, chainID, authorized := l.activeKey()
	l.mu.Unlock()
	if !authorized {
		return "", &core.ProviderError{Code: 4100, Message: "account access not granted"}
	}
	if l.client == nil {
		return "", fmt.Errorf("no rpc endpoint configured")
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := l.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := l.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("suggest gas price: %w", err)
	}

	value := amount.Shift(18).BigInt()
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       ptr(common.HexToAddress(to)),
		Value:    value,
		Gas:      transferGasLimit,
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(new(big.Int).SetUint64(chainID)), key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	if err := l.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("submit transaction: %w", err)
	}

	hash := signed.Hash().Hex()
	l.logger.Info("transaction submitted", "hash", hash, "to", to, "value", amount)
	return hash, nil
}

// SignMessage signs message with the first account using the personal-sign
// scheme: keccak256("\x19Ethereum Signed Message:\n" + len + message).
func (l *Local) SignMessage(ctx context.Context, message []byte) (string, error) {
	l.mu.Lock()
	key, _, authorized := l.activeKey()
	l.mu.Unlock()
	if !authorized {
		return "", &core.ProviderError{Code: 4100, Message: "account access not granted"}
	}

	hash := personalHash(message)
	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

// RevokePermissions drops the account grant and notifies subscribers with
// an empty account list.
func (l *Local) RevokePermissions(ctx context.Context) error {
	l.mu.Lock()
	l.authorized = false
	l.mu.Unlock()
	l.emit(core.AccountsChanged{})
	return nil
}

// Subscribe registers a notification handler and returns its disposer.
func (l *Local) Subscribe(handler func(core.SignerEvent)) func() {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = handler
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// activeKey must be called with mu held.
func (l *Local) activeKey() (*ecdsa.PrivateKey, uint64, bool) {
	if !l.authorized || len(l.keys) == 0 {
		return nil, 0, false
	}
	return l.keys[0], l.chainID, true
}

// emit delivers an event to all subscribers on the caller's goroutine.
func (l *Local) emit(ev core.SignerEvent) {
	l.mu.Lock()
	handlers := make([]func(core.SignerEvent), 0, len(l.subs))
	for _, h := range l.subs {
		handlers = append(handlers, h)
	}
	l.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

func personalHash(message []byte) common.Hash {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256Hash([]byte(prefixed))
}

func ptr[T any](v T) *T { return &v }
