package signer

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpay/walletd/core"
)

func newTestSigner(t *testing.T, chainID uint64) (*Local, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return NewLocal([]*ecdsa.PrivateKey{key}, chainID, nil, nil), key
}

func TestAccounts_SilentOnlyAfterGrant(t *testing.T) {
	local, key := newTestSigner(t, 1337)
	ctx := context.Background()

	// Nothing is authorized before the prompt.
	accounts, err := local.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	granted, err := local.RequestAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, granted, 1)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Hex(), granted[0])

	accounts, err = local.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, granted, accounts)
}

func TestRequestAccounts_NoKeysGrantsNothing(t *testing.T) {
	local := NewLocal(nil, 1337, nil, nil)
	accounts, err := local.RequestAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestAddOrSwitchChain(t *testing.T) {
	local, _ := newTestSigner(t, 1)
	ctx := context.Background()

	var events []core.SignerEvent
	unsubscribe := local.Subscribe(func(ev core.SignerEvent) {
		events = append(events, ev)
	})
	defer unsubscribe()

	profile := core.ChainProfile{ChainID: 1337, Name: "Monad Testnet"}

	// First switch: chain is unknown and reported as added.
	err := local.AddOrSwitchChain(ctx, profile)
	var perr *core.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, core.CodeChainNotRecognized, perr.Code)

	chainID, err := local.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1337), chainID)
	require.Len(t, events, 1)
	assert.Equal(t, core.ChainChanged{ChainID: 1337}, events[0])

	// Switching to the active chain is a silent no-op.
	require.NoError(t, local.AddOrSwitchChain(ctx, profile))
	assert.Len(t, events, 1)

	// A registered chain switches cleanly.
	other := core.ChainProfile{ChainID: 1, Name: "Mainnet"}
	local.RegisterChain(other)
	require.NoError(t, local.AddOrSwitchChain(ctx, other))
	require.Len(t, events, 2)

	// Invalid chain ids are rejected outright.
	err = local.AddOrSwitchChain(ctx, core.ChainProfile{})
	require.ErrorAs(t, err, &perr)
	assert.NotEqual(t, core.CodeChainNotRecognized, perr.Code)
}

func TestSignMessage_RecoversSigner(t *testing.T) {
	local, key := newTestSigner(t, 1337)
	ctx := context.Background()

	// Signing requires a prior account grant.
	_, err := local.SignMessage(ctx, []byte("hello agent"))
	require.Error(t, err)

	_, err = local.RequestAccounts(ctx)
	require.NoError(t, err)

	sigHex, err := local.SignMessage(ctx, []byte("hello agent"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sigHex, "0x"))

	sig, err := hexutil.Decode(sigHex)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	sig[64] -= 27
	pub, err := crypto.SigToPub(personalHash([]byte("hello agent")).Bytes(), sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(*pub))
}

func TestRevokePermissions_EmitsEmptyAccounts(t *testing.T) {
	local, _ := newTestSigner(t, 1337)
	ctx := context.Background()

	_, err := local.RequestAccounts(ctx)
	require.NoError(t, err)

	var events []core.SignerEvent
	unsubscribe := local.Subscribe(func(ev core.SignerEvent) {
		events = append(events, ev)
	})
	defer unsubscribe()

	require.NoError(t, local.RevokePermissions(ctx))

	accounts, err := local.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
	require.Len(t, events, 1)
	assert.Equal(t, core.AccountsChanged{}, events[0])
}

func TestSubscribe_DisposerRemovesHandler(t *testing.T) {
	local, _ := newTestSigner(t, 1)

	var count int
	unsubscribe := local.Subscribe(func(core.SignerEvent) { count++ })

	local.emit(core.ChainChanged{ChainID: 2})
	assert.Equal(t, 1, count)

	unsubscribe()
	local.emit(core.ChainChanged{ChainID: 3})
	assert.Equal(t, 1, count)
}

func TestSendTransaction_RequiresGrantAndClient(t *testing.T) {
	local, _ := newTestSigner(t, 1337)
	ctx := context.Background()
	amount := decimal.NewFromInt(1)

	_, err := local.SendTransaction(ctx, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1111", amount)
	require.Error(t, err, "unauthorized signer must refuse")

	_, err = local.RequestAccounts(ctx)
	require.NoError(t, err)

	_, err = local.SendTransaction(ctx, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1111", amount)
	require.Error(t, err, "no rpc endpoint configured")
}
