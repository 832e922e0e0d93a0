package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpay/walletd/core"
)

const (
	addrA = "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa1111"
	addrB = "0xBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBb2222"

	addrALower = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1111"
	addrBLower = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb2222"
)

// fakeProvider is a scripted SignerProvider. Events are delivered
// synchronously on the caller's goroutine.
type fakeProvider struct {
	mu           sync.Mutex
	granted      []string
	silent       []string
	chainID      uint64
	requestErr   error
	switchErr    error
	sendErr      error
	requestGate  chan struct{}
	requestCalls int
	switchCalls  int
	handlers     map[int]func(core.SignerEvent)
	next         int
}

func newFakeProvider(granted []string, chainID uint64) *fakeProvider {
	return &fakeProvider{
		granted:  granted,
		chainID:  chainID,
		handlers: make(map[int]func(core.SignerEvent)),
	}
}

func (p *fakeProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	p.requestCalls++
	gate := p.requestGate
	requestErr := p.requestErr
	granted := append([]string(nil), p.granted...)
	p.mu.Unlock()

	// A non-nil gate models the prompt staying open until the test
	// releases it.
	if gate != nil {
		<-gate
	}
	if requestErr != nil {
		return nil, requestErr
	}
	return granted, nil
}

func (p *fakeProvider) Accounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.silent...), nil
}

func (p *fakeProvider) ChainID(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainID, nil
}

func (p *fakeProvider) AddOrSwitchChain(ctx context.Context, profile core.ChainProfile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.switchCalls++
	return p.switchErr
}

func (p *fakeProvider) SendTransaction(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return "", p.sendErr
	}
	return "0xdeadbeef", nil
}

func (p *fakeProvider) SignMessage(ctx context.Context, message []byte) (string, error) {
	return "0xsigned", nil
}

func (p *fakeProvider) Subscribe(handler func(core.SignerEvent)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	p.handlers[id] = handler
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}
}

func (p *fakeProvider) emit(ev core.SignerEvent) {
	p.mu.Lock()
	handlers := make([]func(core.SignerEvent), 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// revokingProvider additionally supports remote permission revocation.
type revokingProvider struct {
	*fakeProvider
	revokeErr    error
	revokeCalled bool
}

func (p *revokingProvider) RevokePermissions(ctx context.Context) error {
	p.revokeCalled = true
	return p.revokeErr
}

type fakeReader struct {
	balances map[string]decimal.Decimal
}

func (r *fakeReader) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	return r.balances[address], nil
}

func (r *fakeReader) Transaction(ctx context.Context, hash string) (*core.TransactionInfo, error) {
	return nil, errors.New("not supported")
}

// recordingPublisher counts published session events.
type recordingPublisher struct {
	mu           sync.Mutex
	connected    []string
	disconnected []string
	resolved     []core.FaucetRequest
}

func (p *recordingPublisher) PublishConnected(ctx context.Context, address string, chainID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = append(p.connected, address)
	return nil
}

func (p *recordingPublisher) PublishDisconnected(ctx context.Context, address string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnected = append(p.disconnected, address)
	return nil
}

func (p *recordingPublisher) PublishFaucetResolved(ctx context.Context, req core.FaucetRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolved = append(p.resolved, req)
	return nil
}

func (p *recordingPublisher) connectedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.connected)
}

// requireInvariant asserts that the address is present iff the session is
// connected.
func requireInvariant(t *testing.T, s *SigningSession) {
	t.Helper()
	addr, ok := s.Address()
	if s.State() == core.StateConnected {
		require.True(t, ok)
		require.NotEmpty(t, addr)
	} else {
		require.False(t, ok)
		require.Empty(t, addr)
	}
}

func TestConnect_GrantsFirstAccount(t *testing.T) {
	provider := newFakeProvider([]string{addrA}, 1337)
	session := NewSigningSession(provider, &fakeReader{}, nil, nil)
	defer session.Close()

	info, err := session.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, core.StateConnected, session.State())
	assert.Equal(t, addrALower, info.Address)
	assert.Equal(t, uint64(1337), info.ChainID)

	addr, ok := session.Address()
	require.True(t, ok)
	assert.Equal(t, addrALower, addr)
	requireInvariant(t, session)
}

func TestConnect_NoProvider(t *testing.T) {
	session := NewSigningSession(nil, &fakeReader{}, nil, nil)
	defer session.Close()

	_, err := session.Connect(context.Background())
	require.ErrorIs(t, err, core.ErrNoSignerAvailable)
	assert.Equal(t, core.StateError, session.State())
	assert.ErrorIs(t, session.LastError(), core.ErrNoSignerAvailable)
	requireInvariant(t, session)

	// A retry is accepted from the error state.
	_, err = session.Connect(context.Background())
	require.ErrorIs(t, err, core.ErrNoSignerAvailable)
}

func TestConnect_ToleratesInterleavedEvents(t *testing.T) {
	provider := newFakeProvider([]string{addrA}, 1)
	gate := make(chan struct{})
	provider.requestGate = gate
	session := NewSigningSession(provider, &fakeReader{}, nil, nil)
	defer session.Close()

	var info core.SessionInfo
	var connErr error
	done := make(chan struct{})
	go func() {
		info, connErr = session.Connect(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return session.State() == core.StateConnecting
	}, time.Second, time.Millisecond, "prompt must be outstanding")

	// Notifications arriving while the prompt is open must not wedge the
	// connect; a non-connected session ignores them.
	provider.emit(core.ChainChanged{ChainID: 999})
	provider.emit(core.AccountsChanged{Accounts: []string{addrB}})
	provider.emit(core.AccountsChanged{})

	close(gate)
	<-done

	require.NoError(t, connErr)
	assert.Equal(t, addrALower, info.Address)
	assert.Equal(t, core.StateConnected, session.State())
	chainID, ok := session.ChainID()
	require.True(t, ok)
	assert.Equal(t, uint64(1), chainID)
	requireInvariant(t, session)
}

func TestConnect_ZeroAccountsThenRetry(t *testing.T) {
	provider := newFakeProvider(nil, 1337)
	session := NewSigningSession(provider, &fakeReader{}, nil, nil)
	defer session.Close()

	_, err := session.Connect(context.Background())
	require.ErrorIs(t, err, core.ErrNoAccountsGranted)
	assert.Equal(t, core.StateError, session.State())
	requireInvariant(t, session)

	provider.mu.Lock()
	provider.granted = []string{addrA}
	provider.mu.Unlock()

	_, err = session.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.StateConnected, session.State())
	requireInvariant(t, session)
}

func TestDisconnect_FromAnyState(t *testing.T) {
	provider := newFakeProvider([]string{addrA}, 1337)
	session := NewSigningSession(provider, &fakeReader{}, nil, nil)
	defer session.Close()

	// From disconnected.
	session.Disconnect(context.Background())
	assert.Equal(t, core.StateDisconnected, session.State())
	requireInvariant(t, session)

	// From connected.
	_, err := session.Connect(context.Background())
	require.NoError(t, err)
	session.Disconnect(context.Background())
	assert.Equal(t, core.StateDisconnected, session.State())
	_, ok := session.ChainID()
	assert.False(t, ok)
	requireInvariant(t, session)

	// From error.
	provider.mu.Lock()
	provider.granted = nil
	provider.mu.Unlock()
	_, err = session.Connect(context.Background())
	require.Error(t, err)
	session.Disconnect(context.Background())
	assert.Equal(t, core.StateDisconnected, session.State())
	assert.NoError(t, session.LastError())
	requireInvariant(t, session)
}

func TestDisconnect_RevokesBestEffort(t *testing.T) {
	provider := &revokingProvider{
		fakeProvider: newFakeProvider([]string{addrA}, 1337),
		revokeErr:    errors.New("provider does not support revocation"),
	}
	session := NewSigningSession(provider, &fakeReader{}, nil, nil)
	defer session.Close()

	_, err := session.Connect(context.Background())
	require.NoError(t, err)

	session.Disconnect(context.Background())
	assert.True(t, provider.revokeCalled)
	assert.Equal(t, core.StateDisconnected, session.State())
}

func TestAccountsChanged_EmptyListDisconnects(t *testing.T) {
	provider := newFakeProvider([]string{addrA}, 1337)
	publisher := &recordingPublisher{}
	session := NewSigningSession(provider, &fakeReader{}, publisher, nil)
	defer session.Close()

	_, err := session.Connect(context.Background())
	require.NoError(t, err)

	provider.emit(core.AccountsChanged{})

	assert.Equal(t, core.StateDisconnected, session.State())
	_, ok := session.ChainID()
	assert.False(t, ok)
	requireInvariant(t, session)
	assert.Equal(t, []string{addrALower}, publisher.disconnected)
}

func TestAccountsChanged_NewAddress(t *testing.T) {
	provider := newFakeProvider([]string{addrA}, 1337)
	publisher := &recordingPublisher{}
	session := NewSigningSession(provider, &fakeReader{}, publisher, nil)
	defer session.Close()

	_, err := session.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, publisher.connectedCount())

	provider.emit(core.AccountsChanged{Accounts: []string{addrB}})
	addr, ok := session.Address()
	require.True(t, ok)
	assert.Equal(t, addrBLower, addr)
	assert.Equal(t, 2, publisher.connectedCount())

	// Same address again is idempotent: no state change emitted.
	provider.emit(core.AccountsChanged{Accounts: []string{addrB}})
	assert.Equal(t, 2, publisher.connectedCount())
	assert.Equal(t, core.StateConnected, session.State())
}

func TestAccountsChanged_IgnoredWhenNotConnected(t *testing.T) {
	provider := newFakeProvider([]string{addrA}, 1337)
	session := NewSigningSession(provider, &fakeReader{}, nil, nil)
	defer session.Close()

	provider.emit(core.AccountsChanged{Accounts: []string{addrB}})
	assert.Equal(t, core.StateDisconnected, session.State())
	requireInvariant(t, session)
}

func TestChainChanged_UpdatesChainID(t *testing.T) {
	provider := newFakeProvider([]string{addrA}, 1)
	session := NewSigningSession(provider, &fakeReader{}, nil, nil)
	defer session.Close()

	_, err := session.Connect(context.Background())
	require.NoError(t, err)

	provider.emit(core.ChainChanged{ChainID: 1337})

	chainID, ok := session.ChainID()
	require.True(t, ok)
	assert.Equal(t, uint64(1337), chainID)

	addr, ok := session.Address()
	require.True(t, ok)
	assert.Equal(t, addrALower, addr)
	assert.Equal(t, core.StateConnected, session.State())
}

func TestProviderDisconnected_DropsSession(t *testing.T) {
	provider := newFakeProvider([]string{addrA}, 1337)
	session := NewSigningSession(provider, &fakeReader{}, nil, nil)
	defer session.Close()

	_, err := session.Connect(context.Background())
	require.NoError(t, err)

	provider.emit(core.Disconnected{})
	assert.Equal(t, core.StateDisconnected, session.State())
	requireInvariant(t, session)
}

func TestResume_AdoptsAuthorizedAccounts(t *testing.T) {
	provider := newFakeProvider([]string{addrA}, 1337)
	provider.silent = []string{addrA}
	session := NewSigningSession(provider, &fakeReader{}, nil, nil)
	defer session.Close()

	require.NoError(t, session.Resume(context.Background()))
	assert.Equal(t, core.StateConnected, session.State())
	assert.Equal(t, 0, provider.requestCalls, "resume must not prompt")

	addr, ok := session.Address()
	require.True(t, ok)
	assert.Equal(t, addrALower, addr)
}

func TestResume_NoAuthorizedAccounts(t *testing.T) {
	provider := newFakeProvider([]string{addrA}, 1337)
	session := NewSigningSession(provider, &fakeReader{}, nil, nil)
	defer session.Close()

	require.NoError(t, session.Resume(context.Background()))
	assert.Equal(t, core.StateDisconnected, session.State())
	assert.Equal(t, 0, provider.requestCalls)
}

func TestBalance_RequiresSessionOrAddress(t *testing.T) {
	reader := &fakeReader{balances: map[string]decimal.Decimal{
		addrALower: decimal.NewFromInt(42),
	}}
	session := NewSigningSession(newFakeProvider(nil, 1337), reader, nil, nil)
	defer session.Close()

	_, err := session.Balance(context.Background(), "")
	require.ErrorIs(t, err, core.ErrSignerNotConnected)

	// An explicit address works without a session.
	balance, err := session.Balance(context.Background(), addrA)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(42)))
}

func TestSignMessage_RequiresConnected(t *testing.T) {
	session := NewSigningSession(newFakeProvider(nil, 1337), &fakeReader{}, nil, nil)
	defer session.Close()

	_, err := session.SignMessage(context.Background(), "hello")
	require.ErrorIs(t, err, core.ErrSignerNotConnected)
}

func TestSendValueTransfer_WrapsDownstreamFailure(t *testing.T) {
	provider := newFakeProvider([]string{addrA}, 1337)
	provider.sendErr = errors.New("insufficient funds")
	session := NewSigningSession(provider, &fakeReader{}, nil, nil)
	defer session.Close()

	_, err := session.Connect(context.Background())
	require.NoError(t, err)

	_, err = session.SendValueTransfer(context.Background(), addrB, decimal.NewFromInt(1))
	require.ErrorIs(t, err, core.ErrTransferFailed)
	assert.Contains(t, err.Error(), "insufficient funds")

	// The failed transfer does not disturb the session.
	assert.Equal(t, core.StateConnected, session.State())
}

func TestSendValueTransfer_InvalidRecipient(t *testing.T) {
	provider := newFakeProvider([]string{addrA}, 1337)
	session := NewSigningSession(provider, &fakeReader{}, nil, nil)
	defer session.Close()

	_, err := session.Connect(context.Background())
	require.NoError(t, err)

	_, err = session.SendValueTransfer(context.Background(), "not-an-address", decimal.NewFromInt(1))
	require.ErrorIs(t, err, core.ErrInvalidAddress)
}

func TestClose_UnsubscribesHandler(t *testing.T) {
	provider := newFakeProvider([]string{addrA}, 1337)
	session := NewSigningSession(provider, &fakeReader{}, nil, nil)

	_, err := session.Connect(context.Background())
	require.NoError(t, err)

	session.Close()
	provider.emit(core.AccountsChanged{})

	// The revocation was not observed after teardown.
	assert.Equal(t, core.StateConnected, session.State())
}
