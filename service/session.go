package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/core"
	"github.com/agentpay/walletd/metrics"
	"github.com/agentpay/walletd/ports"
)

// SigningSession owns the lifecycle of one connected signing identity.
// It is constructed once per process in the disconnected state and driven
// by explicit connect/disconnect calls and by provider notifications.
//
// The session holds its lock only while touching its own fields, never
// across a provider prompt, so notifications may legally interleave with
// an outstanding connect and the state observed at resolution time can
// differ from the state observed at issuance time.
type SigningSession struct {
	provider ports.SignerProvider
	reader   ports.ChainReader
	events   ports.EventPublisher
	logger   *slog.Logger

	mu      sync.Mutex
	state   core.SessionState
	address string
	chainID uint64
	lastErr error

	unsubscribe func()
}

// NewSigningSession creates a session in the disconnected state and
// registers for provider notifications. A nil provider means no signing
// capability exists in the environment; connect attempts will then fail
// with ErrNoSignerAvailable.
func NewSigningSession(provider ports.SignerProvider, reader ports.ChainReader, events ports.EventPublisher, logger *slog.Logger) *SigningSession {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SigningSession{
		provider: provider,
		reader:   reader,
		events:   events,
		logger:   logger,
		state:    core.StateDisconnected,
	}
	if provider != nil {
		s.unsubscribe = provider.Subscribe(s.handleEvent)
	}
	metrics.SetSessionState(s.state.String())
	return s
}

// Close unregisters the provider event handler. The session is not usable
// afterwards.
func (s *SigningSession) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// setState must be called with mu held and only on an actual change.
func (s *SigningSession) setState(state core.SessionState) {
	s.state = state
	metrics.SessionTransitions.WithLabelValues(state.String()).Inc()
	metrics.SetSessionState(state.String())
}

// Connect requests account access from the provider, prompting the user
// if needed, and binds the session to the first granted account. A failed
// attempt leaves the session in the error state; retrying is always
// permitted.
func (s *SigningSession) Connect(ctx context.Context) (core.SessionInfo, error) {
	s.mu.Lock()
	if s.provider == nil {
		s.lastErr = core.ErrNoSignerAvailable
		s.setState(core.StateError)
		s.mu.Unlock()
		return core.SessionInfo{}, core.ErrNoSignerAvailable
	}
	s.setState(core.StateConnecting)
	provider := s.provider
	s.mu.Unlock()

	accounts, err := provider.RequestAccounts(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return core.SessionInfo{}, s.failLocked(err)
	}
	if len(accounts) == 0 {
		return core.SessionInfo{}, s.failLocked(core.ErrNoAccountsGranted)
	}
	addr, err := core.NormalizeAddress(accounts[0])
	if err != nil {
		return core.SessionInfo{}, s.failLocked(err)
	}
	chainID, err := provider.ChainID(ctx)
	if err != nil {
		return core.SessionInfo{}, s.failLocked(err)
	}

	s.address = addr
	s.chainID = chainID
	s.lastErr = nil
	s.setState(core.StateConnected)
	s.publishConnected(ctx, addr, chainID)
	return core.SessionInfo{Address: addr, ChainID: chainID}, nil
}

// failLocked records err, moves the session to the error state and
// returns err. Must be called with mu held.
func (s *SigningSession) failLocked(err error) error {
	s.lastErr = err
	s.address = ""
	s.chainID = 0
	s.setState(core.StateError)
	return err
}

// Resume silently adopts accounts the provider has already authorized,
// skipping the prompt path. Intended to be called once, right after
// construction; it is a no-op when nothing is authorized.
func (s *SigningSession) Resume(ctx context.Context) error {
	s.mu.Lock()
	if s.provider == nil || s.state != core.StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	provider := s.provider
	s.mu.Unlock()

	accounts, err := provider.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("query authorized accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil
	}
	addr, err := core.NormalizeAddress(accounts[0])
	if err != nil {
		return err
	}
	chainID, err := provider.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("query chain id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != core.StateDisconnected {
		return nil
	}
	s.address = addr
	s.chainID = chainID
	s.setState(core.StateConnected)
	s.publishConnected(ctx, addr, chainID)
	return nil
}

// Disconnect clears the session locally from any state. Remote revocation
// is attempted best-effort when the provider supports it; its failure is
// logged, never returned.
func (s *SigningSession) Disconnect(ctx context.Context) {
	s.mu.Lock()
	addr := s.address
	s.address = ""
	s.chainID = 0
	s.lastErr = nil
	if s.state != core.StateDisconnected {
		s.setState(core.StateDisconnected)
	}
	provider := s.provider
	s.mu.Unlock()

	if revoker, ok := provider.(ports.PermissionRevoker); ok {
		if err := revoker.RevokePermissions(ctx); err != nil {
			s.logger.Warn("best-effort permission revoke failed", "error", err)
		}
	}
	if addr != "" {
		s.publishDisconnected(ctx, addr)
	}
}

// handleEvent dispatches a provider notification.
func (s *SigningSession) handleEvent(ev core.SignerEvent) {
	switch e := ev.(type) {
	case core.AccountsChanged:
		metrics.SignerEvents.WithLabelValues("accounts_changed").Inc()
		s.onAccountsChanged(e.Accounts)
	case core.ChainChanged:
		metrics.SignerEvents.WithLabelValues("chain_changed").Inc()
		s.onChainChanged(e.ChainID)
	case core.Disconnected:
		metrics.SignerEvents.WithLabelValues("disconnected").Inc()
		s.dropSession("provider disconnected")
	}
}

func (s *SigningSession) onAccountsChanged(accounts []string) {
	s.mu.Lock()
	if s.state != core.StateConnected {
		s.mu.Unlock()
		return
	}
	if len(accounts) == 0 {
		s.mu.Unlock()
		s.dropSession("accounts revoked")
		return
	}
	addr, err := core.NormalizeAddress(accounts[0])
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("ignoring malformed account from provider", "account", accounts[0])
		return
	}
	if addr == s.address {
		// Same identity, nothing to emit.
		s.mu.Unlock()
		return
	}
	s.address = addr
	chainID := s.chainID
	s.mu.Unlock()

	s.logger.Info("active account changed", "address", addr)
	s.publishConnected(context.Background(), addr, chainID)
}

func (s *SigningSession) onChainChanged(chainID uint64) {
	s.mu.Lock()
	if s.state != core.StateConnected {
		s.mu.Unlock()
		return
	}
	s.chainID = chainID
	s.mu.Unlock()

	// Callers relying on a stable chain binding observe the new id on the
	// next read and must reverify network compatibility.
	s.logger.Info("signer chain changed", "chain_id", chainID)
}

// dropSession clears the session without touching the provider.
func (s *SigningSession) dropSession(reason string) {
	s.mu.Lock()
	addr := s.address
	s.address = ""
	s.chainID = 0
	if s.state == core.StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.setState(core.StateDisconnected)
	s.mu.Unlock()

	s.logger.Info("session dropped", "reason", reason)
	if addr != "" {
		s.publishDisconnected(context.Background(), addr)
	}
}

// State returns the current session state.
func (s *SigningSession) State() core.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Address returns the connected account, present iff the session is
// connected.
func (s *SigningSession) Address() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address, s.state == core.StateConnected
}

// ChainID returns the chain currently reported by the provider.
func (s *SigningSession) ChainID() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chainID, s.state == core.StateConnected
}

// LastError returns the error recorded by the most recent failed connect.
func (s *SigningSession) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Balance reads the native balance of an address through the chain RPC.
// With an empty address it reads the connected account and fails with
// ErrSignerNotConnected when there is none. Balance queries never mutate
// session state.
func (s *SigningSession) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	if address == "" {
		addr, ok := s.Address()
		if !ok {
			return decimal.Zero, core.ErrSignerNotConnected
		}
		address = addr
	} else {
		addr, err := core.NormalizeAddress(address)
		if err != nil {
			return decimal.Zero, err
		}
		address = addr
	}
	return s.reader.Balance(ctx, address)
}

// SignMessage signs an arbitrary message with the connected account.
func (s *SigningSession) SignMessage(ctx context.Context, message string) (string, error) {
	provider, err := s.connectedProvider()
	if err != nil {
		return "", err
	}
	sig, err := provider.SignMessage(ctx, []byte(message))
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	return sig, nil
}

// SendValueTransfer submits a native value transfer from the connected
// account.
func (s *SigningSession) SendValueTransfer(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	toAddr, err := core.NormalizeAddress(to)
	if err != nil {
		return "", err
	}
	provider, err := s.connectedProvider()
	if err != nil {
		return "", err
	}
	hash, err := provider.SendTransaction(ctx, toAddr, amount)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrTransferFailed, err)
	}
	return hash, nil
}

func (s *SigningSession) connectedProvider() (ports.SignerProvider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != core.StateConnected {
		return nil, core.ErrSignerNotConnected
	}
	return s.provider, nil
}

func (s *SigningSession) publishConnected(ctx context.Context, address string, chainID uint64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishConnected(ctx, address, chainID); err != nil {
		s.logger.Warn("publish connected event", "error", err)
	}
}

func (s *SigningSession) publishDisconnected(ctx context.Context, address string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishDisconnected(ctx, address); err != nil {
		s.logger.Warn("publish disconnected event", "error", err)
	}
}
