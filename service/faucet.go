package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/core"
	"github.com/agentpay/walletd/metrics"
	"github.com/agentpay/walletd/ports"
)

// DefaultGrantAmounts is the fixed per-token grant table.
var DefaultGrantAmounts = map[core.Token]decimal.Decimal{
	core.TokenMonad: decimal.NewFromInt(100),
	core.TokenUSDC:  decimal.NewFromInt(1000),
	core.TokenDAI:   decimal.NewFromInt(1000),
}

// FaucetDispatcher issues token-grant requests for the session's account
// and keeps an append-only, most-recent-first request history. Overlapping
// requests for the same (address, token) pair are intentionally not
// deduplicated; rate limiting belongs to the faucet backend.
type FaucetDispatcher struct {
	session *SigningSession
	backend ports.GrantBackend
	events  ports.EventPublisher
	logger  *slog.Logger
	amounts map[core.Token]decimal.Decimal

	mu      sync.RWMutex
	history []*core.FaucetRequest

	inflight sync.WaitGroup
}

// NewFaucetDispatcher creates a dispatcher over the given session and
// grant backend, using the default grant table.
func NewFaucetDispatcher(session *SigningSession, backend ports.GrantBackend, events ports.EventPublisher, logger *slog.Logger) *FaucetDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FaucetDispatcher{
		session: session,
		backend: backend,
		events:  events,
		logger:  logger,
		amounts: DefaultGrantAmounts,
	}
}

// SetAmounts overrides the grant table. Call before the first request.
func (d *FaucetDispatcher) SetAmounts(amounts map[core.Token]decimal.Decimal) {
	if len(amounts) > 0 {
		d.amounts = amounts
	}
}

// Request issues a grant for the connected account. It records a pending
// entry, starts the grant asynchronously and returns a snapshot of the
// pending record. No record is created when the session is not connected
// or the token is unknown.
func (d *FaucetDispatcher) Request(ctx context.Context, token core.Token) (core.FaucetRequest, error) {
	address, ok := d.session.Address()
	if !ok {
		return core.FaucetRequest{}, core.ErrSignerNotConnected
	}
	amount, ok := d.amounts[token]
	if !ok {
		return core.FaucetRequest{}, core.ErrUnknownToken
	}

	req := &core.FaucetRequest{
		Address:   address,
		Token:     token,
		Amount:    amount,
		Status:    core.StatusPending,
		Timestamp: time.Now(),
	}

	// Snapshot under the lock, before the resolving goroutine exists;
	// resolve mutates the shared record under the same lock.
	d.mu.Lock()
	d.history = append([]*core.FaucetRequest{req}, d.history...)
	snapshot := *req
	d.mu.Unlock()

	d.logger.Info("faucet grant requested", "address", address, "token", token, "amount", amount)

	// The grant outlives the caller's request; only its deadline is
	// dropped, values are kept.
	grantCtx := context.WithoutCancel(ctx)
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		ref, err := d.backend.Grant(grantCtx, address, token, amount)
		d.resolve(grantCtx, req, ref, err)
	}()

	return snapshot, nil
}

// resolve moves a pending record to its terminal status exactly once.
func (d *FaucetDispatcher) resolve(ctx context.Context, req *core.FaucetRequest, ref string, err error) {
	d.mu.Lock()
	if req.Status != core.StatusPending {
		d.mu.Unlock()
		return
	}
	if err != nil {
		req.Status = core.StatusFailed
		req.Error = err.Error()
	} else {
		req.Status = core.StatusSuccess
		req.TxRef = ref
	}
	snapshot := *req
	d.mu.Unlock()

	metrics.FaucetRequests.WithLabelValues(string(snapshot.Token), string(snapshot.Status)).Inc()
	if err != nil {
		d.logger.Warn("faucet grant failed", "address", snapshot.Address, "token", snapshot.Token, "error", err)
	} else {
		d.logger.Info("faucet grant succeeded", "address", snapshot.Address, "token", snapshot.Token, "tx_ref", ref)
	}

	if d.events != nil {
		if perr := d.events.PublishFaucetResolved(ctx, snapshot); perr != nil {
			d.logger.Warn("publish faucet event", "error", perr)
		}
	}
}

// History returns copies of the most recent requests, newest first. A
// limit of zero or less returns the full history; the dispatcher itself
// never discards records.
func (d *FaucetDispatcher) History(limit int) []core.FaucetRequest {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := len(d.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]core.FaucetRequest, 0, n)
	for _, req := range d.history[:n] {
		out = append(out, *req)
	}
	return out
}

// Wait blocks until all in-flight grants have resolved. Used by shutdown
// and by tests.
func (d *FaucetDispatcher) Wait() {
	d.inflight.Wait()
}
