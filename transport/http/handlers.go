package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/core"
	"github.com/agentpay/walletd/ports"
	"github.com/agentpay/walletd/service"
)

// Handlers contains the HTTP handlers over the wallet session.
type Handlers struct {
	session    *service.SigningSession
	switcher   *service.NetworkSwitcher
	dispatcher *service.FaucetDispatcher
	reader     ports.ChainReader
	tickets    *TicketIssuer
	profile    core.ChainProfile
}

// NewHandlers creates the handler set.
func NewHandlers(
	session *service.SigningSession,
	switcher *service.NetworkSwitcher,
	dispatcher *service.FaucetDispatcher,
	reader ports.ChainReader,
	tickets *TicketIssuer,
	profile core.ChainProfile,
) *Handlers {
	return &Handlers{
		session:    session,
		switcher:   switcher,
		dispatcher: dispatcher,
		reader:     reader,
		tickets:    tickets,
		profile:    profile,
	}
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Chain returns the configured chain profile.
func (h *Handlers) Chain(c *gin.Context) {
	c.JSON(http.StatusOK, h.profile)
}

// Connect handles the connect request and returns the session identity
// together with a ticket for the protected endpoints.
func (h *Handlers) Connect(c *gin.Context) {
	info, err := h.session.Connect(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.tickets.Issue(info.Address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue session ticket"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":  info.Address,
		"chain_id": info.ChainID,
		"ticket":   ticket,
	})
}

// Disconnect handles the disconnect request.
func (h *Handlers) Disconnect(c *gin.Context) {
	h.session.Disconnect(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "disconnected"})
}

// Session reports the current session state.
func (h *Handlers) Session(c *gin.Context) {
	resp := gin.H{"state": h.session.State().String()}
	if address, ok := h.session.Address(); ok {
		resp["address"] = address
	}
	if chainID, ok := h.session.ChainID(); ok {
		resp["chain_id"] = chainID
	}
	if err := h.session.LastError(); err != nil {
		resp["last_error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// Balance returns the native balance of the query address, defaulting to
// the connected account.
func (h *Handlers) Balance(c *gin.Context) {
	balance, err := h.session.Balance(c.Request.Context(), c.Query("address"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance": balance,
		"symbol":  h.profile.NativeCurrencySymbol,
	})
}

// Sign signs a message with the connected account.
func (h *Handlers) Sign(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	signature, err := h.session.SignMessage(c.Request.Context(), req.Message)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"signature": signature,
		// Signing identity is set by the session middleware.
		"address": c.GetString("session_address"),
	})
}

// Transfer submits a native value transfer from the connected account.
func (h *Handlers) Transfer(c *gin.Context) {
	var req struct {
		To     string `json:"to" binding:"required"`
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	hash, err := h.session.SendValueTransfer(c.Request.Context(), req.To, amount)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tx_hash": hash,
		"from":    c.GetString("session_address"),
	})
}

// EnsureNetwork makes the signer's active chain match the configured
// profile.
func (h *Handlers) EnsureNetwork(c *gin.Context) {
	if err := h.switcher.Ensure(c.Request.Context(), h.profile); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chain_id": h.profile.ChainID})
}

// FaucetRequest issues a token grant for the connected account and
// returns the pending record.
func (h *Handlers) FaucetRequest(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := core.ParseToken(req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.dispatcher.Request(c.Request.Context(), token)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, record)
}

// FaucetHistory lists recent faucet requests, newest first. The default
// window matches what the dashboard shows.
func (h *Handlers) FaucetHistory(c *gin.Context) {
	limit := 5
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"requests": h.dispatcher.History(limit)})
}

// Transaction looks up a transaction by hash.
func (h *Handlers) Transaction(c *gin.Context) {
	info, err := h.reader.Transaction(c.Request.Context(), c.Param("hash"))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrSignerNotConnected),
		errors.Is(err, core.ErrNoAccountsGranted):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNoSignerAvailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrInvalidAddress),
		errors.Is(err, core.ErrUnknownToken):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNetworkSwitchFailed),
		errors.Is(err, core.ErrTransferFailed),
		errors.Is(err, core.ErrFaucetGrantFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
