package faucet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpay/walletd/core"
)

const grantAddr = "0x1111111111111111111111111111111111111111"

func TestSimulated_Grant(t *testing.T) {
	sim := NewSimulated(10 * time.Millisecond)

	ref, err := sim.Grant(context.Background(), grantAddr, core.TokenMonad, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "0x"))
	assert.Len(t, ref, 66)
}

func TestSimulated_ContextCancelled(t *testing.T) {
	sim := NewSimulated(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Grant(ctx, grantAddr, core.TokenMonad, decimal.NewFromInt(100))
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTTPBackend_Grant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req grantRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, grantAddr, req.Address)
		assert.Equal(t, "USDC", req.Token)
		assert.Equal(t, "1000", req.Amount)

		_ = json.NewEncoder(w).Encode(grantResponse{TxRef: "0xref"})
	}))
	defer server.Close()

	backend := NewHTTPBackend(server.URL)
	ref, err := backend.Grant(context.Background(), grantAddr, core.TokenUSDC, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "0xref", ref)
}

func TestHTTPBackend_ServiceRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(grantResponse{Error: "rate limited"})
	}))
	defer server.Close()

	backend := NewHTTPBackend(server.URL)
	_, err := backend.Grant(context.Background(), grantAddr, core.TokenDAI, decimal.NewFromInt(1000))
	require.ErrorIs(t, err, core.ErrFaucetGrantFailed)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestHTTPBackend_Unreachable(t *testing.T) {
	backend := NewHTTPBackend("http://127.0.0.1:1")
	_, err := backend.Grant(context.Background(), grantAddr, core.TokenMonad, decimal.NewFromInt(100))
	require.ErrorIs(t, err, core.ErrFaucetGrantFailed)
}
