package faucet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agentpay/walletd/core"
)

// HTTPBackend requests grants from a faucet service over HTTP.
type HTTPBackend struct {
	url    string
	client *http.Client
}

// NewHTTPBackend creates a client for the faucet service at url.
func NewHTTPBackend(url string) *HTTPBackend {
	return &HTTPBackend{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type grantRequest struct {
	Address string `json:"address"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
}

type grantResponse struct {
	TxRef string `json:"tx_ref"`
	Error string `json:"error"`
}

// Grant posts the request and returns the granted transaction reference.
// Service-side rejections wrap ErrFaucetGrantFailed.
func (b *HTTPBackend) Grant(ctx context.Context, address string, token core.Token, amount decimal.Decimal) (string, error) {
	payload, err := json.Marshal(grantRequest{
		Address: address,
		Token:   string(token),
		Amount:  amount.String(),
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrFaucetGrantFailed, err)
	}
	defer resp.Body.Close()

	var body grantResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", core.ErrFaucetGrantFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		reason := body.Error
		if reason == "" {
			reason = resp.Status
		}
		return "", fmt.Errorf("%w: %s", core.ErrFaucetGrantFailed, reason)
	}
	return body.TxRef, nil
}
