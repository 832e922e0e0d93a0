package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionState exposes the current session state (one-hot per state)
	SessionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "walletd_session_state",
			Help: "Current signing session state",
		},
		[]string{"state"},
	)

	// SessionTransitions tracks session state transitions
	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletd_session_transitions_total",
			Help: "Total number of session state transitions",
		},
		[]string{"to"},
	)

	// SignerEvents tracks notifications received from the signing provider
	SignerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletd_signer_events_total",
			Help: "Total number of signer events received",
		},
		[]string{"type"},
	)

	// FaucetRequests tracks faucet requests by token and terminal status
	FaucetRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletd_faucet_requests_total",
			Help: "Total number of faucet grant requests",
		},
		[]string{"token", "status"},
	)

	// NetworkSwitches tracks add-or-switch-chain attempts by outcome
	NetworkSwitches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletd_network_switches_total",
			Help: "Total number of network switch attempts",
		},
		[]string{"outcome"},
	)
)

// SetSessionState records the active state on the one-hot gauge.
func SetSessionState(state string) {
	for _, s := range []string{"disconnected", "connecting", "connected", "error"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		SessionState.WithLabelValues(s).Set(v)
	}
}
