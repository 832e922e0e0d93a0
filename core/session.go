package core

// SessionState is the externally observable state of a signing session.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	}
	return "unknown"
}

// SessionInfo is the identity a successful connect resolves to.
type SessionInfo struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chain_id"`
}
