package core

import "fmt"

// SignerEvent is a notification from the external signing provider.
// Provider adapters validate raw payloads at the boundary and emit one of
// the concrete event types below.
type SignerEvent interface {
	isSignerEvent()
}

// AccountsChanged reports the new authorized account list. An empty list
// means the user revoked access.
type AccountsChanged struct {
	Accounts []string
}

// ChainChanged reports the chain the signer is now bound to.
type ChainChanged struct {
	ChainID uint64
}

// Disconnected reports that the provider itself dropped the connection.
type Disconnected struct{}

func (AccountsChanged) isSignerEvent() {}
func (ChainChanged) isSignerEvent()    {}
func (Disconnected) isSignerEvent()    {}

// CodeChainNotRecognized is the provider error code signaling that the
// requested chain is not known to the signer and must be added first.
const CodeChainNotRecognized = 4902

// ProviderError is a coded error reported by the signing provider.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}
