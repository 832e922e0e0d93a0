package core

import "errors"

var (
	// ErrNoSignerAvailable is returned when no external signing capability
	// is present in the environment.
	ErrNoSignerAvailable = errors.New("no signing provider available")

	// ErrNoAccountsGranted is returned when the signer grants zero accounts.
	ErrNoAccountsGranted = errors.New("no accounts granted")

	// ErrSignerNotConnected is returned when an operation requires an
	// active session and none exists.
	ErrSignerNotConnected = errors.New("signer not connected")

	// ErrNetworkSwitchFailed is returned when an add-or-switch-chain call
	// fails for a reason other than the chain being unrecognized.
	ErrNetworkSwitchFailed = errors.New("network switch failed")

	// ErrTransferFailed is returned when a value transfer is rejected
	// downstream.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrFaucetGrantFailed is returned when the faucet backend rejects a
	// grant request.
	ErrFaucetGrantFailed = errors.New("faucet grant failed")

	// ErrInvalidAddress is returned when an account address is malformed.
	ErrInvalidAddress = errors.New("invalid account address")

	// ErrUnknownToken is returned when a token symbol is not in the grant
	// table.
	ErrUnknownToken = errors.New("unknown token")
)
