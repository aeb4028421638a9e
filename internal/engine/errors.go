package engine

import "errors"

var (
	// ErrInsufficientFunds is returned by Submit when the configured credit
	// hook refuses a BUY order. No state is mutated.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrListenerFailure marks a recovered panic or error from a trade
	// listener. It is logged and never returned to a caller of Submit.
	ErrListenerFailure = errors.New("listener failure")
)
