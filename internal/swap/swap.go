// Package swap implements the swap session coordinator: it validates
// creation parameters, drives the session state machine, and produces the
// chain-specific transaction descriptors for each phase. It never signs
// or broadcasts anything; descriptors are handed to external
// collaborators for submission.
package swap

import (
	"errors"
)

// Common errors. Callers classify with errors.Is; the RPC layer maps each
// kind to a stable code. ErrInvalidParameters and ErrNotFound variants
// also surface from the storage package.
var (
	ErrVerificationFailed  = errors.New("secret does not match hashlock")
	ErrSwapExpired         = errors.New("swap timelock has passed")
	ErrUpstreamUnavailable = errors.New("upstream data source unavailable")
	ErrInvalidSession      = errors.New("invalid session input")
	ErrOrderNotCompatible  = errors.New("order is not compatible with the swap protocol")
)
