package workflow

import "errors"

// Sentinel errors reported by Machine.Fire. Callers match with
// errors.Is; the wrapped message names the state and trigger involved.
var (
	ErrInvalidTransition = errors.New("transition not permitted")
	ErrInvalidState      = errors.New("unknown workflow state")
	ErrGuardFailed       = errors.New("transition guard rejected")
)
