package board

import "errors"

var (
	// ErrLeadNotFound means the lead is not in the loaded board state.
	ErrLeadNotFound = errors.New("lead not on board")
	// ErrInvalidStatus means the target is not a pipeline stage.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrTransitionInFlight means the lead already has an unconfirmed move.
	ErrTransitionInFlight = errors.New("transition already in flight")
)
