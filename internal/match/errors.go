package match

import "errors"

// Errors shared between the store implementations and the services that
// consume them.
var (
	ErrMatchNotFound = errors.New("match not found")

	// State errors: the operation is invalid for the match's current status.
	ErrMatchAlreadyResolved = errors.New("match is already in a terminal state")
	ErrInvalidMatchState    = errors.New("operation is invalid for the match's current state")
	ErrNotAParticipant      = errors.New("user does not play in this match")

	// Responding to an acknowledgement after the deadline has passed.
	ErrAckDeadlinePassed = errors.New("acknowledgement deadline has passed")
)
