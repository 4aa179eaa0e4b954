package matchmaking

import "errors"

var (
	// ErrWrongPool is returned when a user tries to join a pool while
	// registered to a different one.
	ErrWrongPool = errors.New("user is already waiting in a different pool")
)
