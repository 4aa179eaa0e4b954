package tournament

import "errors"

var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrInvalidParams      = errors.New("invalid tournament parameters")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrAlreadyRegistered  = errors.New("user already registered")
	ErrNotRegistered      = errors.New("user not registered")
	ErrTournamentFull     = errors.New("tournament is full")
	ErrNotEnoughPlayers   = errors.New("not enough players")
	ErrInvalidState       = errors.New("operation invalid for tournament state")
)
