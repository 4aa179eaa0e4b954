package tournament

import (
	"time"
)

// Status tracks a tournament through its lifecycle. Transitions only move
// forward, except the TIE_BREAKER loop which always ends in COMPLETED.
type Status string

const (
	StatusRegistration Status = "REGISTRATION"
	StatusScheduled    Status = "SCHEDULED"
	StatusInProgress   Status = "IN_PROGRESS"
	StatusTieBreaker   Status = "TIE_BREAKER"
	StatusCompleted    Status = "COMPLETED"
	StatusCancelled    Status = "CANCELLED"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Tournament struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Status           Status     `json:"status"`
	MinPlayers       int        `json:"minPlayers"`
	MaxPlayers       int        `json:"maxPlayers"`
	RegistrationEnd  time.Time  `json:"registrationEnd"`
	StartTime        *time.Time `json:"startTime,omitempty"`
	MatchDeadlineMin int        `json:"matchDeadlineMin"`
	CreatedBy        string     `json:"createdBy"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Participant carries one player's standing within a tournament. FinalRank
// stays nil until finalization, when every participant's rank is written
// at once.
type Participant struct {
	TournamentID string    `json:"tournamentId"`
	UserID       string    `json:"userId"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	ScoreDiff    int       `json:"scoreDiff"`
	FinalRank    *int      `json:"finalRank,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// CreateParams is the caller-supplied shape of a new tournament.
type CreateParams struct {
	Name             string     `json:"name"`
	MinPlayers       int        `json:"minPlayers"`
	MaxPlayers       int        `json:"maxPlayers"`
	RegistrationEnd  time.Time  `json:"registrationEnd"`
	StartTime        *time.Time `json:"startTime,omitempty"`
	MatchDeadlineMin int        `json:"matchDeadlineMin"`
	CreatedBy        string     `json:"createdBy"`
}
