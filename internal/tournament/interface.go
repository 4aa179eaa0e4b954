package tournament

import (
	"context"
	"time"
)

// Store persists tournaments and their participants. The service is the
// sole caller that mutates status and standing fields.
type Store interface {
	Create(ctx context.Context, t *Tournament) error
	FindByID(ctx context.Context, id string) (*Tournament, error)
	FindByStatus(ctx context.Context, statuses ...Status) ([]*Tournament, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	SetStartTime(ctx context.Context, id string, start time.Time) error
	HasCapacity(ctx context.Context, id string) (bool, error)
	HasMinimumPlayers(ctx context.Context, id string) (bool, error)

	Register(ctx context.Context, tournamentID, userID string) error
	Unregister(ctx context.Context, tournamentID, userID string) error
	IsRegistered(ctx context.Context, tournamentID, userID string) (bool, error)
	ParticipantUserIDs(ctx context.Context, tournamentID string) ([]string, error)
	ParticipantCount(ctx context.Context, tournamentID string) (int, error)
	// IncrementWins credits a win and applies the signed score differential.
	IncrementWins(ctx context.Context, tournamentID, userID string, scoreDiff int) error
	// IncrementLosses charges a loss and applies the signed score differential.
	IncrementLosses(ctx context.Context, tournamentID, userID string, scoreDiff int) error
	// Rankings returns participants ordered by wins desc, then scoreDiff desc.
	Rankings(ctx context.Context, tournamentID string) ([]*Participant, error)
	// SetAllFinalRanks writes every participant's final rank in one transaction.
	SetAllFinalRanks(ctx context.Context, tournamentID string, ranks map[string]int) error
}
