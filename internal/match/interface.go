package match

import (
	"context"
	"time"
)

// Store is the system of record for matches. Matches are mutated only
// through the named transition operations below; terminal matches are
// immutable.
type Store interface {
	Create(ctx context.Context, m *Match) error
	FindByID(ctx context.Context, id string) (*Match, error)
	FindByTournamentID(ctx context.Context, tournamentID string) ([]*Match, error)
	FindByPlayerID(ctx context.Context, playerID string) ([]*Match, error)
	FindBetweenPlayers(ctx context.Context, player1ID, player2ID string) ([]*Match, error)

	// FindUnacknowledged returns matches still waiting on at least one ack.
	FindUnacknowledged(ctx context.Context) ([]*Match, error)
	// FindOverdue returns non-terminal, non-started matches whose deadline
	// is before now.
	FindOverdue(ctx context.Context, now time.Time) ([]*Match, error)
	// FindPendingWithDeadline returns every non-terminal match carrying a
	// deadline, used by the lifecycle manager to recover timers on startup.
	FindPendingWithDeadline(ctx context.Context) ([]*Match, error)

	// RecordAcknowledgement marks one player's ack; when both players have
	// acknowledged the match advances to SCHEDULED.
	RecordAcknowledgement(ctx context.Context, matchID, userID string) (*Match, error)
	// MarkInProgress transitions a SCHEDULED match to IN_PROGRESS.
	MarkInProgress(ctx context.Context, matchID string) (*Match, error)
	// HandleAckForfeit applies the acknowledgement-forfeit outcome to a match
	// whose deadline passed while PENDING_ACKNOWLEDGEMENT.
	HandleAckForfeit(ctx context.Context, matchID string) (*Match, error)
	// RecordTimeout applies the timeout outcome to a SCHEDULED match that
	// never started.
	RecordTimeout(ctx context.Context, matchID string) (*Match, error)
	// CompleteMatch records an external game result and finalizes the match.
	CompleteMatch(ctx context.Context, matchID string, winnerID *string, player1Score, player2Score int) (*Match, error)
}
