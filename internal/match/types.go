package match

import "time"

// Status represents where a match is in its lifecycle.
type Status string

const (
	StatusPendingAcknowledgement Status = "PENDING_ACKNOWLEDGEMENT"
	StatusScheduled              Status = "SCHEDULED"
	StatusInProgress             Status = "IN_PROGRESS"
	StatusCompleted              Status = "COMPLETED"
	StatusForfeited              Status = "FORFEITED"
	StatusTimeout                Status = "TIMEOUT"
)

// IsTerminal reports whether the status is final. Terminal matches are
// immutable.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusForfeited, StatusTimeout:
		return true
	}
	return false
}

// GameMode identifies which pairing pool a match was formed from.
type GameMode string

const (
	ModeClassic GameMode = "CLASSIC"
	ModeArcade  GameMode = "ARCADE"
)

// ForfeitWinScore is the score awarded to the winning side of a forfeit.
const ForfeitWinScore = 7

// Result sources recorded when a match resolves without being played out.
const (
	SourcePlayed           = "played"
	SourceTimeout          = "timeout"
	SourceAckForfeitBoth   = "ack_forfeit:both_no_ack"
	sourceAckForfeitPrefix = "ack_forfeit:"
)

// AckForfeitSource names the loser in the result source so the outcome stays
// auditable.
func AckForfeitSource(loserID string) string {
	return sourceAckForfeitPrefix + loserID + "_no_ack"
}

// Match is a single game between two players, casual or tournament-bound.
// A nil TournamentID means a casual match; a non-nil one participates in
// round-robin and tie-break bookkeeping.
type Match struct {
	ID                 string     `json:"id"`
	Player1ID          string     `json:"player1_id"`
	Player2ID          string     `json:"player2_id"`
	Status             Status     `json:"status"`
	GameMode           GameMode   `json:"game_mode"`
	TournamentID       *string    `json:"tournament_id,omitempty"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	Player1Acknowledged bool      `json:"player1_acknowledged"`
	Player2Acknowledged bool      `json:"player2_acknowledged"`
	WinnerID           *string    `json:"winner_id,omitempty"`
	Player1Score       *int       `json:"player1_score,omitempty"`
	Player2Score       *int       `json:"player2_score,omitempty"`
	IsGoldenGame       bool       `json:"is_golden_game"`
	ResultSource       string     `json:"result_source,omitempty"`
	ScheduledAt        time.Time  `json:"scheduled_at"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// HasPlayer reports whether the given user plays in this match.
func (m *Match) HasPlayer(userID string) bool {
	return m.Player1ID == userID || m.Player2ID == userID
}

// Opponent returns the other player's id. Empty when userID is not a
// participant.
func (m *Match) Opponent(userID string) string {
	switch userID {
	case m.Player1ID:
		return m.Player2ID
	case m.Player2ID:
		return m.Player1ID
	}
	return ""
}
