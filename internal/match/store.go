package match

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// store handles database operations for matches.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a new match store backed by the given database.
func NewStore(db *sql.DB) Store {
	return &store{db: db}
}

const matchColumns = `id, player1_id, player2_id, status, game_mode, tournament_id, deadline,
	player1_acked, player2_acked, winner_id, player1_score, player2_score,
	is_golden_game, result_source, scheduled_at, started_at, completed_at`

func (s *store) Create(ctx context.Context, m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO matches (` + matchColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		m.ID,
		m.Player1ID,
		m.Player2ID,
		string(m.Status),
		string(m.GameMode),
		m.TournamentID,
		nullableUnix(m.Deadline),
		boolToInt(m.Player1Acknowledged),
		boolToInt(m.Player2Acknowledged),
		m.WinnerID,
		m.Player1Score,
		m.Player2Score,
		boolToInt(m.IsGoldenGame),
		m.ResultSource,
		m.ScheduledAt.Unix(),
		nullableUnix(m.StartedAt),
		nullableUnix(m.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}

	log.Info("Created match", "matchID", m.ID, "player1", m.Player1ID, "player2", m.Player2ID, "mode", m.GameMode, "golden", m.IsGoldenGame)
	return nil
}

func (s *store) FindByID(ctx context.Context, id string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findByID(ctx, id)
}

// findByID is the lock-free variant used inside transition operations that
// already hold the write lock.
func (s *store) findByID(ctx context.Context, id string) (*Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = ?`
	m, err := scanMatch(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return m, nil
}

func (s *store) FindByTournamentID(ctx context.Context, tournamentID string) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = ? ORDER BY scheduled_at ASC, id ASC`
	return s.queryMatches(ctx, query, tournamentID)
}

func (s *store) FindByPlayerID(ctx context.Context, playerID string) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + matchColumns + ` FROM matches WHERE player1_id = ? OR player2_id = ? ORDER BY scheduled_at DESC`
	return s.queryMatches(ctx, query, playerID, playerID)
}

func (s *store) FindBetweenPlayers(ctx context.Context, player1ID, player2ID string) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + matchColumns + ` FROM matches
		WHERE (player1_id = ? AND player2_id = ?) OR (player1_id = ? AND player2_id = ?)
		ORDER BY scheduled_at ASC
	`
	return s.queryMatches(ctx, query, player1ID, player2ID, player2ID, player1ID)
}

func (s *store) FindUnacknowledged(ctx context.Context) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + matchColumns + ` FROM matches
		WHERE status = ? AND (player1_acked = 0 OR player2_acked = 0)
		ORDER BY scheduled_at ASC
	`
	return s.queryMatches(ctx, query, string(StatusPendingAcknowledgement))
}

func (s *store) FindOverdue(ctx context.Context, now time.Time) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + matchColumns + ` FROM matches
		WHERE status IN (?, ?) AND deadline IS NOT NULL AND deadline < ?
		ORDER BY deadline ASC
	`
	return s.queryMatches(ctx, query, string(StatusPendingAcknowledgement), string(StatusScheduled), now.Unix())
}

func (s *store) FindPendingWithDeadline(ctx context.Context) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + matchColumns + ` FROM matches
		WHERE status IN (?, ?) AND deadline IS NOT NULL
		ORDER BY deadline ASC
	`
	return s.queryMatches(ctx, query, string(StatusPendingAcknowledgement), string(StatusScheduled))
}

func (s *store) RecordAcknowledgement(ctx context.Context, matchID, userID string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.findByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status.IsTerminal() {
		return nil, ErrMatchAlreadyResolved
	}
	if m.Status != StatusPendingAcknowledgement {
		return nil, ErrInvalidMatchState
	}
	if !m.HasPlayer(userID) {
		return nil, ErrNotAParticipant
	}
	if m.Deadline != nil && time.Now().After(*m.Deadline) {
		return nil, ErrAckDeadlinePassed
	}

	switch userID {
	case m.Player1ID:
		m.Player1Acknowledged = true
	case m.Player2ID:
		m.Player2Acknowledged = true
	}
	if m.Player1Acknowledged && m.Player2Acknowledged {
		m.Status = StatusScheduled
	}

	query := `UPDATE matches SET player1_acked = ?, player2_acked = ?, status = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query,
		boolToInt(m.Player1Acknowledged), boolToInt(m.Player2Acknowledged), string(m.Status), m.ID); err != nil {
		return nil, fmt.Errorf("failed to record acknowledgement for match %s: %w", matchID, err)
	}

	log.Info("Recorded acknowledgement", "matchID", m.ID, "userID", userID, "status", m.Status)
	return m, nil
}

func (s *store) MarkInProgress(ctx context.Context, matchID string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.findByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status.IsTerminal() {
		return nil, ErrMatchAlreadyResolved
	}
	if m.Status != StatusScheduled {
		return nil, ErrInvalidMatchState
	}

	now := time.Now()
	m.Status = StatusInProgress
	m.StartedAt = &now

	query := `UPDATE matches SET status = ?, started_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, string(m.Status), now.Unix(), m.ID); err != nil {
		return nil, fmt.Errorf("failed to start match %s: %w", matchID, err)
	}

	log.Info("Match started", "matchID", m.ID)
	return m, nil
}

func (s *store) HandleAckForfeit(ctx context.Context, matchID string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.findByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status.IsTerminal() {
		return nil, ErrMatchAlreadyResolved
	}
	if m.Status != StatusPendingAcknowledgement {
		return nil, ErrInvalidMatchState
	}

	out, forfeited := AckForfeitOutcome(m)
	if !forfeited {
		// Both players acknowledged before the handler ran; nothing to do.
		return m, nil
	}
	if err := s.applyOutcome(ctx, m, out); err != nil {
		return nil, err
	}

	log.Info("Applied ack forfeit", "matchID", m.ID, "source", m.ResultSource, "winner", m.WinnerID)
	return m, nil
}

func (s *store) RecordTimeout(ctx context.Context, matchID string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.findByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status.IsTerminal() {
		return nil, ErrMatchAlreadyResolved
	}
	// In-progress matches are allowed to finish.
	if m.Status != StatusScheduled {
		return nil, ErrInvalidMatchState
	}

	if err := s.applyOutcome(ctx, m, TimeoutOutcome(m)); err != nil {
		return nil, err
	}

	log.Info("Recorded timeout", "matchID", m.ID, "winner", m.WinnerID)
	return m, nil
}

func (s *store) CompleteMatch(ctx context.Context, matchID string, winnerID *string, player1Score, player2Score int) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.findByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status.IsTerminal() {
		return nil, ErrMatchAlreadyResolved
	}
	// A played result requires a match both players agreed to; unacknowledged
	// matches resolve through the forfeit path only.
	if m.Status == StatusPendingAcknowledgement {
		return nil, ErrInvalidMatchState
	}
	if winnerID != nil && !m.HasPlayer(*winnerID) {
		return nil, ErrNotAParticipant
	}

	out := Outcome{
		Status:       StatusCompleted,
		WinnerID:     winnerID,
		Player1Score: player1Score,
		Player2Score: player2Score,
		Source:       SourcePlayed,
	}
	if err := s.applyOutcome(ctx, m, out); err != nil {
		return nil, err
	}

	log.Info("Completed match", "matchID", m.ID, "winner", winnerID, "score", fmt.Sprintf("%d-%d", player1Score, player2Score))
	return m, nil
}

// applyOutcome writes a terminal result. Callers hold the write lock and
// have already validated the current status.
func (s *store) applyOutcome(ctx context.Context, m *Match, out Outcome) error {
	now := time.Now()
	m.Status = out.Status
	m.WinnerID = out.WinnerID
	m.Player1Score = &out.Player1Score
	m.Player2Score = &out.Player2Score
	m.ResultSource = out.Source
	m.CompletedAt = &now

	query := `
		UPDATE matches
		SET status = ?, winner_id = ?, player1_score = ?, player2_score = ?, result_source = ?, completed_at = ?
		WHERE id = ?
	`
	if _, err := s.db.ExecContext(ctx, query,
		string(m.Status), m.WinnerID, m.Player1Score, m.Player2Score, m.ResultSource, now.Unix(), m.ID); err != nil {
		return fmt.Errorf("failed to resolve match %s: %w", m.ID, err)
	}
	return nil
}

func (s *store) queryMatches(ctx context.Context, query string, args ...any) ([]*Match, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*Match, error) {
	var (
		m                    Match
		status, mode         string
		tournamentID         sql.NullString
		deadline             sql.NullInt64
		p1Acked, p2Acked     int
		winnerID             sql.NullString
		p1Score, p2Score     sql.NullInt64
		golden               int
		scheduledAt          int64
		startedAt, completed sql.NullInt64
	)

	err := row.Scan(
		&m.ID, &m.Player1ID, &m.Player2ID, &status, &mode, &tournamentID, &deadline,
		&p1Acked, &p2Acked, &winnerID, &p1Score, &p2Score,
		&golden, &m.ResultSource, &scheduledAt, &startedAt, &completed,
	)
	if err != nil {
		return nil, err
	}

	m.Status = Status(status)
	m.GameMode = GameMode(mode)
	m.Player1Acknowledged = p1Acked != 0
	m.Player2Acknowledged = p2Acked != 0
	m.IsGoldenGame = golden != 0
	m.ScheduledAt = time.Unix(scheduledAt, 0)
	if tournamentID.Valid {
		m.TournamentID = &tournamentID.String
	}
	if deadline.Valid {
		t := time.Unix(deadline.Int64, 0)
		m.Deadline = &t
	}
	if winnerID.Valid {
		m.WinnerID = &winnerID.String
	}
	if p1Score.Valid {
		v := int(p1Score.Int64)
		m.Player1Score = &v
	}
	if p2Score.Valid {
		v := int(p2Score.Int64)
		m.Player2Score = &v
	}
	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0)
		m.StartedAt = &t
	}
	if completed.Valid {
		t := time.Unix(completed.Int64, 0)
		m.CompletedAt = &t
	}
	return &m, nil
}

func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
