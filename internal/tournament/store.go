package tournament

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// store handles database operations for tournaments and participants.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a new tournament store backed by the given database.
func NewStore(db *sql.DB) Store {
	return &store{db: db}
}

const tournamentColumns = `id, name, status, min_players, max_players, registration_end,
	start_time, match_deadline_min, created_by, created_at`

const participantColumns = `tournament_id, user_id, wins, losses, score_diff, final_rank, registered_at`

func (s *store) Create(ctx context.Context, t *Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO tournaments (` + tournamentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var startTime any
	if t.StartTime != nil {
		startTime = t.StartTime.Unix()
	}

	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.Name,
		string(t.Status),
		t.MinPlayers,
		t.MaxPlayers,
		t.RegistrationEnd.Unix(),
		startTime,
		t.MatchDeadlineMin,
		t.CreatedBy,
		t.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}

	log.Info("Created tournament", "tournamentID", t.ID, "name", t.Name, "registrationEnd", t.RegistrationEnd)
	return nil
}

func (s *store) FindByID(ctx context.Context, id string) (*Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findByID(ctx, id)
}

func (s *store) findByID(ctx context.Context, id string) (*Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = ?`
	t, err := scanTournament(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}
	return t, nil
}

func (s *store) FindByStatus(ctx context.Context, statuses ...Status) ([]*Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE status IN (` + placeholders + `) ORDER BY created_at ASC`

	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []*Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (s *store) UpdateStatus(ctx context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE tournaments SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update tournament %s status: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTournamentNotFound
	}

	log.Info("Tournament status updated", "tournamentID", id, "status", status)
	return nil
}

func (s *store) SetStartTime(ctx context.Context, id string, start time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE tournaments SET start_time = ? WHERE id = ?`, start.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to set tournament %s start time: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTournamentNotFound
	}
	return nil
}

func (s *store) HasCapacity(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.findByID(ctx, id)
	if err != nil {
		return false, err
	}
	count, err := s.participantCount(ctx, id)
	if err != nil {
		return false, err
	}
	return count < t.MaxPlayers, nil
}

func (s *store) HasMinimumPlayers(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.findByID(ctx, id)
	if err != nil {
		return false, err
	}
	count, err := s.participantCount(ctx, id)
	if err != nil {
		return false, err
	}
	return count >= t.MinPlayers, nil
}

func (s *store) Register(ctx context.Context, tournamentID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO tournament_participants (tournament_id, user_id, registered_at)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, tournamentID, userID, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to register user %s for tournament %s: %w", userID, tournamentID, err)
	}

	log.Info("Registered participant", "tournamentID", tournamentID, "userID", userID)
	return nil
}

func (s *store) Unregister(ctx context.Context, tournamentID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tournament_participants WHERE tournament_id = ? AND user_id = ?`, tournamentID, userID)
	if err != nil {
		return fmt.Errorf("failed to unregister user %s from tournament %s: %w", userID, tournamentID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotRegistered
	}

	log.Info("Unregistered participant", "tournamentID", tournamentID, "userID", userID)
	return nil
}

func (s *store) IsRegistered(ctx context.Context, tournamentID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = ? AND user_id = ?`,
		tournamentID, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return count > 0, nil
}

func (s *store) ParticipantUserIDs(ctx context.Context, tournamentID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM tournament_participants WHERE tournament_id = ? ORDER BY registered_at ASC, user_id ASC`,
		tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}

func (s *store) ParticipantCount(ctx context.Context, tournamentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participantCount(ctx, tournamentID)
}

func (s *store) participantCount(ctx context.Context, tournamentID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = ?`, tournamentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

func (s *store) IncrementWins(ctx context.Context, tournamentID, userID string, scoreDiff int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE tournament_participants
		SET wins = wins + 1, score_diff = score_diff + ?
		WHERE tournament_id = ? AND user_id = ?
	`
	res, err := s.db.ExecContext(ctx, query, scoreDiff, tournamentID, userID)
	if err != nil {
		return fmt.Errorf("failed to record win for user %s: %w", userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotRegistered
	}
	return nil
}

func (s *store) IncrementLosses(ctx context.Context, tournamentID, userID string, scoreDiff int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE tournament_participants
		SET losses = losses + 1, score_diff = score_diff + ?
		WHERE tournament_id = ? AND user_id = ?
	`
	res, err := s.db.ExecContext(ctx, query, scoreDiff, tournamentID, userID)
	if err != nil {
		return fmt.Errorf("failed to record loss for user %s: %w", userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotRegistered
	}
	return nil
}

func (s *store) Rankings(ctx context.Context, tournamentID string) ([]*Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + participantColumns + ` FROM tournament_participants
		WHERE tournament_id = ?
		ORDER BY wins DESC, score_diff DESC, registered_at ASC, user_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}
	defer rows.Close()

	var participants []*Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// SetAllFinalRanks writes every rank inside one transaction so that a
// partially-ranked tournament is never observable.
func (s *store) SetAllFinalRanks(ctx context.Context, tournamentID string, ranks map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rank transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE tournament_participants SET final_rank = ? WHERE tournament_id = ? AND user_id = ?`
	for userID, rank := range ranks {
		if _, err := tx.ExecContext(ctx, query, rank, tournamentID, userID); err != nil {
			return fmt.Errorf("failed to set final rank for user %s: %w", userID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit final ranks: %w", err)
	}

	log.Info("Final ranks assigned", "tournamentID", tournamentID, "participants", len(ranks))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTournament(row rowScanner) (*Tournament, error) {
	var (
		t               Tournament
		status          string
		registrationEnd int64
		startTime       sql.NullInt64
		createdAt       int64
	)

	err := row.Scan(
		&t.ID, &t.Name, &status, &t.MinPlayers, &t.MaxPlayers, &registrationEnd,
		&startTime, &t.MatchDeadlineMin, &t.CreatedBy, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = Status(status)
	t.RegistrationEnd = time.Unix(registrationEnd, 0)
	t.CreatedAt = time.Unix(createdAt, 0)
	if startTime.Valid {
		st := time.Unix(startTime.Int64, 0)
		t.StartTime = &st
	}
	return &t, nil
}

func scanParticipant(row rowScanner) (*Participant, error) {
	var (
		p            Participant
		finalRank    sql.NullInt64
		registeredAt int64
	)

	err := row.Scan(&p.TournamentID, &p.UserID, &p.Wins, &p.Losses, &p.ScoreDiff, &finalRank, &registeredAt)
	if err != nil {
		return nil, err
	}

	p.RegisteredAt = time.Unix(registeredAt, 0)
	if finalRank.Valid {
		r := int(finalRank.Int64)
		p.FinalRank = &r
	}
	return &p, nil
}
