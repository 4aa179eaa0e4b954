package tournament

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mavh/rallyrank/internal/match"
	"github.com/mavh/rallyrank/internal/metrics"
	"github.com/mavh/rallyrank/internal/pubsub"
)

// DefaultMatchDeadlineMin is applied when a tournament is created without
// an explicit per-match deadline.
const DefaultMatchDeadlineMin = 60

// Scheduler receives lifecycle notifications so that timers can be created
// and cancelled alongside tournament and match state changes.
type Scheduler interface {
	OnTournamentCreated(t *Tournament)
	OnRegistrationFull(t *Tournament)
	OnTournamentCancelled(tournamentID string)
	OnMatchCreated(m *match.Match)
	OnMatchCompleted(m *match.Match)
}

// noopScheduler is used until a real scheduler is attached.
type noopScheduler struct{}

func (noopScheduler) OnTournamentCreated(*Tournament) {}
func (noopScheduler) OnRegistrationFull(*Tournament)  {}
func (noopScheduler) OnTournamentCancelled(string)    {}
func (noopScheduler) OnMatchCreated(*match.Match)     {}
func (noopScheduler) OnMatchCompleted(*match.Match)   {}

// Service owns tournament state transitions and standings. It is the only
// writer of tournament and participant records.
type Service struct {
	store              Store
	matches            match.Store
	events             pubsub.PubSubClient
	metrics            metrics.Metrics
	logger             *log.Logger
	defaultDeadlineMin int

	mu    sync.Mutex
	sched Scheduler
}

// New creates the tournament service. defaultDeadlineMin is applied to
// tournaments created without an explicit per-match deadline; zero keeps
// DefaultMatchDeadlineMin.
func New(store Store, matches match.Store, events pubsub.PubSubClient, metricsSvc metrics.Metrics, defaultDeadlineMin int, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if defaultDeadlineMin <= 0 {
		defaultDeadlineMin = DefaultMatchDeadlineMin
	}
	return &Service{
		store:              store,
		matches:            matches,
		events:             events,
		metrics:            metricsSvc,
		logger:             logger,
		defaultDeadlineMin: defaultDeadlineMin,
		sched:              noopScheduler{},
	}
}

// SetScheduler attaches the lifecycle manager. Must be called before any
// tournament is created; kept separate from New to break the construction
// cycle between the service and the manager.
func (s *Service) SetScheduler(sched Scheduler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sched = sched
}

func (s *Service) scheduler() Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched
}

func (s *Service) CreateTournament(ctx context.Context, p CreateParams) (*Tournament, error) {
	now := time.Now()

	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidParams)
	}
	if p.MinPlayers < 2 {
		return nil, fmt.Errorf("%w: minPlayers must be at least 2", ErrInvalidParams)
	}
	if p.MaxPlayers < p.MinPlayers {
		return nil, fmt.Errorf("%w: maxPlayers must be at least minPlayers", ErrInvalidParams)
	}
	if !p.RegistrationEnd.After(now) {
		return nil, fmt.Errorf("%w: registrationEnd must be in the future", ErrInvalidParams)
	}
	if p.StartTime != nil && !p.StartTime.After(p.RegistrationEnd) {
		return nil, fmt.Errorf("%w: startTime must be after registrationEnd", ErrInvalidParams)
	}
	if p.MatchDeadlineMin < 0 {
		return nil, fmt.Errorf("%w: matchDeadlineMin must be positive", ErrInvalidParams)
	}
	if p.MatchDeadlineMin == 0 {
		p.MatchDeadlineMin = s.defaultDeadlineMin
	}

	t := &Tournament{
		ID:               uuid.New().String(),
		Name:             p.Name,
		Status:           StatusRegistration,
		MinPlayers:       p.MinPlayers,
		MaxPlayers:       p.MaxPlayers,
		RegistrationEnd:  p.RegistrationEnd,
		StartTime:        p.StartTime,
		MatchDeadlineMin: p.MatchDeadlineMin,
		CreatedBy:        p.CreatedBy,
		CreatedAt:        now,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}

	s.scheduler().OnTournamentCreated(t)
	s.logger.Info("Tournament created", "tournamentID", t.ID, "name", t.Name)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Tournament, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) Register(ctx context.Context, tournamentID, userID string) error {
	t, err := s.store.FindByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != StatusRegistration || time.Now().After(t.RegistrationEnd) {
		return ErrRegistrationClosed
	}

	registered, err := s.store.IsRegistered(ctx, tournamentID, userID)
	if err != nil {
		return err
	}
	if registered {
		return ErrAlreadyRegistered
	}

	hasRoom, err := s.store.HasCapacity(ctx, tournamentID)
	if err != nil {
		return err
	}
	if !hasRoom {
		return ErrTournamentFull
	}

	if err := s.store.Register(ctx, tournamentID, userID); err != nil {
		return err
	}

	count, err := s.store.ParticipantCount(ctx, tournamentID)
	if err != nil {
		return err
	}
	if count >= t.MaxPlayers {
		s.logger.Info("Tournament reached capacity, closing registration early", "tournamentID", tournamentID)
		s.scheduler().OnRegistrationFull(t)
	}
	return nil
}

func (s *Service) Unregister(ctx context.Context, tournamentID, userID string) error {
	t, err := s.store.FindByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != StatusRegistration {
		return ErrRegistrationClosed
	}
	return s.store.Unregister(ctx, tournamentID, userID)
}

// CloseRegistration moves a REGISTRATION tournament to SCHEDULED, or to
// CANCELLED when the minimum player count was not reached. Calling it on a
// tournament that already moved on is a no-op so that a late or duplicate
// timer firing cannot corrupt state.
func (s *Service) CloseRegistration(ctx context.Context, tournamentID string) (*Tournament, error) {
	t, err := s.store.FindByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusRegistration {
		s.logger.Warn("Registration already closed", "tournamentID", tournamentID, "status", t.Status)
		return t, nil
	}

	enough, err := s.store.HasMinimumPlayers(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !enough {
		if err := s.store.UpdateStatus(ctx, tournamentID, StatusCancelled); err != nil {
			return nil, err
		}
		t.Status = StatusCancelled
		s.scheduler().OnTournamentCancelled(tournamentID)
		s.logger.Warn("Tournament cancelled for lack of players", "tournamentID", tournamentID)
		return t, nil
	}

	if err := s.store.UpdateStatus(ctx, tournamentID, StatusScheduled); err != nil {
		return nil, err
	}
	t.Status = StatusScheduled
	return t, nil
}

// StartTournament generates the round-robin schedule and moves the
// tournament to IN_PROGRESS. Every unordered pair of participants gets
// exactly one match.
func (s *Service) StartTournament(ctx context.Context, tournamentID string) ([]*match.Match, error) {
	t, err := s.store.FindByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusScheduled {
		return nil, fmt.Errorf("%w: cannot start tournament in status %s", ErrInvalidState, t.Status)
	}

	enough, err := s.store.HasMinimumPlayers(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !enough {
		return nil, ErrNotEnoughPlayers
	}

	players, err := s.store.ParticipantUserIDs(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	deadline := now.Add(time.Duration(t.MatchDeadlineMin) * time.Minute)

	var created []*match.Match
	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			m := &match.Match{
				ID:           uuid.New().String(),
				Player1ID:    players[i],
				Player2ID:    players[j],
				Status:       match.StatusPendingAcknowledgement,
				GameMode:     match.ModeClassic,
				TournamentID: &tournamentID,
				Deadline:     &deadline,
				ScheduledAt:  now,
			}
			if err := s.matches.Create(ctx, m); err != nil {
				return nil, fmt.Errorf("failed to create round-robin match: %w", err)
			}
			s.metrics.IncMatchesCreated()
			created = append(created, m)
		}
	}

	if t.StartTime == nil {
		if err := s.store.SetStartTime(ctx, tournamentID, now); err != nil {
			return nil, err
		}
	}
	if err := s.store.UpdateStatus(ctx, tournamentID, StatusInProgress); err != nil {
		return nil, err
	}

	s.logger.Info("Tournament started", "tournamentID", tournamentID, "players", len(players), "matches", len(created))
	return created, nil
}

// Cancel aborts a tournament that has not started yet.
func (s *Service) Cancel(ctx context.Context, tournamentID string) error {
	t, err := s.store.FindByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != StatusRegistration && t.Status != StatusScheduled {
		return fmt.Errorf("%w: cannot cancel tournament in status %s", ErrInvalidState, t.Status)
	}

	if err := s.store.UpdateStatus(ctx, tournamentID, StatusCancelled); err != nil {
		return err
	}
	s.scheduler().OnTournamentCancelled(tournamentID)
	return nil
}

// ProcessMatchResult folds a resolved tournament match into the standings
// and, once every match is terminal, runs tie evaluation.
func (s *Service) ProcessMatchResult(ctx context.Context, m *match.Match) error {
	if m.TournamentID == nil {
		return nil
	}
	if !m.Status.IsTerminal() {
		return fmt.Errorf("%w: match %s is not resolved", ErrInvalidState, m.ID)
	}

	t, err := s.store.FindByID(ctx, *m.TournamentID)
	if err != nil {
		return err
	}
	if t.Status != StatusInProgress && t.Status != StatusTieBreaker {
		s.logger.Warn("Ignoring match result for inactive tournament", "tournamentID", t.ID, "matchID", m.ID, "status", t.Status)
		return nil
	}

	if err := s.applyStandings(ctx, t.ID, m); err != nil {
		return err
	}

	all, err := s.matches.FindByTournamentID(ctx, t.ID)
	if err != nil {
		return err
	}
	for _, tm := range all {
		if !tm.Status.IsTerminal() {
			return nil
		}
	}
	return s.evaluateTies(ctx, t, all)
}

// applyStandings credits the winner with the positive score differential
// and charges the loser with its negation. A match nobody won charges both
// players a loss and the forfeit differential.
func (s *Service) applyStandings(ctx context.Context, tournamentID string, m *match.Match) error {
	if m.WinnerID == nil {
		for _, userID := range []string{m.Player1ID, m.Player2ID} {
			if err := s.store.IncrementLosses(ctx, tournamentID, userID, -match.ForfeitWinScore); err != nil {
				return err
			}
		}
		return nil
	}

	winner := *m.WinnerID
	loser := m.Opponent(winner)
	diff := 0
	if m.Player1Score != nil && m.Player2Score != nil {
		diff = *m.Player1Score - *m.Player2Score
		if winner == m.Player2ID {
			diff = -diff
		}
	}

	if err := s.store.IncrementWins(ctx, tournamentID, winner, diff); err != nil {
		return err
	}
	return s.store.IncrementLosses(ctx, tournamentID, loser, -diff)
}

// evaluateTies finalizes the tournament, or schedules a golden game when
// the lead cannot be decided from standings and head-to-head results.
func (s *Service) evaluateTies(ctx context.Context, t *Tournament, all []*match.Match) error {
	ranked, err := s.store.Rankings(ctx, t.ID)
	if err != nil {
		return err
	}
	if len(ranked) < 2 {
		return s.finalize(ctx, t, ranked)
	}

	first, second := ranked[0], ranked[1]
	if first.Wins != second.Wins || first.ScoreDiff != second.ScoreDiff {
		return s.finalize(ctx, t, ranked)
	}

	// Everyone tied with the leader on both fields enters head-to-head.
	tied := []*Participant{first}
	for _, p := range ranked[1:] {
		if p.Wins == first.Wins && p.ScoreDiff == first.ScoreDiff {
			tied = append(tied, p)
		}
	}

	h2h := headToHead(tied, all)
	if uniform(h2h, tied) {
		return s.scheduleGoldenGame(ctx, t, tied)
	}

	// Head-to-head breaks the tie: reorder the tied block by net
	// differential among themselves, then finalize.
	sort.SliceStable(tied, func(i, j int) bool {
		return h2h[tied[i].UserID] > h2h[tied[j].UserID]
	})
	copy(ranked[:len(tied)], tied)
	return s.finalize(ctx, t, ranked)
}

// headToHead computes each tied participant's net score differential over
// the terminal matches played among the tied set.
func headToHead(tied []*Participant, all []*match.Match) map[string]int {
	members := make(map[string]struct{}, len(tied))
	for _, p := range tied {
		members[p.UserID] = struct{}{}
	}

	diffs := make(map[string]int, len(tied))
	for _, p := range tied {
		diffs[p.UserID] = 0
	}
	for _, m := range all {
		if !m.Status.IsTerminal() || m.Player1Score == nil || m.Player2Score == nil {
			continue
		}
		if _, ok := members[m.Player1ID]; !ok {
			continue
		}
		if _, ok := members[m.Player2ID]; !ok {
			continue
		}
		d := *m.Player1Score - *m.Player2Score
		diffs[m.Player1ID] += d
		diffs[m.Player2ID] -= d
	}
	return diffs
}

func uniform(diffs map[string]int, tied []*Participant) bool {
	ref := diffs[tied[0].UserID]
	for _, p := range tied[1:] {
		if diffs[p.UserID] != ref {
			return false
		}
	}
	return true
}

func (s *Service) scheduleGoldenGame(ctx context.Context, t *Tournament, tied []*Participant) error {
	if len(tied) > 2 {
		// Known limitation: only the first two of a larger tied set play
		// the golden game; the remainder resolve on the next reprocessing.
		s.logger.Warn("More than two participants tied, golden game covers first two",
			"tournamentID", t.ID, "tied", len(tied))
	}

	now := time.Now()
	deadline := now.Add(time.Duration(t.MatchDeadlineMin) * time.Minute)
	g := &match.Match{
		ID:           uuid.New().String(),
		Player1ID:    tied[0].UserID,
		Player2ID:    tied[1].UserID,
		Status:       match.StatusPendingAcknowledgement,
		GameMode:     match.ModeClassic,
		TournamentID: &t.ID,
		Deadline:     &deadline,
		IsGoldenGame: true,
		ScheduledAt:  now,
	}
	if err := s.matches.Create(ctx, g); err != nil {
		return fmt.Errorf("failed to create golden game: %w", err)
	}
	if err := s.store.UpdateStatus(ctx, t.ID, StatusTieBreaker); err != nil {
		return err
	}

	s.metrics.IncGoldenGames()
	if err := s.events.SendMessage(pubsub.EventGoldenGameScheduled, g); err != nil {
		s.logger.Error("Failed to publish golden game event", "matchID", g.ID, "error", err)
	}
	s.scheduler().OnMatchCreated(g)
	s.logger.Info("Golden game scheduled", "tournamentID", t.ID, "matchID", g.ID,
		"player1", g.Player1ID, "player2", g.Player2ID)
	return nil
}

// finalize writes every participant's rank at once and completes the
// tournament.
func (s *Service) finalize(ctx context.Context, t *Tournament, ranked []*Participant) error {
	ranks := make(map[string]int, len(ranked))
	for i, p := range ranked {
		ranks[p.UserID] = i + 1
	}
	if err := s.store.SetAllFinalRanks(ctx, t.ID, ranks); err != nil {
		return err
	}
	if err := s.store.UpdateStatus(ctx, t.ID, StatusCompleted); err != nil {
		return err
	}

	s.metrics.IncTournamentsCompleted()
	if err := s.events.SendMessage(pubsub.EventTournamentCompleted, t.ID); err != nil {
		s.logger.Error("Failed to publish tournament completed event", "tournamentID", t.ID, "error", err)
	}
	s.logger.Info("Tournament completed", "tournamentID", t.ID, "participants", len(ranked))
	return nil
}

// Rankings returns the current standings ordered best-first.
func (s *Service) Rankings(ctx context.Context, tournamentID string) ([]*Participant, error) {
	if _, err := s.store.FindByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.store.Rankings(ctx, tournamentID)
}

// Matches returns every match belonging to the tournament.
func (s *Service) Matches(ctx context.Context, tournamentID string) ([]*match.Match, error) {
	if _, err := s.store.FindByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.matches.FindByTournamentID(ctx, tournamentID)
}

// Participants returns the user ids registered for the tournament.
func (s *Service) Participants(ctx context.Context, tournamentID string) ([]string, error) {
	if _, err := s.store.FindByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.store.ParticipantUserIDs(ctx, tournamentID)
}

// FindByStatus exposes store lookup for the lifecycle manager's recovery
// scan.
func (s *Service) FindByStatus(ctx context.Context, statuses ...Status) ([]*Tournament, error) {
	return s.store.FindByStatus(ctx, statuses...)
}
