package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mavh/rallyrank/internal/match"
	"github.com/mavh/rallyrank/internal/metrics"
	"github.com/mavh/rallyrank/internal/pubsub"
	"github.com/mavh/rallyrank/internal/tournament"
)

// TournamentService is the slice of tournament behavior the manager drives.
type TournamentService interface {
	FindByStatus(ctx context.Context, statuses ...tournament.Status) ([]*tournament.Tournament, error)
	CloseRegistration(ctx context.Context, tournamentID string) (*tournament.Tournament, error)
	StartTournament(ctx context.Context, tournamentID string) ([]*match.Match, error)
	ProcessMatchResult(ctx context.Context, m *match.Match) error
}

// PoolReturner puts a player back at the front of a matchmaking pool after
// their opponent failed to acknowledge.
type PoolReturner interface {
	ReturnToPool(userID string) bool
}

// Manager owns every pending registration-end, tournament-start and
// match-deadline timer. Timers are keyed by id so each schedule has a
// matching cancel; on startup the pending set is re-derived from the
// durable store.
type Manager struct {
	tournaments TournamentService
	matches     match.Store
	pools       map[match.GameMode]PoolReturner
	events      pubsub.PubSubClient
	metrics     metrics.Metrics
	logger      *log.Logger

	mu               sync.Mutex
	tournamentTimers map[string]*time.Timer
	matchTimers      map[string]*time.Timer
	closed           bool
}

func NewManager(tournaments TournamentService, matches match.Store, pools map[match.GameMode]PoolReturner, events pubsub.PubSubClient, metricsSvc metrics.Metrics, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		tournaments:      tournaments,
		matches:          matches,
		pools:            pools,
		events:           events,
		metrics:          metricsSvc,
		logger:           logger.With("component", "lifecycle"),
		tournamentTimers: make(map[string]*time.Timer),
		matchTimers:      make(map[string]*time.Timer),
	}
}

// Initialize re-derives pending timers from the store after a restart.
// Deadlines already in the past are processed immediately. Safe to call
// again at any time; existing timers for the same id are replaced.
func (m *Manager) Initialize(ctx context.Context) error {
	now := time.Now()

	registering, err := m.tournaments.FindByStatus(ctx, tournament.StatusRegistration)
	if err != nil {
		return err
	}
	for _, t := range registering {
		if t.RegistrationEnd.After(now) {
			m.scheduleTournamentTimer(t.ID, t.RegistrationEnd, m.handleRegistrationEnd)
		} else {
			m.handleRegistrationEnd(t.ID)
		}
	}

	scheduled, err := m.tournaments.FindByStatus(ctx, tournament.StatusScheduled)
	if err != nil {
		return err
	}
	for _, t := range scheduled {
		if t.StartTime != nil && t.StartTime.After(now) {
			m.scheduleTournamentTimer(t.ID, *t.StartTime, m.handleTournamentStart)
		} else {
			m.handleTournamentStart(t.ID)
		}
	}

	pending, err := m.matches.FindPendingWithDeadline(ctx)
	if err != nil {
		return err
	}
	for _, mt := range pending {
		if mt.Deadline == nil {
			continue
		}
		if mt.Deadline.After(now) {
			m.scheduleMatchTimer(mt.ID, *mt.Deadline)
		} else {
			m.handleMatchDeadline(mt.ID)
		}
	}

	m.logger.Info("Lifecycle timers recovered",
		"tournaments", len(registering)+len(scheduled), "matches", len(pending), "active", m.ActiveTimerCount())
	return nil
}

// OnTournamentCreated schedules the registration-end timer.
func (m *Manager) OnTournamentCreated(t *tournament.Tournament) {
	m.scheduleTournamentTimer(t.ID, t.RegistrationEnd, m.handleRegistrationEnd)
}

// OnRegistrationFull closes registration immediately instead of waiting
// for the registration-end timer.
func (m *Manager) OnRegistrationFull(t *tournament.Tournament) {
	m.cancelTournamentTimer(t.ID)
	m.handleRegistrationEnd(t.ID)
}

func (m *Manager) OnTournamentCancelled(tournamentID string) {
	m.cancelTournamentTimer(tournamentID)
}

func (m *Manager) OnMatchCreated(mt *match.Match) {
	if mt.Deadline == nil {
		return
	}
	m.scheduleMatchTimer(mt.ID, *mt.Deadline)
}

func (m *Manager) OnMatchCompleted(mt *match.Match) {
	m.cancelMatchTimer(mt.ID)
}

// CompleteMatch records an external game result, cancels the deadline
// timer and folds tournament matches into the standings.
func (m *Manager) CompleteMatch(ctx context.Context, matchID string, winnerID *string, player1Score, player2Score int) (*match.Match, error) {
	resolved, err := m.matches.CompleteMatch(ctx, matchID, winnerID, player1Score, player2Score)
	if err != nil {
		return nil, err
	}
	m.OnMatchCompleted(resolved)
	m.publishResolved(resolved)

	if resolved.TournamentID != nil {
		if err := m.tournaments.ProcessMatchResult(ctx, resolved); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// Shutdown cancels every outstanding timer.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	for id, timer := range m.tournamentTimers {
		timer.Stop()
		delete(m.tournamentTimers, id)
	}
	for id, timer := range m.matchTimers {
		timer.Stop()
		delete(m.matchTimers, id)
	}
	m.mu.Unlock()

	m.metrics.SetActiveTimers(0)
	m.logger.Info("Lifecycle manager shut down")
}

// ActiveTimerCount reports how many timers are currently pending.
func (m *Manager) ActiveTimerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tournamentTimers) + len(m.matchTimers)
}

func (m *Manager) scheduleTournamentTimer(tournamentID string, at time.Time, handler func(string)) {
	m.schedule(m.tournamentTimers, tournamentID, at, handler)
}

func (m *Manager) scheduleMatchTimer(matchID string, at time.Time) {
	m.schedule(m.matchTimers, matchID, at, m.handleMatchDeadline)
}

func (m *Manager) schedule(timers map[string]*time.Timer, id string, at time.Time, handler func(string)) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if existing, ok := timers[id]; ok {
		existing.Stop()
	}
	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		m.mu.Lock()
		// A replaced timer can still fire; it must only remove its own
		// registration, never a successor's.
		if timers[id] == timer {
			delete(timers, id)
		}
		m.mu.Unlock()
		m.updateTimerGauge()
		handler(id)
	})
	timers[id] = timer
	m.mu.Unlock()
	m.updateTimerGauge()
}

func (m *Manager) cancelTournamentTimer(tournamentID string) {
	m.cancel(m.tournamentTimers, tournamentID)
}

func (m *Manager) cancelMatchTimer(matchID string) {
	m.cancel(m.matchTimers, matchID)
}

func (m *Manager) cancel(timers map[string]*time.Timer, id string) {
	m.mu.Lock()
	if timer, ok := timers[id]; ok {
		timer.Stop()
		delete(timers, id)
	}
	m.mu.Unlock()
	m.updateTimerGauge()
}

func (m *Manager) updateTimerGauge() {
	m.mu.Lock()
	active := len(m.tournamentTimers) + len(m.matchTimers)
	m.mu.Unlock()
	m.metrics.SetActiveTimers(float64(active))
}

// handleRegistrationEnd closes registration and either starts the
// tournament immediately or schedules the start timer.
func (m *Manager) handleRegistrationEnd(tournamentID string) {
	ctx := context.Background()

	t, err := m.tournaments.CloseRegistration(ctx, tournamentID)
	if err != nil {
		m.logger.Error("Failed to close registration", "tournamentID", tournamentID, "error", err)
		return
	}
	if t.Status != tournament.StatusScheduled {
		return
	}

	if t.StartTime != nil && t.StartTime.After(time.Now()) {
		m.scheduleTournamentTimer(tournamentID, *t.StartTime, m.handleTournamentStart)
		return
	}
	m.handleTournamentStart(tournamentID)
}

// handleTournamentStart generates the round-robin schedule and arms a
// deadline timer for every created match.
func (m *Manager) handleTournamentStart(tournamentID string) {
	ctx := context.Background()

	created, err := m.tournaments.StartTournament(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, tournament.ErrInvalidState) {
			// Already started by an earlier firing.
			m.logger.Warn("Skipping tournament start", "tournamentID", tournamentID, "error", err)
			return
		}
		m.logger.Error("Failed to start tournament", "tournamentID", tournamentID, "error", err)
		return
	}
	for _, mt := range created {
		m.OnMatchCreated(mt)
	}
}

// handleMatchDeadline applies the deadline outcome for a match whose timer
// fired. Matches that progressed past the guarded states are left alone,
// so duplicate firings across a restart boundary are harmless.
func (m *Manager) handleMatchDeadline(matchID string) {
	ctx := context.Background()

	mt, err := m.matches.FindByID(ctx, matchID)
	if err != nil {
		m.logger.Error("Failed to load match for deadline", "matchID", matchID, "error", err)
		return
	}

	var resolved *match.Match
	switch mt.Status {
	case match.StatusPendingAcknowledgement:
		resolved, err = m.matches.HandleAckForfeit(ctx, matchID)
		if err == nil && resolved.Status.IsTerminal() {
			m.metrics.IncAckForfeits()
		}
	case match.StatusScheduled:
		resolved, err = m.matches.RecordTimeout(ctx, matchID)
		if err == nil {
			m.metrics.IncTimeouts()
		}
	default:
		// In-progress matches are allowed to finish; terminal ones are done.
		return
	}
	if err != nil {
		m.logger.Error("Failed to apply match deadline", "matchID", matchID, "error", err)
		return
	}
	if !resolved.Status.IsTerminal() {
		// Both players acknowledged before the timer fired; the match
		// proceeds as scheduled.
		return
	}

	m.logger.Info("Match deadline enforced", "matchID", matchID, "status", resolved.Status, "source", resolved.ResultSource)
	m.publishResolved(resolved)

	if resolved.TournamentID != nil {
		if err := m.tournaments.ProcessMatchResult(ctx, resolved); err != nil {
			m.logger.Error("Failed to process tournament match result", "matchID", matchID, "error", err)
		}
		return
	}

	// A casual player who acknowledged gets priority placement back in
	// their pool.
	if resolved.WinnerID != nil && resolved.ResultSource != match.SourcePlayed {
		if pool, ok := m.pools[resolved.GameMode]; ok {
			pool.ReturnToPool(*resolved.WinnerID)
		}
	}
}

func (m *Manager) publishResolved(mt *match.Match) {
	if err := m.events.SendMessage(pubsub.EventMatchResolved, mt); err != nil {
		m.logger.Error("Failed to publish match resolved event", "matchID", mt.ID, "error", err)
	}
}
