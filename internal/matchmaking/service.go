package matchmaking

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mavh/rallyrank/internal/match"
	"github.com/mavh/rallyrank/internal/metrics"
	"github.com/mavh/rallyrank/internal/pool"
	"github.com/mavh/rallyrank/internal/pubsub"
	"github.com/mavh/rallyrank/internal/queue"
)

// New creates a matchmaking service for one game mode. A nil logger falls
// back to the default console logger.
func New(mode match.GameMode, cfg Config, registry *pool.Registry, matches match.Store, events pubsub.PubSubClient, metricsSvc metrics.Metrics, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		mode:     mode,
		cfg:      cfg,
		queue:    queue.New(),
		registry: registry,
		matches:  matches,
		events:   events,
		metrics:  metricsSvc,
		logger:   logger.With("pool", string(mode)),
		sched:    noopMatchScheduler{},
	}
}

// SetScheduler attaches the lifecycle manager so every persisted match gets
// its acknowledgement deadline armed. Kept separate from New to break the
// construction cycle between the pools and the manager.
func (s *Service) SetScheduler(sched MatchScheduler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sched = sched
}

func (s *Service) scheduler() MatchScheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched
}

// Mode returns the game mode this pool serves.
func (s *Service) Mode() match.GameMode {
	return s.mode
}

// JoinPool adds a user to the pool. Joining is idempotent: an already-queued
// user gets success=false and their existing position.
func (s *Service) JoinPool(userID string) (JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.CanJoinPool(userID, string(s.mode)) {
		return JoinResult{}, ErrWrongPool
	}

	if s.queue.Contains(userID) {
		return JoinResult{
			Success:  false,
			Position: s.queue.Position(userID),
			PoolSize: s.queue.Size(),
		}, nil
	}

	if _, err := s.queue.AddToBack(userID); err != nil {
		return JoinResult{}, err
	}
	s.registry.Register(userID, string(s.mode))

	s.logger.Info("User joined pool", "userID", userID, "poolSize", s.queue.Size())
	return JoinResult{
		Success:  true,
		Position: s.queue.Position(userID),
		PoolSize: s.queue.Size(),
	}, nil
}

// LeavePool removes a user. Returns false if they were not queued.
func (s *Service) LeavePool(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.queue.Remove(userID) {
		return false
	}
	s.registry.Unregister(userID)
	s.logger.Info("User left pool", "userID", userID, "poolSize", s.queue.Size())
	return true
}

// Heartbeat refreshes a queued user's activity timestamp.
func (s *Service) Heartbeat(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Touch(userID)
}

// TryFormPair synchronously dequeues the two oldest waiting players, or
// returns nil when fewer than two are queued. Removal happens before any
// persistence work so the queue never exposes a player who is mid-pairing.
func (s *Service) TryFormPair() *Pair {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Size() < 2 {
		return nil
	}

	oldest := s.queue.NOldest(2)
	pair := &Pair{Player1: oldest[0], Player2: oldest[1]}
	s.queue.Remove(pair.Player1.UserID)
	s.queue.Remove(pair.Player2.UserID)
	s.registry.Unregister(pair.Player1.UserID)
	s.registry.Unregister(pair.Player2.UserID)

	s.metrics.IncPairsFormed()
	s.logger.Info("Formed pair", "player1", pair.Player1.UserID, "player2", pair.Player2.UserID)
	return pair
}

// CreateMatch persists a match for the pair with an acknowledgement
// deadline. This is the asynchronous half of pairing; the pair has already
// left the queue.
func (s *Service) CreateMatch(ctx context.Context, pair *Pair) (*match.Match, error) {
	now := time.Now()
	deadline := now.Add(s.cfg.AckTimeout)
	m := &match.Match{
		ID:          uuid.New().String(),
		Player1ID:   pair.Player1.UserID,
		Player2ID:   pair.Player2.UserID,
		Status:      match.StatusPendingAcknowledgement,
		GameMode:    s.mode,
		Deadline:    &deadline,
		ScheduledAt: now,
	}

	if err := s.matches.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to persist match for pair (%s, %s): %w", m.Player1ID, m.Player2ID, err)
	}

	s.metrics.IncMatchesCreated()
	if err := s.events.SendMessage(pubsub.EventMatchCreated, m); err != nil {
		s.logger.Warn("Failed to publish match-created event", "matchID", m.ID, "error", err)
	}
	s.scheduler().OnMatchCreated(m)
	return m, nil
}

// TryAutoPair composes TryFormPair and CreateMatch. On persistence failure
// both players are returned to the front of the pool, player2 first so that
// player1 ends up closest to the front, preserving the pair's original
// relative order; the error then propagates to the caller.
func (s *Service) TryAutoPair(ctx context.Context) (*match.Match, error) {
	start := time.Now()
	pair := s.TryFormPair()
	if pair == nil {
		return nil, nil
	}

	m, err := s.CreateMatch(ctx, pair)
	if err != nil {
		s.rollbackPair(pair)
		s.metrics.IncPairRollbacks()
		return nil, err
	}

	s.metrics.ObservePairingDuration(time.Since(start).Seconds())
	return m, nil
}

func (s *Service) rollbackPair(pair *Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range []*queue.Entry{pair.Player2, pair.Player1} {
		if _, err := s.queue.AddToFront(entry.UserID); err != nil {
			s.logger.Error("Failed to return player to pool after rollback", "userID", entry.UserID, "error", err)
			continue
		}
		s.registry.Register(entry.UserID, string(s.mode))
	}
	s.logger.Warn("Rolled back pair after failed match write", "player1", pair.Player1.UserID, "player2", pair.Player2.UserID)
}

// ReturnToPool re-inserts a player at the front of the queue, used when
// their opponent failed to acknowledge a match. Returns false if they are
// already queued.
func (s *Service) ReturnToPool(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.CanJoinPool(userID, string(s.mode)) {
		return false
	}
	if _, err := s.queue.AddToFront(userID); err != nil {
		return false
	}
	s.registry.Register(userID, string(s.mode))
	s.logger.Info("Returned player to front of pool", "userID", userID)
	return true
}

// CleanupStaleEntries evicts players who have waited longer than the
// configured maximum and returns how many were removed.
func (s *Service) CleanupStaleEntries() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.cfg.MaxWait)
	removed := s.queue.RemoveStale(cutoff)
	for _, entry := range removed {
		s.registry.Unregister(entry.UserID)
	}
	if len(removed) > 0 {
		s.logger.Warn("Evicted stale pool entries", "count", len(removed))
	}
	return len(removed)
}

// GetPoolStatus reports a user's queue membership, position, pool size and
// estimated wait (pairs ahead of them times the average pairing time).
func (s *Service) GetPoolStatus(userID string) PoolStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.queue.Size()
	position := s.queue.Position(userID)
	if position == queue.PositionNotFound {
		return PoolStatus{PoolSize: size}
	}

	pairsAhead := (position - 1) / 2
	return PoolStatus{
		InPool:        true,
		Position:      position,
		PoolSize:      size,
		EstimatedWait: time.Duration(pairsAhead) * s.cfg.AvgPairingTime,
	}
}

// PoolSize returns the number of players currently waiting.
func (s *Service) PoolSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Size()
}

// Entries returns a defensive copy of the current queue, oldest first.
func (s *Service) Entries() []queue.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.All()
}
