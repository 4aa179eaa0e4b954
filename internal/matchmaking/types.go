package matchmaking

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mavh/rallyrank/internal/match"
	"github.com/mavh/rallyrank/internal/metrics"
	"github.com/mavh/rallyrank/internal/pool"
	"github.com/mavh/rallyrank/internal/pubsub"
	"github.com/mavh/rallyrank/internal/queue"
)

// Config holds the matchmaking tunables for one pool.
type Config struct {
	// AckTimeout is how long a paired player has to acknowledge the match.
	AckTimeout time.Duration
	// MaxWait is how long an entry may sit in the pool before stale eviction.
	MaxWait time.Duration
	// PairingInterval is the cadence of the auto-pair driver.
	PairingInterval time.Duration
	// CleanupInterval is the cadence of stale-entry eviction.
	CleanupInterval time.Duration
	// AvgPairingTime feeds the estimated-wait calculation reported to
	// queued players.
	AvgPairingTime time.Duration
}

// DefaultConfig returns the production matchmaking tunables.
func DefaultConfig() Config {
	return Config{
		AckTimeout:      2 * time.Minute,
		MaxWait:         15 * time.Minute,
		PairingInterval: 5 * time.Second,
		CleanupInterval: time.Minute,
		AvgPairingTime:  30 * time.Second,
	}
}

// Pair are the two oldest entries dequeued together for a match. Player1
// joined the pool before Player2.
type Pair struct {
	Player1 *queue.Entry
	Player2 *queue.Entry
}

// JoinResult reports the outcome of a join attempt. Success is false when
// the user was already queued; Position is valid either way.
type JoinResult struct {
	Success  bool `json:"success"`
	Position int  `json:"position"`
	PoolSize int  `json:"pool_size"`
}

// PoolStatus describes a user's view of the pool.
type PoolStatus struct {
	InPool        bool          `json:"in_pool"`
	Position      int           `json:"position,omitempty"`
	PoolSize      int           `json:"pool_size"`
	EstimatedWait time.Duration `json:"estimated_wait_seconds"`
}

// MatchScheduler observes newly persisted matches so their acknowledgement
// deadline timers can be armed.
type MatchScheduler interface {
	OnMatchCreated(m *match.Match)
}

// noopMatchScheduler is used until a real scheduler is attached.
type noopMatchScheduler struct{}

func (noopMatchScheduler) OnMatchCreated(*match.Match) {}

// Service owns the pairing queue for a single game mode. All queue mutations
// are serialized behind mu: pairing removes two entries and must never
// observe a player twice or lose a concurrent leave. Queue mutation always
// completes before any database write, so the in-memory pool never exposes a
// player who is mid-pairing.
type Service struct {
	mode     match.GameMode
	cfg      Config
	mu       sync.Mutex
	queue    *queue.PairingQueue
	registry *pool.Registry
	matches  match.Store
	events   pubsub.PubSubClient
	metrics  metrics.Metrics
	logger   *log.Logger
	sched    MatchScheduler
}
