package lifecycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mavh/rallyrank/internal/database"
	"github.com/mavh/rallyrank/internal/lifecycle"
	"github.com/mavh/rallyrank/internal/match"
	"github.com/mavh/rallyrank/internal/matchmaking"
	"github.com/mavh/rallyrank/internal/metrics"
	"github.com/mavh/rallyrank/internal/pool"
	"github.com/mavh/rallyrank/internal/pubsub"
	"github.com/mavh/rallyrank/internal/tournament"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePool struct {
	mu       sync.Mutex
	returned []string
}

func (f *fakePool) ReturnToPool(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.returned = append(f.returned, userID)
	return true
}

func (f *fakePool) Returned() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.returned...)
}

type testEnv struct {
	manager     *lifecycle.Manager
	matches     match.Store
	tournaments *tournament.Service
	store       tournament.Store
	pool        *fakePool
	events      *pubsub.MockPubSubClient
}

func setupManager(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		matches: match.NewStore(db),
		store:   tournament.NewStore(db),
		pool:    &fakePool{},
		events:  pubsub.NewMock(),
	}
	env.tournaments = tournament.New(env.store, env.matches, env.events, metrics.NewMock(), 0, nil)
	env.manager = lifecycle.NewManager(
		env.tournaments,
		env.matches,
		map[match.GameMode]lifecycle.PoolReturner{match.ModeClassic: env.pool},
		env.events,
		metrics.NewMock(),
		nil,
	)
	env.tournaments.SetScheduler(env.manager)
	t.Cleanup(env.manager.Shutdown)
	return env
}

func seedTournament(t *testing.T, env *testEnv, status tournament.Status, registrationEnd time.Time, users ...string) *tournament.Tournament {
	t.Helper()

	tn := &tournament.Tournament{
		ID:               uuid.New().String(),
		Name:             "Recovery Cup",
		Status:           status,
		MinPlayers:       2,
		MaxPlayers:       8,
		RegistrationEnd:  registrationEnd,
		MatchDeadlineMin: 30,
		CreatedBy:        "alice",
		CreatedAt:        time.Now(),
	}
	require.NoError(t, env.store.Create(context.Background(), tn))
	for _, u := range users {
		require.NoError(t, env.store.Register(context.Background(), tn.ID, u))
	}
	return tn
}

func seedMatch(t *testing.T, env *testEnv, status match.Status, deadline *time.Time, mutate func(*match.Match)) *match.Match {
	t.Helper()

	m := &match.Match{
		ID:          uuid.New().String(),
		Player1ID:   "alice",
		Player2ID:   "bob",
		Status:      status,
		GameMode:    match.ModeClassic,
		Deadline:    deadline,
		ScheduledAt: time.Now(),
	}
	if mutate != nil {
		mutate(m)
	}
	require.NoError(t, env.matches.Create(context.Background(), m))
	return m
}

func timePtr(t time.Time) *time.Time { return &t }

func TestInitializeIsIdempotentOnTerminalState(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()

	seedTournament(t, env, tournament.StatusCompleted, time.Now().Add(-time.Hour))
	seedTournament(t, env, tournament.StatusCancelled, time.Now().Add(-time.Hour))
	seedMatch(t, env, match.StatusCompleted, timePtr(time.Now().Add(-time.Hour)), nil)

	require.NoError(t, env.manager.Initialize(ctx))
	assert.Equal(t, 0, env.manager.ActiveTimerCount())

	require.NoError(t, env.manager.Initialize(ctx))
	assert.Equal(t, 0, env.manager.ActiveTimerCount())
}

func TestInitializeSchedulesPendingTimers(t *testing.T) {
	env := setupManager(t)

	seedTournament(t, env, tournament.StatusRegistration, time.Now().Add(time.Hour), "alice", "bob")
	seedMatch(t, env, match.StatusPendingAcknowledgement, timePtr(time.Now().Add(time.Hour)), nil)

	require.NoError(t, env.manager.Initialize(context.Background()))
	assert.Equal(t, 2, env.manager.ActiveTimerCount())
}

func TestInitializeProcessesOverdueRegistrationImmediately(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()

	tn := seedTournament(t, env, tournament.StatusRegistration, time.Now().Add(-time.Minute), "alice", "bob")

	require.NoError(t, env.manager.Initialize(ctx))

	current, err := env.store.FindByID(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusInProgress, current.Status)

	// The single round-robin match has a future deadline, so exactly one
	// timer remains armed.
	created, err := env.matches.FindByTournamentID(ctx, tn.ID)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 1, env.manager.ActiveTimerCount())
}

func TestInitializeAppliesOverdueMatchDeadline(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()

	m := seedMatch(t, env, match.StatusScheduled, timePtr(time.Now().Add(-time.Minute)), func(m *match.Match) {
		m.Player1Acknowledged = true
		m.Player2Acknowledged = true
	})

	require.NoError(t, env.manager.Initialize(ctx))

	resolved, err := env.matches.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusTimeout, resolved.Status)
	assert.Equal(t, 0, env.manager.ActiveTimerCount())

	// A second recovery pass sees only the terminal match and does nothing.
	require.NoError(t, env.manager.Initialize(ctx))
	assert.Equal(t, 0, env.manager.ActiveTimerCount())
	again, err := env.matches.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, resolved.CompletedAt.Unix(), again.CompletedAt.Unix())
}

func TestMatchDeadlineTimerFires(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()

	// Only player1 acknowledges before the deadline.
	m := seedMatch(t, env, match.StatusPendingAcknowledgement, timePtr(time.Now().Add(50*time.Millisecond)), func(m *match.Match) {
		m.Player1Acknowledged = true
	})
	env.manager.OnMatchCreated(m)
	assert.Equal(t, 1, env.manager.ActiveTimerCount())

	assert.Eventually(t, func() bool {
		resolved, err := env.matches.FindByID(ctx, m.ID)
		return err == nil && resolved.Status == match.StatusForfeited
	}, 2*time.Second, 10*time.Millisecond)

	resolved, err := env.matches.FindByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved.WinnerID)
	assert.Equal(t, "alice", *resolved.WinnerID)
	assert.Equal(t, 0, env.manager.ActiveTimerCount())

	// The sole acknowledger goes back to the front of their pool.
	assert.Eventually(t, func() bool {
		returned := env.pool.Returned()
		return len(returned) == 1 && returned[0] == "alice"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAutoPairedMatchArmsDeadlineTimer(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()

	cfg := matchmaking.DefaultConfig()
	cfg.AckTimeout = 50 * time.Millisecond
	mm := matchmaking.New(match.ModeClassic, cfg, pool.NewRegistry(), env.matches, env.events, metrics.NewMock(), nil)
	mm.SetScheduler(env.manager)

	_, err := mm.JoinPool("alice")
	require.NoError(t, err)
	_, err = mm.JoinPool("bob")
	require.NoError(t, err)

	m, err := mm.TryAutoPair(ctx)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 1, env.manager.ActiveTimerCount())

	// Only player1 acknowledges; the deadline forfeits the match without
	// any restart or recovery pass.
	_, err = env.matches.RecordAcknowledgement(ctx, m.ID, "alice")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		resolved, err := env.matches.FindByID(ctx, m.ID)
		return err == nil && resolved.Status == match.StatusForfeited
	}, 2*time.Second, 10*time.Millisecond)

	resolved, err := env.matches.FindByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved.WinnerID)
	assert.Equal(t, "alice", *resolved.WinnerID)
	assert.Equal(t, 0, env.manager.ActiveTimerCount())
}

func TestReplacedTimerKeepsSuccessorRegistered(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()

	m := seedMatch(t, env, match.StatusScheduled, timePtr(time.Now().Add(-time.Minute)), nil)

	// The overdue timer fires immediately; replacing it before the callback
	// runs must not evict the replacement.
	env.manager.OnMatchCreated(m)
	env.manager.OnMatchCreated(&match.Match{ID: m.ID, Deadline: timePtr(time.Now().Add(time.Hour))})

	assert.Eventually(t, func() bool {
		resolved, err := env.matches.FindByID(ctx, m.ID)
		return err == nil && resolved.Status == match.StatusTimeout
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, env.manager.ActiveTimerCount())
}

func TestRegistrationFullClosesEarly(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()

	p := tournament.CreateParams{
		Name:             "Instant Cup",
		MinPlayers:       2,
		MaxPlayers:       2,
		RegistrationEnd:  time.Now().Add(time.Hour),
		MatchDeadlineMin: 30,
		CreatedBy:        "alice",
	}
	tn, err := env.tournaments.CreateTournament(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 1, env.manager.ActiveTimerCount())

	require.NoError(t, env.tournaments.Register(ctx, tn.ID, "alice"))
	require.NoError(t, env.tournaments.Register(ctx, tn.ID, "bob"))

	current, err := env.tournaments.Get(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusInProgress, current.Status)

	// The registration-end timer was replaced by a single match deadline.
	assert.Equal(t, 1, env.manager.ActiveTimerCount())
}

func TestCompleteMatchCancelsTimerAndPublishes(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()

	m := seedMatch(t, env, match.StatusInProgress, timePtr(time.Now().Add(time.Hour)), func(m *match.Match) {
		m.Player1Acknowledged = true
		m.Player2Acknowledged = true
	})
	env.manager.OnMatchCreated(m)
	require.Equal(t, 1, env.manager.ActiveTimerCount())

	winner := "bob"
	resolved, err := env.manager.CompleteMatch(ctx, m.ID, &winner, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, match.StatusCompleted, resolved.Status)
	assert.Equal(t, 0, env.manager.ActiveTimerCount())
	assert.Contains(t, env.events.SentTopics(), string(pubsub.EventMatchResolved))
}

func TestTournamentCancelStopsTimer(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()

	p := tournament.CreateParams{
		Name:             "Doomed Cup",
		MinPlayers:       2,
		MaxPlayers:       8,
		RegistrationEnd:  time.Now().Add(time.Hour),
		MatchDeadlineMin: 30,
		CreatedBy:        "alice",
	}
	tn, err := env.tournaments.CreateTournament(ctx, p)
	require.NoError(t, err)
	require.Equal(t, 1, env.manager.ActiveTimerCount())

	require.NoError(t, env.tournaments.Cancel(ctx, tn.ID))
	assert.Equal(t, 0, env.manager.ActiveTimerCount())
}

func TestShutdownCancelsEverything(t *testing.T) {
	env := setupManager(t)

	seedTournament(t, env, tournament.StatusRegistration, time.Now().Add(time.Hour), "alice", "bob")
	m := seedMatch(t, env, match.StatusPendingAcknowledgement, timePtr(time.Now().Add(time.Hour)), nil)
	require.NoError(t, env.manager.Initialize(context.Background()))
	require.Equal(t, 2, env.manager.ActiveTimerCount())

	env.manager.Shutdown()
	assert.Equal(t, 0, env.manager.ActiveTimerCount())

	// A closed manager refuses new timers.
	env.manager.OnMatchCreated(m)
	assert.Equal(t, 0, env.manager.ActiveTimerCount())
}
