package tournament_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mavh/rallyrank/internal/database"
	"github.com/mavh/rallyrank/internal/match"
	"github.com/mavh/rallyrank/internal/metrics"
	"github.com/mavh/rallyrank/internal/pubsub"
	"github.com/mavh/rallyrank/internal/tournament"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingScheduler captures lifecycle notifications.
type recordingScheduler struct {
	created   []string
	regFull   []string
	cancelled []string
	matches   []string
	completed []string
}

func (r *recordingScheduler) OnTournamentCreated(t *tournament.Tournament) {
	r.created = append(r.created, t.ID)
}
func (r *recordingScheduler) OnRegistrationFull(t *tournament.Tournament) {
	r.regFull = append(r.regFull, t.ID)
}
func (r *recordingScheduler) OnTournamentCancelled(id string) {
	r.cancelled = append(r.cancelled, id)
}
func (r *recordingScheduler) OnMatchCreated(m *match.Match) {
	r.matches = append(r.matches, m.ID)
}
func (r *recordingScheduler) OnMatchCompleted(m *match.Match) {
	r.completed = append(r.completed, m.ID)
}

type testEnv struct {
	svc     *tournament.Service
	matches match.Store
	sched   *recordingScheduler
	metrics *metrics.Mock
	events  *pubsub.MockPubSubClient
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		matches: match.NewStore(db),
		sched:   &recordingScheduler{},
		metrics: metrics.NewMock(),
		events:  pubsub.NewMock(),
	}
	env.svc = tournament.New(tournament.NewStore(db), env.matches, env.events, env.metrics, 0, nil)
	env.svc.SetScheduler(env.sched)
	return env
}

func validParams() tournament.CreateParams {
	return tournament.CreateParams{
		Name:             "Friday Night Rally",
		MinPlayers:       2,
		MaxPlayers:       8,
		RegistrationEnd:  time.Now().Add(time.Hour),
		MatchDeadlineMin: 30,
		CreatedBy:        "alice",
	}
}

func createTournament(t *testing.T, env *testEnv, p tournament.CreateParams) *tournament.Tournament {
	t.Helper()
	tn, err := env.svc.CreateTournament(context.Background(), p)
	require.NoError(t, err)
	return tn
}

func registerAll(t *testing.T, env *testEnv, tournamentID string, users ...string) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, env.svc.Register(context.Background(), tournamentID, u))
	}
}

// resolveMatch completes a match and feeds the result back into the
// tournament, the way the HTTP result endpoint does.
func resolveMatch(t *testing.T, env *testEnv, matchID string, winnerID string, winnerScore, loserScore int) {
	t.Helper()
	ctx := context.Background()

	m, err := env.matches.FindByID(ctx, matchID)
	require.NoError(t, err)

	if m.Status == match.StatusPendingAcknowledgement {
		_, err = env.matches.RecordAcknowledgement(ctx, matchID, m.Player1ID)
		require.NoError(t, err)
		_, err = env.matches.RecordAcknowledgement(ctx, matchID, m.Player2ID)
		require.NoError(t, err)
	}

	p1, p2 := winnerScore, loserScore
	if winnerID == m.Player2ID {
		p1, p2 = loserScore, winnerScore
	}
	resolved, err := env.matches.CompleteMatch(ctx, matchID, &winnerID, p1, p2)
	require.NoError(t, err)
	require.NoError(t, env.svc.ProcessMatchResult(ctx, resolved))
}

func TestCreateTournamentValidation(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*tournament.CreateParams)
	}{
		{"empty name", func(p *tournament.CreateParams) { p.Name = "" }},
		{"min players too low", func(p *tournament.CreateParams) { p.MinPlayers = 1 }},
		{"max below min", func(p *tournament.CreateParams) { p.MaxPlayers = 1 }},
		{"registration end in the past", func(p *tournament.CreateParams) {
			p.RegistrationEnd = time.Now().Add(-time.Minute)
		}},
		{"start before registration end", func(p *tournament.CreateParams) {
			st := p.RegistrationEnd.Add(-time.Minute)
			p.StartTime = &st
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validParams()
			tc.mutate(&p)
			_, err := env.svc.CreateTournament(ctx, p)
			assert.ErrorIs(t, err, tournament.ErrInvalidParams)
		})
	}
}

func TestCreateTournamentAppliesConfiguredDeadlineDefault(t *testing.T) {
	db, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := tournament.New(tournament.NewStore(db), match.NewStore(db), pubsub.NewMock(), metrics.NewMock(), 45, nil)

	p := validParams()
	p.MatchDeadlineMin = 0
	tn, err := svc.CreateTournament(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 45, tn.MatchDeadlineMin)

	// An explicit deadline still wins over the configured default.
	p = validParams()
	p.MatchDeadlineMin = 15
	tn, err = svc.CreateTournament(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 15, tn.MatchDeadlineMin)
}

func TestCreateTournamentNotifiesScheduler(t *testing.T) {
	env := setupTestService(t)

	tn := createTournament(t, env, validParams())
	assert.Equal(t, tournament.StatusRegistration, tn.Status)
	assert.Equal(t, []string{tn.ID}, env.sched.created)
}

func TestRegisterValidation(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	p := validParams()
	p.MaxPlayers = 3
	tn := createTournament(t, env, p)

	require.NoError(t, env.svc.Register(ctx, tn.ID, "alice"))
	assert.ErrorIs(t, env.svc.Register(ctx, tn.ID, "alice"), tournament.ErrAlreadyRegistered)

	// The recording scheduler does not close registration, so a full
	// tournament fails the capacity check.
	registerAll(t, env, tn.ID, "bob", "carol")
	assert.ErrorIs(t, env.svc.Register(ctx, tn.ID, "dave"), tournament.ErrTournamentFull)

	assert.ErrorIs(t, env.svc.Register(ctx, "nope", "alice"), tournament.ErrTournamentNotFound)
}

func TestRegisterClosesEarlyWhenFull(t *testing.T) {
	env := setupTestService(t)

	p := validParams()
	p.MaxPlayers = 2
	tn := createTournament(t, env, p)

	registerAll(t, env, tn.ID, "alice", "bob")
	assert.Equal(t, []string{tn.ID}, env.sched.regFull)
}

func TestUnregister(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	tn := createTournament(t, env, validParams())
	registerAll(t, env, tn.ID, "alice")

	require.NoError(t, env.svc.Unregister(ctx, tn.ID, "alice"))
	assert.ErrorIs(t, env.svc.Unregister(ctx, tn.ID, "alice"), tournament.ErrNotRegistered)

	participants, err := env.svc.Participants(ctx, tn.ID)
	require.NoError(t, err)
	assert.Empty(t, participants)
}

func TestCloseRegistrationCancelsBelowMinimum(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	tn := createTournament(t, env, validParams())
	registerAll(t, env, tn.ID, "alice")

	closed, err := env.svc.CloseRegistration(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusCancelled, closed.Status)
	assert.Equal(t, []string{tn.ID}, env.sched.cancelled)
}

func TestCloseRegistrationSchedules(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	tn := createTournament(t, env, validParams())
	registerAll(t, env, tn.ID, "alice", "bob")

	closed, err := env.svc.CloseRegistration(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusScheduled, closed.Status)

	// A late duplicate timer firing must be a no-op.
	again, err := env.svc.CloseRegistration(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusScheduled, again.Status)
}

func TestStartTournamentGeneratesRoundRobin(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	tn := createTournament(t, env, validParams())
	registerAll(t, env, tn.ID, "p1", "p2", "p3", "p4")

	_, err := env.svc.CloseRegistration(ctx, tn.ID)
	require.NoError(t, err)

	created, err := env.svc.StartTournament(ctx, tn.ID)
	require.NoError(t, err)
	require.Len(t, created, 6)

	// Every unordered pair appears exactly once.
	pairs := make(map[string]int)
	for _, m := range created {
		a, b := m.Player1ID, m.Player2ID
		if a > b {
			a, b = b, a
		}
		pairs[a+"/"+b]++
		assert.Equal(t, match.StatusPendingAcknowledgement, m.Status)
		require.NotNil(t, m.TournamentID)
		assert.Equal(t, tn.ID, *m.TournamentID)
		require.NotNil(t, m.Deadline)
	}
	assert.Len(t, pairs, 6)
	for pair, count := range pairs {
		assert.Equal(t, 1, count, "pair %s", pair)
	}

	current, err := env.svc.Get(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusInProgress, current.Status)
	require.NotNil(t, current.StartTime)
}

func TestStartTournamentRequiresScheduledStatus(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	tn := createTournament(t, env, validParams())
	registerAll(t, env, tn.ID, "alice", "bob")

	_, err := env.svc.StartTournament(ctx, tn.ID)
	assert.ErrorIs(t, err, tournament.ErrInvalidState)
}

func TestCancelTournament(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	tn := createTournament(t, env, validParams())
	require.NoError(t, env.svc.Cancel(ctx, tn.ID))
	assert.Equal(t, []string{tn.ID}, env.sched.cancelled)

	// Cancelled tournaments cannot be cancelled again.
	assert.ErrorIs(t, env.svc.Cancel(ctx, tn.ID), tournament.ErrInvalidState)
}

func TestFullTournamentFinalizesWithoutTieBreaker(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	tn := createTournament(t, env, validParams())
	registerAll(t, env, tn.ID, "p1", "p2", "p3", "p4")
	_, err := env.svc.CloseRegistration(ctx, tn.ID)
	require.NoError(t, err)
	created, err := env.svc.StartTournament(ctx, tn.ID)
	require.NoError(t, err)

	// Strict ordering: p1 beats everyone, p2 beats p3 and p4, p3 beats p4.
	beats := func(a, b string) bool {
		order := map[string]int{"p1": 0, "p2": 1, "p3": 2, "p4": 3}
		return order[a] < order[b]
	}
	for _, m := range created {
		winner := m.Player1ID
		if beats(m.Player2ID, m.Player1ID) {
			winner = m.Player2ID
		}
		resolveMatch(t, env, m.ID, winner, 7, 3)
	}

	current, err := env.svc.Get(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusCompleted, current.Status)
	assert.Equal(t, 1, env.metrics.TournamentsCompleted())
	assert.Equal(t, 0, env.metrics.GoldenGames())

	rankings, err := env.svc.Rankings(ctx, tn.ID)
	require.NoError(t, err)
	require.Len(t, rankings, 4)
	for i, p := range rankings {
		assert.Equal(t, fmt.Sprintf("p%d", i+1), p.UserID)
		assert.Equal(t, 3-i, p.Wins)
		require.NotNil(t, p.FinalRank)
		assert.Equal(t, i+1, *p.FinalRank)
	}
}

func TestUniformTieSchedulesGoldenGame(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	tn := createTournament(t, env, validParams())
	registerAll(t, env, tn.ID, "alice", "bob")
	_, err := env.svc.CloseRegistration(ctx, tn.ID)
	require.NoError(t, err)
	created, err := env.svc.StartTournament(ctx, tn.ID)
	require.NoError(t, err)
	require.Len(t, created, 1)

	// Neither player shows up: a fully-forfeited match with no winner.
	forfeited, err := env.matches.HandleAckForfeit(ctx, created[0].ID)
	require.NoError(t, err)
	require.Nil(t, forfeited.WinnerID)
	require.NoError(t, env.svc.ProcessMatchResult(ctx, forfeited))

	current, err := env.svc.Get(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusTieBreaker, current.Status)
	assert.Equal(t, 1, env.metrics.GoldenGames())
	assert.Contains(t, env.events.SentTopics(), string(pubsub.EventGoldenGameScheduled))

	all, err := env.svc.Matches(ctx, tn.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)

	var golden *match.Match
	for _, m := range all {
		if m.IsGoldenGame {
			golden = m
		}
	}
	require.NotNil(t, golden)
	assert.Equal(t, match.StatusPendingAcknowledgement, golden.Status)
	assert.Contains(t, env.sched.matches, golden.ID)

	// Resolving the golden game completes the tournament.
	resolveMatch(t, env, golden.ID, "alice", 7, 5)

	current, err = env.svc.Get(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusCompleted, current.Status)

	rankings, err := env.svc.Rankings(ctx, tn.ID)
	require.NoError(t, err)
	require.Len(t, rankings, 2)
	assert.Equal(t, "alice", rankings[0].UserID)
	require.NotNil(t, rankings[0].FinalRank)
	assert.Equal(t, 1, *rankings[0].FinalRank)
	require.NotNil(t, rankings[1].FinalRank)
	assert.Equal(t, 2, *rankings[1].FinalRank)
}

func TestHeadToHeadBreaksTieWithoutGoldenGame(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	tn := createTournament(t, env, validParams())
	registerAll(t, env, tn.ID, "a", "b", "c", "d")
	_, err := env.svc.CloseRegistration(ctx, tn.ID)
	require.NoError(t, err)
	created, err := env.svc.StartTournament(ctx, tn.ID)
	require.NoError(t, err)

	// a and b finish tied on wins and score differential, but a won their
	// direct match, so head-to-head decides first place.
	results := map[string]struct {
		winner                  string
		winnerScore, loserScore int
	}{
		"a/b": {"a", 7, 6},
		"a/c": {"a", 7, 0},
		"a/d": {"d", 7, 1},
		"b/c": {"b", 7, 5},
		"b/d": {"b", 7, 6},
		"c/d": {"c", 7, 0},
	}
	for _, m := range created {
		p1, p2 := m.Player1ID, m.Player2ID
		if p1 > p2 {
			p1, p2 = p2, p1
		}
		r, ok := results[p1+"/"+p2]
		require.True(t, ok)
		resolveMatch(t, env, m.ID, r.winner, r.winnerScore, r.loserScore)
	}

	current, err := env.svc.Get(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusCompleted, current.Status)
	assert.Equal(t, 0, env.metrics.GoldenGames())

	rankings, err := env.svc.Rankings(ctx, tn.ID)
	require.NoError(t, err)
	require.Len(t, rankings, 4)

	ranks := make(map[string]int)
	for _, p := range rankings {
		require.NotNil(t, p.FinalRank)
		ranks[p.UserID] = *p.FinalRank
	}
	assert.Equal(t, 1, ranks["a"])
	assert.Equal(t, 2, ranks["b"])
}
