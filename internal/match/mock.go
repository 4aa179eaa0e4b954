package match

import (
	"context"
	"sync"
	"time"
)

// MockStore is an in-memory implementation of Store for testing. Behaviour
// can be overridden per-method through the Func fields; calls are recorded.
// It is safe for concurrent use.
type MockStore struct {
	mu      sync.Mutex
	matches map[string]*Match

	// Overrides
	CreateFunc                  func(m *Match) error
	FindByIDFunc                func(id string) (*Match, error)
	RecordAcknowledgementFunc   func(matchID, userID string) (*Match, error)
	HandleAckForfeitFunc        func(matchID string) (*Match, error)
	RecordTimeoutFunc           func(matchID string) (*Match, error)
	CompleteMatchFunc           func(matchID string, winnerID *string, p1, p2 int) (*Match, error)

	// Call records
	CreateCalls           []*Match
	AcknowledgementCalls  []struct{ MatchID, UserID string }
	AckForfeitCalls       []string
	TimeoutCalls          []string
	CompleteCalls         []string
}

var _ Store = (*MockStore)(nil)

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{matches: make(map[string]*Match)}
}

// Seed inserts matches directly, bypassing call recording.
func (s *MockStore) Seed(matches ...*Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range matches {
		cp := *m
		s.matches[m.ID] = &cp
	}
}

func (s *MockStore) Create(_ context.Context, m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateCalls = append(s.CreateCalls, m)
	if s.CreateFunc != nil {
		return s.CreateFunc(m)
	}
	cp := *m
	s.matches[m.ID] = &cp
	return nil
}

func (s *MockStore) FindByID(_ context.Context, id string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindByIDFunc != nil {
		return s.FindByIDFunc(id)
	}
	return s.get(id)
}

func (s *MockStore) FindByTournamentID(_ context.Context, tournamentID string) ([]*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Match
	for _, m := range s.matches {
		if m.TournamentID != nil && *m.TournamentID == tournamentID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MockStore) FindByPlayerID(_ context.Context, playerID string) ([]*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Match
	for _, m := range s.matches {
		if m.HasPlayer(playerID) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MockStore) FindBetweenPlayers(_ context.Context, player1ID, player2ID string) ([]*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Match
	for _, m := range s.matches {
		if m.HasPlayer(player1ID) && m.HasPlayer(player2ID) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MockStore) FindUnacknowledged(_ context.Context) ([]*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Match
	for _, m := range s.matches {
		if m.Status == StatusPendingAcknowledgement && (!m.Player1Acknowledged || !m.Player2Acknowledged) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MockStore) FindOverdue(_ context.Context, now time.Time) ([]*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Match
	for _, m := range s.matches {
		if pendingWithDeadline(m) && m.Deadline.Before(now) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MockStore) FindPendingWithDeadline(_ context.Context) ([]*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Match
	for _, m := range s.matches {
		if pendingWithDeadline(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MockStore) RecordAcknowledgement(_ context.Context, matchID, userID string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AcknowledgementCalls = append(s.AcknowledgementCalls, struct{ MatchID, UserID string }{matchID, userID})
	if s.RecordAcknowledgementFunc != nil {
		return s.RecordAcknowledgementFunc(matchID, userID)
	}
	m, err := s.get(matchID)
	if err != nil {
		return nil, err
	}
	stored := s.matches[matchID]
	if stored.Status.IsTerminal() {
		return nil, ErrMatchAlreadyResolved
	}
	if stored.Status != StatusPendingAcknowledgement {
		return nil, ErrInvalidMatchState
	}
	if !stored.HasPlayer(userID) {
		return nil, ErrNotAParticipant
	}
	if stored.Deadline != nil && time.Now().After(*stored.Deadline) {
		return nil, ErrAckDeadlinePassed
	}
	if userID == stored.Player1ID {
		stored.Player1Acknowledged = true
	} else {
		stored.Player2Acknowledged = true
	}
	if stored.Player1Acknowledged && stored.Player2Acknowledged {
		stored.Status = StatusScheduled
	}
	*m = *stored
	return m, nil
}

func (s *MockStore) MarkInProgress(_ context.Context, matchID string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if stored.Status.IsTerminal() {
		return nil, ErrMatchAlreadyResolved
	}
	if stored.Status != StatusScheduled {
		return nil, ErrInvalidMatchState
	}
	now := time.Now()
	stored.Status = StatusInProgress
	stored.StartedAt = &now
	cp := *stored
	return &cp, nil
}

func (s *MockStore) HandleAckForfeit(_ context.Context, matchID string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AckForfeitCalls = append(s.AckForfeitCalls, matchID)
	if s.HandleAckForfeitFunc != nil {
		return s.HandleAckForfeitFunc(matchID)
	}
	stored, ok := s.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if stored.Status.IsTerminal() {
		return nil, ErrMatchAlreadyResolved
	}
	if stored.Status != StatusPendingAcknowledgement {
		return nil, ErrInvalidMatchState
	}
	if out, forfeited := AckForfeitOutcome(stored); forfeited {
		applyMockOutcome(stored, out)
	}
	cp := *stored
	return &cp, nil
}

func (s *MockStore) RecordTimeout(_ context.Context, matchID string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TimeoutCalls = append(s.TimeoutCalls, matchID)
	if s.RecordTimeoutFunc != nil {
		return s.RecordTimeoutFunc(matchID)
	}
	stored, ok := s.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if stored.Status.IsTerminal() {
		return nil, ErrMatchAlreadyResolved
	}
	if stored.Status != StatusScheduled {
		return nil, ErrInvalidMatchState
	}
	applyMockOutcome(stored, TimeoutOutcome(stored))
	cp := *stored
	return &cp, nil
}

func (s *MockStore) CompleteMatch(_ context.Context, matchID string, winnerID *string, p1, p2 int) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CompleteCalls = append(s.CompleteCalls, matchID)
	if s.CompleteMatchFunc != nil {
		return s.CompleteMatchFunc(matchID, winnerID, p1, p2)
	}
	stored, ok := s.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if stored.Status.IsTerminal() {
		return nil, ErrMatchAlreadyResolved
	}
	if stored.Status == StatusPendingAcknowledgement {
		return nil, ErrInvalidMatchState
	}
	if winnerID != nil && !stored.HasPlayer(*winnerID) {
		return nil, ErrNotAParticipant
	}
	applyMockOutcome(stored, Outcome{
		Status:       StatusCompleted,
		WinnerID:     winnerID,
		Player1Score: p1,
		Player2Score: p2,
		Source:       SourcePlayed,
	})
	cp := *stored
	return &cp, nil
}

func (s *MockStore) get(id string) (*Match, error) {
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func pendingWithDeadline(m *Match) bool {
	if m.Deadline == nil {
		return false
	}
	return m.Status == StatusPendingAcknowledgement || m.Status == StatusScheduled
}

func applyMockOutcome(m *Match, out Outcome) {
	now := time.Now()
	m.Status = out.Status
	m.WinnerID = out.WinnerID
	p1, p2 := out.Player1Score, out.Player2Score
	m.Player1Score = &p1
	m.Player2Score = &p2
	m.ResultSource = out.Source
	m.CompletedAt = &now
}
