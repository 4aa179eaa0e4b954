package tournament

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store for tests. Individual operations can be
// overridden through the corresponding Func field; calls that mutate state
// are recorded.
type MockStore struct {
	mu           sync.Mutex
	tournaments  map[string]*Tournament
	participants map[string]map[string]*Participant

	CreateFunc       func(t *Tournament) error
	FindByIDFunc     func(id string) (*Tournament, error)
	UpdateStatusFunc func(id string, status Status) error

	CreateCalls       []string
	UpdateStatusCalls []StatusCall
	FinalRankCalls    []map[string]int
}

type StatusCall struct {
	TournamentID string
	Status       Status
}

func NewMock() *MockStore {
	return &MockStore{
		tournaments:  make(map[string]*Tournament),
		participants: make(map[string]map[string]*Participant),
	}
}

// Seed inserts tournaments directly, bypassing any override.
func (s *MockStore) Seed(tournaments ...*Tournament) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tournaments {
		cp := *t
		s.tournaments[t.ID] = &cp
		if s.participants[t.ID] == nil {
			s.participants[t.ID] = make(map[string]*Participant)
		}
	}
}

// SeedParticipants registers users for a seeded tournament.
func (s *MockStore) SeedParticipants(tournamentID string, userIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participants[tournamentID] == nil {
		s.participants[tournamentID] = make(map[string]*Participant)
	}
	for i, id := range userIDs {
		s.participants[tournamentID][id] = &Participant{
			TournamentID: tournamentID,
			UserID:       id,
			RegisteredAt: time.Now().Add(time.Duration(i) * time.Second),
		}
	}
}

func (s *MockStore) Create(ctx context.Context, t *Tournament) error {
	if s.CreateFunc != nil {
		return s.CreateFunc(t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tournaments[t.ID] = &cp
	s.participants[t.ID] = make(map[string]*Participant)
	s.CreateCalls = append(s.CreateCalls, t.ID)
	return nil
}

func (s *MockStore) FindByID(ctx context.Context, id string) (*Tournament, error) {
	if s.FindByIDFunc != nil {
		return s.FindByIDFunc(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MockStore) FindByStatus(ctx context.Context, statuses ...Status) ([]*Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Tournament
	for _, t := range s.tournaments {
		for _, st := range statuses {
			if t.Status == st {
				cp := *t
				out = append(out, &cp)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MockStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	s.mu.Lock()
	s.UpdateStatusCalls = append(s.UpdateStatusCalls, StatusCall{TournamentID: id, Status: status})
	s.mu.Unlock()

	if s.UpdateStatusFunc != nil {
		return s.UpdateStatusFunc(id, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (s *MockStore) SetStartTime(ctx context.Context, id string, start time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return ErrTournamentNotFound
	}
	t.StartTime = &start
	return nil
}

func (s *MockStore) HasCapacity(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return false, ErrTournamentNotFound
	}
	return len(s.participants[id]) < t.MaxPlayers, nil
}

func (s *MockStore) HasMinimumPlayers(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return false, ErrTournamentNotFound
	}
	return len(s.participants[id]) >= t.MinPlayers, nil
}

func (s *MockStore) Register(ctx context.Context, tournamentID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participants[tournamentID] == nil {
		s.participants[tournamentID] = make(map[string]*Participant)
	}
	s.participants[tournamentID][userID] = &Participant{
		TournamentID: tournamentID,
		UserID:       userID,
		RegisteredAt: time.Now(),
	}
	return nil
}

func (s *MockStore) Unregister(ctx context.Context, tournamentID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[tournamentID][userID]; !ok {
		return ErrNotRegistered
	}
	delete(s.participants[tournamentID], userID)
	return nil
}

func (s *MockStore) IsRegistered(ctx context.Context, tournamentID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.participants[tournamentID][userID]
	return ok, nil
}

func (s *MockStore) ParticipantUserIDs(ctx context.Context, tournamentID string) ([]string, error) {
	parts, err := s.sortedParticipants(tournamentID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(parts))
	for i, p := range parts {
		ids[i] = p.UserID
	}
	return ids, nil
}

func (s *MockStore) ParticipantCount(ctx context.Context, tournamentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants[tournamentID]), nil
}

func (s *MockStore) IncrementWins(ctx context.Context, tournamentID, userID string, scoreDiff int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[tournamentID][userID]
	if !ok {
		return ErrNotRegistered
	}
	p.Wins++
	p.ScoreDiff += scoreDiff
	return nil
}

func (s *MockStore) IncrementLosses(ctx context.Context, tournamentID, userID string, scoreDiff int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[tournamentID][userID]
	if !ok {
		return ErrNotRegistered
	}
	p.Losses++
	p.ScoreDiff += scoreDiff
	return nil
}

func (s *MockStore) Rankings(ctx context.Context, tournamentID string) ([]*Participant, error) {
	parts, err := s.sortedParticipants(tournamentID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(parts, func(i, j int) bool {
		if parts[i].Wins != parts[j].Wins {
			return parts[i].Wins > parts[j].Wins
		}
		return parts[i].ScoreDiff > parts[j].ScoreDiff
	})
	return parts, nil
}

func (s *MockStore) SetAllFinalRanks(ctx context.Context, tournamentID string, ranks map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, rank := range ranks {
		p, ok := s.participants[tournamentID][userID]
		if !ok {
			return ErrNotRegistered
		}
		r := rank
		p.FinalRank = &r
	}
	s.FinalRankCalls = append(s.FinalRankCalls, ranks)
	return nil
}

// sortedParticipants returns copies ordered by registration time, matching
// the real store's scan order.
func (s *MockStore) sortedParticipants(tournamentID string) ([]*Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := make([]*Participant, 0, len(s.participants[tournamentID]))
	for _, p := range s.participants[tournamentID] {
		cp := *p
		parts = append(parts, &cp)
	}
	sort.Slice(parts, func(i, j int) bool {
		if !parts[i].RegisteredAt.Equal(parts[j].RegisteredAt) {
			return parts[i].RegisteredAt.Before(parts[j].RegisteredAt)
		}
		return parts[i].UserID < parts[j].UserID
	})
	return parts, nil
}
