package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                   sync.Mutex
	pairsFormed          int
	pairRollbacks        int
	matchesCreated       int
	ackForfeits          int
	timeouts             int
	goldenGames          int
	tournamentsCompleted int
	pairingDurations     []float64
	activeTimers         float64
	startupTime          float64
}

var _ Metrics = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		pairingDurations: make([]float64, 0),
	}
}

func (m *Mock) IncPairsFormed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairsFormed++
}

func (m *Mock) IncPairRollbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairRollbacks++
}

func (m *Mock) IncMatchesCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesCreated++
}

func (m *Mock) IncAckForfeits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ackForfeits++
}

func (m *Mock) IncTimeouts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts++
}

func (m *Mock) IncGoldenGames() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goldenGames++
}

func (m *Mock) IncTournamentsCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tournamentsCompleted++
}

func (m *Mock) ObservePairingDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairingDurations = append(m.pairingDurations, duration)
}

func (m *Mock) SetActiveTimers(count float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeTimers = count
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// PairsFormed returns the number of times IncPairsFormed was called.
func (m *Mock) PairsFormed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairsFormed
}

// PairRollbacks returns the number of times IncPairRollbacks was called.
func (m *Mock) PairRollbacks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairRollbacks
}

// MatchesCreated returns the number of times IncMatchesCreated was called.
func (m *Mock) MatchesCreated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesCreated
}

// AckForfeits returns the number of times IncAckForfeits was called.
func (m *Mock) AckForfeits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ackForfeits
}

// GoldenGames returns the number of times IncGoldenGames was called.
func (m *Mock) GoldenGames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.goldenGames
}

// TournamentsCompleted returns the number of times IncTournamentsCompleted
// was called.
func (m *Mock) TournamentsCompleted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tournamentsCompleted
}

// ActiveTimers returns the last value passed to SetActiveTimers.
func (m *Mock) ActiveTimers() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeTimers
}
