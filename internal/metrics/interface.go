package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the services from the specific metrics implementation
// (e.g., Prometheus).
type Metrics interface {
	IncPairsFormed()
	IncPairRollbacks()
	IncMatchesCreated()
	IncAckForfeits()
	IncTimeouts()
	IncGoldenGames()
	IncTournamentsCompleted()
	ObservePairingDuration(duration float64)
	SetActiveTimers(count float64)
	SetStartupTime(duration float64)
}
