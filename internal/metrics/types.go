package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and
// labeling.
type Service struct {
	PairsFormed          prometheus.Counter
	PairRollbacks        prometheus.Counter
	MatchesCreated       prometheus.Counter
	AckForfeits          prometheus.Counter
	Timeouts             prometheus.Counter
	GoldenGames          prometheus.Counter
	TournamentsCompleted prometheus.Counter
	PairingDuration      prometheus.Histogram
	ActiveTimers         prometheus.Gauge
	StartupTimeSeconds   prometheus.Gauge
}
