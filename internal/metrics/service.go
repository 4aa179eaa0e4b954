package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		PairsFormed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_pairs_formed_total",
			Help: "The total number of player pairs dequeued from a pool.",
		}),
		PairRollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_pair_rollbacks_total",
			Help: "The total number of pairs returned to the pool after a failed match write.",
		}),
		MatchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_matches_created_total",
			Help: "The total number of matches persisted.",
		}),
		AckForfeits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_ack_forfeits_total",
			Help: "The total number of matches forfeited at the acknowledgement deadline.",
		}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_match_timeouts_total",
			Help: "The total number of scheduled matches that timed out unplayed.",
		}),
		GoldenGames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_golden_games_total",
			Help: "The total number of tie-break golden games scheduled.",
		}),
		TournamentsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_tournaments_completed_total",
			Help: "The total number of tournaments finalized with ranks.",
		}),
		PairingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arena_pairing_duration_seconds",
			Help:    "The duration of individual auto-pair attempts.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ActiveTimers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arena_lifecycle_active_timers",
			Help: "The number of outstanding lifecycle timers.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arena_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.PairsFormed,
		s.PairRollbacks,
		s.MatchesCreated,
		s.AckForfeits,
		s.Timeouts,
		s.GoldenGames,
		s.TournamentsCompleted,
		s.PairingDuration,
		s.ActiveTimers,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncPairsFormed() {
	s.PairsFormed.Inc()
}

func (s *Service) IncPairRollbacks() {
	s.PairRollbacks.Inc()
}

func (s *Service) IncMatchesCreated() {
	s.MatchesCreated.Inc()
}

func (s *Service) IncAckForfeits() {
	s.AckForfeits.Inc()
}

func (s *Service) IncTimeouts() {
	s.Timeouts.Inc()
}

func (s *Service) IncGoldenGames() {
	s.GoldenGames.Inc()
}

func (s *Service) IncTournamentsCompleted() {
	s.TournamentsCompleted.Inc()
}

func (s *Service) ObservePairingDuration(duration float64) {
	s.PairingDuration.Observe(duration)
}

func (s *Service) SetActiveTimers(count float64) {
	s.ActiveTimers.Set(count)
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
