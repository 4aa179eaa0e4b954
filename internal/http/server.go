package http

import (
	"net/http"

	"github.com/mavh/rallyrank/internal/config"
	"github.com/mavh/rallyrank/internal/lifecycle"
	"github.com/mavh/rallyrank/internal/match"
	"github.com/mavh/rallyrank/internal/matchmaking"
	"github.com/mavh/rallyrank/internal/metrics"
	"github.com/mavh/rallyrank/internal/tournament"
)

func NewServer(pools map[match.GameMode]*matchmaking.Service, matches match.Store, tournaments *tournament.Service, lifecycleMgr *lifecycle.Manager, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config) *Server {
	server := &Server{
		Pools:          pools,
		Matches:        matches,
		Tournaments:    tournaments,
		Lifecycle:      lifecycleMgr,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// This makes it easy to add more middlewares in the future, like an authentication middleware.
	// e.g. Chain(s.MyHandler(), paramsMiddleware, authMiddleware)
	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("GET /health", Chain(s.HealthCheckHandler(), paramsMiddleware))

	s.Router.Handle("POST /pools/{mode}/join", Chain(s.JoinPoolHandler(), paramsMiddleware))
	s.Router.Handle("POST /pools/{mode}/leave", Chain(s.LeavePoolHandler(), paramsMiddleware))
	s.Router.Handle("POST /pools/{mode}/heartbeat", Chain(s.HeartbeatHandler(), paramsMiddleware))
	s.Router.Handle("GET /pools/{mode}/status", Chain(s.PoolStatusHandler(), paramsMiddleware))

	s.Router.Handle("GET /matches/{id}", Chain(s.GetMatchHandler(), paramsMiddleware))
	s.Router.Handle("POST /matches/{id}/ack", Chain(s.AcknowledgeMatchHandler(), paramsMiddleware))
	s.Router.Handle("POST /matches/{id}/start", Chain(s.StartMatchHandler(), paramsMiddleware))
	s.Router.Handle("POST /matches/{id}/result", Chain(s.MatchResultHandler(), paramsMiddleware))
	s.Router.Handle("GET /players/{id}/matches", Chain(s.PlayerMatchesHandler(), paramsMiddleware))

	s.Router.Handle("POST /tournaments", Chain(s.CreateTournamentHandler(), paramsMiddleware))
	s.Router.Handle("GET /tournaments/{id}", Chain(s.GetTournamentHandler(), paramsMiddleware))
	s.Router.Handle("POST /tournaments/{id}/cancel", Chain(s.CancelTournamentHandler(), paramsMiddleware))
	s.Router.Handle("POST /tournaments/{id}/register", Chain(s.RegisterHandler(), paramsMiddleware))
	s.Router.Handle("POST /tournaments/{id}/unregister", Chain(s.UnregisterHandler(), paramsMiddleware))
	s.Router.Handle("GET /tournaments/{id}/rankings", Chain(s.RankingsHandler(), paramsMiddleware))
	s.Router.Handle("GET /tournaments/{id}/matches", Chain(s.TournamentMatchesHandler(), paramsMiddleware))
	s.Router.Handle("GET /tournaments/{id}/participants", Chain(s.ParticipantsHandler(), paramsMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
