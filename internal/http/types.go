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

type Server struct {
	Pools          map[match.GameMode]*matchmaking.Service
	Matches        match.Store
	Tournaments    *tournament.Service
	Lifecycle      *lifecycle.Manager
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *http.ServeMux
}
