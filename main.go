package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mavh/rallyrank/internal/config"
	"github.com/mavh/rallyrank/internal/database"
	server "github.com/mavh/rallyrank/internal/http"
	"github.com/mavh/rallyrank/internal/lifecycle"
	"github.com/mavh/rallyrank/internal/match"
	"github.com/mavh/rallyrank/internal/matchmaking"
	"github.com/mavh/rallyrank/internal/metrics"
	"github.com/mavh/rallyrank/internal/pool"
	"github.com/mavh/rallyrank/internal/pubsub"
	"github.com/mavh/rallyrank/internal/tournament"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()

	db, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		db.Close()
	}()

	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	events := pubsub.New(cfg.ProjectID)
	matchStore := match.NewStore(db)
	tournamentStore := tournament.NewStore(db)

	registry := pool.NewRegistry()
	poolCfg := matchmaking.DefaultConfig()
	poolCfg.AckTimeout = cfg.Matchmaking.AckTimeout
	poolCfg.MaxWait = cfg.Matchmaking.MaxWait
	poolCfg.PairingInterval = cfg.Matchmaking.PairingInterval
	poolCfg.CleanupInterval = cfg.Matchmaking.CleanupInterval

	pools := make(map[match.GameMode]*matchmaking.Service)
	for _, mode := range []match.GameMode{match.ModeClassic, match.ModeArcade} {
		pools[mode] = matchmaking.New(mode, poolCfg, registry, matchStore, events, metricsSvc, log.Default())
	}

	tournaments := tournament.New(tournamentStore, matchStore, events, metricsSvc, cfg.Tournament.DefaultMatchDeadlineMin, log.Default())
	returners := make(map[match.GameMode]lifecycle.PoolReturner, len(pools))
	for mode, svc := range pools {
		returners[mode] = svc
	}
	manager := lifecycle.NewManager(tournaments, matchStore, returners, events, metricsSvc, log.Default())
	tournaments.SetScheduler(manager)
	for _, svc := range pools {
		svc.SetScheduler(manager)
	}

	// Recover pending timers from persisted deadlines.
	if err := manager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to recover lifecycle timers: %s", err)
	}

	driver, err := matchmaking.NewDriver(pools[match.ModeClassic], pools[match.ModeArcade])
	if err != nil {
		log.Fatalf("Failed to create pairing driver: %s", err)
	}
	driver.Start()

	s := server.NewServer(
		pools,
		matchStore,
		tournaments,
		manager,
		metricsSvc,
		metricsHandler,
		cfg,
	)

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		// Create a context with a timeout for the shutdown.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt to gracefully shut down the server.
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	// Stop background work before exiting.
	if err := driver.Stop(); err != nil {
		log.Error("Failed to stop pairing driver", "error", err)
	}
	manager.Shutdown()

	log.Info("Server process shutting down")
}
