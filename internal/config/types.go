package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	DBName    string
	Port      string
	Turso     TursoConfig
	ProjectID string

	Matchmaking MatchmakingConfig
	Tournament  TournamentConfig
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

// MatchmakingConfig tunes the pairing pools.
type MatchmakingConfig struct {
	AckTimeout      time.Duration
	MaxWait         time.Duration
	PairingInterval time.Duration
	CleanupInterval time.Duration
}

// TournamentConfig tunes tournament defaults.
type TournamentConfig struct {
	DefaultMatchDeadlineMin int
}
