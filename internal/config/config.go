package config

import (
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}

	getEnvOr := func(key, fallback string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		return fallback
	}

	getDuration := func(key string, fallback time.Duration) time.Duration {
		value, ok := os.LookupEnv(key)
		if !ok {
			return fallback
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			log.Fatalf("Error: %s is not a valid duration: %v", key, err)
		}
		return d
	}

	getInt := func(key string, fallback int) int {
		value, ok := os.LookupEnv(key)
		if !ok {
			return fallback
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			log.Fatalf("Error: %s is not a valid integer: %v", key, err)
		}
		return n
	}

	cfg := Config{
		DBName: getEnv("DB_NAME"),
		Port:   getEnv("PORT"),
		Turso: TursoConfig{
			PrimaryURL: getEnvOr("TURSO_PRIMARY_URL", ""),
			AuthToken:  getEnvOr("TURSO_AUTH_TOKEN", ""),
		},
		ProjectID: getEnvOr("GCP_PROJECT", ""),
		Matchmaking: MatchmakingConfig{
			AckTimeout:      getDuration("MATCH_ACK_TIMEOUT", 2*time.Minute),
			MaxWait:         getDuration("POOL_MAX_WAIT", 15*time.Minute),
			PairingInterval: getDuration("PAIRING_INTERVAL", 5*time.Second),
			CleanupInterval: getDuration("POOL_CLEANUP_INTERVAL", time.Minute),
		},
		Tournament: TournamentConfig{
			DefaultMatchDeadlineMin: getInt("TOURNAMENT_MATCH_DEADLINE_MIN", 60),
		},
	}
	return cfg
}
