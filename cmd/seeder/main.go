package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mavh/rallyrank/internal/database"
	"github.com/mavh/rallyrank/internal/match"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := map[string]string{
		"DB_NAME":           "rallyrank.db",
		"TURSO_PRIMARY_URL": "",
		"TURSO_AUTH_TOKEN":  "",
	}
	for key := range config {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		}
	}
	return config
}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()

	db, err := database.InitDB(cfg["DB_NAME"], cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"])
	if err != nil {
		log.Fatalf("Failed to open database: %s", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %s", err)
	}
	log.Info("Successfully connected to the database.")

	players := []string{
		"player-1", "player-2", "player-3", "player-4",
		"player-5", "player-6", "player-7", "player-8",
	}

	const batchSize = 100 // Insert 100 matches at a time
	const numMatches = 10000

	log.Info("Preparing to insert dummy matches...", "total", numMatches, "batch_size", batchSize)
	startTime := time.Now()

	tx, err := db.Begin()
	if err != nil {
		log.Fatalf("Failed to begin transaction: %s", err)
	}

	valueStrings := make([]string, 0, batchSize)
	valueArgs := make([]interface{}, 0, batchSize*17) // 17 columns per match

	for i := 0; i < numMatches; i++ {
		p1 := players[rand.Intn(len(players))]
		p2 := players[rand.Intn(len(players))]
		for p2 == p1 {
			p2 = players[rand.Intn(len(players))]
		}

		scheduledAt := time.Now().Add(-time.Duration(rand.Intn(365*24)) * time.Hour)
		startedAt := scheduledAt.Add(5 * time.Minute)
		completedAt := startedAt.Add(time.Duration(10+rand.Intn(30)) * time.Minute)

		loserScore := rand.Intn(7)
		winnerID := p1
		p1Score, p2Score := 7, loserScore
		if rand.Intn(2) == 1 {
			winnerID = p2
			p1Score, p2Score = loserScore, 7
		}

		mode := match.ModeClassic
		if rand.Intn(2) == 1 {
			mode = match.ModeArcade
		}

		valueStrings = append(valueStrings, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		valueArgs = append(valueArgs,
			uuid.NewString(),
			p1,
			p2,
			string(match.StatusCompleted),
			string(mode),
			nil, // tournament_id
			nil, // deadline
			1,   // player1_acked
			1,   // player2_acked
			winnerID,
			p1Score,
			p2Score,
			0, // is_golden_game
			match.SourcePlayed,
			scheduledAt.Unix(),
			startedAt.Unix(),
			completedAt.Unix(),
		)

		if (i+1)%batchSize == 0 || (i+1) == numMatches {
			stmt := fmt.Sprintf(`
				INSERT INTO matches (id, player1_id, player2_id, status, game_mode, tournament_id, deadline,
					player1_acked, player2_acked, winner_id, player1_score, player2_score,
					is_golden_game, result_source, scheduled_at, started_at, completed_at)
				VALUES %s;`, strings.Join(valueStrings, ","))

			_, err := tx.Exec(stmt, valueArgs...)
			if err != nil {
				tx.Rollback()
				log.Fatalf("Failed to execute batch insert: %s", err)
			}

			// Reset for the next batch
			valueStrings = make([]string, 0, batchSize)
			valueArgs = make([]interface{}, 0, batchSize*17)
			log.Info("Inserted batch", "completed", i+1, "total", numMatches)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit transaction: %s", err)
	}

	duration := time.Since(startTime)
	log.Info("Successfully inserted all dummy matches.", "duration", duration)
}
