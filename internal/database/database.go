package database

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// InitDB opens the database and ensures the schema is up to date.
// For local-only databases dbPath is the filename (or ":memory:" in tests);
// with a primaryURL the remote Turso database is used instead.
func InitDB(dbPath string, primaryURL string, authToken string) (*sql.DB, error) {
	dsn := "file:" + dbPath
	if primaryURL != "" {
		log.Info("Initializing remote database", "url", primaryURL)
		dsn = primaryURL + "?authToken=" + authToken
	} else {
		log.Info("Initializing local SQLite database", "path", dbPath)
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

func createTables(db *sql.DB) error {
	// Foreign key support is not enabled by default in SQLite.
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		log.Error("Error enabling foreign keys", "error", err)
		return err
	}

	createTournamentsTable := `
	CREATE TABLE IF NOT EXISTS tournaments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		min_players INTEGER NOT NULL,
		max_players INTEGER NOT NULL,
		registration_end INTEGER NOT NULL,
		start_time INTEGER,
		match_deadline_min INTEGER NOT NULL,
		created_by TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`

	createParticipantsTable := `
	CREATE TABLE IF NOT EXISTS tournament_participants (
		tournament_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		score_diff INTEGER NOT NULL DEFAULT 0,
		final_rank INTEGER,
		registered_at INTEGER NOT NULL,
		PRIMARY KEY (tournament_id, user_id),
		FOREIGN KEY (tournament_id) REFERENCES tournaments(id) ON DELETE CASCADE
	);`

	createMatchesTable := `
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		player1_id TEXT NOT NULL,
		player2_id TEXT NOT NULL,
		status TEXT NOT NULL,
		game_mode TEXT NOT NULL,
		tournament_id TEXT,
		deadline INTEGER,
		player1_acked INTEGER NOT NULL DEFAULT 0,
		player2_acked INTEGER NOT NULL DEFAULT 0,
		winner_id TEXT,
		player1_score INTEGER,
		player2_score INTEGER,
		is_golden_game INTEGER NOT NULL DEFAULT 0,
		result_source TEXT NOT NULL DEFAULT '',
		scheduled_at INTEGER NOT NULL,
		started_at INTEGER,
		completed_at INTEGER,
		FOREIGN KEY (tournament_id) REFERENCES tournaments(id) ON DELETE CASCADE
	);`

	createDeadlineIndex := `
	CREATE INDEX IF NOT EXISTS idx_matches_deadline ON matches(status, deadline);`

	for _, stmt := range []string{
		createTournamentsTable,
		createParticipantsTable,
		createMatchesTable,
		createDeadlineIndex,
	} {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	log.Info("Database initialized successfully")
	return nil
}
