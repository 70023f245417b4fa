package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists a log of answered queries to a SQLite database. The log is
// audit/display only; resolution never reads it.
type Store struct {
	db *sql.DB
}

// Entry is one answered query.
type Entry struct {
	ID          int64     `json:"id"`
	Query       string    `json:"query"`
	Language    string    `json:"language"`
	Outcome     string    `json:"outcome"`
	MatchedKeys []string  `json:"matched_keys,omitempty"`
	LatencyMS   int64     `json:"latency_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stats summarizes the query log.
type Stats struct {
	Total          int64 `json:"total"`
	Matched        int64 `json:"matched"`
	Conversational int64 `json:"conversational"`
	Errors         int64 `json:"errors"`
}

// NewStore opens (and if needed creates) the history database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// initSchema creates the queries table if it doesn't exist
func (s *Store) initSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			language TEXT NOT NULL,
			outcome TEXT NOT NULL,
			matched_keys TEXT,
			latency_ms INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`

	_, err := s.db.Exec(query)
	return err
}

// Record appends one entry to the log.
func (s *Store) Record(e Entry) error {
	_, err := s.db.Exec(
		`INSERT INTO queries (query, language, outcome, matched_keys, latency_ms) VALUES (?, ?, ?, ?, ?)`,
		e.Query,
		e.Language,
		e.Outcome,
		strings.Join(e.MatchedKeys, ","),
		e.LatencyMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, query, language, outcome, matched_keys, latency_ms, created_at
		 FROM queries ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var keys string
		if err := rows.Scan(&e.ID, &e.Query, &e.Language, &e.Outcome, &keys, &e.LatencyMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if keys != "" {
			e.MatchedKeys = strings.Split(keys, ",")
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// GetStats returns aggregate counts per outcome.
func (s *Store) GetStats() (Stats, error) {
	var stats Stats

	row := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'services' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'conversation' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'error' THEN 1 ELSE 0 END), 0)
		FROM queries
	`)

	if err := row.Scan(&stats.Total, &stats.Matched, &stats.Conversational, &stats.Errors); err != nil {
		return Stats{}, fmt.Errorf("failed to compute history stats: %w", err)
	}

	return stats, nil
}
