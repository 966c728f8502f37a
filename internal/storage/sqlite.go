// Package storage provides SQLite-based persistence for runs and episodes.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/snakeq/internal/config"
	"github.com/vovakirdan/snakeq/internal/snake"
)

// Store manages the SQLite database connection for run history.
type Store struct {
	db *sql.DB
}

// Run is one session of an action source against the environment.
type Run struct {
	ID         int64
	Source     string
	GridSize   int
	Alpha      float64
	Gamma      float64
	Epsilon    float64
	Training   bool
	Episodes   int
	HighScore  int
	StartedAt  time.Time
	FinishedAt time.Time // Zero while the run is in progress
}

// EpisodeRecord is one finished episode of a run.
type EpisodeRecord struct {
	ID        int64
	RunID     int64
	Source    string // Filled on reads
	Episode   int
	Score     int
	Length    int
	Ticks     int
	Cause     string
	CreatedAt time.Time
}

// NewEpisodeRecord builds a record from an environment result.
func NewEpisodeRecord(runID int64, res snake.EpisodeResult) EpisodeRecord {
	return EpisodeRecord{
		RunID:   runID,
		Episode: res.Episode,
		Score:   res.Score,
		Length:  res.Length,
		Ticks:   res.Ticks,
		Cause:   string(res.Cause),
	}
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			grid_size INTEGER NOT NULL,
			alpha REAL NOT NULL,
			gamma REAL NOT NULL,
			epsilon REAL NOT NULL,
			training INTEGER NOT NULL,
			episodes INTEGER NOT NULL DEFAULT 0,
			high_score INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);

		CREATE TABLE IF NOT EXISTS episodes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			episode INTEGER NOT NULL,
			score INTEGER NOT NULL,
			length INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			cause TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_episodes_run ON episodes(run_id);
		CREATE INDEX IF NOT EXISTS idx_episodes_top ON episodes(score DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StartRun records the beginning of a run and returns its ID.
func (s *Store) StartRun(source string, cfg config.Config) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO runs (source, grid_size, alpha, gamma, epsilon, training)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		source, cfg.Grid.Size, cfg.Learner.Alpha, cfg.Learner.Gamma, cfg.Learner.Epsilon, cfg.Learner.Training,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot start run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(runID int64, episodes, highScore int) error {
	_, err := s.db.Exec(
		`UPDATE runs SET episodes = ?, high_score = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?`,
		episodes, highScore, runID,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot finish run %d: %w", runID, err)
	}
	return nil
}

// SaveEpisode records a finished episode.
// Returns the ID of the inserted record.
func (s *Store) SaveEpisode(rec EpisodeRecord) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO episodes (run_id, episode, score, length, ticks, cause)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Episode, rec.Score, rec.Length, rec.Ticks, rec.Cause,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save episode: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// TopEpisodes retrieves the best N episodes, optionally filtered by source.
// Results are ordered by score descending.
func (s *Store) TopEpisodes(source string, limit int) ([]EpisodeRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT e.id, e.run_id, r.source, e.episode, e.score, e.length, e.ticks, e.cause, e.created_at
		 FROM episodes e JOIN runs r ON r.id = e.run_id
		 WHERE ? = '' OR r.source = ?
		 ORDER BY e.score DESC, e.id ASC
		 LIMIT ?`,
		source, source, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query episodes: %w", err)
	}
	defer rows.Close()

	var entries []EpisodeRecord
	for rows.Next() {
		var e EpisodeRecord
		var createdAt any
		if err := rows.Scan(&e.ID, &e.RunID, &e.Source, &e.Episode, &e.Score, &e.Length, &e.Ticks, &e.Cause, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return entries, nil
}

// HighScore returns the best episode score, optionally filtered by source.
// Returns 0 if no episodes exist.
func (s *Store) HighScore(source string) (int, error) {
	var score sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(e.score) FROM episodes e JOIN runs r ON r.id = e.run_id
		 WHERE ? = '' OR r.source = ?`,
		source, source,
	).Scan(&score)

	if err != nil {
		return 0, fmt.Errorf("storage: cannot query high score: %w", err)
	}

	if !score.Valid {
		return 0, nil
	}

	return int(score.Int64), nil
}

// RecentRuns retrieves the most recent runs.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, source, grid_size, alpha, gamma, epsilon, training, episodes, high_score, started_at, finished_at
		 FROM runs
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt, finishedAt any
		if err := rows.Scan(
			&r.ID,
			&r.Source,
			&r.GridSize,
			&r.Alpha,
			&r.Gamma,
			&r.Epsilon,
			&r.Training,
			&r.Episodes,
			&r.HighScore,
			&startedAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		r.StartedAt = parseTime(startedAt)
		r.FinishedAt = parseTime(finishedAt)
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return runs, nil
}

// RunStats contains aggregated statistics for a run.
type RunStats struct {
	RunID     int64
	Episodes  int
	HighScore int
	AvgScore  float64
	AvgTicks  float64
	Causes    map[string]int // Deaths per cause
}

// RunStats retrieves aggregated statistics for a run.
func (s *Store) RunStats(runID int64) (*RunStats, error) {
	stats := &RunStats{RunID: runID, Causes: make(map[string]int)}

	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(MAX(score), 0), COALESCE(AVG(score), 0), COALESCE(AVG(ticks), 0)
		 FROM episodes WHERE run_id = ?`,
		runID,
	).Scan(&stats.Episodes, &stats.HighScore, &stats.AvgScore, &stats.AvgTicks)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get run stats: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT cause, COUNT(*) FROM episodes WHERE run_id = ? GROUP BY cause`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get death causes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cause string
		var n int
		if err := rows.Scan(&cause, &n); err != nil {
			return nil, fmt.Errorf("storage: cannot scan cause row: %w", err)
		}
		stats.Causes[cause] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return stats, nil
}

// SourceStats contains aggregated statistics for an action source.
type SourceStats struct {
	Source     string
	Runs       int
	Episodes   int
	HighScore  int
	AvgScore   float64
	LastPlayed time.Time
}

// AllSourcesStats retrieves statistics for every source that has episodes.
func (s *Store) AllSourcesStats() (map[string]*SourceStats, error) {
	rows, err := s.db.Query(
		`SELECT r.source, COUNT(DISTINCT r.id), COUNT(*), MAX(e.score), AVG(e.score), MAX(e.created_at)
		 FROM episodes e JOIN runs r ON r.id = e.run_id
		 GROUP BY r.source`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get source stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]*SourceStats)
	for rows.Next() {
		var st SourceStats
		var lastPlayed any
		if err := rows.Scan(&st.Source, &st.Runs, &st.Episodes, &st.HighScore, &st.AvgScore, &lastPlayed); err != nil {
			return nil, fmt.Errorf("storage: cannot scan stats row: %w", err)
		}
		st.LastPlayed = parseTime(lastPlayed)
		stats[st.Source] = &st
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return stats, nil
}

// Clear deletes every run and episode.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM episodes; DELETE FROM runs;"); err != nil {
		return fmt.Errorf("storage: cannot clear history: %w", err)
	}
	return nil
}

// parseTime handles both time.Time and string datetimes from the driver.
func parseTime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
