package analysis

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Schema creates the research_runs and research_analyses tables
const Schema = `
CREATE TABLE IF NOT EXISTS research_runs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    error TEXT,
    symbol_count INTEGER NOT NULL DEFAULT 0,
    candidate_count INTEGER NOT NULL DEFAULT 0,
    exclusion_count INTEGER NOT NULL DEFAULT 0,
    trades_opened INTEGER NOT NULL DEFAULT 0,
    trades_closed INTEGER NOT NULL DEFAULT 0,
    weights_updated INTEGER NOT NULL DEFAULT 0,
    started_at TEXT NOT NULL,
    finished_at TEXT
);

CREATE TABLE IF NOT EXISTS research_analyses (
    id TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// Repository handles analysis and run database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new analysis repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "analysis").Logger(),
	}
}

// SaveAnalysis persists a complete analysis record as JSON
func (r *Repository) SaveAnalysis(a *Analysis) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	_, err = r.db.Exec(
		"INSERT INTO research_analyses (id, payload, created_at) VALUES (?, ?, ?)",
		a.ID,
		string(payload),
		a.GeneratedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis %s: %w", a.ID, err)
	}

	return nil
}

// GetLatestAnalysis returns the newest analysis, or nil when none exists
func (r *Repository) GetLatestAnalysis() (*Analysis, error) {
	var payload string
	err := r.db.QueryRow(
		"SELECT payload FROM research_analyses ORDER BY created_at DESC, id DESC LIMIT 1",
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest analysis: %w", err)
	}

	var a Analysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}
	return &a, nil
}

// StartRun records the beginning of a cycle execution
func (r *Repository) StartRun(id string, startedAt time.Time) error {
	_, err := r.db.Exec(
		"INSERT INTO research_runs (id, status, started_at) VALUES (?, ?, ?)",
		id,
		RunStatusRunning,
		startedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to start run %s: %w", id, err)
	}
	return nil
}

// FinishRun records the outcome of a cycle execution
func (r *Repository) FinishRun(run Run) error {
	var finishedAt interface{}
	if run.FinishedAt != nil {
		finishedAt = run.FinishedAt.Format(time.RFC3339)
	}

	_, err := r.db.Exec(
		`UPDATE research_runs
		 SET status = ?, error = ?, symbol_count = ?, candidate_count = ?,
		     exclusion_count = ?, trades_opened = ?, trades_closed = ?,
		     weights_updated = ?, finished_at = ?
		 WHERE id = ?`,
		run.Status,
		run.Error,
		run.SymbolCount,
		run.CandidateCount,
		run.ExclusionCount,
		run.TradesOpened,
		run.TradesClosed,
		boolToInt(run.WeightsUpdated),
		finishedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	return nil
}

// GetRecentRuns returns run records, newest first, up to limit
func (r *Repository) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := r.db.Query(
		`SELECT id, status, error, symbol_count, candidate_count, exclusion_count,
		        trades_opened, trades_closed, weights_updated, started_at, finished_at
		 FROM research_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var errMsg sql.NullString
		var weightsUpdated int
		var startedAt string
		var finishedAt sql.NullString

		err := rows.Scan(
			&run.ID, &run.Status, &errMsg, &run.SymbolCount, &run.CandidateCount,
			&run.ExclusionCount, &run.TradesOpened, &run.TradesClosed,
			&weightsUpdated, &startedAt, &finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.Error = errMsg.String
		run.WeightsUpdated = weightsUpdated != 0
		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if finishedAt.Valid {
			parsed, _ := time.Parse(time.RFC3339, finishedAt.String)
			run.FinishedAt = &parsed
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
