// Package feedback closes the loop between paper trade outcomes and the
// base factor weights: settled trades nudge the weights toward the factors
// that separated winners from losers, and losing trades emit diagnostic
// research errors naming their weakest factors.
package feedback

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/research-trader/internal/modules/regime"
)

// WeightsSchema creates the research_weights table. Rows are append only;
// the newest row is the effective base weight vector.
const WeightsSchema = `
CREATE TABLE IF NOT EXISTS research_weights (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    weights TEXT NOT NULL,
    closures_used INTEGER NOT NULL DEFAULT 0,
    note TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// WeightRecord is one persisted weight vector revision
type WeightRecord struct {
	ID           int64          `json:"id"`
	Weights      regime.Weights `json:"weights"`
	ClosuresUsed int            `json:"closures_used"`
	Note         string         `json:"note,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// WeightRepository handles weight history database operations
type WeightRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewWeightRepository creates a new weight repository
func NewWeightRepository(db *sql.DB, log zerolog.Logger) *WeightRepository {
	return &WeightRepository{
		db:  db,
		log: log.With().Str("repo", "weights").Logger(),
	}
}

// Save appends a new weight revision
func (r *WeightRepository) Save(weights regime.Weights, closuresUsed int, note string) error {
	payload, err := json.Marshal(weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO research_weights (weights, closures_used, note, created_at)
		 VALUES (?, ?, ?, ?)`,
		string(payload),
		closuresUsed,
		note,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save weights: %w", err)
	}

	r.log.Info().Int("closures_used", closuresUsed).Msg("Weight revision saved")
	return nil
}

// GetLatest returns the newest weight revision, or nil when none exists
func (r *WeightRepository) GetLatest() (*WeightRecord, error) {
	row := r.db.QueryRow(
		"SELECT id, weights, closures_used, note, created_at FROM research_weights ORDER BY id DESC LIMIT 1",
	)

	record, err := scanWeightRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

// GetHistory returns weight revisions, newest first, up to limit
func (r *WeightRepository) GetHistory(limit int) ([]WeightRecord, error) {
	rows, err := r.db.Query(
		"SELECT id, weights, closures_used, note, created_at FROM research_weights ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get weight history: %w", err)
	}
	defer rows.Close()

	var records []WeightRecord
	for rows.Next() {
		record, err := scanWeightRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating weight history: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWeightRecord(row rowScanner) (*WeightRecord, error) {
	var record WeightRecord
	var payload, createdAt string
	var note sql.NullString

	if err := row.Scan(&record.ID, &payload, &record.ClosuresUsed, &note, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan weight record: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &record.Weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights %d: %w", record.ID, err)
	}
	record.Note = note.String
	record.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &record, nil
}
