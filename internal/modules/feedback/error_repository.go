package feedback

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrorsSchema creates the research_errors table
const ErrorsSchema = `
CREATE TABLE IF NOT EXISTS research_errors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL,
    kind TEXT NOT NULL,
    detail TEXT,
    trade_id TEXT,
    return_pct REAL,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_research_errors_symbol ON research_errors(symbol);
`

// ResearchError is one diagnostic record produced from a losing trade
type ResearchError struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	TradeID   string    `json:"trade_id,omitempty"`
	ReturnPct *float64  `json:"return_pct,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorRepository handles research error database operations
type ErrorRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewErrorRepository creates a new research error repository
func NewErrorRepository(db *sql.DB, log zerolog.Logger) *ErrorRepository {
	return &ErrorRepository{
		db:  db,
		log: log.With().Str("repo", "research_errors").Logger(),
	}
}

// Save appends a research error
func (r *ErrorRepository) Save(e ResearchError) error {
	var returnPct interface{}
	if e.ReturnPct != nil {
		returnPct = *e.ReturnPct
	}

	_, err := r.db.Exec(
		`INSERT INTO research_errors (symbol, kind, detail, trade_id, return_pct, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Symbol,
		e.Kind,
		e.Detail,
		e.TradeID,
		returnPct,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save research error for %s: %w", e.Symbol, err)
	}

	return nil
}

// GetRecent returns research errors, newest first, up to limit
func (r *ErrorRepository) GetRecent(limit int) ([]ResearchError, error) {
	rows, err := r.db.Query(
		`SELECT id, symbol, kind, detail, trade_id, return_pct, created_at
		 FROM research_errors ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get research errors: %w", err)
	}
	defer rows.Close()

	var errs []ResearchError
	for rows.Next() {
		var e ResearchError
		var detail, tradeID sql.NullString
		var returnPct sql.NullFloat64
		var createdAt string

		if err := rows.Scan(&e.ID, &e.Symbol, &e.Kind, &detail, &tradeID, &returnPct, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan research error: %w", err)
		}

		e.Detail = detail.String
		e.TradeID = tradeID.String
		if returnPct.Valid {
			v := returnPct.Float64
			e.ReturnPct = &v
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		errs = append(errs, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating research errors: %w", err)
	}

	return errs, nil
}
