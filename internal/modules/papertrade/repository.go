package papertrade

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/research-trader/internal/modules/scoring"
)

// Schema creates the paper_trades table
const Schema = `
CREATE TABLE IF NOT EXISTS paper_trades (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    entry_at TEXT NOT NULL,
    entry_price REAL NOT NULL,
    horizon_days INTEGER NOT NULL,
    entry_score REAL NOT NULL,
    entry_confidence REAL NOT NULL,
    entry_factors TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'open',
    exit_at TEXT,
    exit_price REAL,
    return_pct REAL,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_paper_trades_status ON paper_trades(status);
CREATE INDEX IF NOT EXISTS idx_paper_trades_symbol ON paper_trades(symbol);
`

// Repository handles paper trade database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new paper trade repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "papertrade").Logger(),
	}
}

// Open inserts a new open trade and returns it with its generated ID
func (r *Repository) Open(trade PaperTrade) (*PaperTrade, error) {
	if trade.ID == "" {
		trade.ID = uuid.New().String()
	}
	trade.Status = StatusOpen
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = time.Now()
	}

	factorsJSON, err := json.Marshal(trade.EntryFactors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry factors: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO paper_trades (id, symbol, entry_at, entry_price, horizon_days,
		                           entry_score, entry_confidence, entry_factors, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID,
		trade.Symbol,
		trade.EntryAt.Format(time.RFC3339),
		trade.EntryPrice,
		trade.HorizonDays,
		trade.EntryScore,
		trade.EntryConfidence,
		string(factorsJSON),
		trade.Status,
		trade.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert paper trade for %s: %w", trade.Symbol, err)
	}

	r.log.Info().
		Str("symbol", trade.Symbol).
		Float64("entry_price", trade.EntryPrice).
		Int("horizon_days", trade.HorizonDays).
		Msg("Paper trade opened")

	return &trade, nil
}

// GetOpen retrieves all open trades ordered by entry time
func (r *Repository) GetOpen() ([]PaperTrade, error) {
	return r.query("SELECT " + columns + " FROM paper_trades WHERE status = 'open' ORDER BY entry_at, symbol")
}

// GetClosed retrieves closed trades, most recent exits first, up to limit
func (r *Repository) GetClosed(limit int) ([]PaperTrade, error) {
	return r.query("SELECT "+columns+" FROM paper_trades WHERE status = 'closed' ORDER BY exit_at DESC LIMIT ?", limit)
}

// HasOpenForSymbol reports whether the symbol already has an open trade
func (r *Repository) HasOpenForSymbol(symbol string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM paper_trades WHERE symbol = ? AND status = 'open'", symbol,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count open trades for %s: %w", symbol, err)
	}
	return count > 0, nil
}

// Close marks an open trade as closed with its exit snapshot. Closing an
// already closed trade is an error; each trade settles exactly once.
func (r *Repository) Close(id string, exitAt time.Time, exitPrice, returnPct float64) error {
	res, err := r.db.Exec(
		`UPDATE paper_trades
		 SET status = 'closed', exit_at = ?, exit_price = ?, return_pct = ?
		 WHERE id = ? AND status = 'open'`,
		exitAt.Format(time.RFC3339),
		exitPrice,
		returnPct,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to close paper trade %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check close result for %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("paper trade %s is not open", id)
	}

	return nil
}

const columns = `id, symbol, entry_at, entry_price, horizon_days,
	entry_score, entry_confidence, entry_factors, status, exit_at, exit_price, return_pct, created_at`

func (r *Repository) query(q string, args ...interface{}) ([]PaperTrade, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query paper trades: %w", err)
	}
	defer rows.Close()

	var trades []PaperTrade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating paper trades: %w", err)
	}

	return trades, nil
}

func scanTrade(rows *sql.Rows) (*PaperTrade, error) {
	var t PaperTrade
	var entryAt, createdAt, factorsJSON string
	var exitAt sql.NullString
	var exitPrice, returnPct sql.NullFloat64

	err := rows.Scan(
		&t.ID, &t.Symbol, &entryAt, &t.EntryPrice, &t.HorizonDays,
		&t.EntryScore, &t.EntryConfidence, &factorsJSON, &t.Status,
		&exitAt, &exitPrice, &returnPct, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan paper trade: %w", err)
	}

	t.EntryAt, _ = time.Parse(time.RFC3339, entryAt)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	var factors scoring.FactorScores
	if err := json.Unmarshal([]byte(factorsJSON), &factors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry factors for %s: %w", t.ID, err)
	}
	t.EntryFactors = factors

	if exitAt.Valid {
		parsed, _ := time.Parse(time.RFC3339, exitAt.String)
		t.ExitAt = &parsed
	}
	if exitPrice.Valid {
		v := exitPrice.Float64
		t.ExitPrice = &v
	}
	if returnPct.Valid {
		v := returnPct.Float64
		t.ReturnPct = &v
	}

	return &t, nil
}
