package portfolio

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// PositionsSchema creates the positions table
const PositionsSchema = `
CREATE TABLE IF NOT EXISTS positions (
    symbol TEXT PRIMARY KEY,
    quantity REAL NOT NULL,
    market_value REAL NOT NULL,
    cost_basis REAL NOT NULL,
    last_updated TEXT NOT NULL
);
`

// PositionRepository handles position database operations
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

// ReplaceAll replaces the stored positions with a fresh broker snapshot
func (r *PositionRepository) ReplaceAll(positions []Position) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM positions"); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}

	now := time.Now().Format(time.RFC3339)
	for _, p := range positions {
		_, err := tx.Exec(
			`INSERT INTO positions (symbol, quantity, market_value, cost_basis, last_updated)
			 VALUES (?, ?, ?, ?, ?)`,
			strings.ToUpper(strings.TrimSpace(p.Symbol)),
			p.Quantity,
			p.MarketValue,
			p.CostBasis,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert position %s: %w", p.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit positions: %w", err)
	}

	r.log.Debug().Int("count", len(positions)).Msg("Positions replaced")
	return nil
}

// GetAll retrieves all stored positions
func (r *PositionRepository) GetAll() ([]Position, error) {
	rows, err := r.db.Query(
		"SELECT symbol, quantity, market_value, cost_basis, last_updated FROM positions ORDER BY symbol",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var p Position
		var lastUpdated string
		if err := rows.Scan(&p.Symbol, &p.Quantity, &p.MarketValue, &p.CostBasis, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		p.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}
