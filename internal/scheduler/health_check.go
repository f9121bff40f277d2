package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/research-trader/internal/database"
	"github.com/aristath/research-trader/internal/locking"
)

// HealthCheckJob verifies database integrity and reports storage growth.
// Runs hourly.
type HealthCheckJob struct {
	db          *database.DB
	lockManager *locking.Manager
	log         zerolog.Logger
}

// NewHealthCheckJob creates a new health check job
func NewHealthCheckJob(db *database.DB, lockManager *locking.Manager, log zerolog.Logger) *HealthCheckJob {
	return &HealthCheckJob{
		db:          db,
		lockManager: lockManager,
		log:         log.With().Str("job", "health_check").Logger(),
	}
}

// Name returns the job name
func (j *HealthCheckJob) Name() string {
	return "health_check"
}

// Run executes the health check
func (j *HealthCheckJob) Run() error {
	if err := j.lockManager.Acquire("health_check"); err != nil {
		j.log.Warn().Msg("Health check already running, skipping")
		return nil
	}
	defer j.lockManager.Release("health_check")

	startTime := time.Now()

	var result string
	if err := j.db.Conn().QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database integrity check returned %q", result)
	}

	counts := make(map[string]int)
	for _, table := range []string{"research_runs", "research_analyses", "paper_trades", "research_weights", "research_errors"} {
		var count int
		if err := j.db.Conn().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			j.log.Warn().Err(err).Str("table", table).Msg("Failed to count rows")
			continue
		}
		counts[table] = count
	}

	j.log.Info().
		Dur("duration", time.Since(startTime)).
		Int("runs", counts["research_runs"]).
		Int("analyses", counts["research_analyses"]).
		Int("paper_trades", counts["paper_trades"]).
		Msg("Health check passed")

	return nil
}
