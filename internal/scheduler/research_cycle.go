package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/research-trader/internal/modules/analysis"
)

// ResearchCycleJob runs the research cycle during market hours
type ResearchCycleJob struct {
	service     *analysis.Service
	marketHours *MarketHoursService
	devMode     bool
	log         zerolog.Logger
}

// NewResearchCycleJob creates a new research cycle job. In dev mode the
// market hours gate is bypassed.
func NewResearchCycleJob(service *analysis.Service, marketHours *MarketHoursService, devMode bool, log zerolog.Logger) *ResearchCycleJob {
	return &ResearchCycleJob{
		service:     service,
		marketHours: marketHours,
		devMode:     devMode,
		log:         log.With().Str("job", "research_cycle").Logger(),
	}
}

// Name returns the job name
func (j *ResearchCycleJob) Name() string {
	return "research_cycle"
}

// Run executes one research cycle if the market is open
func (j *ResearchCycleJob) Run() error {
	if !j.devMode && !j.marketHours.IsMarketOpen() {
		j.log.Debug().Msg("Market closed, skipping research cycle")
		return nil
	}

	_, err := j.service.RunCycle()
	return err
}
