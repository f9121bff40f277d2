package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/research-trader/internal/clients/tradernet"
	"github.com/aristath/research-trader/internal/clients/yahoo"
	"github.com/aristath/research-trader/internal/config"
	"github.com/aristath/research-trader/internal/database"
	"github.com/aristath/research-trader/internal/events"
	"github.com/aristath/research-trader/internal/locking"
	"github.com/aristath/research-trader/internal/modules/analysis"
	"github.com/aristath/research-trader/internal/modules/constraints"
	"github.com/aristath/research-trader/internal/modules/feedback"
	"github.com/aristath/research-trader/internal/modules/papertrade"
	"github.com/aristath/research-trader/internal/modules/portfolio"
	"github.com/aristath/research-trader/internal/modules/research"
	"github.com/aristath/research-trader/internal/modules/scoring"
	"github.com/aristath/research-trader/internal/scheduler"
	"github.com/aristath/research-trader/internal/server"
	"github.com/aristath/research-trader/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting research trader")

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	err = db.Migrate(
		portfolio.PositionsSchema,
		papertrade.Schema,
		feedback.WeightsSchema,
		feedback.ErrorsSchema,
		analysis.Schema,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Repositories
	positionRepo := portfolio.NewPositionRepository(db.Conn(), log)
	tradeRepo := papertrade.NewRepository(db.Conn(), log)
	weightRepo := feedback.NewWeightRepository(db.Conn(), log)
	errorRepo := feedback.NewErrorRepository(db.Conn(), log)
	analysisRepo := analysis.NewRepository(db.Conn(), log)

	// Shared infrastructure
	lockManager := locking.NewManager()
	eventManager := events.NewManager(log)

	// Clients
	broker := tradernet.NewClient(cfg.BrokerServiceURL, log)
	quotes := yahoo.NewClient(cfg.QuoteServiceURL, log)

	// Research cycle service
	rc := cfg.Research
	service := analysis.NewService(analysis.ServiceDeps{
		Loader: research.NewLoader(cfg.DataDir, log),
		Ranker: scoring.NewRanker(log),
		Filter: constraints.NewFilter(constraints.Config{
			AllowedSymbols:    rc.AllowedSymbols,
			DeniedSymbols:     rc.DeniedSymbols,
			DeniedSectors:     rc.DeniedSectors,
			DeniedIndustries:  rc.DeniedIndustries,
			MinMarketCap:      rc.MinMarketCap,
			MinDollarVolume:   rc.MinDollarVolume,
			MaxDrawdown:       rc.MaxDrawdown,
			MaxCorrelation:    rc.MaxCorrelation,
			MaxSectorWeight:   rc.MaxSectorWeight,
			MaxIndustryWeight: rc.MaxIndustryWeight,
			OrderNotional:     rc.OrderNotional,
		}, log),
		Simulator: papertrade.NewSimulator(tradeRepo, rc.TopN, rc.HorizonDays, log),
		Trades:    tradeRepo,
		Updater:   feedback.NewUpdater(weightRepo, errorRepo, rc.LearningRate, rc.MinClosures, rc.LossDiagnosticsPct, log),
		Weights:   weightRepo,
		Positions: positionRepo,
		Repo:      analysisRepo,
		Broker:    broker,
		Quotes:    quotes,
		Locks:     lockManager,
		Events:    eventManager,
		Config:    rc,
	}, log)

	// Scheduler and jobs
	marketHours := scheduler.NewMarketHoursService(log)
	sched := scheduler.New(log)

	cycleJob := scheduler.NewResearchCycleJob(service, marketHours, cfg.DevMode, log)
	if err := sched.AddJob(rc.CycleSchedule, cycleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register research cycle job")
	}
	healthJob := scheduler.NewHealthCheckJob(db, lockManager, log)
	if err := sched.AddJob("0 0 * * * *", healthJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register health check job")
	}

	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
		Log:         log,
		DB:          db,
		Analyses:    analysisRepo,
		Service:     service,
		Trades:      tradeRepo,
		Weights:     weightRepo,
		Errors:      errorRepo,
		Scheduler:   sched,
		MarketHours: marketHours,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
