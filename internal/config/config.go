// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for all databases and research files
	DatabasePath string // Path to the sqlite database file
	Port         int
	DevMode      bool
	LogLevel     string

	BrokerServiceURL string // Brokerage microservice (positions)
	QuoteServiceURL  string // Quote API base URL ("" = default endpoint)

	Research ResearchConfig
}

// ResearchConfig holds tunables for the research analysis engine.
// Learning rate and the minimum-closure threshold are deliberately
// configuration rather than constants; neither has a validated derivation
// and both should be treated as calibration candidates.
type ResearchConfig struct {
	CycleSchedule string // cron expression for the research cycle job

	// Weight feedback
	LearningRate float64 // step size for the weight feedback update
	MinClosures  int     // minimum closed paper trades before feedback runs

	// Paper trading
	TopN          int     // number of top-ranked candidates eligible for paper trades
	HorizonDays   int     // default paper trade horizon
	OrderNotional float64 // hypothetical order size for concentration math

	// Constraints
	MaxSectorWeight    float64 // cap on post-inclusion sector concentration
	MaxIndustryWeight  float64 // cap on post-inclusion industry concentration
	MaxCorrelation     float64 // ceiling on correlation with existing portfolio
	MinMarketCap       float64 // floor on market capitalization
	MinDollarVolume    float64 // floor on average daily dollar volume
	MaxDrawdown        float64 // ceiling on trailing max drawdown
	AllowedSymbols     []string
	DeniedSymbols      []string
	DeniedSectors      []string
	DeniedIndustries   []string
	LossDiagnosticsPct float64 // loss threshold for weak-factor diagnostics
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRADER_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		DatabasePath:     filepath.Join(absDataDir, "research.db"),
		Port:             getEnvAsInt("GO_PORT", 8001),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		BrokerServiceURL: getEnv("BROKER_SERVICE_URL", "http://localhost:9000"),
		QuoteServiceURL:  getEnv("QUOTE_SERVICE_URL", ""),
		Research: ResearchConfig{
			CycleSchedule:      getEnv("RESEARCH_CYCLE_SCHEDULE", "0 */30 * * * *"),
			LearningRate:       getEnvAsFloat("RESEARCH_LEARNING_RATE", 0.05),
			MinClosures:        getEnvAsInt("RESEARCH_MIN_CLOSURES", 3),
			TopN:               getEnvAsInt("RESEARCH_TOP_N", 5),
			HorizonDays:        getEnvAsInt("RESEARCH_HORIZON_DAYS", 7),
			OrderNotional:      getEnvAsFloat("RESEARCH_ORDER_NOTIONAL", 1000),
			MaxSectorWeight:    getEnvAsFloat("RESEARCH_MAX_SECTOR_WEIGHT", 0.30),
			MaxIndustryWeight:  getEnvAsFloat("RESEARCH_MAX_INDUSTRY_WEIGHT", 0.20),
			MaxCorrelation:     getEnvAsFloat("RESEARCH_MAX_CORRELATION", 0.85),
			MinMarketCap:       getEnvAsFloat("RESEARCH_MIN_MARKET_CAP", 250_000_000),
			MinDollarVolume:    getEnvAsFloat("RESEARCH_MIN_DOLLAR_VOLUME", 1_000_000),
			MaxDrawdown:        getEnvAsFloat("RESEARCH_MAX_DRAWDOWN", 0.60),
			AllowedSymbols:     getEnvAsList("RESEARCH_ALLOWED_SYMBOLS"),
			DeniedSymbols:      getEnvAsList("RESEARCH_DENIED_SYMBOLS"),
			DeniedSectors:      getEnvAsList("RESEARCH_DENIED_SECTORS"),
			DeniedIndustries:   getEnvAsList("RESEARCH_DENIED_INDUSTRIES"),
			LossDiagnosticsPct: getEnvAsFloat("RESEARCH_LOSS_DIAGNOSTICS_PCT", -0.05),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for invalid values
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Research.LearningRate <= 0 || c.Research.LearningRate >= 1 {
		return fmt.Errorf("learning rate must be in (0, 1), got %f", c.Research.LearningRate)
	}
	if c.Research.MinClosures < 1 {
		return fmt.Errorf("min closures must be positive, got %d", c.Research.MinClosures)
	}
	if c.Research.TopN < 1 {
		return fmt.Errorf("top N must be positive, got %d", c.Research.TopN)
	}
	if c.Research.HorizonDays < 1 {
		return fmt.Errorf("horizon days must be positive, got %d", c.Research.HorizonDays)
	}
	if c.Research.MaxSectorWeight <= 0 || c.Research.MaxSectorWeight > 1 {
		return fmt.Errorf("sector weight cap must be in (0, 1], got %f", c.Research.MaxSectorWeight)
	}
	if c.Research.MaxIndustryWeight <= 0 || c.Research.MaxIndustryWeight > 1 {
		return fmt.Errorf("industry weight cap must be in (0, 1], got %f", c.Research.MaxIndustryWeight)
	}
	return nil
}

// getEnv retrieves an environment variable value with a fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer with a fallback
func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvAsFloat retrieves an environment variable as a float with a fallback
func getEnvAsFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvAsBool retrieves an environment variable as a boolean with a fallback
func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvAsList retrieves a comma-separated environment variable as a
// normalized (uppercased, trimmed) list. An unset variable yields nil.
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var items []string
	for _, part := range strings.Split(value, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}
