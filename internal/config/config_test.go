package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRADER_DATA_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != 8001 {
		t.Errorf("Port = %d, want 8001", cfg.Port)
	}
	if cfg.Research.LearningRate != 0.05 {
		t.Errorf("LearningRate = %v, want 0.05", cfg.Research.LearningRate)
	}
	if cfg.Research.MinClosures != 3 {
		t.Errorf("MinClosures = %d, want 3", cfg.Research.MinClosures)
	}
	if cfg.Research.TopN != 5 {
		t.Errorf("TopN = %d, want 5", cfg.Research.TopN)
	}
	if cfg.Research.HorizonDays != 7 {
		t.Errorf("HorizonDays = %d, want 7", cfg.Research.HorizonDays)
	}
	if cfg.Research.LossDiagnosticsPct != -0.05 {
		t.Errorf("LossDiagnosticsPct = %v, want -0.05", cfg.Research.LossDiagnosticsPct)
	}
	if cfg.DatabasePath == "" {
		t.Error("DatabasePath should be derived from the data dir")
	}
}

func TestLoadOverridesAndLists(t *testing.T) {
	t.Setenv("TRADER_DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "9100")
	t.Setenv("RESEARCH_LEARNING_RATE", "0.10")
	t.Setenv("RESEARCH_DENIED_SECTORS", " tobacco, Gambling ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Port)
	}
	if cfg.Research.LearningRate != 0.10 {
		t.Errorf("LearningRate = %v, want 0.10", cfg.Research.LearningRate)
	}

	sectors := cfg.Research.DeniedSectors
	if len(sectors) != 2 || sectors[0] != "TOBACCO" || sectors[1] != "GAMBLING" {
		t.Errorf("DeniedSectors = %v, want [TOBACCO GAMBLING]", sectors)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Port = 0 }},
		{"learning rate too high", func(c *Config) { c.Research.LearningRate = 1.0 }},
		{"zero closures", func(c *Config) { c.Research.MinClosures = 0 }},
		{"zero top n", func(c *Config) { c.Research.TopN = 0 }},
		{"zero horizon", func(c *Config) { c.Research.HorizonDays = 0 }},
		{"sector cap above one", func(c *Config) { c.Research.MaxSectorWeight = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Port: 8001,
				Research: ResearchConfig{
					LearningRate:      0.05,
					MinClosures:       3,
					TopN:              5,
					HorizonDays:       7,
					MaxSectorWeight:   0.3,
					MaxIndustryWeight: 0.2,
				},
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
