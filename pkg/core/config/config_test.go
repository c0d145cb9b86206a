package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if got := cfg.Financial.ExpenseRatios.Total(); got < 0.359 || got > 0.361 {
		t.Errorf("expected total expense ratio 0.36, got %f", got)
	}
	if cfg.IRR.MaxIterations != 1000 || cfg.IRR.Precision != 1e-6 || cfg.IRR.InitialGuess != 0.10 {
		t.Errorf("unexpected IRR defaults: %+v", cfg.IRR)
	}
}

func TestLoad_YAMLOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dcf.yaml")
	body := []byte(`
financial:
  discount_rate: 0.12
  rent_bump_multiplier: 1.2
simulation:
  num_scenarios: 250
  seed: 42
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Financial.DiscountRate != 0.12 {
		t.Errorf("expected discount rate 0.12, got %f", cfg.Financial.DiscountRate)
	}
	if cfg.Financial.RentBumpMultiplier != 1.2 {
		t.Errorf("expected rent multiplier 1.2, got %f", cfg.Financial.RentBumpMultiplier)
	}
	if cfg.Simulation.NumScenarios != 250 || cfg.Simulation.Seed != 42 {
		t.Errorf("simulation overrides not applied: %+v", cfg.Simulation)
	}
	// Untouched sections keep their defaults
	if cfg.Financial.SellingCostRate != 0.06 {
		t.Errorf("expected default selling cost 0.06, got %f", cfg.Financial.SellingCostRate)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DCF_DISCOUNT_RATE", "0.09")
	t.Setenv("DCF_WORKERS", "3")
	t.Setenv("DCF_SQLITE_PATH", filepath.Join(t.TempDir(), "x.db"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Financial.DiscountRate != 0.09 {
		t.Errorf("expected discount rate 0.09, got %f", cfg.Financial.DiscountRate)
	}
	if cfg.Simulation.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Simulation.Workers)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.Storage.Driver)
	}
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("DCF_NUM_SCENARIOS", "lots")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric DCF_NUM_SCENARIOS")
	}
}

func TestValidate_RejectsInconsistentSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"rent multiplier below one", func(c *Config) { c.Financial.RentBumpMultiplier = 0.9 }},
		{"risk cuts not ascending", func(c *Config) { c.Risk.ModerateMax = c.Risk.LowMax }},
		{"recommendation cuts not descending", func(c *Config) { c.Recommendation.BuyMin = c.Recommendation.StrongBuyMin }},
		{"irr guess outside clamps", func(c *Config) { c.IRR.InitialGuess = 20 }},
		{"persistence of one", func(c *Config) { c.Simulation.TemporalPersistence = 1 }},
		{"unknown discount mode", func(c *Config) { c.Financial.DiscountMode = "capm" }},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "redis" }},
		{"zero scenarios", func(c *Config) { c.Simulation.NumScenarios = 0 }},
		{"default above cap", func(c *Config) { c.Simulation.MaxScenarios = c.Simulation.NumScenarios - 1 }},
		{"short horizon", func(c *Config) { c.Simulation.HorizonYears = 5 }},
		{"long horizon", func(c *Config) { c.Simulation.HorizonYears = 7 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
