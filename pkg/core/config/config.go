// Package config holds the immutable configuration passed into every
// component constructor: financial constants, IRR solver settings, risk and
// recommendation thresholds, simulation settings, storage and logging.
package config

import (
	"fmt"
	"os"
	"strconv"

	"property_valuation/pkg/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DiscountMode selects how the NPV/MIRR discount rate is chosen.
type DiscountMode string

const (
	DiscountFixed DiscountMode = "fixed"
	DiscountWACC  DiscountMode = "wacc"
)

// ExpenseRatios are the operating expense categories as a fraction of
// post-renovation annual rent.
type ExpenseRatios struct {
	PropertyTaxes       float64 `yaml:"property_taxes" json:"property_taxes"`
	Insurance           float64 `yaml:"insurance" json:"insurance"`
	Utilities           float64 `yaml:"utilities" json:"utilities"`
	RepairsMaintenance  float64 `yaml:"repairs_maintenance" json:"repairs_maintenance"`
	PropertyManagement  float64 `yaml:"property_management" json:"property_management"`
	Administrative      float64 `yaml:"administrative" json:"administrative"`
	ReplacementReserves float64 `yaml:"replacement_reserves" json:"replacement_reserves"`
}

// Total is the combined expense ratio.
func (r ExpenseRatios) Total() float64 {
	return r.PropertyTaxes + r.Insurance + r.Utilities + r.RepairsMaintenance +
		r.PropertyManagement + r.Administrative + r.ReplacementReserves
}

// FinancialConfig carries the deal-level constants.
type FinancialConfig struct {
	RentBumpMultiplier    float64       `yaml:"rent_bump_multiplier"`
	RenovationCostPerUnit float64       `yaml:"renovation_cost_per_unit"`
	ExpenseRatios         ExpenseRatios `yaml:"expense_ratios"`
	AssumedExpenseRatio   float64       `yaml:"assumed_expense_ratio"` // used for after-repair value
	SellingCostRate       float64       `yaml:"selling_cost_rate"`
	PrincipalPaydownRate  float64       `yaml:"principal_paydown_rate"` // straight-line, per year, of original loan
	DefaultPreferredRate  float64       `yaml:"default_preferred_return"`
	DiscountRate          float64       `yaml:"discount_rate"`
	DiscountMode          DiscountMode  `yaml:"discount_mode"`
	EquityRiskPremium     float64       `yaml:"equity_risk_premium"`
	HoldingPeriodYears    int           `yaml:"holding_period_years"`
}

// IRRConfig tunes the Newton-Raphson solver.
type IRRConfig struct {
	InitialGuess  float64 `yaml:"initial_guess"`
	MaxIterations int     `yaml:"max_iterations"`
	Precision     float64 `yaml:"precision"`
	LowerClamp    float64 `yaml:"lower_clamp"`
	UpperClamp    float64 `yaml:"upper_clamp"`
}

// RiskConfig holds the point rules and the level cut points.
// A total score <= LowMax is LOW, <= ModerateMax MODERATE, <= HighMax HIGH,
// anything above VERY_HIGH.
type RiskConfig struct {
	IRRLow             float64 `yaml:"irr_low"`
	IRRLowPoints       int     `yaml:"irr_low_points"`
	IRRHigh            float64 `yaml:"irr_high"`
	IRRHighPoints      int     `yaml:"irr_high_points"`
	EquityMultipleWeak float64 `yaml:"equity_multiple_weak"`
	EquityMultipleThin float64 `yaml:"equity_multiple_thin"`
	DSCRCritical       float64 `yaml:"dscr_critical"`
	DSCRWeak           float64 `yaml:"dscr_weak"`
	DSCRThin           float64 `yaml:"dscr_thin"`
	LTVHigh            float64 `yaml:"ltv_high"`
	LTVElevated        float64 `yaml:"ltv_elevated"`
	LowMax             int     `yaml:"low_max"`
	ModerateMax        int     `yaml:"moderate_max"`
	HighMax            int     `yaml:"high_max"`
}

// RecommendationConfig holds the scoring rules and cut points. A score >=
// StrongBuyMin is STRONG_BUY, >= BuyMin BUY, >= HoldMin HOLD, >= SellMin SELL,
// anything below STRONG_SELL.
type RecommendationConfig struct {
	IRRStrong            float64 `yaml:"irr_strong"`
	IRRGood              float64 `yaml:"irr_good"`
	IRRPoor              float64 `yaml:"irr_poor"`
	EquityMultipleStrong float64 `yaml:"equity_multiple_strong"`
	EquityMultipleGood   float64 `yaml:"equity_multiple_good"`
	EquityMultiplePoor   float64 `yaml:"equity_multiple_poor"`
	PaybackFastYears     float64 `yaml:"payback_fast_years"`
	StrongBuyMin         int     `yaml:"strong_buy_min"`
	BuyMin               int     `yaml:"buy_min"`
	HoldMin              int     `yaml:"hold_min"`
	SellMin              int     `yaml:"sell_min"`
	RationaleFragments   int     `yaml:"rationale_fragments"`
}

// SimulationConfig drives scenario generation and the batch runner.
type SimulationConfig struct {
	NumScenarios        int     `yaml:"num_scenarios"`
	MaxScenarios        int     `yaml:"max_scenarios"` // upper bound for per-run overrides
	HorizonYears        int     `yaml:"horizon_years"` // fixed at models.HorizonYears
	Seed                int64   `yaml:"seed"` // 0 = time based
	UseCorrelations     bool    `yaml:"use_correlations"`
	ConfidenceZ         float64 `yaml:"confidence_z"` // z-score of the forecast bounds
	TemporalPersistence float64 `yaml:"temporal_persistence"`
	PSDEpsilon          float64 `yaml:"psd_epsilon"`
	EmpiricalWeight     float64 `yaml:"empirical_weight"`
	Workers             int     `yaml:"workers"`
}

// StorageConfig selects the row store backend.
type StorageConfig struct {
	Driver     string `yaml:"driver"` // memory | file | sqlite | postgres
	SQLitePath string `yaml:"sqlite_path"`
	FileDir    string `yaml:"file_dir"`
	DSN        string `yaml:"dsn"`
}

// LogConfig configures the logrus logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | text
}

// Config is the root configuration object. Treat it as read-only after Load.
type Config struct {
	Financial      FinancialConfig      `yaml:"financial"`
	IRR            IRRConfig            `yaml:"irr"`
	Risk           RiskConfig           `yaml:"risk"`
	Recommendation RecommendationConfig `yaml:"recommendation"`
	Simulation     SimulationConfig     `yaml:"simulation"`
	Storage        StorageConfig        `yaml:"storage"`
	Log            LogConfig            `yaml:"log"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		Financial: FinancialConfig{
			RentBumpMultiplier:    1.125,
			RenovationCostPerUnit: 24000,
			ExpenseRatios: ExpenseRatios{
				PropertyTaxes:       0.12,
				Insurance:           0.02,
				Utilities:           0.04,
				RepairsMaintenance:  0.05,
				PropertyManagement:  0.08,
				Administrative:      0.02,
				ReplacementReserves: 0.03,
			},
			AssumedExpenseRatio:  0.40,
			SellingCostRate:      0.06,
			PrincipalPaydownRate: 0.02,
			DefaultPreferredRate: 0.08,
			DiscountRate:         0.10,
			DiscountMode:         DiscountFixed,
			EquityRiskPremium:    0.05,
			HoldingPeriodYears:   5,
		},
		IRR: IRRConfig{
			InitialGuess:  0.10,
			MaxIterations: 1000,
			Precision:     1e-6,
			LowerClamp:    -0.99,
			UpperClamp:    10.0,
		},
		Risk: RiskConfig{
			IRRLow:             0.08,
			IRRLowPoints:       2,
			IRRHigh:            0.30,
			IRRHighPoints:      1,
			EquityMultipleWeak: 1.2,
			EquityMultipleThin: 1.5,
			DSCRCritical:       1.0,
			DSCRWeak:           1.25,
			DSCRThin:           1.5,
			LTVHigh:            0.85,
			LTVElevated:        0.75,
			LowMax:             1,
			ModerateMax:        3,
			HighMax:            5,
		},
		Recommendation: RecommendationConfig{
			IRRStrong:            0.15,
			IRRGood:              0.10,
			IRRPoor:              0.05,
			EquityMultipleStrong: 2.0,
			EquityMultipleGood:   1.5,
			EquityMultiplePoor:   1.0,
			PaybackFastYears:     4,
			StrongBuyMin:         5,
			BuyMin:               2,
			HoldMin:              -1,
			SellMin:              -4,
			RationaleFragments:   3,
		},
		Simulation: SimulationConfig{
			NumScenarios:        1000,
			MaxScenarios:        50000,
			HorizonYears:        models.HorizonYears,
			Seed:                0,
			UseCorrelations:     true,
			ConfidenceZ:         1.96,
			TemporalPersistence: 0.6,
			PSDEpsilon:          1e-6,
			EmpiricalWeight:     0,
			Workers:             8,
		},
		Storage: StorageConfig{
			Driver:     "memory",
			SQLitePath: "data/valuation.db",
			FileDir:    ".cache/valuation",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file and environment
// overrides (a .env file in the working directory is honoured if present).
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// Missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DCF_DISCOUNT_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid DCF_DISCOUNT_RATE %q: %w", v, err)
		}
		cfg.Financial.DiscountRate = f
	}
	if v := os.Getenv("DCF_NUM_SCENARIOS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DCF_NUM_SCENARIOS %q: %w", v, err)
		}
		cfg.Simulation.NumScenarios = n
	}
	if v := os.Getenv("DCF_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid DCF_SEED %q: %w", v, err)
		}
		cfg.Simulation.Seed = n
	}
	if v := os.Getenv("DCF_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DCF_WORKERS %q: %w", v, err)
		}
		cfg.Simulation.Workers = n
	}
	cfg.Log.Level = getEnv("DCF_LOG_LEVEL", cfg.Log.Level)
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Storage.DSN = dsn
		cfg.Storage.Driver = "postgres"
	}
	if p := os.Getenv("DCF_SQLITE_PATH"); p != "" {
		cfg.Storage.SQLitePath = p
		cfg.Storage.Driver = "sqlite"
	}
	return nil
}

// getEnv returns the environment value or a default.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Validate rejects internally inconsistent settings.
func (c Config) Validate() error {
	f := c.Financial
	if f.RentBumpMultiplier < 1 {
		return fmt.Errorf("config: rent_bump_multiplier must be >= 1, got %g", f.RentBumpMultiplier)
	}
	if f.RenovationCostPerUnit < 0 {
		return fmt.Errorf("config: renovation_cost_per_unit must be >= 0, got %g", f.RenovationCostPerUnit)
	}
	if total := f.ExpenseRatios.Total(); total < 0 || total > 1 {
		return fmt.Errorf("config: expense ratios must sum within [0, 1], got %g", total)
	}
	if f.AssumedExpenseRatio < 0 || f.AssumedExpenseRatio >= 1 {
		return fmt.Errorf("config: assumed_expense_ratio must be within [0, 1), got %g", f.AssumedExpenseRatio)
	}
	if f.SellingCostRate < 0 || f.SellingCostRate >= 1 {
		return fmt.Errorf("config: selling_cost_rate must be within [0, 1), got %g", f.SellingCostRate)
	}
	if f.PrincipalPaydownRate < 0 || f.PrincipalPaydownRate > 1 {
		return fmt.Errorf("config: principal_paydown_rate must be within [0, 1], got %g", f.PrincipalPaydownRate)
	}
	if f.DefaultPreferredRate < 0 || f.DefaultPreferredRate > 0.20 {
		return fmt.Errorf("config: default_preferred_return must be within [0, 0.20], got %g", f.DefaultPreferredRate)
	}
	if f.DiscountRate <= -1 {
		return fmt.Errorf("config: discount_rate must be > -1, got %g", f.DiscountRate)
	}
	switch f.DiscountMode {
	case DiscountFixed, DiscountWACC:
	default:
		return fmt.Errorf("config: unknown discount_mode %q", f.DiscountMode)
	}
	if f.HoldingPeriodYears <= 0 {
		return fmt.Errorf("config: holding_period_years must be > 0, got %d", f.HoldingPeriodYears)
	}

	if c.IRR.MaxIterations <= 0 || c.IRR.Precision <= 0 {
		return fmt.Errorf("config: irr max_iterations and precision must be positive")
	}
	if !(c.IRR.LowerClamp > -1 && c.IRR.LowerClamp < c.IRR.InitialGuess && c.IRR.InitialGuess < c.IRR.UpperClamp) {
		return fmt.Errorf("config: irr clamps must satisfy -1 < lower < initial_guess < upper")
	}

	r := c.Risk
	if !(r.LowMax < r.ModerateMax && r.ModerateMax < r.HighMax) {
		return fmt.Errorf("config: risk cut points must be ascending (%d, %d, %d)", r.LowMax, r.ModerateMax, r.HighMax)
	}
	rc := c.Recommendation
	if !(rc.StrongBuyMin > rc.BuyMin && rc.BuyMin > rc.HoldMin && rc.HoldMin > rc.SellMin) {
		return fmt.Errorf("config: recommendation cut points must be descending (%d, %d, %d, %d)",
			rc.StrongBuyMin, rc.BuyMin, rc.HoldMin, rc.SellMin)
	}
	if rc.RationaleFragments <= 0 {
		return fmt.Errorf("config: rationale_fragments must be > 0")
	}

	s := c.Simulation
	if s.NumScenarios <= 0 {
		return fmt.Errorf("config: num_scenarios must be > 0, got %d", s.NumScenarios)
	}
	if s.MaxScenarios < s.NumScenarios {
		return fmt.Errorf("config: max_scenarios must be >= num_scenarios (%d), got %d", s.NumScenarios, s.MaxScenarios)
	}
	if s.HorizonYears != models.HorizonYears {
		return fmt.Errorf("config: horizon_years must be %d, got %d", models.HorizonYears, s.HorizonYears)
	}
	if s.ConfidenceZ <= 0 {
		return fmt.Errorf("config: confidence_z must be > 0, got %g", s.ConfidenceZ)
	}
	if s.TemporalPersistence < 0 || s.TemporalPersistence >= 1 {
		return fmt.Errorf("config: temporal_persistence must be within [0, 1), got %g", s.TemporalPersistence)
	}
	if s.PSDEpsilon <= 0 {
		return fmt.Errorf("config: psd_epsilon must be > 0, got %g", s.PSDEpsilon)
	}
	if s.EmpiricalWeight < 0 || s.EmpiricalWeight > 1 {
		return fmt.Errorf("config: empirical_weight must be within [0, 1], got %g", s.EmpiricalWeight)
	}
	if s.Workers <= 0 {
		return fmt.Errorf("config: workers must be > 0, got %d", s.Workers)
	}

	switch c.Storage.Driver {
	case "memory", "file", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}
