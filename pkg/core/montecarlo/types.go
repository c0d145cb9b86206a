// Package montecarlo generates correlated market scenarios from forecasts
// and summarises a batch of them.
package montecarlo

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"property_valuation/pkg/models"
)

var (
	// ErrInvalidArgument is returned for a non-positive scenario count or horizon.
	ErrInvalidArgument = errors.New("montecarlo: invalid argument")

	// ErrNotPositiveDefinite means a correlation matrix could not be repaired.
	ErrNotPositiveDefinite = errors.New("montecarlo: correlation matrix not positive definite")
)

// MarketClassification buckets a scenario by its growth and risk scores.
type MarketClassification string

const (
	BullMarket    MarketClassification = "bull_market"
	GrowthMarket  MarketClassification = "growth_market"
	NeutralMarket MarketClassification = "neutral_market"
	BearMarket    MarketClassification = "bear_market"
	StressMarket  MarketClassification = "stress_market"
)

// AllClassifications in reporting order.
func AllClassifications() []MarketClassification {
	return []MarketClassification{BullMarket, GrowthMarket, NeutralMarket, BearMarket, StressMarket}
}

// ParameterSeries holds one yearly series per parameter, indexed by the enum.
// It serialises as a name-keyed object.
type ParameterSeries [models.NumParameters][]float64

func (s ParameterSeries) MarshalJSON() ([]byte, error) {
	m := make(map[string][]float64, models.NumParameters)
	for _, p := range models.AllParameters() {
		m[p.String()] = s[p]
	}
	return json.Marshal(m)
}

func (s *ParameterSeries) UnmarshalJSON(data []byte) error {
	var m map[string][]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for name, values := range m {
		p, err := models.ParseParameter(name)
		if err != nil {
			return err
		}
		s[p] = values
	}
	return nil
}

// Mean is the horizon average of p's series (0 for an empty series).
func (s ParameterSeries) Mean(p models.Parameter) float64 {
	values := s[p]
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Summary scores a scenario.
type Summary struct {
	GrowthScore         float64              `json:"growth_score"`
	RiskScore           float64              `json:"risk_score"`
	Classification      MarketClassification `json:"market_classification"`
	AvgCapRate          float64              `json:"avg_cap_rate"`
	AvgVacancyRate      float64              `json:"avg_vacancy_rate"`
	AvgRentGrowth       float64              `json:"avg_rent_growth"`
	AvgPropertyGrowth   float64              `json:"avg_property_growth"`
	AvgMortgageRate     float64              `json:"avg_mortgage_rate"`
	AvgInterestRate     float64              `json:"avg_interest_rate"`
	TotalPropertyGrowth float64              `json:"total_property_growth"`
}

// Scenario is one sampled draw of every parameter across the horizon.
type Scenario struct {
	ID             int             `json:"scenario_id"`
	Values         ParameterSeries `json:"forecasted_parameters"`
	Summary        Summary         `json:"summary"`
	PercentileRank *float64        `json:"percentile_rank,omitempty"`
}

// Series returns the scenario's values for p.
func (s *Scenario) Series(p models.Parameter) []float64 {
	return s.Values[p]
}

// Validate checks the scenario carries every parameter over the horizon.
func (s *Scenario) Validate(horizon int) error {
	for _, p := range models.AllParameters() {
		if len(s.Values[p]) != horizon {
			return fmt.Errorf("scenario %d: %s has %d values, want %d", s.ID, p, len(s.Values[p]), horizon)
		}
	}
	return nil
}

// ParameterStats summarises one parameter across all scenarios (all
// scenario-year values pooled).
type ParameterStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Extremes records scenario ids at the tails of the batch.
type Extremes struct {
	BestGrowth    int            `json:"best_growth"`
	WorstGrowth   int            `json:"worst_growth"`
	HighestRisk   int            `json:"highest_risk"`
	LowestRisk    int            `json:"lowest_risk"`
	ParameterHigh map[string]int `json:"parameter_high"`
	ParameterLow  map[string]int `json:"parameter_low"`
}

// Results is a generated batch.
type Results struct {
	RunID                string                       `json:"run_id"`
	PropertyID           string                       `json:"property_id"`
	Geography            string                       `json:"geography"`
	NumScenarios         int                          `json:"num_scenarios"`
	HorizonYears         int                          `json:"horizon_years"`
	UseCorrelations      bool                         `json:"use_correlations"`
	Seed                 int64                        `json:"seed"`
	ParameterNames       []string                     `json:"parameter_names"`
	CorrelationMatrix    [][]float64                  `json:"correlation_matrix"`
	Scenarios            []Scenario                   `json:"scenarios"`
	Statistics           map[string]ParameterStats    `json:"summary_statistics"`
	Extremes             Extremes                     `json:"extreme_scenarios"`
	ClassificationCounts map[MarketClassification]int `json:"classification_counts"`
	GeneratedAt          time.Time                    `json:"generated_at"`
}

// Scenario looks a scenario up by id.
func (r *Results) Scenario(id int) (*Scenario, bool) {
	for i := range r.Scenarios {
		if r.Scenarios[i].ID == id {
			return &r.Scenarios[i], true
		}
	}
	return nil, false
}
