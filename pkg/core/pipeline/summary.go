package pipeline

import (
	"math"
	"sort"
	"time"

	"property_valuation/pkg/core/montecarlo"
	"property_valuation/pkg/core/valuation"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Distribution describes one metric across the evaluated scenarios.
type Distribution struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	P5   float64 `json:"p5"`
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	Max  float64 `json:"max"`
}

// MonetaryTotals are exact sums over the evaluated scenarios.
type MonetaryTotals struct {
	EquityInvested     decimal.Decimal `json:"equity_invested"`
	Distributions      decimal.Decimal `json:"distributions"`
	NetSaleProceeds    decimal.Decimal `json:"net_sale_proceeds"`
	NPV                decimal.Decimal `json:"npv"`
	MeanNPV            decimal.Decimal `json:"mean_npv"`
	LoanShortfall      decimal.Decimal `json:"loan_shortfall"`
	ScenariosShortfall int             `json:"scenarios_with_shortfall"`
}

// BatchSummary aggregates a valued batch.
type BatchSummary struct {
	RunID      string `json:"run_id"`
	PropertyID string `json:"property_id"`
	Geography  string `json:"geography"`

	NumScenarios int `json:"num_scenarios"`
	Evaluated    int `json:"evaluated"`
	Failed       int `json:"failed"`

	NPV             Distribution `json:"npv"`
	IRR             Distribution `json:"irr"` // converged scenarios only
	IRRUndetermined int          `json:"irr_undetermined"`
	EquityMultiple  Distribution `json:"equity_multiple"`
	ProbPositiveNPV float64      `json:"probability_positive_npv"`

	RecommendationCounts map[valuation.Recommendation]int        `json:"recommendation_counts"`
	RiskLevelCounts      map[valuation.RiskLevel]int             `json:"risk_level_counts"`
	ClassificationCounts map[montecarlo.MarketClassification]int `json:"classification_counts"`
	Totals               MonetaryTotals                          `json:"totals"`
	Failures             []ScenarioFailure                       `json:"failures,omitempty"`
	GeneratedAt          time.Time                               `json:"generated_at"`
}

// Summarize builds the batch summary from the evaluated scenarios.
func Summarize(runID, propertyID string, results *montecarlo.Results, evals []*ScenarioEvaluation, failures []ScenarioFailure) *BatchSummary {
	s := &BatchSummary{
		RunID:                runID,
		PropertyID:           propertyID,
		Evaluated:            len(evals),
		Failed:               len(failures),
		RecommendationCounts: make(map[valuation.Recommendation]int),
		RiskLevelCounts:      make(map[valuation.RiskLevel]int),
		ClassificationCounts: make(map[montecarlo.MarketClassification]int),
		Failures:             failures,
		GeneratedAt:          time.Now().UTC(),
	}
	if results != nil {
		s.Geography = results.Geography
		s.NumScenarios = len(results.Scenarios)
	} else {
		s.NumScenarios = len(evals) + len(failures)
	}
	for _, r := range valuation.AllRecommendations() {
		s.RecommendationCounts[r] = 0
	}
	for _, l := range valuation.AllRiskLevels() {
		s.RiskLevelCounts[l] = 0
	}
	for _, c := range montecarlo.AllClassifications() {
		s.ClassificationCounts[c] = 0
	}

	npvs := make([]float64, 0, len(evals))
	irrs := make([]float64, 0, len(evals))
	multiples := make([]float64, 0, len(evals))
	positive := 0

	invested, distributed, proceeds := decimal.Zero, decimal.Zero, decimal.Zero
	totalNPV, shortfall := decimal.Zero, decimal.Zero

	for _, ev := range evals {
		m := ev.Metrics
		npvs = append(npvs, m.NPV)
		multiples = append(multiples, m.EquityMultiple)
		if m.IRRConverged {
			irrs = append(irrs, m.IRR)
		} else {
			s.IRRUndetermined++
		}
		if m.NPV > 0 {
			positive++
		}
		s.RecommendationCounts[m.Recommendation.Recommendation]++
		s.RiskLevelCounts[m.Risk.Level]++
		s.ClassificationCounts[ev.Classification]++

		invested = invested.Add(decimal.NewFromFloat(-m.CashFlows[0]))
		distributed = distributed.Add(decimal.NewFromFloat(ev.Projection.Totals.TotalDistributed))
		proceeds = proceeds.Add(decimal.NewFromFloat(m.Terminal.NetSaleProceeds))
		totalNPV = totalNPV.Add(decimal.NewFromFloat(m.NPV))
		if m.Terminal.LoanShortfall > 0 {
			shortfall = shortfall.Add(decimal.NewFromFloat(m.Terminal.LoanShortfall))
			s.Totals.ScenariosShortfall++
		}
	}

	s.NPV = distribution(npvs)
	s.IRR = distribution(irrs)
	s.EquityMultiple = distribution(multiples)
	if len(evals) > 0 {
		s.ProbPositiveNPV = float64(positive) / float64(len(evals))
	}

	s.Totals.EquityInvested = invested.Round(2)
	s.Totals.Distributions = distributed.Round(2)
	s.Totals.NetSaleProceeds = proceeds.Round(2)
	s.Totals.NPV = totalNPV.Round(2)
	s.Totals.LoanShortfall = shortfall.Round(2)
	if len(evals) > 0 {
		s.Totals.MeanNPV = totalNPV.Div(decimal.NewFromInt(int64(len(evals)))).Round(2)
	}
	return s
}

func distribution(xs []float64) Distribution {
	if len(xs) == 0 {
		return Distribution{}
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return Distribution{
		Mean: mean,
		Std:  std,
		Min:  sorted[0],
		P5:   stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P50:  stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Max:  sorted[len(sorted)-1],
	}
}
