package montecarlo

import (
	"sort"

	"property_valuation/pkg/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// extremeParameters are tracked individually in Extremes.
var extremeParameters = []models.Parameter{
	models.CapRate,
	models.CommercialMortgageRate,
	models.VacancyRate,
}

// PostProcess fills the batch aggregates: per-parameter statistics, extreme
// scenarios, classification counts and percentile ranks. It is the only
// step that mutates scenarios after generation.
func PostProcess(r *Results) {
	r.Statistics = ComputeStatistics(r.Scenarios)
	r.Extremes = FindExtremes(r.Scenarios)
	r.ClassificationCounts = CountClassifications(r.Scenarios)
	AssignPercentileRanks(r.Scenarios)
}

// ComputeStatistics pools every scenario-year value per parameter.
func ComputeStatistics(scenarios []Scenario) map[string]ParameterStats {
	out := make(map[string]ParameterStats, models.NumParameters)
	if len(scenarios) == 0 {
		return out
	}
	for _, p := range models.AllParameters() {
		var pooled []float64
		for i := range scenarios {
			pooled = append(pooled, scenarios[i].Values[p]...)
		}
		if len(pooled) == 0 {
			continue
		}
		mean, std := stat.MeanStdDev(pooled, nil)
		if len(pooled) < 2 {
			std = 0
		}
		out[p.String()] = ParameterStats{
			Mean: mean,
			Std:  std,
			Min:  floats.Min(pooled),
			Max:  floats.Max(pooled),
		}
	}
	return out
}

// FindExtremes identifies tail scenarios. Ties resolve to the lowest index.
func FindExtremes(scenarios []Scenario) Extremes {
	ex := Extremes{
		ParameterHigh: make(map[string]int),
		ParameterLow:  make(map[string]int),
	}
	if len(scenarios) == 0 {
		return ex
	}

	growth := make([]float64, len(scenarios))
	risk := make([]float64, len(scenarios))
	for i := range scenarios {
		growth[i] = scenarios[i].Summary.GrowthScore
		risk[i] = scenarios[i].Summary.RiskScore
	}
	ex.BestGrowth = scenarios[floats.MaxIdx(growth)].ID
	ex.WorstGrowth = scenarios[floats.MinIdx(growth)].ID
	ex.HighestRisk = scenarios[floats.MaxIdx(risk)].ID
	ex.LowestRisk = scenarios[floats.MinIdx(risk)].ID

	means := make([]float64, len(scenarios))
	for _, p := range extremeParameters {
		for i := range scenarios {
			means[i] = scenarios[i].Values.Mean(p)
		}
		ex.ParameterHigh[p.String()] = scenarios[floats.MaxIdx(means)].ID
		ex.ParameterLow[p.String()] = scenarios[floats.MinIdx(means)].ID
	}
	return ex
}

// CountClassifications tallies scenarios per market classification. Every
// classification is present in the map, zero or not.
func CountClassifications(scenarios []Scenario) map[MarketClassification]int {
	counts := make(map[MarketClassification]int, 5)
	for _, c := range AllClassifications() {
		counts[c] = 0
	}
	for i := range scenarios {
		counts[scenarios[i].Summary.Classification]++
	}
	return counts
}

// AssignPercentileRanks sets rank = 100·idx/(N−1) by ascending growth score.
// Equal scores keep their generation order. A single scenario ranks 0.
func AssignPercentileRanks(scenarios []Scenario) {
	n := len(scenarios)
	if n == 0 {
		return
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scenarios[order[a]].Summary.GrowthScore < scenarios[order[b]].Summary.GrowthScore
	})
	for idx, i := range order {
		rank := 0.0
		if n > 1 {
			rank = 100 * float64(idx) / float64(n-1)
		}
		scenarios[i].PercentileRank = &rank
	}
}
