package montecarlo

import "property_valuation/pkg/models"

// Normalisation ranges for the scenario scores (horizon means).
var (
	rentGrowthRange     = [2]float64{-0.05, 0.10}
	propertyGrowthRange = [2]float64{-0.10, 0.15}
	capRateRange        = [2]float64{0.03, 0.12}
	vacancyRange        = [2]float64{0.0, 0.20}
	mortgageRange       = [2]float64{0.03, 0.10}
	ltvRange            = [2]float64{0.50, 0.95}
)

// Classification thresholds. Order of evaluation matters: stress is tested
// before bear so a scenario meeting both is counted as stress.
const (
	stressRiskMin = 0.7
	bearGrowthMax = 0.4
	bearRiskMin   = 0.6
	bullGrowthMin = 0.7
	bullRiskMax   = 0.4
	growthMin     = 0.55
)

func normalize(v float64, r [2]float64) float64 {
	n := (v - r[0]) / (r[1] - r[0])
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

// GrowthScore is in [0,1]; higher is more bullish.
func GrowthScore(values ParameterSeries) float64 {
	return 0.3*normalize(values.Mean(models.RentGrowth), rentGrowthRange) +
		0.3*normalize(values.Mean(models.PropertyGrowth), propertyGrowthRange) +
		0.2*(1-normalize(values.Mean(models.CapRate), capRateRange)) +
		0.2*(1-normalize(values.Mean(models.VacancyRate), vacancyRange))
}

// RiskScore is in [0,1]; higher is riskier.
func RiskScore(values ParameterSeries) float64 {
	return 0.3*normalize(values.Mean(models.CommercialMortgageRate), mortgageRange) +
		0.25*normalize(values.Mean(models.CapRate), capRateRange) +
		0.25*normalize(values.Mean(models.VacancyRate), vacancyRange) +
		0.2*(1-normalize(values.Mean(models.LTVRatio), ltvRange))
}

// Classify maps scores to a market classification.
func Classify(growth, risk float64) MarketClassification {
	switch {
	case risk > stressRiskMin:
		return StressMarket
	case growth < bearGrowthMax && risk > bearRiskMin:
		return BearMarket
	case growth > bullGrowthMin && risk < bullRiskMax:
		return BullMarket
	case growth > growthMin:
		return GrowthMarket
	default:
		return NeutralMarket
	}
}

// Summarize scores a scenario's parameter paths.
func Summarize(values ParameterSeries) Summary {
	growth := GrowthScore(values)
	risk := RiskScore(values)

	total := 1.0
	for _, g := range values[models.PropertyGrowth] {
		total *= 1 + g
	}

	return Summary{
		GrowthScore:         growth,
		RiskScore:           risk,
		Classification:      Classify(growth, risk),
		AvgCapRate:          values.Mean(models.CapRate),
		AvgVacancyRate:      values.Mean(models.VacancyRate),
		AvgRentGrowth:       values.Mean(models.RentGrowth),
		AvgPropertyGrowth:   values.Mean(models.PropertyGrowth),
		AvgMortgageRate:     values.Mean(models.CommercialMortgageRate),
		AvgInterestRate:     values.Mean(models.Treasury10Y),
		TotalPropertyGrowth: total - 1,
	}
}
