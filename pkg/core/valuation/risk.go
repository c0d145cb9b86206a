package valuation

import (
	"fmt"

	"property_valuation/pkg/core/config"
)

// RiskLevel is the ordinal risk classification.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskVeryHigh RiskLevel = "VERY_HIGH"
)

// AllRiskLevels in ascending order.
func AllRiskLevels() []RiskLevel {
	return []RiskLevel{RiskLow, RiskModerate, RiskHigh, RiskVeryHigh}
}

// RiskInput are the ratios the risk rules read.
type RiskInput struct {
	IRR            float64
	EquityMultiple float64
	AvgDSCR        float64
	LTV            float64
}

// RiskAssessment is the point total, its level and the rules that fired.
type RiskAssessment struct {
	Score   int       `json:"score"`
	Level   RiskLevel `json:"level"`
	Factors []string  `json:"factors,omitempty"`
}

// AssessRisk accumulates points from four independent rules and maps the
// total through the configured cut points.
func AssessRisk(cfg config.RiskConfig, in RiskInput) RiskAssessment {
	var r RiskAssessment
	add := func(points int, factor string) {
		r.Score += points
		r.Factors = append(r.Factors, factor)
	}

	// IRR
	switch {
	case in.IRR < cfg.IRRLow:
		add(cfg.IRRLowPoints, fmt.Sprintf("IRR %.1f%% below %.0f%%", in.IRR*100, cfg.IRRLow*100))
	case in.IRR > cfg.IRRHigh:
		add(cfg.IRRHighPoints, fmt.Sprintf("IRR %.1f%% above %.0f%% is aggressive", in.IRR*100, cfg.IRRHigh*100))
	}

	// Equity multiple
	switch {
	case in.EquityMultiple < cfg.EquityMultipleWeak:
		add(2, fmt.Sprintf("equity multiple %.2fx below %.1fx", in.EquityMultiple, cfg.EquityMultipleWeak))
	case in.EquityMultiple < cfg.EquityMultipleThin:
		add(1, fmt.Sprintf("equity multiple %.2fx below %.1fx", in.EquityMultiple, cfg.EquityMultipleThin))
	}

	// Debt coverage
	switch {
	case in.AvgDSCR < cfg.DSCRCritical:
		add(3, fmt.Sprintf("average DSCR %.2f below %.2f", in.AvgDSCR, cfg.DSCRCritical))
	case in.AvgDSCR < cfg.DSCRWeak:
		add(2, fmt.Sprintf("average DSCR %.2f below %.2f", in.AvgDSCR, cfg.DSCRWeak))
	case in.AvgDSCR < cfg.DSCRThin:
		add(1, fmt.Sprintf("average DSCR %.2f below %.2f", in.AvgDSCR, cfg.DSCRThin))
	}

	// Leverage
	switch {
	case in.LTV > cfg.LTVHigh:
		add(2, fmt.Sprintf("LTV %.0f%% above %.0f%%", in.LTV*100, cfg.LTVHigh*100))
	case in.LTV > cfg.LTVElevated:
		add(1, fmt.Sprintf("LTV %.0f%% above %.0f%%", in.LTV*100, cfg.LTVElevated*100))
	}

	r.Level = riskLevelFor(cfg, r.Score)
	return r
}

func riskLevelFor(cfg config.RiskConfig, score int) RiskLevel {
	switch {
	case score <= cfg.LowMax:
		return RiskLow
	case score <= cfg.ModerateMax:
		return RiskModerate
	case score <= cfg.HighMax:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}
