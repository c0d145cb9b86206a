package valuation

import (
	"property_valuation/pkg/core/assumption"
	"property_valuation/pkg/core/config"
)

// WACCInput parameters for a property-level cost of capital. Real estate
// returns are modelled pre-tax.
type WACCInput struct {
	RiskFreeRate      float64
	EquityRiskPremium float64
	CostOfDebt        float64
	LTVRatio          float64 // debt weight
}

// WACCResult holds the calculated rates
type WACCResult struct {
	CostOfEquity float64 `json:"cost_of_equity"`
	CostOfDebt   float64 `json:"cost_of_debt"`
	WeightDebt   float64 `json:"weight_debt"`
	WeightEquity float64 `json:"weight_equity"`
	WACC         float64 `json:"wacc"`
}

// CalculateWACC weights equity and debt costs by leverage.
func CalculateWACC(input WACCInput) WACCResult {
	// 1. Cost of equity: Ke = Rf + ERP
	ke := input.RiskFreeRate + input.EquityRiskPremium

	// 2. Weights from LTV
	wd := input.LTVRatio
	we := 1 - wd

	// 3. WACC
	return WACCResult{
		CostOfEquity: ke,
		CostOfDebt:   input.CostOfDebt,
		WeightDebt:   wd,
		WeightEquity: we,
		WACC:         ke*we + input.CostOfDebt*wd,
	}
}

// DiscountRate picks the NPV/MIRR rate for a scenario: the configured rate,
// or in wacc mode the scenario's Year-1 WACC.
func DiscountRate(cfg config.FinancialConfig, a *assumption.Assumptions) float64 {
	if cfg.DiscountMode != config.DiscountWACC || a == nil {
		return cfg.DiscountRate
	}
	return CalculateWACC(WACCInput{
		RiskFreeRate:      a.TreasuryRate[1],
		EquityRiskPremium: cfg.EquityRiskPremium,
		CostOfDebt:        a.MortgageRate[1],
		LTVRatio:          a.LTVRatio,
	}).WACC
}
