// Package assumption turns one Monte Carlo scenario plus the property's
// static data into the validated Assumptions record every downstream DCF
// stage reads.
package assumption

import (
	"fmt"

	"property_valuation/pkg/core/validate"
	"property_valuation/pkg/models"
)

// Series is one value per projection year (Year 0 through Year 5).
type Series [models.HorizonYears]float64

// Preferred return bounds for the investor's hurdle.
const (
	MinPreferredReturn = 0.0
	MaxPreferredReturn = 0.20
)

// =============================================================================
// ASSUMPTIONS
// =============================================================================

// Assumptions identifies a (scenario, property, geography) triple and holds
// the market paths and deal structure the DCF runs on. Treat as read-only
// once returned by Mapper.Map.
type Assumptions struct {
	ScenarioID int    `json:"scenario_id"`
	PropertyID string `json:"property_id"`
	Geography  string `json:"geography"`

	// Yearly market paths
	MortgageRate   Series `json:"mortgage_rate"`
	TreasuryRate   Series `json:"treasury_rate"`
	FedFundsRate   Series `json:"fed_funds_rate"`
	CapRate        Series `json:"cap_rate"`
	RentGrowth     Series `json:"rent_growth"`
	ExpenseGrowth  Series `json:"expense_growth"`
	PropertyGrowth Series `json:"property_growth"`
	VacancyRate    Series `json:"vacancy_rate"`

	// Static financing ratios (Year-0 draw)
	LTVRatio            float64 `json:"ltv_ratio"`
	ClosingCostPct      float64 `json:"closing_cost_pct"`
	LenderReserveMonths float64 `json:"lender_reserves"`

	// Investment structure
	InvestorEquityShare float64 `json:"investor_equity_share"`
	PreferredReturnRate float64 `json:"preferred_return_rate"`
	SelfCashPct         float64 `json:"self_cash_pct"`
}

// SeriesFor returns the yearly path mapped from p. The three static
// financing parameters have no path and report false.
func (a *Assumptions) SeriesFor(p models.Parameter) (Series, bool) {
	switch p {
	case models.CommercialMortgageRate:
		return a.MortgageRate, true
	case models.Treasury10Y:
		return a.TreasuryRate, true
	case models.FedFundsRate:
		return a.FedFundsRate, true
	case models.CapRate:
		return a.CapRate, true
	case models.RentGrowth:
		return a.RentGrowth, true
	case models.ExpenseGrowth:
		return a.ExpenseGrowth, true
	case models.PropertyGrowth:
		return a.PropertyGrowth, true
	case models.VacancyRate:
		return a.VacancyRate, true
	}
	return Series{}, false
}

// StaticFor returns the static value mapped from p.
func (a *Assumptions) StaticFor(p models.Parameter) (float64, bool) {
	switch p {
	case models.LTVRatio:
		return a.LTVRatio, true
	case models.ClosingCostPct:
		return a.ClosingCostPct, true
	case models.LenderReserves:
		return a.LenderReserveMonths, true
	}
	return 0, false
}

// ExitCapRate is the cap rate of the final projection year.
func (a *Assumptions) ExitCapRate() float64 {
	return a.CapRate[models.HorizonYears-1]
}

// Validate checks every value against its parameter's realistic range and
// the investment structure against its documented limits.
func (a *Assumptions) Validate() error {
	if a.PropertyID == "" {
		return &validate.ValidationError{Field: "assumptions.property_id", Value: a.PropertyID, Expected: "non-empty"}
	}
	for _, p := range models.AllParameters() {
		b := p.Bounds()
		if series, ok := a.SeriesFor(p); ok {
			for y, v := range series {
				if err := validate.Range(fmt.Sprintf("assumptions.%s[%d]", p, y), v, b.Min, b.Max); err != nil {
					return err
				}
			}
			continue
		}
		if v, ok := a.StaticFor(p); ok {
			if err := validate.Range("assumptions."+p.String(), v, b.Min, b.Max); err != nil {
				return err
			}
			continue
		}
		return fmt.Errorf("assumptions: parameter %s has no mapping", p)
	}
	if err := validate.Range("assumptions.investor_equity_share", a.InvestorEquityShare, 0, 1); err != nil {
		return err
	}
	if err := validate.Range("assumptions.preferred_return_rate", a.PreferredReturnRate, MinPreferredReturn, MaxPreferredReturn); err != nil {
		return err
	}
	if err := validate.Range("assumptions.self_cash_pct", a.SelfCashPct, 0, 1); err != nil {
		return err
	}
	return nil
}
