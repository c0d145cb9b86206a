package assumption

import (
	"fmt"

	"property_valuation/pkg/core/config"
	"property_valuation/pkg/core/montecarlo"
	"property_valuation/pkg/core/validate"
	"property_valuation/pkg/models"
)

// Mapper converts scenarios into Assumptions.
type Mapper struct {
	defaultPreferred float64
}

// NewMapper creates a mapper. The configured preferred return applies to
// properties that do not set their own.
func NewMapper(cfg config.FinancialConfig) *Mapper {
	return &Mapper{defaultPreferred: cfg.DefaultPreferredRate}
}

// Map builds validated Assumptions from one scenario and the property.
//
// Eight parameters map year-for-year; ltv_ratio, closing_cost_pct and
// lender_reserves take their Year-0 value as the static ratio. Every
// parameter must be present with exactly HorizonYears values inside its
// realistic range.
func (m *Mapper) Map(scenario *montecarlo.Scenario, property *models.Property) (*Assumptions, error) {
	if scenario == nil {
		return nil, &validate.ValidationError{Field: "scenario", Value: nil, Expected: "non-nil scenario"}
	}
	if property == nil {
		return nil, &validate.ValidationError{Field: "property", Value: nil, Expected: "non-nil property"}
	}
	if err := property.Validate(); err != nil {
		return nil, err
	}

	a := &Assumptions{
		ScenarioID:          scenario.ID,
		PropertyID:          property.ID,
		Geography:           property.MSACode,
		InvestorEquityShare: property.InvestorEquityShare,
		SelfCashPct:         property.SelfCashPct,
		PreferredReturnRate: m.defaultPreferred,
	}
	if property.PreferredReturnRate != nil {
		a.PreferredReturnRate = *property.PreferredReturnRate
	}

	for _, p := range models.AllParameters() {
		values := scenario.Series(p)
		field := "scenario." + p.String()
		if values == nil {
			return nil, &validate.ValidationError{Field: field, Value: "missing", Expected: "parameter present in scenario"}
		}
		if err := validate.Length(field, len(values), models.HorizonYears); err != nil {
			return nil, err
		}

		var series Series
		copy(series[:], values)

		switch p {
		case models.CommercialMortgageRate:
			a.MortgageRate = series
		case models.Treasury10Y:
			a.TreasuryRate = series
		case models.FedFundsRate:
			a.FedFundsRate = series
		case models.CapRate:
			a.CapRate = series
		case models.RentGrowth:
			a.RentGrowth = series
		case models.ExpenseGrowth:
			a.ExpenseGrowth = series
		case models.PropertyGrowth:
			a.PropertyGrowth = series
		case models.VacancyRate:
			a.VacancyRate = series
		case models.LTVRatio:
			a.LTVRatio = series[0]
		case models.ClosingCostPct:
			a.ClosingCostPct = series[0]
		case models.LenderReserves:
			a.LenderReserveMonths = series[0]
		default:
			return nil, fmt.Errorf("assumption mapper: unhandled parameter %s", p)
		}
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}
