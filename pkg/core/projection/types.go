// Package projection projects a deal's yearly cash flows (Year 0 through
// Year 5) and runs the investor/operator waterfall over them.
package projection

import (
	"fmt"
	"math"

	"property_valuation/pkg/core/acquisition"
	"property_valuation/pkg/core/validate"
	"property_valuation/pkg/models"
)

// NumYears is the number of projection years, Year 0 included.
const NumYears = models.HorizonYears

// =============================================================================
// ANNUAL CASH FLOW
// =============================================================================

// AnnualCashFlow is one year of property-level operations.
type AnnualCashFlow struct {
	Year int `json:"year"`

	GrossRent            float64 `json:"gross_rent"`
	VacancyLoss          float64 `json:"vacancy_loss"`
	EffectiveGrossIncome float64 `json:"effective_gross_income"`

	Expenses acquisition.OperatingExpenses `json:"operating_expenses"`

	NOI               float64 `json:"noi"`
	DebtService       float64 `json:"debt_service"`
	BeforeTaxCashFlow float64 `json:"before_tax_cash_flow"`
	Capex             float64 `json:"capex"`
	NetCashFlow       float64 `json:"net_cash_flow"`
}

// Validate enforces the income statement identities.
func (cf *AnnualCashFlow) Validate() error {
	field := fmt.Sprintf("cash_flow[%d]", cf.Year)
	tol := validate.DefaultTolerance

	if err := validate.NonNegative(field+".gross_rent", cf.GrossRent); err != nil {
		return err
	}
	if err := validate.NonNegative(field+".vacancy_loss", cf.VacancyLoss); err != nil {
		return err
	}
	if err := validate.NonNegative(field+".capex", cf.Capex); err != nil {
		return err
	}
	// EGI = gross − vacancy
	if err := validate.Within(field+".effective_gross_income", cf.EffectiveGrossIncome, cf.GrossRent-cf.VacancyLoss, tol); err != nil {
		return err
	}
	if err := cf.Expenses.Validate(field + ".operating_expenses"); err != nil {
		return err
	}
	// NOI = EGI − expenses
	if err := validate.Within(field+".noi", cf.NOI, cf.EffectiveGrossIncome-cf.Expenses.Total, tol); err != nil {
		return err
	}
	// BTCF = NOI − debt service
	if err := validate.Within(field+".before_tax_cash_flow", cf.BeforeTaxCashFlow, cf.NOI-cf.DebtService, tol); err != nil {
		return err
	}
	// NCF = BTCF − capex
	return validate.Within(field+".net_cash_flow", cf.NetCashFlow, cf.BeforeTaxCashFlow-cf.Capex, tol)
}

// DSCR is NOI over debt service, 0 when there is no debt service.
func (cf *AnnualCashFlow) DSCR() float64 {
	if cf.DebtService <= 0 {
		return 0
	}
	return cf.NOI / cf.DebtService
}

// =============================================================================
// WATERFALL DISTRIBUTION
// =============================================================================

// WaterfallDistribution is one year of the distribution waterfall.
type WaterfallDistribution struct {
	Year int `json:"year"`

	AvailableCash float64 `json:"available_cash"`

	PreferredDue              float64 `json:"preferred_return_due"`
	PreferredPaid             float64 `json:"preferred_return_paid"`
	PreferredAccrued          float64 `json:"preferred_return_accrued"`
	CumulativeUnpaidPreferred float64 `json:"cumulative_unpaid_preferred"`

	RemainingAfterPreferred float64 `json:"remaining_after_preferred"`
	InvestorDistribution    float64 `json:"investor_cash_distribution"`
	OperatorDistribution    float64 `json:"operator_cash_distribution"`
	TotalDistributed        float64 `json:"total_distributed"`
	Remainder               float64 `json:"remainder"`
}

// Validate checks conservation: everything available is distributed.
func (w *WaterfallDistribution) Validate() error {
	field := fmt.Sprintf("waterfall[%d]", w.Year)
	tol := validate.DefaultTolerance

	nonNegative := []struct {
		name  string
		value float64
	}{
		{".available_cash", w.AvailableCash},
		{".preferred_return_paid", w.PreferredPaid},
		{".cumulative_unpaid_preferred", w.CumulativeUnpaidPreferred},
		{".investor_cash_distribution", w.InvestorDistribution},
		{".operator_cash_distribution", w.OperatorDistribution},
	}
	for _, c := range nonNegative {
		if err := validate.NonNegative(field+c.name, c.value); err != nil {
			return err
		}
	}
	if err := validate.Sum(field+".distribution_split", w.AvailableCash, tol, w.InvestorDistribution, w.OperatorDistribution); err != nil {
		return err
	}
	if err := validate.Within(field+".total_distributed", w.TotalDistributed, w.AvailableCash, tol); err != nil {
		return err
	}
	return validate.Within(field+".remainder", w.Remainder, 0, tol)
}

// =============================================================================
// CASH FLOW PROJECTION
// =============================================================================

// Totals aggregates a projection across all years.
type Totals struct {
	GrossRent             float64 `json:"gross_rent"`
	VacancyLoss           float64 `json:"vacancy_loss"`
	EffectiveGrossIncome  float64 `json:"effective_gross_income"`
	OperatingExpenses     float64 `json:"operating_expenses"`
	NOI                   float64 `json:"noi"`
	DebtService           float64 `json:"debt_service"`
	Capex                 float64 `json:"capex"`
	NetCashFlow           float64 `json:"net_cash_flow"`
	PreferredPaid         float64 `json:"preferred_return_paid"`
	InvestorDistributions float64 `json:"investor_distributions"`
	OperatorDistributions float64 `json:"operator_distributions"`
	TotalDistributed      float64 `json:"total_distributed"`
	EndingUnpaidPreferred float64 `json:"ending_unpaid_preferred"`
}

// CashFlowProjection owns the six annual records and the six waterfall
// records, each at the array position equal to its year.
type CashFlowProjection struct {
	PropertyID string `json:"property_id"`
	ScenarioID int    `json:"scenario_id"`

	CashFlows [NumYears]AnnualCashFlow        `json:"cash_flows"`
	Waterfall [NumYears]WaterfallDistribution `json:"waterfall"`
	Totals    Totals                          `json:"totals"`
}

// NewCashFlowProjection validates the yearly records and computes totals.
func NewCashFlowProjection(propertyID string, scenarioID int, flows [NumYears]AnnualCashFlow, waterfall [NumYears]WaterfallDistribution) (*CashFlowProjection, error) {
	p := &CashFlowProjection{
		PropertyID: propertyID,
		ScenarioID: scenarioID,
		CashFlows:  flows,
		Waterfall:  waterfall,
	}
	for y := 0; y < NumYears; y++ {
		if flows[y].Year != y {
			return nil, &validate.ValidationError{Field: fmt.Sprintf("cash_flows[%d].year", y), Value: flows[y].Year, Expected: fmt.Sprint(y)}
		}
		if waterfall[y].Year != y {
			return nil, &validate.ValidationError{Field: fmt.Sprintf("waterfall[%d].year", y), Value: waterfall[y].Year, Expected: fmt.Sprint(y)}
		}
		if err := flows[y].Validate(); err != nil {
			return nil, err
		}
		if err := waterfall[y].Validate(); err != nil {
			return nil, err
		}
		if y > 0 {
			prev := waterfall[y-1].CumulativeUnpaidPreferred
			want := math.Max(0, prev+waterfall[y].PreferredDue-waterfall[y].PreferredPaid)
			if err := validate.Within(fmt.Sprintf("waterfall[%d].cumulative_unpaid_preferred", y),
				waterfall[y].CumulativeUnpaidPreferred, want, validate.DefaultTolerance); err != nil {
				return nil, err
			}
		}
	}
	p.Totals = p.computeTotals()
	return p, nil
}

func (p *CashFlowProjection) computeTotals() Totals {
	var t Totals
	for y := 0; y < NumYears; y++ {
		cf := p.CashFlows[y]
		t.GrossRent += cf.GrossRent
		t.VacancyLoss += cf.VacancyLoss
		t.EffectiveGrossIncome += cf.EffectiveGrossIncome
		t.OperatingExpenses += cf.Expenses.Total
		t.NOI += cf.NOI
		t.DebtService += cf.DebtService
		t.Capex += cf.Capex
		t.NetCashFlow += cf.NetCashFlow

		w := p.Waterfall[y]
		t.PreferredPaid += w.PreferredPaid
		t.InvestorDistributions += w.InvestorDistribution
		t.OperatorDistributions += w.OperatorDistribution
		t.TotalDistributed += w.TotalDistributed
	}
	t.EndingUnpaidPreferred = p.Waterfall[NumYears-1].CumulativeUnpaidPreferred
	return t
}

// Year returns the cash flow and waterfall records for year y.
func (p *CashFlowProjection) Year(y int) (AnnualCashFlow, WaterfallDistribution) {
	return p.CashFlows[y], p.Waterfall[y]
}

// ExitNOI is the final projection year's NOI.
func (p *CashFlowProjection) ExitNOI() float64 {
	return p.CashFlows[NumYears-1].NOI
}
