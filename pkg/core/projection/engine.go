package projection

import (
	"fmt"

	"property_valuation/pkg/core/acquisition"
	"property_valuation/pkg/core/assumption"
	"property_valuation/pkg/core/logging"
	"property_valuation/pkg/core/validate"

	"github.com/sirupsen/logrus"
)

// Engine projects cash flows and distributions for one scenario.
type Engine struct {
	logger *logrus.Logger
}

// NewEngine creates a projection engine.
func NewEngine(logger *logrus.Logger) *Engine {
	return &Engine{logger: logging.OrDiscard(logger)}
}

// Project builds the Year 0–5 projection.
//
// Year 0 is the acquisition/renovation year: no income, no operating
// expenses, no debt service, and capex equal to the renovation budget.
// Year 1 earns the renovation-discounted income. From Year 2 income is the
// full post-renovation rent compounded by rent growth of Years 1..y, so it
// no longer carries the Year-1 downtime. Expenses compound from the base
// categories over the same window. Debt service is interest-only and flat.
func (e *Engine) Project(a *assumption.Assumptions, n *acquisition.InitialNumbers) (*CashFlowProjection, error) {
	if a == nil || n == nil {
		return nil, &validate.ValidationError{Field: "projection.inputs", Value: nil, Expected: "assumptions and initial numbers"}
	}

	var flows [NumYears]AnnualCashFlow
	postRent := n.Income.PostRenovationAnnualRent
	debtService := n.Financing.AnnualInterestExpense

	for y := 0; y < NumYears; y++ {
		cf := AnnualCashFlow{Year: y}

		// 1. Income
		switch {
		case y == 0:
			cf.GrossRent = 0
		case y == 1:
			cf.GrossRent = n.Income.Year1RentalIncome
		default:
			cf.GrossRent = postRent * compound(a.RentGrowth[:], 1, y)
		}
		cf.VacancyLoss = cf.GrossRent * a.VacancyRate[y]
		cf.EffectiveGrossIncome = cf.GrossRent - cf.VacancyLoss

		// 2. Operating expenses
		if y > 0 {
			cf.Expenses = n.Expenses.Scale(compound(a.ExpenseGrowth[:], 1, y))
		}
		cf.NOI = cf.EffectiveGrossIncome - cf.Expenses.Total

		// 3. Financing and capex
		if y > 0 {
			cf.DebtService = debtService
		} else {
			cf.Capex = n.RenovationCapex
		}
		cf.BeforeTaxCashFlow = cf.NOI - cf.DebtService
		cf.NetCashFlow = cf.BeforeTaxCashFlow - cf.Capex

		flows[y] = cf
	}

	// 4. Waterfall
	waterfall := RunWaterfall(flows, WaterfallTerms{
		InvestorCash:        n.Cash.InvestorCash,
		PreferredReturnRate: a.PreferredReturnRate,
		InvestorEquityShare: a.InvestorEquityShare,
	})

	projection, err := NewCashFlowProjection(n.PropertyID, a.ScenarioID, flows, waterfall)
	if err != nil {
		return nil, fmt.Errorf("cash flow projection for property %s scenario %d: %w", n.PropertyID, a.ScenarioID, err)
	}

	e.logger.WithFields(logrus.Fields{
		"property_id":       n.PropertyID,
		"scenario_id":       a.ScenarioID,
		"total_noi":         projection.Totals.NOI,
		"ending_unpaid":     projection.Totals.EndingUnpaidPreferred,
		"total_distributed": projection.Totals.TotalDistributed,
	}).Debug("Cash flows projected")
	return projection, nil
}
