package acquisition

import (
	"fmt"
	"math"

	"property_valuation/pkg/core/assumption"
	"property_valuation/pkg/core/config"
	"property_valuation/pkg/core/logging"
	"property_valuation/pkg/core/validate"
	"property_valuation/pkg/models"

	"github.com/sirupsen/logrus"
)

// Calculator derives InitialNumbers.
type Calculator struct {
	cfg    config.FinancialConfig
	logger *logrus.Logger
}

// NewCalculator creates a calculator from the financial constants.
func NewCalculator(cfg config.FinancialConfig, logger *logrus.Logger) *Calculator {
	return &Calculator{cfg: cfg, logger: logging.OrDiscard(logger)}
}

// EstimateRenovationCapex is units × cost per unit × months/12.
func EstimateRenovationCapex(units int, costPerUnit float64, months int) float64 {
	return float64(units) * costPerUnit * float64(months) / 12.0
}

// OperableFraction is the share of Year 1 the property earns rent:
// (12 − months)/12, zero once renovation spans the whole year.
func OperableFraction(months int) float64 {
	if months <= 0 {
		return 1
	}
	if months >= 12 {
		return 0
	}
	return float64(12-months) / 12.0
}

// Calculate builds the acquisition snapshot for a property under a scenario.
func (c *Calculator) Calculate(property *models.Property, a *assumption.Assumptions) (*InitialNumbers, error) {
	if property == nil || a == nil {
		return nil, &validate.ValidationError{Field: "initial_numbers.inputs", Value: nil, Expected: "property and assumptions"}
	}
	if err := validate.Positive("property.purchase_price", property.PurchasePrice); err != nil {
		return nil, err
	}
	if err := property.Validate(); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	price := property.PurchasePrice
	n := &InitialNumbers{
		PropertyID:    property.ID,
		ScenarioID:    a.ScenarioID,
		PurchasePrice: price,
	}

	// 1. Loan sizing
	loan := price * a.LTVRatio
	n.Financing = Financing{
		LoanAmount:            loan,
		LTVRatio:              a.LTVRatio,
		InterestRate:          a.MortgageRate[1],
		AnnualInterestExpense: loan * a.MortgageRate[1], // interest-only, Year-1 rate
		LenderReserveMonths:   a.LenderReserveMonths,
	}
	n.Financing.LenderReserveAmount = n.Financing.AnnualInterestExpense * (a.LenderReserveMonths / 12.0)

	// 2. Closing costs and renovation capex
	n.ClosingCostAmount = price * a.ClosingCostPct
	if property.RenovationEstimate != nil {
		n.RenovationCapex = *property.RenovationEstimate
	} else {
		n.RenovationCapex = EstimateRenovationCapex(property.TotalUnits(), c.cfg.RenovationCostPerUnit, property.RenovationMonths)
		n.CapexEstimated = true
	}
	n.CostBasis = price + n.ClosingCostAmount + n.RenovationCapex

	// 3. Cash required at close and the investor/operator split
	down := price - loan
	total := down + n.ClosingCostAmount + n.RenovationCapex + n.Financing.LenderReserveAmount
	investor := total * a.InvestorEquityShare
	n.Cash = CashRequirement{
		DownPayment:       down,
		ClosingCosts:      n.ClosingCostAmount,
		RenovationCapex:   n.RenovationCapex,
		LenderReserves:    n.Financing.LenderReserveAmount,
		TotalCashRequired: total,
		InvestorCash:      investor,
		OperatorCash:      total - investor,
		SelfCashAmount:    total * a.SelfCashPct,
	}

	// 4. Income: no rent while units are down, full post-renovation rent after
	preRent := property.MonthlyGrossRent() * 12
	postRent := preRent * c.cfg.RentBumpMultiplier
	fraction := OperableFraction(property.RenovationMonths)
	n.Income = IncomeStructure{
		PreRenovationAnnualRent:  preRent,
		PostRenovationAnnualRent: postRent,
		RenovationMonths:         property.RenovationMonths,
		OperableFraction:         fraction,
		Year1RentalIncome:        postRent * fraction,
	}

	// 5. Operating expenses as ratios of post-renovation rent
	n.Expenses = NewOperatingExpenses(postRent, c.cfg.ExpenseRatios)

	// 6. Valuation
	// ARV = stabilised NOI / Year-1 cap rate
	stabilizedNOI := postRent * (1 - c.cfg.AssumedExpenseRatio)
	if a.CapRate[1] > 0 {
		n.Valuation.AfterRepairValue = stabilizedNOI / a.CapRate[1]
	}
	n.Valuation.InitialCapRate = math.Max(0, (n.Income.Year1RentalIncome-n.Expenses.Total)/price)

	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("initial numbers for property %s scenario %d: %w", property.ID, a.ScenarioID, err)
	}

	c.logger.WithFields(logrus.Fields{
		"property_id": property.ID,
		"scenario_id": a.ScenarioID,
		"cost_basis":  n.CostBasis,
		"loan_amount": loan,
	}).Debug("Initial numbers calculated")
	return n, nil
}
