// Package acquisition computes the acquisition and financing snapshot of a
// deal: loan sizing, cash requirement, renovation capex, Year-1 income and
// the operating expense breakdown.
package acquisition

import (
	"property_valuation/pkg/core/config"
	"property_valuation/pkg/core/validate"
)

// =============================================================================
// OPERATING EXPENSES
// =============================================================================

// OperatingExpenses are the seven expense categories plus their total.
type OperatingExpenses struct {
	PropertyTaxes       float64 `json:"property_taxes"`
	Insurance           float64 `json:"insurance"`
	Utilities           float64 `json:"utilities"`
	RepairsMaintenance  float64 `json:"repairs_maintenance"`
	PropertyManagement  float64 `json:"property_management"`
	Administrative      float64 `json:"administrative"`
	ReplacementReserves float64 `json:"replacement_reserves"`
	Total               float64 `json:"total"`
}

// NewOperatingExpenses applies the configured ratios to a rent base.
func NewOperatingExpenses(rent float64, r config.ExpenseRatios) OperatingExpenses {
	e := OperatingExpenses{
		PropertyTaxes:       rent * r.PropertyTaxes,
		Insurance:           rent * r.Insurance,
		Utilities:           rent * r.Utilities,
		RepairsMaintenance:  rent * r.RepairsMaintenance,
		PropertyManagement:  rent * r.PropertyManagement,
		Administrative:      rent * r.Administrative,
		ReplacementReserves: rent * r.ReplacementReserves,
	}
	e.Total = e.sum()
	return e
}

// Lines returns the seven categories in reporting order.
func (e OperatingExpenses) Lines() [7]float64 {
	return [7]float64{
		e.PropertyTaxes, e.Insurance, e.Utilities, e.RepairsMaintenance,
		e.PropertyManagement, e.Administrative, e.ReplacementReserves,
	}
}

// Scale multiplies every category by factor.
func (e OperatingExpenses) Scale(factor float64) OperatingExpenses {
	out := OperatingExpenses{
		PropertyTaxes:       e.PropertyTaxes * factor,
		Insurance:           e.Insurance * factor,
		Utilities:           e.Utilities * factor,
		RepairsMaintenance:  e.RepairsMaintenance * factor,
		PropertyManagement:  e.PropertyManagement * factor,
		Administrative:      e.Administrative * factor,
		ReplacementReserves: e.ReplacementReserves * factor,
	}
	out.Total = out.sum()
	return out
}

func (e OperatingExpenses) sum() float64 {
	total := 0.0
	for _, v := range e.Lines() {
		total += v
	}
	return total
}

// Validate checks the categories are non-negative and sum to Total.
func (e OperatingExpenses) Validate(field string) error {
	names := [7]string{
		"property_taxes", "insurance", "utilities", "repairs_maintenance",
		"property_management", "administrative", "replacement_reserves",
	}
	lines := e.Lines()
	for i, v := range lines {
		if err := validate.NonNegative(field+"."+names[i], v); err != nil {
			return err
		}
	}
	return validate.Sum(field+".total", e.Total, validate.DefaultTolerance, lines[:]...)
}

// =============================================================================
// INITIAL NUMBERS
// =============================================================================

// Financing is the loan sizing.
type Financing struct {
	LoanAmount            float64 `json:"loan_amount"`
	LTVRatio              float64 `json:"ltv_ratio"`
	InterestRate          float64 `json:"interest_rate"`
	AnnualInterestExpense float64 `json:"annual_interest_expense"`
	LenderReserveMonths   float64 `json:"lender_reserve_months"`
	LenderReserveAmount   float64 `json:"lender_reserve_amount"`
}

// CashRequirement is the equity the deal needs at close and how it splits.
type CashRequirement struct {
	DownPayment       float64 `json:"down_payment"`
	ClosingCosts      float64 `json:"closing_costs"`
	RenovationCapex   float64 `json:"renovation_capex"`
	LenderReserves    float64 `json:"lender_reserves"`
	TotalCashRequired float64 `json:"total_cash_required"`
	InvestorCash      float64 `json:"investor_cash"`
	OperatorCash      float64 `json:"operator_cash"`
	SelfCashAmount    float64 `json:"self_cash_amount"`
}

// ValuationSnapshot is the value view at acquisition.
type ValuationSnapshot struct {
	AfterRepairValue float64 `json:"after_repair_value"`
	InitialCapRate   float64 `json:"initial_cap_rate"`
}

// IncomeStructure is the rent roll before and after renovation.
type IncomeStructure struct {
	PreRenovationAnnualRent  float64 `json:"pre_renovation_annual_rent"`
	PostRenovationAnnualRent float64 `json:"post_renovation_annual_rent"`
	RenovationMonths         int     `json:"renovation_months"`
	OperableFraction         float64 `json:"operable_fraction"`
	Year1RentalIncome        float64 `json:"year_1_rental_income"`
}

// InitialNumbers is the acquisition snapshot for one (property, scenario).
type InitialNumbers struct {
	PropertyID string `json:"property_id"`
	ScenarioID int    `json:"scenario_id"`

	PurchasePrice     float64 `json:"purchase_price"`
	ClosingCostAmount float64 `json:"closing_cost_amount"`
	RenovationCapex   float64 `json:"renovation_capex"`
	CapexEstimated    bool    `json:"capex_estimated"`
	CostBasis         float64 `json:"cost_basis"`

	Financing Financing         `json:"financing"`
	Cash      CashRequirement   `json:"cash"`
	Valuation ValuationSnapshot `json:"valuation"`
	Income    IncomeStructure   `json:"income"`
	Expenses  OperatingExpenses `json:"operating_expenses"`
}

// Validate enforces the snapshot identities. Any failure is fatal to the
// scenario.
func (n *InitialNumbers) Validate() error {
	tol := validate.DefaultTolerance

	if err := validate.Positive("initial_numbers.purchase_price", n.PurchasePrice); err != nil {
		return err
	}
	nonNegative := []struct {
		field string
		value float64
	}{
		{"initial_numbers.closing_cost_amount", n.ClosingCostAmount},
		{"initial_numbers.renovation_capex", n.RenovationCapex},
		{"initial_numbers.loan_amount", n.Financing.LoanAmount},
		{"initial_numbers.lender_reserves", n.Financing.LenderReserveAmount},
		{"initial_numbers.year_1_rental_income", n.Income.Year1RentalIncome},
	}
	for _, c := range nonNegative {
		if err := validate.NonNegative(c.field, c.value); err != nil {
			return err
		}
	}

	// 1. Cost basis = price + closing + capex
	if err := validate.Sum("initial_numbers.cost_basis", n.CostBasis, tol,
		n.PurchasePrice, n.ClosingCostAmount, n.RenovationCapex); err != nil {
		return err
	}

	// 2. Loan never exceeds price
	if err := validate.AtMost("initial_numbers.loan_amount", n.Financing.LoanAmount, n.PurchasePrice); err != nil {
		return err
	}

	// 3. Total cash = down payment + closing + capex + reserves
	c := n.Cash
	if err := validate.Sum("initial_numbers.total_cash_required", c.TotalCashRequired, tol,
		c.DownPayment, c.ClosingCosts, c.RenovationCapex, c.LenderReserves); err != nil {
		return err
	}

	// 4. Investor + operator = total
	if err := validate.Sum("initial_numbers.cash_split", c.TotalCashRequired, tol, c.InvestorCash, c.OperatorCash); err != nil {
		return err
	}

	// 5. Expense lines sum to total
	if err := n.Expenses.Validate("initial_numbers.operating_expenses"); err != nil {
		return err
	}

	// 6. Year-1 income never exceeds stabilised rent
	if err := validate.AtMost("initial_numbers.year_1_rental_income", n.Income.Year1RentalIncome, n.Income.PostRenovationAnnualRent+tol); err != nil {
		return err
	}
	return nil
}
