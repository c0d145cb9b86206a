package acquisition

import (
	"encoding/json"
	"math"
	"testing"

	"property_valuation/pkg/core/assumption"
	"property_valuation/pkg/core/config"
	"property_valuation/pkg/core/validate"
	"property_valuation/pkg/models"
)

const tol = 0.01

func fill(v float64) assumption.Series {
	var s assumption.Series
	for i := range s {
		s[i] = v
	}
	return s
}

func testAssumptions() *assumption.Assumptions {
	return &assumption.Assumptions{
		ScenarioID:          1,
		PropertyID:          "prop-1",
		Geography:           "35620",
		MortgageRate:        fill(0.065),
		TreasuryRate:        fill(0.042),
		FedFundsRate:        fill(0.05),
		CapRate:             fill(0.06),
		RentGrowth:          fill(0.03),
		ExpenseGrowth:       fill(0.025),
		PropertyGrowth:      fill(0.035),
		VacancyRate:         fill(0.05),
		LTVRatio:            0.75,
		ClosingCostPct:      0.05,
		LenderReserveMonths: 6,
		InvestorEquityShare: 0.8,
		PreferredReturnRate: 0.08,
	}
}

// Ten units at $666.67/month is an $80,000/yr pre-renovation rent roll.
func testProperty(months int, capex *float64) *models.Property {
	return &models.Property{
		ID:                  "prop-1",
		MSACode:             "35620",
		PurchasePrice:       1000000,
		ResidentialUnits:    10,
		AvgResidentialRent:  80000.0 / 12 / 10,
		RenovationMonths:    months,
		RenovationEstimate:  capex,
		InvestorEquityShare: 0.8,
	}
}

func TestCalculate_EndToEndExample(t *testing.T) {
	capex := 100000.0
	c := NewCalculator(config.Default().Financial, nil)

	n, err := c.Calculate(testProperty(6, &capex), testAssumptions())
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	checks := []struct {
		name      string
		got, want float64
	}{
		{"pre-renovation rent", n.Income.PreRenovationAnnualRent, 80000},
		{"post-renovation rent", n.Income.PostRenovationAnnualRent, 90000},
		{"year 1 rental income", n.Income.Year1RentalIncome, 45000},
		{"closing costs", n.ClosingCostAmount, 50000},
		{"renovation capex", n.RenovationCapex, 100000},
		{"cost basis", n.CostBasis, 1150000},
		{"loan amount", n.Financing.LoanAmount, 750000},
		{"interest expense", n.Financing.AnnualInterestExpense, 48750},
		{"lender reserves", n.Financing.LenderReserveAmount, 24375},
		{"total cash", n.Cash.TotalCashRequired, 250000 + 50000 + 100000 + 24375},
		{"investor cash", n.Cash.InvestorCash, 0.8 * 424375},
		{"expense total", n.Expenses.Total, 90000 * 0.36},
		{"property taxes", n.Expenses.PropertyTaxes, 10800},
		{"after repair value", n.Valuation.AfterRepairValue, 90000 * 0.6 / 0.06},
		{"initial cap rate", n.Valuation.InitialCapRate, (45000 - 32400) / 1000000.0},
	}
	for _, ck := range checks {
		if math.Abs(ck.got-ck.want) > tol {
			t.Errorf("%s = %.4f, want %.4f", ck.name, ck.got, ck.want)
		}
	}
	if n.CapexEstimated {
		t.Error("explicit capex should not be flagged as estimated")
	}
}

func TestCalculate_Year1IncomeBoundaries(t *testing.T) {
	c := NewCalculator(config.Default().Financial, nil)
	capex := 0.0

	n0, err := c.Calculate(testProperty(0, &capex), testAssumptions())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(n0.Income.Year1RentalIncome-n0.Income.PostRenovationAnnualRent) > tol {
		t.Errorf("months=0: year 1 income %.2f, want post-renovation rent %.2f", n0.Income.Year1RentalIncome, n0.Income.PostRenovationAnnualRent)
	}

	n12, err := c.Calculate(testProperty(12, &capex), testAssumptions())
	if err != nil {
		t.Fatal(err)
	}
	if n12.Income.Year1RentalIncome != 0 {
		t.Errorf("months=12: year 1 income %.2f, want 0", n12.Income.Year1RentalIncome)
	}
	if n12.Valuation.InitialCapRate != 0 {
		t.Errorf("initial cap rate should floor at 0, got %f", n12.Valuation.InitialCapRate)
	}

	n18, err := c.Calculate(testProperty(18, &capex), testAssumptions())
	if err != nil {
		t.Fatal(err)
	}
	if n18.Income.Year1RentalIncome != 0 {
		t.Errorf("months=18: year 1 income %.2f, want 0", n18.Income.Year1RentalIncome)
	}
}

func TestCalculate_EstimatedCapex(t *testing.T) {
	c := NewCalculator(config.Default().Financial, nil)
	n, err := c.Calculate(testProperty(6, nil), testAssumptions())
	if err != nil {
		t.Fatal(err)
	}
	want := 10 * 24000.0 * 6 / 12
	if math.Abs(n.RenovationCapex-want) > tol {
		t.Errorf("estimated capex = %.2f, want %.2f", n.RenovationCapex, want)
	}
	if !n.CapexEstimated {
		t.Error("expected CapexEstimated")
	}
	if math.Abs(n.CostBasis-(n.PurchasePrice+n.ClosingCostAmount+n.RenovationCapex)) > tol {
		t.Error("cost basis identity violated")
	}
}

func TestCalculate_NonPositivePrice(t *testing.T) {
	c := NewCalculator(config.Default().Financial, nil)
	for _, price := range []float64{0, -5} {
		p := testProperty(6, nil)
		p.PurchasePrice = price
		_, err := c.Calculate(p, testAssumptions())
		if !validate.IsValidationError(err) {
			t.Errorf("price %v: expected ValidationError, got %v", price, err)
		}
	}
}

func TestInitialNumbers_ValidateCatchesBrokenIdentity(t *testing.T) {
	c := NewCalculator(config.Default().Financial, nil)
	n, err := c.Calculate(testProperty(6, nil), testAssumptions())
	if err != nil {
		t.Fatal(err)
	}
	n.CostBasis += 5
	if err := n.Validate(); !validate.IsValidationError(err) {
		t.Errorf("expected cost basis violation, got %v", err)
	}
}

func TestCalculate_Idempotent(t *testing.T) {
	c := NewCalculator(config.Default().Financial, nil)
	p, a := testProperty(4, nil), testAssumptions()
	n1, _ := c.Calculate(p, a)
	n2, _ := c.Calculate(p, a)
	b1, _ := json.Marshal(n1)
	b2, _ := json.Marshal(n2)
	if string(b1) != string(b2) {
		t.Error("Calculate is not deterministic")
	}
}

func TestOperatingExpenses_Scale(t *testing.T) {
	e := NewOperatingExpenses(100000, config.Default().Financial.ExpenseRatios)
	s := e.Scale(1.1)
	if math.Abs(s.Total-e.Total*1.1) > tol {
		t.Errorf("scaled total %.2f, want %.2f", s.Total, e.Total*1.1)
	}
	if err := s.Validate("expenses"); err != nil {
		t.Errorf("scaled expenses invalid: %v", err)
	}
}
