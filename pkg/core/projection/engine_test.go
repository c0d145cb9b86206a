package projection

import (
	"math"
	"testing"

	"property_valuation/pkg/core/acquisition"
	"property_valuation/pkg/core/assumption"
	"property_valuation/pkg/core/config"
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

func testInputs(t *testing.T, months int, ltv float64) (*assumption.Assumptions, *acquisition.InitialNumbers) {
	t.Helper()
	a := &assumption.Assumptions{
		ScenarioID:          3,
		PropertyID:          "prop-1",
		Geography:           "35620",
		MortgageRate:        fill(0.065),
		TreasuryRate:        fill(0.042),
		FedFundsRate:        fill(0.05),
		CapRate:             fill(0.06),
		RentGrowth:          assumption.Series{0.0, 0.10, 0.03, 0.04, 0.02, 0.03},
		ExpenseGrowth:       fill(0.025),
		PropertyGrowth:      fill(0.035),
		VacancyRate:         fill(0.05),
		LTVRatio:            ltv,
		ClosingCostPct:      0.05,
		LenderReserveMonths: 6,
		InvestorEquityShare: 0.8,
		PreferredReturnRate: 0.08,
	}
	capex := 100000.0
	p := &models.Property{
		ID:                  "prop-1",
		MSACode:             "35620",
		PurchasePrice:       1000000,
		ResidentialUnits:    10,
		AvgResidentialRent:  80000.0 / 12 / 10,
		RenovationMonths:    months,
		RenovationEstimate:  &capex,
		InvestorEquityShare: 0.8,
	}
	n, err := acquisition.NewCalculator(config.Default().Financial, nil).Calculate(p, a)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	return a, n
}

func TestProject_YearZero(t *testing.T) {
	a, n := testInputs(t, 6, 0.75)
	proj, err := NewEngine(nil).Project(a, n)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	y0 := proj.CashFlows[0]
	if y0.GrossRent != 0 || y0.NOI != 0 || y0.DebtService != 0 {
		t.Errorf("year 0 should have no operations: %+v", y0)
	}
	if y0.Capex != 100000 || y0.NetCashFlow != -100000 {
		t.Errorf("year 0 capex/ncf = %.2f/%.2f, want 100000/-100000", y0.Capex, y0.NetCashFlow)
	}
	if proj.Waterfall[0].AvailableCash != 0 || proj.Waterfall[0].PreferredDue != 0 {
		t.Errorf("year 0 waterfall should be empty: %+v", proj.Waterfall[0])
	}
}

func TestProject_IncomePath(t *testing.T) {
	a, n := testInputs(t, 6, 0.75)
	proj, err := NewEngine(nil).Project(a, n)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(proj.CashFlows[1].GrossRent-45000) > tol {
		t.Errorf("year 1 gross = %.2f, want 45000", proj.CashFlows[1].GrossRent)
	}
	// Year 2 compounds the full 90,000 base by Years 1 and 2 growth, not
	// Year 1's partial income.
	want2 := 90000 * 1.10 * 1.03
	if math.Abs(proj.CashFlows[2].GrossRent-want2) > tol {
		t.Errorf("year 2 gross = %.2f, want %.2f", proj.CashFlows[2].GrossRent, want2)
	}
	want5 := 90000 * 1.10 * 1.03 * 1.04 * 1.02 * 1.03
	if math.Abs(proj.CashFlows[5].GrossRent-want5) > tol {
		t.Errorf("year 5 gross = %.2f, want %.2f", proj.CashFlows[5].GrossRent, want5)
	}
	wantExp3 := n.Expenses.Total * math.Pow(1.025, 3)
	if math.Abs(proj.CashFlows[3].Expenses.Total-wantExp3) > tol {
		t.Errorf("year 3 expenses = %.2f, want %.2f", proj.CashFlows[3].Expenses.Total, wantExp3)
	}
	for y := 1; y < NumYears; y++ {
		if proj.CashFlows[y].DebtService != n.Financing.AnnualInterestExpense {
			t.Errorf("year %d debt service = %.2f, want flat %.2f", y, proj.CashFlows[y].DebtService, n.Financing.AnnualInterestExpense)
		}
	}
}

func TestProject_WaterfallConservation(t *testing.T) {
	for _, months := range []int{0, 6, 12} {
		a, n := testInputs(t, months, 0.75)
		proj, err := NewEngine(nil).Project(a, n)
		if err != nil {
			t.Fatal(err)
		}
		for y, w := range proj.Waterfall {
			if math.Abs(w.InvestorDistribution+w.OperatorDistribution-w.AvailableCash) > tol {
				t.Errorf("months=%d year %d: investor+operator %.2f != available %.2f",
					months, y, w.InvestorDistribution+w.OperatorDistribution, w.AvailableCash)
			}
			if w.Remainder != 0 {
				t.Errorf("months=%d year %d: remainder %.4f", months, y, w.Remainder)
			}
		}
	}
}

func TestProject_UnpaidPreferredRollForward(t *testing.T) {
	// High leverage and a full renovation year leave Year 1 short of the preferred.
	a, n := testInputs(t, 12, 0.90)
	proj, err := NewEngine(nil).Project(a, n)
	if err != nil {
		t.Fatal(err)
	}
	if proj.Waterfall[1].CumulativeUnpaidPreferred <= 0 {
		t.Fatalf("expected unpaid preferred after year 1, got %.2f", proj.Waterfall[1].CumulativeUnpaidPreferred)
	}
	for y := 1; y < NumYears; y++ {
		prev := proj.Waterfall[y-1].CumulativeUnpaidPreferred
		w := proj.Waterfall[y]
		want := math.Max(0, prev+w.PreferredDue-w.PreferredPaid)
		if math.Abs(w.CumulativeUnpaidPreferred-want) > tol {
			t.Errorf("year %d unpaid = %.2f, want %.2f", y, w.CumulativeUnpaidPreferred, want)
		}
	}
}

func TestRunWaterfall_ArrearsPaidBeforeSplit(t *testing.T) {
	var flows [NumYears]AnnualCashFlow
	for y := range flows {
		flows[y].Year = y
	}
	flows[1].NetCashFlow = 0      // nothing to pay
	flows[2].NetCashFlow = 25000  // covers arrears (8,000) + due (8,000), 9,000 split
	flows[3].NetCashFlow = -10000 // negative: nothing distributed, due accrues
	flows[4].NetCashFlow = 4000   // partial payment
	flows[5].NetCashFlow = 50000

	w := RunWaterfall(flows, WaterfallTerms{InvestorCash: 100000, PreferredReturnRate: 0.08, InvestorEquityShare: 0.7})

	if w[1].PreferredPaid != 0 || w[1].CumulativeUnpaidPreferred != 8000 {
		t.Errorf("year 1 = %+v", w[1])
	}
	if w[2].PreferredPaid != 16000 || w[2].CumulativeUnpaidPreferred != 0 {
		t.Errorf("year 2 paid/unpaid = %.2f/%.2f, want 16000/0", w[2].PreferredPaid, w[2].CumulativeUnpaidPreferred)
	}
	if math.Abs(w[2].InvestorDistribution-(16000+9000*0.7)) > tol || math.Abs(w[2].OperatorDistribution-9000*0.3) > tol {
		t.Errorf("year 2 split = %.2f/%.2f", w[2].InvestorDistribution, w[2].OperatorDistribution)
	}
	if w[3].AvailableCash != 0 || w[3].CumulativeUnpaidPreferred != 8000 {
		t.Errorf("year 3 = %+v", w[3])
	}
	if w[4].PreferredPaid != 4000 || w[4].CumulativeUnpaidPreferred != 12000 || w[4].OperatorDistribution != 0 {
		t.Errorf("year 4 = %+v", w[4])
	}
	if w[5].PreferredPaid != 20000 || w[5].CumulativeUnpaidPreferred != 0 {
		t.Errorf("year 5 = %+v", w[5])
	}
}

func TestNewCashFlowProjection_RejectsMisorderedYears(t *testing.T) {
	var flows [NumYears]AnnualCashFlow
	var water [NumYears]WaterfallDistribution
	for y := range flows {
		flows[y].Year = y
		water[y].Year = y
	}
	flows[3].Year = 4
	if _, err := NewCashFlowProjection("p", 0, flows, water); err == nil {
		t.Error("expected error for misordered year")
	}
}

func TestProject_Totals(t *testing.T) {
	a, n := testInputs(t, 6, 0.75)
	proj, err := NewEngine(nil).Project(a, n)
	if err != nil {
		t.Fatal(err)
	}
	noi, dist := 0.0, 0.0
	for y := 0; y < NumYears; y++ {
		noi += proj.CashFlows[y].NOI
		dist += proj.Waterfall[y].TotalDistributed
	}
	if math.Abs(proj.Totals.NOI-noi) > tol || math.Abs(proj.Totals.TotalDistributed-dist) > tol {
		t.Errorf("totals mismatch: %+v", proj.Totals)
	}
}
