package valuation

import (
	"errors"
	"fmt"

	"property_valuation/pkg/core/acquisition"
	"property_valuation/pkg/core/assumption"
	"property_valuation/pkg/core/config"
	"property_valuation/pkg/core/logging"
	"property_valuation/pkg/core/projection"
	"property_valuation/pkg/core/validate"

	"github.com/sirupsen/logrus"
)

// ErrMetricsCalculation wraps any failure while computing a scenario's metrics.
var ErrMetricsCalculation = errors.New("metrics calculation failed")

// BreakEven is the Year-1 stabilized break-even report.
type BreakEven struct {
	Occupancy  float64 `json:"break_even_occupancy"`
	AnnualRent float64 `json:"break_even_annual_rent"`
	DebtYield  float64 `json:"debt_yield"`
	CashOnCash float64 `json:"cash_on_cash_year_1"`
}

// FinancialMetrics is the full valuation of one scenario.
type FinancialMetrics struct {
	PropertyID string `json:"property_id"`
	ScenarioID int    `json:"scenario_id"`

	DiscountRate float64   `json:"discount_rate"`
	CashFlows    []float64 `json:"cash_flows"`

	NPV             float64 `json:"npv"`
	IRR             float64 `json:"irr"`
	IRRConverged    bool    `json:"irr_converged"`
	MIRR            float64 `json:"mirr"`
	EquityMultiple  float64 `json:"equity_multiple"`
	PaybackYears    float64 `json:"payback_period_years"`
	AvgAnnualReturn float64 `json:"average_annual_return"`

	AvgDSCR      float64 `json:"average_dscr"`
	LTV          float64 `json:"ltv"`
	Year1CapRate float64 `json:"year_1_cap_rate"`

	BreakEven BreakEven     `json:"break_even"`
	Terminal  TerminalValue `json:"terminal_value"`

	Risk           RiskAssessment       `json:"risk"`
	Recommendation RecommendationResult `json:"recommendation"`
}

// Calculator turns a projection into financial metrics.
type Calculator struct {
	cfg    config.Config
	solver *IRRSolver
	logger *logrus.Logger
}

// NewCalculator creates a metrics calculator.
func NewCalculator(cfg config.Config, logger *logrus.Logger) *Calculator {
	return &Calculator{
		cfg:    cfg,
		solver: NewIRRSolver(cfg.IRR),
		logger: logging.OrDiscard(logger),
	}
}

// DiscountRate is the rate the calculator would pick for a scenario.
func (c *Calculator) DiscountRate(a *assumption.Assumptions) float64 {
	return DiscountRate(c.cfg.Financial, a)
}

// Calculate values one scenario at the given discount rate.
func (c *Calculator) Calculate(proj *projection.CashFlowProjection, a *assumption.Assumptions, n *acquisition.InitialNumbers, discountRate float64) (*FinancialMetrics, error) {
	if proj == nil || a == nil || n == nil {
		return nil, fmt.Errorf("%w: missing projection, assumptions or initial numbers", ErrMetricsCalculation)
	}
	if err := validate.Range("valuation.discount_rate", discountRate, -0.99, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetricsCalculation, err)
	}
	if err := validate.Positive("valuation.total_cash_required", n.Cash.TotalCashRequired); err != nil {
		return nil, fmt.Errorf("%w: scenario %d: %w", ErrMetricsCalculation, proj.ScenarioID, err)
	}

	m := &FinancialMetrics{
		PropertyID:   proj.PropertyID,
		ScenarioID:   proj.ScenarioID,
		DiscountRate: discountRate,
		LTV:          n.Financing.LTVRatio,
	}

	// 1. Exit
	holding := c.cfg.Financial.HoldingPeriodYears
	tv, err := CalculateTerminalValue(TerminalInput{
		ExitNOI:              proj.ExitNOI(),
		ExitCapRate:          a.ExitCapRate(),
		SellingCostRate:      c.cfg.Financial.SellingCostRate,
		LoanAmount:           n.Financing.LoanAmount,
		PrincipalPaydownRate: c.cfg.Financial.PrincipalPaydownRate,
		HoldingYears:         holding,
		InvestorEquityShare:  a.InvestorEquityShare,
		PurchasePrice:        n.PurchasePrice,
		PropertyGrowth:       a.PropertyGrowth[:],
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scenario %d: %w", ErrMetricsCalculation, proj.ScenarioID, err)
	}
	m.Terminal = tv

	// 2. Equity cash flows: outlay, distributions, sale in the final year
	m.CashFlows = EquityCashFlows(proj, n, tv)

	// 3. Return metrics
	m.NPV = NPV(discountRate, m.CashFlows)
	irr := c.solver.IRR(m.CashFlows)
	m.IRR, m.IRRConverged = irr.Rate, irr.Converged
	m.MIRR = c.solver.MIRR(m.CashFlows, discountRate)
	m.PaybackYears = PaybackPeriod(m.CashFlows)

	initial := -m.CashFlows[0]
	inflows := 0.0
	for _, cf := range m.CashFlows[1:] {
		if cf > 0 {
			inflows += cf
		}
	}
	m.EquityMultiple = inflows / initial
	if holding > 0 {
		m.AvgAnnualReturn = (m.EquityMultiple - 1) / float64(holding)
	}

	// 4. Debt and yield ratios
	m.AvgDSCR = AverageDSCR(proj)
	y1, w1 := proj.Year(1)
	m.Year1CapRate = y1.NOI / n.PurchasePrice
	m.BreakEven = calculateBreakEven(y1, w1, n)

	for _, v := range []struct {
		field string
		value float64
	}{
		{"valuation.npv", m.NPV},
		{"valuation.mirr", m.MIRR},
		{"valuation.equity_multiple", m.EquityMultiple},
		{"valuation.average_dscr", m.AvgDSCR},
		{"valuation.year_1_cap_rate", m.Year1CapRate},
	} {
		if err := validate.Finite(v.field, v.value); err != nil {
			return nil, fmt.Errorf("%w: scenario %d: %w", ErrMetricsCalculation, proj.ScenarioID, err)
		}
	}

	// 5. Risk, then the recommendation that reads it
	m.Risk = AssessRisk(c.cfg.Risk, RiskInput{
		IRR:            m.IRR,
		EquityMultiple: m.EquityMultiple,
		AvgDSCR:        m.AvgDSCR,
		LTV:            m.LTV,
	})
	m.Recommendation = Recommend(c.cfg.Recommendation, RecommendationInput{
		NPV:            m.NPV,
		IRR:            m.IRR,
		IRRConverged:   m.IRRConverged,
		EquityMultiple: m.EquityMultiple,
		PaybackYears:   m.PaybackYears,
		HoldingYears:   holding,
		RiskLevel:      m.Risk.Level,
	})

	c.logger.WithFields(logrus.Fields{
		"property_id":    m.PropertyID,
		"scenario_id":    m.ScenarioID,
		"npv":            m.NPV,
		"irr":            m.IRR,
		"irr_converged":  m.IRRConverged,
		"risk":           m.Risk.Level,
		"recommendation": m.Recommendation.Recommendation,
	}).Debug("Scenario valued")

	return m, nil
}

// EquityCashFlows builds the investor-level vector:
// [−total cash, Y1..Y(n−1) distributions, final distribution + net sale proceeds].
func EquityCashFlows(proj *projection.CashFlowProjection, n *acquisition.InitialNumbers, tv TerminalValue) []float64 {
	cfs := make([]float64, projection.NumYears)
	cfs[0] = -n.Cash.TotalCashRequired
	for y := 1; y < projection.NumYears; y++ {
		cfs[y] = proj.Waterfall[y].TotalDistributed
	}
	cfs[projection.NumYears-1] += tv.NetSaleProceeds
	return cfs
}

// AverageDSCR averages NOI / debt service over the years that carry debt.
func AverageDSCR(proj *projection.CashFlowProjection) float64 {
	sum, count := 0.0, 0
	for i := range proj.CashFlows {
		cf := &proj.CashFlows[i]
		if cf.DebtService > 0 {
			sum += cf.DSCR()
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func calculateBreakEven(y1 projection.AnnualCashFlow, w1 projection.WaterfallDistribution, n *acquisition.InitialNumbers) BreakEven {
	var be BreakEven
	stabilizedRent := n.Income.PostRenovationAnnualRent

	// Occupancy that covers expenses plus debt service on stabilized rent
	be.AnnualRent = y1.Expenses.Total + y1.DebtService
	if stabilizedRent > 0 {
		be.Occupancy = be.AnnualRent / stabilizedRent
	}
	if n.Financing.LoanAmount > 0 {
		be.DebtYield = y1.NOI / n.Financing.LoanAmount
	}
	if n.Cash.TotalCashRequired > 0 {
		be.CashOnCash = w1.TotalDistributed / n.Cash.TotalCashRequired
	}
	return be
}
