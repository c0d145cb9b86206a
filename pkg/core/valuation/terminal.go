package valuation

import (
	"math"

	"property_valuation/pkg/core/validate"
)

// TerminalInput is what the exit calculation needs from the upstream stages.
type TerminalInput struct {
	ExitNOI              float64
	ExitCapRate          float64
	SellingCostRate      float64
	LoanAmount           float64
	PrincipalPaydownRate float64 // straight-line, fraction of original loan per year
	HoldingYears         int
	InvestorEquityShare  float64
	PurchasePrice        float64
	PropertyGrowth       []float64 // yearly, Year 0 first
}

// TerminalValue is the sale at the end of the hold.
type TerminalValue struct {
	ExitNOI              float64 `json:"exit_noi"`
	ExitCapRate          float64 `json:"exit_cap_rate"`
	GrossValue           float64 `json:"gross_value"`
	SellingCosts         float64 `json:"selling_costs"`
	RemainingLoanBalance float64 `json:"remaining_loan_balance"`
	NetSaleProceeds      float64 `json:"net_sale_proceeds"`
	LoanShortfall        float64 `json:"loan_shortfall"`
	InvestorProceeds     float64 `json:"investor_proceeds"`
	OperatorProceeds     float64 `json:"operator_proceeds"`
	AppreciationValue    float64 `json:"appreciation_value"`
	AppreciationRate     float64 `json:"appreciation_rate"` // annualised
}

// CalculateTerminalValue prices the exit.
func CalculateTerminalValue(in TerminalInput) (TerminalValue, error) {
	if err := validate.Positive("terminal.exit_cap_rate", in.ExitCapRate); err != nil {
		return TerminalValue{}, err
	}
	if err := validate.NonNegative("terminal.loan_amount", in.LoanAmount); err != nil {
		return TerminalValue{}, err
	}

	tv := TerminalValue{ExitNOI: in.ExitNOI, ExitCapRate: in.ExitCapRate}

	// 1. Gross value = exit NOI / exit cap; a negative NOI sells for nothing
	tv.GrossValue = math.Max(0, in.ExitNOI/in.ExitCapRate)
	tv.SellingCosts = tv.GrossValue * in.SellingCostRate

	// 2. Loan balance after straight-line paydown
	tv.RemainingLoanBalance = in.LoanAmount * math.Max(0, 1-in.PrincipalPaydownRate*float64(in.HoldingYears))

	// 3. Net proceeds to equity, floored at zero; any gap is a shortfall
	net := tv.GrossValue - tv.SellingCosts - tv.RemainingLoanBalance
	if net < 0 {
		tv.LoanShortfall = -net
		net = 0
	}
	tv.NetSaleProceeds = net

	// 4. Pro-rata split
	tv.InvestorProceeds = net * in.InvestorEquityShare
	tv.OperatorProceeds = net - tv.InvestorProceeds

	// 5. Appreciation cross-check: price grown by Years 1..n property growth
	value := in.PurchasePrice
	years := 0
	for y := 1; y < len(in.PropertyGrowth); y++ {
		value *= 1 + in.PropertyGrowth[y]
		years++
	}
	tv.AppreciationValue = value
	tv.AppreciationRate = validate.CalculateCAGR(in.PurchasePrice, value, years)

	return tv, nil
}
