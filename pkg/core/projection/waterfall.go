package projection

import (
	"math"

	"property_valuation/pkg/core/validate"
)

// WaterfallTerms are the deal terms the waterfall applies each year.
type WaterfallTerms struct {
	InvestorCash        float64 // investor's contributed equity, the preferred base
	PreferredReturnRate float64
	InvestorEquityShare float64
}

// RunWaterfall distributes each year's net cash flow. Unpaid preferred
// return carries forward and is settled before any pro-rata split.
func RunWaterfall(flows [NumYears]AnnualCashFlow, terms WaterfallTerms) [NumYears]WaterfallDistribution {
	var out [NumYears]WaterfallDistribution
	unpaid := 0.0

	for y := 0; y < NumYears; y++ {
		w := WaterfallDistribution{Year: y}

		// 1. Cash available to distribute
		w.AvailableCash = math.Max(0, flows[y].NetCashFlow)

		// 2. Preferred return owed this year plus arrears (nothing accrues in Year 0)
		if y > 0 {
			w.PreferredDue = terms.InvestorCash * terms.PreferredReturnRate
		}
		totalDue := w.PreferredDue + unpaid

		// 3. Pay what cash allows; the rest rolls forward
		w.PreferredPaid = math.Min(w.AvailableCash, totalDue)
		w.PreferredAccrued = math.Max(0, w.PreferredDue-w.PreferredPaid)
		unpaid = math.Max(0, totalDue-w.PreferredPaid)
		w.CumulativeUnpaidPreferred = unpaid

		// 4. Pro-rata split of what remains
		w.RemainingAfterPreferred = w.AvailableCash - w.PreferredPaid
		w.InvestorDistribution = w.PreferredPaid + w.RemainingAfterPreferred*terms.InvestorEquityShare
		w.OperatorDistribution = w.RemainingAfterPreferred * (1 - terms.InvestorEquityShare)
		w.TotalDistributed = w.InvestorDistribution + w.OperatorDistribution

		// 5. Reconcile
		w.Remainder = zeroResidue(w.AvailableCash-w.TotalDistributed, validate.DefaultTolerance)
		if w.Remainder == 0 {
			w.TotalDistributed = w.AvailableCash
		}

		out[y] = w
	}
	return out
}
