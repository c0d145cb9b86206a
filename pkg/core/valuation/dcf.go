package valuation

import "math"

// NPV discounts cash flows at rate, CF_0 undiscounted:
// NPV = Σ CF_t / (1+rate)^t
func NPV(rate float64, cashFlows []float64) float64 {
	npv := 0.0
	for t, cf := range cashFlows {
		npv += cf / math.Pow(1+rate, float64(t))
	}
	return npv
}

// npvDerivative is dNPV/drate = Σ −t·CF_t / (1+rate)^(t+1).
func npvDerivative(rate float64, cashFlows []float64) float64 {
	d := 0.0
	for t, cf := range cashFlows {
		if t == 0 {
			continue
		}
		d -= float64(t) * cf / math.Pow(1+rate, float64(t+1))
	}
	return d
}

// SignChanges counts sign changes in a cash-flow series, ignoring zeros.
func SignChanges(cashFlows []float64) int {
	changes := 0
	prev := 0.0
	for _, cf := range cashFlows {
		if cf == 0 {
			continue
		}
		if prev != 0 && (cf > 0) != (prev > 0) {
			changes++
		}
		prev = cf
	}
	return changes
}

// PaybackPeriod walks cumulative cash flow. In the year cumulative turns
// non-negative the result is (year − 1) + deficit / that year's inflow;
// if it never does, the series length.
func PaybackPeriod(cashFlows []float64) float64 {
	cumulative := 0.0
	for t, cf := range cashFlows {
		prev := cumulative
		cumulative += cf
		if cumulative >= 0 && t > 0 && prev < 0 {
			if cf == 0 {
				return float64(t)
			}
			return float64(t-1) + (-prev)/cf
		}
		if cumulative >= 0 && t == 0 {
			return 0
		}
	}
	return float64(len(cashFlows))
}
