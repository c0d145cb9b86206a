package valuation

import (
	"math"

	"property_valuation/pkg/core/config"
)

// IRRResult tags a solved rate with whether the solver converged. A rate of
// 0 with Converged false means undetermined, not a zero return.
type IRRResult struct {
	Rate       float64 `json:"rate"`
	Converged  bool    `json:"converged"`
	Iterations int     `json:"iterations"`
}

// IRRSolver finds internal rates of return by Newton-Raphson.
type IRRSolver struct {
	cfg config.IRRConfig
}

// NewIRRSolver creates a solver with the configured guess, iteration cap,
// precision and clamp.
func NewIRRSolver(cfg config.IRRConfig) *IRRSolver {
	return &IRRSolver{cfg: cfg}
}

// IRR solves NPV(r) = 0.
//
// Each step is clamped into [LowerClamp, UpperClamp]. A zero derivative
// stops the search at the current guess. A final guess outside
// (−100%, UpperClamp) is reported as Rate 0, not converged.
func (s *IRRSolver) IRR(cashFlows []float64) IRRResult {
	if len(cashFlows) < 2 || SignChanges(cashFlows) == 0 {
		return IRRResult{}
	}

	guess := s.cfg.InitialGuess
	converged := false
	i := 0
	for ; i < s.cfg.MaxIterations; i++ {
		npv := NPV(guess, cashFlows)
		if math.Abs(npv) < s.cfg.Precision {
			converged = true
			break
		}
		d := npvDerivative(guess, cashFlows)
		if d == 0 || math.IsNaN(d) {
			break
		}
		guess = clamp(guess-npv/d, s.cfg.LowerClamp, s.cfg.UpperClamp)
	}

	if math.IsNaN(guess) || guess <= -1 || guess >= s.cfg.UpperClamp {
		return IRRResult{Rate: 0, Converged: false, Iterations: i}
	}
	return IRRResult{Rate: guess, Converged: converged, Iterations: i}
}

// MIRR discounts negative flows to t=0 and compounds positive flows to the
// final period at the same rate:
// MIRR = (FV_pos / |PV_neg|)^(1/n) − 1
// It returns 0 when either leg is empty or the result leaves (−100%, UpperClamp).
func (s *IRRSolver) MIRR(cashFlows []float64, rate float64) float64 {
	n := len(cashFlows) - 1
	if n < 1 {
		return 0
	}
	pvNeg, fvPos := 0.0, 0.0
	for t, cf := range cashFlows {
		if cf < 0 {
			pvNeg += cf / math.Pow(1+rate, float64(t))
		} else {
			fvPos += cf * math.Pow(1+rate, float64(n-t))
		}
	}
	if pvNeg == 0 || fvPos <= 0 {
		return 0
	}
	mirr := math.Pow(fvPos/math.Abs(pvNeg), 1/float64(n)) - 1
	if math.IsNaN(mirr) || mirr <= -1 || mirr >= s.cfg.UpperClamp {
		return 0
	}
	return mirr
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
