package montecarlo

import (
	"fmt"
	"math"

	"property_valuation/pkg/core/config"
	"property_valuation/pkg/core/forecast"
	"property_valuation/pkg/core/logging"
	"property_valuation/pkg/models"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// pairCorrelation is one hand-authored off-diagonal entry.
type pairCorrelation struct {
	a, b models.Parameter
	rho  float64
}

// Economic relationships between the pro-forma parameters. Pairs not listed
// are treated as uncorrelated.
var heuristicPairs = []pairCorrelation{
	// Rates move together.
	{models.Treasury10Y, models.CommercialMortgageRate, 0.85},
	{models.Treasury10Y, models.FedFundsRate, 0.70},
	{models.CommercialMortgageRate, models.FedFundsRate, 0.65},

	// Cap rates follow the cost of capital.
	{models.CapRate, models.Treasury10Y, 0.45},
	{models.CapRate, models.CommercialMortgageRate, 0.55},
	{models.CapRate, models.FedFundsRate, 0.35},

	// Vacancy
	{models.VacancyRate, models.CapRate, 0.40},
	{models.VacancyRate, models.RentGrowth, -0.55},
	{models.VacancyRate, models.PropertyGrowth, -0.45},
	{models.VacancyRate, models.Treasury10Y, 0.10},
	{models.VacancyRate, models.CommercialMortgageRate, 0.15},

	// Rent growth
	{models.RentGrowth, models.PropertyGrowth, 0.60},
	{models.RentGrowth, models.CapRate, -0.35},
	{models.RentGrowth, models.ExpenseGrowth, 0.30},
	{models.RentGrowth, models.CommercialMortgageRate, -0.15},

	// Expense growth tracks inflation, proxied by rates.
	{models.ExpenseGrowth, models.Treasury10Y, 0.20},
	{models.ExpenseGrowth, models.FedFundsRate, 0.25},
	{models.ExpenseGrowth, models.CommercialMortgageRate, 0.15},

	// Lenders tighten leverage when rates, cap rates or vacancy rise.
	{models.LTVRatio, models.CommercialMortgageRate, -0.40},
	{models.LTVRatio, models.CapRate, -0.30},
	{models.LTVRatio, models.VacancyRate, -0.25},
	{models.LTVRatio, models.PropertyGrowth, 0.30},
	{models.LTVRatio, models.Treasury10Y, -0.25},
	{models.LTVRatio, models.FedFundsRate, -0.30},

	{models.ClosingCostPct, models.CommercialMortgageRate, 0.10},
	{models.ClosingCostPct, models.LTVRatio, 0.10},

	{models.LenderReserves, models.CommercialMortgageRate, 0.35},
	{models.LenderReserves, models.VacancyRate, 0.25},
	{models.LenderReserves, models.LTVRatio, 0.20},
	{models.LenderReserves, models.FedFundsRate, 0.20},

	// Values fall when yields rise.
	{models.PropertyGrowth, models.CapRate, -0.60},
	{models.PropertyGrowth, models.CommercialMortgageRate, -0.35},
	{models.PropertyGrowth, models.Treasury10Y, -0.30},
	{models.PropertyGrowth, models.FedFundsRate, -0.20},
}

// HeuristicMatrix returns the unrepaired 11×11 matrix built from the
// economic relationships above.
func HeuristicMatrix() *mat.SymDense {
	n := models.NumParameters
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		m.SetSym(i, i, 1)
	}
	for _, pc := range heuristicPairs {
		m.SetSym(int(pc.a), int(pc.b), pc.rho)
	}
	return m
}

// Estimator builds the correlation matrix used to sample scenarios.
type Estimator struct {
	epsilon         float64
	empiricalWeight float64
	logger          *logrus.Logger
}

// NewEstimator creates an estimator from the simulation settings.
func NewEstimator(cfg config.SimulationConfig, logger *logrus.Logger) *Estimator {
	return &Estimator{
		epsilon:         cfg.PSDEpsilon,
		empiricalWeight: cfg.EmpiricalWeight,
		logger:          logging.OrDiscard(logger),
	}
}

// Estimate returns the repaired correlation matrix and the parameter names
// labelling its rows. With a positive empirical weight the heuristic matrix
// is blended with the Pearson correlation of the point-forecast paths;
// a pair whose paths are flat keeps its heuristic value.
func (e *Estimator) Estimate(bundle *forecast.Bundle) (*mat.SymDense, []string, error) {
	m := HeuristicMatrix()

	if e.empiricalWeight > 0 && bundle != nil && bundle.Complete() {
		blended := 0
		n := models.NumParameters
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				x := bundle.Forecasts[i].Values
				y := bundle.Forecasts[j].Values
				if len(x) != len(y) || len(x) < 3 {
					continue
				}
				rho := stat.Correlation(x, y, nil)
				if math.IsNaN(rho) || math.IsInf(rho, 0) {
					continue
				}
				w := e.empiricalWeight
				m.SetSym(i, j, (1-w)*m.At(i, j)+w*rho)
				blended++
			}
		}
		e.logger.WithFields(logrus.Fields{
			"geography": bundle.Geography,
			"weight":    e.empiricalWeight,
			"pairs":     blended,
		}).Debug("Blended empirical correlations")
	}

	repaired, err := RepairPSD(m, e.epsilon)
	if err != nil {
		return nil, nil, err
	}
	return repaired, models.ParameterNames(), nil
}

// RepairPSD makes a symmetric matrix a valid correlation matrix: eigenvalues
// below epsilon are clamped to epsilon, the matrix is rebuilt from the
// eigenbasis and rescaled to a unit diagonal. The result is verified with a
// Cholesky factorisation.
func RepairPSD(m *mat.SymDense, epsilon float64) (*mat.SymDense, error) {
	if epsilon <= 0 {
		epsilon = 1e-6
	}
	n := m.SymmetricDim()

	var eig mat.EigenSym
	if ok := eig.Factorize(m, true); !ok {
		return nil, fmt.Errorf("%w: eigen-decomposition failed", ErrNotPositiveDefinite)
	}
	values := eig.Values(nil)
	clamped := 0
	for i, v := range values {
		if v < epsilon {
			values[i] = epsilon
			clamped++
		}
	}

	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// R = V Λ Vᵀ
	var scaled, rebuilt mat.Dense
	scaled.Mul(&vectors, mat.NewDiagDense(n, values))
	rebuilt.Mul(&scaled, vectors.T())

	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			denom := math.Sqrt(rebuilt.At(i, i) * rebuilt.At(j, j))
			if denom <= 0 || math.IsNaN(denom) {
				return nil, fmt.Errorf("%w: non-positive diagonal at %d", ErrNotPositiveDefinite, i)
			}
			v := rebuilt.At(i, j) / denom
			if i == j {
				v = 1
			}
			out.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(out); !ok {
		return nil, fmt.Errorf("%w: %d eigenvalues clamped", ErrNotPositiveDefinite, clamped)
	}
	return out, nil
}

// MinEigenvalue returns the smallest eigenvalue of a symmetric matrix.
func MinEigenvalue(m mat.Symmetric) (float64, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(m, false); !ok {
		return 0, fmt.Errorf("%w: eigen-decomposition failed", ErrNotPositiveDefinite)
	}
	values := eig.Values(nil)
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min, nil
}

// ToRows copies a symmetric matrix into a row slice for serialisation.
func ToRows(m mat.Symmetric) [][]float64 {
	n := m.SymmetricDim()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}
