package montecarlo

import (
	"context"
	"fmt"
	"math"
	"time"

	"property_valuation/pkg/core/config"
	"property_valuation/pkg/core/forecast"
	"property_valuation/pkg/core/logging"
	"property_valuation/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws Monte Carlo scenarios.
type Sampler struct {
	cfg    config.SimulationConfig
	logger *logrus.Logger
}

// NewSampler creates a sampler from the simulation settings.
func NewSampler(cfg config.SimulationConfig, logger *logrus.Logger) *Sampler {
	return &Sampler{cfg: cfg, logger: logging.OrDiscard(logger)}
}

// shockSource yields one standard-normal shock per parameter.
type shockSource interface {
	draw(dst []float64)
}

type correlatedShocks struct{ dist *distmv.Normal }

func (c correlatedShocks) draw(dst []float64) { c.dist.Rand(dst) }

type independentShocks struct{ dist distuv.Normal }

func (s independentShocks) draw(dst []float64) {
	for i := range dst {
		dst[i] = s.dist.Rand()
	}
}

// Generate draws numScenarios scenarios of every parameter over horizonYears.
//
// Each year's shock vector is multivariate normal with the given correlation
// (or independent when useCorrelations is false), chained across years by an
// AR(1) so paths are persistent while every year keeps unit variance. Shocks
// are mapped onto the forecast envelope: point + z·(upper−lower)/(2·z_ci),
// clamped to the envelope and then to the parameter's realistic bounds.
func (s *Sampler) Generate(ctx context.Context, property *models.Property, bundle *forecast.Bundle, corr *mat.SymDense, numScenarios, horizonYears int, useCorrelations bool) (*Results, error) {
	if numScenarios <= 0 {
		return nil, fmt.Errorf("%w: num scenarios %d must be positive", ErrInvalidArgument, numScenarios)
	}
	if horizonYears <= 0 {
		return nil, fmt.Errorf("%w: horizon %d must be positive", ErrInvalidArgument, horizonYears)
	}
	if bundle == nil {
		return nil, fmt.Errorf("%w: no forecasts", forecast.ErrMissingParameter)
	}
	if missing := bundle.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v (geography %s)", forecast.ErrMissingParameter, missing, bundle.Geography)
	}
	for _, p := range models.AllParameters() {
		if err := bundle.Get(p).Validate(horizonYears); err != nil {
			return nil, err
		}
	}

	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	src := rand.NewSource(uint64(seed))

	var shocks shockSource
	if useCorrelations {
		if corr == nil {
			corr = HeuristicMatrix()
			repaired, err := RepairPSD(corr, s.cfg.PSDEpsilon)
			if err != nil {
				return nil, err
			}
			corr = repaired
		}
		if corr.SymmetricDim() != models.NumParameters {
			return nil, fmt.Errorf("%w: correlation matrix is %dx%d, want %dx%d",
				ErrInvalidArgument, corr.SymmetricDim(), corr.SymmetricDim(), models.NumParameters, models.NumParameters)
		}
		dist, ok := distmv.NewNormal(make([]float64, models.NumParameters), corr, src)
		if !ok {
			return nil, fmt.Errorf("%w: cholesky failed", ErrNotPositiveDefinite)
		}
		shocks = correlatedShocks{dist: dist}
	} else {
		shocks = independentShocks{dist: distuv.Normal{Mu: 0, Sigma: 1, Src: src}}
	}

	phi := s.cfg.TemporalPersistence
	innovation := math.Sqrt(1 - phi*phi)
	ciZ := s.cfg.ConfidenceZ
	if ciZ <= 0 {
		ciZ = 1.96
	}

	propertyID := ""
	if property != nil {
		propertyID = property.ID
	}
	log := s.logger.WithFields(logrus.Fields{
		"property_id":      propertyID,
		"geography":        bundle.Geography,
		"num_scenarios":    numScenarios,
		"use_correlations": useCorrelations,
	})
	log.Info("Generating Monte Carlo scenarios")
	start := time.Now()

	scenarios := make([]Scenario, numScenarios)
	eps := make([]float64, models.NumParameters)
	z := make([]float64, models.NumParameters)

	for i := 0; i < numScenarios; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scenario generation cancelled after %d scenarios: %w", i, err)
		}

		sc := Scenario{ID: i}
		for _, p := range models.AllParameters() {
			sc.Values[p] = make([]float64, horizonYears)
		}

		for y := 0; y < horizonYears; y++ {
			shocks.draw(eps)
			for k := range z {
				if y == 0 {
					z[k] = eps[k]
				} else {
					z[k] = phi*z[k] + innovation*eps[k]
				}
			}
			for _, p := range models.AllParameters() {
				sc.Values[p][y] = mapShock(bundle.Get(p), p, y, z[p], ciZ)
			}
		}

		sc.Summary = Summarize(sc.Values)
		scenarios[i] = sc
	}

	results := &Results{
		RunID:           uuid.NewString(),
		PropertyID:      propertyID,
		Geography:       bundle.Geography,
		NumScenarios:    numScenarios,
		HorizonYears:    horizonYears,
		UseCorrelations: useCorrelations,
		Seed:            seed,
		ParameterNames:  models.ParameterNames(),
		Scenarios:       scenarios,
		GeneratedAt:     time.Now().UTC(),
	}
	if useCorrelations {
		results.CorrelationMatrix = ToRows(corr)
	}
	PostProcess(results)

	log.WithFields(logrus.Fields{
		"run_id":      results.RunID,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Monte Carlo scenarios generated")
	return results, nil
}

// mapShock converts a standard-normal shock into a parameter value for year y.
func mapShock(f *forecast.Forecast, p models.Parameter, y int, z, ciZ float64) float64 {
	lower, upper := f.LowerBound[y], f.UpperBound[y]
	sigma := (upper - lower) / (2 * ciZ)
	v := f.Values[y] + z*sigma
	if v < lower {
		v = lower
	}
	if v > upper {
		v = upper
	}
	return p.Bounds().Clamp(v)
}

// BaseScenario builds the deterministic scenario from the point forecasts,
// clamped to each parameter's realistic bounds.
func BaseScenario(bundle *forecast.Bundle, horizonYears int) (*Scenario, error) {
	if bundle == nil || !bundle.Complete() {
		var missing []string
		if bundle != nil {
			missing = bundle.Missing()
		}
		return nil, fmt.Errorf("%w: %v", forecast.ErrMissingParameter, missing)
	}
	sc := &Scenario{ID: 0}
	for _, p := range models.AllParameters() {
		f := bundle.Get(p)
		if err := f.Validate(horizonYears); err != nil {
			return nil, err
		}
		sc.Values[p] = make([]float64, horizonYears)
		for y := 0; y < horizonYears; y++ {
			sc.Values[p][y] = p.Bounds().Clamp(f.Values[y])
		}
	}
	sc.Summary = Summarize(sc.Values)
	return sc, nil
}
