package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"property_valuation/pkg/core/acquisition"
	"property_valuation/pkg/core/assumption"
	"property_valuation/pkg/core/config"
	"property_valuation/pkg/core/forecast"
	"property_valuation/pkg/core/logging"
	"property_valuation/pkg/core/montecarlo"
	"property_valuation/pkg/core/projection"
	"property_valuation/pkg/core/validate"
	"property_valuation/pkg/core/valuation"
	"property_valuation/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrBatchFailed is returned when no scenario in a batch could be evaluated.
var ErrBatchFailed = errors.New("every scenario in the batch failed")

// Pipeline stages, used to tag failures.
const (
	StageAssumptions = "assumptions"
	StageAcquisition = "acquisition"
	StageProjection  = "projection"
	StageMetrics     = "metrics"
)

// StageError tags a scenario failure with the stage that raised it.
type StageError struct {
	Stage      string
	ScenarioID int
	PropertyID string
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: scenario %d property %s: %v", e.Stage, e.ScenarioID, e.PropertyID, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ScenarioEvaluation is the output of all four stages for one scenario.
type ScenarioEvaluation struct {
	ScenarioID     int                             `json:"scenario_id"`
	Classification montecarlo.MarketClassification `json:"market_classification"`
	Assumptions    *assumption.Assumptions         `json:"assumptions"`
	InitialNumbers *acquisition.InitialNumbers     `json:"initial_numbers"`
	Projection     *projection.CashFlowProjection  `json:"projection"`
	Metrics        *valuation.FinancialMetrics     `json:"metrics"`
}

// ScenarioFailure records a scenario the batch skipped.
type ScenarioFailure struct {
	ScenarioID int    `json:"scenario_id"`
	Stage      string `json:"stage"`
	Error      string `json:"error"`
}

// BatchResult is a valued Monte Carlo batch. Evaluations are in scenario
// order and exclude failures.
type BatchResult struct {
	RunID       string                `json:"run_id"`
	Summary     *BatchSummary         `json:"summary"`
	Evaluations []*ScenarioEvaluation `json:"evaluations"`
	Failures    []ScenarioFailure     `json:"failures,omitempty"`
}

// AnalysisResult is the output of a full Analyze run.
type AnalysisResult struct {
	Results *montecarlo.Results `json:"monte_carlo"`
	Batch   *BatchResult        `json:"batch"`
}

// AnalyzeOptions override the configured simulation settings for one run.
// Zero values keep the configuration. NumScenarios is capped by
// Simulation.MaxScenarios.
type AnalyzeOptions struct {
	NumScenarios    int
	Seed            int64
	UseCorrelations *bool
}

// PipelineOrchestrator manages the end-to-end data flow:
// Forecasts -> Correlation -> Scenarios -> Assumptions -> Initial Numbers ->
// Projection -> Metrics -> Storage
type PipelineOrchestrator struct {
	cfg       config.Config
	provider  forecast.Provider
	estimator *montecarlo.Estimator
	mapper    *assumption.Mapper
	acquirer  *acquisition.Calculator
	engine    *projection.Engine
	metrics   *valuation.Calculator
	repo      *Repository
	logger    *logrus.Logger
}

// NewPipelineOrchestrator creates a new orchestrator with all required dependencies.
// provider may be nil when only EvaluateScenario and RunBatch are used.
func NewPipelineOrchestrator(cfg config.Config, provider forecast.Provider, logger *logrus.Logger) *PipelineOrchestrator {
	logger = logging.OrDiscard(logger)
	return &PipelineOrchestrator{
		cfg:       cfg,
		provider:  provider,
		estimator: montecarlo.NewEstimator(cfg.Simulation, logger),
		mapper:    assumption.NewMapper(cfg.Financial),
		acquirer:  acquisition.NewCalculator(cfg.Financial, logger),
		engine:    projection.NewEngine(logger),
		metrics:   valuation.NewCalculator(cfg, logger),
		logger:    logger,
	}
}

// SetRepository enables persistence of results, metrics and summaries.
func (p *PipelineOrchestrator) SetRepository(repo *Repository) {
	p.repo = repo
}

// Repository returns the configured repository, or nil.
func (p *PipelineOrchestrator) Repository() *Repository {
	return p.repo
}

// EvaluateScenario runs the four deterministic stages on one scenario.
func (p *PipelineOrchestrator) EvaluateScenario(property *models.Property, scenario *montecarlo.Scenario) (*ScenarioEvaluation, error) {
	if property == nil || scenario == nil {
		return nil, errors.New("evaluate: property and scenario are required")
	}
	fail := func(stage string, err error) error {
		return &StageError{Stage: stage, ScenarioID: scenario.ID, PropertyID: property.ID, Err: err}
	}

	// 1. Assumptions
	a, err := p.mapper.Map(scenario, property)
	if err != nil {
		return nil, fail(StageAssumptions, err)
	}

	// 2. Initial numbers
	n, err := p.acquirer.Calculate(property, a)
	if err != nil {
		return nil, fail(StageAcquisition, err)
	}

	// 3. Cash flows and waterfall
	proj, err := p.engine.Project(a, n)
	if err != nil {
		return nil, fail(StageProjection, err)
	}

	// 4. Metrics
	m, err := p.metrics.Calculate(proj, a, n, p.metrics.DiscountRate(a))
	if err != nil {
		return nil, fail(StageMetrics, err)
	}

	return &ScenarioEvaluation{
		ScenarioID:     scenario.ID,
		Classification: scenario.Summary.Classification,
		Assumptions:    a,
		InitialNumbers: n,
		Projection:     proj,
		Metrics:        m,
	}, nil
}

// RunBatch values every scenario of a generated batch on a bounded worker
// pool. A failing scenario is recorded and skipped; cancellation of ctx
// stops the batch.
func (p *PipelineOrchestrator) RunBatch(ctx context.Context, property *models.Property, results *montecarlo.Results) (*BatchResult, error) {
	if property == nil || results == nil {
		return nil, errors.New("batch: property and results are required")
	}
	start := time.Now()
	runID := results.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := p.logger.WithFields(logrus.Fields{
		"run_id":      runID,
		"property_id": property.ID,
		"scenarios":   len(results.Scenarios),
	})
	log.Info("Starting batch valuation")

	evals := make([]*ScenarioEvaluation, len(results.Scenarios))
	errs := make([]error, len(results.Scenarios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i := range results.Scenarios {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ev, err := p.EvaluateScenario(property, &results.Scenarios[i])
			if err != nil {
				errs[i] = err
				return nil
			}
			evals[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch %s cancelled: %w", runID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch %s cancelled: %w", runID, err)
	}

	// Collect in scenario order
	batch := &BatchResult{RunID: runID}
	var firstErr error
	for i, ev := range evals {
		if ev != nil {
			batch.Evaluations = append(batch.Evaluations, ev)
			continue
		}
		err := errs[i]
		if firstErr == nil {
			firstErr = err
		}
		failure := ScenarioFailure{ScenarioID: results.Scenarios[i].ID, Error: err.Error()}
		var se *StageError
		if errors.As(err, &se) {
			failure.Stage = se.Stage
		}
		batch.Failures = append(batch.Failures, failure)
		log.WithFields(logrus.Fields{
			"scenario_id": failure.ScenarioID,
			"stage":       failure.Stage,
		}).WithError(err).Warn("Scenario skipped")
	}
	if len(batch.Evaluations) == 0 && len(results.Scenarios) > 0 {
		return nil, fmt.Errorf("%w: run %s: %w", ErrBatchFailed, runID, firstErr)
	}

	batch.Summary = Summarize(runID, property.ID, results, batch.Evaluations, batch.Failures)

	if p.repo != nil {
		if err := p.repo.SaveScenarioMetrics(ctx, runID, batch.Evaluations); err != nil {
			return nil, fmt.Errorf("storage failed: %w", err)
		}
		if err := p.repo.SaveSummary(ctx, batch.Summary); err != nil {
			return nil, fmt.Errorf("storage failed: %w", err)
		}
	}

	log.WithFields(logrus.Fields{
		"evaluated": batch.Summary.Evaluated,
		"failed":    batch.Summary.Failed,
		"npv_mean":  batch.Summary.NPV.Mean,
		"elapsed":   time.Since(start).String(),
	}).Info("Batch valuation complete")
	return batch, nil
}

// Analyze runs the whole chain for a property: forecasts, correlation
// estimate, scenario generation and batch valuation.
func (p *PipelineOrchestrator) Analyze(ctx context.Context, property *models.Property, opts AnalyzeOptions) (*AnalysisResult, error) {
	if property == nil {
		return nil, errors.New("analyze: property is required")
	}
	if err := property.Validate(); err != nil {
		return nil, err
	}
	if p.provider == nil {
		return nil, fmt.Errorf("%w: no forecast provider configured", forecast.ErrMissingParameter)
	}

	sim := p.cfg.Simulation
	if opts.NumScenarios < 0 || (sim.MaxScenarios > 0 && opts.NumScenarios > sim.MaxScenarios) {
		return nil, &validate.ValidationError{
			Field:    "num_scenarios",
			Value:    opts.NumScenarios,
			Expected: fmt.Sprintf("within [0, %d]", sim.MaxScenarios),
		}
	}
	if opts.NumScenarios > 0 {
		sim.NumScenarios = opts.NumScenarios
	}
	if opts.Seed != 0 {
		sim.Seed = opts.Seed
	}
	if opts.UseCorrelations != nil {
		sim.UseCorrelations = *opts.UseCorrelations
	}

	// 1. Forecasts
	bundle, err := forecast.Collect(ctx, p.provider, property.MSACode, sim.HorizonYears)
	if err != nil {
		return nil, fmt.Errorf("forecasts: property %s: %w", property.ID, err)
	}

	// 2. Correlation
	corr, _, err := p.estimator.Estimate(bundle)
	if err != nil {
		return nil, fmt.Errorf("correlation: property %s: %w", property.ID, err)
	}

	// 3. Scenarios
	results, err := montecarlo.NewSampler(sim, p.logger).Generate(ctx, property, bundle, corr, sim.NumScenarios, sim.HorizonYears, sim.UseCorrelations)
	if err != nil {
		return nil, fmt.Errorf("scenarios: property %s: %w", property.ID, err)
	}
	if p.repo != nil {
		if err := p.repo.SaveResults(ctx, results); err != nil {
			return nil, fmt.Errorf("storage failed: %w", err)
		}
	}

	// 4. Valuation
	batch, err := p.RunBatch(ctx, property, results)
	if err != nil {
		return nil, err
	}
	return &AnalysisResult{Results: results, Batch: batch}, nil
}

// EvaluateBaseCase values the property on the point forecasts alone.
func (p *PipelineOrchestrator) EvaluateBaseCase(ctx context.Context, property *models.Property) (*ScenarioEvaluation, error) {
	if property == nil {
		return nil, errors.New("base case: property is required")
	}
	if err := property.Validate(); err != nil {
		return nil, err
	}
	if p.provider == nil {
		return nil, fmt.Errorf("%w: no forecast provider configured", forecast.ErrMissingParameter)
	}
	horizon := p.cfg.Simulation.HorizonYears
	bundle, err := forecast.Collect(ctx, p.provider, property.MSACode, horizon)
	if err != nil {
		return nil, fmt.Errorf("forecasts: property %s: %w", property.ID, err)
	}
	scenario, err := montecarlo.BaseScenario(bundle, horizon)
	if err != nil {
		return nil, fmt.Errorf("base scenario: property %s: %w", property.ID, err)
	}
	return p.EvaluateScenario(property, scenario)
}

func (p *PipelineOrchestrator) workers() int {
	if p.cfg.Simulation.Workers > 0 {
		return p.cfg.Simulation.Workers
	}
	return runtime.NumCPU()
}
