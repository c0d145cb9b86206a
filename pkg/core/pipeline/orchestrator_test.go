package pipeline

import (
	"context"
	"errors"
	"testing"

	"property_valuation/pkg/core/config"
	"property_valuation/pkg/core/forecast"
	"property_valuation/pkg/core/montecarlo"
	"property_valuation/pkg/core/store"
	"property_valuation/pkg/core/validate"
	"property_valuation/pkg/models"
)

// --- Fixtures ---

var pointForecasts = map[models.Parameter]float64{
	models.Treasury10Y:            0.042,
	models.CommercialMortgageRate: 0.065,
	models.FedFundsRate:           0.050,
	models.CapRate:                0.055,
	models.VacancyRate:            0.050,
	models.RentGrowth:             0.030,
	models.ExpenseGrowth:          0.025,
	models.LTVRatio:               0.700,
	models.ClosingCostPct:         0.030,
	models.LenderReserves:         6,
	models.PropertyGrowth:         0.035,
}

func testProvider(msa string, skip ...models.Parameter) *forecast.StaticProvider {
	skipped := make(map[models.Parameter]bool)
	for _, p := range skip {
		skipped[p] = true
	}
	provider := forecast.NewStaticProvider()
	for _, p := range models.AllParameters() {
		if skipped[p] {
			continue
		}
		v := pointForecasts[p]
		provider.Add(forecast.Constant(p, p.Geography(msa), v, v*0.1, models.HorizonYears))
	}
	return provider
}

func testProperty() *models.Property {
	capex := 50000.0
	return &models.Property{
		ID:                  "prop-1",
		MSACode:             "35620",
		PurchasePrice:       1000000,
		ResidentialUnits:    10,
		AvgResidentialRent:  1200,
		RenovationMonths:    3,
		RenovationEstimate:  &capex,
		InvestorEquityShare: 0.8,
	}
}

func testOrchestrator(t *testing.T, provider forecast.Provider) (*PipelineOrchestrator, *Repository) {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.Workers = 4
	orch := NewPipelineOrchestrator(cfg, provider, nil)
	repo := NewRepository(store.NewMemoryStore())
	orch.SetRepository(repo)
	return orch, repo
}

// --- Tests ---

func TestOrchestrator_EvaluateBaseCase(t *testing.T) {
	orch, _ := testOrchestrator(t, testProvider("35620"))
	ev, err := orch.EvaluateBaseCase(context.Background(), testProperty())
	if err != nil {
		t.Fatalf("EvaluateBaseCase: %v", err)
	}
	if ev.ScenarioID != 0 || ev.Metrics == nil || ev.Projection == nil {
		t.Fatalf("incomplete evaluation: %+v", ev)
	}
	if ev.Assumptions.CapRate[1] != 0.055 {
		t.Errorf("base case cap rate = %f, want point forecast 0.055", ev.Assumptions.CapRate[1])
	}
	if ev.Metrics.CashFlows[0] != -ev.InitialNumbers.Cash.TotalCashRequired {
		t.Errorf("CF0 = %f, want -%f", ev.Metrics.CashFlows[0], ev.InitialNumbers.Cash.TotalCashRequired)
	}
}

func TestOrchestrator_Analyze(t *testing.T) {
	orch, repo := testOrchestrator(t, testProvider("35620"))
	ctx := context.Background()

	res, err := orch.Analyze(ctx, testProperty(), AnalyzeOptions{NumScenarios: 20, Seed: 42})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	s := res.Batch.Summary
	if s.NumScenarios != 20 || s.Evaluated+s.Failed != 20 || s.Evaluated == 0 {
		t.Fatalf("summary counts: num %d evaluated %d failed %d", s.NumScenarios, s.Evaluated, s.Failed)
	}
	if len(res.Batch.Evaluations) != s.Evaluated {
		t.Errorf("evaluations = %d, want %d", len(res.Batch.Evaluations), s.Evaluated)
	}
	for i := 1; i < len(res.Batch.Evaluations); i++ {
		if res.Batch.Evaluations[i-1].ScenarioID >= res.Batch.Evaluations[i].ScenarioID {
			t.Fatalf("evaluations out of scenario order at %d", i)
		}
	}
	if !(s.NPV.Min <= s.NPV.P5 && s.NPV.P5 <= s.NPV.P50 && s.NPV.P50 <= s.NPV.P95 && s.NPV.P95 <= s.NPV.Max) {
		t.Errorf("NPV quantiles not ordered: %+v", s.NPV)
	}
	if s.ProbPositiveNPV < 0 || s.ProbPositiveNPV > 1 {
		t.Errorf("ProbPositiveNPV = %f", s.ProbPositiveNPV)
	}

	total := 0
	for _, c := range s.RecommendationCounts {
		total += c
	}
	if total != s.Evaluated {
		t.Errorf("recommendation counts sum to %d, want %d", total, s.Evaluated)
	}
	total = 0
	for _, c := range s.ClassificationCounts {
		total += c
	}
	if total != s.Evaluated {
		t.Errorf("classification counts sum to %d, want %d", total, s.Evaluated)
	}

	// Persistence
	stored, err := repo.LoadSummary(ctx, res.Batch.RunID)
	if err != nil {
		t.Fatalf("LoadSummary: %v", err)
	}
	if stored.Evaluated != s.Evaluated || !stored.Totals.NPV.Equal(s.Totals.NPV) {
		t.Errorf("stored summary differs: %+v", stored)
	}
	records, err := repo.LoadScenarioMetrics(ctx, res.Batch.RunID)
	if err != nil {
		t.Fatalf("LoadScenarioMetrics: %v", err)
	}
	if len(records) != s.Evaluated {
		t.Errorf("stored scenario rows = %d, want %d", len(records), s.Evaluated)
	}
	run, err := repo.LoadResults(ctx, res.Results.RunID)
	if err != nil {
		t.Fatalf("LoadResults: %v", err)
	}
	if len(run.Scenarios) != 20 {
		t.Errorf("stored scenarios = %d, want 20", len(run.Scenarios))
	}
}

func TestOrchestrator_AnalyzeReproducible(t *testing.T) {
	orch, _ := testOrchestrator(t, testProvider("35620"))
	opts := AnalyzeOptions{NumScenarios: 15, Seed: 7}

	a, err := orch.Analyze(context.Background(), testProperty(), opts)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	b, err := orch.Analyze(context.Background(), testProperty(), opts)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Batch.Summary.NPV != b.Batch.Summary.NPV {
		t.Errorf("same seed gave different NPV distributions: %+v vs %+v", a.Batch.Summary.NPV, b.Batch.Summary.NPV)
	}
}

func TestOrchestrator_MissingForecast(t *testing.T) {
	orch, _ := testOrchestrator(t, testProvider("35620", models.VacancyRate))
	_, err := orch.Analyze(context.Background(), testProperty(), AnalyzeOptions{NumScenarios: 5, Seed: 1})
	if !errors.Is(err, forecast.ErrMissingParameter) {
		t.Errorf("err = %v, want ErrMissingParameter", err)
	}
	if _, err := orch.EvaluateBaseCase(context.Background(), testProperty()); !errors.Is(err, forecast.ErrMissingParameter) {
		t.Errorf("base case err = %v, want ErrMissingParameter", err)
	}
}

func TestOrchestrator_AnalyzeScenarioCap(t *testing.T) {
	orch, _ := testOrchestrator(t, testProvider("35620"))
	limit := orch.cfg.Simulation.MaxScenarios
	for _, n := range []int{-1, limit + 1} {
		_, err := orch.Analyze(context.Background(), testProperty(), AnalyzeOptions{NumScenarios: n, Seed: 1})
		if !validate.IsValidationError(err) {
			t.Errorf("n=%d: err = %v, want validation error", n, err)
		}
	}
}

func baseResults(t *testing.T) (*montecarlo.Results, montecarlo.Scenario) {
	t.Helper()
	bundle, err := forecast.Collect(context.Background(), testProvider("35620"), "35620", models.HorizonYears)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	base, err := montecarlo.BaseScenario(bundle, models.HorizonYears)
	if err != nil {
		t.Fatalf("BaseScenario: %v", err)
	}
	return &montecarlo.Results{RunID: "run-test", Geography: "35620"}, *base
}

func TestOrchestrator_RunBatchRecordsFailures(t *testing.T) {
	orch, _ := testOrchestrator(t, nil)
	results, base := baseResults(t)

	broken := base
	broken.ID = 2
	broken.Values[models.CapRate] = nil
	for _, id := range []int{1, 3} {
		sc := base
		sc.ID = id
		results.Scenarios = append(results.Scenarios, sc)
	}
	results.Scenarios = append(results.Scenarios, broken)

	batch, err := orch.RunBatch(context.Background(), testProperty(), results)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if batch.Summary.Evaluated != 2 || batch.Summary.Failed != 1 {
		t.Fatalf("evaluated/failed = %d/%d, want 2/1", batch.Summary.Evaluated, batch.Summary.Failed)
	}
	f := batch.Failures[0]
	if f.ScenarioID != 2 || f.Stage != StageAssumptions {
		t.Errorf("failure = %+v, want scenario 2 at %s", f, StageAssumptions)
	}
}

func TestOrchestrator_RunBatchAllFail(t *testing.T) {
	orch, _ := testOrchestrator(t, nil)
	results, base := baseResults(t)
	base.Values[models.LTVRatio] = nil
	results.Scenarios = []montecarlo.Scenario{base}

	_, err := orch.RunBatch(context.Background(), testProperty(), results)
	if !errors.Is(err, ErrBatchFailed) {
		t.Fatalf("err = %v, want ErrBatchFailed", err)
	}
	if !validate.IsValidationError(err) {
		t.Errorf("err should wrap the scenario's validation error: %v", err)
	}
}

func TestOrchestrator_RunBatchCancelled(t *testing.T) {
	orch, _ := testOrchestrator(t, nil)
	results, base := baseResults(t)
	results.Scenarios = []montecarlo.Scenario{base, base, base}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := orch.RunBatch(ctx, testProperty(), results); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDistribution(t *testing.T) {
	xs := make([]float64, 100)
	for i := range xs {
		xs[100-1-i] = float64(i + 1)
	}
	d := distribution(xs)
	if d.Min != 1 || d.Max != 100 || d.Mean != 50.5 {
		t.Errorf("distribution = %+v", d)
	}
	if !(d.P5 < d.P50 && d.P50 < d.P95) {
		t.Errorf("quantiles not increasing: %+v", d)
	}
	if xs[0] != 100 {
		t.Error("distribution must not reorder its input")
	}
	if (distribution(nil) != Distribution{}) {
		t.Error("empty distribution should be zero")
	}
	if d := distribution([]float64{3}); d.Std != 0 || d.P50 != 3 {
		t.Errorf("single-value distribution = %+v", d)
	}
}
