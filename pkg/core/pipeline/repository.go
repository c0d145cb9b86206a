package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"property_valuation/pkg/core/forecast"
	"property_valuation/pkg/core/montecarlo"
	"property_valuation/pkg/core/store"
	"property_valuation/pkg/core/valuation"
)

// ScenarioRecord is the persisted per-scenario valuation.
type ScenarioRecord struct {
	RunID          string                          `json:"run_id"`
	ScenarioID     int                             `json:"scenario_id"`
	Classification montecarlo.MarketClassification `json:"market_classification"`
	Metrics        *valuation.FinancialMetrics     `json:"metrics"`
}

// Repository is the typed persistence layer over a RowStore.
type Repository struct {
	rows      store.RowStore
	forecasts *forecast.StoreProvider
}

// NewRepository wraps a row store.
func NewRepository(rows store.RowStore) *Repository {
	return &Repository{rows: rows, forecasts: forecast.NewStoreProvider(rows)}
}

// Forecasts returns a provider reading the stored forecasts.
func (r *Repository) Forecasts() *forecast.StoreProvider {
	return r.forecasts
}

// SaveForecasts stores forecasts keyed by parameter and geography.
func (r *Repository) SaveForecasts(ctx context.Context, forecasts []*forecast.Forecast) error {
	for _, f := range forecasts {
		if err := r.forecasts.Save(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// SaveResults stores a generated Monte Carlo batch under its run id.
func (r *Repository) SaveResults(ctx context.Context, results *montecarlo.Results) error {
	if err := store.PutValue(ctx, r.rows, store.TableMonteCarloRuns, results.RunID, results); err != nil {
		return fmt.Errorf("failed to save run %s: %w", results.RunID, err)
	}
	return nil
}

// LoadResults loads a stored Monte Carlo batch.
func (r *Repository) LoadResults(ctx context.Context, runID string) (*montecarlo.Results, error) {
	var results montecarlo.Results
	if err := store.GetValue(ctx, r.rows, store.TableMonteCarloRuns, runID, &results); err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return &results, nil
}

// SaveSummary stores a batch summary under its run id.
func (r *Repository) SaveSummary(ctx context.Context, summary *BatchSummary) error {
	if err := store.PutValue(ctx, r.rows, store.TableBatchSummaries, summary.RunID, summary); err != nil {
		return fmt.Errorf("failed to save summary %s: %w", summary.RunID, err)
	}
	return nil
}

// LoadSummary loads a stored batch summary.
func (r *Repository) LoadSummary(ctx context.Context, runID string) (*BatchSummary, error) {
	var summary BatchSummary
	if err := store.GetValue(ctx, r.rows, store.TableBatchSummaries, runID, &summary); err != nil {
		return nil, fmt.Errorf("failed to load summary %s: %w", runID, err)
	}
	return &summary, nil
}

// ListSummaries returns the run ids with a stored summary, sorted.
func (r *Repository) ListSummaries(ctx context.Context) ([]string, error) {
	rows, err := r.rows.List(ctx, store.TableBatchSummaries)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// SaveScenarioMetrics stores one row per evaluated scenario.
func (r *Repository) SaveScenarioMetrics(ctx context.Context, runID string, evals []*ScenarioEvaluation) error {
	for _, ev := range evals {
		rec := ScenarioRecord{
			RunID:          runID,
			ScenarioID:     ev.ScenarioID,
			Classification: ev.Classification,
			Metrics:        ev.Metrics,
		}
		if err := store.PutValue(ctx, r.rows, store.TableScenarioMetrics, scenarioKey(runID, ev.ScenarioID), rec); err != nil {
			return fmt.Errorf("failed to save scenario %d of run %s: %w", ev.ScenarioID, runID, err)
		}
	}
	return nil
}

// LoadScenarioMetrics returns the stored scenario rows of a run in scenario order.
func (r *Repository) LoadScenarioMetrics(ctx context.Context, runID string) ([]ScenarioRecord, error) {
	rows, err := r.rows.List(ctx, store.TableScenarioMetrics)
	if err != nil {
		return nil, err
	}
	prefix := runID + ":"
	var out []ScenarioRecord
	for id, row := range rows {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		var rec ScenarioRecord
		if err := store.Decode(row, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no scenario metrics for run %s: %w", runID, store.ErrNotFound)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScenarioID < out[j].ScenarioID })
	return out, nil
}

func scenarioKey(runID string, scenarioID int) string {
	return runID + ":" + strconv.Itoa(scenarioID)
}
