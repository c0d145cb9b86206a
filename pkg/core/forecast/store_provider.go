package forecast

import (
	"context"
	"errors"
	"fmt"

	"property_valuation/pkg/core/store"
	"property_valuation/pkg/models"
)

// StoreProvider reads forecasts persisted in the forecasts table.
type StoreProvider struct {
	rows store.RowStore
}

// NewStoreProvider creates a provider backed by a RowStore.
func NewStoreProvider(rows store.RowStore) *StoreProvider {
	return &StoreProvider{rows: rows}
}

func (s *StoreProvider) GetForecast(ctx context.Context, p models.Parameter, geography string, horizon int) (*Forecast, error) {
	var f Forecast
	err := store.GetValue(ctx, s.rows, store.TableForecasts, ID(p, geography), &f)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s@%s", ErrNotFound, p, geography)
	}
	if err != nil {
		return nil, err
	}
	if err := f.Validate(horizon); err != nil {
		return nil, err
	}
	return f.Truncate(horizon), nil
}

// Save persists a forecast under its (parameter, geography) key.
func (s *StoreProvider) Save(ctx context.Context, f *Forecast) error {
	return store.PutValue(ctx, s.rows, store.TableForecasts, ID(f.Parameter, f.Geography), f)
}
