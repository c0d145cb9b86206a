package forecast

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"property_valuation/pkg/core/store"
	"property_valuation/pkg/core/validate"
	"property_valuation/pkg/models"
)

const testMSA = "35620"

var testPoints = map[models.Parameter]float64{
	models.Treasury10Y:            0.042,
	models.CommercialMortgageRate: 0.065,
	models.FedFundsRate:           0.050,
	models.CapRate:                0.060,
	models.VacancyRate:            0.050,
	models.RentGrowth:             0.030,
	models.ExpenseGrowth:          0.025,
	models.LTVRatio:               0.750,
	models.ClosingCostPct:         0.030,
	models.LenderReserves:         6,
	models.PropertyGrowth:         0.035,
}

func fullProvider() *StaticProvider {
	p := NewStaticProvider()
	for param, v := range testPoints {
		p.Add(Constant(param, param.Geography(testMSA), v, v*0.2, 6))
	}
	return p
}

func TestCollect_FullBundle(t *testing.T) {
	b, err := Collect(context.Background(), fullProvider(), testMSA, 6)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if !b.Complete() {
		t.Fatalf("bundle incomplete: missing %v", b.Missing())
	}
	if got := b.Get(models.Treasury10Y).Geography; got != models.NationalGeography {
		t.Errorf("treasury geography = %q, want %q", got, models.NationalGeography)
	}
	if got := b.Get(models.CapRate).Geography; got != testMSA {
		t.Errorf("cap rate geography = %q, want %q", got, testMSA)
	}
	if len(b.Get(models.RentGrowth).Values) != 6 {
		t.Errorf("expected 6 values, got %d", len(b.Get(models.RentGrowth).Values))
	}
}

func TestCollect_MissingParameter(t *testing.T) {
	p := NewStaticProvider()
	for param, v := range testPoints {
		if param == models.VacancyRate {
			continue
		}
		p.Add(Constant(param, param.Geography(testMSA), v, 0.01, 6))
	}

	_, err := Collect(context.Background(), p, testMSA, 6)
	if !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter, got %v", err)
	}
	if !strings.Contains(err.Error(), "vacancy_rate") {
		t.Errorf("error should name the missing parameter: %v", err)
	}
}

func TestCollect_WrongGeographyIsMissing(t *testing.T) {
	_, err := Collect(context.Background(), fullProvider(), "99999", 6)
	if !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter for unknown MSA, got %v", err)
	}
}

func TestForecast_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *Forecast)
		wantErr bool
	}{
		{"valid", func(f *Forecast) {}, false},
		{"short values", func(f *Forecast) { f.Values = f.Values[:4] }, true},
		{"short bounds", func(f *Forecast) { f.UpperBound = f.UpperBound[:5] }, true},
		{"inverted envelope", func(f *Forecast) { f.LowerBound[2] = 0.2 }, true},
		{"invalid parameter", func(f *Forecast) { f.Parameter = models.Parameter(42) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Constant(models.CapRate, testMSA, 0.06, 0.01, 6)
			tt.mutate(f)
			err := f.Validate(6)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !validate.IsValidationError(err) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestDetectTrend(t *testing.T) {
	if got := DetectTrend([]float64{0.03, 0.035, 0.04}); got != TrendIncreasing {
		t.Errorf("got %s, want increasing", got)
	}
	if got := DetectTrend([]float64{0.08, 0.07, 0.06}); got != TrendDecreasing {
		t.Errorf("got %s, want decreasing", got)
	}
	if got := DetectTrend([]float64{0.05, 0.0501}); got != TrendStable {
		t.Errorf("got %s, want stable", got)
	}
}

func TestLoadFile(t *testing.T) {
	doc := `forecasts:
  - parameter: cap_rate
    geography: "35620"
    values: [0.06, 0.061, 0.062, 0.063, 0.064, 0.065]
    lower_bound: [0.05, 0.05, 0.05, 0.05, 0.05, 0.05]
    upper_bound: [0.07, 0.07, 0.07, 0.07, 0.08, 0.08]
    model_error: 0.004
`
	path := filepath.Join(t.TempDir(), "forecasts.yaml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	f, err := p.GetForecast(context.Background(), models.CapRate, "35620", 6)
	if err != nil {
		t.Fatalf("GetForecast: %v", err)
	}
	if f.Values[5] != 0.065 || f.ModelError != 0.004 {
		t.Errorf("unexpected forecast: %+v", f)
	}
	if f.Trend != TrendIncreasing {
		t.Errorf("trend = %s, want increasing", f.Trend)
	}
}

type countingProvider struct {
	inner Provider
	calls int
}

func (c *countingProvider) GetForecast(ctx context.Context, p models.Parameter, geo string, h int) (*Forecast, error) {
	c.calls++
	return c.inner.GetForecast(ctx, p, geo, h)
}

func TestCachedProvider(t *testing.T) {
	inner := &countingProvider{inner: fullProvider()}
	cached := NewCachedProvider(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := Collect(ctx, cached, testMSA, 6); err != nil {
			t.Fatalf("Collect: %v", err)
		}
	}
	if inner.calls != models.NumParameters {
		t.Errorf("inner provider called %d times, want %d", inner.calls, models.NumParameters)
	}
	if cached.Hits() != 2*models.NumParameters || cached.Misses() != models.NumParameters {
		t.Errorf("hits=%d misses=%d", cached.Hits(), cached.Misses())
	}

	if _, err := cached.GetForecast(ctx, models.CapRate, "00000", 6); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound through cache, got %v", err)
	}
}

func TestStoreProvider_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	sp := NewStoreProvider(store.NewMemoryStore())

	in := Constant(models.RentGrowth, testMSA, 0.03, 0.01, 6)
	if err := sp.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := sp.GetForecast(ctx, models.RentGrowth, testMSA, 6)
	if err != nil {
		t.Fatalf("GetForecast: %v", err)
	}
	if out.Parameter != models.RentGrowth || out.Values[3] != 0.03 {
		t.Errorf("unexpected round trip: %+v", out)
	}
	if _, err := sp.GetForecast(ctx, models.VacancyRate, testMSA, 6); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
