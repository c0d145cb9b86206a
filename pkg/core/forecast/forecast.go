// Package forecast holds the market forecasts the simulation consumes.
// Forecasts are produced upstream by the time-series models and only read
// here, through the Provider interface.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"property_valuation/pkg/core/validate"
	"property_valuation/pkg/models"
)

var (
	// ErrNotFound is returned by a Provider that has no forecast for the
	// requested (parameter, geography).
	ErrNotFound = errors.New("forecast not found")

	// ErrMissingParameter means a geography lacks one or more of the
	// parameters a simulation needs.
	ErrMissingParameter = errors.New("missing forecast parameter")
)

// Trend labels derived from the point forecast.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Forecast is one parameter's point forecast with its uncertainty envelope.
type Forecast struct {
	Parameter  models.Parameter `json:"parameter" yaml:"parameter"`
	Geography  string           `json:"geography" yaml:"geography"`
	Values     []float64        `json:"values" yaml:"values"`
	LowerBound []float64        `json:"lower_bound" yaml:"lower_bound"`
	UpperBound []float64        `json:"upper_bound" yaml:"upper_bound"`
	Dates      []string         `json:"dates,omitempty" yaml:"dates,omitempty"`
	ModelError float64          `json:"model_error" yaml:"model_error"`
	Trend      string           `json:"trend,omitempty" yaml:"trend,omitempty"`
}

// ID is the row key used when a forecast is persisted.
func ID(p models.Parameter, geography string) string {
	return p.String() + "@" + strings.ToUpper(geography)
}

// Validate checks the forecast covers the horizon with a well-formed envelope.
func (f *Forecast) Validate(horizon int) error {
	field := "forecast." + f.Parameter.String()
	if !f.Parameter.Valid() {
		return &validate.ValidationError{Field: "forecast.parameter", Value: int(f.Parameter), Expected: "canonical parameter"}
	}
	if len(f.Values) < horizon {
		return &validate.ValidationError{Field: field + ".values", Value: fmt.Sprintf("%d values", len(f.Values)), Expected: fmt.Sprintf(">= %d values", horizon)}
	}
	if len(f.LowerBound) < horizon || len(f.UpperBound) < horizon {
		return &validate.ValidationError{
			Field:    field + ".bounds",
			Value:    fmt.Sprintf("%d lower, %d upper", len(f.LowerBound), len(f.UpperBound)),
			Expected: fmt.Sprintf(">= %d values each", horizon),
		}
	}
	for y := 0; y < horizon; y++ {
		if err := validate.Finite(fmt.Sprintf("%s.values[%d]", field, y), f.Values[y]); err != nil {
			return err
		}
		if err := validate.Finite(fmt.Sprintf("%s.lower_bound[%d]", field, y), f.LowerBound[y]); err != nil {
			return err
		}
		if err := validate.Finite(fmt.Sprintf("%s.upper_bound[%d]", field, y), f.UpperBound[y]); err != nil {
			return err
		}
		if f.LowerBound[y] > f.UpperBound[y] {
			return &validate.ValidationError{
				Field:    fmt.Sprintf("%s.lower_bound[%d]", field, y),
				Value:    f.LowerBound[y],
				Expected: fmt.Sprintf("<= upper bound %g", f.UpperBound[y]),
			}
		}
	}
	return nil
}

// Truncate returns a copy restricted to the first horizon years.
func (f *Forecast) Truncate(horizon int) *Forecast {
	out := *f
	out.Values = append([]float64(nil), f.Values[:horizon]...)
	out.LowerBound = append([]float64(nil), f.LowerBound[:horizon]...)
	out.UpperBound = append([]float64(nil), f.UpperBound[:horizon]...)
	if len(f.Dates) >= horizon {
		out.Dates = append([]string(nil), f.Dates[:horizon]...)
	} else {
		out.Dates = nil
	}
	if out.Trend == "" {
		out.Trend = DetectTrend(out.Values)
	}
	return &out
}

// DetectTrend classifies the first-to-last change of a series. Moves under
// 1% of the starting magnitude (or 0.0005 absolute) count as stable.
func DetectTrend(values []float64) string {
	if len(values) < 2 {
		return TrendStable
	}
	first, last := values[0], values[len(values)-1]
	threshold := math.Max(math.Abs(first)*0.01, 0.0005)
	switch {
	case last-first > threshold:
		return TrendIncreasing
	case first-last > threshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// Provider supplies forecasts. Implementations return ErrNotFound (wrapped
// or bare) when nothing exists for the key.
type Provider interface {
	GetForecast(ctx context.Context, p models.Parameter, geography string, horizon int) (*Forecast, error)
}

// Bundle is the full parameter set for one MSA, indexed by Parameter.
type Bundle struct {
	Geography string
	Horizon   int
	Forecasts [models.NumParameters]*Forecast
}

// Get returns the forecast for p.
func (b *Bundle) Get(p models.Parameter) *Forecast {
	return b.Forecasts[p]
}

// Complete reports whether every parameter is present.
func (b *Bundle) Complete() bool {
	return len(b.Missing()) == 0
}

// Missing lists the canonical names of absent parameters.
func (b *Bundle) Missing() []string {
	var missing []string
	for _, p := range models.AllParameters() {
		if b.Forecasts[p] == nil {
			missing = append(missing, p.String())
		}
	}
	return missing
}

// NewBundle assembles a bundle from a list of forecasts. Every forecast is
// validated and truncated to the horizon; any absent parameter fails with
// ErrMissingParameter.
func NewBundle(geography string, horizon int, forecasts []*Forecast) (*Bundle, error) {
	b := &Bundle{Geography: geography, Horizon: horizon}
	for _, f := range forecasts {
		if f == nil {
			continue
		}
		if err := f.Validate(horizon); err != nil {
			return nil, err
		}
		b.Forecasts[f.Parameter] = f.Truncate(horizon)
	}
	if missing := b.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s (geography %s)", ErrMissingParameter, strings.Join(missing, ", "), geography)
	}
	return b, nil
}

// Collect fetches all parameters for an MSA. National rate parameters are
// requested under NationalGeography.
func Collect(ctx context.Context, provider Provider, msa string, horizon int) (*Bundle, error) {
	if horizon <= 0 {
		return nil, &validate.ValidationError{Field: "horizon", Value: horizon, Expected: "> 0"}
	}
	b := &Bundle{Geography: msa, Horizon: horizon}
	var missing []string

	for _, p := range models.AllParameters() {
		geo := p.Geography(msa)
		f, err := provider.GetForecast(ctx, p, geo, horizon)
		if errors.Is(err, ErrNotFound) || (err == nil && f == nil) {
			missing = append(missing, fmt.Sprintf("%s@%s", p, geo))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get forecast %s@%s: %w", p, geo, err)
		}
		if f.Parameter != p {
			return nil, &validate.ValidationError{Field: "forecast.parameter", Value: f.Parameter.String(), Expected: p.String()}
		}
		if err := f.Validate(horizon); err != nil {
			return nil, err
		}
		b.Forecasts[p] = f.Truncate(horizon)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingParameter, strings.Join(missing, ", "))
	}
	return b, nil
}

// Constant builds a flat forecast: the same point value every year with a
// symmetric envelope of ±halfWidth.
func Constant(p models.Parameter, geography string, value, halfWidth float64, horizon int) *Forecast {
	f := &Forecast{
		Parameter:  p,
		Geography:  geography,
		Values:     make([]float64, horizon),
		LowerBound: make([]float64, horizon),
		UpperBound: make([]float64, horizon),
		Trend:      TrendStable,
	}
	for y := 0; y < horizon; y++ {
		f.Values[y] = value
		f.LowerBound[y] = value - halfWidth
		f.UpperBound[y] = value + halfWidth
	}
	return f
}
