package forecast

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"property_valuation/pkg/models"

	"gopkg.in/yaml.v2"
)

// StaticProvider serves forecasts held in memory, typically loaded from a
// YAML file exported by the forecasting job.
type StaticProvider struct {
	mu        sync.RWMutex
	forecasts map[string]*Forecast
}

// File is the YAML layout accepted by LoadFile.
type File struct {
	Forecasts []*Forecast `yaml:"forecasts" json:"forecasts"`
}

// NewStaticProvider creates a provider seeded with forecasts.
func NewStaticProvider(forecasts ...*Forecast) *StaticProvider {
	p := &StaticProvider{forecasts: make(map[string]*Forecast)}
	for _, f := range forecasts {
		p.Add(f)
	}
	return p
}

// LoadFile reads forecasts from a YAML document.
func LoadFile(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read forecast file: %w", err)
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse forecast file %s: %w", path, err)
	}
	return NewStaticProvider(file.Forecasts...), nil
}

// Add registers (or replaces) a forecast.
func (s *StaticProvider) Add(f *Forecast) {
	if f == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecasts[ID(f.Parameter, f.Geography)] = f
}

// All returns every registered forecast.
func (s *StaticProvider) All() []*Forecast {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Forecast, 0, len(s.forecasts))
	for _, f := range s.forecasts {
		out = append(out, f)
	}
	return out
}

func (s *StaticProvider) GetForecast(_ context.Context, p models.Parameter, geography string, horizon int) (*Forecast, error) {
	s.mu.RLock()
	f, ok := s.forecasts[ID(p, geography)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s@%s", ErrNotFound, p, strings.ToUpper(geography))
	}
	if err := f.Validate(horizon); err != nil {
		return nil, err
	}
	return f.Truncate(horizon), nil
}
