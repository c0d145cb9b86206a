package models

import (
	"fmt"
	"strings"
)

// HorizonYears is the number of projection years (Year 0 acquisition through Year 5).
const HorizonYears = 6

// NationalGeography is the geography key for rate parameters that are not MSA specific.
const NationalGeography = "NATIONAL"

// Parameter identifies one of the pro-forma market parameters that are forecast
// and simulated. The set is closed: every Monte Carlo scenario carries exactly
// one series per Parameter.
type Parameter int

const (
	Treasury10Y Parameter = iota
	CommercialMortgageRate
	FedFundsRate
	CapRate
	VacancyRate
	RentGrowth
	ExpenseGrowth
	LTVRatio
	ClosingCostPct
	LenderReserves
	PropertyGrowth
)

// NumParameters is the size of the canonical parameter set.
const NumParameters = 11

var parameterNames = [NumParameters]string{
	Treasury10Y:            "treasury_10y",
	CommercialMortgageRate: "commercial_mortgage_rate",
	FedFundsRate:           "fed_funds_rate",
	CapRate:                "cap_rate",
	VacancyRate:            "vacancy_rate",
	RentGrowth:             "rent_growth",
	ExpenseGrowth:          "expense_growth",
	LTVRatio:               "ltv_ratio",
	ClosingCostPct:         "closing_cost_pct",
	LenderReserves:         "lender_reserves",
	PropertyGrowth:         "property_growth",
}

// Bounds is the realistic closed interval a parameter value must fall in.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies inside the interval.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Clamp pins v to the interval.
func (b Bounds) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%g, %g]", b.Min, b.Max)
}

// Realistic ranges. Rates and ratios are decimals; lender reserves are months.
var parameterBounds = [NumParameters]Bounds{
	Treasury10Y:            {Min: 0.0, Max: 0.15},
	CommercialMortgageRate: {Min: 0.01, Max: 0.20},
	FedFundsRate:           {Min: 0.0, Max: 0.20},
	CapRate:                {Min: 0.03, Max: 0.15},
	VacancyRate:            {Min: 0.0, Max: 0.50},
	RentGrowth:             {Min: -0.20, Max: 0.30},
	ExpenseGrowth:          {Min: -0.10, Max: 0.30},
	LTVRatio:               {Min: 0.50, Max: 0.95},
	ClosingCostPct:         {Min: 0.01, Max: 0.15},
	LenderReserves:         {Min: 1, Max: 12},
	PropertyGrowth:         {Min: -0.30, Max: 0.40},
}

// AllParameters returns the parameters in canonical order.
func AllParameters() []Parameter {
	out := make([]Parameter, NumParameters)
	for i := range out {
		out[i] = Parameter(i)
	}
	return out
}

// ParameterNames returns the canonical names in canonical order.
func ParameterNames() []string {
	out := make([]string, NumParameters)
	copy(out, parameterNames[:])
	return out
}

// Valid reports whether p is one of the canonical parameters.
func (p Parameter) Valid() bool {
	return p >= 0 && int(p) < NumParameters
}

func (p Parameter) String() string {
	if !p.Valid() {
		return fmt.Sprintf("parameter(%d)", int(p))
	}
	return parameterNames[p]
}

// Bounds returns the realistic range for the parameter.
func (p Parameter) Bounds() Bounds {
	if !p.Valid() {
		return Bounds{}
	}
	return parameterBounds[p]
}

// IsNational reports whether the parameter is forecast at national level
// rather than per MSA.
func (p Parameter) IsNational() bool {
	switch p {
	case Treasury10Y, CommercialMortgageRate, FedFundsRate:
		return true
	}
	return false
}

// Geography resolves the forecast geography for the parameter given a property MSA.
func (p Parameter) Geography(msa string) string {
	if p.IsNational() {
		return NationalGeography
	}
	return msa
}

// MarshalText encodes the parameter by canonical name.
func (p Parameter) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid parameter %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a canonical parameter name.
func (p *Parameter) UnmarshalText(text []byte) error {
	parsed, err := ParseParameter(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// UnmarshalYAML decodes a canonical parameter name from YAML input files.
func (p *Parameter) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	return p.UnmarshalText([]byte(name))
}

// MarshalYAML encodes the parameter by canonical name.
func (p Parameter) MarshalYAML() (interface{}, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid parameter %d", int(p))
	}
	return p.String(), nil
}

// ParseParameter resolves a canonical parameter name (case-insensitive).
func ParseParameter(name string) (Parameter, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range parameterNames {
		if n == key {
			return Parameter(i), nil
		}
	}
	return 0, fmt.Errorf("unknown parameter %q", name)
}
