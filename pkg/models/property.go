package models

import (
	"property_valuation/pkg/core/validate"
)

// RenovationStatus describes where a property is in its value-add plan.
type RenovationStatus string

const (
	RenovationNone       RenovationStatus = "none"
	RenovationPlanned    RenovationStatus = "planned"
	RenovationInProgress RenovationStatus = "in_progress"
	RenovationComplete   RenovationStatus = "complete"
)

// Property is the static acquisition input for one deal. Rents are monthly
// per-unit averages; the investment structure fields are decimals.
type Property struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	MSACode string `json:"msa_code" yaml:"msa_code"`

	PurchasePrice float64 `json:"purchase_price" yaml:"purchase_price"`

	// Unit mix
	ResidentialUnits   int     `json:"residential_units" yaml:"residential_units"`
	AvgResidentialRent float64 `json:"avg_residential_rent" yaml:"avg_residential_rent"`
	CommercialUnits    int     `json:"commercial_units" yaml:"commercial_units"`
	AvgCommercialRent  float64 `json:"avg_commercial_rent" yaml:"avg_commercial_rent"`

	// Renovation plan
	RenovationStatus   RenovationStatus `json:"renovation_status" yaml:"renovation_status"`
	RenovationMonths   int              `json:"renovation_months" yaml:"renovation_months"`
	RenovationEstimate *float64         `json:"renovation_estimate,omitempty" yaml:"renovation_estimate,omitempty"` // nil = estimate from unit count

	// Investment structure
	InvestorEquityShare float64  `json:"investor_equity_share" yaml:"investor_equity_share"`
	SelfCashPct         float64  `json:"self_cash_pct" yaml:"self_cash_pct"`
	PreferredReturnRate *float64 `json:"preferred_return_rate,omitempty" yaml:"preferred_return_rate,omitempty"` // nil = configured default
}

// TotalUnits returns residential plus commercial units.
func (p *Property) TotalUnits() int {
	return p.ResidentialUnits + p.CommercialUnits
}

// MonthlyGrossRent is the in-place rent roll across both unit types.
func (p *Property) MonthlyGrossRent() float64 {
	return float64(p.ResidentialUnits)*p.AvgResidentialRent + float64(p.CommercialUnits)*p.AvgCommercialRent
}

// Validate checks the input record before any computation uses it.
func (p *Property) Validate() error {
	if p.ID == "" {
		return &validate.ValidationError{Field: "property.id", Value: p.ID, Expected: "non-empty"}
	}
	if err := validate.Positive("property.purchase_price", p.PurchasePrice); err != nil {
		return err
	}
	if p.ResidentialUnits < 0 {
		return &validate.ValidationError{Field: "property.residential_units", Value: p.ResidentialUnits, Expected: ">= 0"}
	}
	if p.CommercialUnits < 0 {
		return &validate.ValidationError{Field: "property.commercial_units", Value: p.CommercialUnits, Expected: ">= 0"}
	}
	if err := validate.NonNegative("property.avg_residential_rent", p.AvgResidentialRent); err != nil {
		return err
	}
	if err := validate.NonNegative("property.avg_commercial_rent", p.AvgCommercialRent); err != nil {
		return err
	}
	if p.RenovationMonths < 0 {
		return &validate.ValidationError{Field: "property.renovation_months", Value: p.RenovationMonths, Expected: ">= 0"}
	}
	if p.RenovationEstimate != nil {
		if err := validate.NonNegative("property.renovation_estimate", *p.RenovationEstimate); err != nil {
			return err
		}
	}
	if err := validate.Range("property.investor_equity_share", p.InvestorEquityShare, 0, 1); err != nil {
		return err
	}
	if err := validate.Range("property.self_cash_pct", p.SelfCashPct, 0, 1); err != nil {
		return err
	}
	if p.PreferredReturnRate != nil {
		if err := validate.Range("property.preferred_return_rate", *p.PreferredReturnRate, 0, 0.20); err != nil {
			return err
		}
	}
	switch p.RenovationStatus {
	case "", RenovationNone, RenovationPlanned, RenovationInProgress, RenovationComplete:
	default:
		return &validate.ValidationError{Field: "property.renovation_status", Value: p.RenovationStatus, Expected: "none|planned|in_progress|complete"}
	}
	return nil
}
