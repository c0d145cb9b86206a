// Package validate provides reusable financial validation utilities.
// Entity constructors call these to enforce invariants; every failure is a
// *ValidationError naming the offending field and the expected value.
package validate

import (
	"errors"
	"fmt"
	"math"
)

// DefaultTolerance is the absolute tolerance for monetary identities.
const DefaultTolerance = 0.01

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// ValidationError reports malformed or out-of-range input data.
type ValidationError struct {
	Field    string
	Value    interface{}
	Expected string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s = %v (expected %s)", e.Field, e.Value, e.Expected)
}

// IsValidationError reports whether err (or anything it wraps) is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// =============================================================================
// SCALAR CHECKS
// =============================================================================

// Finite rejects NaN and infinities.
func Finite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: field, Value: v, Expected: "finite number"}
	}
	return nil
}

// Positive requires v > 0.
func Positive(field string, v float64) error {
	if err := Finite(field, v); err != nil {
		return err
	}
	if v <= 0 {
		return &ValidationError{Field: field, Value: v, Expected: "> 0"}
	}
	return nil
}

// NonNegative requires v >= 0.
func NonNegative(field string, v float64) error {
	if err := Finite(field, v); err != nil {
		return err
	}
	if v < 0 {
		return &ValidationError{Field: field, Value: v, Expected: ">= 0"}
	}
	return nil
}

// Range requires min <= v <= max.
func Range(field string, v, min, max float64) error {
	if err := Finite(field, v); err != nil {
		return err
	}
	if v < min || v > max {
		return &ValidationError{Field: field, Value: v, Expected: fmt.Sprintf("within [%g, %g]", min, max)}
	}
	return nil
}

// AtMost requires v <= limit.
func AtMost(field string, v, limit float64) error {
	if err := Finite(field, v); err != nil {
		return err
	}
	if v > limit {
		return &ValidationError{Field: field, Value: v, Expected: fmt.Sprintf("<= %g", limit)}
	}
	return nil
}

// Length requires a series to have exactly want elements.
func Length(field string, got, want int) error {
	if got != want {
		return &ValidationError{Field: field, Value: fmt.Sprintf("%d values", got), Expected: fmt.Sprintf("exactly %d values", want)}
	}
	return nil
}

// =============================================================================
// IDENTITY CHECKS
// =============================================================================

// Within requires |got - want| <= tolerance.
func Within(field string, got, want, tolerance float64) error {
	if err := Finite(field, got); err != nil {
		return err
	}
	if math.Abs(got-want) > tolerance {
		return &ValidationError{Field: field, Value: got, Expected: fmt.Sprintf("%.4f (±%g)", want, tolerance)}
	}
	return nil
}

// SumCheck verifies Total = sum(Components).
type SumCheck struct {
	Total         float64
	ComputedTotal float64
	Difference    float64
	IsBalanced    bool
	Tolerance     float64
}

// CheckSum validates that a reported total equals the sum of its components.
func CheckSum(total float64, tolerance float64, components ...float64) *SumCheck {
	computed := 0.0
	for _, c := range components {
		computed += c
	}
	diff := total - computed

	return &SumCheck{
		Total:         total,
		ComputedTotal: computed,
		Difference:    diff,
		IsBalanced:    math.Abs(diff) <= tolerance,
		Tolerance:     tolerance,
	}
}

// Sum is the error-returning form of CheckSum.
func Sum(field string, total, tolerance float64, components ...float64) error {
	check := CheckSum(total, tolerance, components...)
	if !check.IsBalanced {
		return &ValidationError{Field: field, Value: total, Expected: fmt.Sprintf("sum of components %.4f (±%g)", check.ComputedTotal, tolerance)}
	}
	return nil
}

// =============================================================================
// CAGR (Compound Annual Growth Rate)
// =============================================================================

// CalculateCAGR calculates compound annual growth rate as a decimal.
// CAGR = ((EndValue / StartValue) ^ (1/years)) - 1
func CalculateCAGR(startValue, endValue float64, years int) float64 {
	if startValue <= 0 || endValue < 0 || years <= 0 {
		return 0
	}
	return math.Pow(endValue/startValue, 1.0/float64(years)) - 1
}
