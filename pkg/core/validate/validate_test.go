package validate

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
)

// =============================================================================
// SCALAR CHECK TESTS
// =============================================================================

func TestRange(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"inside", 0.07, false},
		{"lower edge", 0.03, false},
		{"upper edge", 0.15, false},
		{"below", 0.029, true},
		{"above", 0.2, true},
		{"nan", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Range("cap_rate", tt.value, 0.03, 0.15)
			if (err != nil) != tt.wantErr {
				t.Errorf("Range(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidationError_NamesFieldAndValue(t *testing.T) {
	err := Range("cap_rate[3]", 0.42, 0.03, 0.15)
	if err == nil {
		t.Fatal("expected error for out-of-range cap rate")
	}
	msg := err.Error()
	if !strings.Contains(msg, "cap_rate[3]") || !strings.Contains(msg, "0.42") {
		t.Errorf("error should name field and value, got %q", msg)
	}

	wrapped := fmt.Errorf("mapping scenario 7: %w", err)
	if !IsValidationError(wrapped) {
		t.Error("wrapped validation error not detected")
	}
	if IsValidationError(errors.New("plain")) {
		t.Error("plain error misdetected as validation error")
	}
}

func TestPositiveAndNonNegative(t *testing.T) {
	if err := Positive("purchase_price", 0); err == nil {
		t.Error("zero purchase price should fail Positive")
	}
	if err := Positive("purchase_price", 1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := NonNegative("capex", 0); err != nil {
		t.Errorf("zero should pass NonNegative: %v", err)
	}
	if err := NonNegative("capex", -0.5); err == nil {
		t.Error("negative should fail NonNegative")
	}
	if err := AtMost("loan_amount", 1000.01, 1000); err == nil {
		t.Error("value above limit should fail AtMost")
	}
}

func TestLength(t *testing.T) {
	if err := Length("cap_rate", 6, 6); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Length("cap_rate", 5, 6); err == nil {
		t.Error("wrong length not detected")
	}
}

// =============================================================================
// IDENTITY CHECK TESTS
// =============================================================================

func TestCheckSum(t *testing.T) {
	// Cost basis = price + closing + capex
	check := CheckSum(1150000, DefaultTolerance, 1000000, 50000, 100000)
	if !check.IsBalanced {
		t.Error("Perfect sum not detected")
	}

	check = CheckSum(100, 1.0, 60, 39.5)
	if !check.IsBalanced {
		t.Error("Sum within tolerance not detected")
	}

	check = CheckSum(100, 1.0, 60, 30)
	if check.IsBalanced {
		t.Error("Imbalance not detected")
	}
	t.Logf("Imbalance difference: %.2f", check.Difference)

	if err := Sum("cost_basis", 100, 0.01, 60, 30); err == nil {
		t.Error("Sum should return an error on mismatch")
	}
}

func TestWithin(t *testing.T) {
	if err := Within("remainder", 0.004, 0, DefaultTolerance); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Within("remainder", 0.5, 0, DefaultTolerance); err == nil {
		t.Error("expected error outside tolerance")
	}
}

// =============================================================================
// CAGR TESTS
// =============================================================================

func TestCalculateCAGR(t *testing.T) {
	// 1,000,000 -> 1,276,281.56 over 5 years = 5%
	cagr := CalculateCAGR(1000000, 1276281.5625, 5)
	if math.Abs(cagr-0.05) > 1e-6 {
		t.Errorf("expected CAGR 0.05, got %f", cagr)
	}

	if CalculateCAGR(0, 100, 5) != 0 {
		t.Error("zero start value should return 0")
	}
	if CalculateCAGR(100, 200, 0) != 0 {
		t.Error("zero years should return 0")
	}
}
