package validation

import (
	"fmt"
	"math"

	"github.com/makey/solar-forecast/internal/projection"
	"github.com/makey/solar-forecast/pkg/mathutil"
)

// Bounds are the ranges offered by the dashboard's input widgets.
type Bounds struct {
	MonthlyCostMin float64
	MonthlyCostMax float64
	InflationMin   float64
	InflationMax   float64
}

// ValidateInputs rejects inputs the projection cannot meaningfully use:
// non-finite numbers and negative amounts.
func ValidateInputs(in projection.Inputs) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"monthlyCost", in.MonthlyCostNow},
		{"inflationPercent", in.AnnualInflationPercent},
		{"systemCost", in.TotalSystemCost},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s must be a finite number", f.name)
		}
		if f.value < 0 {
			return fmt.Errorf("%s must not be negative, got %v", f.name, f.value)
		}
	}
	return nil
}

// InputWarnings reports inputs that fall outside the dashboard's widget ranges.
// Such inputs are still computed; the warnings are informational.
func InputWarnings(in projection.Inputs, b Bounds) []string {
	var warnings []string

	if in.MonthlyCostNow < b.MonthlyCostMin || in.MonthlyCostNow > b.MonthlyCostMax {
		warnings = append(warnings, fmt.Sprintf("monthly cost %.0f is outside the dashboard range [%.0f, %.0f]",
			in.MonthlyCostNow, b.MonthlyCostMin, b.MonthlyCostMax))
	}
	if in.AnnualInflationPercent < b.InflationMin || in.AnnualInflationPercent > b.InflationMax {
		warnings = append(warnings, fmt.Sprintf("inflation %.1f%% is outside the dashboard range [%.1f%%, %.1f%%]",
			in.AnnualInflationPercent, b.InflationMin, b.InflationMax))
	}
	if in.MonthlyCostNow == 0 {
		warnings = append(warnings, "monthly cost is zero: payback period is undefined")
	}
	if mathutil.IsZero(in.TotalSystemCost) {
		warnings = append(warnings, "system cost is under one peso: no investment to recover")
	}

	return warnings
}
