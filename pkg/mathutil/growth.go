// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/makey/solar-forecast/pkg/constants"
)

// CompoundFactor returns (1 + percent/100)^periods, the growth applied to a
// baseline after the given number of periods at a constant percentage rate.
func CompoundFactor(percent float64, periods int) float64 {
	return math.Pow(1+percent/constants.PercentageMultiplier, float64(periods))
}

// IsZero checks if a value is effectively zero (within one currency unit)
func IsZero(val float64) bool {
	return math.Abs(val) < constants.CurrencyTolerance
}

// SafeDivide divides numerator by denominator, returning +Inf when the
// denominator is zero and the numerator is non-negative.
func SafeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		if numerator < 0 {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	return numerator / denominator
}
