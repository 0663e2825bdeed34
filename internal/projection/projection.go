// Package projection computes the ten-year cash-flow comparison between
// keeping the current energy supply and installing a subsidised solar system.
package projection

import (
	"fmt"
	"math"

	"github.com/makey/solar-forecast/pkg/constants"
	"github.com/makey/solar-forecast/pkg/mathutil"
)

// Inputs holds the user-adjustable values of a simulation.
type Inputs struct {
	MonthlyCostNow         float64 `json:"monthlyCost" yaml:"monthlyCost" mapstructure:"monthlyCost"`
	AnnualInflationPercent float64 `json:"inflationPercent" yaml:"inflationPercent" mapstructure:"inflationPercent"`
	TotalSystemCost        float64 `json:"systemCost" yaml:"systemCost" mapstructure:"systemCost"`
}

// DefaultInputs returns the dashboard's initial inputs.
func DefaultInputs() Inputs {
	return Inputs{
		MonthlyCostNow:         constants.DefaultMonthlyCost,
		AnnualInflationPercent: constants.DefaultInflationPercent,
		TotalSystemCost:        constants.DefaultSystemCost,
	}
}

// Parameters holds the program constants applied to every simulation.
type Parameters struct {
	SubsidyRate  float64 `json:"subsidyRate" yaml:"subsidyRate" mapstructure:"subsidyRate"`
	SavingsRate  float64 `json:"savingsRate" yaml:"savingsRate" mapstructure:"savingsRate"`
	HorizonYears int     `json:"horizonYears" yaml:"horizonYears" mapstructure:"horizonYears"`
}

// DefaultParameters returns the 60% subsidy, 90% savings, ten-year program.
func DefaultParameters() Parameters {
	return Parameters{
		SubsidyRate:  constants.DefaultSubsidyRate,
		SavingsRate:  constants.DefaultSavingsRate,
		HorizonYears: constants.DefaultHorizonYears,
	}
}

// Validate checks that the parameters describe a usable program.
func (p Parameters) Validate() error {
	if p.SubsidyRate < 0 || p.SubsidyRate > 1 {
		return fmt.Errorf("subsidy rate must be between 0 and 1, got %v", p.SubsidyRate)
	}
	if p.SavingsRate < 0 || p.SavingsRate > 1 {
		return fmt.Errorf("savings rate must be between 0 and 1, got %v", p.SavingsRate)
	}
	if p.HorizonYears < 1 {
		return fmt.Errorf("horizon must be at least one year, got %d", p.HorizonYears)
	}
	return nil
}

// SubsidySplit is the division of the system cost between subsidy and owner.
type SubsidySplit struct {
	SubsidyAmount   float64 `json:"subsidyAmount"`
	OwnerInvestment float64 `json:"ownerInvestment"`
}

// YearPoint is one year of the projection. Year 0 is the present.
type YearPoint struct {
	Year                       int     `json:"year"`
	AdjustedAnnualCost         float64 `json:"adjustedAnnualCost"`
	CumulativeTraditionalSpend float64 `json:"cumulativeTraditionalSpend"`
	CumulativeSolarSpend       float64 `json:"cumulativeSolarSpend"`
	NetAccumulatedBenefit      float64 `json:"netAccumulatedBenefit"`
}

// Projection is the full result of a simulation.
type Projection struct {
	Inputs           Inputs
	Parameters       Parameters
	Split            SubsidySplit
	Points           []YearPoint
	FirstYearSavings float64
	// PaybackYears is +Inf when there is no baseline cost to save on.
	PaybackYears float64
	// BreakEvenYear is the first year whose net benefit is non-negative, or -1.
	BreakEvenYear int
}

// Series holds the projection as parallel year-indexed slices for charting.
type Series struct {
	Years       []int     `json:"years"`
	Traditional []float64 `json:"traditional"`
	Solar       []float64 `json:"solar"`
	Net         []float64 `json:"net"`
}

// Calculate runs a simulation with the default program parameters.
func Calculate(in Inputs) Projection {
	return calculate(in, DefaultParameters())
}

// CalculateWith runs a simulation with custom program parameters.
func CalculateWith(in Inputs, params Parameters) (Projection, error) {
	if err := params.Validate(); err != nil {
		return Projection{}, err
	}
	return calculate(in, params), nil
}

func calculate(in Inputs, params Parameters) Projection {
	split := Split(in.TotalSystemCost, params.SubsidyRate)
	residualRate := 1 - params.SavingsRate

	points := make([]YearPoint, 0, params.HorizonYears+1)
	traditional := 0.0
	solar := split.OwnerInvestment
	breakEven := -1
	for year := 0; year <= params.HorizonYears; year++ {
		adjusted := AdjustedAnnualCost(in.MonthlyCostNow, in.AnnualInflationPercent, year)

		traditional += adjusted
		solar += adjusted * residualRate
		net := traditional - solar
		if breakEven < 0 && net >= 0 {
			breakEven = year
		}

		points = append(points, YearPoint{
			Year:                       year,
			AdjustedAnnualCost:         adjusted,
			CumulativeTraditionalSpend: traditional,
			CumulativeSolarSpend:       solar,
			NetAccumulatedBenefit:      net,
		})
	}

	return Projection{
		Inputs:           in,
		Parameters:       params,
		Split:            split,
		Points:           points,
		FirstYearSavings: FirstYearSavings(in.MonthlyCostNow, params.SavingsRate),
		PaybackYears:     PaybackYears(split.OwnerInvestment, in.MonthlyCostNow, params.SavingsRate),
		BreakEvenYear:    breakEven,
	}
}

// Split divides total between subsidy and owner. The larger share is computed
// by multiplication and the smaller by subtraction, which is exact in floating
// point, so the two shares always add back to total.
func Split(total, subsidyRate float64) SubsidySplit {
	if subsidyRate >= 0.5 {
		subsidy := total * subsidyRate
		return SubsidySplit{SubsidyAmount: subsidy, OwnerInvestment: total - subsidy}
	}
	owner := total * (1 - subsidyRate)
	return SubsidySplit{SubsidyAmount: total - owner, OwnerInvestment: owner}
}

// AnnualBaseline converts a monthly cost into an un-inflated annual cost.
func AnnualBaseline(monthlyCost float64) float64 {
	return monthlyCost * constants.MonthsPerYear
}

// AdjustedAnnualCost is the annual energy cost in the given year after
// compounding the inflation rate.
func AdjustedAnnualCost(monthlyCost, inflationPercent float64, year int) float64 {
	return AnnualBaseline(monthlyCost) * mathutil.CompoundFactor(inflationPercent, year)
}

// FirstYearSavings is the un-inflated first-year saving.
func FirstYearSavings(monthlyCost, savingsRate float64) float64 {
	return AnnualBaseline(monthlyCost) * savingsRate
}

// PaybackYears is the number of years of first-year savings needed to recover
// the owner's investment. It returns +Inf when there is nothing to save.
func PaybackYears(ownerInvestment, monthlyCost, savingsRate float64) float64 {
	return mathutil.SafeDivide(ownerInvestment, FirstYearSavings(monthlyCost, savingsRate))
}

// PaybackDefined reports whether the payback period is a finite number of years.
func (p Projection) PaybackDefined() bool {
	return !math.IsInf(p.PaybackYears, 0) && !math.IsNaN(p.PaybackYears)
}

// Final returns the last projected year.
func (p Projection) Final() YearPoint {
	if len(p.Points) == 0 {
		return YearPoint{}
	}
	return p.Points[len(p.Points)-1]
}

// Series returns the projection as parallel slices.
func (p Projection) Series() Series {
	s := Series{
		Years:       make([]int, len(p.Points)),
		Traditional: make([]float64, len(p.Points)),
		Solar:       make([]float64, len(p.Points)),
		Net:         make([]float64, len(p.Points)),
	}
	for i, point := range p.Points {
		s.Years[i] = point.Year
		s.Traditional[i] = point.CumulativeTraditionalSpend
		s.Solar[i] = point.CumulativeSolarSpend
		s.Net[i] = point.NetAccumulatedBenefit
	}
	return s
}
