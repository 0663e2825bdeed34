package output

import (
	"github.com/makey/solar-forecast/internal/projection"
	"github.com/makey/solar-forecast/pkg/format"
)

// Metric is one of the headline figures shown above the charts.
type Metric struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	Delta string `json:"delta,omitempty"`
}

// Report is the serialisable form of a projection. Infinite paybacks are
// reported as a null PaybackYears with PaybackDefined set to false.
type Report struct {
	Inputs           projection.Inputs       `json:"inputs"`
	Parameters       projection.Parameters   `json:"parameters"`
	Split            projection.SubsidySplit `json:"split"`
	FirstYearSavings float64                 `json:"firstYearSavings"`
	PaybackYears     *float64                `json:"paybackYears"`
	PaybackDefined   bool                    `json:"paybackDefined"`
	BreakEvenYear    *int                    `json:"breakEvenYear"`
	FinalNetBenefit  float64                 `json:"finalNetBenefit"`
	Metrics          []Metric                `json:"metrics"`
	Rows             []projection.YearPoint  `json:"rows"`
	Series           projection.Series       `json:"series"`
}

// NewReport builds the serialisable report of p.
func NewReport(p projection.Projection) Report {
	r := Report{
		Inputs:           p.Inputs,
		Parameters:       p.Parameters,
		Split:            p.Split,
		FirstYearSavings: p.FirstYearSavings,
		PaybackDefined:   p.PaybackDefined(),
		FinalNetBenefit:  p.Final().NetAccumulatedBenefit,
		Metrics:          Metrics(p),
		Rows:             append([]projection.YearPoint(nil), p.Points...),
		Series:           p.Series(),
	}
	if r.PaybackDefined {
		years := p.PaybackYears
		r.PaybackYears = &years
	}
	if p.BreakEvenYear >= 0 {
		year := p.BreakEvenYear
		r.BreakEvenYear = &year
	}
	return r
}

// Metrics returns the four headline figures of the dashboard.
func Metrics(p projection.Projection) []Metric {
	return []Metric{
		{
			Key:   "subsidy",
			Label: "Subsidio Corfo (" + format.Share(p.Parameters.SubsidyRate) + ")",
			Value: format.Currency(p.Split.SubsidyAmount),
		},
		{
			Key:   "investment",
			Label: "Su Inversión (" + format.Share(1-p.Parameters.SubsidyRate) + ")",
			Value: format.Currency(p.Split.OwnerInvestment),
		},
		{
			Key:   "firstYearSavings",
			Label: "Ahorro Año 1",
			Value: format.Currency(p.FirstYearSavings),
		},
		{
			Key:   "payback",
			Label: "Retorno de Inversión",
			Value: format.Payback(p.PaybackYears),
			Delta: "Punto de Equilibrio",
		},
	}
}
