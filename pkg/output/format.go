// Package output provides utilities for formatting and displaying projection results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/makey/solar-forecast/internal/projection"
	"github.com/makey/solar-forecast/pkg/constants"
	"github.com/makey/solar-forecast/pkg/format"
)

// SeriesTraditional and SeriesSolar name the two compared scenarios.
const (
	SeriesTraditional = "Tradicional (sin subsidio)"
	SeriesSolar       = "Solar (con subsidio)"
)

// CSVHeader is the header row of the CSV export.
var CSVHeader = []string{"year", "adjusted_annual_cost", "cumulative_traditional", "cumulative_solar", "net_benefit"}

// Write renders p in the named output format.
func Write(w io.Writer, p projection.Projection, outputFormat string) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		return PrettyFormat(w, p)
	case constants.OutputFormatCSV:
		return CsvFormat(w, p)
	case constants.OutputFormatJSON:
		return JSONFormat(w, p)
	}
	return fmt.Errorf("unsupported output format: %s", outputFormat)
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, p projection.Projection) error {
	var b strings.Builder

	b.WriteString("--- Resumen ---\n")
	for _, m := range Metrics(p) {
		fmt.Fprintf(&b, "%-28s %s\n", m.Label, m.Value)
	}
	fmt.Fprintf(&b, "%-28s %s\n", "Utilidad acumulada final", format.Currency(p.Final().NetAccumulatedBenefit))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Año | %-16s | %-16s | %-16s\n", "Tradicional", "Solar", "Utilidad")
	fmt.Fprintf(&b, "___ | %-16s | %-16s | %-16s\n", "___________", "_____", "________")
	for _, point := range p.Points {
		fmt.Fprintf(&b, "%3d | %16s | %16s | %16s\n",
			point.Year,
			format.Currency(point.CumulativeTraditionalSpend),
			format.Currency(point.CumulativeSolarSpend),
			format.Currency(point.NetAccumulatedBenefit),
		)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(w io.Writer, p projection.Projection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, point := range p.Points {
		record := []string{
			strconv.Itoa(point.Year),
			formatFloat(point.AdjustedAnnualCost),
			formatFloat(point.CumulativeTraditionalSpend),
			formatFloat(point.CumulativeSolarSpend),
			formatFloat(point.NetAccumulatedBenefit),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CsvString returns the CSV export as a string.
func CsvString(p projection.Projection) string {
	var b strings.Builder
	// strings.Builder never fails to write.
	_ = CsvFormat(&b, p)
	return b.String()
}

// JSONFormat outputs the projection report as indented JSON.
func JSONFormat(w io.Writer, p projection.Projection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewReport(p))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
