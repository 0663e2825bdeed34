// Package report renders a projection as a printable PDF document.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/makey/solar-forecast/internal/config"
	"github.com/makey/solar-forecast/internal/projection"
	"github.com/makey/solar-forecast/pkg/format"
	"github.com/makey/solar-forecast/pkg/output"
)

const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	contentWidth = pageWidth - marginLeft - marginRight
)

// Details holds the presentation data printed around the projection.
type Details struct {
	Title       string
	Team        []config.TeamMember
	GeneratedAt time.Time
}

type pdfReport struct {
	pdf     *fpdf.Fpdf
	tr      func(string) string
	p       projection.Projection
	details Details
}

// GeneratePDF creates the projection report and returns the PDF bytes.
func GeneratePDF(p projection.Projection, details Details) ([]byte, error) {
	if details.GeneratedAt.IsZero() {
		details.GeneratedAt = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(true, marginBottom)

	r := &pdfReport{
		pdf:     pdf,
		tr:      pdf.UnicodeTranslatorFromDescriptor(""),
		p:       p,
		details: details,
	}

	r.pdf.AddPage()
	r.addHeader()
	r.addMetrics()
	r.addYearTable()
	r.addSuccessFactors()
	r.addTeam()

	var buf bytes.Buffer
	if err := r.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *pdfReport) heading(text string) {
	r.pdf.Ln(6)
	r.pdf.SetFont("Arial", "B", 13)
	r.pdf.SetTextColor(27, 94, 32)
	r.pdf.CellFormat(contentWidth, 8, r.tr(text), "", 1, "L", false, 0, "")
	r.pdf.SetFont("Arial", "", 10)
	r.pdf.SetTextColor(50, 50, 50)
}

func (r *pdfReport) addHeader() {
	r.pdf.SetFont("Arial", "B", 18)
	r.pdf.SetTextColor(27, 94, 32)
	r.pdf.CellFormat(contentWidth, 10, r.tr(r.details.Title), "", 1, "C", false, 0, "")

	r.pdf.SetFont("Arial", "I", 10)
	r.pdf.SetTextColor(80, 80, 80)
	in := r.p.Inputs
	summary := fmt.Sprintf("Gasto mensual %s, inflación energética %s, costo del sistema %s",
		format.Currency(in.MonthlyCostNow), format.Percent(in.AnnualInflationPercent), format.Currency(in.TotalSystemCost))
	r.pdf.CellFormat(contentWidth, 6, r.tr(summary), "", 1, "C", false, 0, "")
	r.pdf.CellFormat(contentWidth, 6, r.tr("Generado: "+r.details.GeneratedAt.Format("02-01-2006")), "", 1, "C", false, 0, "")
}

func (r *pdfReport) addMetrics() {
	r.heading("Resumen")
	r.pdf.SetFillColor(245, 247, 250)
	for _, m := range output.Metrics(r.p) {
		r.pdf.SetFont("Arial", "B", 10)
		r.pdf.CellFormat(contentWidth/2, 7, r.tr(m.Label), "1", 0, "L", true, 0, "")
		r.pdf.SetFont("Arial", "", 10)
		r.pdf.CellFormat(contentWidth/2, 7, r.tr(m.Value), "1", 1, "R", false, 0, "")
	}
}

func (r *pdfReport) addYearTable() {
	r.heading("Proyección de gasto acumulado")

	widths := []float64{20, contentWidth/3 - 20/3.0, contentWidth/3 - 20/3.0, contentWidth/3 - 20/3.0}
	headers := []string{"Año", output.SeriesTraditional, output.SeriesSolar, "Utilidad acumulada"}

	r.pdf.SetFont("Arial", "B", 9)
	r.pdf.SetFillColor(27, 94, 32)
	r.pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		r.pdf.CellFormat(widths[i], 7, r.tr(h), "1", 0, "C", true, 0, "")
	}
	r.pdf.Ln(-1)

	r.pdf.SetFont("Arial", "", 9)
	r.pdf.SetTextColor(50, 50, 50)
	for _, point := range r.p.Points {
		r.pdf.CellFormat(widths[0], 6, fmt.Sprintf("%d", point.Year), "1", 0, "C", false, 0, "")
		r.pdf.CellFormat(widths[1], 6, format.Currency(point.CumulativeTraditionalSpend), "1", 0, "R", false, 0, "")
		r.pdf.CellFormat(widths[2], 6, format.Currency(point.CumulativeSolarSpend), "1", 0, "R", false, 0, "")
		r.pdf.CellFormat(widths[3], 6, format.Currency(point.NetAccumulatedBenefit), "1", 1, "R", false, 0, "")
	}
}

func (r *pdfReport) addSuccessFactors() {
	r.heading("Factores Críticos de Éxito")
	for _, factor := range output.SuccessFactors(r.p) {
		r.pdf.SetFont("Arial", "B", 10)
		r.pdf.CellFormat(contentWidth, 6, r.tr(factor.Title), "", 1, "L", false, 0, "")
		r.pdf.SetFont("Arial", "", 10)
		for _, point := range factor.Points {
			r.pdf.MultiCell(contentWidth, 5, r.tr("- "+point), "", "L", false)
		}
	}
}

func (r *pdfReport) addTeam() {
	if len(r.details.Team) == 0 {
		return
	}
	r.heading("Equipo de Gestión")
	for _, member := range r.details.Team {
		line := member.Name
		if member.Role != "" {
			line += " - " + member.Role
		}
		if member.Phone != "" {
			line += " (" + member.Phone + ")"
		}
		r.pdf.CellFormat(contentWidth, 6, r.tr(line), "", 1, "L", false, 0, "")
	}
}
