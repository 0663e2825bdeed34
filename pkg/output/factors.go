package output

import (
	"fmt"

	"github.com/makey/solar-forecast/internal/projection"
	"github.com/makey/solar-forecast/pkg/format"
)

// Factor is a block of the "critical success factors" section.
type Factor struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

// SuccessFactors returns the informational section shown below the charts.
// The economic-impact point quotes the projected net benefit at the horizon.
func SuccessFactors(p projection.Projection) []Factor {
	return []Factor{
		{
			Title: "Carpeta Tributaria",
			Points: []string{
				fmt.Sprintf("Impacto Económico: el ahorro proyectado de %s a %d años fortalecerá su empresa.",
					format.Currency(p.Final().NetAccumulatedBenefit), p.Parameters.HorizonYears),
				"Admisibilidad: verificación de ventas y cumplimiento tributario.",
			},
		},
		{
			Title: "Ingeniería y Gestión Técnica",
			Points: []string{
				"Diseño Óptimo: ajuste de potencia para no sobredimensionar ni subestimar.",
				fmt.Sprintf("Gestión de Financiamiento: asesoría técnica para que se apruebe el %s de los activos.",
					format.Share(p.Parameters.SubsidyRate)),
			},
		},
	}
}
