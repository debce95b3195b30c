package ports

import "github.com/jhoicas/farmacia-stock/internal/domain/entity"

// ReportExporter genera el reporte tabular de una sesión de conteo: una fila por línea más
// las filas de resumen al final.
type ReportExporter interface {
	Format() string // "xlsx", "pdf"
	ContentType() string
	Export(session *entity.CountingSession, summary entity.SessionSummary) ([]byte, error)
}
