package report

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/farmacia-stock/internal/application/ports"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

var _ ports.ReportExporter = (*PDFExporter)(nil)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ancho (de 12) de cada columna en Columns
var columnSizes = []int{2, 1, 3, 1, 1, 1, 1, 1, 1, 1}

// PDFExporter reporte de conciliación en PDF (A4 horizontal).
type PDFExporter struct{}

// NewPDFExporter construye el exportador.
func NewPDFExporter() *PDFExporter { return &PDFExporter{} }

func (PDFExporter) Format() string      { return "pdf" }
func (PDFExporter) ContentType() string { return "application/pdf" }

// Export genera el documento y devuelve sus bytes.
func (PDFExporter) Export(session *entity.CountingSession, summary entity.SessionSummary) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(orientation.Horizontal).
		WithLeftMargin(8).WithRightMargin(8).
		WithTopMargin(8).WithBottomMargin(8).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 7}).
		WithTitle("Conciliación de inventario", true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(titleRow(session))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tableRow(Columns, true))
	for _, it := range session.Items {
		m.AddRows(tableRow(ItemRow(it), false))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	for _, s := range SummaryRows(summary) {
		m.AddRows(row.New(5).Add(
			col.New(4).Add(text.New(s[0], props.Text{Style: fontstyle.Bold, Size: 8})),
			col.New(2).Add(text.New(s[1], props.Text{Size: 8, Align: align.Right})),
		))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

func titleRow(session *entity.CountingSession) core.Row {
	return row.New(14).Add(
		col.New(8).Add(
			text.New(session.Name, props.Text{Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1}),
			text.New("Estado: "+string(session.Status), props.Text{Size: 8, Top: 8, Color: colorGray}),
		),
		col.New(4).Add(
			text.New("Creada: "+session.CreatedAt.Format("02/01/2006 15:04"), props.Text{Size: 8, Align: align.Right, Top: 1, Color: colorGray}),
		),
	)
}

func tableRow(cells []string, header bool) core.Row {
	cols := make([]core.Col, 0, len(cells))
	for i, c := range cells {
		p := props.Text{Size: 7, Top: 1, Left: 0.5, Right: 0.5}
		if header {
			p.Style = fontstyle.Bold
			p.Color = colorPrimary
		}
		if i >= 4 && i <= 8 {
			p.Align = align.Right
		}
		cols = append(cols, col.New(columnSizes[i]).Add(text.New(c, p)))
	}
	return row.New(6).Add(cols...)
}
