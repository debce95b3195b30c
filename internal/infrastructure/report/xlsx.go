package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/farmacia-stock/internal/application/ports"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

var _ ports.ReportExporter = (*XLSXExporter)(nil)

const sheetName = "Conteo"

// XLSXExporter reporte de conciliación en Excel.
type XLSXExporter struct{}

// NewXLSXExporter construye el exportador.
func NewXLSXExporter() *XLSXExporter { return &XLSXExporter{} }

func (XLSXExporter) Format() string { return "xlsx" }

func (XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Export una fila por línea, una fila en blanco y luego los totales.
func (XLSXExporter) Export(session *entity.CountingSession, summary entity.SessionSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("xlsx: renombrar hoja: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx: estilo: %w", err)
	}

	set := func(col, row int, value any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheetName, cell, value)
	}

	if err := set(1, 1, session.Name); err != nil {
		return nil, fmt.Errorf("xlsx: título: %w", err)
	}
	for i, h := range Columns {
		if err := set(i+1, 3, h); err != nil {
			return nil, fmt.Errorf("xlsx: encabezado: %w", err)
		}
	}
	if err := f.SetRowStyle(sheetName, 3, 3, bold); err != nil {
		return nil, fmt.Errorf("xlsx: estilo encabezado: %w", err)
	}

	rowNo := 4
	for _, it := range session.Items {
		for i, v := range ItemRow(it) {
			if err := set(i+1, rowNo, v); err != nil {
				return nil, fmt.Errorf("xlsx: fila %d: %w", rowNo, err)
			}
		}
		rowNo++
	}

	rowNo++
	for _, s := range SummaryRows(summary) {
		if err := set(1, rowNo, s[0]); err != nil {
			return nil, fmt.Errorf("xlsx: resumen: %w", err)
		}
		if err := set(2, rowNo, s[1]); err != nil {
			return nil, fmt.Errorf("xlsx: resumen: %w", err)
		}
		rowNo++
	}
	_ = f.SetColWidth(sheetName, "C", "C", 40)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx: escribir: %w", err)
	}
	return buf.Bytes(), nil
}
