// Package report genera el reporte de conciliación de una sesión de conteo en xlsx y pdf.
package report

import (
	"strconv"

	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

// Columns encabezados del reporte, en orden.
var Columns = []string{
	"Código de barras", "SKU", "Producto", "Unidad", "Cant. sistema", "Cant. contada",
	"Diferencia", "Costo", "Dif. valor", "Estado",
}

var statusLabels = map[string]string{
	entity.ItemPending:    "Pendiente",
	entity.ItemMatched:    "Coincide",
	entity.ItemOverstock:  "Sobrante",
	entity.ItemUnderstock: "Faltante",
}

// StatusLabel texto del estado de una línea.
func StatusLabel(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}

// ItemRow celdas de una línea de conteo. Una línea sin contar deja vacías la cantidad contada
// y las diferencias.
func ItemRow(it *entity.CountingItem) []string {
	counted, diff, valueDiff := "", "", ""
	if it.IsCounted() {
		counted = strconv.FormatInt(*it.CountedQuantity, 10)
		diff = strconv.FormatInt(it.Difference(), 10)
		valueDiff = it.ValueDifference().StringFixed(2)
	}
	return []string{
		it.Barcode, it.SKU, it.ProductName, it.UnitMeasure,
		strconv.FormatInt(it.SystemQuantity, 10), counted, diff,
		it.CostPrice.StringFixed(2), valueDiff, StatusLabel(it.Status()),
	}
}

// SummaryRows filas finales de totales (etiqueta, valor).
func SummaryRows(sum entity.SessionSummary) [][2]string {
	return [][2]string{
		{"Total ítems", strconv.Itoa(sum.TotalItems)},
		{"Contados", strconv.Itoa(sum.CountedItems)},
		{"Coinciden", strconv.Itoa(sum.MatchedItems)},
		{"Con diferencia", strconv.Itoa(sum.UnmatchedItems)},
		{"Sobrantes", strconv.Itoa(sum.OverstockItems)},
		{"Faltantes", strconv.Itoa(sum.UnderstockItems)},
		{"Diferencia total en unidades", strconv.FormatInt(sum.TotalQuantityDifference, 10)},
		{"Diferencia total en valor", sum.TotalValueDifference.StringFixed(2)},
	}
}
