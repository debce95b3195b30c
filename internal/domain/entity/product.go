package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto de la farmacia. StockQuantity es el agregado derivado del ledger:
// sólo se modifica a través de movimientos (nunca por edición directa).
type Product struct {
	ID            string
	SKU           string
	Barcode       string
	Name          string
	SearchName    string // nombre normalizado (sin acentos, minúsculas) para búsquedas
	UnitMeasure   string
	CostPrice     decimal.Decimal // costo promedio ponderado
	StockQuantity int64
	MinStockLevel int64
	ReorderPoint  int64
	Version       int64 // control optimista sobre el agregado
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsBelowMinimum indica si el stock está por debajo del mínimo configurado.
func (p *Product) IsBelowMinimum() bool {
	return p.StockQuantity < p.MinStockLevel
}

// NeedsReorder indica si el stock alcanzó el punto de reorden.
func (p *Product) NeedsReorder() bool {
	return p.StockQuantity <= p.ReorderPoint || p.IsBelowMinimum()
}
