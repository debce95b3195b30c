package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para registrar un producto en el catálogo de stock.
// El stock no se recibe aquí: inicia en 0 y sólo cambia con movimientos (ej. saldo inicial).
type CreateProductRequest struct {
	SKU           string          `json:"sku" validate:"required,min=1,max=100"`
	Barcode       string          `json:"barcode" validate:"omitempty,max=64"`
	Name          string          `json:"name" validate:"required,min=1,max=200"`
	UnitMeasure   string          `json:"unit_measure" validate:"max=30"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	MinStockLevel int64           `json:"min_stock_level" validate:"gte=0"`
	ReorderPoint  int64           `json:"reorder_point" validate:"gte=0"`
}

// ProductResponse salida de un producto con su stock actual.
type ProductResponse struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Barcode       string          `json:"barcode,omitempty"`
	Name          string          `json:"name"`
	UnitMeasure   string          `json:"unit_measure"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	StockQuantity int64           `json:"stock_quantity"`
	MinStockLevel int64           `json:"min_stock_level"`
	ReorderPoint  int64           `json:"reorder_point"`
	NeedsReorder  bool            `json:"needs_reorder"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProductSearchResponse resultado de búsqueda por código o nombre.
type ProductSearchResponse struct {
	ExactMatch bool              `json:"exact_match"`
	Items      []ProductResponse `json:"items"`
}
