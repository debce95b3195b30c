package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StartCountingRequest body para POST /api/counting-sessions.
// OnConflict decide qué hacer con una sesión en curso de la misma bodega: "" (fallar), "pause" o "discard".
type StartCountingRequest struct {
	WarehouseID string `json:"warehouse_id" validate:"required"`
	Name        string `json:"session_name" validate:"max=200"`
	OnConflict  string `json:"on_conflict" validate:"omitempty,oneof=pause discard"`
}

// AddCountingItemRequest búsqueda del producto a contar (código de barras, SKU o nombre).
// ProductID permite resolver una desambiguación previa.
type AddCountingItemRequest struct {
	Query     string `json:"query" validate:"required_without=ProductID,max=200"`
	ProductID string `json:"product_id"`
}

// RecordCountRequest body para PUT /api/counting-sessions/:id/items/:itemId.
type RecordCountRequest struct {
	CountedQuantity *int64 `json:"counted_quantity" validate:"required,gte=0"`
}

// CountingItemResponse línea de conteo.
type CountingItemResponse struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"product_id"`
	Barcode         string          `json:"barcode,omitempty"`
	SKU             string          `json:"sku"`
	ProductName     string          `json:"product_name"`
	UnitMeasure     string          `json:"unit_measure"`
	SystemQuantity  int64           `json:"system_quantity"`
	CountedQuantity *int64          `json:"counted_quantity"`
	Difference      int64           `json:"difference"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	ValueDifference decimal.Decimal `json:"value_difference"`
	Status          string          `json:"status"`
	CountedAt       *time.Time      `json:"counted_at,omitempty"`
}

// CountingSessionResponse sesión con sus líneas.
type CountingSessionResponse struct {
	ID          string                 `json:"id"`
	WarehouseID string                 `json:"warehouse_id"`
	Name        string                 `json:"session_name"`
	Status      string                 `json:"status"`
	CreatedBy   string                 `json:"created_by,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Version     int64                  `json:"version"`
	Items       []CountingItemResponse `json:"items"`
}

// CountingSessionListResponse listado sin líneas.
type CountingSessionListResponse struct {
	Items []CountingSessionResponse `json:"items"`
	Page  PageResponse              `json:"page"`
}

// AddCountingItemResponse resultado del alta de una línea. Si Existing es true el producto ya
// estaba en la sesión y se devuelve su línea para recontar. Candidates se llena cuando la
// búsqueda por nombre es ambigua y no se agregó nada.
type AddCountingItemResponse struct {
	Item       *CountingItemResponse `json:"item,omitempty"`
	Existing   bool                  `json:"existing"`
	Candidates []ProductResponse     `json:"candidates,omitempty"`
}

// CountingSummaryResponse resumen calculado sobre las líneas actuales.
type CountingSummaryResponse struct {
	TotalItems              int             `json:"total_items"`
	CountedItems            int             `json:"counted_items"`
	PendingItems            int             `json:"pending_items"`
	MatchedItems            int             `json:"matched_items"`
	UnmatchedItems          int             `json:"unmatched_items"`
	OverstockItems          int             `json:"overstock_items"`
	UnderstockItems         int             `json:"understock_items"`
	TotalQuantityDifference int64           `json:"total_quantity_difference"`
	TotalValueDifference    decimal.Decimal `json:"total_value_difference"`
}

// CompleteCountingResponse sesión completada y ajustes emitidos al ledger.
type CompleteCountingResponse struct {
	Session     CountingSessionResponse `json:"session"`
	Summary     CountingSummaryResponse `json:"summary"`
	Adjustments []MovementResponse      `json:"adjustments"`
}
