package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterMovementRequest body para POST /api/inventory/movements. Quantity es el delta con signo.
type RegisterMovementRequest struct {
	ProductID     string           `json:"product_id" validate:"required"`
	Type          string           `json:"type" validate:"required"`
	Quantity      int64            `json:"quantity"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	Reason        string           `json:"reason" validate:"max=500"`
	Notes         string           `json:"notes" validate:"max=2000"`
	BatchID       string           `json:"batch_id,omitempty"`
	ReferenceType string           `json:"reference_type,omitempty" validate:"max=50"`
	ReferenceID   string           `json:"reference_id,omitempty" validate:"max=100"`
	MovementDate  *time.Time       `json:"movement_date,omitempty"`
}

// OpeningBalanceRequest body para POST /api/inventory/opening-balances.
type OpeningBalanceRequest struct {
	ProductID     string           `json:"product_id" validate:"required"`
	Quantity      int64            `json:"quantity"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	EffectiveDate *time.Time       `json:"effective_date,omitempty"`
	Notes         string           `json:"notes" validate:"max=2000"`
}

// MovementResponse entrada del ledger.
type MovementResponse struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"product_id"`
	BatchID        string          `json:"batch_id,omitempty"`
	Type           string          `json:"movement_type"`
	Quantity       int64           `json:"quantity"`
	QuantityBefore int64           `json:"quantity_before"`
	QuantityAfter  int64           `json:"quantity_after"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	Reason         string          `json:"reason,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	ReferenceType  string          `json:"reference_type,omitempty"`
	ReferenceID    string          `json:"reference_id,omitempty"`
	MovementDate   time.Time       `json:"movement_date"`
	CreatedBy      string          `json:"created_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BatchDeductionDTO unidades descontadas de un lote.
type BatchDeductionDTO struct {
	BatchID     string `json:"batch_id"`
	BatchNumber string `json:"batch_number"`
	Quantity    int64  `json:"quantity"`
}

// ApplyMovementResponse resultado de registrar un movimiento. Los avisos no son errores:
// el movimiento ya quedó confirmado.
type ApplyMovementResponse struct {
	Movement   *MovementResponse   `json:"movement"`
	Deductions []BatchDeductionDTO `json:"batch_deductions,omitempty"`
	Untracked  int64               `json:"untracked_quantity,omitempty"`
	SyncQueued bool                `json:"sync_queued"`
	Warnings   []string            `json:"warnings,omitempty"`
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// MovementDetailResponse movimiento con el estado de su sincronización externa (si aplica).
type MovementDetailResponse struct {
	Movement MovementResponse   `json:"movement"`
	Sync     *SyncEventResponse `json:"sync,omitempty"`
}

// AuditResponse comparación agregado vs ledger.
type AuditResponse struct {
	ProductID     string `json:"product_id"`
	StockQuantity int64  `json:"stock_quantity"`
	LedgerSum     int64  `json:"ledger_sum"`
	Consistent    bool   `json:"consistent"`
}

// ReplenishmentSuggestionDTO representa una sugerencia de reposición para un producto
// que se encuentra en o por debajo de su punto de reorden.
type ReplenishmentSuggestionDTO struct {
	ProductID          string          `json:"product_id"`
	SKU                string          `json:"sku"`
	ProductName        string          `json:"product_name"`
	CurrentStock       int64           `json:"current_stock"`
	MinStockLevel      int64           `json:"min_stock_level"`
	ReorderPoint       int64           `json:"reorder_point"`
	IdealStock         int64           `json:"ideal_stock"`          // max(ReorderPoint * 2, MinStockLevel)
	SuggestedOrderQty  int64           `json:"suggested_order_qty"`  // IdealStock - CurrentStock
	UnitCost           decimal.Decimal `json:"unit_cost"`            // costo promedio ponderado
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"` // SuggestedOrderQty * UnitCost
	BelowMinimum       bool            `json:"below_minimum"`
	Priority           int             `json:"priority"` // 1 = más urgente
}

// AddBatchRequest body para POST /api/batches.
type AddBatchRequest struct {
	ProductID   string          `json:"product_id" validate:"required"`
	BatchNumber string          `json:"batch_number" validate:"required,max=100"`
	LotNumber   string          `json:"lot_number" validate:"max=100"`
	ExpiryDate  time.Time       `json:"expiry_date" validate:"required"`
	Quantity    int64           `json:"quantity" validate:"required,gt=0"`
	Supplier    string          `json:"supplier" validate:"max=200"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
}

// DiscardBatchRequest body para POST /api/batches/:id/discard.
type DiscardBatchRequest struct {
	Type   string `json:"type" validate:"omitempty,oneof=expired damaged"`
	Reason string `json:"reason" validate:"max=500"`
}

// BatchResponse lote con su estado de vencimiento.
type BatchResponse struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"product_id"`
	BatchNumber     string          `json:"batch_number"`
	LotNumber       string          `json:"lot_number,omitempty"`
	ExpiryDate      time.Time       `json:"expiry_date"`
	Quantity        int64           `json:"quantity"`
	Supplier        string          `json:"supplier,omitempty"`
	CostPerUnit     decimal.Decimal `json:"cost_per_unit"`
	IsActive        bool            `json:"is_active"`
	DaysUntilExpiry int             `json:"days_until_expiry"`
	ExpiryStatus    string          `json:"expiry_status"`
}

// AddBatchResponse lote creado y su movimiento de entrada.
type AddBatchResponse struct {
	Batch    BatchResponse          `json:"batch"`
	Movement *ApplyMovementResponse `json:"movement,omitempty"`
}
