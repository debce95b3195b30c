package repository

import (
	"context"
	"time"

	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

// StockMovementRepository puerto del ledger. Sólo inserción: no existe Update ni Delete.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error)
	// SumByProduct suma de todas las cantidades del producto (auditoría del agregado).
	SumByProduct(ctx context.Context, productID string) (int64, error)
}
