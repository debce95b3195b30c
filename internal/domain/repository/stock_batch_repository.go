package repository

import (
	"context"
	"time"

	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

// StockBatchRepository puerto de lotes. Los lotes nunca se eliminan; se desactivan.
type StockBatchRepository interface {
	Create(ctx context.Context, batch *entity.StockBatch) error
	GetByID(ctx context.Context, id string) (*entity.StockBatch, error)
	Update(ctx context.Context, batch *entity.StockBatch) error
	ListByProduct(ctx context.Context, productID string, activeOnly bool) ([]*entity.StockBatch, error)
	// ListExpiringBefore lotes activos con vencimiento anterior o igual a la fecha.
	ListExpiringBefore(ctx context.Context, before time.Time) ([]*entity.StockBatch, error)
}
