package ports

import (
	"context"

	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Products   repository.ProductRepository
	Movements  repository.StockMovementRepository
	Batches    repository.StockBatchRepository
	Sessions   repository.CountingSessionRepository
	SyncEvents repository.SyncEventRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback y no queda ninguna escritura parcial.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}
