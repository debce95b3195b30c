package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// Los métodos Get* devuelven (nil, nil) cuando el producto no existe.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetForUpdate bloquea la fila del agregado (SELECT FOR UPDATE) dentro de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	// GetByCode busca por código de barras o SKU exacto.
	GetByCode(ctx context.Context, code string) (*entity.Product, error)
	// SearchByName busca por nombre normalizado (ver entity.Product.SearchName).
	SearchByName(ctx context.Context, normalized string, limit int) ([]*entity.Product, error)
	// UpdateStock escribe el nuevo agregado sólo si la versión coincide; si no, ErrConcurrentModification.
	UpdateStock(ctx context.Context, productID string, quantity, expectedVersion int64) error
	UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error
	ListNeedingReorder(ctx context.Context, limit int) ([]*entity.Product, error)
}
