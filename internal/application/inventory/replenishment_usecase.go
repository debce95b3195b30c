package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-stock/internal/application/dto"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// ReplenishmentUseCase genera la lista de reposición a partir del agregado de stock.
type ReplenishmentUseCase struct {
	products repository.ProductRepository
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(products repository.ProductRepository) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{products: products}
}

// GenerateReplenishmentList devuelve los productos en o bajo su punto de reorden (o bajo el mínimo)
// con la cantidad sugerida de pedido y un ranking de prioridad por déficit.
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context, limit int) ([]dto.ReplenishmentSuggestionDTO, error) {
	if limit <= 0 {
		limit = 200
	}
	// 1. Productos por debajo del punto de reorden
	rawItems, err := uc.products.ListNeedingReorder(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(rawItems) == 0 {
		return []dto.ReplenishmentSuggestionDTO{}, nil
	}

	// 2. Construir los DTOs: stock ideal = max(2 * reorden, mínimo)
	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0, len(rawItems))
	for _, p := range rawItems {
		ideal := p.ReorderPoint * 2
		if p.MinStockLevel > ideal {
			ideal = p.MinStockLevel
		}
		suggested := ideal - p.StockQuantity
		if suggested < 0 {
			suggested = 0
		}
		suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
			ProductID:          p.ID,
			SKU:                p.SKU,
			ProductName:        p.Name,
			CurrentStock:       p.StockQuantity,
			MinStockLevel:      p.MinStockLevel,
			ReorderPoint:       p.ReorderPoint,
			IdealStock:         ideal,
			SuggestedOrderQty:  suggested,
			UnitCost:           p.CostPrice,
			EstimatedOrderCost: p.CostPrice.Mul(decimal.NewFromInt(suggested)),
			BelowMinimum:       p.IsBelowMinimum(),
		})
	}

	// 3. Ordenar: primero bajo mínimo, luego mayor déficit frente al punto de reorden
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.BelowMinimum != b.BelowMinimum {
			return a.BelowMinimum
		}
		return a.ReorderPoint-a.CurrentStock > b.ReorderPoint-b.CurrentStock
	})

	// 4. Asignar prioridad (1 = más urgente)
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
