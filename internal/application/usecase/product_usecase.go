package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/farmacia-stock/internal/application/dto"
	"github.com/jhoicas/farmacia-stock/internal/application/inventory"
	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	domaininv "github.com/jhoicas/farmacia-stock/internal/domain/inventory"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// ProductUseCase alta y consulta de productos. Costo y stock se manejan vía movimientos.
type ProductUseCase struct {
	repo repository.ProductRepository
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{repo: repo}
}

// Create crea un nuevo producto con stock 0. El costo informado es el costo de referencia
// hasta la primera entrada con costo.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Barcode = strings.TrimSpace(in.Barcode)
	if in.SKU == "" || strings.TrimSpace(in.Name) == "" || in.CostPrice.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	for _, code := range []string{in.SKU, in.Barcode} {
		if code == "" {
			continue
		}
		existing, err := uc.repo.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.ErrDuplicate
		}
	}
	if in.UnitMeasure == "" {
		in.UnitMeasure = "unidad"
	}
	now := time.Now()
	product := &entity.Product{
		ID:            uuid.New().String(),
		SKU:           in.SKU,
		Barcode:       in.Barcode,
		Name:          strings.TrimSpace(in.Name),
		SearchName:    domaininv.NormalizeName(in.Name),
		UnitMeasure:   in.UnitMeasure,
		CostPrice:     in.CostPrice.Round(4),
		StockQuantity: 0,
		MinStockLevel: in.MinStockLevel,
		ReorderPoint:  in.ReorderPoint,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return ToProductResponse(product), nil
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return ToProductResponse(product), nil
}

// Search busca por código exacto y, si no hay, por nombre.
func (uc *ProductUseCase) Search(ctx context.Context, query string, limit int) (*dto.ProductSearchResponse, error) {
	res, err := inventory.LookupProduct(ctx, uc.repo, query, limit)
	if err != nil {
		return nil, err
	}
	out := &dto.ProductSearchResponse{Items: []dto.ProductResponse{}}
	if res.Exact != nil {
		out.ExactMatch = true
		out.Items = append(out.Items, *ToProductResponse(res.Exact))
		return out, nil
	}
	for _, p := range res.Candidates {
		out.Items = append(out.Items, *ToProductResponse(p))
	}
	return out, nil
}

// ToProductResponse mapea la entidad al DTO de salida.
func ToProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:            p.ID,
		SKU:           p.SKU,
		Barcode:       p.Barcode,
		Name:          p.Name,
		UnitMeasure:   p.UnitMeasure,
		CostPrice:     p.CostPrice,
		StockQuantity: p.StockQuantity,
		MinStockLevel: p.MinStockLevel,
		ReorderPoint:  p.ReorderPoint,
		NeedsReorder:  p.NeedsReorder(),
		UpdatedAt:     p.UpdatedAt,
	}
}
