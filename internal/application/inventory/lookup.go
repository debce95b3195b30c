package inventory

import (
	"context"
	"strings"

	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	domaininv "github.com/jhoicas/farmacia-stock/internal/domain/inventory"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// DefaultLookupLimit máximo de candidatos devueltos por búsqueda de nombre.
const DefaultLookupLimit = 20

// Lookup resultado de buscar un producto por código o nombre.
type Lookup struct {
	Exact      *entity.Product   // coincidencia exacta de código de barras o SKU
	Candidates []*entity.Product // coincidencias por nombre cuando no hubo código exacto
}

// LookupProduct resuelve una consulta de escáner o teclado: primero código de barras / SKU exacto,
// luego coincidencia parcial por nombre normalizado (sin tildes ni mayúsculas).
func LookupProduct(ctx context.Context, products repository.ProductRepository, query string, limit int) (*Lookup, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &Lookup{}, nil
	}
	if limit <= 0 {
		limit = DefaultLookupLimit
	}
	p, err := products.GetByCode(ctx, query)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return &Lookup{Exact: p}, nil
	}
	normalized := domaininv.NormalizeName(query)
	if normalized == "" {
		return &Lookup{}, nil
	}
	list, err := products.SearchByName(ctx, normalized, limit)
	if err != nil {
		return nil, err
	}
	return &Lookup{Candidates: list}, nil
}
