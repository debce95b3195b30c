package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// ProductRepo implementa repository.ProductRepository.
type ProductRepo struct {
	v *view
}

var _ repository.ProductRepository = (*ProductRepo)(nil)

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.products[p.ID]; ok {
			return domain.ErrDuplicate
		}
		for _, other := range st.products {
			if other.SKU == p.SKU || (p.Barcode != "" && other.Barcode == p.Barcode) {
				return domain.ErrDuplicate
			}
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	r.v.read(func(st *state) {
		if p, ok := st.products[id]; ok {
			out = &p
		}
	})
	return out, nil
}

// GetForUpdate las transacciones ya están serializadas.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *ProductRepo) GetByCode(_ context.Context, code string) (*entity.Product, error) {
	var out *entity.Product
	r.v.read(func(st *state) {
		for _, p := range st.products {
			if p.Barcode != "" && p.Barcode == code || p.SKU == code {
				out = &p
				return
			}
		}
	})
	return out, nil
}

func (r *ProductRepo) SearchByName(_ context.Context, normalized string, limit int) ([]*entity.Product, error) {
	out := []*entity.Product{}
	r.v.read(func(st *state) {
		for _, p := range st.products {
			if strings.Contains(p.SearchName, normalized) {
				out = append(out, &p)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, limit, 0), nil
}

func (r *ProductRepo) UpdateStock(_ context.Context, productID string, quantity, expectedVersion int64) error {
	return r.v.write(func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return domain.ErrNotFound
		}
		if p.Version != expectedVersion {
			return domain.ErrConcurrentModification
		}
		p.StockQuantity = quantity
		p.Version++
		p.UpdatedAt = time.Now()
		st.products[productID] = p
		return nil
	})
}

func (r *ProductRepo) UpdateCost(_ context.Context, productID string, cost decimal.Decimal) error {
	return r.v.write(func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return domain.ErrNotFound
		}
		p.CostPrice = cost
		st.products[productID] = p
		return nil
	})
}

func (r *ProductRepo) ListNeedingReorder(_ context.Context, limit int) ([]*entity.Product, error) {
	out := []*entity.Product{}
	r.v.read(func(st *state) {
		for _, p := range st.products {
			if p.NeedsReorder() {
				out = append(out, &p)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].StockQuantity-out[i].ReorderPoint < out[j].StockQuantity-out[j].ReorderPoint
	})
	return paginate(out, limit, 0), nil
}
