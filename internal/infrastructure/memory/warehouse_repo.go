package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// WarehouseRepo implementa repository.WarehouseRepository.
type WarehouseRepo struct {
	v *view
}

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

func (r *WarehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.warehouses[w.ID]; ok {
			return domain.ErrDuplicate
		}
		st.warehouses[w.ID] = *w
		return nil
	})
}

func (r *WarehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	var out *entity.Warehouse
	r.v.read(func(st *state) {
		if w, ok := st.warehouses[id]; ok {
			out = &w
		}
	})
	return out, nil
}

func (r *WarehouseRepo) List(_ context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	out := []*entity.Warehouse{}
	r.v.read(func(st *state) {
		for _, w := range st.warehouses {
			out = append(out, &w)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, limit, offset), nil
}
