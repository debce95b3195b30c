package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// StockMovementRepo implementa repository.StockMovementRepository (sólo inserción).
type StockMovementRepo struct {
	v *view
}

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

func (r *StockMovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	return r.v.write(func(st *state) error {
		for _, existing := range st.movements {
			if existing.ID == m.ID {
				return domain.ErrDuplicate
			}
		}
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (r *StockMovementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	var out *entity.StockMovement
	r.v.read(func(st *state) {
		for _, m := range st.movements {
			if m.ID == id {
				out = &m
				return
			}
		}
	})
	return out, nil
}

func (r *StockMovementRepo) ListByProduct(_ context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	out := []*entity.StockMovement{}
	r.v.read(func(st *state) {
		// orden de inserción invertido: más recientes primero
		for i := len(st.movements) - 1; i >= 0; i-- {
			m := st.movements[i]
			if m.ProductID != productID {
				continue
			}
			if from != nil && m.MovementDate.Before(*from) {
				continue
			}
			if to != nil && m.MovementDate.After(*to) {
				continue
			}
			out = append(out, &m)
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].MovementDate.After(out[j].MovementDate) })
	return paginate(out, limit, offset), nil
}

func (r *StockMovementRepo) ListByReference(_ context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error) {
	out := []*entity.StockMovement{}
	r.v.read(func(st *state) {
		for _, m := range st.movements {
			if m.ReferenceType == referenceType && m.ReferenceID == referenceID {
				out = append(out, &m)
			}
		}
	})
	return out, nil
}

func (r *StockMovementRepo) SumByProduct(_ context.Context, productID string) (int64, error) {
	var sum int64
	r.v.read(func(st *state) {
		for _, m := range st.movements {
			if m.ProductID == productID {
				sum += m.Quantity
			}
		}
	})
	return sum, nil
}
