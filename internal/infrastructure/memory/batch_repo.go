package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// StockBatchRepo implementa repository.StockBatchRepository.
type StockBatchRepo struct {
	v *view
}

var _ repository.StockBatchRepository = (*StockBatchRepo)(nil)

func (r *StockBatchRepo) Create(_ context.Context, b *entity.StockBatch) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.batches[b.ID]; ok {
			return domain.ErrDuplicate
		}
		for _, other := range st.batches {
			if other.ProductID == b.ProductID && other.BatchNumber == b.BatchNumber {
				return domain.ErrDuplicate
			}
		}
		st.batches[b.ID] = *b
		return nil
	})
}

func (r *StockBatchRepo) GetByID(_ context.Context, id string) (*entity.StockBatch, error) {
	var out *entity.StockBatch
	r.v.read(func(st *state) {
		if b, ok := st.batches[id]; ok {
			out = &b
		}
	})
	return out, nil
}

func (r *StockBatchRepo) Update(_ context.Context, b *entity.StockBatch) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.batches[b.ID]; !ok {
			return domain.ErrNotFound
		}
		st.batches[b.ID] = *b
		return nil
	})
}

func (r *StockBatchRepo) ListByProduct(_ context.Context, productID string, activeOnly bool) ([]*entity.StockBatch, error) {
	return r.list(func(b entity.StockBatch) bool {
		return b.ProductID == productID && (!activeOnly || b.IsActive)
	}), nil
}

func (r *StockBatchRepo) ListExpiringBefore(_ context.Context, before time.Time) ([]*entity.StockBatch, error) {
	return r.list(func(b entity.StockBatch) bool {
		return b.IsActive && b.Quantity > 0 && !b.ExpiryDate.After(before)
	}), nil
}

func (r *StockBatchRepo) list(match func(entity.StockBatch) bool) []*entity.StockBatch {
	out := []*entity.StockBatch{}
	r.v.read(func(st *state) {
		for _, b := range st.batches {
			if match(b) {
				out = append(out, &b)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
