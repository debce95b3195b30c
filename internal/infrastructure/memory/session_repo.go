package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// CountingSessionRepo implementa repository.CountingSessionRepository.
type CountingSessionRepo struct {
	v *view
}

var _ repository.CountingSessionRepository = (*CountingSessionRepo)(nil)

func (r *CountingSessionRepo) Create(_ context.Context, s *entity.CountingSession) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.sessions[s.ID]; ok {
			return domain.ErrDuplicate
		}
		if s.Status == entity.SessionInProgress {
			if other := inProgress(st, s.WarehouseID); other != "" {
				return &domain.SessionInProgressError{WarehouseID: s.WarehouseID, SessionID: other}
			}
		}
		st.sessions[s.ID] = toRow(s)
		return nil
	})
}

func (r *CountingSessionRepo) GetByID(_ context.Context, id string) (*entity.CountingSession, error) {
	var out *entity.CountingSession
	r.v.read(func(st *state) {
		if row, ok := st.sessions[id]; ok {
			out = fromRow(row, true)
		}
	})
	return out, nil
}

func (r *CountingSessionRepo) GetForUpdate(ctx context.Context, id string) (*entity.CountingSession, error) {
	return r.GetByID(ctx, id)
}

func (r *CountingSessionRepo) FindInProgress(_ context.Context, warehouseID string) (*entity.CountingSession, error) {
	var out *entity.CountingSession
	r.v.read(func(st *state) {
		if id := inProgress(st, warehouseID); id != "" {
			out = fromRow(st.sessions[id], false)
		}
	})
	return out, nil
}

func (r *CountingSessionRepo) List(_ context.Context, warehouseID string, status entity.SessionStatus, limit, offset int) ([]*entity.CountingSession, error) {
	out := []*entity.CountingSession{}
	r.v.read(func(st *state) {
		for _, row := range st.sessions {
			if warehouseID != "" && row.session.WarehouseID != warehouseID {
				continue
			}
			if status != "" && row.session.Status != status {
				continue
			}
			out = append(out, fromRow(row, false))
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, limit, offset), nil
}

func (r *CountingSessionRepo) Save(_ context.Context, s *entity.CountingSession) error {
	return r.v.write(func(st *state) error {
		current, ok := st.sessions[s.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if current.session.Version != s.Version {
			return domain.ErrConcurrentModification
		}
		if s.Status == entity.SessionInProgress {
			if other := inProgress(st, s.WarehouseID); other != "" && other != s.ID {
				return &domain.SessionInProgressError{WarehouseID: s.WarehouseID, SessionID: other}
			}
		}
		s.Version++
		st.sessions[s.ID] = toRow(s)
		return nil
	})
}

func inProgress(st *state, warehouseID string) string {
	for id, row := range st.sessions {
		if row.session.WarehouseID == warehouseID && row.session.Status == entity.SessionInProgress {
			return id
		}
	}
	return ""
}

func toRow(s *entity.CountingSession) sessionRow {
	row := sessionRow{session: *s, items: make([]entity.CountingItem, 0, len(s.Items))}
	row.session.Items = nil
	row.session.CompletedAt = copyTime(s.CompletedAt)
	for _, it := range s.Items {
		item := *it
		item.CountedQuantity = copyInt(it.CountedQuantity)
		item.CountedAt = copyTime(it.CountedAt)
		row.items = append(row.items, item)
	}
	return row
}

func fromRow(row sessionRow, withItems bool) *entity.CountingSession {
	s := row.session
	s.CompletedAt = copyTime(row.session.CompletedAt)
	s.Items = []*entity.CountingItem{}
	if withItems {
		for _, it := range row.items {
			item := it
			item.CountedQuantity = copyInt(it.CountedQuantity)
			item.CountedAt = copyTime(it.CountedAt)
			s.Items = append(s.Items, &item)
		}
		sort.SliceStable(s.Items, func(i, j int) bool { return s.Items[i].Position < s.Items[j].Position })
	}
	return &s
}
