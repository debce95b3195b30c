package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// SyncEventRepo implementa repository.SyncEventRepository.
type SyncEventRepo struct {
	v *view
}

var _ repository.SyncEventRepository = (*SyncEventRepo)(nil)

func (r *SyncEventRepo) Create(_ context.Context, e *entity.SyncEvent) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.syncEvents[e.ID]; ok {
			return domain.ErrDuplicate
		}
		st.syncEvents[e.ID] = copyEvent(*e)
		return nil
	})
}

func (r *SyncEventRepo) ClaimDue(_ context.Context, now, staleBefore time.Time, limit int) ([]*entity.SyncEvent, error) {
	out := []*entity.SyncEvent{}
	err := r.v.write(func(st *state) error {
		due := make([]entity.SyncEvent, 0)
		for _, e := range st.syncEvents {
			if e.Status != entity.SyncStatusPending && e.Status != entity.SyncStatusFailed {
				continue
			}
			if e.NextAttemptAt != nil && e.NextAttemptAt.After(now) {
				continue
			}
			if e.LockedAt != nil && e.LockedAt.After(staleBefore) {
				continue
			}
			due = append(due, e)
		}
		sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
		for _, e := range paginate(due, limit, 0) {
			locked := now
			e.LockedAt = &locked
			e.Attempts++
			e.UpdatedAt = now
			st.syncEvents[e.ID] = e
			c := copyEvent(e)
			out = append(out, &c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SyncEventRepo) MarkSent(_ context.Context, id string, now time.Time) error {
	return r.v.write(func(st *state) error {
		e, ok := st.syncEvents[id]
		if !ok {
			return domain.ErrNotFound
		}
		e.Status = entity.SyncStatusSent
		e.LastError = ""
		e.NextAttemptAt = nil
		e.LockedAt = nil
		e.UpdatedAt = now
		st.syncEvents[id] = e
		return nil
	})
}

func (r *SyncEventRepo) MarkFailed(_ context.Context, id, lastError string, nextAttempt *time.Time, dead bool, now time.Time) error {
	return r.v.write(func(st *state) error {
		e, ok := st.syncEvents[id]
		if !ok {
			return domain.ErrNotFound
		}
		e.Status = entity.SyncStatusFailed
		if dead {
			e.Status = entity.SyncStatusDead
			nextAttempt = nil
		}
		e.LastError = lastError
		e.NextAttemptAt = copyTime(nextAttempt)
		e.LockedAt = nil
		e.UpdatedAt = now
		st.syncEvents[id] = e
		return nil
	})
}

func (r *SyncEventRepo) ListByStatus(_ context.Context, status string, limit int) ([]*entity.SyncEvent, error) {
	out := []*entity.SyncEvent{}
	r.v.read(func(st *state) {
		for _, e := range st.syncEvents {
			if status == "" || e.Status == status {
				c := copyEvent(e)
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, limit, 0), nil
}

func (r *SyncEventRepo) GetByMovementID(_ context.Context, movementID string) (*entity.SyncEvent, error) {
	var out *entity.SyncEvent
	r.v.read(func(st *state) {
		for _, e := range st.syncEvents {
			if e.MovementID == movementID {
				c := copyEvent(e)
				out = &c
				return
			}
		}
	})
	return out, nil
}

func copyEvent(e entity.SyncEvent) entity.SyncEvent {
	e.NextAttemptAt = copyTime(e.NextAttemptAt)
	e.LockedAt = copyTime(e.LockedAt)
	return e
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func copyInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
