package stocksync

import (
	"context"
	"fmt"

	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// Monitor consulta pasiva del estado de sincronización (avisos en el dashboard).
type Monitor struct {
	events repository.SyncEventRepository
}

// NewMonitor construye la consulta.
func NewMonitor(events repository.SyncEventRepository) *Monitor {
	return &Monitor{events: events}
}

// ListEvents eventos por estado; vacío devuelve todos.
func (m *Monitor) ListEvents(ctx context.Context, status string, limit int) ([]*entity.SyncEvent, error) {
	switch status {
	case "", entity.SyncStatusPending, entity.SyncStatusSent, entity.SyncStatusFailed, entity.SyncStatusDead:
	default:
		return nil, fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, status)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return m.events.ListByStatus(ctx, status, limit)
}

// ForMovement evento generado por un movimiento, o nil si no generó ninguno.
func (m *Monitor) ForMovement(ctx context.Context, movementID string) (*entity.SyncEvent, error) {
	return m.events.GetByMovementID(ctx, movementID)
}
