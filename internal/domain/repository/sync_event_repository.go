package repository

import (
	"context"
	"time"

	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

// SyncEventRepository outbox de deltas de entrada hacia el marketplace.
type SyncEventRepository interface {
	Create(ctx context.Context, event *entity.SyncEvent) error
	// ClaimDue toma hasta limit eventos pendientes o fallidos cuyo próximo intento ya venció,
	// más los que quedaron bloqueados antes de staleBefore, y los marca como tomados.
	ClaimDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]*entity.SyncEvent, error)
	MarkSent(ctx context.Context, id string, now time.Time) error
	// MarkFailed registra el error; nextAttempt nil junto con dead=true lo deja terminal.
	MarkFailed(ctx context.Context, id, lastError string, nextAttempt *time.Time, dead bool, now time.Time) error
	// ListByStatus status vacío devuelve todos, más recientes primero.
	ListByStatus(ctx context.Context, status string, limit int) ([]*entity.SyncEvent, error)
	// GetByMovementID devuelve (nil, nil) si el movimiento no generó evento.
	GetByMovementID(ctx context.Context, movementID string) (*entity.SyncEvent, error)
}
