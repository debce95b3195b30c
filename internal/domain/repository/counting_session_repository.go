package repository

import (
	"context"

	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

// CountingSessionRepository persiste sesiones de conteo y sus líneas del lado del servidor.
type CountingSessionRepository interface {
	// Create falla con domain.ErrSessionInProgress si ya hay una sesión en curso en la bodega.
	Create(ctx context.Context, session *entity.CountingSession) error
	// GetByID devuelve la sesión con sus líneas ordenadas por posición.
	GetByID(ctx context.Context, id string) (*entity.CountingSession, error)
	GetForUpdate(ctx context.Context, id string) (*entity.CountingSession, error)
	FindInProgress(ctx context.Context, warehouseID string) (*entity.CountingSession, error)
	// List sin líneas; warehouseID y status vacíos no filtran.
	List(ctx context.Context, warehouseID string, status entity.SessionStatus, limit, offset int) ([]*entity.CountingSession, error)
	// Save guarda cabecera y líneas si session.Version coincide con la persistida, e incrementa Version.
	Save(ctx context.Context, session *entity.CountingSession) error
}
