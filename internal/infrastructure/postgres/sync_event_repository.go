package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

var _ repository.SyncEventRepository = (*SyncEventRepo)(nil)

// SyncEventRepo outbox de sincronización sobre PostgreSQL.
type SyncEventRepo struct {
	q Querier
}

// NewSyncEventRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSyncEventRepository(q Querier) *SyncEventRepo {
	return &SyncEventRepo{q: q}
}

const syncEventColumns = `id, movement_id, product_id, sku, delta, new_quantity, status, attempts, last_error,
	next_attempt_at, locked_at, created_at, updated_at`

func scanSyncEvent(row pgx.Row) (*entity.SyncEvent, error) {
	var e entity.SyncEvent
	err := row.Scan(&e.ID, &e.MovementID, &e.ProductID, &e.SKU, &e.Delta, &e.NewQuantity, &e.Status, &e.Attempts,
		&e.LastError, &e.NextAttemptAt, &e.LockedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create encola el evento (dentro de la tx del movimiento).
func (r *SyncEventRepo) Create(ctx context.Context, e *entity.SyncEvent) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sync_events (`+syncEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.MovementID, e.ProductID, e.SKU, e.Delta, e.NewQuantity, e.Status, e.Attempts,
		e.LastError, e.NextAttemptAt, e.LockedAt, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create sync event: %w", err)
	}
	return nil
}

// ClaimDue toma eventos vencidos en una sola sentencia; SKIP LOCKED permite varios despachadores.
func (r *SyncEventRepo) ClaimDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]*entity.SyncEvent, error) {
	return r.list(ctx, `
		UPDATE sync_events SET locked_at = $1, attempts = attempts + 1, updated_at = $1
		WHERE id IN (
			SELECT id FROM sync_events
			WHERE status IN ('pending', 'failed')
			  AND (next_attempt_at IS NULL OR next_attempt_at <= $1)
			  AND (locked_at IS NULL OR locked_at <= $2)
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+syncEventColumns, now, staleBefore, limitArg(limit))
}

// MarkSent evento entregado.
func (r *SyncEventRepo) MarkSent(ctx context.Context, id string, now time.Time) error {
	return r.exec(ctx, `
		UPDATE sync_events
		SET status = 'sent', last_error = '', next_attempt_at = NULL, locked_at = NULL, updated_at = $2
		WHERE id = $1`, id, now)
}

// MarkFailed registra el fallo; dead lo deja terminal.
func (r *SyncEventRepo) MarkFailed(ctx context.Context, id, lastError string, nextAttempt *time.Time, dead bool, now time.Time) error {
	status := entity.SyncStatusFailed
	if dead {
		status = entity.SyncStatusDead
		nextAttempt = nil
	}
	return r.exec(ctx, `
		UPDATE sync_events
		SET status = $2, last_error = $3, next_attempt_at = $4, locked_at = NULL, updated_at = $5
		WHERE id = $1`, id, status, lastError, nextAttempt, now)
}

// ListByStatus más recientes primero; status vacío devuelve todos.
func (r *SyncEventRepo) ListByStatus(ctx context.Context, status string, limit int) ([]*entity.SyncEvent, error) {
	return r.list(ctx, `
		SELECT `+syncEventColumns+` FROM sync_events
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2`, status, limitArg(limit))
}

// GetByMovementID evento generado por un movimiento.
func (r *SyncEventRepo) GetByMovementID(ctx context.Context, movementID string) (*entity.SyncEvent, error) {
	e, err := scanSyncEvent(r.q.QueryRow(ctx, `SELECT `+syncEventColumns+` FROM sync_events WHERE movement_id = $1`, movementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sync event: %w", err)
	}
	return e, nil
}

func (r *SyncEventRepo) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update sync event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SyncEventRepo) list(ctx context.Context, query string, args ...any) ([]*entity.SyncEvent, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sync events: %w", err)
	}
	defer rows.Close()
	list := []*entity.SyncEvent{}
	for rows.Next() {
		e, err := scanSyncEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync event: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
