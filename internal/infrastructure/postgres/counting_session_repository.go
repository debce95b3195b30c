package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

var _ repository.CountingSessionRepository = (*CountingSessionRepo)(nil)

// índice parcial que garantiza una sola sesión in_progress por bodega
const inProgressIndex = "ux_counting_sessions_in_progress"

// CountingSessionRepo sesiones de conteo y sus líneas sobre PostgreSQL.
type CountingSessionRepo struct {
	q Querier
}

// NewCountingSessionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCountingSessionRepository(q Querier) *CountingSessionRepo {
	return &CountingSessionRepo{q: q}
}

const sessionColumns = `id, warehouse_id, name, status, COALESCE(created_by, ''), created_at, updated_at, completed_at, version`

const itemColumns = `id, session_id, product_id, barcode, sku, product_name, unit_measure, system_quantity,
	counted_quantity, cost_price, position, counted_at, created_at`

func scanSession(row pgx.Row) (*entity.CountingSession, error) {
	var s entity.CountingSession
	err := row.Scan(&s.ID, &s.WarehouseID, &s.Name, &s.Status, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt, &s.CompletedAt, &s.Version)
	if err != nil {
		return nil, err
	}
	s.Items = []*entity.CountingItem{}
	return &s, nil
}

func (r *CountingSessionRepo) mapUnique(err error, s *entity.CountingSession) error {
	if isUniqueViolation(err) && constraintName(err) == inProgressIndex {
		return &domain.SessionInProgressError{WarehouseID: s.WarehouseID}
	}
	return nil
}

// Create inserta la sesión y sus líneas iniciales.
func (r *CountingSessionRepo) Create(ctx context.Context, s *entity.CountingSession) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO counting_sessions (id, warehouse_id, name, status, created_by, created_at, updated_at, completed_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.WarehouseID, s.Name, string(s.Status), nullString(s.CreatedBy), s.CreatedAt, s.UpdatedAt, s.CompletedAt, s.Version)
	if err != nil {
		if mapped := r.mapUnique(err, s); mapped != nil {
			return mapped
		}
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create counting session: %w", err)
	}
	return r.upsertItems(ctx, s.Items)
}

// GetByID sesión con líneas ordenadas por posición.
func (r *CountingSessionRepo) GetByID(ctx context.Context, id string) (*entity.CountingSession, error) {
	return r.getWithItems(ctx, `SELECT `+sessionColumns+` FROM counting_sessions WHERE id = $1`, id)
}

// GetForUpdate bloquea la cabecera de la sesión; las líneas sólo se modifican a través de ella.
func (r *CountingSessionRepo) GetForUpdate(ctx context.Context, id string) (*entity.CountingSession, error) {
	return r.getWithItems(ctx, `SELECT `+sessionColumns+` FROM counting_sessions WHERE id = $1 FOR UPDATE`, id)
}

// FindInProgress cabecera de la sesión en curso de la bodega, sin líneas.
func (r *CountingSessionRepo) FindInProgress(ctx context.Context, warehouseID string) (*entity.CountingSession, error) {
	s, err := scanSession(r.q.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM counting_sessions
		WHERE warehouse_id = $1 AND status = 'in_progress'`, warehouseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find in progress session: %w", err)
	}
	return s, nil
}

// List cabeceras más recientes primero.
func (r *CountingSessionRepo) List(ctx context.Context, warehouseID string, status entity.SessionStatus, limit, offset int) ([]*entity.CountingSession, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+sessionColumns+` FROM counting_sessions
		WHERE ($1 = '' OR warehouse_id::text = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, warehouseID, string(status), limitArg(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("list counting sessions: %w", err)
	}
	defer rows.Close()
	list := []*entity.CountingSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan counting session: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Save guarda cabecera y líneas con control optimista de versión. Las líneas nunca se eliminan.
func (r *CountingSessionRepo) Save(ctx context.Context, s *entity.CountingSession) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE counting_sessions
		SET name = $3, status = $4, updated_at = $5, completed_at = $6, version = version + 1
		WHERE id = $1 AND version = $2`,
		s.ID, s.Version, s.Name, string(s.Status), s.UpdatedAt, s.CompletedAt)
	if err != nil {
		if mapped := r.mapUnique(err, s); mapped != nil {
			return mapped
		}
		return fmt.Errorf("save counting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}
	if err := r.upsertItems(ctx, s.Items); err != nil {
		return err
	}
	s.Version++
	return nil
}

func (r *CountingSessionRepo) getWithItems(ctx context.Context, query string, id string) (*entity.CountingSession, error) {
	s, err := scanSession(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get counting session: %w", err)
	}
	rows, err := r.q.Query(ctx, `SELECT `+itemColumns+` FROM counting_items WHERE session_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("list counting items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.CountingItem
		if err := rows.Scan(&it.ID, &it.SessionID, &it.ProductID, &it.Barcode, &it.SKU, &it.ProductName, &it.UnitMeasure,
			&it.SystemQuantity, &it.CountedQuantity, &it.CostPrice, &it.Position, &it.CountedAt, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan counting item: %w", err)
		}
		s.Items = append(s.Items, &it)
	}
	return s, rows.Err()
}

// upsertItems envía todas las líneas en un solo batch. Los campos de foto no se sobrescriben.
func (r *CountingSessionRepo) upsertItems(ctx context.Context, items []*entity.CountingItem) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
			INSERT INTO counting_items (`+itemColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE
			SET counted_quantity = EXCLUDED.counted_quantity, counted_at = EXCLUDED.counted_at`,
			it.ID, it.SessionID, it.ProductID, it.Barcode, it.SKU, it.ProductName, it.UnitMeasure, it.SystemQuantity,
			it.CountedQuantity, it.CostPrice, it.Position, it.CountedAt, it.CreatedAt)
	}
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for range items {
		if _, err := br.Exec(); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: el producto ya está en la sesión", domain.ErrDuplicate)
			}
			return fmt.Errorf("upsert counting item: %w", err)
		}
	}
	return nil
}
