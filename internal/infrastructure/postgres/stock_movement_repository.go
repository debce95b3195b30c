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

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo ledger sobre PostgreSQL. La tabla rechaza UPDATE y DELETE por trigger.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, product_id, batch_id, movement_type, quantity, quantity_before, quantity_after,
	unit_cost, total_cost, reason, notes, reference_type, reference_id, movement_date, created_at, created_by`

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var batchID, refType, refID, createdBy *string
	err := row.Scan(&m.ID, &m.ProductID, &batchID, &m.Type, &m.Quantity, &m.QuantityBefore, &m.QuantityAfter,
		&m.UnitCost, &m.TotalCost, &m.Reason, &m.Notes, &refType, &refID, &m.MovementDate, &m.CreatedAt, &createdBy)
	if err != nil {
		return nil, err
	}
	m.BatchID = derefString(batchID)
	m.ReferenceType = derefString(refType)
	m.ReferenceID = derefString(refID)
	m.CreatedBy = derefString(createdBy)
	return &m, nil
}

// Create inserta un movimiento.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ProductID, nullString(m.BatchID), string(m.Type), m.Quantity, m.QuantityBefore, m.QuantityAfter,
		m.UnitCost, m.TotalCost, m.Reason, m.Notes, nullString(m.ReferenceType), nullString(m.ReferenceID),
		m.MovementDate, m.CreatedAt, nullString(m.CreatedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// ListByProduct lista movimientos de un producto en un rango de fechas.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE product_id = $1`
	args := []any{productID}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND movement_date >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND movement_date <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY movement_date DESC, created_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limitArg(limit), offset)
	return r.list(ctx, query, args...)
}

// ListByReference movimientos originados por un mismo documento (ej. sesión de conteo).
func (r *StockMovementRepo) ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.StockMovement, error) {
	return r.list(ctx, `
		SELECT `+movementColumns+` FROM stock_movements
		WHERE reference_type = $1 AND reference_id = $2
		ORDER BY created_at`, referenceType, referenceID)
}

// SumByProduct suma del ledger del producto.
func (r *StockMovementRepo) SumByProduct(ctx context.Context, productID string) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0)::bigint FROM stock_movements WHERE product_id = $1`, productID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum movements: %w", err)
	}
	return sum, nil
}

func (r *StockMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	list := []*entity.StockMovement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
