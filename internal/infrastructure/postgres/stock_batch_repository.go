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

var _ repository.StockBatchRepository = (*StockBatchRepo)(nil)

// StockBatchRepo lotes sobre PostgreSQL.
type StockBatchRepo struct {
	q Querier
}

// NewStockBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockBatchRepository(q Querier) *StockBatchRepo {
	return &StockBatchRepo{q: q}
}

const batchColumns = `id, product_id, batch_number, lot_number, expiry_date, quantity, supplier,
	cost_per_unit, is_active, created_at, updated_at`

func scanBatch(row pgx.Row) (*entity.StockBatch, error) {
	var b entity.StockBatch
	err := row.Scan(&b.ID, &b.ProductID, &b.BatchNumber, &b.LotNumber, &b.ExpiryDate, &b.Quantity, &b.Supplier,
		&b.CostPerUnit, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create persiste un lote; el número de lote es único por producto.
func (r *StockBatchRepo) Create(ctx context.Context, b *entity.StockBatch) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_batches (`+batchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.ProductID, b.BatchNumber, b.LotNumber, b.ExpiryDate, b.Quantity, b.Supplier,
		b.CostPerUnit, b.IsActive, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: el lote %s ya existe para el producto", domain.ErrDuplicate, b.BatchNumber)
		}
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID.
func (r *StockBatchRepo) GetByID(ctx context.Context, id string) (*entity.StockBatch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, `SELECT `+batchColumns+` FROM stock_batches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// Update guarda cantidad y estado del lote.
func (r *StockBatchRepo) Update(ctx context.Context, b *entity.StockBatch) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE stock_batches SET quantity = $2, is_active = $3, updated_at = $4
		WHERE id = $1`, b.ID, b.Quantity, b.IsActive, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByProduct lotes de un producto por vencimiento.
func (r *StockBatchRepo) ListByProduct(ctx context.Context, productID string, activeOnly bool) ([]*entity.StockBatch, error) {
	return r.list(ctx, `
		SELECT `+batchColumns+` FROM stock_batches
		WHERE product_id = $1 AND (NOT $2 OR is_active)
		ORDER BY expiry_date, created_at`, productID, activeOnly)
}

// ListExpiringBefore lotes activos con remanente que vencen hasta la fecha.
func (r *StockBatchRepo) ListExpiringBefore(ctx context.Context, before time.Time) ([]*entity.StockBatch, error) {
	return r.list(ctx, `
		SELECT `+batchColumns+` FROM stock_batches
		WHERE is_active AND quantity > 0 AND expiry_date <= $1
		ORDER BY expiry_date, created_at`, before)
}

func (r *StockBatchRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockBatch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()
	list := []*entity.StockBatch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}
