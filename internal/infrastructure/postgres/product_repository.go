package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, sku, COALESCE(barcode, ''), name, search_name, unit_measure, cost_price,
	stock_quantity, min_stock_level, reorder_point, version, created_at, updated_at`

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name, &p.SearchName, &p.UnitMeasure, &p.CostPrice,
		&p.StockQuantity, &p.MinStockLevel, &p.ReorderPoint, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persiste un nuevo producto.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (id, sku, barcode, name, search_name, unit_measure, cost_price, stock_quantity,
			min_stock_level, reorder_point, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.SKU, nullString(p.Barcode), p.Name, p.SearchName, p.UnitMeasure, p.CostPrice, p.StockQuantity,
		p.MinStockLevel, p.ReorderPoint, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila del agregado hasta el fin de la transacción.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

// GetByCode busca por código de barras o SKU exacto; el código de barras tiene prioridad.
func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	return r.getOne(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE barcode = $1 OR sku = $1
		ORDER BY (barcode = $1) DESC NULLS LAST
		LIMIT 1`, code)
}

// SearchByName coincidencia parcial sobre el nombre normalizado.
func (r *ProductRepo) SearchByName(ctx context.Context, normalized string, limit int) ([]*entity.Product, error) {
	return r.list(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE search_name LIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY name
		LIMIT $2`, likeEscape(normalized), limitArg(limit))
}

// UpdateStock escribe el agregado con control optimista de versión.
func (r *ProductRepo) UpdateStock(ctx context.Context, productID string, quantity, expectedVersion int64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE products SET stock_quantity = $2, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $3`, productID, quantity, expectedVersion)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

// UpdateCost actualiza el costo promedio ponderado.
func (r *ProductRepo) UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE products SET cost_price = $2, updated_at = now() WHERE id = $1`, productID, cost)
	if err != nil {
		return fmt.Errorf("update cost: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListNeedingReorder productos en o bajo su punto de reorden, o bajo el mínimo.
func (r *ProductRepo) ListNeedingReorder(ctx context.Context, limit int) ([]*entity.Product, error) {
	return r.list(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE stock_quantity <= reorder_point OR stock_quantity < min_stock_level
		ORDER BY stock_quantity - reorder_point
		LIMIT $1`, limitArg(limit))
}

func (r *ProductRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	list := []*entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
