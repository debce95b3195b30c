package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-stock/internal/application/ports"
	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	domaininv "github.com/jhoicas/farmacia-stock/internal/domain/inventory"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// NegativeStockPolicy política del despliegue frente a movimientos que dejarían stock negativo.
type NegativeStockPolicy string

const (
	NegativeReject           NegativeStockPolicy = "reject"            // ningún tipo puede dejar stock negativo
	NegativeAllowAdjustments NegativeStockPolicy = "allow_adjustments" // adjustment y opening_balance quedan exentos
	NegativeAllow            NegativeStockPolicy = "allow"
)

// ParseNegativeStockPolicy vacío equivale a reject.
func ParseNegativeStockPolicy(s string) (NegativeStockPolicy, error) {
	switch p := NegativeStockPolicy(s); p {
	case "":
		return NegativeReject, nil
	case NegativeReject, NegativeAllowAdjustments, NegativeAllow:
		return p, nil
	}
	return "", fmt.Errorf("política de stock negativo desconocida: %q", s)
}

// LedgerConfig parámetros del motor de inventario.
type LedgerConfig struct {
	NegativePolicy NegativeStockPolicy
	MaxRetries     int // reintentos ante ErrConcurrentModification
	Consumption    domaininv.ConsumptionPolicy
	SyncEnabled    bool
}

// Ledger registra movimientos de inventario de forma transaccional: bloquea la fila del producto
// (SELECT FOR UPDATE), escribe el movimiento y el nuevo agregado en la misma transacción y encola
// la sincronización externa de las entradas para después del commit.
type Ledger struct {
	txRunner  ports.TxRunner
	products  repository.ProductRepository
	movements repository.StockMovementRepository
	notifier  ports.SyncNotifier
	cfg       LedgerConfig
	log       zerolog.Logger
	now       func() time.Time
}

// NewLedger construye el caso de uso.
func NewLedger(
	txRunner ports.TxRunner,
	products repository.ProductRepository,
	movements repository.StockMovementRepository,
	notifier ports.SyncNotifier,
	cfg LedgerConfig,
	log zerolog.Logger,
) *Ledger {
	if cfg.Consumption == nil {
		cfg.Consumption = domaininv.FEFO{}
	}
	if cfg.NegativePolicy == "" {
		cfg.NegativePolicy = NegativeReject
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if notifier == nil {
		notifier = ports.NoopNotifier{}
	}
	return &Ledger{
		txRunner:  txRunner,
		products:  products,
		movements: movements,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// MovementRequest entrada de Apply. Quantity es el delta con signo.
type MovementRequest struct {
	ProductID     string
	Type          entity.MovementType
	Quantity      int64
	UnitCost      *decimal.Decimal // por defecto el costo promedio del producto
	Reason        string
	Notes         string
	BatchID       string
	ReferenceType string
	ReferenceID   string
	MovementDate  time.Time // por defecto ahora
	Actor         string
}

// BatchDeduction unidades descontadas de un lote por un movimiento.
type BatchDeduction struct {
	BatchID     string
	BatchNumber string
	Quantity    int64
}

// ApplyResult movimiento escrito más efectos colaterales. Movement es nil cuando AdjustTo
// no tenía diferencia que aplicar.
type ApplyResult struct {
	Movement   *entity.StockMovement
	Deductions []BatchDeduction
	Untracked  int64 // unidades consumidas que no estaban cubiertas por lotes
	SyncQueued bool
	Warnings   []string
}

// Apply valida el signo por tipo, aplica el movimiento y actualiza el agregado como una sola unidad.
func (l *Ledger) Apply(ctx context.Context, req MovementRequest) (*ApplyResult, error) {
	if err := req.Type.ValidateQuantity(req.Quantity); err != nil {
		return nil, err
	}
	if req.ProductID == "" {
		return nil, domain.ErrInvalidInput
	}
	var res *ApplyResult
	err := l.RunInTx(ctx, func(r ports.Repos) error {
		var err error
		res, err = l.ApplyInTx(ctx, r, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.AfterCommit(res)
	return res, nil
}

// OpeningBalanceRequest saldo inicial: stock que existía pero nunca se registró.
type OpeningBalanceRequest struct {
	ProductID     string
	Quantity      int64
	UnitCost      *decimal.Decimal
	EffectiveDate time.Time
	Notes         string
	Actor         string
}

// OpeningBalance suma (nunca reemplaza) la cantidad al stock actual con un movimiento opening_balance.
func (l *Ledger) OpeningBalance(ctx context.Context, in OpeningBalanceRequest) (*ApplyResult, error) {
	return l.Apply(ctx, MovementRequest{
		ProductID:    in.ProductID,
		Type:         entity.MovementOpeningBalance,
		Quantity:     in.Quantity,
		UnitCost:     in.UnitCost,
		Reason:       "Saldo inicial",
		Notes:        in.Notes,
		MovementDate: in.EffectiveDate,
		Actor:        in.Actor,
	})
}

// AdjustToRequest fija el stock en una cantidad absoluta (conteo físico).
type AdjustToRequest struct {
	ProductID       string
	CountedQuantity int64
	Reason          string
	Notes           string
	ReferenceType   string
	ReferenceID     string
	Actor           string
}

// AdjustTo emite un adjustment por counted - quantity_before calculado con la fila bloqueada,
// de modo que el agregado converge con el conteo aunque haya habido ventas entre medio.
func (l *Ledger) AdjustTo(ctx context.Context, in AdjustToRequest) (*ApplyResult, error) {
	if in.ProductID == "" || in.CountedQuantity < 0 {
		return nil, domain.ErrInvalidInput
	}
	var res *ApplyResult
	err := l.RunInTx(ctx, func(r ports.Repos) error {
		var err error
		res, err = l.AdjustToInTx(ctx, r, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.AfterCommit(res)
	return res, nil
}

// RunInTx ejecuta fn en una transacción y la repite completa ante ErrConcurrentModification,
// hasta MaxRetries veces, recalculando contra el estado fresco.
func (l *Ledger) RunInTx(ctx context.Context, fn func(r ports.Repos) error) error {
	var err error
	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		err = l.txRunner.Run(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		l.log.Debug().Int("attempt", attempt+1).Msg("modificación concurrente en el agregado, reintentando")
	}
	return err
}

// AfterCommit despierta al despachador si alguna entrada quedó encolada.
func (l *Ledger) AfterCommit(results ...*ApplyResult) {
	for _, res := range results {
		if res != nil && res.SyncQueued {
			l.notifier.Notify()
			return
		}
	}
}

// ApplyInTx aplica el movimiento con los repositorios de una transacción abierta por el caller
// (lotes, conciliación). No hace commit.
func (l *Ledger) ApplyInTx(ctx context.Context, r ports.Repos, req MovementRequest) (*ApplyResult, error) {
	return l.applyDelta(ctx, r, req, false, func(int64) int64 { return req.Quantity })
}

// AdjustToInTx igual que AdjustTo dentro de una transacción abierta.
func (l *Ledger) AdjustToInTx(ctx context.Context, r ports.Repos, in AdjustToRequest) (*ApplyResult, error) {
	req := MovementRequest{
		ProductID:     in.ProductID,
		Type:          entity.MovementAdjustment,
		Reason:        in.Reason,
		Notes:         in.Notes,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Actor:         in.Actor,
	}
	if in.CountedQuantity < 0 {
		return nil, domain.ErrInvalidInput
	}
	return l.applyDelta(ctx, r, req, true, func(before int64) int64 { return in.CountedQuantity - before })
}

// applyDelta núcleo del ledger. allowNoop permite que un delta cero termine sin escribir nada
// (AdjustTo sin diferencia); en los demás casos un delta cero es un movimiento inválido.
func (l *Ledger) applyDelta(ctx context.Context, r ports.Repos, req MovementRequest, allowNoop bool, deltaFn func(before int64) int64) (*ApplyResult, error) {
	// Bloquea la fila del producto para serializar los movimientos del mismo producto
	product, err := r.Products.GetForUpdate(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	before := product.StockQuantity
	delta := deltaFn(before)
	if delta == 0 && allowNoop {
		return &ApplyResult{}, nil
	}

	now := l.now()
	unitCost := product.CostPrice
	if req.UnitCost != nil {
		unitCost = *req.UnitCost
	}
	movementDate := req.MovementDate
	if movementDate.IsZero() {
		movementDate = now
	}
	mov, err := entity.NewStockMovement(entity.MovementParams{
		ID:             uuid.New().String(),
		ProductID:      product.ID,
		BatchID:        req.BatchID,
		Type:           req.Type,
		Quantity:       delta,
		QuantityBefore: before,
		UnitCost:       unitCost,
		Reason:         req.Reason,
		Notes:          req.Notes,
		ReferenceType:  req.ReferenceType,
		ReferenceID:    req.ReferenceID,
		MovementDate:   movementDate,
		CreatedAt:      now,
		CreatedBy:      req.Actor,
	})
	if err != nil {
		return nil, err
	}
	if mov.QuantityAfter < 0 && !l.allowsNegative(req.Type) {
		return nil, &domain.InsufficientStockError{ProductID: product.ID, Available: before, Requested: -delta}
	}

	res := &ApplyResult{Movement: mov}
	if err := l.trackBatches(ctx, r, product.ID, req, delta, now, res); err != nil {
		return nil, err
	}

	// Entradas con costo explícito recalculan el costo promedio ponderado
	if req.UnitCost != nil && delta > 0 && (req.Type == entity.MovementPurchase || req.Type == entity.MovementOpeningBalance) {
		newCost := domaininv.CostCalculator(before, product.CostPrice, delta, unitCost)
		if !newCost.Equal(product.CostPrice) {
			if err := r.Products.UpdateCost(ctx, product.ID, newCost); err != nil {
				return nil, err
			}
		}
	}
	if err := r.Products.UpdateStock(ctx, product.ID, mov.QuantityAfter, product.Version); err != nil {
		return nil, err
	}
	if err := r.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}

	if req.Type.IsReceiving(delta) && l.cfg.SyncEnabled {
		if product.SKU == "" {
			res.Warnings = append(res.Warnings, "producto sin SKU: la entrada no se sincroniza con el marketplace")
		} else {
			ev := &entity.SyncEvent{
				ID:          uuid.New().String(),
				MovementID:  mov.ID,
				ProductID:   product.ID,
				SKU:         product.SKU,
				Delta:       delta,
				NewQuantity: mov.QuantityAfter,
				Status:      entity.SyncStatusPending,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := r.SyncEvents.Create(ctx, ev); err != nil {
				return nil, err
			}
			res.SyncQueued = true
		}
	}
	return res, nil
}

// trackBatches descuenta lotes en las salidas (política configurable, lote fijado primero)
// y repone el lote indicado en las devoluciones.
func (l *Ledger) trackBatches(ctx context.Context, r ports.Repos, productID string, req MovementRequest, delta int64, now time.Time, res *ApplyResult) error {
	var pinned *entity.StockBatch
	if req.BatchID != "" {
		b, err := r.Batches.GetByID(ctx, req.BatchID)
		if err != nil {
			return err
		}
		if b == nil || b.ProductID != productID {
			return fmt.Errorf("%w: el lote no pertenece al producto", domain.ErrInvalidInput)
		}
		pinned = b
	}

	switch {
	case delta < 0:
		batches, err := r.Batches.ListByProduct(ctx, productID, true)
		if err != nil {
			return err
		}
		deductions, untracked := domaininv.Allocate(l.cfg.Consumption, batches, pinned, -delta, now)
		for _, d := range deductions {
			if err := r.Batches.Update(ctx, d.Batch); err != nil {
				return err
			}
			res.Deductions = append(res.Deductions, BatchDeduction{BatchID: d.Batch.ID, BatchNumber: d.Batch.BatchNumber, Quantity: d.Quantity})
		}
		res.Untracked = untracked
		if len(deductions) == 1 && res.Movement.BatchID == "" {
			res.Movement.BatchID = deductions[0].Batch.ID
		}
	case delta > 0 && pinned != nil && req.Type == entity.MovementReturn:
		pinned.Restock(delta, now)
		if err := r.Batches.Update(ctx, pinned); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) allowsNegative(t entity.MovementType) bool {
	switch l.cfg.NegativePolicy {
	case NegativeAllow:
		return true
	case NegativeAllowAdjustments:
		return t.ExemptFromStockCheck()
	}
	return false
}

// GetProduct devuelve el agregado actual.
func (l *Ledger) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	p, err := l.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// GetMovement devuelve un movimiento del ledger.
func (l *Ledger) GetMovement(ctx context.Context, id string) (*entity.StockMovement, error) {
	m, err := l.movements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

// History lista los movimientos de un producto en un rango de fechas (más recientes primero).
func (l *Ledger) History(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	if _, err := l.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return l.movements.ListByProduct(ctx, productID, from, to, limit, offset)
}

// AuditResult compara el agregado con la suma del ledger.
type AuditResult struct {
	ProductID     string
	StockQuantity int64
	LedgerSum     int64
	Consistent    bool
}

// Audit verifica stock_quantity == Σ movimientos.
func (l *Ledger) Audit(ctx context.Context, productID string) (*AuditResult, error) {
	p, err := l.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	sum, err := l.movements.SumByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	out := &AuditResult{ProductID: productID, StockQuantity: p.StockQuantity, LedgerSum: sum, Consistent: sum == p.StockQuantity}
	if !out.Consistent {
		l.log.Error().Str("product_id", productID).Int64("stock_quantity", p.StockQuantity).Int64("ledger_sum", sum).Msg("agregado inconsistente con el ledger")
	}
	return out, nil
}
