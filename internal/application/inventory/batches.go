package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-stock/internal/application/ports"
	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// BatchService lotes y vencimientos. Cada lote nace junto con su movimiento purchase.
type BatchService struct {
	ledger     *Ledger
	batches    repository.StockBatchRepository
	thresholds entity.ExpiryThresholds
	now        func() time.Time
}

// NewBatchService construye el caso de uso de lotes.
func NewBatchService(ledger *Ledger, batches repository.StockBatchRepository, thresholds entity.ExpiryThresholds) *BatchService {
	if thresholds.CriticalDays <= 0 || thresholds.WarningDays < thresholds.CriticalDays {
		thresholds = entity.DefaultExpiryThresholds()
	}
	return &BatchService{ledger: ledger, batches: batches, thresholds: thresholds, now: time.Now}
}

// AddBatchRequest recepción de un lote.
type AddBatchRequest struct {
	ProductID   string
	BatchNumber string
	LotNumber   string
	ExpiryDate  time.Time
	Quantity    int64
	Supplier    string
	CostPerUnit decimal.Decimal
	Actor       string
}

// AddBatchResult lote creado y su movimiento de entrada.
type AddBatchResult struct {
	Batch  *entity.StockBatch
	Result *ApplyResult
}

// AddBatch crea el lote y su movimiento purchase en la misma transacción: ambos o ninguno.
func (s *BatchService) AddBatch(ctx context.Context, in AddBatchRequest) (*AddBatchResult, error) {
	in.BatchNumber = strings.TrimSpace(in.BatchNumber)
	if in.ProductID == "" || in.BatchNumber == "" || in.ExpiryDate.IsZero() {
		return nil, domain.ErrInvalidInput
	}
	if err := entity.MovementPurchase.ValidateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if in.CostPerUnit.IsNegative() {
		return nil, domain.ErrInvalidInput
	}

	var out *AddBatchResult
	err := s.ledger.RunInTx(ctx, func(r ports.Repos) error {
		now := s.now()
		batch := &entity.StockBatch{
			ID:          uuid.New().String(),
			ProductID:   in.ProductID,
			BatchNumber: in.BatchNumber,
			LotNumber:   in.LotNumber,
			ExpiryDate:  in.ExpiryDate,
			Quantity:    in.Quantity,
			Supplier:    in.Supplier,
			CostPerUnit: in.CostPerUnit,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		product, err := r.Products.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		if err := r.Batches.Create(ctx, batch); err != nil {
			return err
		}
		cost := in.CostPerUnit
		res, err := s.ledger.ApplyInTx(ctx, r, MovementRequest{
			ProductID:     in.ProductID,
			Type:          entity.MovementPurchase,
			Quantity:      in.Quantity,
			UnitCost:      &cost,
			Reason:        fmt.Sprintf("Batch receipt: %s", in.BatchNumber),
			BatchID:       batch.ID,
			ReferenceType: entity.ReferenceBatch,
			ReferenceID:   batch.ID,
			Actor:         in.Actor,
		})
		if err != nil {
			return err
		}
		out = &AddBatchResult{Batch: batch, Result: res}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.ledger.AfterCommit(out.Result)
	return out, nil
}

// BatchView lote con su estado de vencimiento calculado.
type BatchView struct {
	Batch           *entity.StockBatch
	DaysUntilExpiry int
	Status          entity.ExpiryStatus
}

// ExpiryStatus clasificación de sólo lectura a la fecha asOf.
func (s *BatchService) ExpiryStatus(b *entity.StockBatch, asOf time.Time) entity.ExpiryStatus {
	return entity.ExpiryStatusOf(b, asOf, s.thresholds)
}

// ListBatches lotes de un producto ordenados por vencimiento.
func (s *BatchService) ListBatches(ctx context.Context, productID string, activeOnly bool) ([]BatchView, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := s.batches.ListByProduct(ctx, productID, activeOnly)
	if err != nil {
		return nil, err
	}
	return s.views(list), nil
}

// ExpiringBatches lotes activos que vencen dentro de withinDays días (incluye los vencidos).
func (s *BatchService) ExpiringBatches(ctx context.Context, withinDays int) ([]BatchView, error) {
	if withinDays <= 0 {
		withinDays = s.thresholds.WarningDays
	}
	limit := s.now().AddDate(0, 0, withinDays)
	list, err := s.batches.ListExpiringBefore(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.views(list), nil
}

// View calcula el estado de vencimiento de un lote a la fecha actual.
func (s *BatchService) View(b *entity.StockBatch) BatchView {
	return s.viewAt(b, s.now())
}

func (s *BatchService) viewAt(b *entity.StockBatch, asOf time.Time) BatchView {
	return BatchView{Batch: b, DaysUntilExpiry: b.DaysUntilExpiry(asOf), Status: s.ExpiryStatus(b, asOf)}
}

func (s *BatchService) views(list []*entity.StockBatch) []BatchView {
	asOf := s.now()
	out := make([]BatchView, 0, len(list))
	for _, b := range list {
		out = append(out, s.viewAt(b, asOf))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Batch.ExpiryDate.Before(out[j].Batch.ExpiryDate) })
	return out
}

// DiscardBatchRequest baja de un lote (vencido o dañado).
type DiscardBatchRequest struct {
	BatchID string
	Type    entity.MovementType // expired (por defecto) o damaged
	Reason  string
	Actor   string
}

// DiscardBatch emite la salida por el remanente del lote y lo desactiva.
func (s *BatchService) DiscardBatch(ctx context.Context, in DiscardBatchRequest) (*AddBatchResult, error) {
	if in.Type == "" {
		in.Type = entity.MovementExpired
	}
	if in.Type != entity.MovementExpired && in.Type != entity.MovementDamaged {
		return nil, &domain.InvalidMovementError{Type: string(in.Type), Reason: "un lote sólo se descarta como expired o damaged"}
	}
	var out *AddBatchResult
	err := s.ledger.RunInTx(ctx, func(r ports.Repos) error {
		batch, err := r.Batches.GetByID(ctx, in.BatchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return domain.ErrNotFound
		}
		if !batch.IsActive {
			return fmt.Errorf("%w: el lote ya está inactivo", domain.ErrConflict)
		}
		out = &AddBatchResult{Batch: batch}
		if batch.Quantity == 0 {
			batch.IsActive = false
			batch.UpdatedAt = s.now()
			return r.Batches.Update(ctx, batch)
		}
		reason := in.Reason
		if reason == "" {
			reason = fmt.Sprintf("Batch discard: %s", batch.BatchNumber)
		}
		res, err := s.ledger.ApplyInTx(ctx, r, MovementRequest{
			ProductID:     batch.ProductID,
			Type:          in.Type,
			Quantity:      -batch.Quantity,
			UnitCost:      &batch.CostPerUnit,
			Reason:        reason,
			BatchID:       batch.ID,
			ReferenceType: entity.ReferenceBatch,
			ReferenceID:   batch.ID,
			Actor:         in.Actor,
		})
		if err != nil {
			return err
		}
		out.Result = res
		// el ledger consumió el lote fijado; se relee para devolver el estado final
		updated, err := r.Batches.GetByID(ctx, batch.ID)
		if err != nil {
			return err
		}
		if updated != nil {
			out.Batch = updated
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
