package http

import (
	"github.com/jhoicas/farmacia-stock/internal/application/counting"
	"github.com/jhoicas/farmacia-stock/internal/application/dto"
	"github.com/jhoicas/farmacia-stock/internal/application/inventory"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

func toMovementResponse(m *entity.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:             m.ID,
		ProductID:      m.ProductID,
		BatchID:        m.BatchID,
		Type:           string(m.Type),
		Quantity:       m.Quantity,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		UnitCost:       m.UnitCost,
		TotalCost:      m.TotalCost,
		Reason:         m.Reason,
		Notes:          m.Notes,
		ReferenceType:  m.ReferenceType,
		ReferenceID:    m.ReferenceID,
		MovementDate:   m.MovementDate,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      m.CreatedAt,
	}
}

func toMovementList(list []*entity.StockMovement) []dto.MovementResponse {
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMovementResponse(m))
	}
	return out
}

func toApplyResponse(res *inventory.ApplyResult) *dto.ApplyMovementResponse {
	if res == nil {
		return nil
	}
	out := &dto.ApplyMovementResponse{
		Untracked:  res.Untracked,
		SyncQueued: res.SyncQueued,
		Warnings:   res.Warnings,
	}
	if res.Movement != nil {
		m := toMovementResponse(res.Movement)
		out.Movement = &m
	}
	for _, d := range res.Deductions {
		out.Deductions = append(out.Deductions, dto.BatchDeductionDTO{BatchID: d.BatchID, BatchNumber: d.BatchNumber, Quantity: d.Quantity})
	}
	return out
}

func toBatchResponse(v inventory.BatchView) dto.BatchResponse {
	b := v.Batch
	return dto.BatchResponse{
		ID:              b.ID,
		ProductID:       b.ProductID,
		BatchNumber:     b.BatchNumber,
		LotNumber:       b.LotNumber,
		ExpiryDate:      b.ExpiryDate,
		Quantity:        b.Quantity,
		Supplier:        b.Supplier,
		CostPerUnit:     b.CostPerUnit,
		IsActive:        b.IsActive,
		DaysUntilExpiry: v.DaysUntilExpiry,
		ExpiryStatus:    string(v.Status),
	}
}

func toBatchList(list []inventory.BatchView) []dto.BatchResponse {
	out := make([]dto.BatchResponse, 0, len(list))
	for _, v := range list {
		out = append(out, toBatchResponse(v))
	}
	return out
}

func toItemResponse(it *entity.CountingItem) dto.CountingItemResponse {
	return dto.CountingItemResponse{
		ID:              it.ID,
		ProductID:       it.ProductID,
		Barcode:         it.Barcode,
		SKU:             it.SKU,
		ProductName:     it.ProductName,
		UnitMeasure:     it.UnitMeasure,
		SystemQuantity:  it.SystemQuantity,
		CountedQuantity: it.CountedQuantity,
		Difference:      it.Difference(),
		CostPrice:       it.CostPrice,
		ValueDifference: it.ValueDifference(),
		Status:          it.Status(),
		CountedAt:       it.CountedAt,
	}
}

func toSessionResponse(s *entity.CountingSession) dto.CountingSessionResponse {
	items := make([]dto.CountingItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, toItemResponse(it))
	}
	return dto.CountingSessionResponse{
		ID:          s.ID,
		WarehouseID: s.WarehouseID,
		Name:        s.Name,
		Status:      string(s.Status),
		CreatedBy:   s.CreatedBy,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		CompletedAt: s.CompletedAt,
		Version:     s.Version,
		Items:       items,
	}
}

func toSummaryResponse(sum entity.SessionSummary) dto.CountingSummaryResponse {
	return dto.CountingSummaryResponse{
		TotalItems:              sum.TotalItems,
		CountedItems:            sum.CountedItems,
		PendingItems:            sum.PendingItems,
		MatchedItems:            sum.MatchedItems,
		UnmatchedItems:          sum.UnmatchedItems,
		OverstockItems:          sum.OverstockItems,
		UnderstockItems:         sum.UnderstockItems,
		TotalQuantityDifference: sum.TotalQuantityDifference,
		TotalValueDifference:    sum.TotalValueDifference,
	}
}

func toCompleteResponse(res *counting.CompleteResult) dto.CompleteCountingResponse {
	return dto.CompleteCountingResponse{
		Session:     toSessionResponse(res.Session),
		Summary:     toSummaryResponse(res.Summary),
		Adjustments: toMovementList(res.Adjustments),
	}
}

func toSyncEventResponse(e *entity.SyncEvent) *dto.SyncEventResponse {
	if e == nil {
		return nil
	}
	return &dto.SyncEventResponse{
		ID:            e.ID,
		MovementID:    e.MovementID,
		ProductID:     e.ProductID,
		SKU:           e.SKU,
		Delta:         e.Delta,
		NewQuantity:   e.NewQuantity,
		Status:        e.Status,
		Attempts:      e.Attempts,
		LastError:     e.LastError,
		NextAttemptAt: e.NextAttemptAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
