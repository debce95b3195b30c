package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-stock/internal/domain"
)

// SessionStatus estados de una sesión de conteo físico.
//
//	in_progress -> paused -> in_progress -> completed
//	in_progress | paused -> discarded
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionPaused     SessionStatus = "paused"
	SessionCompleted  SessionStatus = "completed"
	SessionDiscarded  SessionStatus = "discarded"
)

// IsTerminal indica si la sesión ya no admite cambios.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionDiscarded
}

// ParseSessionStatus valida un filtro de estado.
func ParseSessionStatus(s string) (SessionStatus, bool) {
	switch st := SessionStatus(s); st {
	case SessionInProgress, SessionPaused, SessionCompleted, SessionDiscarded:
		return st, true
	}
	return "", false
}

// Estado de una línea de conteo.
const (
	ItemPending    = "pending"
	ItemMatched    = "matched"
	ItemOverstock  = "overstock"
	ItemUnderstock = "understock"
)

// CountingItem línea de conteo. SystemQuantity y CostPrice son fotos tomadas al agregar el producto.
type CountingItem struct {
	ID              string
	SessionID       string
	ProductID       string
	Barcode         string
	SKU             string
	ProductName     string
	UnitMeasure     string
	SystemQuantity  int64
	CountedQuantity *int64 // nil hasta que se registra el conteo
	CostPrice       decimal.Decimal
	Position        int
	CountedAt       *time.Time
	CreatedAt       time.Time
}

// IsCounted indica si ya se registró una cantidad contada.
func (i *CountingItem) IsCounted() bool { return i.CountedQuantity != nil }

// Difference counted - system; cero mientras no se haya contado.
func (i *CountingItem) Difference() int64 {
	if i.CountedQuantity == nil {
		return 0
	}
	return *i.CountedQuantity - i.SystemQuantity
}

// ValueDifference difference * cost_price (foto).
func (i *CountingItem) ValueDifference() decimal.Decimal {
	return i.CostPrice.Mul(decimal.NewFromInt(i.Difference()))
}

// Status pending, matched, overstock o understock.
func (i *CountingItem) Status() string {
	if !i.IsCounted() {
		return ItemPending
	}
	switch d := i.Difference(); {
	case d > 0:
		return ItemOverstock
	case d < 0:
		return ItemUnderstock
	default:
		return ItemMatched
	}
}

// CountingSession sesión de conciliación persistida en el servidor (reanudable desde otro cliente).
type CountingSession struct {
	ID          string
	WarehouseID string
	Name        string
	Status      SessionStatus
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	Version     int64
	Items       []*CountingItem
}

// NewCountingSession crea una sesión en curso sin líneas.
func NewCountingSession(id, warehouseID, name, createdBy string, now time.Time) *CountingSession {
	return &CountingSession{
		ID:          id,
		WarehouseID: warehouseID,
		Name:        name,
		Status:      SessionInProgress,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
		Items:       []*CountingItem{},
	}
}

func (s *CountingSession) stateError(action string) error {
	return &domain.SessionStateError{SessionID: s.ID, Status: string(s.Status), Action: action}
}

// FindItem busca una línea por ID.
func (s *CountingSession) FindItem(itemID string) *CountingItem {
	for _, it := range s.Items {
		if it.ID == itemID {
			return it
		}
	}
	return nil
}

// FindItemByProduct busca la línea de un producto (hay a lo sumo una por sesión).
func (s *CountingSession) FindItemByProduct(productID string) *CountingItem {
	for _, it := range s.Items {
		if it.ProductID == productID {
			return it
		}
	}
	return nil
}

// AddItem agrega el producto tomando la foto del stock actual. Si ya existe una línea para
// el producto, la devuelve con existing=true para que se recuente en lugar de duplicarla.
func (s *CountingSession) AddItem(itemID string, p *Product, now time.Time) (item *CountingItem, existing bool, err error) {
	if s.Status != SessionInProgress {
		return nil, false, s.stateError("add_item")
	}
	if it := s.FindItemByProduct(p.ID); it != nil {
		return it, true, nil
	}
	item = &CountingItem{
		ID:             itemID,
		SessionID:      s.ID,
		ProductID:      p.ID,
		Barcode:        p.Barcode,
		SKU:            p.SKU,
		ProductName:    p.Name,
		UnitMeasure:    p.UnitMeasure,
		SystemQuantity: p.StockQuantity,
		CostPrice:      p.CostPrice,
		Position:       len(s.Items) + 1,
		CreatedAt:      now,
	}
	s.Items = append(s.Items, item)
	s.UpdatedAt = now
	return item, false, nil
}

// RecordCount registra la cantidad contada; no toca el ledger.
func (s *CountingSession) RecordCount(itemID string, counted int64, now time.Time) (*CountingItem, error) {
	if s.Status != SessionInProgress {
		return nil, s.stateError("record_count")
	}
	if counted < 0 {
		return nil, domain.ErrInvalidInput
	}
	it := s.FindItem(itemID)
	if it == nil {
		return nil, domain.ErrNotFound
	}
	q := counted
	ts := now
	it.CountedQuantity = &q
	it.CountedAt = &ts
	s.UpdatedAt = now
	return it, nil
}

// Pause pone la sesión en espera.
func (s *CountingSession) Pause(now time.Time) error {
	if s.Status != SessionInProgress {
		return s.stateError("pause")
	}
	s.Status = SessionPaused
	s.UpdatedAt = now
	return nil
}

// Resume retoma una sesión pausada.
func (s *CountingSession) Resume(now time.Time) error {
	if s.Status != SessionPaused {
		return s.stateError("resume")
	}
	s.Status = SessionInProgress
	s.UpdatedAt = now
	return nil
}

// CanComplete sólo desde in_progress o paused.
func (s *CountingSession) CanComplete() error {
	if s.Status != SessionInProgress && s.Status != SessionPaused {
		return s.stateError("complete")
	}
	return nil
}

// MarkCompleted transición terminal; los ajustes al ledger los emite la capa de aplicación.
func (s *CountingSession) MarkCompleted(now time.Time) error {
	if err := s.CanComplete(); err != nil {
		return err
	}
	s.Status = SessionCompleted
	s.UpdatedAt = now
	ts := now
	s.CompletedAt = &ts
	return nil
}

// Discard abandona la sesión sin afectar el stock.
func (s *CountingSession) Discard(now time.Time) error {
	if s.Status != SessionInProgress && s.Status != SessionPaused {
		return s.stateError("discard")
	}
	s.Status = SessionDiscarded
	s.UpdatedAt = now
	return nil
}

// SessionSummary agregación pura sobre las líneas; se calcula bajo demanda.
type SessionSummary struct {
	TotalItems              int
	CountedItems            int
	PendingItems            int
	MatchedItems            int
	UnmatchedItems          int
	OverstockItems          int
	UnderstockItems         int
	TotalQuantityDifference int64
	TotalValueDifference    decimal.Decimal
}

// Summarize recorre las líneas actuales.
func (s *CountingSession) Summarize() SessionSummary {
	sum := SessionSummary{TotalItems: len(s.Items), TotalValueDifference: decimal.Zero}
	for _, it := range s.Items {
		switch it.Status() {
		case ItemPending:
			sum.PendingItems++
			continue
		case ItemMatched:
			sum.MatchedItems++
		case ItemOverstock:
			sum.UnmatchedItems++
			sum.OverstockItems++
		case ItemUnderstock:
			sum.UnmatchedItems++
			sum.UnderstockItems++
		}
		sum.CountedItems++
		sum.TotalQuantityDifference += it.Difference()
		sum.TotalValueDifference = sum.TotalValueDifference.Add(it.ValueDifference())
	}
	return sum
}
