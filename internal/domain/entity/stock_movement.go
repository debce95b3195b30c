package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-stock/internal/domain"
)

// MovementType tipo cerrado de movimiento del ledger. Cada variante declara el signo permitido.
type MovementType string

const (
	MovementPurchase       MovementType = "purchase"
	MovementSale           MovementType = "sale"
	MovementAdjustment     MovementType = "adjustment"
	MovementReturn         MovementType = "return"
	MovementSupplierReturn MovementType = "supplier_return"
	MovementExpired        MovementType = "expired"
	MovementDamaged        MovementType = "damaged"
	MovementTransfer       MovementType = "transfer"
	MovementOpeningBalance MovementType = "opening_balance"
)

// Direction signo permitido para la cantidad de un movimiento.
type Direction int

const (
	DirectionInbound  Direction = iota + 1 // cantidad > 0
	DirectionOutbound                      // cantidad < 0
	DirectionEither                        // cualquier signo, explícito y distinto de cero
)

// Tipos de referencia hacia el origen del movimiento.
const (
	ReferenceCountingSession = "counting_session"
	ReferenceBatch           = "stock_batch"
	ReferenceOrder           = "order"
)

var movementDirections = map[MovementType]Direction{
	MovementPurchase:       DirectionInbound,
	MovementReturn:         DirectionInbound,
	MovementSale:           DirectionOutbound,
	MovementSupplierReturn: DirectionOutbound,
	MovementExpired:        DirectionOutbound,
	MovementDamaged:        DirectionOutbound,
	MovementAdjustment:     DirectionEither,
	MovementTransfer:       DirectionEither,
	MovementOpeningBalance: DirectionEither,
}

// AllMovementTypes devuelve los tipos en orden estable.
func AllMovementTypes() []MovementType {
	return []MovementType{
		MovementPurchase, MovementSale, MovementAdjustment, MovementReturn, MovementSupplierReturn,
		MovementExpired, MovementDamaged, MovementTransfer, MovementOpeningBalance,
	}
}

// ParseMovementType valida el string recibido del cliente.
func ParseMovementType(s string) (MovementType, error) {
	t := MovementType(s)
	if _, ok := movementDirections[t]; !ok {
		return "", &domain.InvalidMovementError{Type: s, Reason: "tipo desconocido"}
	}
	return t, nil
}

func (t MovementType) String() string { return string(t) }

// Direction devuelve el signo permitido; cero si el tipo no existe.
func (t MovementType) Direction() Direction { return movementDirections[t] }

// IsReceiving indica si el movimiento es una entrada que debe notificarse al marketplace.
func (t MovementType) IsReceiving(quantity int64) bool {
	switch t {
	case MovementPurchase, MovementReturn:
		return true
	case MovementOpeningBalance:
		return quantity > 0
	}
	return false
}

// IsConsuming indica si el movimiento descuenta unidades (y por tanto lotes).
func (t MovementType) IsConsuming(quantity int64) bool {
	return quantity < 0
}

// ExemptFromStockCheck indica los tipos que representan verdad física y pueden
// optar por no validar stock negativo según la política del despliegue.
func (t MovementType) ExemptFromStockCheck() bool {
	return t == MovementAdjustment || t == MovementOpeningBalance
}

// ValidateQuantity aplica la disciplina de signo del tipo.
func (t MovementType) ValidateQuantity(quantity int64) error {
	dir := t.Direction()
	if dir == 0 {
		return &domain.InvalidMovementError{Type: string(t), Quantity: quantity, Reason: "tipo desconocido"}
	}
	if quantity == 0 {
		return &domain.InvalidMovementError{Type: string(t), Quantity: quantity, Reason: "la cantidad no puede ser cero"}
	}
	if dir == DirectionInbound && quantity < 0 {
		return &domain.InvalidMovementError{Type: string(t), Quantity: quantity, Reason: "el tipo sólo admite cantidades positivas"}
	}
	if dir == DirectionOutbound && quantity > 0 {
		return &domain.InvalidMovementError{Type: string(t), Quantity: quantity, Reason: "el tipo sólo admite cantidades negativas"}
	}
	return nil
}

// StockMovement entrada inmutable del ledger. Las correcciones se hacen con movimientos compensatorios.
type StockMovement struct {
	ID             string
	ProductID      string
	BatchID        string // opcional
	Type           MovementType
	Quantity       int64 // delta con signo
	QuantityBefore int64
	QuantityAfter  int64
	UnitCost       decimal.Decimal
	TotalCost      decimal.Decimal
	Reason         string
	Notes          string
	ReferenceType  string
	ReferenceID    string
	MovementDate   time.Time
	CreatedAt      time.Time
	CreatedBy      string
}

// MovementParams datos para construir un movimiento.
type MovementParams struct {
	ID             string
	ProductID      string
	BatchID        string
	Type           MovementType
	Quantity       int64
	QuantityBefore int64
	UnitCost       decimal.Decimal
	Reason         string
	Notes          string
	ReferenceType  string
	ReferenceID    string
	MovementDate   time.Time
	CreatedAt      time.Time
	CreatedBy      string
}

// NewStockMovement es el único constructor: valida el signo por tipo y calcula quantity_after y total_cost.
func NewStockMovement(p MovementParams) (*StockMovement, error) {
	if p.ProductID == "" {
		return nil, &domain.InvalidMovementError{Type: string(p.Type), Quantity: p.Quantity, Reason: "product_id requerido"}
	}
	if err := p.Type.ValidateQuantity(p.Quantity); err != nil {
		return nil, err
	}
	if p.UnitCost.IsNegative() {
		return nil, &domain.InvalidMovementError{Type: string(p.Type), Quantity: p.Quantity, Reason: "costo unitario negativo"}
	}
	return &StockMovement{
		ID:             p.ID,
		ProductID:      p.ProductID,
		BatchID:        p.BatchID,
		Type:           p.Type,
		Quantity:       p.Quantity,
		QuantityBefore: p.QuantityBefore,
		QuantityAfter:  p.QuantityBefore + p.Quantity,
		UnitCost:       p.UnitCost,
		TotalCost:      p.UnitCost.Mul(decimal.NewFromInt(p.Quantity)),
		Reason:         p.Reason,
		Notes:          p.Notes,
		ReferenceType:  p.ReferenceType,
		ReferenceID:    p.ReferenceID,
		MovementDate:   p.MovementDate,
		CreatedAt:      p.CreatedAt,
		CreatedBy:      p.CreatedBy,
	}, nil
}
