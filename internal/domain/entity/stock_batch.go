package entity

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ExpiryStatus clasificación de un lote según los días que faltan para su vencimiento.
type ExpiryStatus string

const (
	ExpiryCritical ExpiryStatus = "critical"
	ExpiryWarning  ExpiryStatus = "warning"
	ExpiryNormal   ExpiryStatus = "normal"
)

// Umbrales por defecto (días).
const (
	DefaultCriticalDays = 30
	DefaultWarningDays  = 90
)

// StockBatch lote físico de un producto con su vencimiento y cantidad remanente.
// Se crea sólo con un movimiento de entrada y se desactiva (no se elimina) al agotarse o descartarse.
type StockBatch struct {
	ID          string
	ProductID   string
	BatchNumber string
	LotNumber   string
	ExpiryDate  time.Time
	Quantity    int64
	Supplier    string
	CostPerUnit decimal.Decimal
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DaysUntilExpiry días calendario entre asOf y la fecha de vencimiento (negativo si ya venció).
func (b *StockBatch) DaysUntilExpiry(asOf time.Time) int {
	exp := truncateDay(b.ExpiryDate)
	now := truncateDay(asOf.In(b.ExpiryDate.Location()))
	return int(math.Round(exp.Sub(now).Hours() / 24))
}

// IsExpired indica si el lote venció a la fecha asOf.
func (b *StockBatch) IsExpired(asOf time.Time) bool {
	return b.DaysUntilExpiry(asOf) < 0
}

// Consume descuenta hasta qty unidades y devuelve lo efectivamente descontado.
// El lote queda inactivo cuando llega a cero.
func (b *StockBatch) Consume(qty int64, now time.Time) int64 {
	if qty <= 0 || b.Quantity <= 0 {
		return 0
	}
	taken := qty
	if taken > b.Quantity {
		taken = b.Quantity
	}
	b.Quantity -= taken
	if b.Quantity == 0 {
		b.IsActive = false
	}
	b.UpdatedAt = now
	return taken
}

// Restock devuelve unidades al lote (devoluciones) y lo reactiva.
func (b *StockBatch) Restock(qty int64, now time.Time) {
	if qty <= 0 {
		return
	}
	b.Quantity += qty
	b.IsActive = true
	b.UpdatedAt = now
}

// ExpiryThresholds umbrales configurables para ExpiryStatusOf.
type ExpiryThresholds struct {
	CriticalDays int
	WarningDays  int
}

// DefaultExpiryThresholds 30 / 90 días.
func DefaultExpiryThresholds() ExpiryThresholds {
	return ExpiryThresholds{CriticalDays: DefaultCriticalDays, WarningDays: DefaultWarningDays}
}

// ExpiryStatusOf cálculo de sólo lectura; no hay estado almacenado.
func ExpiryStatusOf(b *StockBatch, asOf time.Time, th ExpiryThresholds) ExpiryStatus {
	days := b.DaysUntilExpiry(asOf)
	switch {
	case days <= th.CriticalDays:
		return ExpiryCritical
	case days <= th.WarningDays:
		return ExpiryWarning
	default:
		return ExpiryNormal
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
