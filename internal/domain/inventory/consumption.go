package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

// ConsumptionPolicy decide el orden en que se descuentan los lotes de un producto.
type ConsumptionPolicy interface {
	Name() string
	// Order devuelve los lotes consumibles en orden de descuento (no modifica el slice recibido).
	Order(batches []*entity.StockBatch) []*entity.StockBatch
}

// Nombres de políticas soportadas.
const (
	PolicyFEFO = "fefo"
	PolicyFIFO = "fifo"
)

// FEFO primero el que vence primero; empates por fecha de ingreso.
type FEFO struct{}

func (FEFO) Name() string { return PolicyFEFO }

func (FEFO) Order(batches []*entity.StockBatch) []*entity.StockBatch {
	out := consumable(batches)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// FIFO primero el lote que ingresó primero.
type FIFO struct{}

func (FIFO) Name() string { return PolicyFIFO }

func (FIFO) Order(batches []*entity.StockBatch) []*entity.StockBatch {
	out := consumable(batches)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ParsePolicy construye la política configurada; vacío equivale a FEFO.
func ParsePolicy(name string) (ConsumptionPolicy, error) {
	switch name {
	case "", PolicyFEFO:
		return FEFO{}, nil
	case PolicyFIFO:
		return FIFO{}, nil
	}
	return nil, fmt.Errorf("política de consumo desconocida: %q", name)
}

// Deduction unidades descontadas de un lote.
type Deduction struct {
	Batch    *entity.StockBatch
	Quantity int64
}

// Allocate descuenta qty unidades de los lotes según la política. Si pinned no es nil se
// descuenta primero de ese lote. Devuelve las deducciones aplicadas y el remanente que no
// estaba cubierto por lotes (stock sin trazabilidad de lote).
func Allocate(policy ConsumptionPolicy, batches []*entity.StockBatch, pinned *entity.StockBatch, qty int64, now time.Time) ([]Deduction, int64) {
	var out []Deduction
	remaining := qty
	if pinned != nil && remaining > 0 {
		if taken := pinned.Consume(remaining, now); taken > 0 {
			out = append(out, Deduction{Batch: pinned, Quantity: taken})
			remaining -= taken
		}
	}
	for _, b := range policy.Order(batches) {
		if remaining <= 0 {
			break
		}
		if pinned != nil && b.ID == pinned.ID {
			continue
		}
		if taken := b.Consume(remaining, now); taken > 0 {
			out = append(out, Deduction{Batch: b, Quantity: taken})
			remaining -= taken
		}
	}
	return out, remaining
}

func consumable(batches []*entity.StockBatch) []*entity.StockBatch {
	out := make([]*entity.StockBatch, 0, len(batches))
	for _, b := range batches {
		if b.IsActive && b.Quantity > 0 {
			out = append(out, b)
		}
	}
	return out
}
