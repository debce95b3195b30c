package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/domain/inventory"
)

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// lote que vence en expiryDays días e ingresó hace createdDaysAgo días.
func lote(id string, qty int64, expiryDays, createdDaysAgo int) *entity.StockBatch {
	return &entity.StockBatch{
		ID: id, BatchNumber: id, Quantity: qty, IsActive: qty > 0,
		ExpiryDate: base.AddDate(0, 0, expiryDays),
		CreatedAt:  base.AddDate(0, 0, -createdDaysAgo),
	}
}

func ids(list []*entity.StockBatch) []string {
	out := make([]string, 0, len(list))
	for _, b := range list {
		out = append(out, b.ID)
	}
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Políticas de consumo de lotes.
// ──────────────────────────────────────────────────────────────────────────────

func TestPolicies_Order(t *testing.T) {
	batches := []*entity.StockBatch{
		lote("viejo-tardio", 5, 300, 60),
		lote("nuevo-pronto", 5, 30, 1),
		lote("medio", 5, 120, 20),
		lote("agotado", 0, 10, 90),
	}

	assert.Equal(t, []string{"nuevo-pronto", "medio", "viejo-tardio"}, ids(inventory.FEFO{}.Order(batches)))
	assert.Equal(t, []string{"viejo-tardio", "medio", "nuevo-pronto"}, ids(inventory.FIFO{}.Order(batches)))
	// el slice original no se reordena
	assert.Equal(t, "viejo-tardio", batches[0].ID)
}

func TestFEFO_EmpatePorIngreso(t *testing.T) {
	batches := []*entity.StockBatch{lote("b", 1, 30, 1), lote("a", 1, 30, 5)}
	assert.Equal(t, []string{"a", "b"}, ids(inventory.FEFO{}.Order(batches)))
}

func TestParsePolicy(t *testing.T) {
	p, err := inventory.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, inventory.PolicyFEFO, p.Name())
	p, err = inventory.ParsePolicy("fifo")
	require.NoError(t, err)
	assert.Equal(t, inventory.PolicyFIFO, p.Name())
	_, err = inventory.ParsePolicy("lifo")
	assert.Error(t, err)
}

func TestAllocate(t *testing.T) {
	t.Run("cruza lotes en orden FEFO", func(t *testing.T) {
		early, late := lote("early", 4, 10, 1), lote("late", 10, 200, 30)
		deductions, rest := inventory.Allocate(inventory.FEFO{}, []*entity.StockBatch{late, early}, nil, 6, base)
		require.Len(t, deductions, 2)
		assert.Equal(t, "early", deductions[0].Batch.ID)
		assert.Equal(t, int64(4), deductions[0].Quantity)
		assert.Equal(t, int64(2), deductions[1].Quantity)
		assert.Zero(t, rest)
		assert.False(t, early.IsActive)
		assert.Equal(t, int64(8), late.Quantity)
	})

	t.Run("lote fijado primero", func(t *testing.T) {
		early, late := lote("early", 4, 10, 1), lote("late", 10, 200, 30)
		deductions, rest := inventory.Allocate(inventory.FEFO{}, []*entity.StockBatch{early, late}, late, 12, base)
		require.Len(t, deductions, 2)
		assert.Equal(t, "late", deductions[0].Batch.ID)
		assert.Equal(t, int64(10), deductions[0].Quantity)
		assert.Equal(t, "early", deductions[1].Batch.ID)
		assert.Equal(t, int64(2), deductions[1].Quantity)
		assert.Zero(t, rest)
	})

	t.Run("remanente sin lote", func(t *testing.T) {
		only := lote("only", 3, 10, 1)
		deductions, rest := inventory.Allocate(inventory.FIFO{}, []*entity.StockBatch{only}, nil, 5, base)
		require.Len(t, deductions, 1)
		assert.Equal(t, int64(2), rest)
	})

	t.Run("sin lotes", func(t *testing.T) {
		deductions, rest := inventory.Allocate(inventory.FEFO{}, nil, nil, 5, base)
		assert.Empty(t, deductions)
		assert.Equal(t, int64(5), rest)
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Costo promedio ponderado.
// ──────────────────────────────────────────────────────────────────────────────

func TestCostCalculator(t *testing.T) {
	d := decimal.NewFromInt
	cases := []struct {
		name   string
		stock  int64
		cost   decimal.Decimal
		qty    int64
		inCost decimal.Decimal
		want   decimal.Decimal
	}{
		{"promedio", 10, d(100), 10, d(200), d(150)},
		{"stock cero toma la entrada", 0, d(100), 5, d(80), d(80)},
		{"stock negativo toma la entrada", -3, d(100), 5, d(80), d(80)},
		{"sin entrada no cambia", 10, d(100), 0, d(999), d(100)},
		{"promedio fraccionario", 3, d(10), 3, d(11), decimal.RequireFromString("10.5")},
		{"redondeo a 4 decimales", 2, d(1), 1, d(2), decimal.RequireFromString("1.3333")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := inventory.CostCalculator(tc.stock, tc.cost, tc.qty, tc.inCost)
			assert.True(t, tc.want.Equal(got), "esperado %s, obtenido %s", tc.want, got)
		})
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Acetaminofén 500MG":    "acetaminofen 500mg",
		"  IBUPROFENO   400 mg": "ibuprofeno 400 mg",
		"Ñame Pasta":            "name pasta",
		"":                      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, inventory.NormalizeName(in), in)
	}
}
