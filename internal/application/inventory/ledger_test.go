package inventory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-stock/internal/application/inventory"
	"github.com/jhoicas/farmacia-stock/internal/application/ports"
	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/infrastructure/memory"
)

type countingNotifier struct{ n atomic.Int32 }

func (c *countingNotifier) Notify() { c.n.Add(1) }

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	repos    ports.Repos
	ledger   *inventory.Ledger
	notifier *countingNotifier
}

func newFixture(t *testing.T, cfg inventory.LedgerConfig) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{ctx: context.Background(), store: store, repos: store.Repos(), notifier: &countingNotifier{}}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	f.ledger = inventory.NewLedger(memory.NewTxRunner(store), f.repos.Products, f.repos.Movements, f.notifier, cfg, zerolog.Nop())
	return f
}

// product crea un producto con stock 0 y, si stock != 0, le carga un saldo inicial.
func (f *fixture) product(t *testing.T, sku string, stock int64, cost int64) *entity.Product {
	t.Helper()
	now := time.Now()
	p := &entity.Product{
		ID: uuid.New().String(), SKU: sku, Name: "Producto " + sku, UnitMeasure: "caja",
		CostPrice: decimal.NewFromInt(cost), ReorderPoint: 5, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, f.repos.Products.Create(f.ctx, p))
	if stock != 0 {
		c := decimal.NewFromInt(cost)
		_, err := f.ledger.OpeningBalance(f.ctx, inventory.OpeningBalanceRequest{ProductID: p.ID, Quantity: stock, UnitCost: &c})
		require.NoError(t, err)
	}
	return p
}

func (f *fixture) stock(t *testing.T, productID string) int64 {
	t.Helper()
	p, err := f.ledger.GetProduct(f.ctx, productID)
	require.NoError(t, err)
	return p.StockQuantity
}

func (f *fixture) apply(t *testing.T, productID string, mt entity.MovementType, qty int64) *inventory.ApplyResult {
	t.Helper()
	res, err := f.ledger.Apply(f.ctx, inventory.MovementRequest{ProductID: productID, Type: mt, Quantity: qty})
	require.NoError(t, err)
	return res
}

func (f *fixture) assertConsistent(t *testing.T, productID string) {
	t.Helper()
	audit, err := f.ledger.Audit(f.ctx, productID)
	require.NoError(t, err)
	assert.True(t, audit.Consistent, "stock %d vs ledger %d", audit.StockQuantity, audit.LedgerSum)
}

func TestLedger_VentaCompraYConteo(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})
	p := f.product(t, "AMOX-500", 50, 1000)

	sale := f.apply(t, p.ID, entity.MovementSale, -3)
	assert.Equal(t, int64(50), sale.Movement.QuantityBefore)
	assert.Equal(t, int64(47), sale.Movement.QuantityAfter)

	purchase := f.apply(t, p.ID, entity.MovementPurchase, 20)
	assert.Equal(t, int64(67), purchase.Movement.QuantityAfter)

	adj, err := f.ledger.AdjustTo(f.ctx, inventory.AdjustToRequest{ProductID: p.ID, CountedQuantity: 60, Reason: "Stock count reconciliation"})
	require.NoError(t, err)
	require.NotNil(t, adj.Movement)
	assert.Equal(t, entity.MovementAdjustment, adj.Movement.Type)
	assert.Equal(t, int64(-7), adj.Movement.Quantity)
	assert.Equal(t, int64(60), adj.Movement.QuantityAfter)

	assert.Equal(t, int64(60), f.stock(t, p.ID))
	f.assertConsistent(t, p.ID)

	history, err := f.ledger.History(f.ctx, p.ID, nil, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 4)
	for _, m := range history {
		assert.Equal(t, m.QuantityBefore+m.Quantity, m.QuantityAfter)
	}
}

func TestLedger_SaldoInicialSumaAlStock(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})
	p := f.product(t, "ACET-1", 10, 300)

	res, err := f.ledger.OpeningBalance(f.ctx, inventory.OpeningBalanceRequest{ProductID: p.ID, Quantity: 100})
	require.NoError(t, err)

	assert.Equal(t, entity.MovementOpeningBalance, res.Movement.Type)
	assert.Equal(t, int64(10), res.Movement.QuantityBefore)
	assert.Equal(t, int64(110), res.Movement.QuantityAfter)
	assert.Equal(t, "Saldo inicial", res.Movement.Reason)
	f.assertConsistent(t, p.ID)
}

func TestLedger_DisciplinaDeSigno(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})
	p := f.product(t, "IBU-4", 20, 100)

	cases := []struct {
		name string
		typ  entity.MovementType
		qty  int64
		ok   bool
	}{
		{"compra positiva", entity.MovementPurchase, 5, true},
		{"compra negativa", entity.MovementPurchase, -5, false},
		{"venta negativa", entity.MovementSale, -1, true},
		{"venta positiva", entity.MovementSale, 1, false},
		{"devolución negativa", entity.MovementReturn, -1, false},
		{"vencido positivo", entity.MovementExpired, 1, false},
		{"ajuste negativo", entity.MovementAdjustment, -2, true},
		{"ajuste positivo", entity.MovementAdjustment, 2, true},
		{"traslado negativo", entity.MovementTransfer, -1, true},
		{"cantidad cero", entity.MovementAdjustment, 0, false},
		{"tipo desconocido", entity.MovementType("regalo"), 1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := f.stock(t, p.ID)
			_, err := f.ledger.Apply(f.ctx, inventory.MovementRequest{ProductID: p.ID, Type: tc.typ, Quantity: tc.qty})
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, before+tc.qty, f.stock(t, p.ID))
				return
			}
			var invalid *domain.InvalidMovementError
			require.ErrorAs(t, err, &invalid)
			assert.ErrorIs(t, err, domain.ErrInvalidMovement)
			assert.Equal(t, before, f.stock(t, p.ID), "un movimiento rechazado no cambia el stock")
		})
	}
	f.assertConsistent(t, p.ID)
}

func TestLedger_StockInsuficiente(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})
	p := f.product(t, "LORA-10", 4, 100)

	_, err := f.ledger.Apply(f.ctx, inventory.MovementRequest{ProductID: p.ID, Type: entity.MovementSale, Quantity: -5})

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(4), insufficient.Available)
	assert.Equal(t, int64(5), insufficient.Requested)
	assert.Equal(t, int64(4), f.stock(t, p.ID))

	history, err := f.ledger.History(f.ctx, p.ID, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1, "sólo el saldo inicial")
}

func TestLedger_PoliticaNegativa(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{NegativePolicy: inventory.NegativeAllowAdjustments})
	p := f.product(t, "OME-20", 2, 100)

	_, err := f.ledger.Apply(f.ctx, inventory.MovementRequest{ProductID: p.ID, Type: entity.MovementSale, Quantity: -3})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	res := f.apply(t, p.ID, entity.MovementAdjustment, -3)
	assert.Equal(t, int64(-1), res.Movement.QuantityAfter)
	f.assertConsistent(t, p.ID)
}

func TestParseNegativeStockPolicy(t *testing.T) {
	p, err := inventory.ParseNegativeStockPolicy("")
	require.NoError(t, err)
	assert.Equal(t, inventory.NegativeReject, p)

	p, err = inventory.ParseNegativeStockPolicy("allow")
	require.NoError(t, err)
	assert.Equal(t, inventory.NegativeAllow, p)

	_, err = inventory.ParseNegativeStockPolicy("a veces")
	assert.Error(t, err)
}

func TestLedger_AjusteSinDiferenciaNoEscribe(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})
	p := f.product(t, "DICLO-50", 12, 100)

	res, err := f.ledger.AdjustTo(f.ctx, inventory.AdjustToRequest{ProductID: p.ID, CountedQuantity: 12})
	require.NoError(t, err)
	assert.Nil(t, res.Movement)

	history, err := f.ledger.History(f.ctx, p.ID, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestLedger_VentasConcurrentes(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})
	p := f.product(t, "MET-850", 10, 100)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, qty := range []int64{-5, -3} {
		wg.Add(1)
		go func(q int64) {
			defer wg.Done()
			_, err := f.ledger.Apply(f.ctx, inventory.MovementRequest{ProductID: p.ID, Type: entity.MovementSale, Quantity: q})
			errs <- err
		}(qty)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int64(2), f.stock(t, p.ID))
	f.assertConsistent(t, p.ID)
}

// flakyRunner simula conflictos de versión en los primeros intentos.
type flakyRunner struct {
	inner    ports.TxRunner
	failures int
	calls    int
}

func (r *flakyRunner) Run(ctx context.Context, fn func(ports.Repos) error) error {
	r.calls++
	if r.calls <= r.failures {
		return domain.ErrConcurrentModification
	}
	return r.inner.Run(ctx, fn)
}

func TestLedger_ReintentaAnteModificacionConcurrente(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repos()
	ctx := context.Background()
	p := &entity.Product{ID: "p-1", SKU: "X", Name: "X", CostPrice: decimal.NewFromInt(1)}
	require.NoError(t, repos.Products.Create(ctx, p))

	t.Run("se recupera dentro del límite", func(t *testing.T) {
		runner := &flakyRunner{inner: memory.NewTxRunner(store), failures: 2}
		ledger := inventory.NewLedger(runner, repos.Products, repos.Movements, nil, inventory.LedgerConfig{MaxRetries: 3}, zerolog.Nop())

		_, err := ledger.Apply(ctx, inventory.MovementRequest{ProductID: p.ID, Type: entity.MovementPurchase, Quantity: 5})
		require.NoError(t, err)
		assert.Equal(t, 3, runner.calls)
	})

	t.Run("agota los reintentos", func(t *testing.T) {
		runner := &flakyRunner{inner: memory.NewTxRunner(store), failures: 10}
		ledger := inventory.NewLedger(runner, repos.Products, repos.Movements, nil, inventory.LedgerConfig{MaxRetries: 2}, zerolog.Nop())

		_, err := ledger.Apply(ctx, inventory.MovementRequest{ProductID: p.ID, Type: entity.MovementPurchase, Quantity: 5})
		assert.ErrorIs(t, err, domain.ErrConcurrentModification)
		assert.Equal(t, 3, runner.calls)
	})
}

func TestLedger_CostoPromedioPonderado(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})
	p := f.product(t, "CET-10", 10, 100)

	cost := decimal.NewFromInt(200)
	_, err := f.ledger.Apply(f.ctx, inventory.MovementRequest{ProductID: p.ID, Type: entity.MovementPurchase, Quantity: 10, UnitCost: &cost})
	require.NoError(t, err)

	got, err := f.ledger.GetProduct(f.ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150).Equal(got.CostPrice), "costo %s", got.CostPrice)

	sale := f.apply(t, p.ID, entity.MovementSale, -4)
	assert.True(t, decimal.NewFromInt(150).Equal(sale.Movement.UnitCost))
	assert.True(t, decimal.NewFromInt(-600).Equal(sale.Movement.TotalCost))
}

func TestLedger_EncolaSincronizacionDeEntradas(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{SyncEnabled: true})
	p := f.product(t, "SAL-100", 0, 100)

	purchase := f.apply(t, p.ID, entity.MovementPurchase, 12)
	assert.True(t, purchase.SyncQueued)
	assert.Equal(t, int32(1), f.notifier.n.Load())

	ev, err := f.repos.SyncEvents.GetByMovementID(f.ctx, purchase.Movement.ID)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "SAL-100", ev.SKU)
	assert.Equal(t, int64(12), ev.Delta)
	assert.Equal(t, int64(12), ev.NewQuantity)
	assert.Equal(t, entity.SyncStatusPending, ev.Status)

	sale := f.apply(t, p.ID, entity.MovementSale, -2)
	assert.False(t, sale.SyncQueued)
	ev, err = f.repos.SyncEvents.GetByMovementID(f.ctx, sale.Movement.ID)
	require.NoError(t, err)
	assert.Nil(t, ev)

	ret := f.apply(t, p.ID, entity.MovementReturn, 1)
	assert.True(t, ret.SyncQueued)
	assert.Equal(t, int32(2), f.notifier.n.Load())
}

func TestLedger_SinSincronizacionNoEncola(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})
	p := f.product(t, "SAL-200", 0, 100)

	res := f.apply(t, p.ID, entity.MovementPurchase, 3)
	assert.False(t, res.SyncQueued)
	assert.Zero(t, f.notifier.n.Load())
}

func TestLedger_ProductoInexistente(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})

	_, err := f.ledger.Apply(f.ctx, inventory.MovementRequest{ProductID: "nope", Type: entity.MovementPurchase, Quantity: 1})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
