package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-stock/internal/application/inventory"
	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

func (f *fixture) batchService() *inventory.BatchService {
	return inventory.NewBatchService(f.ledger, f.repos.Batches, entity.DefaultExpiryThresholds())
}

func (f *fixture) addBatch(t *testing.T, svc *inventory.BatchService, productID, number string, expiresIn time.Duration, qty int64) *entity.StockBatch {
	t.Helper()
	res, err := svc.AddBatch(f.ctx, inventory.AddBatchRequest{
		ProductID:   productID,
		BatchNumber: number,
		ExpiryDate:  time.Now().Add(expiresIn),
		Quantity:    qty,
		CostPerUnit: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	return res.Batch
}

const day = 24 * time.Hour

func TestBatches_AltaCreaLoteYCompra(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})
	svc := f.batchService()
	p := f.product(t, "AMOX-500", 0, 100)

	res, err := svc.AddBatch(f.ctx, inventory.AddBatchRequest{
		ProductID:   p.ID,
		BatchNumber: " L-001 ",
		ExpiryDate:  time.Now().Add(200 * day),
		Quantity:    30,
		CostPerUnit: decimal.NewFromInt(120),
	})
	require.NoError(t, err)

	assert.Equal(t, "L-001", res.Batch.BatchNumber)
	assert.True(t, res.Batch.IsActive)
	require.NotNil(t, res.Result.Movement)
	assert.Equal(t, entity.MovementPurchase, res.Result.Movement.Type)
	assert.Equal(t, res.Batch.ID, res.Result.Movement.BatchID)
	assert.Equal(t, "Batch receipt: L-001", res.Result.Movement.Reason)
	assert.Equal(t, int64(30), f.stock(t, p.ID))
	f.assertConsistent(t, p.ID)
}

func TestBatches_LoteDuplicadoNoMueveStock(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})
	svc := f.batchService()
	p := f.product(t, "AMOX-500", 0, 100)
	f.addBatch(t, svc, p.ID, "L-001", 100*day, 10)

	_, err := svc.AddBatch(f.ctx, inventory.AddBatchRequest{
		ProductID: p.ID, BatchNumber: "L-001", ExpiryDate: time.Now().Add(day), Quantity: 5,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Equal(t, int64(10), f.stock(t, p.ID), "lote y movimiento van juntos o no van")
}

func TestBatches_ValidacionDeEntrada(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})
	svc := f.batchService()
	p := f.product(t, "AMOX-500", 0, 100)

	_, err := svc.AddBatch(f.ctx, inventory.AddBatchRequest{ProductID: p.ID, BatchNumber: "L-1", Quantity: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "sin fecha de vencimiento")

	_, err = svc.AddBatch(f.ctx, inventory.AddBatchRequest{ProductID: p.ID, BatchNumber: "L-1", ExpiryDate: time.Now(), Quantity: -5})
	assert.ErrorIs(t, err, domain.ErrInvalidMovement)

	_, err = svc.AddBatch(f.ctx, inventory.AddBatchRequest{ProductID: "nope", BatchNumber: "L-1", ExpiryDate: time.Now(), Quantity: 5})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBatches_VentaConsumeFEFO(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})
	svc := f.batchService()
	p := f.product(t, "IBU-4", 0, 100)
	late := f.addBatch(t, svc, p.ID, "TARDE", 300*day, 10)
	early := f.addBatch(t, svc, p.ID, "TEMPRANO", 20*day, 4)

	res := f.apply(t, p.ID, entity.MovementSale, -6)
	require.Len(t, res.Deductions, 2)
	assert.Equal(t, early.ID, res.Deductions[0].BatchID)
	assert.Equal(t, int64(4), res.Deductions[0].Quantity)
	assert.Equal(t, late.ID, res.Deductions[1].BatchID)
	assert.Equal(t, int64(2), res.Deductions[1].Quantity)
	assert.Zero(t, res.Untracked)

	active, err := svc.ListBatches(f.ctx, p.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(8), active[0].Batch.Quantity)
}

func TestBatches_EstadoDeVencimiento(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})
	svc := f.batchService()
	p := f.product(t, "LORA-10", 0, 100)
	f.addBatch(t, svc, p.ID, "NORMAL", 200*day, 1)
	f.addBatch(t, svc, p.ID, "AVISO", 60*day, 1)
	f.addBatch(t, svc, p.ID, "CRITICO", 10*day, 1)
	f.addBatch(t, svc, p.ID, "VENCIDO", -3*day, 1)

	list, err := svc.ListBatches(f.ctx, p.ID, false)
	require.NoError(t, err)
	require.Len(t, list, 4)

	got := map[string]entity.ExpiryStatus{}
	for _, v := range list {
		got[v.Batch.BatchNumber] = v.Status
	}
	assert.Equal(t, entity.ExpiryNormal, got["NORMAL"])
	assert.Equal(t, entity.ExpiryWarning, got["AVISO"])
	assert.Equal(t, entity.ExpiryCritical, got["CRITICO"])
	assert.Equal(t, entity.ExpiryCritical, got["VENCIDO"])
	assert.Equal(t, "VENCIDO", list[0].Batch.BatchNumber, "ordenados por vencimiento")
	assert.Negative(t, list[0].DaysUntilExpiry)

	expiring, err := svc.ExpiringBatches(f.ctx, 30)
	require.NoError(t, err)
	assert.Len(t, expiring, 2)
}

func TestBatches_Baja(t *testing.T) {
	f := newFixture(t, inventory.LedgerConfig{})
	svc := f.batchService()
	p := f.product(t, "OME-20", 5, 100)
	b := f.addBatch(t, svc, p.ID, "L-9", -1*day, 7)

	res, err := svc.DiscardBatch(f.ctx, inventory.DiscardBatchRequest{BatchID: b.ID})
	require.NoError(t, err)
	require.NotNil(t, res.Result)
	assert.Equal(t, entity.MovementExpired, res.Result.Movement.Type)
	assert.Equal(t, int64(-7), res.Result.Movement.Quantity)
	assert.Equal(t, "Batch discard: L-9", res.Result.Movement.Reason)
	assert.False(t, res.Batch.IsActive)
	assert.Zero(t, res.Batch.Quantity)
	assert.Equal(t, int64(5), f.stock(t, p.ID), "queda el stock sin lote")

	_, err = svc.DiscardBatch(f.ctx, inventory.DiscardBatchRequest{BatchID: b.ID})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.DiscardBatch(f.ctx, inventory.DiscardBatchRequest{BatchID: b.ID, Type: entity.MovementSale})
	assert.ErrorIs(t, err, domain.ErrInvalidMovement)
	f.assertConsistent(t, p.ID)
}
