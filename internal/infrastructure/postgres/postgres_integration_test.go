package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-stock/internal/application/inventory"
	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/infrastructure/postgres"
	"github.com/jhoicas/farmacia-stock/pkg/config"
)

// Requieren una base de datos desechable: TEST_DATABASE_URL=postgres://... go test ./...
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.EnsureSchema(ctx, pool))
	return pool
}

func createProduct(t *testing.T, pool *pgxpool.Pool) *entity.Product {
	t.Helper()
	now := time.Now().UTC()
	sku := "IT-" + uuid.NewString()[:8]
	p := &entity.Product{
		ID: uuid.NewString(), SKU: sku, Name: "Integración " + sku, SearchName: "integracion " + sku,
		UnitMeasure: "caja", CostPrice: decimal.NewFromInt(1000), ReorderPoint: 5, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, postgres.NewProductRepository(pool).Create(context.Background(), p))
	return p
}

func newLedger(pool *pgxpool.Pool) *inventory.Ledger {
	repos := postgres.NewRepos(pool)
	return inventory.NewLedger(postgres.NewTxRunner(pool), repos.Products, repos.Movements, nil,
		inventory.LedgerConfig{MaxRetries: 5, SyncEnabled: true}, zerolog.Nop())
}

func TestPostgres_LedgerConcurrente(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	ledger := newLedger(pool)
	p := createProduct(t, pool)

	_, err := ledger.OpeningBalance(ctx, inventory.OpeningBalanceRequest{ProductID: p.ID, Quantity: 100})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Apply(ctx, inventory.MovementRequest{ProductID: p.ID, Type: entity.MovementSale, Quantity: -5})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := ledger.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.StockQuantity)

	_, err = ledger.Apply(ctx, inventory.MovementRequest{ProductID: p.ID, Type: entity.MovementSale, Quantity: -1})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	audit, err := ledger.Audit(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, audit.Consistent)

	history, err := ledger.History(ctx, p.ID, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, history, 21)
}

func TestPostgres_MovimientosSonDeSoloInsercion(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	ledger := newLedger(pool)
	p := createProduct(t, pool)

	res, err := ledger.Apply(ctx, inventory.MovementRequest{ProductID: p.ID, Type: entity.MovementPurchase, Quantity: 10})
	require.NoError(t, err)
	require.True(t, res.SyncQueued)

	_, err = pool.Exec(ctx, `UPDATE stock_movements SET quantity = 99 WHERE id = $1`, res.Movement.ID)
	assert.Error(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM stock_movements WHERE id = $1`, res.Movement.ID)
	assert.Error(t, err)

	ev, err := postgres.NewSyncEventRepository(pool).GetByMovementID(ctx, res.Movement.ID)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, int64(10), ev.Delta)
	assert.Equal(t, entity.SyncStatusPending, ev.Status)
}

func TestPostgres_UnaSesionEnCursoPorBodega(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	now := time.Now().UTC()
	w := &entity.Warehouse{ID: uuid.NewString(), Name: "Bodega IT", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, postgres.NewWarehouseRepository(pool).Create(ctx, w))
	sessions := postgres.NewCountingSessionRepository(pool)

	first := entity.NewCountingSession(uuid.NewString(), w.ID, "Uno", "it", now)
	require.NoError(t, sessions.Create(ctx, first))

	err := sessions.Create(ctx, entity.NewCountingSession(uuid.NewString(), w.ID, "Dos", "it", now))
	var inProgress *domain.SessionInProgressError
	require.ErrorAs(t, err, &inProgress)

	p := createProduct(t, pool)
	loaded, err := sessions.GetByID(ctx, first.ID)
	require.NoError(t, err)
	item, _, err := loaded.AddItem(uuid.NewString(), p, now)
	require.NoError(t, err)
	_, err = loaded.RecordCount(item.ID, 3, now)
	require.NoError(t, err)
	require.NoError(t, sessions.Save(ctx, loaded))

	got, err := sessions.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.NotNil(t, got.Items[0].CountedQuantity)
	assert.Equal(t, int64(3), *got.Items[0].CountedQuantity)

	found, err := sessions.FindInProgress(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)
}
