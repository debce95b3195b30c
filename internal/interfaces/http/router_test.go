package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-stock/internal/application/counting"
	"github.com/jhoicas/farmacia-stock/internal/application/inventory"
	"github.com/jhoicas/farmacia-stock/internal/application/stocksync"
	"github.com/jhoicas/farmacia-stock/internal/application/usecase"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/infrastructure/memory"
	"github.com/jhoicas/farmacia-stock/internal/infrastructure/report"
	apphttp "github.com/jhoicas/farmacia-stock/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/farmacia-stock/pkg/jwt"
)

type testServer struct {
	t   *testing.T
	app *fiber.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repos()
	log := zerolog.Nop()

	ledger := inventory.NewLedger(memory.NewTxRunner(store), repos.Products, repos.Movements, nil,
		inventory.LedgerConfig{MaxRetries: 3, SyncEnabled: true}, log)
	countingSvc := counting.NewService(ledger, repos.Sessions, repos.Products, store.Warehouses(),
		memory.NewWarehouseLocker(), log, report.NewXLSXExporter(), report.NewPDFExporter())

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Ledger:        ledger,
		Replenishment: inventory.NewReplenishmentUseCase(repos.Products),
		Batches:       inventory.NewBatchService(ledger, repos.Batches, entity.DefaultExpiryThresholds()),
		Counting:      countingSvc,
		SyncMonitor:   stocksync.NewMonitor(repos.SyncEvents),
		ProductUC:     usecase.NewProductUseCase(repos.Products),
		WarehouseUC:   usecase.NewWarehouseUseCase(store.Warehouses()),
		JWTSecret:     testJWTSecret,
	})
	return &testServer{t: t, app: app}
}

// do ejecuta la petición con el rol dado y decodifica el JSON de respuesta en out (si no es nil).
func (s *testServer) do(method, path, role string, body any, out any) *http.Response {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(s.t, role))
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	if out != nil {
		defer resp.Body.Close()
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

type idBody struct {
	ID string `json:"id"`
}

type applyBody struct {
	Movement struct {
		ID            string `json:"id"`
		Type          string `json:"movement_type"`
		Quantity      int64  `json:"quantity"`
		QuantityAfter int64  `json:"quantity_after"`
	} `json:"movement"`
	SyncQueued bool `json:"sync_queued"`
}

type errBody struct {
	Code string `json:"code"`
}

func (s *testServer) seedProduct(sku, barcode, name string) string {
	s.t.Helper()
	var p idBody
	resp := s.do(http.MethodPost, "/api/products", pkgjwt.RoleAdmin, map[string]any{
		"sku": sku, "barcode": barcode, "name": name, "unit_measure": "caja", "cost_price": "1000",
	}, &p)
	require.Equal(s.t, http.StatusCreated, resp.StatusCode)
	return p.ID
}

func TestRouter_RequiereToken(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/warehouses", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_MovimientosYStock(t *testing.T) {
	s := newTestServer(t)
	productID := s.seedProduct("AMOX-500", "7701", "Amoxicilina 500mg")

	var opening applyBody
	resp := s.do(http.MethodPost, "/api/inventory/opening-balances", pkgjwt.RoleAssistant,
		map[string]any{"product_id": productID, "quantity": 50, "unit_cost": "1000"}, &opening)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "opening_balance", opening.Movement.Type)
	assert.Equal(t, int64(50), opening.Movement.QuantityAfter)

	var sale applyBody
	resp = s.do(http.MethodPost, "/api/inventory/movements", pkgjwt.RoleAssistant,
		map[string]any{"product_id": productID, "type": "sale", "quantity": -3}, &sale)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(47), sale.Movement.QuantityAfter)
	assert.False(t, sale.SyncQueued, "una venta no se sincroniza")

	var purchase applyBody
	resp = s.do(http.MethodPost, "/api/inventory/movements", pkgjwt.RoleAssistant,
		map[string]any{"product_id": productID, "type": "purchase", "quantity": 20, "unit_cost": "1000"}, &purchase)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(67), purchase.Movement.QuantityAfter)
	assert.True(t, purchase.SyncQueued)

	t.Run("signo incorrecto", func(t *testing.T) {
		var e errBody
		resp := s.do(http.MethodPost, "/api/inventory/movements", pkgjwt.RoleAssistant,
			map[string]any{"product_id": productID, "type": "sale", "quantity": 5}, &e)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "INVALID_MOVEMENT", e.Code)
	})

	t.Run("stock insuficiente", func(t *testing.T) {
		var e errBody
		resp := s.do(http.MethodPost, "/api/inventory/movements", pkgjwt.RoleAssistant,
			map[string]any{"product_id": productID, "type": "sale", "quantity": -1000}, &e)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)
	})

	t.Run("producto inexistente", func(t *testing.T) {
		var e errBody
		resp := s.do(http.MethodGet, "/api/inventory/products/no-existe", pkgjwt.RoleAssistant, nil, &e)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", e.Code)
	})

	var stock struct {
		StockQuantity int64 `json:"stock_quantity"`
	}
	resp = s.do(http.MethodGet, "/api/inventory/products/"+productID, pkgjwt.RoleAssistant, nil, &stock)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(67), stock.StockQuantity)

	var history struct {
		Items []struct {
			Type string `json:"movement_type"`
		} `json:"items"`
	}
	resp = s.do(http.MethodGet, "/api/inventory/products/"+productID+"/movements", pkgjwt.RoleAssistant, nil, &history)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, history.Items, 3)

	var detail struct {
		Sync *struct {
			Status string `json:"status"`
			Delta  int64  `json:"delta"`
		} `json:"sync"`
	}
	resp = s.do(http.MethodGet, "/api/inventory/movements/"+purchase.Movement.ID, pkgjwt.RoleAssistant, nil, &detail)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, detail.Sync)
	assert.Equal(t, entity.SyncStatusPending, detail.Sync.Status)
	assert.Equal(t, int64(20), detail.Sync.Delta)

	var events []struct {
		SKU string `json:"sku"`
	}
	resp = s.do(http.MethodGet, "/api/sync/events?status=pending", pkgjwt.RoleAssistant, nil, &events)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, events, 2, "saldo inicial positivo y compra")
}

func TestRouter_FlujoDeConteo(t *testing.T) {
	s := newTestServer(t)
	productID := s.seedProduct("AMOX-500", "7701", "Amoxicilina 500mg")
	s.do(http.MethodPost, "/api/inventory/opening-balances", pkgjwt.RoleAdmin,
		map[string]any{"product_id": productID, "quantity": 67, "unit_cost": "1000"}, nil)

	var wh idBody
	resp := s.do(http.MethodPost, "/api/warehouses", pkgjwt.RoleAdmin, map[string]any{"name": "Principal"}, &wh)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session idBody
	resp = s.do(http.MethodPost, "/api/counting-sessions", pkgjwt.RoleAssistant,
		map[string]any{"warehouse_id": wh.ID, "session_name": "Conteo marzo"}, &session)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("segunda sesión en curso", func(t *testing.T) {
		var e struct {
			Code      string `json:"code"`
			SessionID string `json:"session_id"`
		}
		resp := s.do(http.MethodPost, "/api/counting-sessions", pkgjwt.RoleAssistant,
			map[string]any{"warehouse_id": wh.ID}, &e)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "SESSION_IN_PROGRESS", e.Code)
		assert.Equal(t, session.ID, e.SessionID)
	})

	type addBody struct {
		Item struct {
			ID             string `json:"id"`
			SystemQuantity int64  `json:"system_quantity"`
		} `json:"item"`
		Existing bool `json:"existing"`
	}
	var added addBody
	resp = s.do(http.MethodPost, "/api/counting-sessions/"+session.ID+"/items", pkgjwt.RoleAssistant,
		map[string]any{"query": "7701"}, &added)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(67), added.Item.SystemQuantity)

	var again addBody
	resp = s.do(http.MethodPost, "/api/counting-sessions/"+session.ID+"/items", pkgjwt.RoleAssistant,
		map[string]any{"query": "AMOX-500"}, &again)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, again.Existing)
	assert.Equal(t, added.Item.ID, again.Item.ID)

	var item struct {
		Difference int64  `json:"difference"`
		Status     string `json:"status"`
	}
	resp = s.do(http.MethodPut, "/api/counting-sessions/"+session.ID+"/items/"+added.Item.ID, pkgjwt.RoleAssistant,
		map[string]any{"counted_quantity": 60}, &item)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(-7), item.Difference)
	assert.Equal(t, entity.ItemUnderstock, item.Status)

	var summary struct {
		UnmatchedItems       int    `json:"unmatched_items"`
		TotalValueDifference string `json:"total_value_difference"`
	}
	resp = s.do(http.MethodGet, "/api/counting-sessions/"+session.ID+"/summary", pkgjwt.RoleAssistant, nil, &summary)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, summary.UnmatchedItems)
	assert.Equal(t, "-7000", summary.TotalValueDifference)

	resp = s.do(http.MethodPost, "/api/counting-sessions/"+session.ID+"/complete", pkgjwt.RoleAssistant, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "auxiliar no puede completar")

	var completed struct {
		Session struct {
			Status string `json:"status"`
		} `json:"session"`
		Adjustments []struct {
			Quantity      int64  `json:"quantity"`
			QuantityAfter int64  `json:"quantity_after"`
			ReferenceType string `json:"reference_type"`
		} `json:"adjustments"`
	}
	resp = s.do(http.MethodPost, "/api/counting-sessions/"+session.ID+"/complete", pkgjwt.RolePharmacist, nil, &completed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(entity.SessionCompleted), completed.Session.Status)
	require.Len(t, completed.Adjustments, 1)
	assert.Equal(t, int64(-7), completed.Adjustments[0].Quantity)
	assert.Equal(t, int64(60), completed.Adjustments[0].QuantityAfter)
	assert.Equal(t, entity.ReferenceCountingSession, completed.Adjustments[0].ReferenceType)

	var e errBody
	resp = s.do(http.MethodPut, "/api/counting-sessions/"+session.ID+"/items/"+added.Item.ID, pkgjwt.RoleAssistant,
		map[string]any{"counted_quantity": 1}, &e)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "SESSION_STATE", e.Code)

	var audit struct {
		StockQuantity int64 `json:"stock_quantity"`
		Consistent    bool  `json:"consistent"`
	}
	resp = s.do(http.MethodGet, "/api/inventory/products/"+productID+"/audit", pkgjwt.RoleAssistant, nil, &audit)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(60), audit.StockQuantity)
	assert.True(t, audit.Consistent)

	resp = s.do(http.MethodGet, "/api/counting-sessions/"+session.ID+"/export?format=pdf", pkgjwt.RoleAssistant, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "conteo-"+session.ID+".pdf")

	resp = s.do(http.MethodGet, "/api/counting-sessions/"+session.ID+"/export?format=csv", pkgjwt.RoleAssistant, nil, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_BusquedaYLotes(t *testing.T) {
	s := newTestServer(t)
	productID := s.seedProduct("ACET-1", "7702", "Acetaminofén 500mg")

	var search struct {
		ExactMatch bool `json:"exact_match"`
		Items      []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	resp := s.do(http.MethodGet, "/api/products/search?q=acetaminofen", pkgjwt.RoleAssistant, nil, &search)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, search.ExactMatch)
	require.Len(t, search.Items, 1)
	assert.Equal(t, productID, search.Items[0].ID)

	var e errBody
	resp = s.do(http.MethodPost, "/api/products", pkgjwt.RoleAdmin,
		map[string]any{"sku": "ACET-1", "name": "Otro"}, &e)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", e.Code)

	var batch struct {
		Batch struct {
			ID           string `json:"id"`
			Quantity     int64  `json:"quantity"`
			ExpiryStatus string `json:"expiry_status"`
		} `json:"batch"`
		Movement struct {
			Movement struct {
				Type string `json:"movement_type"`
			} `json:"movement"`
		} `json:"movement"`
	}
	resp = s.do(http.MethodPost, "/api/batches", pkgjwt.RoleAdmin, map[string]any{
		"product_id": productID, "batch_number": "L-001", "expiry_date": "2020-01-01T00:00:00Z",
		"quantity": 30, "cost_per_unit": "200",
	}, &batch)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(30), batch.Batch.Quantity)
	assert.Equal(t, string(entity.ExpiryCritical), batch.Batch.ExpiryStatus)
	assert.Equal(t, "purchase", batch.Movement.Movement.Type)

	var expiring []struct {
		ID string `json:"id"`
	}
	resp = s.do(http.MethodGet, "/api/batches/expiring?within_days=30", pkgjwt.RoleAssistant, nil, &expiring)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, expiring, 1)

	var discarded struct {
		Batch struct {
			Quantity int64 `json:"quantity"`
			IsActive bool  `json:"is_active"`
		} `json:"batch"`
	}
	resp = s.do(http.MethodPost, "/api/batches/"+batch.Batch.ID+"/discard", pkgjwt.RoleAdmin,
		map[string]any{"type": "expired"}, &discarded)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(0), discarded.Batch.Quantity)
	assert.False(t, discarded.Batch.IsActive)

	var stock struct {
		StockQuantity int64 `json:"stock_quantity"`
	}
	s.do(http.MethodGet, "/api/inventory/products/"+productID, pkgjwt.RoleAssistant, nil, &stock)
	assert.Equal(t, int64(0), stock.StockQuantity)
}
