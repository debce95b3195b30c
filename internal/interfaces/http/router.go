package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmacia-stock/internal/application/counting"
	"github.com/jhoicas/farmacia-stock/internal/application/inventory"
	"github.com/jhoicas/farmacia-stock/internal/application/stocksync"
	"github.com/jhoicas/farmacia-stock/internal/application/usecase"
	"github.com/jhoicas/farmacia-stock/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger        *inventory.Ledger
	Replenishment *inventory.ReplenishmentUseCase
	Batches       *inventory.BatchService
	Counting      *counting.Service
	SyncMonitor   *stocksync.Monitor
	ProductUC     *usecase.ProductUseCase
	WarehouseUC   *usecase.WarehouseUseCase
	JWTSecret     string
}

// Router registra las rutas de la API. Todo lo que cuelga de /api requiere Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	supervisors := RequireRole(jwt.RoleAdmin, jwt.RolePharmacist)

	// Warehouses
	warehouses := api.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)

	// Products
	products := api.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", productHandler.Create)
	products.Get("/search", productHandler.Search)
	products.Get("/:id", productHandler.GetByID)

	// Ledger de inventario
	invGroup := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.Replenishment, deps.SyncMonitor)
	invGroup.Post("/movements", inventoryHandler.RegisterMovement)
	invGroup.Get("/movements/:id", inventoryHandler.GetMovement)
	invGroup.Post("/opening-balances", inventoryHandler.OpeningBalance)
	invGroup.Get("/products/:id", inventoryHandler.GetStock)
	invGroup.Get("/products/:id/movements", inventoryHandler.History)
	invGroup.Get("/products/:id/audit", inventoryHandler.Audit)
	invGroup.Get("/replenishment-list", inventoryHandler.GetReplenishmentList)

	// Lotes
	batches := api.Group("/batches")
	batchHandler := NewBatchHandler(deps.Batches)
	batches.Post("/", batchHandler.Add)
	batches.Get("/", batchHandler.List)
	batches.Get("/expiring", batchHandler.Expiring)
	batches.Post("/:id/discard", batchHandler.Discard)

	// Conteo físico
	sessions := api.Group("/counting-sessions")
	countingHandler := NewCountingHandler(deps.Counting)
	sessions.Post("/", countingHandler.Start)
	sessions.Get("/", countingHandler.List)
	sessions.Get("/:id", countingHandler.Get)
	sessions.Post("/:id/items", countingHandler.AddItem)
	sessions.Put("/:id/items/:itemId", countingHandler.RecordCount)
	sessions.Post("/:id/pause", countingHandler.Pause)
	sessions.Post("/:id/resume", countingHandler.Resume)
	sessions.Post("/:id/complete", supervisors, countingHandler.Complete)
	sessions.Post("/:id/discard", supervisors, countingHandler.Discard)
	sessions.Get("/:id/summary", countingHandler.Summary)
	sessions.Get("/:id/export", countingHandler.Export)

	// Sincronización con el marketplace
	syncHandler := NewSyncHandler(deps.SyncMonitor)
	api.Get("/sync/events", syncHandler.ListEvents)
}
