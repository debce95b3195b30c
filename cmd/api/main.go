package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/farmacia-stock/internal/application/counting"
	"github.com/jhoicas/farmacia-stock/internal/application/inventory"
	"github.com/jhoicas/farmacia-stock/internal/application/ports"
	"github.com/jhoicas/farmacia-stock/internal/application/stocksync"
	"github.com/jhoicas/farmacia-stock/internal/application/usecase"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	domaininv "github.com/jhoicas/farmacia-stock/internal/domain/inventory"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
	"github.com/jhoicas/farmacia-stock/internal/infrastructure/marketplace"
	"github.com/jhoicas/farmacia-stock/internal/infrastructure/memory"
	"github.com/jhoicas/farmacia-stock/internal/infrastructure/postgres"
	"github.com/jhoicas/farmacia-stock/internal/infrastructure/redislock"
	"github.com/jhoicas/farmacia-stock/internal/infrastructure/report"
	httpRouter "github.com/jhoicas/farmacia-stock/internal/interfaces/http"
	"github.com/jhoicas/farmacia-stock/pkg/config"
	"github.com/jhoicas/farmacia-stock/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("store", cfg.Store.Driver).
		Bool("sync", cfg.Sync.Enabled).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Persistencia: PostgreSQL o memoria (desarrollo / demo)
	var (
		txRunner   ports.TxRunner
		repos      ports.Repos
		warehouses repository.WarehouseRepository
	)
	switch cfg.Store.Driver {
	case "memory":
		store := memory.NewStore()
		txRunner, repos, warehouses = memory.NewTxRunner(store), store.Repos(), store.Warehouses()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("aplicar esquema")
		}
		txRunner, repos, warehouses = postgres.NewTxRunner(pool), postgres.NewRepos(pool), postgres.NewWarehouseRepository(pool)
	}

	// Candado de bodega: Redis si hay varias réplicas, si no local al proceso
	var locker ports.WarehouseLocker = memory.NewWarehouseLocker()
	if cfg.Redis.Addr != "" {
		rdb, err := redislock.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		locker = redislock.New(rdb, 5*time.Second, log.Component("redislock"))
	}

	// Outbox de sincronización con el marketplace
	var notifier ports.SyncNotifier = ports.NoopNotifier{}
	if cfg.Sync.Enabled {
		var adapter ports.SyncAdapter
		if cfg.Sync.BaseURL != "" {
			adapter = marketplace.NewHTTPAdapter(cfg.Sync.BaseURL, cfg.Sync.APIKey, cfg.Sync.Timeout)
		} else {
			adapter = marketplace.NewNoopAdapter(log.Component("marketplace"))
		}
		dispatcher := stocksync.NewDispatcher(repos.SyncEvents, adapter, stocksync.Config{
			BatchSize:      cfg.Sync.BatchSize,
			PollInterval:   cfg.Sync.PollInterval,
			Timeout:        cfg.Sync.Timeout,
			MaxAttempts:    cfg.Sync.MaxAttempts,
			InitialBackoff: cfg.Sync.InitialBackoff,
		}, log.Component("stocksync"))
		notifier = dispatcher
		go dispatcher.Run(ctx)
	}

	negative, err := inventory.ParseNegativeStockPolicy(cfg.Ledger.NegativeStockPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("política de stock negativo")
	}
	consumption, err := domaininv.ParsePolicy(cfg.Ledger.ConsumptionPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("política de consumo de lotes")
	}
	ledger := inventory.NewLedger(txRunner, repos.Products, repos.Movements, notifier, inventory.LedgerConfig{
		NegativePolicy: negative,
		MaxRetries:     cfg.Ledger.MaxRetries,
		Consumption:    consumption,
		SyncEnabled:    cfg.Sync.Enabled,
	}, log.Component("ledger"))

	batchSvc := inventory.NewBatchService(ledger, repos.Batches, entity.ExpiryThresholds{
		CriticalDays: cfg.Expiry.CriticalDays,
		WarningDays:  cfg.Expiry.WarningDays,
	})
	countingSvc := counting.NewService(ledger, repos.Sessions, repos.Products, warehouses, locker,
		log.Component("counting"), report.NewXLSXExporter(), report.NewPDFExporter())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Farmacia Stock API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:        ledger,
		Replenishment: inventory.NewReplenishmentUseCase(repos.Products),
		Batches:       batchSvc,
		Counting:      countingSvc,
		SyncMonitor:   stocksync.NewMonitor(repos.SyncEvents),
		ProductUC:     usecase.NewProductUseCase(repos.Products),
		WarehouseUC:   usecase.NewWarehouseUseCase(warehouses),
		JWTSecret:     cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
