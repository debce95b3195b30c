// seed_stock carga el catálogo y el saldo inicial de una farmacia desde un CSV exportado del
// sistema anterior. Cada producto se crea con stock 0 y su existencia entra como opening_balance,
// de modo que el ledger cuadra desde el primer día.
//
// Uso: go run ./cmd/seed_stock [ruta/inventario.csv]
// Por defecto busca inventario.csv en el directorio actual. Acepta UTF-8 o ISO-8859-1 y
// separador ';' o ','. Columnas: sku;barcode;name;unit;cost;quantity[;min_stock;reorder_point]
package main

import (
	"context"
	"errors"
	"os"

	"github.com/jhoicas/farmacia-stock/internal/application/dto"
	"github.com/jhoicas/farmacia-stock/internal/application/inventory"
	"github.com/jhoicas/farmacia-stock/internal/application/usecase"
	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/infrastructure/postgres"
	"github.com/jhoicas/farmacia-stock/pkg/config"
	"github.com/jhoicas/farmacia-stock/pkg/logger"
)

const seedActor = "seed_stock"

func main() {
	csvPath := "inventario.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed_stock"})

	raw, err := os.ReadFile(csvPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", csvPath).Msg("abrir CSV")
	}
	rows, rowErrs := parseCSV(raw)
	for _, e := range rowErrs {
		log.Warn().Err(e).Msg("fila descartada")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("aplicar esquema")
	}

	repos := postgres.NewRepos(pool)
	products := usecase.NewProductUseCase(repos.Products)
	ledger := inventory.NewLedger(postgres.NewTxRunner(pool), repos.Products, repos.Movements, nil,
		inventory.LedgerConfig{MaxRetries: cfg.Ledger.MaxRetries}, log.Component("ledger"))

	var created, skipped, balances int
	for _, r := range rows {
		p, err := products.Create(ctx, dto.CreateProductRequest{
			SKU:           r.SKU,
			Barcode:       r.Barcode,
			Name:          r.Name,
			UnitMeasure:   r.Unit,
			CostPrice:     r.Cost,
			MinStockLevel: r.MinStock,
			ReorderPoint:  r.ReorderPoint,
		})
		if errors.Is(err, domain.ErrDuplicate) {
			skipped++
			log.Info().Str("sku", r.SKU).Int("line", r.Line).Msg("producto ya existe, se omite")
			continue
		}
		if err != nil {
			log.Fatal().Err(err).Str("sku", r.SKU).Int("line", r.Line).Msg("crear producto")
		}
		created++
		if r.Quantity == 0 {
			continue
		}
		cost := r.Cost
		if _, err := ledger.OpeningBalance(ctx, inventory.OpeningBalanceRequest{
			ProductID: p.ID,
			Quantity:  r.Quantity,
			UnitCost:  &cost,
			Notes:     "Carga inicial desde " + csvPath,
			Actor:     seedActor,
		}); err != nil {
			log.Fatal().Err(err).Str("sku", r.SKU).Int("line", r.Line).Msg("saldo inicial")
		}
		balances++
	}

	log.Info().
		Int("creados", created).
		Int("omitidos", skipped).
		Int("saldos_iniciales", balances).
		Int("filas_invalidas", len(rowErrs)).
		Msg("carga terminada")
}
