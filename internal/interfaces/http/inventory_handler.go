package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmacia-stock/internal/application/dto"
	"github.com/jhoicas/farmacia-stock/internal/application/inventory"
	"github.com/jhoicas/farmacia-stock/internal/application/stocksync"
	"github.com/jhoicas/farmacia-stock/internal/application/usecase"
	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

// InventoryHandler maneja las peticiones HTTP del ledger de stock (protegido).
type InventoryHandler struct {
	ledger        *inventory.Ledger
	replenishment *inventory.ReplenishmentUseCase
	monitor       *stocksync.Monitor
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.Ledger, replenishment *inventory.ReplenishmentUseCase, monitor *stocksync.Monitor) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, replenishment: replenishment, monitor: monitor}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Description  quantity es el delta con signo: positivo para entradas, negativo para salidas.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "product_id, type, quantity, unit_cost (entradas)"
// @Success      201   {object}  dto.ApplyMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := bind(c, &in); err != nil {
		return writeError(c, err)
	}
	mt, err := entity.ParseMovementType(in.Type)
	if err != nil {
		return writeError(c, err)
	}
	req := inventory.MovementRequest{
		ProductID:     in.ProductID,
		Type:          mt,
		Quantity:      in.Quantity,
		UnitCost:      in.UnitCost,
		Reason:        in.Reason,
		Notes:         in.Notes,
		BatchID:       in.BatchID,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Actor:         GetUserID(c),
	}
	if in.MovementDate != nil {
		req.MovementDate = *in.MovementDate
	}
	res, err := h.ledger.Apply(c.Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toApplyResponse(res))
}

// OpeningBalance godoc
// @Summary      Registrar saldo inicial
// @Description  Suma la cantidad al stock actual; nunca lo reemplaza.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OpeningBalanceRequest  true  "product_id, quantity, unit_cost"
// @Success      201   {object}  dto.ApplyMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/opening-balances [post]
func (h *InventoryHandler) OpeningBalance(c *fiber.Ctx) error {
	var in dto.OpeningBalanceRequest
	if err := bind(c, &in); err != nil {
		return writeError(c, err)
	}
	req := inventory.OpeningBalanceRequest{
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		UnitCost:  in.UnitCost,
		Notes:     in.Notes,
		Actor:     GetUserID(c),
	}
	if in.EffectiveDate != nil {
		req.EffectiveDate = *in.EffectiveDate
	}
	res, err := h.ledger.OpeningBalance(c.Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toApplyResponse(res))
}

// GetStock godoc
// @Summary      Stock actual de un producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id} [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	p, err := h.ledger.GetProduct(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(usecase.ToProductResponse(p))
}

// History godoc
// @Summary      Historial de movimientos de un producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del producto"
// @Param        from    query  string  false  "Desde (RFC3339 o YYYY-MM-DD)"
// @Param        to      query  string  false  "Hasta (RFC3339 o YYYY-MM-DD)"
// @Param        limit   query  int     false  "Límite"  default(50)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/movements [get]
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	from, err := parseDateQuery(c, "from")
	if err != nil {
		return writeError(c, err)
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		return writeError(c, err)
	}
	limit, offset := c.QueryInt("limit", 50), c.QueryInt("offset", 0)
	list, err := h.ledger.History(c.Context(), c.Params("id"), from, to, limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MovementListResponse{
		Items: toMovementList(list),
		Page:  dto.PageResponse{Limit: limit, Offset: offset, Total: len(list)},
	})
}

// GetMovement godoc
// @Summary      Obtener movimiento con su estado de sincronización
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id} [get]
func (h *InventoryHandler) GetMovement(c *fiber.Ctx) error {
	m, err := h.ledger.GetMovement(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	ev, err := h.monitor.ForMovement(c.Context(), m.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MovementDetailResponse{Movement: toMovementResponse(m), Sync: toSyncEventResponse(ev)})
}

// Audit godoc
// @Summary      Auditar agregado contra el ledger
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.AuditResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/audit [get]
func (h *InventoryHandler) Audit(c *fiber.Ctx) error {
	res, err := h.ledger.Audit(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.AuditResponse{
		ProductID:     res.ProductID,
		StockQuantity: res.StockQuantity,
		LedgerSum:     res.LedgerSum,
		Consistent:    res.Consistent,
	})
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición
// @Description  Productos en o bajo su punto de reorden con la cantidad sugerida de pedido.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        limit  query  int  false  "Límite"  default(200)
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/inventory/replenishment-list [get]
func (h *InventoryHandler) GetReplenishmentList(c *fiber.Ctx) error {
	list, err := h.replenishment.GenerateReplenishmentList(c.Context(), c.QueryInt("limit", 200))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": list,
	})
}

func parseDateQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s debe ser RFC3339 o YYYY-MM-DD", domain.ErrInvalidInput, key)
}
