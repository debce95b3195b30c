package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmacia-stock/internal/application/dto"
	"github.com/jhoicas/farmacia-stock/internal/application/inventory"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

// BatchHandler lotes y vencimientos (protegido).
type BatchHandler struct {
	svc *inventory.BatchService
}

// NewBatchHandler construye el handler.
func NewBatchHandler(svc *inventory.BatchService) *BatchHandler {
	return &BatchHandler{svc: svc}
}

// Add godoc
// @Summary      Recibir lote
// @Description  Crea el lote y su movimiento purchase en la misma transacción.
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AddBatchRequest  true  "Datos del lote"
// @Success      201   {object}  dto.AddBatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/batches [post]
func (h *BatchHandler) Add(c *fiber.Ctx) error {
	var in dto.AddBatchRequest
	if err := bind(c, &in); err != nil {
		return writeError(c, err)
	}
	res, err := h.svc.AddBatch(c.Context(), inventory.AddBatchRequest{
		ProductID:   in.ProductID,
		BatchNumber: in.BatchNumber,
		LotNumber:   in.LotNumber,
		ExpiryDate:  in.ExpiryDate,
		Quantity:    in.Quantity,
		Supplier:    in.Supplier,
		CostPerUnit: in.CostPerUnit,
		Actor:       GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.batchResponse(res))
}

// List godoc
// @Summary      Lotes de un producto
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        product_id   query  string  true   "ID del producto"
// @Param        active_only  query  bool    false  "Sólo activos"  default(true)
// @Success      200  {array}   dto.BatchResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/batches [get]
func (h *BatchHandler) List(c *fiber.Ctx) error {
	list, err := h.svc.ListBatches(c.Context(), c.Query("product_id"), c.QueryBool("active_only", true))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toBatchList(list))
}

// Expiring godoc
// @Summary      Lotes por vencer
// @Description  Lotes activos con stock que vencen dentro de within_days días, incluidos los ya vencidos.
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        within_days  query  int  false  "Días hacia adelante (por defecto el umbral de advertencia)"
// @Success      200  {array}   dto.BatchResponse
// @Router       /api/batches/expiring [get]
func (h *BatchHandler) Expiring(c *fiber.Ctx) error {
	list, err := h.svc.ExpiringBatches(c.Context(), c.QueryInt("within_days", 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toBatchList(list))
}

// Discard godoc
// @Summary      Dar de baja un lote
// @Description  Emite la salida expired o damaged por el remanente y desactiva el lote.
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true   "ID del lote"
// @Param        body  body  dto.DiscardBatchRequest  false  "type (expired|damaged), reason"
// @Success      200   {object}  dto.AddBatchResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/discard [post]
func (h *BatchHandler) Discard(c *fiber.Ctx) error {
	var in dto.DiscardBatchRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &in); err != nil {
			return writeError(c, err)
		}
	}
	res, err := h.svc.DiscardBatch(c.Context(), inventory.DiscardBatchRequest{
		BatchID: c.Params("id"),
		Type:    entity.MovementType(in.Type),
		Reason:  in.Reason,
		Actor:   GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(h.batchResponse(res))
}

func (h *BatchHandler) batchResponse(res *inventory.AddBatchResult) dto.AddBatchResponse {
	out := dto.AddBatchResponse{Movement: toApplyResponse(res.Result)}
	if res.Batch != nil {
		out.Batch = toBatchResponse(h.svc.View(res.Batch))
	}
	return out
}
