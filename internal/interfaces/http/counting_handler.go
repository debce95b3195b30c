package http

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmacia-stock/internal/application/counting"
	"github.com/jhoicas/farmacia-stock/internal/application/dto"
	"github.com/jhoicas/farmacia-stock/internal/application/usecase"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

// CountingHandler sesiones de conteo físico (protegido).
type CountingHandler struct {
	svc *counting.Service
}

// NewCountingHandler construye el handler.
func NewCountingHandler(svc *counting.Service) *CountingHandler {
	return &CountingHandler{svc: svc}
}

// Start godoc
// @Summary      Iniciar sesión de conteo
// @Description  Si la bodega ya tiene una sesión en curso responde 409 SESSION_IN_PROGRESS,
//
//	salvo que on_conflict indique pausarla o descartarla.
//
// @Tags         counting
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StartCountingRequest  true  "warehouse_id, session_name, on_conflict"
// @Success      201   {object}  dto.CountingSessionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/counting-sessions [post]
func (h *CountingHandler) Start(c *fiber.Ctx) error {
	var in dto.StartCountingRequest
	if err := bind(c, &in); err != nil {
		return writeError(c, err)
	}
	s, err := h.svc.Start(c.Context(), counting.StartRequest{
		WarehouseID: in.WarehouseID,
		Name:        in.Name,
		OnConflict:  in.OnConflict,
		Actor:       GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toSessionResponse(s))
}

// List godoc
// @Summary      Listar sesiones de conteo
// @Tags         counting
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Filtrar por bodega"
// @Param        status        query  string  false  "in_progress, paused, completed o discarded"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.CountingSessionListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/counting-sessions [get]
func (h *CountingHandler) List(c *fiber.Ctx) error {
	p := page(c)
	list, err := h.svc.List(c.Context(), c.Query("warehouse_id"), c.Query("status"), p.Limit, p.Offset)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.CountingSessionResponse, 0, len(list))
	for _, s := range list {
		items = append(items, toSessionResponse(s))
	}
	return c.JSON(dto.CountingSessionListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: p.Limit, Offset: p.Offset, Total: len(items)},
	})
}

// Get godoc
// @Summary      Obtener sesión de conteo con sus líneas
// @Tags         counting
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.CountingSessionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/counting-sessions/{id} [get]
func (h *CountingHandler) Get(c *fiber.Ctx) error {
	s, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSessionResponse(s))
}

// AddItem godoc
// @Summary      Agregar producto a la sesión
// @Description  Busca por código de barras, SKU o nombre. Si el producto ya está en la sesión
//
//	devuelve su línea (existing=true). Una búsqueda ambigua devuelve candidates sin agregar nada.
//
// @Tags         counting
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true  "ID de la sesión"
// @Param        body  body  dto.AddCountingItemRequest  true  "query o product_id"
// @Success      201   {object}  dto.AddCountingItemResponse
// @Success      200   {object}  dto.AddCountingItemResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/counting-sessions/{id}/items [post]
func (h *CountingHandler) AddItem(c *fiber.Ctx) error {
	var in dto.AddCountingItemRequest
	if err := bind(c, &in); err != nil {
		return writeError(c, err)
	}
	res, err := h.svc.AddItem(c.Context(), counting.AddItemRequest{
		SessionID: c.Params("id"),
		Query:     in.Query,
		ProductID: in.ProductID,
	})
	if err != nil {
		return writeError(c, err)
	}
	out := dto.AddCountingItemResponse{Existing: res.Existing}
	if res.Item == nil {
		out.Candidates = make([]dto.ProductResponse, 0, len(res.Candidates))
		for _, p := range res.Candidates {
			out.Candidates = append(out.Candidates, *usecase.ToProductResponse(p))
		}
		return c.JSON(out)
	}
	item := toItemResponse(res.Item)
	out.Item = &item
	if res.Existing {
		return c.JSON(out)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// RecordCount godoc
// @Summary      Registrar cantidad contada
// @Description  Sobrescribe el conteo previo de la línea.
// @Tags         counting
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id      path  string                  true  "ID de la sesión"
// @Param        itemId  path  string                  true  "ID de la línea"
// @Param        body    body  dto.RecordCountRequest  true  "counted_quantity >= 0"
// @Success      200     {object}  dto.CountingItemResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/counting-sessions/{id}/items/{itemId} [put]
func (h *CountingHandler) RecordCount(c *fiber.Ctx) error {
	var in dto.RecordCountRequest
	if err := bind(c, &in); err != nil {
		return writeError(c, err)
	}
	item, err := h.svc.RecordCount(c.Context(), c.Params("id"), c.Params("itemId"), *in.CountedQuantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toItemResponse(item))
}

// Pause godoc
// @Summary      Pausar sesión (guardar para después)
// @Tags         counting
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.CountingSessionResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/counting-sessions/{id}/pause [post]
func (h *CountingHandler) Pause(c *fiber.Ctx) error {
	return h.transition(c, h.svc.Pause)
}

// Resume godoc
// @Summary      Reanudar sesión pausada
// @Tags         counting
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.CountingSessionResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/counting-sessions/{id}/resume [post]
func (h *CountingHandler) Resume(c *fiber.Ctx) error {
	return h.transition(c, h.svc.Resume)
}

// Discard godoc
// @Summary      Descartar sesión
// @Description  No emite ajustes. Requiere rol admin o farmaceutico.
// @Tags         counting
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.CountingSessionResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/counting-sessions/{id}/discard [post]
func (h *CountingHandler) Discard(c *fiber.Ctx) error {
	return h.transition(c, h.svc.Discard)
}

// Complete godoc
// @Summary      Completar sesión y conciliar stock
// @Description  Emite un adjustment por cada producto contado con diferencia, en una sola transacción.
//
//	Requiere rol admin o farmaceutico.
//
// @Tags         counting
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.CompleteCountingResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/counting-sessions/{id}/complete [post]
func (h *CountingHandler) Complete(c *fiber.Ctx) error {
	res, err := h.svc.Complete(c.Context(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toCompleteResponse(res))
}

// Summary godoc
// @Summary      Resumen de la sesión
// @Tags         counting
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.CountingSummaryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/counting-sessions/{id}/summary [get]
func (h *CountingHandler) Summary(c *fiber.Ctx) error {
	sum, err := h.svc.Summarize(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSummaryResponse(sum))
}

// Export godoc
// @Summary      Exportar reporte de conciliación
// @Tags         counting
// @Security     Bearer
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      application/pdf
// @Param        id      path   string  true   "ID de la sesión"
// @Param        format  query  string  false  "xlsx o pdf"  default(xlsx)
// @Success      200  {file}    file
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/counting-sessions/{id}/export [get]
func (h *CountingHandler) Export(c *fiber.Ctx) error {
	res, err := h.svc.Export(c.Context(), c.Params("id"), c.Query("format", "xlsx"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, res.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, res.Filename))
	return c.Send(res.Data)
}

func (h *CountingHandler) transition(c *fiber.Ctx, fn func(ctx context.Context, id string) (*entity.CountingSession, error)) error {
	s, err := fn(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSessionResponse(s))
}
