package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmacia-stock/internal/application/dto"
	"github.com/jhoicas/farmacia-stock/internal/application/stocksync"
)

// SyncHandler consulta del outbox de sincronización con el marketplace (protegido).
type SyncHandler struct {
	monitor *stocksync.Monitor
}

// NewSyncHandler construye el handler.
func NewSyncHandler(monitor *stocksync.Monitor) *SyncHandler {
	return &SyncHandler{monitor: monitor}
}

// ListEvents godoc
// @Summary      Eventos de sincronización
// @Description  Deltas de entrada enviados o por enviar al marketplace, más recientes primero.
// @Tags         sync
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "pending, sent, failed o dead"
// @Param        limit   query  int     false  "Límite"  default(100)
// @Success      200  {array}   dto.SyncEventResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/sync/events [get]
func (h *SyncHandler) ListEvents(c *fiber.Ctx) error {
	list, err := h.monitor.ListEvents(c.Context(), c.Query("status"), c.QueryInt("limit", 0))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.SyncEventResponse, 0, len(list))
	for _, e := range list {
		out = append(out, *toSyncEventResponse(e))
	}
	return c.JSON(out)
}
