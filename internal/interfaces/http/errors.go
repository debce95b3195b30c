package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmacia-stock/internal/application/dto"
	"github.com/jhoicas/farmacia-stock/internal/domain"
)

// writeError traduce errores de dominio a status HTTP y códigos estables.
func writeError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	var fe *fiber.Error
	var inProgress *domain.SessionInProgressError
	switch {
	case errors.As(err, &fe):
		status, code = fe.Code, "INVALID_BODY"
	case errors.As(err, &inProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"code":       "SESSION_IN_PROGRESS",
			"message":    err.Error(),
			"session_id": inProgress.SessionID,
		})
	case errors.Is(err, domain.ErrInvalidMovement):
		status, code = fiber.StatusUnprocessableEntity, "INVALID_MOVEMENT"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInsufficientStock):
		status, code = fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrSessionState):
		status, code = fiber.StatusConflict, "SESSION_STATE"
	case errors.Is(err, domain.ErrDuplicate):
		status, code = fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrConcurrentModification), errors.Is(err, domain.ErrConflict):
		status, code = fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrForbidden):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = fiber.StatusUnauthorized, "UNAUTHORIZED"
	}
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "error interno"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
