package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/invorya-ledger/internal/application/dto"
	"github.com/jhoicas/invorya-ledger/internal/domain"
	"github.com/jhoicas/invorya-ledger/pkg/i18n"
)

// errorStatus traduce un error del núcleo a estado HTTP y cuerpo.
// Rechazos de negocio → 422 con mensaje localizado; fallos transitorios → 409 para reintentar.
func errorStatus(c *fiber.Ctx, err error) (int, dto.ErrorResponse) {
	if rej, ok := domain.AsRejection(err); ok {
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{
			Code:    rej.Code,
			Message: i18n.Localize(rej, i18n.Match(c.Get(fiber.HeaderAcceptLanguage))),
			Field:   rej.Field,
		}
	}
	switch {
	case errors.Is(err, domain.ErrActionInProgress):
		return fiber.StatusTooManyRequests, dto.ErrorResponse{Code: "ACTION_IN_PROGRESS", Message: "procesando, reintente en unos segundos"}
	case domain.IsRetryable(err):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "RETRY", Message: "conflicto de concurrencia, reintente"}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()}
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()}
	case errors.Is(err, domain.ErrFiscalSubmission):
		return fiber.StatusBadGateway, dto.ErrorResponse{Code: "FISCAL_SUBMISSION", Message: err.Error()}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()}
}

func writeError(c *fiber.Ctx, err error) error {
	status, body := errorStatus(c, err)
	return c.Status(status).JSON(body)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
