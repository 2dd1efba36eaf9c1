package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/Facturation-api/internal/application/draft"
	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/domain"
	"github.com/jhoicas/Facturation-api/internal/domain/invoicing"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// El orden importa: los errores más específicos primero.
var errorTable = []errorMapping{
	{invoicing.ErrEmptyCatalog, fiber.StatusUnprocessableEntity, "EMPTY_CATALOG"},
	{invoicing.ErrItemOutOfRange, fiber.StatusBadRequest, "ITEM_OUT_OF_RANGE"},
	{invoicing.ErrUnknownField, fiber.StatusBadRequest, "VALIDATION"},
	{invoicing.ErrProductNotFound, fiber.StatusBadRequest, "VALIDATION"},
	{invoicing.ErrClientRequired, fiber.StatusBadRequest, "VALIDATION"},
	{invoicing.ErrNoItems, fiber.StatusBadRequest, "VALIDATION"},
	{invoicing.ErrInvalidQuantity, fiber.StatusBadRequest, "VALIDATION"},
	{invoicing.ErrInvalidUnitPrice, fiber.StatusBadRequest, "VALIDATION"},
	{invoicing.ErrAmountOutOfRange, fiber.StatusBadRequest, "VALIDATION"},
	{invoicing.ErrInvalidTaxRate, fiber.StatusBadRequest, "VALIDATION"},
	{invoicing.ErrIssueDateMissing, fiber.StatusBadRequest, "VALIDATION"},
	{invoicing.ErrDueBeforeIssue, fiber.StatusBadRequest, "VALIDATION"},
	{draft.ErrSessionClosed, fiber.StatusGone, "DRAFT_CLOSED"},
	{draft.ErrSubmissionInProgress, fiber.StatusConflict, "SUBMISSION_IN_PROGRESS"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrUserNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrEmailAlreadyExists, fiber.StatusConflict, "EMAIL_EXISTS"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrInactiveUser, fiber.StatusForbidden, "INACTIVE_USER"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrGateway, fiber.StatusBadGateway, "GATEWAY_ERROR"},
}

// respondError traduce errores de dominio a status y código HTTP.
// Los errores no mapeados se registran y se devuelven como INTERNAL sin detalle.
func respondError(c *fiber.Ctx, err error) error {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error no controlado")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno del servidor"})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
