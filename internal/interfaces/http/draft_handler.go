package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Facturation-api/internal/application/draft"
	"github.com/jhoicas/Facturation-api/internal/application/dto"
)

// DraftHandler expone las sesiones de edición de facturas en curso.
type DraftHandler struct {
	drafts *draft.Manager
}

// NewDraftHandler construye el handler.
func NewDraftHandler(drafts *draft.Manager) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

// Open godoc
// @Summary      Abrir borrador
// @Description  Crea una sesión de edición y carga clientes y productos del usuario.
// @Tags         drafts
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  dto.DraftResponse
// @Router       /api/drafts [post]
func (h *DraftHandler) Open(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	s, err := h.drafts.Open(c.UserContext(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(s.View())
}

// Get GET /api/drafts/:id
func (h *DraftHandler) Get(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	s, err := h.drafts.Get(actor, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.View())
}

// Reload vuelve a cargar clientes y productos tras un error de carga.
// POST /api/drafts/:id/reload
func (h *DraftHandler) Reload(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	s, err := h.drafts.Reload(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.View())
}

// Update godoc
// @Summary      Editar cabecera del borrador
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                  true  "ID del borrador"
// @Param        body  body  dto.DraftUpdateRequest  true  "campos a modificar"
// @Success      200  {object}  dto.DraftResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/drafts/{id} [put]
func (h *DraftHandler) Update(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	var in dto.DraftUpdateRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	s, err := h.drafts.Get(actor, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := s.Update(in); err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.View())
}

// AddItem agrega una línea; sin product_id toma el primer producto del catálogo.
// POST /api/drafts/:id/items
func (h *DraftHandler) AddItem(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	var in dto.DraftAddItemRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
	}
	s, err := h.drafts.Get(actor, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if _, err := s.AddItem(in.ProductID); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(s.View())
}

// UpdateItem PATCH /api/drafts/:id/items/:index
func (h *DraftHandler) UpdateItem(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	index, err := c.ParamsInt("index")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "índice inválido"})
	}
	var in dto.DraftItemUpdateRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	s, err := h.drafts.Get(actor, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if _, err := s.UpdateItem(index, in.Field, in.Value); err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.View())
}

// RemoveItem DELETE /api/drafts/:id/items/:index
func (h *DraftHandler) RemoveItem(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	index, err := c.ParamsInt("index")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "índice inválido"})
	}
	s, err := h.drafts.Get(actor, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if err := s.RemoveItem(index); err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.View())
}

// Submit godoc
// @Summary      Emitir factura desde el borrador
// @Description  Valida el borrador y lo envía una sola vez. Si falla, el borrador sigue abierto.
// @Tags         drafts
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "ID del borrador"
// @Success      201  {object}  dto.InvoiceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/drafts/{id}/submit [post]
func (h *DraftHandler) Submit(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	out, err := h.drafts.Submit(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Discard cierra el borrador sin guardar.
// DELETE /api/drafts/:id
func (h *DraftHandler) Discard(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	if err := h.drafts.Discard(actor, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "borrador descartado"})
}
