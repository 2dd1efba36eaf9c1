package http

import (
	"github.com/gofiber/fiber/v2"
	appanalytics "github.com/jhoicas/Facturation-api/internal/application/analytics"
)

// DashboardHandler maneja los endpoints del tablero.
type DashboardHandler struct {
	uc *appanalytics.DashboardUseCase
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc *appanalytics.DashboardUseCase) *DashboardHandler {
	return &DashboardHandler{uc: uc}
}

// GetSummary devuelve conteos y montos por estado.
// GET /api/dashboard/summary
//
// Respuesta: DashboardSummaryDTO (clients, products, invoices, revenue,
// outstanding, by_status[draft, sent, paid]).
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	summary, err := h.uc.GetSummary(c.UserContext(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}
