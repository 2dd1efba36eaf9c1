package dto

import "github.com/shopspring/decimal"

// DashboardSummaryDTO respuesta de GET /api/dashboard/summary.
// Para un administrador agrega todas las cuentas; para un usuario, solo las suyas.
type DashboardSummaryDTO struct {
	Clients  int                `json:"clients"`
	Products int                `json:"products"`
	Invoices int                `json:"invoices"`
	Revenue  decimal.Decimal    `json:"revenue"`     // total de facturas pagadas
	Pending  decimal.Decimal    `json:"outstanding"` // total de facturas enviadas sin pagar
	ByStatus []StatusSummaryDTO `json:"by_status"`
}

// StatusSummaryDTO cantidad y monto por estado.
type StatusSummaryDTO struct {
	Status string          `json:"status"`
	Label  string          `json:"label"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}
