package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest body para POST /api/invoices.
// Los totales enviados por el cliente se ignoran: el servidor los recalcula desde los ítems.
type CreateInvoiceRequest struct {
	ClientID  string               `json:"client_id"`
	Items     []InvoiceItemRequest `json:"items"`
	TaxRate   *decimal.Decimal     `json:"tax_rate"` // nil = tasa por defecto de los parámetros
	IssueDate string               `json:"issue_date"`
	DueDate   string               `json:"due_date,omitempty"`
	Notes     string               `json:"notes,omitempty"`
}

// UpdateInvoiceRequest body para PUT /api/invoices/:id (solo facturas en borrador).
type UpdateInvoiceRequest struct {
	ClientID  *string              `json:"client_id"`
	Items     []InvoiceItemRequest `json:"items"` // nil = sin cambios
	TaxRate   *decimal.Decimal     `json:"tax_rate"`
	IssueDate *string              `json:"issue_date"`
	DueDate   *string              `json:"due_date"` // "" borra el vencimiento
	Notes     *string              `json:"notes"`
}

// InvoiceItemRequest línea de factura. UnitPrice nil toma el precio del catálogo.
type InvoiceItemRequest struct {
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// UpdateStatusRequest body para PATCH /api/invoices/:id/status.
// Status vacío avanza al siguiente estado del ciclo.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// InvoiceListQuery filtros de GET /api/invoices.
type InvoiceListQuery struct {
	Search string
	Status string
	PageRequest
}

// InvoiceResponse factura con detalle.
type InvoiceResponse struct {
	ID            string                `json:"id"`
	InvoiceNumber string                `json:"invoice_number"`
	ClientID      string                `json:"client_id"`
	Client        *ClientRef            `json:"client,omitempty"`
	UserID        string                `json:"user_id"`
	Items         []InvoiceItemResponse `json:"items"`
	Subtotal      decimal.Decimal       `json:"subtotal"`
	TaxRate       decimal.Decimal       `json:"tax_rate"`
	TaxAmount     decimal.Decimal       `json:"tax_amount"`
	Total         decimal.Decimal       `json:"total"`
	Status        string                `json:"status"`
	IssueDate     string                `json:"issue_date"`
	DueDate       string                `json:"due_date,omitempty"`
	Notes         string                `json:"notes,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// InvoiceItemResponse línea de detalle en la respuesta.
type InvoiceItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// InvoiceListResponse lista paginada de facturas (sin líneas).
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
