package dto

import "time"

// DraftUpdateRequest body para PUT /api/drafts/:id. Campos nil no se modifican.
type DraftUpdateRequest struct {
	ClientID  *string `json:"client_id"`
	TaxRate   *string `json:"tax_rate"` // texto tal cual lo escribe el usuario
	IssueDate *string `json:"issue_date"`
	DueDate   *string `json:"due_date"`
	Notes     *string `json:"notes"`
}

// DraftAddItemRequest body para POST /api/drafts/:id/items. ProductID vacío = primer producto.
type DraftAddItemRequest struct {
	ProductID string `json:"product_id"`
}

// DraftItemUpdateRequest body para PATCH /api/drafts/:id/items/:index.
// Field: productId | quantity | unitPrice; Value es el texto ingresado.
type DraftItemUpdateRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// DraftResponse estado completo de un borrador con totales derivados.
type DraftResponse struct {
	ID        string              `json:"id"`
	ClientID  string              `json:"client_id"`
	TaxRate   string              `json:"tax_rate"`
	IssueDate string              `json:"issue_date"`
	DueDate   string              `json:"due_date,omitempty"`
	Notes     string              `json:"notes,omitempty"`
	Items     []DraftItemResponse `json:"items"`
	Totals    DraftTotalsResponse `json:"totals"`
	Clients   []ClientRef         `json:"clients"`
	Products  []DraftProductRef   `json:"products"`
	LoadError string              `json:"load_error,omitempty"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// DraftItemResponse línea del borrador con importes formateados a dos decimales.
type DraftItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

// DraftTotalsResponse totales formateados.
type DraftTotalsResponse struct {
	Subtotal  string `json:"subtotal"`
	TaxRate   string `json:"tax_rate"`
	TaxAmount string `json:"tax_amount"`
	Total     string `json:"total"`
}

// DraftProductRef producto seleccionable en el borrador.
type DraftProductRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}
