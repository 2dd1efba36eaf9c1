package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettingsRequest body para PUT /api/settings. Campos nil no se modifican.
type SettingsRequest struct {
	TaxRate       *decimal.Decimal `json:"tax_rate"`
	InvoicePrefix *string          `json:"invoice_prefix"`
	FooterText    *string          `json:"footer_text"`
}

// SettingsResponse parámetros de facturación vigentes.
type SettingsResponse struct {
	TaxRate       decimal.Decimal `json:"tax_rate"`
	InvoicePrefix string          `json:"invoice_prefix"`
	FooterText    string          `json:"footer_text"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty"`
}
