package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Valores por defecto de los parámetros de facturación.
const (
	DefaultInvoicePrefix = "FAC"
	DefaultTaxRate       = 20
)

// BillingSettings parámetros globales de facturación (una sola fila).
// TaxRate en porcentaje: 20 = 20 %.
type BillingSettings struct {
	TaxRate       decimal.Decimal
	InvoicePrefix string
	FooterText    string
	UpdatedBy     string
	UpdatedAt     time.Time
}

// DefaultBillingSettings devuelve los parámetros usados cuando aún no hay fila guardada.
func DefaultBillingSettings() BillingSettings {
	return BillingSettings{
		TaxRate:       decimal.NewFromInt(DefaultTaxRate),
		InvoicePrefix: DefaultInvoicePrefix,
	}
}
