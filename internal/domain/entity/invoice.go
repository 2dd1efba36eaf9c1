package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice representa la cabecera de una factura persistida.
// Subtotal, TaxAmount y Total se derivan de los ítems al crear o editar; nunca se editan a mano.
type Invoice struct {
	ID            string
	InvoiceNumber string // <prefijo>-<año>-<secuencia>, ej: FAC-2026-0007
	ClientID      string
	UserID        string // propietario
	Items         []InvoiceItem
	Subtotal      decimal.Decimal
	TaxRate       decimal.Decimal // porcentaje: 20 = 20 %
	TaxAmount     decimal.Decimal
	Total         decimal.Decimal
	Status        InvoiceStatus
	IssueDate     time.Time
	DueDate       *time.Time
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InvoiceListFilter criterios del listado de facturas.
// UserID vacío lista todas (solo administradores).
type InvoiceListFilter struct {
	UserID string
	Status InvoiceStatus // vacío = todos
	Limit  int
	Offset int
}

// InvoiceStatusSummary agregado por estado para el dashboard.
type InvoiceStatusSummary struct {
	Status InvoiceStatus
	Count  int
	Total  decimal.Decimal
}
