package entity

import "strings"

// InvoiceStatus estado de cobro de una factura.
type InvoiceStatus string

// Estados de una factura.
const (
	StatusDraft InvoiceStatus = "draft"
	StatusSent  InvoiceStatus = "sent"
	StatusPaid  InvoiceStatus = "paid"
)

// Transiciones permitidas. El ciclo normal es draft → sent → paid → draft;
// además se admite marcar pagada una factura en borrador y devolver a borrador una enviada.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	StatusDraft: {StatusSent, StatusPaid},
	StatusSent:  {StatusPaid, StatusDraft},
	StatusPaid:  {StatusDraft},
}

// ParseInvoiceStatus normaliza s y valida que sea un estado conocido.
func ParseInvoiceStatus(s string) (InvoiceStatus, bool) {
	st := InvoiceStatus(strings.ToLower(strings.TrimSpace(s)))
	_, ok := invoiceTransitions[st]
	return st, ok
}

// NextStatus devuelve el siguiente estado del ciclo draft → sent → paid → draft.
func NextStatus(s InvoiceStatus) InvoiceStatus {
	switch s {
	case StatusDraft:
		return StatusSent
	case StatusSent:
		return StatusPaid
	default:
		return StatusDraft
	}
}

// CanTransition indica si se puede pasar de from a to. Las transiciones a sí mismo no son válidas.
func CanTransition(from, to InvoiceStatus) bool {
	for _, next := range invoiceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Editable indica si la factura admite cambios en ítems, fechas o notas.
func (s InvoiceStatus) Editable() bool {
	return s == StatusDraft
}

// Label devuelve la etiqueta visible en exportaciones y PDF.
func (s InvoiceStatus) Label() string {
	switch s {
	case StatusPaid:
		return "Payée"
	case StatusSent:
		return "Envoyée"
	default:
		return "Brouillon"
	}
}
