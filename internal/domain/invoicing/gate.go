package invoicing

import (
	"strings"
	"time"

	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Submission datos del borrador al momento de enviarlo.
type Submission struct {
	ClientID  string
	Items     []LineItem
	TaxRate   decimal.Decimal
	IssueDate time.Time
	DueDate   *time.Time
	Notes     string
}

// Payload factura lista para el gateway. Los totales se derivan de Items y TaxRate.
type Payload struct {
	ClientID  string
	Items     []LineItem
	Subtotal  decimal.Decimal
	TaxRate   decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
	IssueDate time.Time
	DueDate   *time.Time
	Notes     string
	Status    entity.InvoiceStatus
}

// ValidateSubmission decide si un borrador puede enviarse.
func ValidateSubmission(clientID string, items []LineItem) error {
	if strings.TrimSpace(clientID) == "" {
		return ErrClientRequired
	}
	if len(items) == 0 {
		return ErrNoItems
	}
	for _, it := range items {
		if it.Quantity < 1 || it.Quantity > MaxQuantity {
			return ErrInvalidQuantity
		}
		if !AmountInRange(it.UnitPrice) {
			return ErrAmountOutOfRange
		}
		if it.UnitPrice.IsNegative() {
			return ErrInvalidUnitPrice
		}
	}
	return nil
}

// BuildPayload valida y empaqueta el borrador con sus totales y estado "draft".
func BuildPayload(s Submission) (Payload, error) {
	if err := ValidateSubmission(s.ClientID, s.Items); err != nil {
		return Payload{}, err
	}
	if err := ValidateTaxRate(s.TaxRate); err != nil {
		return Payload{}, err
	}
	if s.IssueDate.IsZero() {
		return Payload{}, ErrIssueDateMissing
	}
	if s.DueDate != nil && s.DueDate.Before(s.IssueDate) {
		return Payload{}, ErrDueBeforeIssue
	}
	items := make([]LineItem, len(s.Items))
	for i, it := range s.Items {
		it.recompute()
		items[i] = it
	}
	t := CalculateTotals(items, s.TaxRate)
	return Payload{
		ClientID:  strings.TrimSpace(s.ClientID),
		Items:     items,
		Subtotal:  t.Subtotal,
		TaxRate:   t.TaxRate,
		TaxAmount: t.TaxAmount,
		Total:     t.Total,
		IssueDate: s.IssueDate,
		DueDate:   s.DueDate,
		Notes:     strings.TrimSpace(s.Notes),
		Status:    entity.StatusDraft,
	}, nil
}
