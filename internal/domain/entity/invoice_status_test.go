package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStatus_Ciclo(t *testing.T) {
	assert.Equal(t, StatusSent, NextStatus(StatusDraft))
	assert.Equal(t, StatusPaid, NextStatus(StatusSent))
	assert.Equal(t, StatusDraft, NextStatus(StatusPaid))
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to InvoiceStatus
		ok       bool
	}{
		{StatusDraft, StatusSent, true},
		{StatusDraft, StatusPaid, true},
		{StatusSent, StatusPaid, true},
		{StatusSent, StatusDraft, true},
		{StatusPaid, StatusDraft, true},
		{StatusPaid, StatusSent, false},
		{StatusDraft, StatusDraft, false},
		{StatusPaid, StatusPaid, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanTransition(c.from, c.to), "%s → %s", c.from, c.to)
	}
}

func TestCanTransition_SiempreIncluyeElSiguienteDelCiclo(t *testing.T) {
	for _, s := range []InvoiceStatus{StatusDraft, StatusSent, StatusPaid} {
		assert.True(t, CanTransition(s, NextStatus(s)), "desde %s", s)
	}
}

func TestParseInvoiceStatus(t *testing.T) {
	st, ok := ParseInvoiceStatus(" Paid ")
	assert.True(t, ok)
	assert.Equal(t, StatusPaid, st)

	_, ok = ParseInvoiceStatus("cancelled")
	assert.False(t, ok)
}

func TestInvoiceStatus_Label(t *testing.T) {
	assert.Equal(t, "Payée", StatusPaid.Label())
	assert.Equal(t, "Envoyée", StatusSent.Label())
	assert.Equal(t, "Brouillon", StatusDraft.Label())
	assert.True(t, StatusDraft.Editable())
	assert.False(t, StatusSent.Editable())
}
