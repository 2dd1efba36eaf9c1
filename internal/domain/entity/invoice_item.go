package entity

import "github.com/shopspring/decimal"

// InvoiceItem representa una línea de una factura persistida.
// ProductName es una copia del nombre al momento de facturar.
type InvoiceItem struct {
	ID          string
	InvoiceID   string
	Position    int
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}
