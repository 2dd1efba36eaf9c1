// Package pdf genera el PDF de una factura.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: FACTURE + estado      │  N° Factura + fechas        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLIENTE: Nombre + email / tel / dirección                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Désignation | Qté | P.U. HT | Total HT               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Total HT / TVA (tasa) / Total TTC                  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  NOTAS + pie de página de los parámetros                     │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturation-api/internal/application/billing"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/invoicing"
)

var _ billing.InvoicePDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorHeader  = &props.Color{Red: 230, Green: 236, Blue: 243}
)

const dateLayout = "02/01/2006"

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	author string
}

// NewMarotoPDFGenerator construye el generador. author se graba en los metadatos del PDF.
func NewMarotoPDFGenerator(author string) *MarotoPDFGenerator {
	return &MarotoPDFGenerator{author: author}
}

// GenerateInvoicePDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(
	_ context.Context,
	invoice *entity.Invoice,
	client *entity.Client,
	settings entity.BillingSettings,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).WithRightMargin(12).
		WithTopMargin(12).WithBottomMargin(12).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Facture "+invoice.InvoiceNumber, true).
		WithAuthor(g.author, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(invoice))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(clientRow(client))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(itemRows(invoice.Items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(invoice))

	if rows := footerRows(invoice.Notes, settings.FooterText); len(rows) > 0 {
		m.AddRows(line.NewRow(4))
		m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
		m.AddRows(rows...)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: título y estado (izq), número y fechas (der).
func headerRow(invoice *entity.Invoice) core.Row {
	dates := "Date : " + invoice.IssueDate.Format(dateLayout)
	if invoice.DueDate != nil {
		dates += "   Échéance : " + invoice.DueDate.Format(dateLayout)
	}
	return row.New(20).Add(
		col.New(6).Add(
			text.New("FACTURE", props.Text{
				Style: fontstyle.Bold, Size: 16, Color: colorPrimary, Top: 1,
			}),
			text.New(invoice.Status.Label(), props.Text{
				Size: 9, Top: 11, Color: colorGray,
			}),
		),
		col.New(6).Add(
			text.New(invoice.InvoiceNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 2,
			}),
			text.New(dates, props.Text{
				Size: 8, Align: align.Right, Top: 10, Color: colorGray,
			}),
		),
	)
}

// clientRow: datos del cliente facturado.
func clientRow(client *entity.Client) core.Row {
	contact := make([]string, 0, 3)
	for _, s := range []string{client.Email, client.Phone, client.Address} {
		if s != "" {
			contact = append(contact, s)
		}
	}
	return row.New(16).Add(
		col.New(12).Add(
			text.New("FACTURÉ À", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(client.Name, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(nonEmpty(strings.Join(contact, "   |   "), "—"), props.Text{
				Size: 8, Top: 12, Color: colorGray,
			}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Désignation", 6, align.Left),
		h("Qté", 1, align.Center),
		h("P.U. HT", 2, align.Right),
		h("Total HT", 3, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorHeader})
}

// itemRows: una fila por línea, en el orden de la factura.
func itemRows(items []entity.InvoiceItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		result = append(result, row.New(7).Add(
			col.New(6).Add(text.New(it.ProductName, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(1).Add(text.New(fmt.Sprint(it.Quantity), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(formatMoney(it.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(3).Add(text.New(formatMoney(it.Total), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(invoice *entity.Invoice) core.Row {
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}
	grand := func(s string, top float64) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: top,
		})
	}
	return row.New(24).Add(
		col.New(6),
		col.New(3).Add(
			label("Total HT :", 2),
			label(fmt.Sprintf("TVA (%s %%) :", invoice.TaxRate.String()), 8),
			grand("Total TTC :", 15),
		),
		col.New(3).Add(
			value(formatMoney(invoice.Subtotal), 2),
			value(formatMoney(invoice.TaxAmount), 8),
			grand(formatMoney(invoice.Total), 15),
		),
	)
}

// footerRows: notas de la factura y texto de pie configurado.
func footerRows(notes, footer string) []core.Row {
	var rows []core.Row
	if notes != "" {
		rows = append(rows,
			row.New(6).Add(col.New(12).Add(text.New("Notes", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}))),
			row.New(10).Add(col.New(12).Add(text.New(notes, props.Text{Size: 8, Top: 1}))),
		)
	}
	if footer != "" {
		rows = append(rows, row.New(10).Add(col.New(12).Add(text.New(footer, props.Text{
			Size: 7, Align: align.Center, Color: colorGray, Top: 3,
		}))))
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney formatea con dos decimales, coma decimal y espacios de miles.
// Ej: 1234567.5 → "1 234 567,50 €"
func formatMoney(d decimal.Decimal) string {
	s := invoicing.FormatAmount(d)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, c)
	}
	return sign + string(buf) + "," + frac + " €"
}
