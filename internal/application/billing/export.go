package billing

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/invoicing"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encodings soportados por la exportación CSV.
const (
	ExportUTF8    = "utf-8"
	ExportWindows = "windows-1252"
)

var exportHeader = []string{"Numéro", "Client", "Date", "Montant HT", "TVA", "Montant TTC", "Statut"}

// ExportCSV exporta las facturas que cumplen los filtros de q (sin paginar).
// encoding windows-1252 produce un archivo que Excel abre sin romper los acentos.
func (uc *InvoiceUseCase) ExportCSV(ctx context.Context, actor entity.Actor, q dto.InvoiceListQuery, encoding string) ([]byte, error) {
	list, clients, err := uc.search(ctx, actor, q)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	var out io.Writer = &buf
	var enc *transform.Writer
	if encoding == ExportWindows {
		enc = transform.NewWriter(&buf, charmap.Windows1252.NewEncoder())
		out = enc
	}
	w := csv.NewWriter(out)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, inv := range list {
		name := ""
		if c := clients[inv.ClientID]; c != nil {
			name = c.Name
		}
		row := []string{
			inv.InvoiceNumber,
			name,
			inv.IssueDate.Format(DateLayout),
			invoicing.FormatAmount(inv.Subtotal),
			invoicing.FormatAmount(inv.TaxAmount),
			invoicing.FormatAmount(inv.Total),
			inv.Status.Label(),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("export: codificación: %w", err)
		}
	}
	return buf.Bytes(), nil
}
