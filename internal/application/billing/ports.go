package billing

import (
	"context"

	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/invoicing"
	"github.com/jhoicas/Facturation-api/internal/domain/repository"
)

// ProductCatalog lista de solo lectura de productos facturables del actor.
type ProductCatalog interface {
	GetAll(ctx context.Context, actor entity.Actor) ([]invoicing.Product, error)
}

// ClientDirectory lista de clientes seleccionables por el actor.
type ClientDirectory interface {
	GetAll(ctx context.Context, actor entity.Actor) ([]entity.Client, error)
}

// InvoiceGateway persiste una factura terminada. Se invoca una sola vez por envío, sin reintentos.
type InvoiceGateway interface {
	Create(ctx context.Context, actor entity.Actor, payload invoicing.Payload) (*dto.InvoiceResponse, error)
}

// SettingsProvider parámetros de facturación vigentes (tasa por defecto, prefijo, pie de página).
type SettingsProvider interface {
	Current(ctx context.Context) (entity.BillingSettings, error)
}

// InvoiceTxRunner ejecuta fn dentro de una transacción con un repositorio de facturas atado a ella.
type InvoiceTxRunner interface {
	RunInvoice(ctx context.Context, fn func(invoiceRepo repository.InvoiceRepository) error) error
}

// InvoicePDFGenerator genera la representación PDF de una factura.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, invoice *entity.Invoice, client *entity.Client, settings entity.BillingSettings) ([]byte, error)
}
