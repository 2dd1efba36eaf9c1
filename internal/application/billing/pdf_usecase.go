package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturation-api/internal/domain"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/repository"
)

// PDFUseCase genera la representación PDF de una factura.
type PDFUseCase struct {
	invoiceRepo repository.InvoiceRepository
	clientRepo  repository.ClientRepository
	settings    SettingsProvider
	generator   InvoicePDFGenerator
}

// NewPDFUseCase construye el caso de uso inyectando todas sus dependencias.
func NewPDFUseCase(
	invoiceRepo repository.InvoiceRepository,
	clientRepo repository.ClientRepository,
	settings SettingsProvider,
	generator InvoicePDFGenerator,
) *PDFUseCase {
	return &PDFUseCase{
		invoiceRepo: invoiceRepo,
		clientRepo:  clientRepo,
		settings:    settings,
		generator:   generator,
	}
}

// DownloadInvoicePDF carga factura, cliente y parámetros y genera el PDF.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si la factura no existe.
//   - domain.ErrForbidden        si la factura no pertenece al actor.
func (uc *PDFUseCase) DownloadInvoicePDF(ctx context.Context, actor entity.Actor, invoiceID string) (pdfBytes []byte, filename string, err error) {
	// ── 1. Cargar factura ─────────────────────────────────────────────────────
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, "", domain.ErrNotFound
	}
	if !actor.CanAccess(inv.UserID) {
		return nil, "", domain.ErrForbidden
	}

	// ── 2. Cliente y parámetros ───────────────────────────────────────────────
	client, err := uc.clientRepo.GetByID(ctx, inv.ClientID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener cliente: %w", err)
	}
	if client == nil {
		client = &entity.Client{ID: inv.ClientID, Name: "Client " + inv.ClientID}
	}
	cfg, err := uc.settings.Current(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: parámetros: %w", err)
	}

	// ── 3. Generar PDF ────────────────────────────────────────────────────────
	pdfBytes, err = uc.generator.GenerateInvoicePDF(ctx, inv, client, cfg)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdfBytes, inv.InvoiceNumber + ".pdf", nil
}
