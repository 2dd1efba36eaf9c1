// Package analytics contiene el resumen del dashboard de facturación.
package analytics

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DashboardUseCase genera el resumen de clientes, productos y facturas por estado.
// Solo lectura; delega todo en los repositorios.
type DashboardUseCase struct {
	invoiceRepo repository.InvoiceRepository
	clientRepo  repository.ClientRepository
	productRepo repository.ProductRepository
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(
	invoiceRepo repository.InvoiceRepository,
	clientRepo repository.ClientRepository,
	productRepo repository.ProductRepository,
) *DashboardUseCase {
	return &DashboardUseCase{invoiceRepo: invoiceRepo, clientRepo: clientRepo, productRepo: productRepo}
}

// GetSummary construye el DashboardSummaryDTO del actor (administradores: global).
//
// Tres consultas en paralelo:
//  1. SummaryByStatus → cantidades y montos por estado
//  2. Count clientes
//  3. Count productos
func (uc *DashboardUseCase) GetSummary(ctx context.Context, actor entity.Actor) (*dto.DashboardSummaryDTO, error) {
	scope := actor.Scope()

	var (
		summary  []entity.InvoiceStatusSummary
		clients  int
		products int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = uc.invoiceRepo.SummaryByStatus(gctx, scope)
		if err != nil {
			return fmt.Errorf("dashboard: facturas por estado: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		clients, err = uc.clientRepo.Count(gctx, scope)
		if err != nil {
			return fmt.Errorf("dashboard: clientes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		products, err = uc.productRepo.Count(gctx, scope)
		if err != nil {
			return fmt.Errorf("dashboard: productos: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// ── Ensamblar: siempre los tres estados, en orden del ciclo ───────────────
	byStatus := make(map[entity.InvoiceStatus]entity.InvoiceStatusSummary, len(summary))
	for _, s := range summary {
		byStatus[s.Status] = s
	}
	out := &dto.DashboardSummaryDTO{
		Clients:  clients,
		Products: products,
		Revenue:  decimal.Zero,
		Pending:  decimal.Zero,
		ByStatus: make([]dto.StatusSummaryDTO, 0, 3),
	}
	for _, st := range []entity.InvoiceStatus{entity.StatusDraft, entity.StatusSent, entity.StatusPaid} {
		s := byStatus[st]
		total := s.Total
		if total.IsZero() {
			total = decimal.Zero
		}
		out.Invoices += s.Count
		out.ByStatus = append(out.ByStatus, dto.StatusSummaryDTO{
			Status: string(st),
			Label:  st.Label(),
			Count:  s.Count,
			Total:  total,
		})
		switch st {
		case entity.StatusPaid:
			out.Revenue = total
		case entity.StatusSent:
			out.Pending = total
		}
	}
	return out, nil
}
