package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Facturation-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice y sus líneas.
type InvoiceRepository interface {
	// Create guarda cabecera y líneas.
	Create(ctx context.Context, invoice *entity.Invoice) error
	// GetByID devuelve la factura con sus líneas, o (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// List devuelve cabeceras (sin líneas) ordenadas por fecha de emisión descendente.
	List(ctx context.Context, filter entity.InvoiceListFilter) ([]*entity.Invoice, error)
	// Update reescribe cabecera y reemplaza todas las líneas.
	Update(ctx context.Context, invoice *entity.Invoice) error
	UpdateStatus(ctx context.Context, id string, status entity.InvoiceStatus, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	// NextSequence reserva el siguiente consecutivo para prefijo y año.
	NextSequence(ctx context.Context, prefix string, year int) (int, error)
	CountByClient(ctx context.Context, clientID string) (int, error)
	// SummaryByStatus agrega cantidad y total por estado; userID vacío agrega todo.
	SummaryByStatus(ctx context.Context, userID string) ([]entity.InvoiceStatusSummary, error)
}
