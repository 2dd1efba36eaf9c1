package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/Facturation-api/internal/domain"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

const invoiceColumns = `id, invoice_number, client_id, user_id, subtotal, tax_rate, tax_amount, total,
	status, issue_date, due_date, notes, created_at, updated_at`

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
// Cabecera y líneas se escriben en un mismo batch, que pgx ejecuta como transacción implícita.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la cabecera y sus líneas.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	b := &pgx.Batch{}
	b.Queue(`
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		inv.ID, inv.InvoiceNumber, inv.ClientID, inv.UserID,
		inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total,
		inv.Status, inv.IssueDate, inv.DueDate, nullIfEmpty(inv.Notes),
		inv.CreatedAt, inv.UpdatedAt,
	)
	queueItems(b, inv)
	if _, err := r.exec(ctx, b); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: número de factura %s", domain.ErrDuplicate, inv.InvoiceNumber)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// Update reescribe la cabecera y reemplaza todas las líneas.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	b := &pgx.Batch{}
	b.Queue(`
		UPDATE invoices
		SET client_id  = $2,
		    subtotal   = $3,
		    tax_rate   = $4,
		    tax_amount = $5,
		    total      = $6,
		    issue_date = $7,
		    due_date   = $8,
		    notes      = $9,
		    updated_at = $10
		WHERE id = $1`,
		inv.ID, inv.ClientID, inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total,
		inv.IssueDate, inv.DueDate, nullIfEmpty(inv.Notes), inv.UpdatedAt,
	)
	b.Queue(`DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID)
	queueItems(b, inv)
	tag, err := r.exec(ctx, b)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func queueItems(b *pgx.Batch, inv *entity.Invoice) {
	for i := range inv.Items {
		it := &inv.Items[i]
		it.InvoiceID = inv.ID
		it.Position = i
		b.Queue(`
			INSERT INTO invoice_items (invoice_id, position, product_id, product_name, quantity, unit_price, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			inv.ID, i, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.Total,
		)
	}
}

// exec ejecuta el batch completo y devuelve el resultado de la primera sentencia (la cabecera).
func (r *InvoiceRepo) exec(ctx context.Context, b *pgx.Batch) (pgconn.CommandTag, error) {
	br := r.q.SendBatch(ctx, b)
	var first pgconn.CommandTag
	for i := 0; i < b.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return first, err
		}
		if i == 0 {
			first = tag
		}
	}
	return first, br.Close()
}

// UpdateStatus cambia solo el estado.
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, id string, status entity.InvoiceStatus, updatedAt time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE invoices SET status = $2, updated_at = $3 WHERE id = $1`, id, status, updatedAt)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene una factura completa con sus líneas en orden.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	rows, err := r.q.Query(ctx, `
		SELECT invoice_id, position, product_id, product_name, quantity, unit_price, total
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.InvoiceItem
		if err := rows.Scan(&it.InvoiceID, &it.Position, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Total); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		inv.Items = append(inv.Items, it)
	}
	return inv, rows.Err()
}

// List devuelve cabeceras ordenadas por fecha de emisión descendente. Limit 0 = sin límite.
func (r *InvoiceRepo) List(ctx context.Context, f entity.InvoiceListFilter) ([]*entity.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE ($1::text = '' OR user_id::text = $1)
		  AND ($2::text = '' OR status = $2)
		ORDER BY issue_date DESC, invoice_number DESC
		LIMIT NULLIF($3::int, 0) OFFSET $4`
	rows, err := r.q.Query(ctx, query, f.UserID, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// Delete elimina la factura (las líneas en cascada).
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// NextSequence reserva el siguiente consecutivo de (prefix, year). La fila queda bloqueada
// hasta el fin de la transacción, así que dos facturas simultáneas no comparten número.
func (r *InvoiceRepo) NextSequence(ctx context.Context, prefix string, year int) (int, error) {
	const query = `
		INSERT INTO invoice_sequences (prefix, year, last) VALUES ($1, $2, 1)
		ON CONFLICT (prefix, year) DO UPDATE SET last = invoice_sequences.last + 1
		RETURNING last`
	var seq int
	if err := r.q.QueryRow(ctx, query, prefix, year).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next invoice sequence: %w", err)
	}
	return seq, nil
}

// CountByClient cuenta las facturas de un cliente.
func (r *InvoiceRepo) CountByClient(ctx context.Context, clientID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE client_id = $1`, clientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count invoices by client: %w", err)
	}
	return n, nil
}

// SummaryByStatus agrega cantidad y total por estado. userID vacío agrega todo.
func (r *InvoiceRepo) SummaryByStatus(ctx context.Context, userID string) ([]entity.InvoiceStatusSummary, error) {
	const query = `
		SELECT status, COUNT(*), COALESCE(SUM(total), 0)
		FROM invoices
		WHERE ($1::text = '' OR user_id::text = $1)
		GROUP BY status`
	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("summary invoices: %w", err)
	}
	defer rows.Close()
	var out []entity.InvoiceStatusSummary
	for rows.Next() {
		var s entity.InvoiceStatusSummary
		var status string
		var total decimal.Decimal
		if err := rows.Scan(&status, &s.Count, &total); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Status = entity.InvoiceStatus(status)
		s.Total = total
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var status string
	var notes *string
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.ClientID, &inv.UserID,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.Total,
		&status, &inv.IssueDate, &inv.DueDate, &notes,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Status = entity.InvoiceStatus(status)
	inv.Notes = derefStr(notes)
	return &inv, nil
}
