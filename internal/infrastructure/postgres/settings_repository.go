package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/repository"
)

var _ repository.SettingsRepository = (*SettingsRepo)(nil)

// SettingsRepo parámetros de facturación en la fila única de billing_settings.
type SettingsRepo struct {
	q Querier
}

// NewSettingsRepository construye el adaptador.
func NewSettingsRepository(q Querier) *SettingsRepo {
	return &SettingsRepo{q: q}
}

// Get devuelve los parámetros guardados o (nil, nil) si no hay fila.
func (r *SettingsRepo) Get(ctx context.Context) (*entity.BillingSettings, error) {
	const query = `
		SELECT tax_rate, invoice_prefix, COALESCE(footer_text, ''), COALESCE(updated_by::text, ''), updated_at
		FROM billing_settings WHERE id = 1`
	var s entity.BillingSettings
	err := r.q.QueryRow(ctx, query).Scan(&s.TaxRate, &s.InvoicePrefix, &s.FooterText, &s.UpdatedBy, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// Save inserta o reemplaza la fila.
func (r *SettingsRepo) Save(ctx context.Context, s *entity.BillingSettings) error {
	const query = `
		INSERT INTO billing_settings (id, tax_rate, invoice_prefix, footer_text, updated_by, updated_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET tax_rate = EXCLUDED.tax_rate,
		    invoice_prefix = EXCLUDED.invoice_prefix,
		    footer_text = EXCLUDED.footer_text,
		    updated_by = EXCLUDED.updated_by,
		    updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		s.TaxRate, s.InvoicePrefix, nullIfEmpty(s.FooterText), nullIfEmpty(s.UpdatedBy), s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
