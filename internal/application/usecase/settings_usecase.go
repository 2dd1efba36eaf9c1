package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Facturation-api/internal/application/billing"
	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/domain"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/invoicing"
	"github.com/jhoicas/Facturation-api/internal/domain/repository"
)

var _ billing.SettingsProvider = (*SettingsUseCase)(nil)

// SettingsUseCase lectura y edición de los parámetros de facturación.
type SettingsUseCase struct {
	repo     repository.SettingsRepository
	defaults entity.BillingSettings
}

// NewSettingsUseCase construye el caso de uso. defaults se usa mientras no haya fila guardada.
func NewSettingsUseCase(repo repository.SettingsRepository, defaults entity.BillingSettings) *SettingsUseCase {
	if defaults.InvoicePrefix == "" {
		defaults.InvoicePrefix = entity.DefaultInvoicePrefix
	}
	return &SettingsUseCase{repo: repo, defaults: defaults}
}

// Current implementa billing.SettingsProvider.
func (uc *SettingsUseCase) Current(ctx context.Context) (entity.BillingSettings, error) {
	s, err := uc.repo.Get(ctx)
	if err != nil {
		return entity.BillingSettings{}, err
	}
	if s == nil {
		return uc.defaults, nil
	}
	return *s, nil
}

// Get devuelve los parámetros vigentes.
func (uc *SettingsUseCase) Get(ctx context.Context) (*dto.SettingsResponse, error) {
	s, err := uc.Current(ctx)
	if err != nil {
		return nil, err
	}
	return toSettingsResponse(s), nil
}

// Update modifica los parámetros. Tasa entre 0 y 100, prefijo no vacío y sin espacios.
func (uc *SettingsUseCase) Update(ctx context.Context, actor entity.Actor, in dto.SettingsRequest) (*dto.SettingsResponse, error) {
	s, err := uc.Current(ctx)
	if err != nil {
		return nil, err
	}
	if in.TaxRate != nil {
		if err := invoicing.ValidateTaxRate(*in.TaxRate); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		s.TaxRate = *in.TaxRate
	}
	if in.InvoicePrefix != nil {
		prefix := strings.TrimSpace(*in.InvoicePrefix)
		if prefix == "" || strings.ContainsAny(prefix, " \t") || len(prefix) > 10 {
			return nil, fmt.Errorf("%w: prefijo de factura inválido", domain.ErrInvalidInput)
		}
		s.InvoicePrefix = strings.ToUpper(prefix)
	}
	if in.FooterText != nil {
		s.FooterText = strings.TrimSpace(*in.FooterText)
	}
	s.UpdatedBy = actor.UserID
	s.UpdatedAt = time.Now()
	if err := uc.repo.Save(ctx, &s); err != nil {
		return nil, err
	}
	return toSettingsResponse(s), nil
}

func toSettingsResponse(s entity.BillingSettings) *dto.SettingsResponse {
	resp := &dto.SettingsResponse{
		TaxRate:       s.TaxRate,
		InvoicePrefix: s.InvoicePrefix,
		FooterText:    s.FooterText,
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}
