package repository

import (
	"context"

	"github.com/jhoicas/Facturation-api/internal/domain/entity"
)

// SettingsRepository persiste los parámetros de facturación (fila única).
// Get devuelve (nil, nil) si aún no se han guardado.
type SettingsRepository interface {
	Get(ctx context.Context) (*entity.BillingSettings, error)
	Save(ctx context.Context, settings *entity.BillingSettings) error
}
