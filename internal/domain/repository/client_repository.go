package repository

import (
	"context"

	"github.com/jhoicas/Facturation-api/internal/domain/entity"
)

// ClientRepository define el puerto de persistencia para Client.
// GetByID devuelve (nil, nil) si no existe. userID vacío en List lista todos (administración).
type ClientRepository interface {
	Create(ctx context.Context, client *entity.Client) error
	GetByID(ctx context.Context, id string) (*entity.Client, error)
	List(ctx context.Context, userID string, limit, offset int) ([]*entity.Client, error)
	Update(ctx context.Context, client *entity.Client) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, userID string) (int, error)
}
