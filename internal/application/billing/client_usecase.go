package billing

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/domain"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/repository"
)

var _ ClientDirectory = (*ClientUseCase)(nil)

// directoryLimit máximo de clientes cargados en un selector de borrador.
const directoryLimit = 500

// ClientUseCase casos de uso para clientes.
type ClientUseCase struct {
	repo        repository.ClientRepository
	invoiceRepo repository.InvoiceRepository
}

// NewClientUseCase construye el caso de uso.
func NewClientUseCase(repo repository.ClientRepository, invoiceRepo repository.InvoiceRepository) *ClientUseCase {
	return &ClientUseCase{repo: repo, invoiceRepo: invoiceRepo}
}

// Create crea un nuevo cliente del actor.
func (uc *ClientUseCase) Create(ctx context.Context, actor entity.Actor, in dto.ClientRequest) (*dto.ClientResponse, error) {
	if err := validateClient(in); err != nil {
		return nil, err
	}
	now := time.Now()
	client := &entity.Client{
		ID:        uuid.New().String(),
		UserID:    actor.UserID,
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, client); err != nil {
		return nil, err
	}
	return toClientResponse(client), nil
}

// GetByID obtiene un cliente accesible por el actor.
func (uc *ClientUseCase) GetByID(ctx context.Context, actor entity.Actor, id string) (*dto.ClientResponse, error) {
	client, err := uc.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toClientResponse(client), nil
}

// List lista clientes del actor (todos si es administrador).
func (uc *ClientUseCase) List(ctx context.Context, actor entity.Actor, limit, offset int) ([]*dto.ClientResponse, error) {
	page := dto.PageRequest{Limit: limit, Offset: offset}
	page.DefaultPage()
	list, err := uc.repo.List(ctx, actor.Scope(), page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.ClientResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toClientResponse(c))
	}
	return out, nil
}

// GetAll implementa ClientDirectory: los clientes propios del actor para el selector del borrador.
func (uc *ClientUseCase) GetAll(ctx context.Context, actor entity.Actor) ([]entity.Client, error) {
	list, err := uc.repo.List(ctx, actor.UserID, directoryLimit, 0)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Client, 0, len(list))
	for _, c := range list {
		out = append(out, *c)
	}
	return out, nil
}

// Update reemplaza los datos de un cliente.
func (uc *ClientUseCase) Update(ctx context.Context, actor entity.Actor, id string, in dto.ClientRequest) (*dto.ClientResponse, error) {
	if err := validateClient(in); err != nil {
		return nil, err
	}
	client, err := uc.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	client.Name = strings.TrimSpace(in.Name)
	client.Email = strings.TrimSpace(in.Email)
	client.Phone = strings.TrimSpace(in.Phone)
	client.Address = strings.TrimSpace(in.Address)
	client.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, client); err != nil {
		return nil, err
	}
	return toClientResponse(client), nil
}

// Delete elimina un cliente sin facturas asociadas.
func (uc *ClientUseCase) Delete(ctx context.Context, actor entity.Actor, id string) error {
	if _, err := uc.load(ctx, actor, id); err != nil {
		return err
	}
	n, err := uc.invoiceRepo.CountByClient(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: el cliente tiene %d factura(s)", domain.ErrConflict, n)
	}
	return uc.repo.Delete(ctx, id)
}

func (uc *ClientUseCase) load(ctx context.Context, actor entity.Actor, id string) (*entity.Client, error) {
	client, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrNotFound
	}
	if !actor.CanAccess(client.UserID) {
		return nil, domain.ErrForbidden
	}
	return client, nil
}

func validateClient(in dto.ClientRequest) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		return fmt.Errorf("%w: name y email son requeridos", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		return fmt.Errorf("%w: email inválido", domain.ErrInvalidInput)
	}
	return nil
}

func toClientResponse(c *entity.Client) *dto.ClientResponse {
	return &dto.ClientResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
	}
}
