package usecase

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jhoicas/Facturation-api/internal/application/auth"
	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/domain"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/repository"
)

// UserUseCase administración de cuentas (solo administradores).
type UserUseCase struct {
	repo repository.UserRepository
}

// NewUserUseCase construye el caso de uso con el puerto de persistencia.
func NewUserUseCase(repo repository.UserRepository) *UserUseCase {
	return &UserUseCase{repo: repo}
}

// List lista las cuentas con paginación.
func (uc *UserUseCase) List(ctx context.Context, page dto.PageRequest) ([]dto.UserResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(list))
	for _, u := range list {
		out = append(out, *auth.ToUserResponse(u))
	}
	return out, nil
}

// GetByID obtiene un usuario por ID.
func (uc *UserUseCase) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return auth.ToUserResponse(user), nil
}

// Create crea una cuenta con el rol indicado.
func (uc *UserUseCase) Create(ctx context.Context, in dto.CreateUserRequest) (*dto.UserResponse, error) {
	user, err := auth.NewUser(ctx, uc.repo, in)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return auth.ToUserResponse(user), nil
}

// Update edita una cuenta. Un administrador no puede quitarse el rol ni desactivarse a sí mismo,
// y el último administrador activo no puede perder el rol.
func (uc *UserUseCase) Update(ctx context.Context, actor entity.Actor, id string, in dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: email inválido", domain.ErrInvalidInput)
		}
		if email != user.Email {
			other, err := uc.repo.GetByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if other != nil {
				return nil, domain.ErrEmailAlreadyExists
			}
			user.Email = email
		}
	}
	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Password != nil {
		if len(*in.Password) < auth.MinPasswordLength {
			return nil, fmt.Errorf("%w: la contraseña debe tener al menos %d caracteres", domain.ErrInvalidInput, auth.MinPasswordLength)
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if in.Role != nil && *in.Role != user.Role {
		if !entity.ValidRole(*in.Role) {
			return nil, fmt.Errorf("%w: rol %q desconocido", domain.ErrInvalidInput, *in.Role)
		}
		if err := uc.guardAdminLoss(ctx, actor, user); err != nil {
			return nil, err
		}
		user.Role = *in.Role
	}
	if in.IsActive != nil && *in.IsActive != user.IsActive {
		if !*in.IsActive {
			if err := uc.guardAdminLoss(ctx, actor, user); err != nil {
				return nil, err
			}
		}
		user.IsActive = *in.IsActive
	}
	user.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return auth.ToUserResponse(user), nil
}

// ToggleStatus activa o desactiva una cuenta.
func (uc *UserUseCase) ToggleStatus(ctx context.Context, actor entity.Actor, id string) (*dto.UserResponse, error) {
	user, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	active := !user.IsActive
	return uc.Update(ctx, actor, id, dto.UpdateUserRequest{IsActive: &active})
}

// Delete elimina una cuenta.
func (uc *UserUseCase) Delete(ctx context.Context, actor entity.Actor, id string) error {
	user, err := uc.load(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.guardAdminLoss(ctx, actor, user); err != nil {
		return err
	}
	return uc.repo.Delete(ctx, id)
}

// guardAdminLoss rechaza operaciones que dejan al actor sin su propia cuenta de administrador
// o al sistema sin administradores activos.
func (uc *UserUseCase) guardAdminLoss(ctx context.Context, actor entity.Actor, target *entity.User) error {
	if target.ID == actor.UserID {
		return fmt.Errorf("%w: no puede aplicar esta operación sobre su propia cuenta", domain.ErrConflict)
	}
	if !target.IsAdmin() || !target.IsActive {
		return nil
	}
	n, err := uc.repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return fmt.Errorf("%w: debe quedar al menos un administrador activo", domain.ErrConflict)
	}
	return nil
}

func (uc *UserUseCase) load(ctx context.Context, id string) (*entity.User, error) {
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
