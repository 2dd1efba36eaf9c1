package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/application/usecase"
	"github.com/jhoicas/Facturation-api/internal/domain"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/infrastructure/memory"
)

var (
	admin = entity.Actor{UserID: "a1", Role: entity.RoleAdmin}
	ana   = entity.Actor{UserID: "u1", Role: entity.RoleUser}
	bob   = entity.Actor{UserID: "u2", Role: entity.RoleUser}
)

func ptr[T any](v T) *T { return &v }

// ── Productos ────────────────────────────────────────────────────────────────

func TestProduct_CrearValidaYAislaPorUsuario(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewProductUseCase(memory.New().Products())

	_, err := uc.Create(ctx, ana, dto.CreateProductRequest{Name: " ", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.Create(ctx, ana, dto.CreateProductRequest{Name: "Audit", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.Create(ctx, ana, dto.CreateProductRequest{Name: "Audit", Price: decimal.RequireFromString("1e100000000")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	p, err := uc.Create(ctx, ana, dto.CreateProductRequest{Name: "Audit", Price: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.Equal(t, ana.UserID, p.UserID)

	_, err = uc.GetByID(ctx, bob, p.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	list, err := uc.List(ctx, bob, dto.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	catalog, err := uc.GetAll(ctx, ana)
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "Audit", catalog[0].Name)

	updated, err := uc.Update(ctx, admin, p.ID, dto.UpdateProductRequest{Price: ptr(decimal.NewFromInt(120))})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(120)))
}

// ── Parámetros ───────────────────────────────────────────────────────────────

func TestSettings_DefaultsYValidacion(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewSettingsUseCase(memory.New().Settings(), entity.BillingSettings{TaxRate: decimal.NewFromInt(10)})

	cur, err := uc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultInvoicePrefix, cur.InvoicePrefix, "prefijo vacío usa el de siempre")
	assert.True(t, cur.TaxRate.Equal(decimal.NewFromInt(10)))

	_, err = uc.Update(ctx, admin, dto.SettingsRequest{TaxRate: ptr(decimal.NewFromInt(101))})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.Update(ctx, admin, dto.SettingsRequest{TaxRate: ptr(decimal.RequireFromString("1e100000000"))})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.Update(ctx, admin, dto.SettingsRequest{InvoicePrefix: ptr("MUY-LARGO-PREFIJO")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	out, err := uc.Update(ctx, admin, dto.SettingsRequest{
		TaxRate:       ptr(decimal.RequireFromString("5.5")),
		InvoicePrefix: ptr(" fa "),
		FooterText:    ptr("Merci !"),
	})
	require.NoError(t, err)
	assert.Equal(t, "FA", out.InvoicePrefix)
	assert.Equal(t, "Merci !", out.FooterText)

	cur, err = uc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin.UserID, cur.UpdatedBy)
}

// ── Usuarios ─────────────────────────────────────────────────────────────────

func TestUser_NoSePierdeElUltimoAdmin(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	uc := usecase.NewUserUseCase(store.Users())

	root, err := uc.Create(ctx, dto.CreateUserRequest{Email: "root@example.com", Password: "secret123", Role: entity.RoleAdmin})
	require.NoError(t, err)
	other, err := uc.Create(ctx, dto.CreateUserRequest{Email: "other@example.com", Password: "secret123", Role: entity.RoleAdmin})
	require.NoError(t, err)
	rootActor := entity.Actor{UserID: root.ID, Role: entity.RoleAdmin}

	_, err = uc.ToggleStatus(ctx, rootActor, root.ID)
	assert.ErrorIs(t, err, domain.ErrConflict, "no puede desactivarse a sí mismo")

	_, err = uc.Update(ctx, rootActor, other.ID, dto.UpdateUserRequest{Role: ptr(entity.RoleUser)})
	require.NoError(t, err, "quedan dos administradores, se puede degradar a uno")

	otherActor := entity.Actor{UserID: other.ID, Role: entity.RoleAdmin}
	err = uc.Delete(ctx, otherActor, root.ID)
	assert.ErrorIs(t, err, domain.ErrConflict, "root es el último administrador activo")

	_, err = uc.Update(ctx, rootActor, other.ID, dto.UpdateUserRequest{Role: ptr("superuser")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Create(ctx, dto.CreateUserRequest{Email: "ROOT@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)

	require.NoError(t, uc.Delete(ctx, rootActor, other.ID))
	_, err = uc.GetByID(ctx, other.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
