// seed crea el esquema, el administrador inicial y los parámetros de facturación por defecto.
//
// Uso: SEED_ADMIN_EMAIL=... SEED_ADMIN_PASSWORD=... go run ./cmd/seed
// Es idempotente: si el administrador o los parámetros ya existen no los modifica.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jhoicas/Facturation-api/internal/application/auth"
	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Facturation-api/pkg/config"
	"github.com/jhoicas/Facturation-api/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed"})
	if cfg.Seed.AdminPassword == "" {
		return fmt.Errorf("SEED_ADMIN_PASSWORD es obligatorio")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	users := postgres.NewUserRepository(pool)
	existing, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(cfg.Seed.AdminEmail)))
	if err != nil {
		return err
	}
	if existing != nil {
		log.Info().Str("email", existing.Email).Msg("administrador ya existe")
	} else {
		admin, err := auth.NewUser(ctx, users, dto.CreateUserRequest{
			Email:    cfg.Seed.AdminEmail,
			Password: cfg.Seed.AdminPassword,
			Name:     cfg.Seed.AdminName,
			Role:     entity.RoleAdmin,
		})
		if err != nil {
			return err
		}
		if err := users.Create(ctx, admin); err != nil {
			return fmt.Errorf("crear administrador: %w", err)
		}
		log.Info().Str("email", admin.Email).Msg("administrador creado")
	}

	settings := postgres.NewSettingsRepository(pool)
	current, err := settings.Get(ctx)
	if err != nil {
		return err
	}
	if current == nil {
		if err := settings.Save(ctx, &entity.BillingSettings{
			TaxRate:       cfg.Billing.DefaultTaxRate,
			InvoicePrefix: cfg.Billing.InvoicePrefix,
			UpdatedAt:     time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("guardar parámetros: %w", err)
		}
		log.Info().Str("prefix", cfg.Billing.InvoicePrefix).Msg("parámetros de facturación creados")
	}
	return nil
}
