package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appanalytics "github.com/jhoicas/Facturation-api/internal/application/analytics"
	"github.com/jhoicas/Facturation-api/internal/application/auth"
	"github.com/jhoicas/Facturation-api/internal/application/billing"
	"github.com/jhoicas/Facturation-api/internal/application/draft"
	"github.com/jhoicas/Facturation-api/internal/application/usecase"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/repository"
	"github.com/jhoicas/Facturation-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/Facturation-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Facturation-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Facturation-api/internal/infrastructure/restapi"
	httpRouter "github.com/jhoicas/Facturation-api/internal/interfaces/http"
	"github.com/jhoicas/Facturation-api/pkg/config"
	"github.com/jhoicas/Facturation-api/pkg/logger"
)

// repositories puertos de persistencia según DB_DRIVER.
type repositories struct {
	users    repository.UserRepository
	clients  repository.ClientRepository
	products repository.ProductRepository
	invoices repository.InvoiceRepository
	settings repository.SettingsRepository
	tx       billing.InvoiceTxRunner
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuración inválida")
	}
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET vacío: solo aceptable en development")
	}
	log.Info().
		Str("env", cfg.App.Env).
		Str("db_driver", cfg.DB.Driver).
		Bool("remote_gateway", cfg.Gateway.Remote()).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer repos.close()

	settingsUC := usecase.NewSettingsUseCase(repos.settings, entity.BillingSettings{
		TaxRate:       cfg.Billing.DefaultTaxRate,
		InvoicePrefix: cfg.Billing.InvoicePrefix,
	})
	authUC := auth.NewAuthUseCase(repos.users, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	userUC := usecase.NewUserUseCase(repos.users)
	clientUC := billing.NewClientUseCase(repos.clients, repos.invoices)
	productUC := usecase.NewProductUseCase(repos.products)
	invoiceUC := billing.NewInvoiceUseCase(repos.tx, repos.invoices, repos.clients, repos.products, settingsUC)
	dashboardUC := appanalytics.NewDashboardUseCase(repos.invoices, repos.clients, repos.products)

	// PDF de la factura
	pdfUC := billing.NewPDFUseCase(repos.invoices, repos.clients, settingsUC, infrapdf.NewMarotoPDFGenerator(cfg.App.Name))

	// Borradores: por defecto se envían a este mismo servicio; con GATEWAY_BASE_URL
	// catálogo, clientes y creación se delegan al servidor remoto con el token del usuario.
	var (
		catalog   billing.ProductCatalog  = productUC
		directory billing.ClientDirectory = clientUC
		gateway   billing.InvoiceGateway  = invoiceUC
	)
	if cfg.Gateway.Remote() {
		remote := restapi.New(cfg.Gateway.BaseURL, cfg.Gateway.Timeout, log.Component("gateway"))
		catalog, directory, gateway = remote.Catalog(), remote.Directory(), remote.Invoices()
	}
	drafts := draft.NewManager(catalog, directory, gateway, settingsUC, cfg.Billing.DraftTTL, log.Zerolog())
	go drafts.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.Gateway.Timeout + 10*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.ReplaceAll(cfg.HTTP.CORSOrigins, " ", ""),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	app.Use(httpRouter.AccessLog(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturation API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		UserUC:      userUC,
		ClientUC:    clientUC,
		ProductUC:   productUC,
		InvoiceUC:   invoiceUC,
		PDFUC:       pdfUC,
		SettingsUC:  settingsUC,
		DashboardUC: dashboardUC,
		Drafts:      drafts,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	log.Info().Int("drafts_descartados", drafts.Len()).Msg("aplicación detenida")
}

func openRepositories(ctx context.Context, cfg *config.Config, log *logger.Logger) (*repositories, error) {
	if cfg.DB.Driver == config.DriverMemory {
		log.Warn().Msg("DB_DRIVER=memory: los datos se pierden al reiniciar")
		store := memory.New()
		return &repositories{
			users:    store.Users(),
			clients:  store.Clients(),
			products: store.Products(),
			invoices: store.Invoices(),
			settings: store.Settings(),
			tx:       store,
			close:    func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("esquema verificado")
	}
	return &repositories{
		users:    postgres.NewUserRepository(pool),
		clients:  postgres.NewClientRepository(pool),
		products: postgres.NewProductRepository(pool),
		invoices: postgres.NewInvoiceRepository(pool),
		settings: postgres.NewSettingsRepository(pool),
		tx:       postgres.NewTxRunner(pool),
		close:    pool.Close,
	}, nil
}
