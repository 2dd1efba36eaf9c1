package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Facturation-api/internal/application/analytics"
	"github.com/jhoicas/Facturation-api/internal/application/auth"
	"github.com/jhoicas/Facturation-api/internal/application/billing"
	"github.com/jhoicas/Facturation-api/internal/application/draft"
	"github.com/jhoicas/Facturation-api/internal/application/usecase"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	UserUC      *usecase.UserUseCase
	ClientUC    *billing.ClientUseCase
	ProductUC   *usecase.ProductUseCase
	InvoiceUC   *billing.InvoiceUseCase
	PDFUC       *billing.PDFUseCase
	SettingsUC  *usecase.SettingsUseCase
	DashboardUC *analytics.DashboardUseCase
	Drafts      *draft.Manager
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	protected.Get("/auth/me", authHandler.Me)

	// Users (solo admin)
	userHandler := NewUserHandler(deps.UserUC)
	users := protected.Group("/users", RequireRole(entity.RoleAdmin))
	users.Get("/", userHandler.List)
	users.Post("/", userHandler.Create)
	users.Get("/:id", userHandler.GetByID)
	users.Put("/:id", userHandler.Update)
	users.Patch("/:id/toggle-status", userHandler.ToggleStatus)
	users.Delete("/:id", userHandler.Delete)

	// Clients
	clientHandler := NewClientHandler(deps.ClientUC)
	clients := protected.Group("/clients")
	clients.Post("/", clientHandler.Create)
	clients.Get("/", clientHandler.List)
	clients.Get("/:id", clientHandler.GetByID)
	clients.Put("/:id", clientHandler.Update)
	clients.Delete("/:id", clientHandler.Delete)

	// Products
	productHandler := NewProductHandler(deps.ProductUC)
	products := protected.Group("/products")
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", productHandler.Update)
	products.Delete("/:id", productHandler.Delete)

	// Invoices (export.csv antes de /:id)
	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC, deps.PDFUC)
	invoices := protected.Group("/invoices")
	invoices.Get("/export.csv", invoiceHandler.ExportCSV)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Put("/:id", invoiceHandler.Update)
	invoices.Delete("/:id", invoiceHandler.Delete)
	invoices.Patch("/:id/status", invoiceHandler.UpdateStatus)
	invoices.Get("/:id/pdf", invoiceHandler.DownloadPDF)

	// Drafts: sesiones de edición en memoria
	draftHandler := NewDraftHandler(deps.Drafts)
	drafts := protected.Group("/drafts")
	drafts.Post("/", draftHandler.Open)
	drafts.Get("/:id", draftHandler.Get)
	drafts.Put("/:id", draftHandler.Update)
	drafts.Delete("/:id", draftHandler.Discard)
	drafts.Post("/:id/reload", draftHandler.Reload)
	drafts.Post("/:id/items", draftHandler.AddItem)
	drafts.Patch("/:id/items/:index", draftHandler.UpdateItem)
	drafts.Delete("/:id/items/:index", draftHandler.RemoveItem)
	drafts.Post("/:id/submit", draftHandler.Submit)

	// Settings: lectura para todos, escritura solo admin
	settingsHandler := NewSettingsHandler(deps.SettingsUC)
	protected.Get("/settings", settingsHandler.Get)
	protected.Put("/settings", RequireRole(entity.RoleAdmin), settingsHandler.Update)

	// Dashboard
	dashboardHandler := NewDashboardHandler(deps.DashboardUC)
	protected.Get("/dashboard/summary", dashboardHandler.GetSummary)
}
