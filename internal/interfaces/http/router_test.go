package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturation-api/internal/application/analytics"
	"github.com/jhoicas/Facturation-api/internal/application/auth"
	"github.com/jhoicas/Facturation-api/internal/application/billing"
	"github.com/jhoicas/Facturation-api/internal/application/draft"
	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/application/usecase"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/infrastructure/memory"
	"github.com/jhoicas/Facturation-api/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/Facturation-api/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Servidor de prueba sobre el almacén en memoria
// ──────────────────────────────────────────────────────────────────────────────

type testServer struct {
	app        *fiber.App
	adminToken string
	store      *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	users := store.Users()
	clients := store.Clients()
	products := store.Products()
	invoices := store.Invoices()

	settingsUC := usecase.NewSettingsUseCase(store.Settings(), entity.DefaultBillingSettings())
	authUC := auth.NewAuthUseCase(users, auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer})
	clientUC := billing.NewClientUseCase(clients, invoices)
	productUC := usecase.NewProductUseCase(products)
	invoiceUC := billing.NewInvoiceUseCase(store, invoices, clients, products, settingsUC)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:      authUC,
		UserUC:      usecase.NewUserUseCase(users),
		ClientUC:    clientUC,
		ProductUC:   productUC,
		InvoiceUC:   invoiceUC,
		PDFUC:       billing.NewPDFUseCase(invoices, clients, settingsUC, pdf.NewMarotoPDFGenerator("test")),
		SettingsUC:  settingsUC,
		DashboardUC: analytics.NewDashboardUseCase(invoices, clients, products),
		Drafts:      draft.NewManager(productUC, clientUC, invoiceUC, settingsUC, time.Minute, zerolog.Nop()),
		JWTSecret:   testJWTSecret,
	})

	admin, err := auth.NewUser(context.Background(), users, dto.CreateUserRequest{
		Email: "admin@example.com", Password: "secret123", Name: "Admin", Role: entity.RoleAdmin,
	})
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), admin))

	return &testServer{app: app, adminToken: tokenForUser(t, admin.ID, entity.RoleAdmin), store: store}
}

// call lanza la petición y devuelve status y cuerpo crudo.
func (s *testServer) call(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

// callJSON como call pero decodifica el cuerpo en out y exige el status esperado.
func (s *testServer) callJSON(t *testing.T, want int, method, path, token string, body, out any) {
	t.Helper()
	status, raw := s.call(t, method, path, token, body)
	require.Equal(t, want, status, "%s %s → %s", method, path, raw)
	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out))
	}
}

// register crea un usuario normal por la API y devuelve su header Authorization.
func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	var out dto.LoginResponse
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/auth/register", "",
		dto.RegisterRequest{Email: email, Password: "secret123", Name: email}, &out)
	require.NotEmpty(t, out.Token)
	return "Bearer " + out.Token
}

func (s *testServer) seedCatalog(t *testing.T, token, clientName string) (clientID, productID string) {
	t.Helper()
	var c dto.ClientResponse
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/clients", token,
		dto.ClientRequest{Name: clientName, Email: "contact@example.com"}, &c)
	var p dto.ProductResponse
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/products", token,
		dto.CreateProductRequest{Name: "Consulting", Price: decimal.RequireFromString("12.50")}, &p)
	return c.ID, p.ID
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "esperado %s, obtenido %s", want, got)
}

// ──────────────────────────────────────────────────────────────────────────────
// Auth
// ──────────────────────────────────────────────────────────────────────────────

func TestAuth_RegistroLoginYPerfil(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ana@example.com")

	var me dto.UserResponse
	s.callJSON(t, http.StatusOK, http.MethodGet, "/api/auth/me", token, nil, &me)
	assert.Equal(t, "ana@example.com", me.Email)
	assert.Equal(t, entity.RoleUser, me.Role)

	var login dto.LoginResponse
	s.callJSON(t, http.StatusOK, http.MethodPost, "/api/auth/login", "",
		dto.LoginRequest{Email: "ana@example.com", Password: "secret123"}, &login)
	assert.NotEmpty(t, login.Token)

	status, body := s.call(t, http.MethodPost, "/api/auth/login", "",
		dto.LoginRequest{Email: "ana@example.com", Password: "otra-clave"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, string(body), "UNAUTHORIZED")
}

func TestAuth_EmailDuplicado_Retorna409(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "ana@example.com")

	status, body := s.call(t, http.MethodPost, "/api/auth/register", "",
		dto.RegisterRequest{Email: "ana@example.com", Password: "secret123"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), "EMAIL_EXISTS")
}

// ──────────────────────────────────────────────────────────────────────────────
// Facturas
// ──────────────────────────────────────────────────────────────────────────────

func TestInvoices_CrearNumerarYRecalcularTotales(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ana@example.com")
	clientID, productID := s.seedCatalog(t, token, "Élodie Martin")

	req := map[string]any{
		"client_id": clientID,
		"items":     []map[string]any{{"product_id": productID, "quantity": 2}},
		"total":     "999", // ignorado por el servidor
	}
	var first, second dto.InvoiceResponse
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/invoices", token, req, &first)
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/invoices", token, req, &second)

	year := time.Now().Year()
	assert.Equal(t, fmt.Sprintf("FAC-%d-0001", year), first.InvoiceNumber)
	assert.Equal(t, fmt.Sprintf("FAC-%d-0002", year), second.InvoiceNumber)
	assertDecimal(t, "25", first.Subtotal)
	assertDecimal(t, "5", first.TaxAmount)
	assertDecimal(t, "30", first.Total)
	assert.Equal(t, string(entity.StatusDraft), first.Status)
}

func TestInvoices_BusquedaSinAcentosYFiltroPorEstado(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ana@example.com")
	clientID, productID := s.seedCatalog(t, token, "Élodie Martin")
	otherClient, _ := s.seedCatalog(t, token, "Bernard SA")

	for _, cid := range []string{clientID, otherClient} {
		s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/invoices", token, map[string]any{
			"client_id": cid,
			"items":     []map[string]any{{"product_id": productID, "quantity": 1}},
		}, nil)
	}

	var list dto.InvoiceListResponse
	s.callJSON(t, http.StatusOK, http.MethodGet, "/api/invoices?search=ELODIE", token, nil, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, clientID, list.Items[0].ClientID)

	s.callJSON(t, http.StatusOK, http.MethodGet, "/api/invoices?status=paid", token, nil, &list)
	assert.Empty(t, list.Items)

	s.callJSON(t, http.StatusOK, http.MethodGet, "/api/invoices?status=all", token, nil, &list)
	assert.Equal(t, 2, list.Page.Total)

	status, _ := s.call(t, http.MethodGet, "/api/invoices?status=perdida", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestInvoices_CicloDeEstados(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ana@example.com")
	clientID, productID := s.seedCatalog(t, token, "Bernard SA")

	var inv dto.InvoiceResponse
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/invoices", token, map[string]any{
		"client_id": clientID,
		"items":     []map[string]any{{"product_id": productID, "quantity": 1}},
	}, &inv)
	path := "/api/invoices/" + inv.ID + "/status"

	// Sin cuerpo avanza: draft → sent → paid.
	s.callJSON(t, http.StatusOK, http.MethodPatch, path, token, nil, &inv)
	assert.Equal(t, "sent", inv.Status)
	s.callJSON(t, http.StatusOK, http.MethodPatch, path, token, nil, &inv)
	assert.Equal(t, "paid", inv.Status)

	status, body := s.call(t, http.MethodPatch, path, token, dto.UpdateStatusRequest{Status: "sent"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), "INVALID_TRANSITION")

	// Una factura no editable no admite cambios de contenido.
	notes := "tarde"
	status, _ = s.call(t, http.MethodPut, "/api/invoices/"+inv.ID, token, dto.UpdateInvoiceRequest{Notes: &notes})
	assert.Equal(t, http.StatusConflict, status)
}

func TestInvoices_OtroUsuarioNoAccede(t *testing.T) {
	s := newTestServer(t)
	ana := s.register(t, "ana@example.com")
	bob := s.register(t, "bob@example.com")
	clientID, productID := s.seedCatalog(t, ana, "Bernard SA")

	var inv dto.InvoiceResponse
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/invoices", ana, map[string]any{
		"client_id": clientID,
		"items":     []map[string]any{{"product_id": productID, "quantity": 1}},
	}, &inv)

	status, _ := s.call(t, http.MethodGet, "/api/invoices/"+inv.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var list dto.InvoiceListResponse
	s.callJSON(t, http.StatusOK, http.MethodGet, "/api/invoices", bob, nil, &list)
	assert.Empty(t, list.Items)

	// El administrador ve todo.
	s.callJSON(t, http.StatusOK, http.MethodGet, "/api/invoices", s.adminToken, nil, &list)
	assert.Len(t, list.Items, 1)
}

func TestInvoices_ExportCSVWindows1252(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ana@example.com")
	clientID, productID := s.seedCatalog(t, token, "Élodie Martin")
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/invoices", token, map[string]any{
		"client_id": clientID,
		"items":     []map[string]any{{"product_id": productID, "quantity": 1}},
	}, nil)

	status, body := s.call(t, http.MethodGet, "/api/invoices/export.csv?encoding=windows-1252", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, bytes.Contains(body, []byte{0xC9, 'l', 'o', 'd', 'i', 'e'}), "É en windows-1252 es 0xC9")

	status, body = s.call(t, http.MethodGet, "/api/invoices/export.csv", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "Élodie Martin")
	assert.Contains(t, string(body), "Brouillon")

	status, _ = s.call(t, http.MethodGet, "/api/invoices/export.csv?encoding=ebcdic", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestInvoices_DescargaPDF(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ana@example.com")
	clientID, productID := s.seedCatalog(t, token, "Bernard SA")
	var inv dto.InvoiceResponse
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/invoices", token, map[string]any{
		"client_id": clientID,
		"items":     []map[string]any{{"product_id": productID, "quantity": 3}},
	}, &inv)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/"+inv.ID+"/pdf", nil)
	req.Header.Set("Authorization", token)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), inv.InvoiceNumber+".pdf")
	head := make([]byte, 4)
	_, err = io.ReadFull(resp.Body, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))
}

func TestClients_NoSeEliminaConFacturas(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ana@example.com")
	clientID, productID := s.seedCatalog(t, token, "Bernard SA")
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/invoices", token, map[string]any{
		"client_id": clientID,
		"items":     []map[string]any{{"product_id": productID, "quantity": 1}},
	}, nil)

	status, body := s.call(t, http.MethodDelete, "/api/clients/"+clientID, token, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), "CONFLICT")
}

// ──────────────────────────────────────────────────────────────────────────────
// Borradores
// ──────────────────────────────────────────────────────────────────────────────

func TestDrafts_FlujoCompleto(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ana@example.com")
	clientID, productID := s.seedCatalog(t, token, "Bernard SA")

	var d dto.DraftResponse
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/drafts", token, nil, &d)
	require.NotEmpty(t, d.ID)
	require.Len(t, d.Products, 1)
	require.Len(t, d.Clients, 1)
	base := "/api/drafts/" + d.ID

	s.callJSON(t, http.StatusCreated, http.MethodPost, base+"/items", token, dto.DraftAddItemRequest{ProductID: productID}, &d)
	require.Len(t, d.Items, 1)

	s.callJSON(t, http.StatusOK, http.MethodPatch, base+"/items/0", token,
		dto.DraftItemUpdateRequest{Field: "quantity", Value: "2"}, &d)
	assert.Equal(t, 2, d.Items[0].Quantity)
	assert.Equal(t, "30.00", d.Totals.Total)

	status, body := s.call(t, http.MethodPatch, base+"/items/5", token,
		dto.DraftItemUpdateRequest{Field: "quantity", Value: "2"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "ITEM_OUT_OF_RANGE")

	// Sin cliente no se puede emitir.
	status, _ = s.call(t, http.MethodPost, base+"/submit", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	s.callJSON(t, http.StatusOK, http.MethodPut, base, token, dto.DraftUpdateRequest{ClientID: &clientID}, &d)
	assert.Equal(t, clientID, d.ClientID)

	var inv dto.InvoiceResponse
	s.callJSON(t, http.StatusCreated, http.MethodPost, base+"/submit", token, nil, &inv)
	assertDecimal(t, "30", inv.Total)

	// Tras el envío el borrador ya no existe.
	status, _ = s.call(t, http.MethodGet, base, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDrafts_ImporteDesmesuradoYTasaNegativa(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ana@example.com")
	clientID, productID := s.seedCatalog(t, token, "Bernard SA")

	var d dto.DraftResponse
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/drafts", token, nil, &d)
	base := "/api/drafts/" + d.ID
	s.callJSON(t, http.StatusCreated, http.MethodPost, base+"/items", token, dto.DraftAddItemRequest{ProductID: productID}, &d)

	s.callJSON(t, http.StatusOK, http.MethodPatch, base+"/items/0", token,
		dto.DraftItemUpdateRequest{Field: "unitPrice", Value: "1e100000000"}, &d)
	assert.Equal(t, "0.00", d.Items[0].LineTotal)
	assert.Equal(t, "0.00", d.Totals.Total)

	rate := "-10"
	s.callJSON(t, http.StatusOK, http.MethodPut, base, token, dto.DraftUpdateRequest{ClientID: &clientID, TaxRate: &rate}, &d)
	assert.Equal(t, "-10", d.Totals.TaxRate)

	s.callJSON(t, http.StatusOK, http.MethodPatch, base+"/items/0", token,
		dto.DraftItemUpdateRequest{Field: "unitPrice", Value: "12.50"}, &d)
	status, body := s.call(t, http.MethodPost, base+"/submit", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "VALIDATION")
}

func TestDrafts_CatalogoVacio(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ana@example.com")

	var d dto.DraftResponse
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/drafts", token, nil, &d)

	status, body := s.call(t, http.MethodPost, "/api/drafts/"+d.ID+"/items", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, string(body), "EMPTY_CATALOG")
}

func TestDrafts_AjenoYDescartado(t *testing.T) {
	s := newTestServer(t)
	ana := s.register(t, "ana@example.com")
	bob := s.register(t, "bob@example.com")

	var d dto.DraftResponse
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/drafts", ana, nil, &d)

	status, _ := s.call(t, http.MethodGet, "/api/drafts/"+d.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	s.callJSON(t, http.StatusOK, http.MethodDelete, "/api/drafts/"+d.ID, ana, nil, nil)
	status, _ = s.call(t, http.MethodGet, "/api/drafts/"+d.ID, ana, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Administración
// ──────────────────────────────────────────────────────────────────────────────

func TestUsers_SoloAdmin(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ana@example.com")

	status, _ := s.call(t, http.MethodGet, "/api/users", token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var users []dto.UserResponse
	s.callJSON(t, http.StatusOK, http.MethodGet, "/api/users", s.adminToken, nil, &users)
	assert.Len(t, users, 2)

	var created dto.UserResponse
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/users", s.adminToken,
		dto.CreateUserRequest{Email: "carla@example.com", Password: "secret123", Role: entity.RoleUser}, &created)

	var toggled dto.UserResponse
	s.callJSON(t, http.StatusOK, http.MethodPatch, "/api/users/"+created.ID+"/toggle-status", s.adminToken, nil, &toggled)
	assert.False(t, toggled.IsActive)

	status, body := s.call(t, http.MethodPost, "/api/auth/login", "",
		dto.LoginRequest{Email: "carla@example.com", Password: "secret123"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, string(body), "INACTIVE_USER")
}

func TestSettings_LecturaParaTodosEscrituraAdmin(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ana@example.com")

	var cfg dto.SettingsResponse
	s.callJSON(t, http.StatusOK, http.MethodGet, "/api/settings", token, nil, &cfg)
	assert.Equal(t, entity.DefaultInvoicePrefix, cfg.InvoicePrefix)

	prefix := "inv"
	status, _ := s.call(t, http.MethodPut, "/api/settings", token, dto.SettingsRequest{InvoicePrefix: &prefix})
	assert.Equal(t, http.StatusForbidden, status)

	s.callJSON(t, http.StatusOK, http.MethodPut, "/api/settings", s.adminToken, dto.SettingsRequest{InvoicePrefix: &prefix}, &cfg)
	assert.Equal(t, "INV", cfg.InvoicePrefix)

	bad := "A B"
	status, _ = s.call(t, http.MethodPut, "/api/settings", s.adminToken, dto.SettingsRequest{InvoicePrefix: &bad})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDashboard_ResumenPorUsuario(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ana@example.com")
	clientID, productID := s.seedCatalog(t, token, "Bernard SA")
	var inv dto.InvoiceResponse
	s.callJSON(t, http.StatusCreated, http.MethodPost, "/api/invoices", token, map[string]any{
		"client_id": clientID,
		"items":     []map[string]any{{"product_id": productID, "quantity": 2}},
	}, &inv)
	s.callJSON(t, http.StatusOK, http.MethodPatch, "/api/invoices/"+inv.ID+"/status", token,
		dto.UpdateStatusRequest{Status: "paid"}, nil)

	var sum dto.DashboardSummaryDTO
	s.callJSON(t, http.StatusOK, http.MethodGet, "/api/dashboard/summary", token, nil, &sum)
	assert.Equal(t, 1, sum.Clients)
	assert.Equal(t, 1, sum.Products)
	assert.Equal(t, 1, sum.Invoices)
	assertDecimal(t, "30", sum.Revenue)
	require.Len(t, sum.ByStatus, 3)
	assert.Equal(t, "draft", sum.ByStatus[0].Status)
}
