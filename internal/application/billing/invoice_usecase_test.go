package billing_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturation-api/internal/application/billing"
	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/application/usecase"
	"github.com/jhoicas/Facturation-api/internal/domain"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/invoicing"
	"github.com/jhoicas/Facturation-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	uc       *billing.InvoiceUseCase
	settings *usecase.SettingsUseCase
	owner    entity.Actor
	client   *entity.Client
	product  *entity.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	settings := usecase.NewSettingsUseCase(store.Settings(), entity.DefaultBillingSettings())
	f := &fixture{
		ctx:      ctx,
		store:    store,
		settings: settings,
		uc:       billing.NewInvoiceUseCase(store, store.Invoices(), store.Clients(), store.Products(), settings),
		owner:    entity.Actor{UserID: "u1", Role: entity.RoleUser},
		client:   &entity.Client{ID: "c1", UserID: "u1", Name: "Société Générale", Email: "sg@example.com"},
		product:  &entity.Product{ID: "p1", UserID: "u1", Name: "Audit", Price: decimal.RequireFromString("100")},
	}
	require.NoError(t, store.Clients().Create(ctx, f.client))
	require.NoError(t, store.Products().Create(ctx, f.product))
	return f
}

func (f *fixture) create(t *testing.T, issueDate string, qty int) *dto.InvoiceResponse {
	t.Helper()
	out, err := f.uc.CreateFromRequest(f.ctx, f.owner, dto.CreateInvoiceRequest{
		ClientID:  f.client.ID,
		IssueDate: issueDate,
		Items:     []dto.InvoiceItemRequest{{ProductID: f.product.ID, Quantity: qty}},
	})
	require.NoError(t, err)
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Numeración y totales
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_NumeracionPorAnio(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "FAC-2025-0001", f.create(t, "2025-12-30", 1).InvoiceNumber)
	assert.Equal(t, "FAC-2025-0002", f.create(t, "2025-12-31", 1).InvoiceNumber)
	assert.Equal(t, "FAC-2026-0001", f.create(t, "2026-01-02", 1).InvoiceNumber, "el consecutivo reinicia con el año")
}

func TestCreate_PrefijoDeParametros(t *testing.T) {
	f := newFixture(t)
	prefix := "inv"
	_, err := f.settings.Update(f.ctx, entity.Actor{UserID: "admin", Role: entity.RoleAdmin}, dto.SettingsRequest{InvoicePrefix: &prefix})
	require.NoError(t, err)

	assert.Equal(t, "INV-2026-0001", f.create(t, "2026-05-01", 1).InvoiceNumber)
}

func TestCreate_FechaPorDefectoEsHoy(t *testing.T) {
	f := newFixture(t)
	f.uc.SetClock(func() time.Time { return time.Date(2027, 2, 3, 15, 4, 5, 0, time.UTC) })

	out := f.create(t, "", 1)
	assert.Equal(t, "2027-02-03", out.IssueDate)
	assert.Equal(t, "FAC-2027-0001", out.InvoiceNumber)
}

func TestCreate_TotalesRecalculados(t *testing.T) {
	f := newFixture(t)
	rate := decimal.RequireFromString("5.5")
	price := decimal.RequireFromString("19.99")
	out, err := f.uc.CreateFromRequest(f.ctx, f.owner, dto.CreateInvoiceRequest{
		ClientID:  f.client.ID,
		TaxRate:   &rate,
		IssueDate: "2026-03-01",
		Items:     []dto.InvoiceItemRequest{{ProductID: f.product.ID, Quantity: 3, UnitPrice: &price}},
	})
	require.NoError(t, err)

	assert.Equal(t, "59.97", out.Subtotal.StringFixed(2))
	assert.Equal(t, "3.30", out.TaxAmount.StringFixed(2))
	assert.Equal(t, "63.27", out.Total.StringFixed(2))
	assert.Equal(t, string(entity.StatusDraft), out.Status)
}

func TestCreate_Validaciones(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateFromRequest(f.ctx, f.owner, dto.CreateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: f.product.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, invoicing.ErrClientRequired)

	_, err = f.uc.CreateFromRequest(f.ctx, f.owner, dto.CreateInvoiceRequest{ClientID: f.client.ID})
	assert.ErrorIs(t, err, invoicing.ErrNoItems)

	_, err = f.uc.CreateFromRequest(f.ctx, f.owner, dto.CreateInvoiceRequest{
		ClientID:  f.client.ID,
		IssueDate: "2026-03-10",
		DueDate:   "2026-03-01",
		Items:     []dto.InvoiceItemRequest{{ProductID: f.product.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, invoicing.ErrDueBeforeIssue)

	stranger := entity.Actor{UserID: "u2", Role: entity.RoleUser}
	_, err = f.uc.CreateFromRequest(f.ctx, stranger, dto.CreateInvoiceRequest{
		ClientID: f.client.ID,
		Items:    []dto.InvoiceItemRequest{{ProductID: f.product.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreate_ConcurrenteSinNumerosRepetidos(t *testing.T) {
	f := newFixture(t)
	const n = 20

	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.uc.CreateFromRequest(f.ctx, f.owner, dto.CreateInvoiceRequest{
				ClientID:  f.client.ID,
				IssueDate: "2026-06-01",
				Items:     []dto.InvoiceItemRequest{{ProductID: f.product.ID, Quantity: 1}},
			})
			if assert.NoError(t, err) {
				numbers <- out.InvoiceNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for num := range numbers {
		assert.False(t, seen[num], "número repetido %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen[fmt.Sprintf("FAC-2026-%04d", n)])
}

// ──────────────────────────────────────────────────────────────────────────────
// Ciclo de vida
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdateStatus_Ciclo(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, "2026-03-01", 1)

	out, err := f.uc.UpdateStatus(f.ctx, f.owner, inv.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "sent", out.Status)

	out, err = f.uc.UpdateStatus(f.ctx, f.owner, inv.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "paid", out.Status)

	_, err = f.uc.UpdateStatus(f.ctx, f.owner, inv.ID, "sent")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.uc.UpdateStatus(f.ctx, f.owner, inv.ID, "archivada")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	out, err = f.uc.UpdateStatus(f.ctx, f.owner, inv.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "draft", out.Status, "paid vuelve a draft")
}

func TestCreate_ImportesYTasaFueraDeRango(t *testing.T) {
	f := newFixture(t)
	req := func(rate string, price string, qty int) dto.CreateInvoiceRequest {
		in := dto.CreateInvoiceRequest{
			ClientID:  f.client.ID,
			IssueDate: "2026-03-01",
			Items:     []dto.InvoiceItemRequest{{ProductID: f.product.ID, Quantity: qty}},
		}
		if rate != "" {
			r := decimal.RequireFromString(rate)
			in.TaxRate = &r
		}
		if price != "" {
			p := decimal.RequireFromString(price)
			in.Items[0].UnitPrice = &p
		}
		return in
	}

	_, err := f.uc.CreateFromRequest(f.ctx, f.owner, req("-5", "", 1))
	assert.ErrorIs(t, err, invoicing.ErrInvalidTaxRate)
	_, err = f.uc.CreateFromRequest(f.ctx, f.owner, req("1e100000000", "", 1))
	assert.ErrorIs(t, err, invoicing.ErrInvalidTaxRate)
	_, err = f.uc.CreateFromRequest(f.ctx, f.owner, req("", "1e100000000", 1))
	assert.ErrorIs(t, err, invoicing.ErrAmountOutOfRange)
	_, err = f.uc.CreateFromRequest(f.ctx, f.owner, req("", "", invoicing.MaxQuantity+1))
	assert.ErrorIs(t, err, invoicing.ErrInvalidQuantity)

	inv := f.create(t, "2026-03-01", 1)
	negative := decimal.NewFromInt(-1)
	_, err = f.uc.Update(f.ctx, f.owner, inv.ID, dto.UpdateInvoiceRequest{TaxRate: &negative})
	assert.ErrorIs(t, err, invoicing.ErrInvalidTaxRate)
}

func TestUpdate_SoloBorradorYRecalcula(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, "2026-03-01", 1)

	out, err := f.uc.Update(f.ctx, f.owner, inv.ID, dto.UpdateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: f.product.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, "400.00", out.Subtotal.StringFixed(2))
	assert.Equal(t, "480.00", out.Total.StringFixed(2))
	assert.Equal(t, inv.InvoiceNumber, out.InvoiceNumber, "el número no cambia al editar")

	_, err = f.uc.UpdateStatus(f.ctx, f.owner, inv.ID, "sent")
	require.NoError(t, err)

	notes := "x"
	_, err = f.uc.Update(f.ctx, f.owner, inv.ID, dto.UpdateInvoiceRequest{Notes: &notes})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDelete_Ajeno(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, "2026-03-01", 1)

	err := f.uc.Delete(f.ctx, entity.Actor{UserID: "u2", Role: entity.RoleUser}, inv.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.uc.Delete(f.ctx, entity.Actor{UserID: "root", Role: entity.RoleAdmin}, inv.ID))
	_, err = f.uc.Get(f.ctx, f.owner, inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Listado y exportación
// ──────────────────────────────────────────────────────────────────────────────

func TestList_BusquedaYPaginacion(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 3; i++ {
		f.create(t, fmt.Sprintf("2026-04-0%d", i), 1)
	}

	out, err := f.uc.List(f.ctx, f.owner, dto.InvoiceListQuery{Search: "societe"})
	require.NoError(t, err)
	assert.Len(t, out.Items, 3)
	assert.Equal(t, "FAC-2026-0003", out.Items[0].InvoiceNumber, "más reciente primero")

	out, err = f.uc.List(f.ctx, f.owner, dto.InvoiceListQuery{Search: "0002"})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)

	out, err = f.uc.List(f.ctx, f.owner, dto.InvoiceListQuery{PageRequest: dto.PageRequest{Limit: 2, Offset: 2}})
	require.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, 3, out.Page.Total)
}

func TestExportCSV_Encabezado(t *testing.T) {
	f := newFixture(t)
	f.create(t, "2026-04-01", 2)

	data, err := f.uc.ExportCSV(f.ctx, f.owner, dto.InvoiceListQuery{}, billing.ExportUTF8)
	require.NoError(t, err)
	assert.Equal(t,
		"Numéro,Client,Date,Montant HT,TVA,Montant TTC,Statut\n"+
			"FAC-2026-0001,Société Générale,2026-04-01,200.00,40.00,240.00,Brouillon\n",
		string(data))
}
