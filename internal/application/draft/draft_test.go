package draft_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/Facturation-api/internal/application/draft"
	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/domain"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/invoicing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakeCatalog struct {
	products []invoicing.Product
	err      error
	gate     chan struct{} // si no es nil, GetAll espera a que se cierre
}

func (f *fakeCatalog) GetAll(ctx context.Context, _ entity.Actor) ([]invoicing.Product, error) {
	if f.gate != nil {
		<-f.gate
	}
	return f.products, f.err
}

type fakeDirectory struct {
	clients []entity.Client
	err     error
}

func (f *fakeDirectory) GetAll(ctx context.Context, _ entity.Actor) ([]entity.Client, error) {
	return f.clients, f.err
}

type fakeGateway struct {
	mu      sync.Mutex
	calls   []invoicing.Payload
	err     error
	release chan struct{}
	entered chan struct{}
}

func (f *fakeGateway) Create(ctx context.Context, _ entity.Actor, p invoicing.Payload) (*dto.InvoiceResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &dto.InvoiceResponse{ID: "inv-1", InvoiceNumber: "FAC-2026-0001", Total: p.Total}, nil
}

func (f *fakeGateway) last() invoicing.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeGateway) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSettings struct{}

func (fakeSettings) Current(context.Context) (entity.BillingSettings, error) {
	return entity.DefaultBillingSettings(), nil
}

var owner = entity.Actor{UserID: "user-1", Role: entity.RoleUser}

func widgetCatalog() *fakeCatalog {
	return &fakeCatalog{products: []invoicing.Product{
		{ID: "p1", Name: "Widget", Price: decimal.RequireFromString("10.00")},
	}}
}

func clientsDirectory() *fakeDirectory {
	return &fakeDirectory{clients: []entity.Client{{ID: "c1", Name: "ACME", UserID: "user-1"}}}
}

func newManager(catalog *fakeCatalog, dir *fakeDirectory, gw *fakeGateway) *draft.Manager {
	return draft.NewManager(catalog, dir, gw, fakeSettings{}, time.Minute, zerolog.Nop())
}

func strPtr(s string) *string { return &s }

// ── Flujo completo ────────────────────────────────────────────────────────────

func TestDraft_FlujoCompleto(t *testing.T) {
	gw := &fakeGateway{}
	m := newManager(widgetCatalog(), clientsDirectory(), gw)

	s, err := m.Open(context.Background(), owner)
	require.NoError(t, err)
	view := s.View()
	assert.Equal(t, "20", view.TaxRate)
	assert.Len(t, view.Products, 1)
	assert.Len(t, view.Clients, 1)
	assert.Empty(t, view.LoadError)

	_, err = s.AddItem("p1")
	require.NoError(t, err)
	_, err = s.UpdateItem(0, "quantity", "3")
	require.NoError(t, err)
	require.NoError(t, s.Update(dto.DraftUpdateRequest{ClientID: strPtr("c1")}))

	view = s.View()
	assert.Equal(t, "30.00", view.Totals.Subtotal)
	assert.Equal(t, "6.00", view.Totals.TaxAmount)
	assert.Equal(t, "36.00", view.Totals.Total)

	resp, err := m.Submit(context.Background(), owner, s.ID())
	require.NoError(t, err)
	assert.Equal(t, "inv-1", resp.ID)
	require.Equal(t, 1, gw.count())
	assert.Equal(t, entity.StatusDraft, gw.calls[0].Status)
	assert.True(t, gw.calls[0].Total.Equal(decimal.RequireFromString("36")))

	_, err = m.Get(owner, s.ID())
	assert.ErrorIs(t, err, draft.ErrDraftNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ── Carga ─────────────────────────────────────────────────────────────────────

func TestDraft_CargaFallidaDejaCatalogoVacio(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("timeout")}
	m := newManager(catalog, clientsDirectory(), &fakeGateway{})

	s, err := m.Open(context.Background(), owner)
	require.NoError(t, err)
	view := s.View()
	assert.NotEmpty(t, view.LoadError)
	assert.Empty(t, view.Products)
	assert.Len(t, view.Clients, 1, "la carga de clientes es independiente")

	_, err = s.AddItem("")
	assert.ErrorIs(t, err, invoicing.ErrEmptyCatalog)

	// Reintento manual.
	catalog.err = nil
	catalog.products = widgetCatalog().products
	s, err = m.Reload(context.Background(), owner, s.ID())
	require.NoError(t, err)
	assert.Empty(t, s.View().LoadError)
	_, err = s.AddItem("")
	assert.NoError(t, err)
}

func TestDraft_CargaTardiaTrasCerrarSeDescarta(t *testing.T) {
	// Abrir con listas vacías y cargar después con un catálogo lento.
	s, err := newManager(&fakeCatalog{}, &fakeDirectory{}, &fakeGateway{}).Open(context.Background(), owner)
	require.NoError(t, err)

	catalog := widgetCatalog()
	catalog.gate = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background(), catalog, clientsDirectory()) }()

	s.Close()
	close(catalog.gate)
	assert.ErrorIs(t, <-done, draft.ErrSessionClosed)
	assert.Empty(t, s.View().Products, "el resultado tardío no debe modificar un borrador cerrado")
}

// ── Envío ─────────────────────────────────────────────────────────────────────

func TestDraft_EnvioSinClienteNoLlamaAlGateway(t *testing.T) {
	gw := &fakeGateway{}
	m := newManager(widgetCatalog(), clientsDirectory(), gw)
	s, err := m.Open(context.Background(), owner)
	require.NoError(t, err)
	_, err = s.AddItem("p1")
	require.NoError(t, err)

	_, err = m.Submit(context.Background(), owner, s.ID())
	assert.ErrorIs(t, err, invoicing.ErrClientRequired)
	assert.Equal(t, 0, gw.count())
}

func TestDraft_EnvioFallidoConservaElBorrador(t *testing.T) {
	gw := &fakeGateway{err: errors.New("503")}
	m := newManager(widgetCatalog(), clientsDirectory(), gw)
	s, err := m.Open(context.Background(), owner)
	require.NoError(t, err)
	_, err = s.AddItem("p1")
	require.NoError(t, err)
	require.NoError(t, s.Update(dto.DraftUpdateRequest{ClientID: strPtr("c1")}))

	_, err = m.Submit(context.Background(), owner, s.ID())
	require.Error(t, err)
	assert.Equal(t, 1, gw.count(), "sin reintentos automáticos")

	got, err := m.Get(owner, s.ID())
	require.NoError(t, err)
	assert.Len(t, got.View().Items, 1)
	assert.False(t, got.Closed())

	// Reintento manual exitoso.
	gw.err = nil
	_, err = m.Submit(context.Background(), owner, s.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, gw.count())
}

func TestDraft_EnvioConcurrenteSeRechaza(t *testing.T) {
	gw := &fakeGateway{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	m := newManager(widgetCatalog(), clientsDirectory(), gw)
	s, err := m.Open(context.Background(), owner)
	require.NoError(t, err)
	_, err = s.AddItem("p1")
	require.NoError(t, err)
	require.NoError(t, s.Update(dto.DraftUpdateRequest{ClientID: strPtr("c1")}))

	first := make(chan error, 1)
	go func() {
		_, err := m.Submit(context.Background(), owner, s.ID())
		first <- err
	}()
	<-gw.entered

	_, err = m.Submit(context.Background(), owner, s.ID())
	assert.ErrorIs(t, err, draft.ErrSubmissionInProgress)

	close(gw.release)
	require.NoError(t, <-first)
	assert.Equal(t, 1, gw.count())
}

func TestDraft_EdicionDuranteElEnvioSeRechaza(t *testing.T) {
	gw := &fakeGateway{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	m := newManager(widgetCatalog(), clientsDirectory(), gw)
	s, err := m.Open(context.Background(), owner)
	require.NoError(t, err)
	_, err = s.AddItem("p1")
	require.NoError(t, err)
	require.NoError(t, s.Update(dto.DraftUpdateRequest{ClientID: strPtr("c1")}))

	first := make(chan error, 1)
	go func() {
		_, err := m.Submit(context.Background(), owner, s.ID())
		first <- err
	}()
	<-gw.entered

	_, err = s.AddItem("p1")
	assert.ErrorIs(t, err, draft.ErrSubmissionInProgress)
	_, err = s.UpdateItem(0, "quantity", "5")
	assert.ErrorIs(t, err, draft.ErrSubmissionInProgress)
	assert.ErrorIs(t, s.RemoveItem(0), draft.ErrSubmissionInProgress)
	assert.ErrorIs(t, s.Update(dto.DraftUpdateRequest{Notes: strPtr("tarde")}), draft.ErrSubmissionInProgress)

	close(gw.release)
	require.NoError(t, <-first)
	require.Len(t, gw.last().Items, 1)
	assert.Equal(t, 1, gw.last().Items[0].Quantity)
}

// ── Registro ──────────────────────────────────────────────────────────────────

func TestDraft_OtroUsuarioNoAccede(t *testing.T) {
	m := newManager(widgetCatalog(), clientsDirectory(), &fakeGateway{})
	s, err := m.Open(context.Background(), owner)
	require.NoError(t, err)

	_, err = m.Get(entity.Actor{UserID: "user-2", Role: entity.RoleUser}, s.ID())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestDraft_DescartarCierra(t *testing.T) {
	m := newManager(widgetCatalog(), clientsDirectory(), &fakeGateway{})
	s, err := m.Open(context.Background(), owner)
	require.NoError(t, err)

	require.NoError(t, m.Discard(owner, s.ID()))
	assert.True(t, s.Closed())
	_, err = s.AddItem("p1")
	assert.ErrorIs(t, err, draft.ErrSessionClosed)
	assert.Equal(t, 0, m.Len())
}

func TestDraft_SweepEliminaVencidos(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := newManager(widgetCatalog(), clientsDirectory(), &fakeGateway{})
	m.SetClock(func() time.Time { return now })

	s, err := m.Open(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Sweep())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.True(t, s.Closed())
	_, err = m.Get(owner, s.ID())
	assert.ErrorIs(t, err, draft.ErrDraftNotFound)
}

func TestDraft_FechasInvalidas(t *testing.T) {
	m := newManager(widgetCatalog(), clientsDirectory(), &fakeGateway{})
	s, err := m.Open(context.Background(), owner)
	require.NoError(t, err)

	err = s.Update(dto.DraftUpdateRequest{IssueDate: strPtr("01/03/2026")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = s.Update(dto.DraftUpdateRequest{ClientID: strPtr("desconocido")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
