// Package draft mantiene en memoria las sesiones de edición de facturas: el panel
// las conduce evento a evento y solo al enviarlas se persiste una factura.
package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/Facturation-api/internal/application/billing"
	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/domain"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/invoicing"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSessionClosed        = errors.New("el borrador ya no está disponible")
	ErrSubmissionInProgress = errors.New("el envío de esta factura ya está en curso")
)

// Session un borrador de factura. Todas las operaciones son seguras entre goroutines;
// las llamadas de red (carga y envío) se hacen sin retener el candado.
type Session struct {
	mu sync.Mutex

	id        string
	owner     entity.Actor
	store     *invoicing.LineItemStore
	clients   []entity.Client
	clientID  string
	taxRate   string
	issueDate time.Time
	dueDate   *time.Time
	notes     string
	loadErr   error

	closed     bool
	submitting bool
	touched    time.Time
	ttl        time.Duration
	now        func() time.Time
}

func newSession(id string, owner entity.Actor, taxRate string, ttl time.Duration, now func() time.Time) *Session {
	t := now()
	y, m, d := t.Date()
	return &Session{
		id:        id,
		owner:     owner,
		store:     invoicing.NewLineItemStore(nil),
		taxRate:   taxRate,
		issueDate: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		touched:   t,
		ttl:       ttl,
		now:       now,
	}
}

// ID identificador del borrador.
func (s *Session) ID() string { return s.id }

// Owner actor dueño del borrador.
func (s *Session) Owner() entity.Actor { return s.owner }

// Load trae clientes y productos en paralelo. Cada carga es independiente: la que falla
// deja su lista vacía y el error queda registrado para mostrarlo. Si el borrador se cerró
// mientras tanto, el resultado se descarta.
func (s *Session) Load(ctx context.Context, catalog billing.ProductCatalog, directory billing.ClientDirectory) error {
	var (
		products   []invoicing.Product
		clients    []entity.Client
		productErr error
		clientErr  error
	)
	var g errgroup.Group
	g.Go(func() error {
		products, productErr = catalog.GetAll(ctx, s.owner)
		return nil
	})
	g.Go(func() error {
		clients, clientErr = directory.GetAll(ctx, s.owner)
		return nil
	})
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if productErr == nil {
		s.store.SetCatalog(products)
	}
	if clientErr == nil {
		s.clients = clients
	}
	if err := errors.Join(wrapLoad("productos", productErr), wrapLoad("clientes", clientErr)); err != nil {
		s.loadErr = err
		return err
	}
	s.loadErr = nil
	return nil
}

func wrapLoad(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("carga de %s: %w", what, err)
}

// AddItem agrega una línea sembrada desde el producto (vacío = primer producto).
func (s *Session) AddItem(productID string) (invoicing.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return invoicing.LineItem{}, err
	}
	return s.store.AddItem(productID)
}

// RemoveItem quita la línea index.
func (s *Session) RemoveItem(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	return s.store.RemoveItem(index)
}

// UpdateItem cambia un campo de la línea index con el texto ingresado.
func (s *Session) UpdateItem(index int, field, value string) (invoicing.LineItem, error) {
	f, err := invoicing.ParseField(field)
	if err != nil {
		return invoicing.LineItem{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return invoicing.LineItem{}, err
	}
	return s.store.UpdateItem(index, f, value)
}

// Update modifica cliente, tasa, fechas o notas. Las fechas usan el formato AAAA-MM-DD;
// due_date vacío quita el vencimiento.
func (s *Session) Update(in dto.DraftUpdateRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if in.ClientID != nil {
		id := strings.TrimSpace(*in.ClientID)
		if id != "" && len(s.clients) > 0 && !s.knowsClient(id) {
			return fmt.Errorf("%w: cliente %s", domain.ErrNotFound, id)
		}
		s.clientID = id
	}
	if in.TaxRate != nil {
		s.taxRate = strings.TrimSpace(*in.TaxRate)
	}
	if in.IssueDate != nil {
		t, err := time.Parse(billing.DateLayout, strings.TrimSpace(*in.IssueDate))
		if err != nil {
			return fmt.Errorf("%w: fecha de emisión %q", domain.ErrInvalidInput, *in.IssueDate)
		}
		s.issueDate = t
	}
	if in.DueDate != nil {
		v := strings.TrimSpace(*in.DueDate)
		if v == "" {
			s.dueDate = nil
		} else {
			t, err := time.Parse(billing.DateLayout, v)
			if err != nil {
				return fmt.Errorf("%w: fecha de vencimiento %q", domain.ErrInvalidInput, v)
			}
			s.dueDate = &t
		}
	}
	if in.Notes != nil {
		s.notes = *in.Notes
	}
	return nil
}

// Submit valida el borrador y lo entrega una sola vez al gateway. Sin reintentos:
// si falla, el borrador queda intacto y editable. Tras un envío exitoso se cierra.
func (s *Session) Submit(ctx context.Context, gateway billing.InvoiceGateway) (*dto.InvoiceResponse, error) {
	s.mu.Lock()
	if err := s.editable(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	payload, err := invoicing.BuildPayload(invoicing.Submission{
		ClientID:  s.clientID,
		Items:     s.store.Items(),
		TaxRate:   invoicing.ParseTaxRate(s.taxRate),
		IssueDate: s.issueDate,
		DueDate:   s.dueDate,
		Notes:     s.notes,
	})
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.submitting = true
	s.mu.Unlock()

	resp, err := gateway.Create(ctx, s.owner, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if err != nil {
		return nil, err
	}
	s.closed = true
	return resp, nil
}

// Close descarta el borrador; las cargas pendientes se ignoran al resolver.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Closed indica si el borrador fue cerrado o enviado.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Totals totales derivados del estado actual.
func (s *Session) Totals() invoicing.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return invoicing.CalculateTotals(s.store.Items(), invoicing.ParseTaxRate(s.taxRate))
}

// View instantánea del borrador para la API, con importes formateados.
func (s *Session) View() dto.DraftResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.store.Items()
	totals := invoicing.CalculateTotals(items, invoicing.ParseTaxRate(s.taxRate))
	out := dto.DraftResponse{
		ID:        s.id,
		ClientID:  s.clientID,
		TaxRate:   s.taxRate,
		IssueDate: s.issueDate.Format(billing.DateLayout),
		Notes:     s.notes,
		Items:     make([]dto.DraftItemResponse, 0, len(items)),
		Totals: dto.DraftTotalsResponse{
			Subtotal:  invoicing.FormatAmount(totals.Subtotal),
			TaxRate:   totals.TaxRate.String(),
			TaxAmount: invoicing.FormatAmount(totals.TaxAmount),
			Total:     invoicing.FormatAmount(totals.Total),
		},
		Clients:   make([]dto.ClientRef, 0, len(s.clients)),
		Products:  make([]dto.DraftProductRef, 0),
		ExpiresAt: s.touched.Add(s.ttl),
	}
	if s.dueDate != nil {
		out.DueDate = s.dueDate.Format(billing.DateLayout)
	}
	if s.loadErr != nil {
		out.LoadError = s.loadErr.Error()
	}
	for _, it := range items {
		out.Items = append(out.Items, dto.DraftItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   invoicing.FormatAmount(it.UnitPrice),
			LineTotal:   invoicing.FormatAmount(it.LineTotal),
		})
	}
	for _, c := range s.clients {
		out.Clients = append(out.Clients, dto.ClientRef{ID: c.ID, Name: c.Name, Email: c.Email})
	}
	for _, p := range s.store.Catalog() {
		out.Products = append(out.Products, dto.DraftProductRef{ID: p.ID, Name: p.Name, Price: invoicing.FormatAmount(p.Price)})
	}
	return out
}

func (s *Session) touch() {
	s.mu.Lock()
	s.touched = s.now()
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.submitting && now.Sub(s.touched) > s.ttl
}

// editable rechaza cambios sobre un borrador cerrado o con un envío en curso:
// un envío exitoso cierra el borrador y esos cambios se perderían.
func (s *Session) editable() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.submitting {
		return ErrSubmissionInProgress
	}
	return nil
}

func (s *Session) knowsClient(id string) bool {
	for _, c := range s.clients {
		if c.ID == id {
			return true
		}
	}
	return false
}
