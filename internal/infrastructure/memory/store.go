// Package memory implementa los repositorios en memoria con la misma semántica que
// los de PostgreSQL. Se usa con DB_DRIVER=memory (demos, desarrollo) y en los tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/Facturation-api/internal/application/billing"
	"github.com/jhoicas/Facturation-api/internal/domain"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.UserRepository     = (*UserRepo)(nil)
	_ repository.ClientRepository   = (*ClientRepo)(nil)
	_ repository.ProductRepository  = (*ProductRepo)(nil)
	_ repository.InvoiceRepository  = (*InvoiceRepo)(nil)
	_ repository.SettingsRepository = (*SettingsRepo)(nil)
	_ billing.InvoiceTxRunner       = (*Store)(nil)
)

type seqKey struct {
	prefix string
	year   int
}

// Store datos compartidos por todos los repositorios en memoria.
type Store struct {
	mu        sync.RWMutex
	txMu      sync.Mutex
	users     map[string]entity.User
	clients   map[string]entity.Client
	products  map[string]entity.Product
	invoices  map[string]entity.Invoice
	sequences map[seqKey]int
	settings  *entity.BillingSettings
}

// New crea un almacén vacío.
func New() *Store {
	return &Store{
		users:     make(map[string]entity.User),
		clients:   make(map[string]entity.Client),
		products:  make(map[string]entity.Product),
		invoices:  make(map[string]entity.Invoice),
		sequences: make(map[seqKey]int),
	}
}

func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }
func (s *Store) Clients() *ClientRepo { return &ClientRepo{s: s} }
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }
func (s *Store) Invoices() *InvoiceRepo { return &InvoiceRepo{s: s} }
func (s *Store) Settings() *SettingsRepo { return &SettingsRepo{s: s} }

// RunInvoice serializa las transacciones de facturas. Si fn falla se restauran
// facturas y consecutivos al estado previo.
func (s *Store) RunInvoice(ctx context.Context, fn func(invoiceRepo repository.InvoiceRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	invoices := maps.Clone(s.invoices)
	sequences := maps.Clone(s.sequences)
	s.mu.RUnlock()

	if err := fn(s.Invoices()); err != nil {
		s.mu.Lock()
		s.invoices = invoices
		s.sequences = sequences
		s.mu.Unlock()
		return err
	}
	return nil
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

// ──────────────────────────────────────────────────────────────────────────────
// Users
// ──────────────────────────────────────────────────────────────────────────────

// UserRepo repositorio de usuarios en memoria.
type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.emailTaken(u.Email, "") {
		return domain.ErrEmailAlreadyExists
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepo) emailTaken(email, exceptID string) bool {
	for id, u := range r.s.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) List(_ context.Context, limit, offset int) ([]*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entity.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		list = append(list, &u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return page(list, limit, offset), nil
}

func (r *UserRepo) Update(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return domain.ErrEmailAlreadyExists
	}
	r.s.users[u.ID] = *u
	return nil
}

// Delete elimina el usuario y en cascada sus clientes, productos y facturas.
func (r *UserRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.s.users, id)
	maps.DeleteFunc(r.s.invoices, func(_ string, inv entity.Invoice) bool { return inv.UserID == id })
	maps.DeleteFunc(r.s.clients, func(_ string, c entity.Client) bool { return c.UserID == id })
	maps.DeleteFunc(r.s.products, func(_ string, p entity.Product) bool { return p.UserID == id })
	return nil
}

func (r *UserRepo) CountAdmins(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, u := range r.s.users {
		if u.Role == entity.RoleAdmin && u.IsActive {
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Clients
// ──────────────────────────────────────────────────────────────────────────────

// ClientRepo repositorio de clientes en memoria.
type ClientRepo struct{ s *Store }

func (r *ClientRepo) Create(_ context.Context, c *entity.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clients[c.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.clients[c.ID] = *c
	return nil
}

func (r *ClientRepo) GetByID(_ context.Context, id string) (*entity.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *ClientRepo) owned(userID string) []*entity.Client {
	list := make([]*entity.Client, 0)
	for _, c := range r.s.clients {
		if userID == "" || c.UserID == userID {
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func (r *ClientRepo) List(_ context.Context, userID string, limit, offset int) ([]*entity.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return page(r.owned(userID), limit, offset), nil
}

func (r *ClientRepo) Count(_ context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.owned(userID)), nil
}

func (r *ClientRepo) Update(_ context.Context, c *entity.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clients[c.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.clients[c.ID] = *c
	return nil
}

// Delete falla con ErrConflict si el cliente tiene facturas.
func (r *ClientRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clients[id]; !ok {
		return domain.ErrNotFound
	}
	for _, inv := range r.s.invoices {
		if inv.ClientID == id {
			return domain.ErrConflict
		}
	}
	delete(r.s.clients, id)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Products
// ──────────────────────────────────────────────────────────────────────────────

// ProductRepo repositorio de productos en memoria.
type ProductRepo struct{ s *Store }

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *ProductRepo) owned(userID string) []*entity.Product {
	list := make([]*entity.Product, 0)
	for _, p := range r.s.products {
		if userID == "" || p.UserID == userID {
			list = append(list, &p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func (r *ProductRepo) List(_ context.Context, userID string, limit, offset int) ([]*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return page(r.owned(userID), limit, offset), nil
}

func (r *ProductRepo) Count(_ context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.owned(userID)), nil
}

func (r *ProductRepo) Update(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r *ProductRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Invoices
// ──────────────────────────────────────────────────────────────────────────────

// InvoiceRepo repositorio de facturas en memoria. Las líneas se copian al guardar y al leer.
type InvoiceRepo struct{ s *Store }

func cloneInvoice(inv entity.Invoice) *entity.Invoice {
	inv.Items = slices.Clone(inv.Items)
	return &inv
}

func (r *InvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.invoices {
		if other.InvoiceNumber == inv.InvoiceNumber {
			return domain.ErrDuplicate
		}
	}
	r.s.invoices[inv.ID] = *cloneInvoice(*inv)
	return nil
}

func (r *InvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, nil
	}
	return cloneInvoice(inv), nil
}

// List devuelve cabeceras sin líneas, por fecha de emisión y número descendentes.
func (r *InvoiceRepo) List(_ context.Context, f entity.InvoiceListFilter) ([]*entity.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entity.Invoice, 0)
	for _, inv := range r.s.invoices {
		if f.UserID != "" && inv.UserID != f.UserID {
			continue
		}
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		inv.Items = nil
		list = append(list, &inv)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].IssueDate.Equal(list[j].IssueDate) {
			return list[i].IssueDate.After(list[j].IssueDate)
		}
		return list[i].InvoiceNumber > list[j].InvoiceNumber
	})
	return page(list, f.Limit, f.Offset), nil
}

func (r *InvoiceRepo) Update(_ context.Context, inv *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.invoices[inv.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.invoices[inv.ID] = *cloneInvoice(*inv)
	return nil
}

func (r *InvoiceRepo) UpdateStatus(_ context.Context, id string, status entity.InvoiceStatus, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.Status = status
	inv.UpdatedAt = updatedAt
	r.s.invoices[id] = inv
	return nil
}

func (r *InvoiceRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.invoices[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.invoices, id)
	return nil
}

func (r *InvoiceRepo) NextSequence(_ context.Context, prefix string, year int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := seqKey{prefix: prefix, year: year}
	r.s.sequences[k]++
	return r.s.sequences[k], nil
}

func (r *InvoiceRepo) CountByClient(_ context.Context, clientID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, inv := range r.s.invoices {
		if inv.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func (r *InvoiceRepo) SummaryByStatus(_ context.Context, userID string) ([]entity.InvoiceStatusSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	acc := make(map[entity.InvoiceStatus]*entity.InvoiceStatusSummary)
	for _, inv := range r.s.invoices {
		if userID != "" && inv.UserID != userID {
			continue
		}
		sum, ok := acc[inv.Status]
		if !ok {
			sum = &entity.InvoiceStatusSummary{Status: inv.Status, Total: decimal.Zero}
			acc[inv.Status] = sum
		}
		sum.Count++
		sum.Total = sum.Total.Add(inv.Total)
	}
	out := make([]entity.InvoiceStatusSummary, 0, len(acc))
	for _, sum := range acc {
		out = append(out, *sum)
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Settings
// ──────────────────────────────────────────────────────────────────────────────

// SettingsRepo parámetros de facturación en memoria.
type SettingsRepo struct{ s *Store }

func (r *SettingsRepo) Get(_ context.Context) (*entity.BillingSettings, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.settings == nil {
		return nil, nil
	}
	cp := *r.s.settings
	return &cp, nil
}

func (r *SettingsRepo) Save(_ context.Context, settings *entity.BillingSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *settings
	r.s.settings = &cp
	return nil
}
