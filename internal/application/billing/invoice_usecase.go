package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/domain"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/invoicing"
	"github.com/jhoicas/Facturation-api/internal/domain/repository"
)

var _ InvoiceGateway = (*InvoiceUseCase)(nil)

// DateLayout formato de fechas de factura en la API.
const DateLayout = "2006-01-02"

// InvoiceUseCase crea, consulta y gestiona el ciclo de vida de las facturas.
// Implementa InvoiceGateway para los borradores que se envían contra este mismo servicio.
type InvoiceUseCase struct {
	txRunner    InvoiceTxRunner
	invoiceRepo repository.InvoiceRepository
	clientRepo  repository.ClientRepository
	productRepo repository.ProductRepository
	settings    SettingsProvider
	now         func() time.Time
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(
	txRunner InvoiceTxRunner,
	invoiceRepo repository.InvoiceRepository,
	clientRepo repository.ClientRepository,
	productRepo repository.ProductRepository,
	settings SettingsProvider,
) *InvoiceUseCase {
	return &InvoiceUseCase{
		txRunner:    txRunner,
		invoiceRepo: invoiceRepo,
		clientRepo:  clientRepo,
		productRepo: productRepo,
		settings:    settings,
		now:         time.Now,
	}
}

// SetClock reemplaza el reloj (pruebas): fija la fecha de emisión por defecto y el año del consecutivo.
func (uc *InvoiceUseCase) SetClock(now func() time.Time) { uc.now = now }

// FormatInvoiceNumber arma el número visible: FAC-2026-0007.
func FormatInvoiceNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}

// Create implementa InvoiceGateway: valida el payload de un borrador, recalcula los totales
// y persiste la factura con un número nuevo.
func (uc *InvoiceUseCase) Create(ctx context.Context, actor entity.Actor, payload invoicing.Payload) (*dto.InvoiceResponse, error) {
	client, err := uc.accessibleClient(ctx, actor, payload.ClientID)
	if err != nil {
		return nil, err
	}
	for _, it := range payload.Items {
		if _, err := uc.accessibleProduct(ctx, actor, it.ProductID); err != nil {
			return nil, err
		}
	}
	// Recalcular: el payload puede venir de fuera y no se confía en sus totales.
	payload, err = invoicing.BuildPayload(invoicing.Submission{
		ClientID:  payload.ClientID,
		Items:     payload.Items,
		TaxRate:   payload.TaxRate,
		IssueDate: payload.IssueDate,
		DueDate:   payload.DueDate,
		Notes:     payload.Notes,
	})
	if err != nil {
		return nil, err
	}
	return uc.persist(ctx, actor, client, payload)
}

// CreateFromRequest crea una factura desde el body de POST /api/invoices.
func (uc *InvoiceUseCase) CreateFromRequest(ctx context.Context, actor entity.Actor, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	client, err := uc.accessibleClient(ctx, actor, in.ClientID)
	if err != nil {
		return nil, err
	}
	items, err := uc.buildItems(ctx, actor, in.Items)
	if err != nil {
		return nil, err
	}
	cfg, err := uc.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	rate := cfg.TaxRate
	if in.TaxRate != nil {
		rate = *in.TaxRate
	}
	issue, err := parseDateOr(in.IssueDate, uc.today())
	if err != nil {
		return nil, err
	}
	due, err := parseOptionalDate(in.DueDate)
	if err != nil {
		return nil, err
	}
	payload, err := invoicing.BuildPayload(invoicing.Submission{
		ClientID:  client.ID,
		Items:     items,
		TaxRate:   rate,
		IssueDate: issue,
		DueDate:   due,
		Notes:     in.Notes,
	})
	if err != nil {
		return nil, err
	}
	return uc.persist(ctx, actor, client, payload)
}

func (uc *InvoiceUseCase) persist(ctx context.Context, actor entity.Actor, client *entity.Client, p invoicing.Payload) (*dto.InvoiceResponse, error) {
	cfg, err := uc.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	inv := &entity.Invoice{
		ID:        uuid.New().String(),
		ClientID:  p.ClientID,
		UserID:    actor.UserID,
		Items:     toEntityItems(p.Items),
		Subtotal:  p.Subtotal,
		TaxRate:   p.TaxRate,
		TaxAmount: p.TaxAmount,
		Total:     p.Total,
		Status:    p.Status,
		IssueDate: p.IssueDate,
		DueDate:   p.DueDate,
		Notes:     p.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = uc.txRunner.RunInvoice(ctx, func(invoiceRepo repository.InvoiceRepository) error {
		seq, err := invoiceRepo.NextSequence(ctx, cfg.InvoicePrefix, inv.IssueDate.Year())
		if err != nil {
			return err
		}
		inv.InvoiceNumber = FormatInvoiceNumber(cfg.InvoicePrefix, inv.IssueDate.Year(), seq)
		return invoiceRepo.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, client), nil
}

// Get obtiene una factura con su detalle.
func (uc *InvoiceUseCase) Get(ctx context.Context, actor entity.Actor, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	client, _ := uc.clientRepo.GetByID(ctx, inv.ClientID)
	return toInvoiceResponse(inv, client), nil
}

// List lista facturas filtradas por estado y búsqueda (número o nombre del cliente,
// sin distinguir mayúsculas ni acentos). Los administradores ven todas.
func (uc *InvoiceUseCase) List(ctx context.Context, actor entity.Actor, q dto.InvoiceListQuery) (*dto.InvoiceListResponse, error) {
	filtered, clients, err := uc.search(ctx, actor, q)
	if err != nil {
		return nil, err
	}
	q.DefaultPage()
	total := len(filtered)
	start := min(q.Offset, total)
	end := min(start+q.Limit, total)

	out := &dto.InvoiceListResponse{
		Items: make([]dto.InvoiceResponse, 0, end-start),
		Page:  dto.PageResponse{Limit: q.Limit, Offset: q.Offset, Total: total},
	}
	for _, inv := range filtered[start:end] {
		out.Items = append(out.Items, *toInvoiceResponse(inv, clients[inv.ClientID]))
	}
	return out, nil
}

func (uc *InvoiceUseCase) search(ctx context.Context, actor entity.Actor, q dto.InvoiceListQuery) ([]*entity.Invoice, map[string]*entity.Client, error) {
	filter := entity.InvoiceListFilter{UserID: actor.Scope()}
	if s := strings.TrimSpace(q.Status); s != "" && s != "all" {
		st, ok := entity.ParseInvoiceStatus(s)
		if !ok {
			return nil, nil, fmt.Errorf("%w: estado %q desconocido", domain.ErrInvalidInput, s)
		}
		filter.Status = st
	}
	list, err := uc.invoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	clients, err := uc.clientIndex(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	term := foldText(q.Search)
	if term == "" {
		return list, clients, nil
	}
	filtered := make([]*entity.Invoice, 0, len(list))
	for _, inv := range list {
		name := ""
		if c := clients[inv.ClientID]; c != nil {
			name = c.Name
		}
		if strings.Contains(foldText(inv.InvoiceNumber), term) || strings.Contains(foldText(name), term) {
			filtered = append(filtered, inv)
		}
	}
	return filtered, clients, nil
}

// Update modifica una factura en borrador y recalcula sus totales.
func (uc *InvoiceUseCase) Update(ctx context.Context, actor entity.Actor, id string, in dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	inv, err := uc.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !inv.Status.Editable() {
		return nil, fmt.Errorf("%w: solo se editan facturas en borrador", domain.ErrConflict)
	}
	clientID := inv.ClientID
	if in.ClientID != nil {
		clientID = *in.ClientID
	}
	client, err := uc.accessibleClient(ctx, actor, clientID)
	if err != nil {
		return nil, err
	}
	items := fromEntityItems(inv.Items)
	if in.Items != nil {
		if items, err = uc.buildItems(ctx, actor, in.Items); err != nil {
			return nil, err
		}
	}
	rate := inv.TaxRate
	if in.TaxRate != nil {
		rate = *in.TaxRate
	}
	issue := inv.IssueDate
	if in.IssueDate != nil {
		if issue, err = parseDateOr(*in.IssueDate, inv.IssueDate); err != nil {
			return nil, err
		}
	}
	due := inv.DueDate
	if in.DueDate != nil {
		if due, err = parseOptionalDate(*in.DueDate); err != nil {
			return nil, err
		}
	}
	notes := inv.Notes
	if in.Notes != nil {
		notes = *in.Notes
	}
	p, err := invoicing.BuildPayload(invoicing.Submission{
		ClientID:  client.ID,
		Items:     items,
		TaxRate:   rate,
		IssueDate: issue,
		DueDate:   due,
		Notes:     notes,
	})
	if err != nil {
		return nil, err
	}
	inv.ClientID = p.ClientID
	inv.Items = toEntityItems(p.Items)
	inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total = p.Subtotal, p.TaxRate, p.TaxAmount, p.Total
	inv.IssueDate, inv.DueDate, inv.Notes = p.IssueDate, p.DueDate, p.Notes
	inv.UpdatedAt = uc.now()
	if err := uc.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, client), nil
}

// UpdateStatus cambia el estado respetando la política de transiciones.
// Un status vacío avanza al siguiente estado del ciclo draft → sent → paid → draft.
func (uc *InvoiceUseCase) UpdateStatus(ctx context.Context, actor entity.Actor, id, status string) (*dto.InvoiceResponse, error) {
	inv, err := uc.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	next := entity.NextStatus(inv.Status)
	if strings.TrimSpace(status) != "" {
		st, ok := entity.ParseInvoiceStatus(status)
		if !ok {
			return nil, fmt.Errorf("%w: estado %q desconocido", domain.ErrInvalidInput, status)
		}
		next = st
	}
	if !entity.CanTransition(inv.Status, next) {
		return nil, fmt.Errorf("%w: %s → %s", domain.ErrInvalidTransition, inv.Status, next)
	}
	now := uc.now()
	if err := uc.invoiceRepo.UpdateStatus(ctx, inv.ID, next, now); err != nil {
		return nil, err
	}
	inv.Status, inv.UpdatedAt = next, now
	client, _ := uc.clientRepo.GetByID(ctx, inv.ClientID)
	return toInvoiceResponse(inv, client), nil
}

// Delete elimina una factura.
func (uc *InvoiceUseCase) Delete(ctx context.Context, actor entity.Actor, id string) error {
	if _, err := uc.load(ctx, actor, id); err != nil {
		return err
	}
	return uc.invoiceRepo.Delete(ctx, id)
}

func (uc *InvoiceUseCase) load(ctx context.Context, actor entity.Actor, id string) (*entity.Invoice, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if !actor.CanAccess(inv.UserID) {
		return nil, domain.ErrForbidden
	}
	return inv, nil
}

func (uc *InvoiceUseCase) accessibleClient(ctx context.Context, actor entity.Actor, id string) (*entity.Client, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invoicing.ErrClientRequired
	}
	client, err := uc.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: cliente %s", domain.ErrNotFound, id)
	}
	if !actor.CanAccess(client.UserID) {
		return nil, domain.ErrForbidden
	}
	return client, nil
}

func (uc *InvoiceUseCase) accessibleProduct(ctx context.Context, actor entity.Actor, id string) (*entity.Product, error) {
	product, err := uc.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
	}
	if !actor.CanAccess(product.UserID) {
		return nil, domain.ErrForbidden
	}
	return product, nil
}

// buildItems arma las líneas tomando nombre y precio por defecto del catálogo.
func (uc *InvoiceUseCase) buildItems(ctx context.Context, actor entity.Actor, in []dto.InvoiceItemRequest) ([]invoicing.LineItem, error) {
	items := make([]invoicing.LineItem, 0, len(in))
	for _, req := range in {
		product, err := uc.accessibleProduct(ctx, actor, req.ProductID)
		if err != nil {
			return nil, err
		}
		price := product.Price
		if req.UnitPrice != nil {
			price = *req.UnitPrice
		}
		items = append(items, invoicing.NewLineItem(product.ID, product.Name, req.Quantity, price))
	}
	return items, nil
}

func (uc *InvoiceUseCase) clientIndex(ctx context.Context, actor entity.Actor) (map[string]*entity.Client, error) {
	n, err := uc.clientRepo.Count(ctx, actor.Scope())
	if err != nil {
		return nil, err
	}
	list, err := uc.clientRepo.List(ctx, actor.Scope(), max(n, 1), 0)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]*entity.Client, len(list))
	for _, c := range list {
		idx[c.ID] = c
	}
	return idx, nil
}

func (uc *InvoiceUseCase) today() time.Time {
	y, m, d := uc.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDateOr(s string, def time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: fecha %q (formato AAAA-MM-DD)", domain.ErrInvalidInput, s)
	}
	return t, nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseDateOr(s, time.Time{})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func toEntityItems(items []invoicing.LineItem) []entity.InvoiceItem {
	out := make([]entity.InvoiceItem, 0, len(items))
	for i, it := range items {
		out = append(out, entity.InvoiceItem{
			Position:    i,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.LineTotal,
		})
	}
	return out
}

func fromEntityItems(items []entity.InvoiceItem) []invoicing.LineItem {
	out := make([]invoicing.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, invoicing.NewLineItem(it.ProductID, it.ProductName, it.Quantity, it.UnitPrice))
	}
	return out
}

func toInvoiceResponse(inv *entity.Invoice, client *entity.Client) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.ClientID,
		UserID:        inv.UserID,
		Items:         make([]dto.InvoiceItemResponse, 0, len(inv.Items)),
		Subtotal:      inv.Subtotal,
		TaxRate:       inv.TaxRate,
		TaxAmount:     inv.TaxAmount,
		Total:         inv.Total,
		Status:        string(inv.Status),
		IssueDate:     inv.IssueDate.Format(DateLayout),
		Notes:         inv.Notes,
		CreatedAt:     inv.CreatedAt,
	}
	if inv.DueDate != nil {
		resp.DueDate = inv.DueDate.Format(DateLayout)
	}
	if client != nil {
		resp.Client = &dto.ClientRef{ID: client.ID, Name: client.Name, Email: client.Email}
	}
	for _, it := range inv.Items {
		resp.Items = append(resp.Items, dto.InvoiceItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}
	return resp
}
