package restapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jhoicas/Facturation-api/internal/application/billing"
	"github.com/jhoicas/Facturation-api/internal/application/dto"
	"github.com/jhoicas/Facturation-api/internal/domain/entity"
	"github.com/jhoicas/Facturation-api/internal/domain/invoicing"
	"github.com/shopspring/decimal"
)

var (
	_ billing.ProductCatalog  = (*Catalog)(nil)
	_ billing.ClientDirectory = (*Directory)(nil)
	_ billing.InvoiceGateway  = (*Invoices)(nil)
)

// ── Formato de intercambio (camelCase, como el panel) ─────────────────────────

type wireProduct struct {
	ID    string          `json:"id"`
	MID   string          `json:"_id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type wireClient struct {
	ID      string `json:"id"`
	MID     string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	UserID  string `json:"userId"`
}

type wireItem struct {
	ProductID   string      `json:"productId"`
	ProductName string      `json:"productName,omitempty"`
	Quantity    int         `json:"quantity"`
	UnitPrice   json.Number `json:"unitPrice"`
	Total       json.Number `json:"total"`
}

type wireInvoiceRequest struct {
	ClientID  string      `json:"clientId"`
	Items     []wireItem  `json:"items"`
	Subtotal  json.Number `json:"subtotal"`
	TaxRate   json.Number `json:"taxRate"`
	TaxAmount json.Number `json:"taxAmount"`
	Total     json.Number `json:"total"`
	IssueDate string      `json:"issueDate"`
	DueDate   string      `json:"dueDate,omitempty"`
	Notes     string      `json:"notes,omitempty"`
	Status    string      `json:"status"`
}

type wireInvoice struct {
	ID            string          `json:"id"`
	MID           string          `json:"_id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	ClientID      string          `json:"clientId"`
	UserID        string          `json:"userId"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	TaxAmount     decimal.Decimal `json:"taxAmount"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	IssueDate     string          `json:"issueDate"`
	DueDate       string          `json:"dueDate"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"createdAt"`
	Items         []struct {
		ProductID   string          `json:"productId"`
		ProductName string          `json:"productName"`
		Quantity    int             `json:"quantity"`
		UnitPrice   decimal.Decimal `json:"unitPrice"`
		Total       decimal.Decimal `json:"total"`
	} `json:"items"`
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func number(d decimal.Decimal) json.Number { return json.Number(d.String()) }

// onlyDate recorta fechas ISO completas ("2026-03-31T00:00:00.000Z") a AAAA-MM-DD.
func onlyDate(s string) string {
	if len(s) >= len(billing.DateLayout) {
		return s[:len(billing.DateLayout)]
	}
	return s
}

// ── Puertos ───────────────────────────────────────────────────────────────────

// Catalog implementa billing.ProductCatalog con GET /produit.
type Catalog struct{ c *Client }

// Directory implementa billing.ClientDirectory con GET /clients.
type Directory struct{ c *Client }

// Invoices implementa billing.InvoiceGateway con POST /factures/creer.
type Invoices struct{ c *Client }

// Catalog devuelve el puerto de productos.
func (c *Client) Catalog() *Catalog { return &Catalog{c: c} }

// Directory devuelve el puerto de clientes.
func (c *Client) Directory() *Directory { return &Directory{c: c} }

// Invoices devuelve el puerto de facturas.
func (c *Client) Invoices() *Invoices { return &Invoices{c: c} }

// GetAll lista los productos visibles para el token de la petición.
func (p *Catalog) GetAll(ctx context.Context, _ entity.Actor) ([]invoicing.Product, error) {
	var list []wireProduct
	if err := p.c.do(ctx, http.MethodGet, "/produit", nil, &list); err != nil {
		return nil, err
	}
	out := make([]invoicing.Product, 0, len(list))
	for _, w := range list {
		out = append(out, invoicing.Product{ID: firstNonEmpty(w.ID, w.MID), Name: w.Name, Price: w.Price})
	}
	return out, nil
}

// GetAll lista los clientes visibles para el token de la petición.
func (d *Directory) GetAll(ctx context.Context, _ entity.Actor) ([]entity.Client, error) {
	var list []wireClient
	if err := d.c.do(ctx, http.MethodGet, "/clients", nil, &list); err != nil {
		return nil, err
	}
	out := make([]entity.Client, 0, len(list))
	for _, w := range list {
		out = append(out, entity.Client{
			ID:      firstNonEmpty(w.ID, w.MID),
			UserID:  w.UserID,
			Name:    w.Name,
			Email:   w.Email,
			Phone:   w.Phone,
			Address: w.Address,
		})
	}
	return out, nil
}

// Create envía la factura una sola vez; el backend remoto asigna número e ID.
func (g *Invoices) Create(ctx context.Context, actor entity.Actor, p invoicing.Payload) (*dto.InvoiceResponse, error) {
	req := wireInvoiceRequest{
		ClientID:  p.ClientID,
		Items:     make([]wireItem, 0, len(p.Items)),
		Subtotal:  number(p.Subtotal),
		TaxRate:   number(p.TaxRate),
		TaxAmount: number(p.TaxAmount),
		Total:     number(p.Total),
		IssueDate: p.IssueDate.Format(billing.DateLayout),
		Notes:     p.Notes,
		Status:    string(p.Status),
	}
	if p.DueDate != nil {
		req.DueDate = p.DueDate.Format(billing.DateLayout)
	}
	for _, it := range p.Items {
		req.Items = append(req.Items, wireItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   number(it.UnitPrice),
			Total:       number(it.LineTotal),
		})
	}

	var w wireInvoice
	if err := g.c.do(ctx, http.MethodPost, "/factures/creer", req, &w); err != nil {
		return nil, err
	}
	resp := &dto.InvoiceResponse{
		ID:            firstNonEmpty(w.ID, w.MID),
		InvoiceNumber: w.InvoiceNumber,
		ClientID:      firstNonEmpty(w.ClientID, p.ClientID),
		UserID:        firstNonEmpty(w.UserID, actor.UserID),
		Items:         make([]dto.InvoiceItemResponse, 0, len(w.Items)),
		Subtotal:      w.Subtotal,
		TaxRate:       w.TaxRate,
		TaxAmount:     w.TaxAmount,
		Total:         w.Total,
		Status:        firstNonEmpty(w.Status, string(p.Status)),
		IssueDate:     onlyDate(firstNonEmpty(w.IssueDate, req.IssueDate)),
		DueDate:       onlyDate(w.DueDate),
		Notes:         w.Notes,
		CreatedAt:     w.CreatedAt,
	}
	for _, it := range w.Items {
		resp.Items = append(resp.Items, dto.InvoiceItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}
	return resp, nil
}
