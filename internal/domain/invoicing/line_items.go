package invoicing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Product entrada del catálogo usada para sembrar y re-sembrar líneas.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Field campo editable de una línea.
type Field string

// Campos editables de una línea.
const (
	FieldProductID Field = "productId"
	FieldQuantity  Field = "quantity"
	FieldUnitPrice Field = "unitPrice"
)

// ParseField acepta el nombre camelCase del panel o su variante snake_case.
func ParseField(s string) (Field, error) {
	switch strings.TrimSpace(s) {
	case "productId", "product_id":
		return FieldProductID, nil
	case "quantity":
		return FieldQuantity, nil
	case "unitPrice", "unit_price":
		return FieldUnitPrice, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// LineItem una línea de un borrador de factura.
// LineTotal siempre es Quantity × UnitPrice; una cantidad no positiva aporta 0.
type LineItem struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// NewLineItem construye una línea con su total ya derivado.
func NewLineItem(productID, productName string, quantity int, unitPrice decimal.Decimal) LineItem {
	it := LineItem{
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	}
	it.recompute()
	return it
}

func (it *LineItem) recompute() {
	it.LineTotal = lineTotal(it.Quantity, it.UnitPrice)
}

func lineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// LineItemStore lista ordenada y mutable de líneas de un borrador.
// El orden de inserción es el orden de presentación; un mismo producto puede repetirse.
// No es seguro para uso concurrente: el dueño (la sesión de borrador) serializa el acceso.
type LineItemStore struct {
	items   []LineItem
	catalog []Product
}

// NewLineItemStore crea un store vacío con el catálogo dado (puede ser nil y cargarse después).
func NewLineItemStore(catalog []Product) *LineItemStore {
	s := &LineItemStore{}
	s.SetCatalog(catalog)
	return s
}

// SetCatalog reemplaza el catálogo usado por AddItem y por los cambios de producto.
// Las líneas existentes no se modifican.
func (s *LineItemStore) SetCatalog(catalog []Product) {
	s.catalog = append([]Product(nil), catalog...)
}

// Catalog devuelve una copia del catálogo actual.
func (s *LineItemStore) Catalog() []Product {
	return append([]Product(nil), s.catalog...)
}

// Lookup busca un producto del catálogo por ID.
func (s *LineItemStore) Lookup(productID string) (Product, bool) {
	for _, p := range s.catalog {
		if p.ID == productID {
			return p, true
		}
	}
	return Product{}, false
}

// Items devuelve una copia de las líneas en orden.
func (s *LineItemStore) Items() []LineItem {
	return append([]LineItem(nil), s.items...)
}

// Len número de líneas.
func (s *LineItemStore) Len() int { return len(s.items) }

// AddItem agrega al final una línea sembrada desde el producto productID (o el primero del
// catálogo si productID está vacío), con cantidad 1 y total igual al precio.
func (s *LineItemStore) AddItem(productID string) (LineItem, error) {
	if len(s.catalog) == 0 {
		return LineItem{}, ErrEmptyCatalog
	}
	p := s.catalog[0]
	if productID != "" {
		var ok bool
		if p, ok = s.Lookup(productID); !ok {
			return LineItem{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
	}
	it := NewLineItem(p.ID, p.Name, 1, p.Price)
	s.items = append(s.items, it)
	return it, nil
}

// RemoveItem elimina la línea index; las siguientes se desplazan una posición.
func (s *LineItemStore) RemoveItem(index int) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.items = append(s.items[:index], s.items[index+1:]...)
	return nil
}

// UpdateItem modifica un campo de la línea index a partir del texto ingresado y recalcula su total.
//
//   - productId: si el producto existe se copian nombre y precio; si no, la línea queda igual.
//   - quantity / unitPrice: un texto no numérico se guarda como 0.
func (s *LineItemStore) UpdateItem(index int, field Field, value string) (LineItem, error) {
	if err := s.checkIndex(index); err != nil {
		return LineItem{}, err
	}
	switch field {
	case FieldProductID:
		return s.SetProduct(index, strings.TrimSpace(value))
	case FieldQuantity:
		return s.SetQuantity(index, parseQuantity(value))
	case FieldUnitPrice:
		return s.SetUnitPrice(index, parseAmount(value))
	}
	return LineItem{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// SetProduct cambia el producto de la línea index. Un ID desconocido no modifica nada.
func (s *LineItemStore) SetProduct(index int, productID string) (LineItem, error) {
	if err := s.checkIndex(index); err != nil {
		return LineItem{}, err
	}
	p, ok := s.Lookup(productID)
	if !ok {
		return s.items[index], nil
	}
	it := &s.items[index]
	it.ProductID = p.ID
	it.ProductName = p.Name
	it.UnitPrice = p.Price
	it.recompute()
	return *it, nil
}

// SetQuantity fija la cantidad de la línea index.
func (s *LineItemStore) SetQuantity(index, quantity int) (LineItem, error) {
	if err := s.checkIndex(index); err != nil {
		return LineItem{}, err
	}
	it := &s.items[index]
	it.Quantity = quantity
	it.recompute()
	return *it, nil
}

// SetUnitPrice fija el precio unitario de la línea index.
func (s *LineItemStore) SetUnitPrice(index int, unitPrice decimal.Decimal) (LineItem, error) {
	if err := s.checkIndex(index); err != nil {
		return LineItem{}, err
	}
	it := &s.items[index]
	it.UnitPrice = unitPrice
	it.recompute()
	return *it, nil
}

func (s *LineItemStore) checkIndex(index int) error {
	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("%w: %d (líneas: %d)", ErrItemOutOfRange, index, len(s.items))
	}
	return nil
}

// parseQuantity interpreta el texto como entero; "2.7" se trunca a 2. Lo no numérico
// o fuera de ±MaxQuantity vale 0.
func parseQuantity(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return boundQuantity(n)
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !AmountInRange(d) {
		return 0
	}
	return boundQuantity(int(d.IntPart()))
}

func boundQuantity(n int) int {
	if n > MaxQuantity || n < -MaxQuantity {
		return 0
	}
	return n
}

// parseAmount interpreta un importe aceptando coma decimal; lo no numérico o fuera de
// rango vale 0.
func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.Replace(strings.TrimSpace(s), ",", ".", 1))
	if err != nil || !AmountInRange(d) {
		return decimal.Zero
	}
	return d
}
