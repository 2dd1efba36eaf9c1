package invoicing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Límites de magnitud de lo que escribe el usuario. Fuera de ellos un importe no se acepta:
// un exponente enorme ("1e100000000") haría que formatearlo cueste minutos.
const (
	MaxAmountDigits = 15 // dígitos enteros
	MaxAmountScale  = 20 // dígitos decimales
	MaxQuantity     = 1_000_000
)

// AmountInRange indica si d tiene a lo sumo MaxAmountDigits dígitos enteros y
// MaxAmountScale decimales. No reescala el valor, así que es barato para cualquier exponente.
func AmountInRange(d decimal.Decimal) bool {
	exp := int(d.Exponent())
	if exp < -MaxAmountScale {
		return false
	}
	return d.NumDigits()+exp <= MaxAmountDigits
}

// ValidateTaxRate exige una tasa entre 0 y 100.
func ValidateTaxRate(rate decimal.Decimal) error {
	if !AmountInRange(rate) || rate.IsNegative() || rate.GreaterThan(hundred) {
		return ErrInvalidTaxRate
	}
	return nil
}

// Totals importes derivados de un conjunto de líneas. Se calculan con precisión completa;
// el redondeo a dos decimales solo ocurre al formatear.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxRate   decimal.Decimal // porcentaje
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// CalculateTotals suma los totales de línea y aplica la tasa (en porcentaje).
// Una lista vacía da todo en cero.
func CalculateTotals(items []LineItem, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal)
	}
	tax := subtotal.Mul(taxRate).Div(hundred)
	return Totals{
		Subtotal:  subtotal,
		TaxRate:   taxRate,
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
	}
}

// ParseTaxRate interpreta la tasa escrita por el usuario ("20", "5,5").
// Un texto vacío, no numérico o fuera de rango vale 0. Una tasa negativa se conserva
// para el cálculo; el envío la rechaza (ValidateTaxRate).
func ParseTaxRate(text string) decimal.Decimal {
	return parseAmount(text)
}

// FormatAmount formatea un importe con dos decimales.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
