package invoicing

import "errors"

// Condiciones de entrada del editor de facturas. Se reportan al usuario, nunca son fallos internos.
var (
	ErrEmptyCatalog     = errors.New("no hay productos disponibles, cree primero un producto")
	ErrProductNotFound  = errors.New("producto no encontrado en el catálogo")
	ErrItemOutOfRange   = errors.New("índice de línea fuera de rango")
	ErrUnknownField     = errors.New("campo de línea desconocido")
	ErrClientRequired   = errors.New("seleccione un cliente")
	ErrNoItems          = errors.New("agregue al menos un artículo")
	ErrInvalidQuantity  = errors.New("la cantidad debe estar entre 1 y 1000000")
	ErrInvalidUnitPrice = errors.New("el precio unitario no puede ser negativo")
	ErrAmountOutOfRange = errors.New("importe fuera de rango")
	ErrInvalidTaxRate   = errors.New("la tasa de impuesto debe estar entre 0 y 100")
	ErrIssueDateMissing = errors.New("la fecha de emisión es obligatoria")
	ErrDueBeforeIssue   = errors.New("la fecha de vencimiento es anterior a la de emisión")
)
