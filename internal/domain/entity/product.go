package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o servicio del catálogo de un usuario.
// Price es el precio unitario por defecto al agregarlo a una factura.
type Product struct {
	ID          string
	UserID      string // propietario
	Name        string
	Description string
	Price       decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
