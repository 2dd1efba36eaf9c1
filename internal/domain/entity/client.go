package entity

import "time"

// Client representa un cliente facturable de un usuario.
type Client struct {
	ID        string
	UserID    string // propietario
	Name      string
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
