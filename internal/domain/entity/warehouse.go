package entity

import "time"

// Warehouse representa una bodega o sucursal donde se realizan conteos físicos.
type Warehouse struct {
	ID        string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
