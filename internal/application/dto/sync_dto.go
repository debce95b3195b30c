package dto

import "time"

// SyncEventResponse estado de un delta enviado (o por enviar) al marketplace.
type SyncEventResponse struct {
	ID            string     `json:"id"`
	MovementID    string     `json:"movement_id"`
	ProductID     string     `json:"product_id"`
	SKU           string     `json:"sku"`
	Delta         int64      `json:"delta"`
	NewQuantity   int64      `json:"new_quantity"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"last_error,omitempty"`
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
