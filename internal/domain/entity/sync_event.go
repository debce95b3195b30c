package entity

import "time"

// Estados del outbox de sincronización con el marketplace.
const (
	SyncStatusPending = "pending"
	SyncStatusSent    = "sent"
	SyncStatusFailed  = "failed" // reintentable
	SyncStatusDead    = "dead"   // se agotaron los intentos
)

// SyncEvent delta de entrada pendiente de enviar al marketplace. Se escribe en la misma
// transacción que el movimiento y se despacha después del commit.
type SyncEvent struct {
	ID            string
	MovementID    string
	ProductID     string
	SKU           string
	Delta         int64
	NewQuantity   int64
	Status        string
	Attempts      int
	LastError     string
	NextAttemptAt *time.Time
	LockedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
