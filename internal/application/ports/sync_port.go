package ports

import (
	"context"
	"errors"
)

// ErrSyncRejected el sistema externo respondió pero rechazó el delta (no reintentable).
var ErrSyncRejected = errors.New("delta rechazado por el sistema externo")

// SyncResult respuesta del sistema externo.
type SyncResult struct {
	Success bool
	Error   string
}

// SyncAdapter puerto de salida hacia el marketplace. El adaptador resuelve el SKU a su propio
// identificador. Es una llamada de intención idempotente; el contexto debe llevar timeout.
type SyncAdapter interface {
	PushReceivingDelta(ctx context.Context, sku string, delta, newQuantity int64) (SyncResult, error)
}

// SyncNotifier despierta al despachador del outbox después del commit. Nunca bloquea.
type SyncNotifier interface {
	Notify()
}

// NoopNotifier para cuando no hay despachador (tests, sync deshabilitado).
type NoopNotifier struct{}

func (NoopNotifier) Notify() {}
