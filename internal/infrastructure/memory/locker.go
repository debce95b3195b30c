package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/farmacia-stock/internal/application/ports"
)

// WarehouseLocker candado por bodega dentro de un solo proceso (sin Redis).
type WarehouseLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

var _ ports.WarehouseLocker = (*WarehouseLocker)(nil)

// NewWarehouseLocker construye el candado.
func NewWarehouseLocker() *WarehouseLocker {
	return &WarehouseLocker{locks: map[string]chan struct{}{}}
}

// Lock espera el candado de la bodega o hasta que ctx se cancele.
func (l *WarehouseLocker) Lock(ctx context.Context, warehouseID string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[warehouseID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[warehouseID] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
