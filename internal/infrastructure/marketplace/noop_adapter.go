package marketplace

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-stock/internal/application/ports"
)

var _ ports.SyncAdapter = (*NoopAdapter)(nil)

// NoopAdapter acepta todo sin enviar nada (SYNC_ENABLED=false o desarrollo local).
type NoopAdapter struct {
	log zerolog.Logger
}

// NewNoopAdapter construye el adaptador.
func NewNoopAdapter(log zerolog.Logger) *NoopAdapter {
	return &NoopAdapter{log: log}
}

func (a *NoopAdapter) PushReceivingDelta(_ context.Context, sku string, delta, newQuantity int64) (ports.SyncResult, error) {
	a.log.Debug().Str("sku", sku).Int64("delta", delta).Int64("new_quantity", newQuantity).Msg("sync deshabilitado, delta descartado")
	return ports.SyncResult{Success: true}, nil
}
