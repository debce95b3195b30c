package stocksync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/farmacia-stock/internal/application/ports"
	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// Config parámetros del despachador del outbox.
type Config struct {
	BatchSize      int
	PollInterval   time.Duration
	LockTimeout    time.Duration // un evento tomado hace más que esto se vuelve a tomar
	Timeout        time.Duration // por cada push
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Parallelism    int
}

// DefaultConfig valores por defecto.
func DefaultConfig() Config {
	return Config{
		BatchSize:      50,
		PollInterval:   2 * time.Second,
		LockTimeout:    time.Minute,
		Timeout:        10 * time.Second,
		MaxAttempts:    8,
		InitialBackoff: 5 * time.Second,
		MaxBackoff:     30 * time.Minute,
		Parallelism:    4,
	}
}

// Dispatcher envía al marketplace los deltas de entrada encolados por el ledger. Corre fuera de
// la transacción del ledger y nunca lo modifica: un fallo sólo queda registrado en el evento.
type Dispatcher struct {
	events  repository.SyncEventRepository
	adapter ports.SyncAdapter
	cfg     Config
	log     zerolog.Logger
	kick    chan struct{}
	now     func() time.Time
}

var _ ports.SyncNotifier = (*Dispatcher)(nil)

// NewDispatcher construye el despachador; los valores de cfg en cero toman el default.
func NewDispatcher(events repository.SyncEventRepository, adapter ports.SyncAdapter, cfg Config, log zerolog.Logger) *Dispatcher {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = def.LockTimeout
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = def.MaxBackoff
		if cfg.MaxBackoff < cfg.InitialBackoff {
			cfg.MaxBackoff = cfg.InitialBackoff
		}
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = def.Parallelism
	}
	return &Dispatcher{
		events:  events,
		adapter: adapter,
		cfg:     cfg,
		log:     log,
		kick:    make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Notify despierta al despachador sin bloquear (se llama después del commit).
func (d *Dispatcher) Notify() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run procesa el outbox hasta que ctx se cancele.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	d.log.Info().Dur("poll_interval", d.cfg.PollInterval).Msg("despachador de sincronización iniciado")
	for {
		if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			d.log.Error().Err(err).Msg("error tomando eventos de sincronización")
		}
		select {
		case <-ctx.Done():
			d.log.Info().Msg("despachador de sincronización detenido")
			return
		case <-ticker.C:
		case <-d.kick:
		}
	}
}

// DispatchOnce toma un lote de eventos vencidos y los envía con paralelismo acotado.
// Devuelve cuántos eventos procesó.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	now := d.now()
	claimed, err := d.events.ClaimDue(ctx, now, now.Add(-d.cfg.LockTimeout), d.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim sync events: %w", err)
	}
	var g errgroup.Group
	g.SetLimit(d.cfg.Parallelism)
	for _, ev := range claimed {
		g.Go(func() error {
			d.push(ctx, ev)
			return nil
		})
	}
	_ = g.Wait()
	return len(claimed), nil
}

func (d *Dispatcher) push(ctx context.Context, ev *entity.SyncEvent) {
	pctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	res, err := d.adapter.PushReceivingDelta(pctx, ev.SKU, ev.Delta, ev.NewQuantity)
	cancel()
	if err == nil && !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "sin detalle"
		}
		err = fmt.Errorf("%w: %s", ports.ErrSyncRejected, msg)
	}

	now := d.now()
	if err == nil {
		if mErr := d.events.MarkSent(ctx, ev.ID, now); mErr != nil {
			d.log.Error().Err(mErr).Str("event_id", ev.ID).Msg("no se pudo marcar el evento como enviado")
		}
		return
	}

	syncErr := &domain.SyncAdapterError{SKU: ev.SKU, Attempt: ev.Attempts, Err: err}
	dead := ev.Attempts >= d.cfg.MaxAttempts || errors.Is(err, ports.ErrSyncRejected)
	var next *time.Time
	if !dead {
		t := now.Add(d.Backoff(ev.Attempts))
		next = &t
	}
	if mErr := d.events.MarkFailed(ctx, ev.ID, syncErr.Error(), next, dead, now); mErr != nil {
		d.log.Error().Err(mErr).Str("event_id", ev.ID).Msg("no se pudo registrar el fallo de sincronización")
	}
	if dead {
		d.log.Error().Err(syncErr).
			Str("event_id", ev.ID).Str("movement_id", ev.MovementID).Str("sku", ev.SKU).
			Int("attempt", ev.Attempts).
			Msg("sincronización abandonada")
		return
	}
	d.log.Warn().Err(syncErr).
		Str("event_id", ev.ID).Str("sku", ev.SKU).
		Int("attempt", ev.Attempts).Time("next_attempt_at", *next).
		Msg("sincronización fallida, se reintentará")
}

// Backoff espera antes del siguiente intento: InitialBackoff * 2^(attempt-1), con tope MaxBackoff.
func (d *Dispatcher) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	wait := d.cfg.InitialBackoff
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= d.cfg.MaxBackoff {
			return d.cfg.MaxBackoff
		}
	}
	return wait
}
