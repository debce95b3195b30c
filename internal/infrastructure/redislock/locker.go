// Package redislock candado distribuido por bodega sobre Redis (bsm/redislock), para que varias
// réplicas de la API no abran a la vez dos sesiones de conteo en la misma bodega.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-stock/internal/application/ports"
	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/pkg/config"
)

var _ ports.WarehouseLocker = (*Locker)(nil)

const (
	keyPrefix  = "farmacia-stock:warehouse-lock:"
	defaultTTL = 30 * time.Second
)

// Locker implementa ports.WarehouseLocker.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	log    zerolog.Logger
}

// NewClient conecta a Redis y verifica con PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// New construye el candado. wait es cuánto se reintenta obtenerlo antes de rendirse.
func New(rdb redis.UniversalClient, wait time.Duration, log zerolog.Logger) *Locker {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Locker{client: redislock.New(rdb), ttl: defaultTTL, wait: wait, log: log}
}

// Lock obtiene el candado de la bodega; si otro proceso lo retiene más de wait devuelve ErrConflict.
func (l *Locker) Lock(ctx context.Context, warehouseID string) (func(), error) {
	const step = 100 * time.Millisecond
	retries := int(l.wait / step)
	lock, err := l.client.Obtain(ctx, keyPrefix+warehouseID, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(step), retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: la bodega está siendo modificada por otro proceso", domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("redis lock: %w", err)
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn().Err(err).Str("warehouse_id", warehouseID).Msg("no se pudo liberar el candado de bodega")
		}
	}, nil
}
