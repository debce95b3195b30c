// Package memory implementa los repositorios en memoria del proceso. Sirve para desarrollo
// (STORE_DRIVER=memory) y para los tests de la capa de aplicación.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/jhoicas/farmacia-stock/internal/application/ports"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
)

type sessionRow struct {
	session entity.CountingSession // sin Items
	items   []entity.CountingItem
}

// state datos confirmados. Los valores se reemplazan, nunca se modifican en sitio, de modo que
// clone puede ser superficial.
type state struct {
	products   map[string]entity.Product
	movements  []entity.StockMovement
	batches    map[string]entity.StockBatch
	sessions   map[string]sessionRow
	syncEvents map[string]entity.SyncEvent
	warehouses map[string]entity.Warehouse
}

func newState() *state {
	return &state{
		products:   map[string]entity.Product{},
		batches:    map[string]entity.StockBatch{},
		sessions:   map[string]sessionRow{},
		syncEvents: map[string]entity.SyncEvent{},
		warehouses: map[string]entity.Warehouse{},
	}
}

func (s *state) clone() *state {
	return &state{
		products:   maps.Clone(s.products),
		movements:  slices.Clone(s.movements),
		batches:    maps.Clone(s.batches),
		sessions:   maps.Clone(s.sessions),
		syncEvents: maps.Clone(s.syncEvents),
		warehouses: maps.Clone(s.warehouses),
	}
}

// Store base de datos en memoria. Las escrituras se serializan (equivale a bloquear todas las
// filas) y cada transacción trabaja sobre una copia que se publica sólo al confirmar.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// view acceso a un estado: el confirmado del store o la copia de una transacción.
type view struct {
	read  func(fn func(st *state))
	write func(fn func(st *state) error) error
}

func (s *Store) committed() *view {
	return &view{
		read: func(fn func(st *state)) {
			s.mu.RLock()
			defer s.mu.RUnlock()
			fn(s.st)
		},
		write: s.update,
	}
}

func txView(work *state) *view {
	return &view{
		read:  func(fn func(st *state)) { fn(work) },
		write: func(fn func(st *state) error) error { return fn(work) },
	}
}

// update ejecuta fn como transacción de una sola operación.
func (s *Store) update(fn func(st *state) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.RLock()
	work := s.st.clone()
	s.mu.RUnlock()
	if err := fn(work); err != nil {
		return err
	}
	s.mu.Lock()
	s.st = work
	s.mu.Unlock()
	return nil
}

// Repos repositorios sobre los datos confirmados.
func (s *Store) Repos() ports.Repos {
	return reposFor(s.committed())
}

func reposFor(v *view) ports.Repos {
	return ports.Repos{
		Products:   &ProductRepo{v: v},
		Movements:  &StockMovementRepo{v: v},
		Batches:    &StockBatchRepo{v: v},
		Sessions:   &CountingSessionRepo{v: v},
		SyncEvents: &SyncEventRepo{v: v},
	}
}

// Warehouses repositorio de bodegas.
func (s *Store) Warehouses() *WarehouseRepo {
	return &WarehouseRepo{v: s.committed()}
}

// TxRunner implementa ports.TxRunner: commit atómico o nada.
type TxRunner struct {
	store *Store
}

var _ ports.TxRunner = (*TxRunner)(nil)

// NewTxRunner construye el runner.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run ejecuta fn con repositorios sobre una copia privada; si fn falla la copia se descarta.
func (t *TxRunner) Run(ctx context.Context, fn func(r ports.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.store.update(func(work *state) error {
		return fn(reposFor(txView(work)))
	})
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
