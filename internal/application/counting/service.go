package counting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-stock/internal/application/inventory"
	"github.com/jhoicas/farmacia-stock/internal/application/ports"
	"github.com/jhoicas/farmacia-stock/internal/domain"
	"github.com/jhoicas/farmacia-stock/internal/domain/entity"
	"github.com/jhoicas/farmacia-stock/internal/domain/repository"
)

// ReconciliationReason motivo de los ajustes emitidos al completar una sesión.
const ReconciliationReason = "Stock count reconciliation"

// Políticas ante una sesión en curso al iniciar otra en la misma bodega.
const (
	OnConflictFail    = ""
	OnConflictPause   = "pause"
	OnConflictDiscard = "discard"
)

// Service flujo de conteo físico. Las sesiones viven en el servidor para poder reanudarse
// desde otro cliente o proceso.
type Service struct {
	ledger     *inventory.Ledger
	sessions   repository.CountingSessionRepository
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	locker     ports.WarehouseLocker
	exporters  map[string]ports.ReportExporter
	log        zerolog.Logger
	now        func() time.Time
}

// NewService construye el caso de uso. locker puede ser nil (un solo proceso).
func NewService(
	ledger *inventory.Ledger,
	sessions repository.CountingSessionRepository,
	products repository.ProductRepository,
	warehouses repository.WarehouseRepository,
	locker ports.WarehouseLocker,
	log zerolog.Logger,
	exporters ...ports.ReportExporter,
) *Service {
	s := &Service{
		ledger:     ledger,
		sessions:   sessions,
		products:   products,
		warehouses: warehouses,
		locker:     locker,
		exporters:  make(map[string]ports.ReportExporter, len(exporters)),
		log:        log,
		now:        time.Now,
	}
	for _, e := range exporters {
		s.exporters[e.Format()] = e
	}
	return s
}

// StartRequest entrada de Start.
type StartRequest struct {
	WarehouseID string
	Name        string
	OnConflict  string
	Actor       string
}

// Start abre una sesión in_progress vacía. Si la bodega ya tiene una en curso se exige una
// decisión explícita: fallar, pausarla o descartarla.
func (s *Service) Start(ctx context.Context, in StartRequest) (*entity.CountingSession, error) {
	if in.WarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	switch in.OnConflict {
	case OnConflictFail, OnConflictPause, OnConflictDiscard:
	default:
		return nil, fmt.Errorf("%w: on_conflict debe ser pause o discard", domain.ErrInvalidInput)
	}
	if s.warehouses != nil {
		w, err := s.warehouses.GetByID(ctx, in.WarehouseID)
		if err != nil {
			return nil, err
		}
		if w == nil {
			return nil, domain.ErrNotFound
		}
	}
	unlock, err := s.lock(ctx, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var session *entity.CountingSession
	err = s.ledger.RunInTx(ctx, func(r ports.Repos) error {
		now := s.now()
		current, err := r.Sessions.FindInProgress(ctx, in.WarehouseID)
		if err != nil {
			return err
		}
		if current != nil {
			if in.OnConflict == OnConflictFail {
				return &domain.SessionInProgressError{WarehouseID: in.WarehouseID, SessionID: current.ID}
			}
			locked, err := r.Sessions.GetForUpdate(ctx, current.ID)
			if err != nil {
				return err
			}
			if locked == nil {
				return domain.ErrNotFound
			}
			if in.OnConflict == OnConflictPause {
				err = locked.Pause(now)
			} else {
				err = locked.Discard(now)
			}
			if err != nil {
				return err
			}
			if err := r.Sessions.Save(ctx, locked); err != nil {
				return err
			}
			s.log.Info().Str("session_id", locked.ID).Str("status", string(locked.Status)).Msg("sesión en curso cerrada para iniciar otra")
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = "Conteo " + now.Format("2006-01-02 15:04")
		}
		session = entity.NewCountingSession(uuid.New().String(), in.WarehouseID, name, in.Actor, now)
		return r.Sessions.Create(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("session_id", session.ID).Str("warehouse_id", session.WarehouseID).Msg("sesión de conteo iniciada")
	return session, nil
}

// AddItemRequest Query es un código de barras, SKU o nombre; ProductID resuelve una
// desambiguación previa.
type AddItemRequest struct {
	SessionID string
	Query     string
	ProductID string
}

// AddItemResult Item nil con Candidates cuando la búsqueda por nombre es ambigua.
type AddItemResult struct {
	Item       *entity.CountingItem
	Existing   bool
	Candidates []*entity.Product
}

// AddItem agrega el producto a la sesión con la foto del stock actual. Un producto ya presente
// devuelve su línea existente en lugar de duplicarla.
func (s *Service) AddItem(ctx context.Context, in AddItemRequest) (*AddItemResult, error) {
	current, err := s.Get(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if current.Status != entity.SessionInProgress {
		return nil, &domain.SessionStateError{SessionID: current.ID, Status: string(current.Status), Action: "add_item"}
	}

	productID := in.ProductID
	if productID == "" {
		found, err := inventory.LookupProduct(ctx, s.products, in.Query, inventory.DefaultLookupLimit)
		if err != nil {
			return nil, err
		}
		switch {
		case found.Exact != nil:
			productID = found.Exact.ID
		case len(found.Candidates) == 1:
			productID = found.Candidates[0].ID
		case len(found.Candidates) > 1:
			return &AddItemResult{Candidates: found.Candidates}, nil
		default:
			return nil, fmt.Errorf("%w: ningún producto coincide con %q", domain.ErrNotFound, in.Query)
		}
	}

	out := &AddItemResult{}
	err = s.ledger.RunInTx(ctx, func(r ports.Repos) error {
		session, err := s.lockSession(ctx, r, in.SessionID)
		if err != nil {
			return err
		}
		product, err := r.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		item, existing, err := session.AddItem(uuid.New().String(), product, s.now())
		if err != nil {
			return err
		}
		out.Item, out.Existing = item, existing
		if existing {
			return nil
		}
		return r.Sessions.Save(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordCount registra la cantidad contada de una línea. No toca el ledger.
func (s *Service) RecordCount(ctx context.Context, sessionID, itemID string, counted int64) (*entity.CountingItem, error) {
	if counted < 0 {
		return nil, fmt.Errorf("%w: la cantidad contada no puede ser negativa", domain.ErrInvalidInput)
	}
	var item *entity.CountingItem
	err := s.mutate(ctx, sessionID, func(session *entity.CountingSession, now time.Time) error {
		var err error
		item, err = session.RecordCount(itemID, counted, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Pause persiste la sesión en espera con todas sus líneas.
func (s *Service) Pause(ctx context.Context, sessionID string) (*entity.CountingSession, error) {
	var out *entity.CountingSession
	err := s.mutate(ctx, sessionID, func(session *entity.CountingSession, now time.Time) error {
		out = session
		return session.Pause(now)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Resume retoma una sesión pausada si la bodega no tiene otra en curso.
func (s *Service) Resume(ctx context.Context, sessionID string) (*entity.CountingSession, error) {
	current, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, current.WarehouseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out *entity.CountingSession
	err = s.ledger.RunInTx(ctx, func(r ports.Repos) error {
		session, err := s.lockSession(ctx, r, sessionID)
		if err != nil {
			return err
		}
		other, err := r.Sessions.FindInProgress(ctx, session.WarehouseID)
		if err != nil {
			return err
		}
		if other != nil && other.ID != session.ID {
			return &domain.SessionInProgressError{WarehouseID: session.WarehouseID, SessionID: other.ID}
		}
		if err := session.Resume(s.now()); err != nil {
			return err
		}
		out = session
		return r.Sessions.Save(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteResult sesión completada y los ajustes que emitió.
type CompleteResult struct {
	Session     *entity.CountingSession
	Summary     entity.SessionSummary
	Adjustments []*entity.StockMovement
}

// Complete cierra la sesión y lleva el stock de cada producto contado a la cantidad contada,
// con un adjustment por producto con diferencia, todo en una transacción.
func (s *Service) Complete(ctx context.Context, sessionID, actor string) (*CompleteResult, error) {
	var out *CompleteResult
	var results []*inventory.ApplyResult
	err := s.ledger.RunInTx(ctx, func(r ports.Repos) error {
		out, results = &CompleteResult{}, nil
		session, err := s.lockSession(ctx, r, sessionID)
		if err != nil {
			return err
		}
		if err := session.CanComplete(); err != nil {
			return err
		}
		for _, item := range session.Items {
			if !item.IsCounted() {
				continue
			}
			res, err := s.ledger.AdjustToInTx(ctx, r, inventory.AdjustToRequest{
				ProductID:       item.ProductID,
				CountedQuantity: *item.CountedQuantity,
				Reason:          ReconciliationReason,
				ReferenceType:   entity.ReferenceCountingSession,
				ReferenceID:     session.ID,
				Actor:           actor,
			})
			if err != nil {
				return fmt.Errorf("ajuste de %s: %w", item.SKU, err)
			}
			results = append(results, res)
			if res.Movement != nil {
				out.Adjustments = append(out.Adjustments, res.Movement)
			}
		}
		if err := session.MarkCompleted(s.now()); err != nil {
			return err
		}
		if err := r.Sessions.Save(ctx, session); err != nil {
			return err
		}
		out.Session = session
		out.Summary = session.Summarize()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.ledger.AfterCommit(results...)
	s.log.Info().
		Str("session_id", sessionID).
		Int("adjustments", len(out.Adjustments)).
		Str("value_difference", out.Summary.TotalValueDifference.StringFixed(2)).
		Msg("sesión de conteo completada")
	return out, nil
}

// Discard abandona la sesión sin emitir movimientos.
func (s *Service) Discard(ctx context.Context, sessionID string) (*entity.CountingSession, error) {
	var out *entity.CountingSession
	err := s.mutate(ctx, sessionID, func(session *entity.CountingSession, now time.Time) error {
		out = session
		return session.Discard(now)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get devuelve la sesión con sus líneas.
func (s *Service) Get(ctx context.Context, sessionID string) (*entity.CountingSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

// List sesiones sin líneas; filtros vacíos no filtran.
func (s *Service) List(ctx context.Context, warehouseID, status string, limit, offset int) ([]*entity.CountingSession, error) {
	var st entity.SessionStatus
	if status != "" {
		var ok bool
		if st, ok = entity.ParseSessionStatus(status); !ok {
			return nil, fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, status)
		}
	}
	return s.sessions.List(ctx, warehouseID, st, limit, offset)
}

// Summarize resumen calculado sobre las líneas actuales.
func (s *Service) Summarize(ctx context.Context, sessionID string) (entity.SessionSummary, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return entity.SessionSummary{}, err
	}
	return session.Summarize(), nil
}

// ExportResult archivo generado.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Export genera el reporte de la sesión en el formato pedido.
func (s *Service) Export(ctx context.Context, sessionID, format string) (*ExportResult, error) {
	if format == "" {
		format = "xlsx"
	}
	exp, ok := s.exporters[format]
	if !ok {
		return nil, fmt.Errorf("%w: formato de exportación %q", domain.ErrInvalidInput, format)
	}
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	data, err := exp.Export(session, session.Summarize())
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("conteo-%s.%s", session.ID, exp.Format()),
		ContentType: exp.ContentType(),
		Data:        data,
	}, nil
}

// mutate bloquea la sesión, aplica fn y guarda, en una transacción.
func (s *Service) mutate(ctx context.Context, sessionID string, fn func(*entity.CountingSession, time.Time) error) error {
	return s.ledger.RunInTx(ctx, func(r ports.Repos) error {
		session, err := s.lockSession(ctx, r, sessionID)
		if err != nil {
			return err
		}
		if err := fn(session, s.now()); err != nil {
			return err
		}
		return r.Sessions.Save(ctx, session)
	})
}

func (s *Service) lockSession(ctx context.Context, r ports.Repos, sessionID string) (*entity.CountingSession, error) {
	session, err := r.Sessions.GetForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

func (s *Service) lock(ctx context.Context, warehouseID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	return s.locker.Lock(ctx, warehouseID)
}
