package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrConflict               = errors.New("conflicto con el estado actual")
	ErrInvalidMovement        = errors.New("movimiento inválido")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrConcurrentModification = errors.New("modificación concurrente, reintente la operación")
	ErrSyncAdapter            = errors.New("sincronización externa fallida")
	ErrSessionState           = errors.New("operación no permitida en el estado actual de la sesión")
	ErrSessionInProgress      = errors.New("ya existe una sesión de conteo en curso para la bodega")
)

// InvalidMovementError rechaza un movimiento cuyo signo no corresponde a su tipo.
// No se persiste nada cuando se devuelve.
type InvalidMovementError struct {
	Type     string
	Quantity int64
	Reason   string
}

func (e *InvalidMovementError) Error() string {
	return fmt.Sprintf("movimiento inválido (%s, %d): %s", e.Type, e.Quantity, e.Reason)
}

func (e *InvalidMovementError) Unwrap() error { return ErrInvalidMovement }

// InsufficientStockError indica que el movimiento dejaría el stock en negativo.
type InsufficientStockError struct {
	ProductID string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: disponible %d, solicitado %d", e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// SessionStateError indica una acción inválida para el estado de la sesión de conteo.
type SessionStateError struct {
	SessionID string
	Status    string
	Action    string
}

func (e *SessionStateError) Error() string {
	return fmt.Sprintf("sesión %s en estado %q no admite %q", e.SessionID, e.Status, e.Action)
}

func (e *SessionStateError) Unwrap() error { return ErrSessionState }

// SessionInProgressError obliga al cliente a decidir entre guardar (pausar) o descartar
// la sesión en curso antes de iniciar otra en la misma bodega.
type SessionInProgressError struct {
	WarehouseID string
	SessionID   string
}

func (e *SessionInProgressError) Error() string {
	return fmt.Sprintf("la bodega %s ya tiene la sesión %s en curso", e.WarehouseID, e.SessionID)
}

func (e *SessionInProgressError) Unwrap() error { return ErrSessionInProgress }

// SyncAdapterError envuelve un fallo del sistema externo. Nunca revierte el ledger.
type SyncAdapterError struct {
	SKU     string
	Attempt int
	Err     error
}

func (e *SyncAdapterError) Error() string {
	return fmt.Sprintf("sync %s (intento %d): %v", e.SKU, e.Attempt, e.Err)
}

func (e *SyncAdapterError) Unwrap() []error { return []error{ErrSyncAdapter, e.Err} }
