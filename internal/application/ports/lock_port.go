package ports

import "context"

// WarehouseLocker serializa entre procesos las transiciones que abren una sesión de conteo
// en una bodega (iniciar / reanudar). La unicidad final la garantiza la base de datos.
type WarehouseLocker interface {
	Lock(ctx context.Context, warehouseID string) (unlock func(), err error)
}
