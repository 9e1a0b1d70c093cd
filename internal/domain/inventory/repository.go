package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/supplychain/backoffice/internal/domain/shared"
)

// InventoryRecordRepository persists InventoryRecord aggregates.
//
// ReserveQuantity, ReleaseQuantity and ConsumeQuantity are guarded
// conditional updates: the quantity check and the mutation happen in one
// atomic statement, never as separate read-then-write steps. A failed guard
// surfaces as ErrInsufficientStock (reserve) or ErrInvalidQuantity
// (release/consume).
type InventoryRecordRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryRecord, error)
	FindByProductAndWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) (*InventoryRecord, error)
	// FindAvailableBySKU returns records with available stock for the SKU,
	// ordered by descending available quantity (fullest location first).
	FindAvailableBySKU(ctx context.Context, sku string) ([]InventoryRecord, error)
	// FindReservedBySKU returns records holding reservations for the SKU,
	// ordered by descending reserved quantity.
	FindReservedBySKU(ctx context.Context, sku string) ([]InventoryRecord, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]InventoryRecord, error)
	FindBelowReorderPoint(ctx context.Context, warehouseID *uuid.UUID) ([]InventoryRecord, error)
	// GetOrCreate returns the record for the warehouse-product pair,
	// creating it (with default reorder parameters) on first receipt.
	GetOrCreate(ctx context.Context, warehouseID, productID uuid.UUID, sku string) (*InventoryRecord, error)
	Save(ctx context.Context, record *InventoryRecord) error
	// SaveWithLock saves using the aggregate version as an optimistic guard.
	SaveWithLock(ctx context.Context, record *InventoryRecord) error
	ReserveQuantity(ctx context.Context, id uuid.UUID, quantity int64) error
	ReleaseQuantity(ctx context.Context, id uuid.UUID, quantity int64) error
	ConsumeQuantity(ctx context.Context, id uuid.UUID, quantity int64) error
}

// InventoryMovementRepository is the append-only store for ledger entries.
type InventoryMovementRepository interface {
	Append(ctx context.Context, movement *InventoryMovement) error
	// FindByRecord returns all entries for a record ordered by OccurredAt ascending.
	FindByRecord(ctx context.Context, recordID uuid.UUID) ([]InventoryMovement, error)
	// FindLastByRecord returns the most recent entry for a record, or
	// shared.ErrNotFound when the ledger is empty for it.
	FindLastByRecord(ctx context.Context, recordID uuid.UUID) (*InventoryMovement, error)
	// FindInWindow returns entries in [from, to) optionally scoped to a warehouse,
	// ordered by OccurredAt ascending.
	FindInWindow(ctx context.Context, from, to time.Time, warehouseID *uuid.UUID) ([]InventoryMovement, error)
	// FindByProductInWindow returns entries for one product in [from, to),
	// ordered by OccurredAt ascending.
	FindByProductInWindow(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]InventoryMovement, error)
}
