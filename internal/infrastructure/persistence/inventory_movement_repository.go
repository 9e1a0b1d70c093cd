package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/supplychain/backoffice/internal/domain/inventory"
	"github.com/supplychain/backoffice/internal/domain/shared"
)

// GormInventoryMovementRepository implements InventoryMovementRepository
// using GORM. The ledger is append-only: this repository exposes no update
// or delete path.
type GormInventoryMovementRepository struct {
	db *gorm.DB
}

// NewGormInventoryMovementRepository creates a new GormInventoryMovementRepository
func NewGormInventoryMovementRepository(db *gorm.DB) *GormInventoryMovementRepository {
	return &GormInventoryMovementRepository{db: db}
}

// Append adds a ledger entry
func (r *GormInventoryMovementRepository) Append(ctx context.Context, movement *inventory.InventoryMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// FindByRecord returns all entries for a record, oldest first
func (r *GormInventoryMovementRepository) FindByRecord(ctx context.Context, recordID uuid.UUID) ([]inventory.InventoryMovement, error) {
	var movements []inventory.InventoryMovement
	if err := r.db.WithContext(ctx).
		Where("inventory_record_id = ?", recordID).
		Order("occurred_at ASC, created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindLastByRecord returns the most recent entry for a record
func (r *GormInventoryMovementRepository) FindLastByRecord(ctx context.Context, recordID uuid.UUID) (*inventory.InventoryMovement, error) {
	var movement inventory.InventoryMovement
	if err := r.db.WithContext(ctx).
		Where("inventory_record_id = ?", recordID).
		Order("occurred_at DESC, created_at DESC").
		First(&movement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// FindInWindow returns entries in [from, to), optionally scoped to a warehouse
func (r *GormInventoryMovementRepository) FindInWindow(ctx context.Context, from, to time.Time, warehouseID *uuid.UUID) ([]inventory.InventoryMovement, error) {
	query := r.db.WithContext(ctx).
		Where("occurred_at >= ? AND occurred_at < ?", from, to)
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}

	var movements []inventory.InventoryMovement
	if err := query.Order("occurred_at ASC").Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByProductInWindow returns entries for one product in [from, to)
func (r *GormInventoryMovementRepository) FindByProductInWindow(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]inventory.InventoryMovement, error) {
	var movements []inventory.InventoryMovement
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND occurred_at >= ? AND occurred_at < ?", productID, from, to).
		Order("occurred_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// Ensure GormInventoryMovementRepository implements InventoryMovementRepository
var _ inventory.InventoryMovementRepository = (*GormInventoryMovementRepository)(nil)
