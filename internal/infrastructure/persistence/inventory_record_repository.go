package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/supplychain/backoffice/internal/domain/inventory"
	"github.com/supplychain/backoffice/internal/domain/shared"
)

// GormInventoryRecordRepository implements InventoryRecordRepository using GORM
type GormInventoryRecordRepository struct {
	db *gorm.DB
}

// NewGormInventoryRecordRepository creates a new GormInventoryRecordRepository
func NewGormInventoryRecordRepository(db *gorm.DB) *GormInventoryRecordRepository {
	return &GormInventoryRecordRepository{db: db}
}

// FindByID finds an inventory record by its ID
func (r *GormInventoryRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryRecord, error) {
	var record inventory.InventoryRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByProductAndWarehouse finds the record for a warehouse-product pair
func (r *GormInventoryRecordRepository) FindByProductAndWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) (*inventory.InventoryRecord, error) {
	var record inventory.InventoryRecord
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindAvailableBySKU finds records with available stock for a SKU, fullest
// location first. This is the candidate order the allocation engine walks.
func (r *GormInventoryRecordRepository) FindAvailableBySKU(ctx context.Context, sku string) ([]inventory.InventoryRecord, error) {
	var records []inventory.InventoryRecord
	if err := r.db.WithContext(ctx).
		Where("sku = ? AND quantity_available > 0", sku).
		Order("quantity_available DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindReservedBySKU finds records holding reservations for a SKU, largest
// reservation first
func (r *GormInventoryRecordRepository) FindReservedBySKU(ctx context.Context, sku string) ([]inventory.InventoryRecord, error) {
	var records []inventory.InventoryRecord
	if err := r.db.WithContext(ctx).
		Where("sku = ? AND quantity_reserved > 0", sku).
		Order("quantity_reserved DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindAll finds all inventory records
func (r *GormInventoryRecordRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.InventoryRecord, error) {
	var records []inventory.InventoryRecord
	query := r.applyFilter(r.db.WithContext(ctx).Model(&inventory.InventoryRecord{}), filter)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindBelowReorderPoint finds records at or below their reorder point
func (r *GormInventoryRecordRepository) FindBelowReorderPoint(ctx context.Context, warehouseID *uuid.UUID) ([]inventory.InventoryRecord, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.InventoryRecord{}).
		Where("quantity_on_hand <= reorder_point")
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}

	var records []inventory.InventoryRecord
	if err := query.Order("quantity_on_hand ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// GetOrCreate returns the record for the warehouse-product pair, creating it
// with default reorder parameters on first receipt. The insert races safely:
// on conflict the existing row wins and is read back.
func (r *GormInventoryRecordRepository) GetOrCreate(ctx context.Context, warehouseID, productID uuid.UUID, sku string) (*inventory.InventoryRecord, error) {
	record, err := inventory.NewInventoryRecord(warehouseID, productID, sku)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "warehouse_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(record).Error; err != nil {
		return nil, err
	}

	return r.FindByProductAndWarehouse(ctx, productID, warehouseID)
}

// Save creates or updates an inventory record
func (r *GormInventoryRecordRepository) Save(ctx context.Context, record *inventory.InventoryRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormInventoryRecordRepository) SaveWithLock(ctx context.Context, record *inventory.InventoryRecord) error {
	result := r.db.WithContext(ctx).
		Model(record).
		Where("id = ? AND version = ?", record.ID, record.Version-1).
		Updates(map[string]interface{}{
			"quantity_on_hand":    record.QuantityOnHand,
			"quantity_reserved":   record.QuantityReserved,
			"quantity_available":  record.QuantityAvailable,
			"quantity_in_transit": record.QuantityInTransit,
			"average_cost":        record.AverageCost,
			"last_purchase_cost":  record.LastPurchaseCost,
			"reorder_point":       record.ReorderPoint,
			"reorder_quantity":    record.ReorderQuantity,
			"stock_status":        record.StockStatus,
			"last_movement_at":    record.LastMovementAt,
			"version":             record.Version,
			"updated_at":          record.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// ReserveQuantity atomically moves quantity from available to reserved.
// The availability check and the decrement are a single guarded UPDATE so
// concurrent reservations serialize on the row and can never oversell.
func (r *GormInventoryRecordRepository) ReserveQuantity(ctx context.Context, id uuid.UUID, quantity int64) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&inventory.InventoryRecord{}).
		Where("id = ? AND quantity_available >= ?", id, quantity).
		Updates(map[string]interface{}{
			"quantity_available": gorm.Expr("quantity_available - ?", quantity),
			"quantity_reserved":  gorm.Expr("quantity_reserved + ?", quantity),
			"last_movement_at":   now,
			"updated_at":         now,
			"version":            gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.guardFailure(ctx, id, shared.ErrInsufficientStock)
	}
	return nil
}

// ReleaseQuantity atomically moves quantity from reserved back to available
func (r *GormInventoryRecordRepository) ReleaseQuantity(ctx context.Context, id uuid.UUID, quantity int64) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&inventory.InventoryRecord{}).
		Where("id = ? AND quantity_reserved >= ?", id, quantity).
		Updates(map[string]interface{}{
			"quantity_reserved":  gorm.Expr("quantity_reserved - ?", quantity),
			"quantity_available": gorm.Expr("quantity_available + ?", quantity),
			"last_movement_at":   now,
			"updated_at":         now,
			"version":            gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.guardFailure(ctx, id, shared.ErrInvalidQuantity)
	}
	return nil
}

// ConsumeQuantity atomically spends a reservation: on-hand and reserved both
// decrease. The stock status projection is recomputed in the same statement.
func (r *GormInventoryRecordRepository) ConsumeQuantity(ctx context.Context, id uuid.UUID, quantity int64) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&inventory.InventoryRecord{}).
		Where("id = ? AND quantity_reserved >= ?", id, quantity).
		Updates(map[string]interface{}{
			"quantity_reserved": gorm.Expr("quantity_reserved - ?", quantity),
			"quantity_on_hand":  gorm.Expr("quantity_on_hand - ?", quantity),
			"stock_status": gorm.Expr(
				"CASE WHEN quantity_on_hand - ? <= 0 THEN 'out_of_stock' "+
					"WHEN quantity_on_hand - ? <= reorder_point THEN 'low_stock' "+
					"ELSE 'in_stock' END", quantity, quantity),
			"last_movement_at": now,
			"updated_at":       now,
			"version":          gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.guardFailure(ctx, id, shared.ErrInvalidQuantity)
	}
	return nil
}

// guardFailure distinguishes a failed guard from a missing row.
func (r *GormInventoryRecordRepository) guardFailure(ctx context.Context, id uuid.UUID, guardErr error) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.InventoryRecord{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return guardErr
}

// applyFilter applies filter options to the query
func (r *GormInventoryRecordRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "warehouse_id":
			query = query.Where("warehouse_id = ?", value)
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "sku":
			query = query.Where("sku = ?", value)
		case "stock_status":
			query = query.Where("stock_status = ?", value)
		case "has_stock":
			if value == true {
				query = query.Where("quantity_available > 0")
			}
		}
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	}

	return query
}

// Ensure GormInventoryRecordRepository implements InventoryRecordRepository
var _ inventory.InventoryRecordRepository = (*GormInventoryRecordRepository)(nil)
