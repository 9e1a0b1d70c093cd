package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/supplychain/backoffice/internal/domain/shared"
)

// Default reorder parameters applied on first receipt, until the stock
// optimizer recommends otherwise.
const (
	DefaultReorderPoint    int64 = 10
	DefaultReorderQuantity int64 = 50
)

// StockStatus is a pure function of the current quantities and the reorder
// point. It is stored as a projection column but never mutated independently.
type StockStatus string

const (
	StockStatusOutOfStock StockStatus = "out_of_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusInStock    StockStatus = "in_stock"
)

// String returns the string representation of StockStatus
func (s StockStatus) String() string {
	return string(s)
}

// InventoryRecord tracks physical stock for one product at one warehouse.
// It is the aggregate root for ledger operations. The composite identifier
// is WarehouseID + ProductID.
//
// Invariant: QuantityOnHand == QuantityAvailable + QuantityReserved holds
// after every operation. QuantityInTransit is tracked separately for
// incoming purchase orders that have not been received yet. All quantities
// are non-negative.
type InventoryRecord struct {
	shared.BaseAggregateRoot
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_record_warehouse_product,priority:2"`
	WarehouseID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_record_warehouse_product,priority:1"`
	SKU               string          `gorm:"type:varchar(64);not null;index:idx_inventory_record_sku"`
	QuantityOnHand    int64           `gorm:"not null;default:0"`
	QuantityReserved  int64           `gorm:"not null;default:0"`
	QuantityAvailable int64           `gorm:"not null;default:0"`
	QuantityInTransit int64           `gorm:"not null;default:0"`
	AverageCost       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Quantity-weighted average cost
	LastPurchaseCost  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReorderPoint      int64           `gorm:"not null;default:10"`
	ReorderQuantity   int64           `gorm:"not null;default:50"`
	StockStatus       StockStatus     `gorm:"type:varchar(20);not null;default:'out_of_stock'"`
	LastMovementAt    *time.Time
}

// TableName returns the table name for GORM
func (InventoryRecord) TableName() string {
	return "inventory_records"
}

// NewInventoryRecord creates a new inventory record for a warehouse-product
// combination. Records are created on first receipt and never deleted; zero
// stock is a valid state.
func NewInventoryRecord(warehouseID, productID uuid.UUID, sku string) (*InventoryRecord, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}

	return &InventoryRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		WarehouseID:       warehouseID,
		SKU:               sku,
		AverageCost:       decimal.Zero,
		LastPurchaseCost:  decimal.Zero,
		ReorderPoint:      DefaultReorderPoint,
		ReorderQuantity:   DefaultReorderQuantity,
		StockStatus:       StockStatusOutOfStock,
	}, nil
}

// Receive increases on-hand and available stock and recomputes the average
// cost as a quantity-weighted average.
func (r *InventoryRecord) Receive(quantity int64, unitCost decimal.Decimal) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Receive quantity must be positive")
	}
	if unitCost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	oldCost := r.AverageCost
	oldQuantity := r.QuantityOnHand

	// newAvg = (oldQty*oldAvg + qty*unitCost) / (oldQty+qty)
	if oldQuantity == 0 {
		r.AverageCost = unitCost
	} else {
		totalValue := decimal.NewFromInt(oldQuantity).Mul(oldCost).
			Add(decimal.NewFromInt(quantity).Mul(unitCost))
		r.AverageCost = totalValue.Div(decimal.NewFromInt(oldQuantity + quantity)).Round(4)
	}
	r.LastPurchaseCost = unitCost

	r.QuantityOnHand += quantity
	r.QuantityAvailable += quantity
	r.touch()

	r.AddDomainEvent(NewStockReceivedEvent(r, quantity, unitCost))
	if !oldCost.Equal(r.AverageCost) {
		r.AddDomainEvent(NewAverageCostChangedEvent(r, oldCost, r.AverageCost))
	}

	return nil
}

// Reserve moves quantity from available to reserved. The persistent path
// enforces this with a guarded conditional update; this method is the
// in-memory equivalent and the validation authority for both.
func (r *InventoryRecord) Reserve(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}
	if r.QuantityAvailable < quantity {
		return shared.ErrInsufficientStock
	}

	r.QuantityAvailable -= quantity
	r.QuantityReserved += quantity
	r.touch()

	r.AddDomainEvent(NewStockReservedEvent(r, quantity))
	return nil
}

// Release moves quantity from reserved back to available. Used when an
// allocation is cancelled before shipment.
func (r *InventoryRecord) Release(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}
	if r.QuantityReserved < quantity {
		return shared.ErrInvalidQuantity
	}

	r.QuantityReserved -= quantity
	r.QuantityAvailable += quantity
	r.touch()

	r.AddDomainEvent(NewStockReleasedEvent(r, quantity))
	return nil
}

// Consume spends a reservation at shipment time: both on-hand and reserved
// decrease, available is untouched.
func (r *InventoryRecord) Consume(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Consume quantity must be positive")
	}
	if r.QuantityReserved < quantity {
		return shared.ErrInvalidQuantity
	}

	r.QuantityReserved -= quantity
	r.QuantityOnHand -= quantity
	r.touch()

	r.AddDomainEvent(NewStockConsumedEvent(r, quantity))
	if r.StockStatus != StockStatusInStock {
		r.AddDomainEvent(NewStockBelowReorderPointEvent(r))
	}
	return nil
}

// Adjust sets on-hand/available directly to match a counted quantity.
// Blocked while reservations are outstanding so the conservation invariant
// cannot be broken by a manual correction.
func (r *InventoryRecord) Adjust(actualQuantity int64, reason string) (delta int64, err error) {
	if actualQuantity < 0 {
		return 0, shared.NewDomainError("INVALID_QUANTITY", "Actual quantity cannot be negative")
	}
	if reason == "" {
		return 0, shared.NewDomainError("INVALID_REASON", "Adjustment reason is required")
	}
	if r.QuantityReserved > 0 {
		return 0, shared.NewDomainError("HAS_RESERVED_STOCK", "Cannot adjust stock while reservations are outstanding")
	}

	delta = actualQuantity - r.QuantityOnHand
	r.QuantityOnHand = actualQuantity
	r.QuantityAvailable = actualQuantity
	r.touch()

	r.AddDomainEvent(NewStockAdjustedEvent(r, delta, reason))
	return delta, nil
}

// MarkInTransit records quantity ordered from a supplier but not yet received.
func (r *InventoryRecord) MarkInTransit(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "In-transit quantity must be positive")
	}
	r.QuantityInTransit += quantity
	r.touch()
	return nil
}

// ReceiveInTransit converts in-transit quantity into on-hand stock.
func (r *InventoryRecord) ReceiveInTransit(quantity int64, unitCost decimal.Decimal) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Receive quantity must be positive")
	}
	if r.QuantityInTransit < quantity {
		return shared.ErrInvalidQuantity
	}
	r.QuantityInTransit -= quantity
	return r.Receive(quantity, unitCost)
}

// SetReorderParameters updates the reorder point and quantity. Only the
// replenishment collaborator calls this; the optimizer output is advisory.
func (r *InventoryRecord) SetReorderParameters(reorderPoint, reorderQuantity int64) error {
	if reorderPoint < 0 || reorderQuantity <= 0 {
		return shared.NewDomainError("INVALID_REORDER_PARAMS", "Reorder point must be non-negative and reorder quantity positive")
	}
	r.ReorderPoint = reorderPoint
	r.ReorderQuantity = reorderQuantity
	r.touch()
	return nil
}

// RefreshStatus recomputes the derived stock status from current quantities.
func (r *InventoryRecord) RefreshStatus() {
	r.StockStatus = ComputeStockStatus(r.QuantityOnHand, r.ReorderPoint)
}

// ComputeStockStatus derives the stock status from on-hand quantity and the
// reorder point.
func ComputeStockStatus(onHand, reorderPoint int64) StockStatus {
	switch {
	case onHand <= 0:
		return StockStatusOutOfStock
	case onHand <= reorderPoint:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}

// CanFulfill returns true if available stock covers the requested quantity
func (r *InventoryRecord) CanFulfill(quantity int64) bool {
	return r.QuantityAvailable >= quantity
}

// HasAvailableStock returns true if there is available stock
func (r *InventoryRecord) HasAvailableStock() bool {
	return r.QuantityAvailable > 0
}

// TotalValue returns on-hand quantity valued at average cost
func (r *InventoryRecord) TotalValue() decimal.Decimal {
	return decimal.NewFromInt(r.QuantityOnHand).Mul(r.AverageCost)
}

// IsConserved reports whether the conservation invariant holds.
func (r *InventoryRecord) IsConserved() bool {
	return r.QuantityOnHand == r.QuantityAvailable+r.QuantityReserved &&
		r.QuantityOnHand >= 0 && r.QuantityAvailable >= 0 &&
		r.QuantityReserved >= 0 && r.QuantityInTransit >= 0
}

func (r *InventoryRecord) touch() {
	now := time.Now()
	r.UpdatedAt = now
	r.LastMovementAt = &now
	r.IncrementVersion()
	r.RefreshStatus()
}
