package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/supplychain/backoffice/internal/domain/shared"
)

// MovementType classifies a ledger entry
type MovementType string

const (
	// MovementTypePurchase is stock received from a supplier
	MovementTypePurchase MovementType = "purchase"
	// MovementTypeSale is stock consumed at shipment
	MovementTypeSale MovementType = "sale"
	// MovementTypeAllocation is stock moved from available to reserved
	MovementTypeAllocation MovementType = "allocation"
	// MovementTypeRelease is stock moved from reserved back to available
	MovementTypeRelease MovementType = "release"
	// MovementTypeReturn is restockable customer-return stock re-entering inventory
	MovementTypeReturn MovementType = "return"
	// MovementTypeAdjustment is a manual stock correction
	MovementTypeAdjustment MovementType = "adjustment"
	// MovementTypeWriteOff documents a non-restockable return; no stock change
	MovementTypeWriteOff MovementType = "write_off"
	// MovementTypeExtractionUpdate documents a cost refresh from price-list ingestion; no stock change
	MovementTypeExtractionUpdate MovementType = "extraction_update"
	// MovementTypeInitialStock is the opening balance entry
	MovementTypeInitialStock MovementType = "initial_stock"
	// MovementTypeInTransit records incoming purchase-order quantity not yet received
	MovementTypeInTransit MovementType = "in_transit"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is known
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypePurchase, MovementTypeSale, MovementTypeAllocation,
		MovementTypeRelease, MovementTypeReturn, MovementTypeAdjustment,
		MovementTypeWriteOff, MovementTypeExtractionUpdate,
		MovementTypeInitialStock, MovementTypeInTransit:
		return true
	}
	return false
}

// AffectsOnHand reports whether entries of this type change on-hand stock.
// Allocation and release only move quantity between available and reserved;
// write-offs, cost refreshes and in-transit entries are audit-only.
func (t MovementType) AffectsOnHand() bool {
	switch t {
	case MovementTypePurchase, MovementTypeSale, MovementTypeReturn,
		MovementTypeAdjustment, MovementTypeInitialStock:
		return true
	}
	return false
}

// IsOutbound reports whether entries of this type represent stock leaving
// inventory. Used by the demand analytics read path.
func (t MovementType) IsOutbound() bool {
	return t == MovementTypeSale
}

// ReferenceType identifies the source document of a movement
type ReferenceType string

const (
	ReferenceTypeOrder   ReferenceType = "order"
	ReferenceTypeReceipt ReferenceType = "receipt"
	ReferenceTypeReturn  ReferenceType = "return"
	ReferenceTypeManual  ReferenceType = "manual"
)

// IsValid returns true if the reference type is known
func (rt ReferenceType) IsValid() bool {
	switch rt {
	case ReferenceTypeOrder, ReferenceTypeReceipt, ReferenceTypeReturn, ReferenceTypeManual:
		return true
	}
	return false
}

// Reference points a movement at the document that caused it
type Reference struct {
	Type ReferenceType
	ID   string
}

// ManualReference builds a reference for operator-initiated movements
func ManualReference(id string) Reference {
	return Reference{Type: ReferenceTypeManual, ID: id}
}

// OrderReference builds a reference to a customer order
func OrderReference(orderID uuid.UUID) Reference {
	return Reference{Type: ReferenceTypeOrder, ID: orderID.String()}
}

// ReceiptReference builds a reference to a purchasing receipt
func ReceiptReference(id string) Reference {
	return Reference{Type: ReferenceTypeReceipt, ID: id}
}

// InventoryMovement is an immutable, append-only ledger entry. The ledger is
// the source of truth; the InventoryRecord is a cached projection of it.
// Corrections are new compensating movements, never edits.
//
// Quantity is signed: positive = inbound, negative = outbound. For
// allocation/release entries the sign tracks the available-side change.
// Replaying the on-hand-affecting entries for a record in OccurredAt order
// reproduces its current QuantityOnHand (see ReplayOnHand).
type InventoryMovement struct {
	shared.BaseEntity
	InventoryRecordID uuid.UUID        `gorm:"type:uuid;not null;index:idx_inv_movement_record"`
	ProductID         uuid.UUID        `gorm:"type:uuid;not null;index:idx_inv_movement_product"`
	WarehouseID       uuid.UUID        `gorm:"type:uuid;not null;index:idx_inv_movement_warehouse"`
	MovementType      MovementType     `gorm:"type:varchar(30);not null;index:idx_inv_movement_type"`
	Quantity          int64            `gorm:"not null"`
	UnitCost          *decimal.Decimal `gorm:"type:decimal(18,4)"`
	ReferenceType     ReferenceType    `gorm:"type:varchar(30);not null;index:idx_inv_movement_ref"`
	ReferenceID       string           `gorm:"type:varchar(64);not null;index:idx_inv_movement_ref"`
	Reason            string           `gorm:"type:varchar(255)"`
	QuantityAfter     int64            `gorm:"not null"` // On-hand quantity after this entry
	RunningTotal      int64            `gorm:"not null"` // Cumulative signed on-hand total
	OccurredAt        time.Time        `gorm:"not null;index:idx_inv_movement_time"`
}

// TableName returns the table name for GORM
func (InventoryMovement) TableName() string {
	return "inventory_movements"
}

// NewInventoryMovement creates a new ledger entry for the given record state.
// quantity is the signed movement quantity; quantityAfter and runningTotal
// must reflect the record after the paired mutation.
func NewInventoryMovement(
	record *InventoryRecord,
	movementType MovementType,
	quantity int64,
	unitCost *decimal.Decimal,
	ref Reference,
	quantityAfter, runningTotal int64,
) (*InventoryMovement, error) {
	if record == nil {
		return nil, shared.NewDomainError("INVALID_RECORD", "Inventory record is required")
	}
	if !movementType.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Invalid movement type")
	}
	if quantity == 0 && movementType != MovementTypeAdjustment && movementType != MovementTypeExtractionUpdate {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Movement quantity cannot be zero")
	}
	if !ref.Type.IsValid() {
		return nil, shared.NewDomainError("INVALID_REFERENCE_TYPE", "Invalid reference type")
	}
	if ref.ID == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE_ID", "Reference ID cannot be empty")
	}
	if unitCost != nil && unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	return &InventoryMovement{
		BaseEntity:        shared.NewBaseEntity(),
		InventoryRecordID: record.ID,
		ProductID:         record.ProductID,
		WarehouseID:       record.WarehouseID,
		MovementType:      movementType,
		Quantity:          quantity,
		UnitCost:          unitCost,
		ReferenceType:     ref.Type,
		ReferenceID:       ref.ID,
		QuantityAfter:     quantityAfter,
		RunningTotal:      runningTotal,
		OccurredAt:        time.Now(),
	}, nil
}

// WithReason attaches a human-readable reason to the entry
func (m *InventoryMovement) WithReason(reason string) *InventoryMovement {
	m.Reason = reason
	return m
}

// OnHandDelta returns the signed on-hand change this entry represents
func (m *InventoryMovement) OnHandDelta() int64 {
	if m.MovementType.AffectsOnHand() {
		return m.Quantity
	}
	return 0
}

// TotalCost returns the absolute cost of the moved quantity, or zero when no
// unit cost was recorded.
func (m *InventoryMovement) TotalCost() decimal.Decimal {
	if m.UnitCost == nil {
		return decimal.Zero
	}
	qty := m.Quantity
	if qty < 0 {
		qty = -qty
	}
	return decimal.NewFromInt(qty).Mul(*m.UnitCost)
}

// ReplayOnHand replays movements in order and returns the resulting on-hand
// quantity. Movements must be sorted by OccurredAt ascending.
func ReplayOnHand(movements []InventoryMovement) int64 {
	var total int64
	for i := range movements {
		total += movements[i].OnHandDelta()
	}
	return total
}
