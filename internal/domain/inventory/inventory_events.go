package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/supplychain/backoffice/internal/domain/shared"
)

// Event types for the inventory ledger
const (
	EventTypeStockReceived          = "inventory.stock_received"
	EventTypeStockReserved          = "inventory.stock_reserved"
	EventTypeStockReleased          = "inventory.stock_released"
	EventTypeStockConsumed          = "inventory.stock_consumed"
	EventTypeStockAdjusted          = "inventory.stock_adjusted"
	EventTypeAverageCostChanged     = "inventory.average_cost_changed"
	EventTypeStockBelowReorderPoint = "inventory.stock_below_reorder_point"
)

const aggregateTypeInventoryRecord = "InventoryRecord"

// StockReceivedEvent is emitted when stock enters inventory
type StockReceivedEvent struct {
	shared.BaseDomainEvent
	Quantity      int64           `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	QuantityAfter int64           `json:"quantity_after"`
}

// NewStockReceivedEvent creates a new StockReceivedEvent
func NewStockReceivedEvent(record *InventoryRecord, quantity int64, unitCost decimal.Decimal) *StockReceivedEvent {
	return &StockReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReceived, aggregateTypeInventoryRecord, record.ID),
		Quantity:        quantity,
		UnitCost:        unitCost,
		QuantityAfter:   record.QuantityOnHand,
	}
}

// StockReservedEvent is emitted when stock is earmarked for an order
type StockReservedEvent struct {
	shared.BaseDomainEvent
	Quantity       int64 `json:"quantity"`
	AvailableAfter int64 `json:"available_after"`
}

// NewStockReservedEvent creates a new StockReservedEvent
func NewStockReservedEvent(record *InventoryRecord, quantity int64) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReserved, aggregateTypeInventoryRecord, record.ID),
		Quantity:        quantity,
		AvailableAfter:  record.QuantityAvailable,
	}
}

// StockReleasedEvent is emitted when a reservation is cancelled
type StockReleasedEvent struct {
	shared.BaseDomainEvent
	Quantity       int64 `json:"quantity"`
	AvailableAfter int64 `json:"available_after"`
}

// NewStockReleasedEvent creates a new StockReleasedEvent
func NewStockReleasedEvent(record *InventoryRecord, quantity int64) *StockReleasedEvent {
	return &StockReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReleased, aggregateTypeInventoryRecord, record.ID),
		Quantity:        quantity,
		AvailableAfter:  record.QuantityAvailable,
	}
}

// StockConsumedEvent is emitted when a reservation is spent at shipment
type StockConsumedEvent struct {
	shared.BaseDomainEvent
	Quantity      int64 `json:"quantity"`
	QuantityAfter int64 `json:"quantity_after"`
}

// NewStockConsumedEvent creates a new StockConsumedEvent
func NewStockConsumedEvent(record *InventoryRecord, quantity int64) *StockConsumedEvent {
	return &StockConsumedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockConsumed, aggregateTypeInventoryRecord, record.ID),
		Quantity:        quantity,
		QuantityAfter:   record.QuantityOnHand,
	}
}

// StockAdjustedEvent is emitted on manual stock corrections
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	Delta         int64  `json:"delta"`
	QuantityAfter int64  `json:"quantity_after"`
	Reason        string `json:"reason"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(record *InventoryRecord, delta int64, reason string) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, aggregateTypeInventoryRecord, record.ID),
		Delta:           delta,
		QuantityAfter:   record.QuantityOnHand,
		Reason:          reason,
	}
}

// AverageCostChangedEvent is emitted when the weighted average cost moves
type AverageCostChangedEvent struct {
	shared.BaseDomainEvent
	OldCost decimal.Decimal `json:"old_cost"`
	NewCost decimal.Decimal `json:"new_cost"`
}

// NewAverageCostChangedEvent creates a new AverageCostChangedEvent
func NewAverageCostChangedEvent(record *InventoryRecord, oldCost, newCost decimal.Decimal) *AverageCostChangedEvent {
	return &AverageCostChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAverageCostChanged, aggregateTypeInventoryRecord, record.ID),
		OldCost:         oldCost,
		NewCost:         newCost,
	}
}

// StockBelowReorderPointEvent is emitted when stock drops to or below the
// reorder point. Consumed by the replenishment collaborator.
type StockBelowReorderPointEvent struct {
	shared.BaseDomainEvent
	QuantityOnHand  int64       `json:"quantity_on_hand"`
	ReorderPoint    int64       `json:"reorder_point"`
	ReorderQuantity int64       `json:"reorder_quantity"`
	Status          StockStatus `json:"status"`
}

// NewStockBelowReorderPointEvent creates a new StockBelowReorderPointEvent
func NewStockBelowReorderPointEvent(record *InventoryRecord) *StockBelowReorderPointEvent {
	return &StockBelowReorderPointEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowReorderPoint, aggregateTypeInventoryRecord, record.ID),
		QuantityOnHand:  record.QuantityOnHand,
		ReorderPoint:    record.ReorderPoint,
		ReorderQuantity: record.ReorderQuantity,
		Status:          record.StockStatus,
	}
}
