package order

import (
	"github.com/google/uuid"

	"github.com/supplychain/backoffice/internal/domain/shared"
)

// Event types for the order lifecycle
const (
	EventTypeOrderCreated            = "order.created"
	EventTypeOrderConfirmed          = "order.confirmed"
	EventTypeOrderPartiallyAllocated = "order.partially_allocated"
	EventTypeOrderShipped            = "order.shipped"
	EventTypeBackorderCreated        = "order.backorder_created"
)

const aggregateTypeOrder = "Order"

// OrderCreatedEvent is emitted when an order enters the system
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, aggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
	}
}

// OrderConfirmedEvent is emitted when every line item is fully allocated
type OrderConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

// NewOrderConfirmedEvent creates a new OrderConfirmedEvent
func NewOrderConfirmedEvent(o *Order) *OrderConfirmedEvent {
	return &OrderConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderConfirmed, aggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
	}
}

// OrderPartiallyAllocatedEvent is emitted when allocation covered only part
// of the order
type OrderPartiallyAllocatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

// NewOrderPartiallyAllocatedEvent creates a new OrderPartiallyAllocatedEvent
func NewOrderPartiallyAllocatedEvent(o *Order) *OrderPartiallyAllocatedEvent {
	return &OrderPartiallyAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPartiallyAllocated, aggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
	}
}

// OrderShippedEvent is emitted when every line item has shipped in full
type OrderShippedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

// NewOrderShippedEvent creates a new OrderShippedEvent
func NewOrderShippedEvent(o *Order) *OrderShippedEvent {
	return &OrderShippedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderShipped, aggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
	}
}

// BackorderCreatedEvent is emitted when unfulfilled lines spin off into a
// new linked order
type BackorderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber   string    `json:"order_number"`
	ParentOrderID uuid.UUID `json:"parent_order_id"`
}

// NewBackorderCreatedEvent creates a new BackorderCreatedEvent
func NewBackorderCreatedEvent(o *Order, parentID uuid.UUID) *BackorderCreatedEvent {
	return &BackorderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBackorderCreated, aggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		ParentOrderID:   parentID,
	}
}
