package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/supplychain/backoffice/internal/domain/shared"
	"github.com/supplychain/backoffice/internal/domain/shared/valueobject"
)

// Status represents the fulfillment status of a customer order
type Status string

const (
	StatusPending            Status = "pending"
	StatusConfirmed          Status = "confirmed"
	StatusPartiallyAllocated Status = "partially_allocated"
	StatusProcessing         Status = "processing"
	StatusShipped            Status = "shipped"
	StatusPartiallyShipped   Status = "partially_shipped"
	StatusBackorder          Status = "backorder"
	StatusCancelled          Status = "cancelled"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is a known order status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPartiallyAllocated,
		StatusProcessing, StatusShipped, StatusPartiallyShipped,
		StatusBackorder, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusConfirmed || target == StatusPartiallyAllocated || target == StatusCancelled
	case StatusConfirmed, StatusPartiallyAllocated:
		return target == StatusProcessing || target == StatusShipped ||
			target == StatusPartiallyShipped || target == StatusCancelled
	case StatusProcessing, StatusPartiallyShipped:
		return target == StatusShipped || target == StatusPartiallyShipped
	case StatusBackorder:
		// A backorder re-enters the ordinary flow once stock arrives.
		return target == StatusPending || target == StatusCancelled
	case StatusShipped, StatusCancelled:
		return false
	}
	return false
}

// IsAllocatable reports whether the allocation engine may reserve stock for
// an order in this status. Allocation is not idempotent: re-allocating a
// confirmed order would double-reserve.
func (s Status) IsAllocatable() bool {
	return s == StatusPending
}

// IsShippable reports whether shipment may consume reservations
func (s Status) IsShippable() bool {
	switch s {
	case StatusConfirmed, StatusPartiallyAllocated, StatusProcessing, StatusPartiallyShipped:
		return true
	}
	return false
}

// Item is a line item in a customer order
type Item struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null"`
	SKU               string          `gorm:"type:varchar(64);not null"`
	Name              string          `gorm:"type:varchar(255)"`
	Quantity          int64           `gorm:"not null"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AllocatedQuantity int64           `gorm:"not null;default:0"`
	ShippedQuantity   int64           `gorm:"not null;default:0"`
	ReturnedQuantity  int64           `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "order_items"
}

// LineValue returns the ordered value of the line as money
func (i *Item) LineValue() valueobject.Money {
	return valueobject.NewMoneyUSD(i.Amount)
}

// RemainingQuantity returns the quantity not yet allocated
func (i *Item) RemainingQuantity() int64 {
	return i.Quantity - i.AllocatedQuantity
}

// UnshippedQuantity returns the allocated quantity not yet shipped
func (i *Item) UnshippedQuantity() int64 {
	return i.AllocatedQuantity - i.ShippedQuantity
}

// Order is the customer order aggregate root. The order subsystem owns most
// of its lifecycle; the inventory core reads its items and writes back
// status and allocation/shipment outcomes.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber   string     `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	WarehouseID   *uuid.UUID `gorm:"type:uuid;index"` // Preferred shipping warehouse, if any
	ParentOrderID *uuid.UUID `gorm:"type:uuid;index"` // Set on backorders, links to the original order
	Items         []Item     `gorm:"foreignKey:OrderID;references:ID"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status        Status          `gorm:"type:varchar(30);not null;index"`
	ConfirmedAt   *time.Time
	ShippedAt     *time.Time
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a new pending order
func NewOrder(orderNumber string, customerID uuid.UUID) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		CustomerID:        customerID,
		Items:             make([]Item, 0),
		TotalAmount:       decimal.Zero,
		Status:            StatusPending,
	}
	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return o, nil
}

// AddItem adds a line item. Only allowed before allocation.
func (o *Order) AddItem(productID uuid.UUID, sku, name string, quantity int64, unitPrice decimal.Decimal) (*Item, error) {
	if o.Status != StatusPending && o.Status != StatusBackorder {
		return nil, shared.ErrInvalidState
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	for _, item := range o.Items {
		if item.SKU == sku {
			return nil, shared.NewDomainError("DUPLICATE_SKU", "SKU already exists in order, update quantity instead")
		}
	}

	now := time.Now()
	item := Item{
		ID:        uuid.New(),
		OrderID:   o.ID,
		ProductID: productID,
		SKU:       sku,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Amount:    decimal.NewFromInt(quantity).Mul(unitPrice),
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.Items = append(o.Items, item)
	o.recalculateTotal()
	o.UpdatedAt = now
	return &o.Items[len(o.Items)-1], nil
}

// ItemBySKU returns the line item for a SKU, or nil
func (o *Order) ItemBySKU(sku string) *Item {
	for idx := range o.Items {
		if o.Items[idx].SKU == sku {
			return &o.Items[idx]
		}
	}
	return nil
}

// RecordAllocation increases the allocated quantity of a line item
func (o *Order) RecordAllocation(sku string, quantity int64) error {
	item := o.ItemBySKU(sku)
	if item == nil {
		return shared.ErrNotFound
	}
	if quantity <= 0 || item.AllocatedQuantity+quantity > item.Quantity {
		return shared.ErrInvalidQuantity
	}
	item.AllocatedQuantity += quantity
	item.UpdatedAt = time.Now()
	return nil
}

// RecordShipment increases the shipped quantity of a line item.
// Shipping more than was ordered for the line is rejected.
func (o *Order) RecordShipment(sku string, quantity int64) error {
	item := o.ItemBySKU(sku)
	if item == nil {
		return shared.ErrNotFound
	}
	if quantity <= 0 || item.ShippedQuantity+quantity > item.Quantity {
		return shared.ErrInvalidQuantity
	}
	item.ShippedQuantity += quantity
	item.UpdatedAt = time.Now()
	return nil
}

// RecordReturn increases the returned quantity of a line item. Returns are
// validated against the shipped quantity, not just the ordered quantity.
func (o *Order) RecordReturn(sku string, quantity int64) error {
	item := o.ItemBySKU(sku)
	if item == nil {
		return shared.ErrNotFound
	}
	if quantity <= 0 || item.ReturnedQuantity+quantity > item.ShippedQuantity {
		return shared.ErrInvalidQuantity
	}
	item.ReturnedQuantity += quantity
	item.UpdatedAt = time.Now()
	return nil
}

// IsFullyAllocated reports whether every line item is allocated in full
func (o *Order) IsFullyAllocated() bool {
	for idx := range o.Items {
		if o.Items[idx].AllocatedQuantity < o.Items[idx].Quantity {
			return false
		}
	}
	return len(o.Items) > 0
}

// IsFullyShipped reports whether every line item is shipped in full
func (o *Order) IsFullyShipped() bool {
	for idx := range o.Items {
		if o.Items[idx].ShippedQuantity < o.Items[idx].Quantity {
			return false
		}
	}
	return len(o.Items) > 0
}

// UnfulfilledLines returns the item quantities not covered by allocation,
// the raw material for a backorder.
func (o *Order) UnfulfilledLines() []Item {
	lines := make([]Item, 0)
	for idx := range o.Items {
		remaining := o.Items[idx].RemainingQuantity()
		if remaining > 0 {
			line := o.Items[idx]
			line.Quantity = remaining
			line.AllocatedQuantity = 0
			line.ShippedQuantity = 0
			line.ReturnedQuantity = 0
			line.Amount = decimal.NewFromInt(remaining).Mul(line.UnitPrice)
			lines = append(lines, line)
		}
	}
	return lines
}

// transition moves the order to the target status, enforcing the state machine
func (o *Order) transition(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.ErrInvalidState
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return nil
}

// MarkConfirmed transitions the order to confirmed after full allocation
func (o *Order) MarkConfirmed() error {
	if err := o.transition(StatusConfirmed); err != nil {
		return err
	}
	now := time.Now()
	o.ConfirmedAt = &now
	o.AddDomainEvent(NewOrderConfirmedEvent(o))
	return nil
}

// MarkPartiallyAllocated transitions the order after an incomplete allocation
func (o *Order) MarkPartiallyAllocated() error {
	if err := o.transition(StatusPartiallyAllocated); err != nil {
		return err
	}
	o.AddDomainEvent(NewOrderPartiallyAllocatedEvent(o))
	return nil
}

// MarkProcessing transitions the order into pick/pack
func (o *Order) MarkProcessing() error {
	return o.transition(StatusProcessing)
}

// MarkShipped stamps the shipped date; only valid once every line shipped in full
func (o *Order) MarkShipped() error {
	if !o.IsFullyShipped() {
		return shared.ErrInvalidState
	}
	if err := o.transition(StatusShipped); err != nil {
		return err
	}
	now := time.Now()
	o.ShippedAt = &now
	o.AddDomainEvent(NewOrderShippedEvent(o))
	return nil
}

// MarkPartiallyShipped transitions the order after an incomplete shipment
func (o *Order) MarkPartiallyShipped() error {
	if o.Status == StatusPartiallyShipped {
		return nil
	}
	return o.transition(StatusPartiallyShipped)
}

// NewBackorder derives a new order covering the parent's unfulfilled lines.
// The backorder does not touch the ledger until it is allocated and fulfilled
// as an ordinary order later; the relationship to the parent is metadata only.
func NewBackorder(parent *Order, orderNumber string, lines []Item) (*Order, error) {
	if parent == nil {
		return nil, shared.NewDomainError("INVALID_PARENT", "Parent order is required")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_ITEMS", "Backorder requires at least one unfulfilled line")
	}

	bo, err := NewOrder(orderNumber, parent.CustomerID)
	if err != nil {
		return nil, err
	}
	bo.WarehouseID = parent.WarehouseID
	parentID := parent.ID
	bo.ParentOrderID = &parentID

	for _, line := range lines {
		if _, err := bo.AddItem(line.ProductID, line.SKU, line.Name, line.Quantity, line.UnitPrice); err != nil {
			return nil, err
		}
	}

	bo.Status = StatusBackorder
	bo.ClearDomainEvents()
	bo.AddDomainEvent(NewBackorderCreatedEvent(bo, parent.ID))
	return bo, nil
}

// TotalValue returns the order total as money
func (o *Order) TotalValue() valueobject.Money {
	return valueobject.NewMoneyUSD(o.TotalAmount)
}

func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for idx := range o.Items {
		total = total.Add(o.Items[idx].Amount)
	}
	o.TotalAmount = total
}
