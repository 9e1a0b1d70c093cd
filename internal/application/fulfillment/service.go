// Package fulfillment drives orders through pick, ship, backorder and
// return. Shipment is the only place reservations are spent; everything
// else reads or rearranges order state.
package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supplychain/backoffice/internal/application/ledger"
	"github.com/supplychain/backoffice/internal/domain/inventory"
	"github.com/supplychain/backoffice/internal/domain/order"
	"github.com/supplychain/backoffice/internal/domain/shared"
	"github.com/supplychain/backoffice/internal/domain/shared/valueobject"
)

// GroupBy selects how pick tasks are grouped.
type GroupBy string

const (
	GroupByWarehouse GroupBy = "warehouse"
	GroupByOrder     GroupBy = "order"
)

// PickTask is one "go to this warehouse, pick this many of this SKU" line.
type PickTask struct {
	WarehouseID uuid.UUID `json:"warehouse_id"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	ProductID   uuid.UUID `json:"product_id"`
	SKU         string    `json:"sku"`
	Quantity    int64     `json:"quantity"`
}

// PickGroup is a labeled batch of pick tasks.
type PickGroup struct {
	Key   string     `json:"key"`
	Tasks []PickTask `json:"tasks"`
}

// PickList is the warehouse-floor work order for a set of allocations.
type PickList struct {
	GroupBy     GroupBy     `json:"group_by"`
	Groups      []PickGroup `json:"groups"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// ShipLine is one SKU quantity to ship.
type ShipLine struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

// ShipmentResult summarizes one shipment.
type ShipmentResult struct {
	OrderID      uuid.UUID         `json:"order_id"`
	OrderStatus  order.Status      `json:"order_status"`
	ShippedLines []ShipLine        `json:"shipped_lines"`
	ShippedValue valueobject.Money `json:"shipped_value"`
	FullyShipped bool              `json:"fully_shipped"`
	ShippedAt    time.Time         `json:"shipped_at"`
}

// Service is the fulfillment workflow service.
type Service struct {
	scope     ledger.TransactionScope
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewService creates a fulfillment service.
func NewService(scope ledger.TransactionScope, logger *zap.Logger) *Service {
	return &Service{scope: scope, logger: logger}
}

// SetEventPublisher sets the event publisher for domain events.
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// GeneratePickList builds pick tasks for the unshipped, allocated lines of
// the given orders. Tasks are matched to the locations currently holding
// reservations for each SKU, largest reservation first, mirroring the order
// the allocation engine reserved in. The pick list is a read model; nothing
// is mutated.
func (s *Service) GeneratePickList(ctx context.Context, orderIDs []uuid.UUID, groupBy GroupBy) (*PickList, error) {
	if groupBy != GroupByWarehouse && groupBy != GroupByOrder {
		return nil, shared.NewDomainError("INVALID_GROUP_BY", "Pick lists group by warehouse or by order")
	}

	var tasks []PickTask
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		orders, err := repos.Orders().FindByIDs(ctx, orderIDs)
		if err != nil {
			return err
		}

		// Reserved balances drain as tasks are planned so two orders never
		// pick the same units.
		reservedLeft := make(map[uuid.UUID]int64)

		for idx := range orders {
			o := &orders[idx]
			if !o.Status.IsShippable() {
				continue
			}
			for itemIdx := range o.Items {
				item := &o.Items[itemIdx]
				remaining := item.UnshippedQuantity()
				if remaining <= 0 {
					continue
				}

				holders, err := repos.Records().FindReservedBySKU(ctx, item.SKU)
				if err != nil {
					return err
				}
				for hIdx := range holders {
					if remaining == 0 {
						break
					}
					holder := &holders[hIdx]
					left, seen := reservedLeft[holder.ID]
					if !seen {
						left = holder.QuantityReserved
					}
					take := remaining
					if left < take {
						take = left
					}
					if take == 0 {
						continue
					}
					tasks = append(tasks, PickTask{
						WarehouseID: holder.WarehouseID,
						OrderID:     o.ID,
						OrderNumber: o.OrderNumber,
						ProductID:   item.ProductID,
						SKU:         item.SKU,
						Quantity:    take,
					})
					reservedLeft[holder.ID] = left - take
					remaining -= take
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &PickList{
		GroupBy:     groupBy,
		Groups:      groupTasks(tasks, groupBy),
		GeneratedAt: time.Now(),
	}, nil
}

func groupTasks(tasks []PickTask, groupBy GroupBy) []PickGroup {
	keyOf := func(t PickTask) string {
		if groupBy == GroupByWarehouse {
			return t.WarehouseID.String()
		}
		return t.OrderID.String()
	}

	groups := make([]PickGroup, 0)
	index := make(map[string]int)
	for _, task := range tasks {
		key := keyOf(task)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, PickGroup{Key: key})
		}
		groups[i].Tasks = append(groups[i].Tasks, task)
	}
	return groups
}

// StartProcessing moves a confirmed or partially allocated order into
// pick/pack.
func (s *Service) StartProcessing(ctx context.Context, orderID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		o, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.MarkProcessing(); err != nil {
			return err
		}
		return repos.Orders().Save(ctx, o)
	})
}

// Ship consumes reservations for the given lines and records the shipment on
// the order. Shipping more than a line's unshipped allocation fails the whole
// call with ErrInvalidQuantity and nothing is consumed. When every line of
// the order has shipped in full the order becomes shipped, otherwise
// partially shipped.
func (s *Service) Ship(ctx context.Context, orderID uuid.UUID, lines []ShipLine) (*ShipmentResult, error) {
	if len(lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_SHIPMENT", "Shipment requires at least one line")
	}

	var result *ShipmentResult
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		o, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.IsShippable() {
			return shared.ErrInvalidState
		}

		shippedValue := valueobject.ZeroUSD()
		for _, line := range lines {
			item := o.ItemBySKU(line.SKU)
			if item == nil {
				return shared.ErrNotFound
			}
			if line.Quantity <= 0 || line.Quantity > item.UnshippedQuantity() {
				return shared.ErrInvalidQuantity
			}
			if err := s.consumeForLine(ctx, repos, o, item, line.Quantity); err != nil {
				return err
			}
			if err := o.RecordShipment(line.SKU, line.Quantity); err != nil {
				return err
			}
			lineValue := valueobject.NewMoneyUSD(item.UnitPrice).MultiplyByInt(line.Quantity)
			shippedValue = shippedValue.MustAdd(lineValue)
		}

		if o.IsFullyShipped() {
			if err := o.MarkShipped(); err != nil {
				return err
			}
		} else {
			if err := o.MarkPartiallyShipped(); err != nil {
				return err
			}
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}

		shippedAt := time.Now()
		if o.ShippedAt != nil {
			shippedAt = *o.ShippedAt
		}
		result = &ShipmentResult{
			OrderID:      o.ID,
			OrderStatus:  o.Status,
			ShippedLines: lines,
			ShippedValue: shippedValue,
			FullyShipped: o.IsFullyShipped(),
			ShippedAt:    shippedAt,
		}
		events = o.GetDomainEvents()
		o.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	s.logger.Info("order shipped",
		zap.String("order_id", result.OrderID.String()),
		zap.String("status", result.OrderStatus.String()),
		zap.Int("lines", len(result.ShippedLines)))
	return result, nil
}

// consumeForLine spends reservations for one shipped line, draining the
// largest reserved balance first.
func (s *Service) consumeForLine(
	ctx context.Context,
	repos ledger.TransactionalRepositories,
	o *order.Order,
	item *order.Item,
	quantity int64,
) error {
	holders, err := repos.Records().FindReservedBySKU(ctx, item.SKU)
	if err != nil {
		return err
	}

	remaining := quantity
	for idx := range holders {
		if remaining == 0 {
			break
		}
		holder := &holders[idx]

		take := remaining
		if holder.QuantityReserved < take {
			take = holder.QuantityReserved
		}
		if take == 0 {
			continue
		}

		if err := repos.Records().ConsumeQuantity(ctx, holder.ID, take); err != nil {
			return err
		}
		consumed, err := repos.Records().FindByID(ctx, holder.ID)
		if err != nil {
			return err
		}
		unitCost := consumed.AverageCost
		if _, err := ledger.AppendEntry(ctx, repos, consumed,
			inventory.MovementTypeSale, -take, &unitCost, inventory.OrderReference(o.ID), ""); err != nil {
			return err
		}
		remaining -= take
	}

	if remaining > 0 {
		// Allocation promised stock that the reservations no longer cover.
		return shared.ErrInvalidQuantity
	}
	return nil
}

// CreateBackorder spins the unfulfilled lines of a partially allocated order
// off into a new linked order. The backorder touches no stock until it is
// allocated as an ordinary order later.
func (s *Service) CreateBackorder(ctx context.Context, orderID uuid.UUID, orderNumber string) (*order.Order, error) {
	var backorder *order.Order
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		parent, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		lines := parent.UnfulfilledLines()
		if len(lines) == 0 {
			return shared.NewDomainError("NOTHING_TO_BACKORDER", "Order has no unfulfilled lines")
		}

		backorder, err = order.NewBackorder(parent, orderNumber, lines)
		if err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, backorder); err != nil {
			return err
		}

		events = backorder.GetDomainEvents()
		backorder.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	return backorder, nil
}

// Return books a customer return against a shipped order line. Restockable
// units in good condition re-enter inventory at the location's current
// average cost; anything else is written off as an audit entry with the
// stated condition.
func (s *Service) Return(
	ctx context.Context,
	orderID uuid.UUID,
	sku string,
	warehouseID uuid.UUID,
	quantity int64,
	restockable bool,
	condition string,
) (*inventory.InventoryMovement, error) {
	var entry *inventory.InventoryMovement

	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		o, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.RecordReturn(sku, quantity); err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}

		item := o.ItemBySKU(sku)
		record, err := repos.Records().FindByProductAndWarehouse(ctx, item.ProductID, warehouseID)
		if err != nil {
			return err
		}

		ref := inventory.Reference{Type: inventory.ReferenceTypeReturn, ID: o.ID.String()}
		if restockable && condition == "good" {
			unitCost := record.AverageCost
			if err := record.Receive(quantity, unitCost); err != nil {
				return err
			}
			if err := repos.Records().SaveWithLock(ctx, record); err != nil {
				return err
			}
			entry, err = ledger.AppendEntry(ctx, repos, record,
				inventory.MovementTypeReturn, quantity, &unitCost, ref, "")
			return err
		}

		entry, err = ledger.AppendEntry(ctx, repos, record,
			inventory.MovementTypeWriteOff, quantity, nil, ref, condition)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events",
			zap.Int("count", len(events)),
			zap.Error(err))
	}
}
