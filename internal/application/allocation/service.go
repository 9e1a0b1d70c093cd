// Package allocation implements multi-warehouse stock allocation for
// customer orders. Allocation walks candidate locations greedily, fullest
// first, and reserves stock through the same guarded path the ledger uses.
package allocation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supplychain/backoffice/internal/application/ledger"
	"github.com/supplychain/backoffice/internal/domain/inventory"
	"github.com/supplychain/backoffice/internal/domain/order"
	"github.com/supplychain/backoffice/internal/domain/shared"
)

// AllocatedPortion is one reservation made for an order line at one warehouse.
type AllocatedPortion struct {
	SKU         string    `json:"sku"`
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	Quantity    int64     `json:"quantity"`
}

// ShortLine is an order line the allocation could not cover in full.
type ShortLine struct {
	SKU       string `json:"sku"`
	Requested int64  `json:"requested"`
	Allocated int64  `json:"allocated"`
	Missing   int64  `json:"missing"`
}

// CreatedBackorder identifies a backorder spun off for the uncovered
// remainder of a partial allocation.
type CreatedBackorder struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
}

// Result summarizes one allocation run.
type Result struct {
	OrderID            uuid.UUID          `json:"order_id"`
	OrderStatus        order.Status       `json:"order_status"`
	AllocatedPortions  []AllocatedPortion `json:"allocated_portions"`
	ShortLines         []ShortLine        `json:"short_lines,omitempty"`
	Backorders         []CreatedBackorder `json:"backorders,omitempty"`
	// UnavailableSKUs lists lines with no available stock at any location.
	UnavailableSKUs    []string `json:"unavailable_skus,omitempty"`
	AllocationComplete bool     `json:"allocation_complete"`
}

// Options control one allocation run.
type Options struct {
	// AllowPartial keeps whatever could be reserved when the order cannot
	// be covered in full. When false the run is all-or-nothing.
	AllowPartial bool
	// CreateBackorder spins the uncovered remainder of a partial run off
	// into a linked backorder within the same transaction.
	CreateBackorder bool
}

// Service is the allocation engine.
type Service struct {
	scope     ledger.TransactionScope
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewService creates an allocation service.
func NewService(scope ledger.TransactionScope, logger *zap.Logger) *Service {
	return &Service{scope: scope, logger: logger}
}

// SetEventPublisher sets the event publisher for domain events.
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Allocate reserves stock for every line of a pending order.
//
// For each line the engine queries locations with available stock ordered by
// descending availability and reserves greedily until the line is covered or
// candidates run out. A reservation that loses a race at one location is not
// fatal; the engine simply moves to the next candidate.
//
// When AllowPartial is false the allocation is all-or-nothing: any shortfall
// fails the whole run, the transaction rolls back and no reservation
// survives. When AllowPartial is true, whatever could be reserved stays
// reserved and the order moves to partially allocated; with CreateBackorder
// also set, the uncovered remainder becomes a linked backorder in the same
// transaction.
//
// Allocation is not idempotent. Only pending orders may be allocated;
// anything else fails with ErrInvalidState.
func (s *Service) Allocate(ctx context.Context, orderID uuid.UUID, opts Options) (*Result, error) {
	var result *Result
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		o, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.IsAllocatable() {
			return shared.ErrInvalidState
		}
		if len(o.Items) == 0 {
			return shared.NewDomainError("EMPTY_ORDER", "Order has no line items to allocate")
		}

		result = &Result{
			OrderID:           o.ID,
			AllocatedPortions: make([]AllocatedPortion, 0),
		}

		for idx := range o.Items {
			item := &o.Items[idx]
			if err := s.allocateLine(ctx, repos, o, item, result); err != nil {
				return err
			}
		}

		complete := o.IsFullyAllocated()
		if !complete && !opts.AllowPartial {
			// Rolling back the transaction undoes every reservation and
			// ledger entry made above.
			return shared.ErrInsufficientStock
		}

		if complete {
			if err := o.MarkConfirmed(); err != nil {
				return err
			}
		} else if len(result.AllocatedPortions) > 0 {
			if err := o.MarkPartiallyAllocated(); err != nil {
				return err
			}
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}

		events = o.GetDomainEvents()
		o.ClearDomainEvents()

		if !complete && opts.CreateBackorder {
			if lines := o.UnfulfilledLines(); len(lines) > 0 {
				backorder, err := order.NewBackorder(o, o.OrderNumber+"-BO", lines)
				if err != nil {
					return err
				}
				if err := repos.Orders().Save(ctx, backorder); err != nil {
					return err
				}
				result.Backorders = append(result.Backorders, CreatedBackorder{
					OrderID:     backorder.ID,
					OrderNumber: backorder.OrderNumber,
				})
				events = append(events, backorder.GetDomainEvents()...)
				backorder.ClearDomainEvents()
			}
		}

		result.OrderStatus = o.Status
		result.AllocationComplete = complete
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	s.logger.Info("order allocated",
		zap.String("order_id", result.OrderID.String()),
		zap.Bool("complete", result.AllocationComplete),
		zap.Int("portions", len(result.AllocatedPortions)),
		zap.Int("short_lines", len(result.ShortLines)),
		zap.Int("backorders", len(result.Backorders)))
	return result, nil
}

// allocateLine reserves stock for one order line across candidate locations.
func (s *Service) allocateLine(
	ctx context.Context,
	repos ledger.TransactionalRepositories,
	o *order.Order,
	item *order.Item,
	result *Result,
) error {
	remaining := item.RemainingQuantity()
	if remaining <= 0 {
		return nil
	}

	candidates, err := repos.Records().FindAvailableBySKU(ctx, item.SKU)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		result.UnavailableSKUs = append(result.UnavailableSKUs, item.SKU)
		result.ShortLines = append(result.ShortLines, ShortLine{
			SKU:       item.SKU,
			Requested: item.Quantity,
			Allocated: item.AllocatedQuantity,
			Missing:   remaining,
		})
		return nil
	}

	for idx := range candidates {
		if remaining == 0 {
			break
		}
		candidate := &candidates[idx]

		take := remaining
		if candidate.QuantityAvailable < take {
			take = candidate.QuantityAvailable
		}
		if take == 0 {
			continue
		}

		if err := repos.Records().ReserveQuantity(ctx, candidate.ID, take); err != nil {
			// A concurrent reservation may have drained this location
			// between the query and the guarded update. Try the next one.
			if errors.Is(err, shared.ErrInsufficientStock) {
				continue
			}
			return err
		}

		reserved, err := repos.Records().FindByID(ctx, candidate.ID)
		if err != nil {
			return err
		}
		if _, err := ledger.AppendEntry(ctx, repos, reserved,
			inventory.MovementTypeAllocation, -take, nil, inventory.OrderReference(o.ID), ""); err != nil {
			return err
		}

		if err := o.RecordAllocation(item.SKU, take); err != nil {
			return err
		}
		result.AllocatedPortions = append(result.AllocatedPortions, AllocatedPortion{
			SKU:         item.SKU,
			ProductID:   item.ProductID,
			WarehouseID: candidate.WarehouseID,
			Quantity:    take,
		})
		remaining -= take
	}

	if remaining > 0 {
		result.ShortLines = append(result.ShortLines, ShortLine{
			SKU:       item.SKU,
			Requested: item.Quantity,
			Allocated: item.AllocatedQuantity,
			Missing:   remaining,
		})
	}
	return nil
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
