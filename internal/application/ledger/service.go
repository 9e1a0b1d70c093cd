package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/supplychain/backoffice/internal/domain/inventory"
	"github.com/supplychain/backoffice/internal/domain/shared"
)

// Service owns the inventory ledger. Every mutator pairs exactly one record
// mutation with exactly one appended movement inside a single transaction;
// the two never commit separately.
type Service struct {
	scope     TransactionScope
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewService creates a ledger service.
func NewService(scope TransactionScope, logger *zap.Logger) *Service {
	return &Service{scope: scope, logger: logger}
}

// SetEventPublisher sets the event publisher for domain events. Events are
// published after the transaction commits.
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Receive books incoming stock. The record for the warehouse-product pair is
// created on first receipt, and the first entry is written as an opening
// balance rather than a purchase.
func (s *Service) Receive(
	ctx context.Context,
	warehouseID, productID uuid.UUID,
	sku string,
	quantity int64,
	unitCost decimal.Decimal,
	ref inventory.Reference,
) (*inventory.InventoryMovement, error) {
	var entry *inventory.InventoryMovement
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.Records().GetOrCreate(ctx, warehouseID, productID, sku)
		if err != nil {
			return err
		}

		opening := record.LastMovementAt == nil && record.QuantityOnHand == 0

		if err := record.Receive(quantity, unitCost); err != nil {
			return err
		}
		if err := repos.Records().SaveWithLock(ctx, record); err != nil {
			return err
		}

		movementType := inventory.MovementTypePurchase
		if opening {
			movementType = inventory.MovementTypeInitialStock
		}
		entry, err = AppendEntry(ctx, repos, record, movementType, quantity, &unitCost, ref, "")
		if err != nil {
			return err
		}

		events = record.GetDomainEvents()
		record.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	return entry, nil
}

// Reserve earmarks available stock for an order. The availability check and
// the decrement happen in one guarded conditional update so concurrent
// reservations can never oversell a location.
func (s *Service) Reserve(
	ctx context.Context,
	productID, warehouseID uuid.UUID,
	quantity int64,
	ref inventory.Reference,
) (*inventory.InventoryMovement, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}

	var entry *inventory.InventoryMovement
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.Records().FindByProductAndWarehouse(ctx, productID, warehouseID)
		if err != nil {
			return err
		}
		if err := repos.Records().ReserveQuantity(ctx, record.ID, quantity); err != nil {
			return err
		}

		// Reload to pick up the guarded update before writing the entry.
		record, err = repos.Records().FindByID(ctx, record.ID)
		if err != nil {
			return err
		}

		entry, err = AppendEntry(ctx, repos, record, inventory.MovementTypeAllocation, -quantity, nil, ref, "")
		if err != nil {
			return err
		}

		events = append(events, inventory.NewStockReservedEvent(record, quantity))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	return entry, nil
}

// Release returns reserved stock to the available pool, for example when an
// allocation is cancelled before shipment.
func (s *Service) Release(
	ctx context.Context,
	productID, warehouseID uuid.UUID,
	quantity int64,
	ref inventory.Reference,
) (*inventory.InventoryMovement, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}

	var entry *inventory.InventoryMovement
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.Records().FindByProductAndWarehouse(ctx, productID, warehouseID)
		if err != nil {
			return err
		}
		if err := repos.Records().ReleaseQuantity(ctx, record.ID, quantity); err != nil {
			return err
		}

		record, err = repos.Records().FindByID(ctx, record.ID)
		if err != nil {
			return err
		}

		entry, err = AppendEntry(ctx, repos, record, inventory.MovementTypeRelease, quantity, nil, ref, "")
		if err != nil {
			return err
		}

		events = append(events, inventory.NewStockReleasedEvent(record, quantity))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	return entry, nil
}

// Consume spends a reservation at shipment time. On-hand and reserved both
// decrease; the entry carries the average cost at the moment of shipment so
// downstream cost-of-goods-sold math reads it straight off the ledger.
func (s *Service) Consume(
	ctx context.Context,
	productID, warehouseID uuid.UUID,
	quantity int64,
	ref inventory.Reference,
) (*inventory.InventoryMovement, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Consume quantity must be positive")
	}

	var entry *inventory.InventoryMovement
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.Records().FindByProductAndWarehouse(ctx, productID, warehouseID)
		if err != nil {
			return err
		}
		if err := repos.Records().ConsumeQuantity(ctx, record.ID, quantity); err != nil {
			return err
		}

		record, err = repos.Records().FindByID(ctx, record.ID)
		if err != nil {
			return err
		}

		unitCost := record.AverageCost
		entry, err = AppendEntry(ctx, repos, record, inventory.MovementTypeSale, -quantity, &unitCost, ref, "")
		if err != nil {
			return err
		}

		events = append(events, inventory.NewStockConsumedEvent(record, quantity))
		if record.StockStatus != inventory.StockStatusInStock {
			events = append(events, inventory.NewStockBelowReorderPointEvent(record))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	return entry, nil
}

// Restock re-enters restockable customer-return stock. It behaves like a
// receipt but is written with its own movement type so returns stay visible
// in the ledger.
func (s *Service) Restock(
	ctx context.Context,
	productID, warehouseID uuid.UUID,
	quantity int64,
	unitCost decimal.Decimal,
	ref inventory.Reference,
) (*inventory.InventoryMovement, error) {
	var entry *inventory.InventoryMovement
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.Records().FindByProductAndWarehouse(ctx, productID, warehouseID)
		if err != nil {
			return err
		}
		if err := record.Receive(quantity, unitCost); err != nil {
			return err
		}
		if err := repos.Records().SaveWithLock(ctx, record); err != nil {
			return err
		}

		entry, err = AppendEntry(ctx, repos, record, inventory.MovementTypeReturn, quantity, &unitCost, ref, "")
		if err != nil {
			return err
		}

		events = record.GetDomainEvents()
		record.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	return entry, nil
}

// WriteOff documents a non-restockable return without changing stock levels.
// The entry is audit-only and is skipped by ledger replay.
func (s *Service) WriteOff(
	ctx context.Context,
	productID, warehouseID uuid.UUID,
	quantity int64,
	ref inventory.Reference,
	reason string,
) (*inventory.InventoryMovement, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Write-off quantity must be positive")
	}

	var entry *inventory.InventoryMovement

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.Records().FindByProductAndWarehouse(ctx, productID, warehouseID)
		if err != nil {
			return err
		}

		entry, err = AppendEntry(ctx, repos, record, inventory.MovementTypeWriteOff, quantity, nil, ref, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Adjust corrects on-hand stock to a counted quantity after a cycle count.
// Blocked while reservations are outstanding. The entry records the signed
// delta between the counted and the booked quantity.
func (s *Service) Adjust(
	ctx context.Context,
	productID, warehouseID uuid.UUID,
	actualQuantity int64,
	reason string,
	ref inventory.Reference,
) (*inventory.InventoryMovement, error) {
	var entry *inventory.InventoryMovement
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.Records().FindByProductAndWarehouse(ctx, productID, warehouseID)
		if err != nil {
			return err
		}

		delta, err := record.Adjust(actualQuantity, reason)
		if err != nil {
			return err
		}
		if err := repos.Records().SaveWithLock(ctx, record); err != nil {
			return err
		}

		entry, err = AppendEntry(ctx, repos, record, inventory.MovementTypeAdjustment, delta, nil, ref, reason)
		if err != nil {
			return err
		}

		events = record.GetDomainEvents()
		record.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	return entry, nil
}

// MarkInTransit records quantity ordered from a supplier that has not
// arrived yet. In-transit stock is tracked outside the conservation
// invariant and the entry is audit-only.
func (s *Service) MarkInTransit(
	ctx context.Context,
	productID, warehouseID uuid.UUID,
	quantity int64,
	ref inventory.Reference,
) (*inventory.InventoryMovement, error) {
	var entry *inventory.InventoryMovement

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.Records().FindByProductAndWarehouse(ctx, productID, warehouseID)
		if err != nil {
			return err
		}
		if err := record.MarkInTransit(quantity); err != nil {
			return err
		}
		if err := repos.Records().SaveWithLock(ctx, record); err != nil {
			return err
		}

		entry, err = AppendEntry(ctx, repos, record, inventory.MovementTypeInTransit, quantity, nil, ref, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ReceiveInTransit converts in-transit quantity into on-hand stock.
func (s *Service) ReceiveInTransit(
	ctx context.Context,
	productID, warehouseID uuid.UUID,
	quantity int64,
	unitCost decimal.Decimal,
	ref inventory.Reference,
) (*inventory.InventoryMovement, error) {
	var entry *inventory.InventoryMovement
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.Records().FindByProductAndWarehouse(ctx, productID, warehouseID)
		if err != nil {
			return err
		}
		if err := record.ReceiveInTransit(quantity, unitCost); err != nil {
			return err
		}
		if err := repos.Records().SaveWithLock(ctx, record); err != nil {
			return err
		}

		entry, err = AppendEntry(ctx, repos, record, inventory.MovementTypePurchase, quantity, &unitCost, ref, "")
		if err != nil {
			return err
		}

		events = record.GetDomainEvents()
		record.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	return entry, nil
}

// RefreshCost records a supplier price-list update without moving stock.
// Only the last purchase cost changes; average cost stays a function of
// actual receipts.
func (s *Service) RefreshCost(
	ctx context.Context,
	productID, warehouseID uuid.UUID,
	newCost decimal.Decimal,
	ref inventory.Reference,
) (*inventory.InventoryMovement, error) {
	if newCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	var entry *inventory.InventoryMovement

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.Records().FindByProductAndWarehouse(ctx, productID, warehouseID)
		if err != nil {
			return err
		}
		record.LastPurchaseCost = newCost
		record.IncrementVersion()
		if err := repos.Records().SaveWithLock(ctx, record); err != nil {
			return err
		}

		entry, err = AppendEntry(ctx, repos, record, inventory.MovementTypeExtractionUpdate, 0, &newCost, ref, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Record returns the current inventory record for a warehouse-product pair.
func (s *Service) Record(ctx context.Context, productID, warehouseID uuid.UUID) (*inventory.InventoryRecord, error) {
	var record *inventory.InventoryRecord
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		record, err = repos.Records().FindByProductAndWarehouse(ctx, productID, warehouseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// History returns the full movement ledger for a record, oldest first.
func (s *Service) History(ctx context.Context, recordID uuid.UUID) ([]inventory.InventoryMovement, error) {
	var movements []inventory.InventoryMovement
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		movements, err = repos.Movements().FindByRecord(ctx, recordID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// CheckConsistency replays the ledger for a record and reports whether the
// replayed on-hand quantity matches the stored projection.
func (s *Service) CheckConsistency(ctx context.Context, recordID uuid.UUID) (bool, error) {
	var consistent bool
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.Records().FindByID(ctx, recordID)
		if err != nil {
			return err
		}
		movements, err := repos.Movements().FindByRecord(ctx, recordID)
		if err != nil {
			return err
		}
		consistent = inventory.ReplayOnHand(movements) == record.QuantityOnHand && record.IsConserved()
		return nil
	})
	if err != nil {
		return false, err
	}
	return consistent, nil
}

// AppendEntry writes one ledger entry reflecting the record state after its
// paired mutation. The running total continues from the last entry.
func AppendEntry(
	ctx context.Context,
	repos TransactionalRepositories,
	record *inventory.InventoryRecord,
	movementType inventory.MovementType,
	quantity int64,
	unitCost *decimal.Decimal,
	ref inventory.Reference,
	reason string,
) (*inventory.InventoryMovement, error) {
	var running int64
	last, err := repos.Movements().FindLastByRecord(ctx, record.ID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	} else {
		running = last.RunningTotal
	}
	if movementType.AffectsOnHand() {
		running += quantity
	}

	entry, err := inventory.NewInventoryMovement(record, movementType, quantity, unitCost, ref, record.QuantityOnHand, running)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		entry.WithReason(reason)
	}
	if err := repos.Movements().Append(ctx, entry); err != nil {
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
