package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/supplychain/backoffice/internal/application/ledger"
	"github.com/supplychain/backoffice/internal/domain/inventory"
	"github.com/supplychain/backoffice/internal/domain/order"
)

// TransactionScope emulates transactional semantics over the in-memory
// repositories. State is snapshotted before the function runs and restored
// if it fails, so rollback behavior can be exercised without a database.
// Executions are serialized.
type TransactionScope struct {
	mu        sync.Mutex
	records   *InventoryRecordRepository
	movements *InventoryMovementRepository
	orders    *OrderRepository
}

// NewTransactionScope creates a snapshot-based transaction scope.
func NewTransactionScope(
	records *InventoryRecordRepository,
	movements *InventoryMovementRepository,
	orders *OrderRepository,
) *TransactionScope {
	return &TransactionScope{
		records:   records,
		movements: movements,
		orders:    orders,
	}
}

// Execute runs the function, restoring the pre-call state on error.
func (s *TransactionScope) Execute(_ context.Context, fn func(repos ledger.TransactionalRepositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordsSnap := s.records.snapshot()
	movementsSnap := s.movements.snapshot()
	ordersSnap := s.orders.snapshot()

	if err := fn(s); err != nil {
		s.records.restore(recordsSnap)
		s.movements.restore(movementsSnap)
		s.orders.restore(ordersSnap)
		return err
	}
	return nil
}

// Records returns the inventory record repository.
func (s *TransactionScope) Records() inventory.InventoryRecordRepository {
	return s.records
}

// Movements returns the movement ledger repository.
func (s *TransactionScope) Movements() inventory.InventoryMovementRepository {
	return s.movements
}

// Orders returns the order repository.
func (s *TransactionScope) Orders() order.Repository {
	return s.orders
}

var _ ledger.TransactionScope = (*TransactionScope)(nil)
var _ ledger.TransactionalRepositories = (*TransactionScope)(nil)

func (repo *InventoryRecordRepository) snapshot() map[uuid.UUID]*inventory.InventoryRecord {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	snap := make(map[uuid.UUID]*inventory.InventoryRecord, len(repo.records))
	for id, record := range repo.records {
		snap[id] = cloneRecord(record)
	}
	return snap
}

func (repo *InventoryRecordRepository) restore(snap map[uuid.UUID]*inventory.InventoryRecord) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.records = make(map[uuid.UUID]*inventory.InventoryRecord, len(snap))
	for _, record := range snap {
		repo.records[record.ID] = cloneRecord(record)
	}
}

func (repo *InventoryMovementRepository) snapshot() []inventory.InventoryMovement {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	snap := make([]inventory.InventoryMovement, len(repo.movements))
	copy(snap, repo.movements)
	return snap
}

func (repo *InventoryMovementRepository) restore(snap []inventory.InventoryMovement) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.movements = make([]inventory.InventoryMovement, len(snap))
	copy(repo.movements, snap)
}

func (repo *OrderRepository) snapshot() map[uuid.UUID]*order.Order {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	snap := make(map[uuid.UUID]*order.Order, len(repo.orders))
	for id, o := range repo.orders {
		snap[id] = cloneOrder(o)
	}
	return snap
}

func (repo *OrderRepository) restore(snap map[uuid.UUID]*order.Order) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.orders = make(map[uuid.UUID]*order.Order, len(snap))
	for _, o := range snap {
		repo.orders[o.ID] = cloneOrder(o)
	}
}
