package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/supplychain/backoffice/internal/domain/inventory"
	"github.com/supplychain/backoffice/internal/domain/shared"
)

// InventoryMovementRepository is a thread-safe in-memory movement ledger.
// Entries are append-only; there is no update or delete path.
type InventoryMovementRepository struct {
	mu        sync.RWMutex
	movements []inventory.InventoryMovement
}

// NewInventoryMovementRepository creates an empty in-memory movement ledger.
func NewInventoryMovementRepository() *InventoryMovementRepository {
	return &InventoryMovementRepository{
		movements: make([]inventory.InventoryMovement, 0),
	}
}

// Append adds a ledger entry.
func (repo *InventoryMovementRepository) Append(_ context.Context, movement *inventory.InventoryMovement) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.movements = append(repo.movements, *movement)
	return nil
}

// FindByRecord returns all entries for a record, oldest first.
func (repo *InventoryMovementRepository) FindByRecord(_ context.Context, recordID uuid.UUID) ([]inventory.InventoryMovement, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	result := make([]inventory.InventoryMovement, 0)
	for _, m := range repo.movements {
		if m.InventoryRecordID == recordID {
			result = append(result, m)
		}
	}
	sortByOccurredAt(result)
	return result, nil
}

// FindLastByRecord returns the most recent entry for a record.
func (repo *InventoryMovementRepository) FindLastByRecord(_ context.Context, recordID uuid.UUID) (*inventory.InventoryMovement, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	var last *inventory.InventoryMovement
	for i := range repo.movements {
		m := &repo.movements[i]
		if m.InventoryRecordID != recordID {
			continue
		}
		// Ties go to the later append so same-instant entries resolve in order.
		if last == nil || !m.OccurredAt.Before(last.OccurredAt) {
			last = m
		}
	}
	if last == nil {
		return nil, shared.ErrNotFound
	}
	c := *last
	return &c, nil
}

// FindInWindow returns entries in [from, to), optionally scoped to a warehouse.
func (repo *InventoryMovementRepository) FindInWindow(_ context.Context, from, to time.Time, warehouseID *uuid.UUID) ([]inventory.InventoryMovement, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	result := make([]inventory.InventoryMovement, 0)
	for _, m := range repo.movements {
		if m.OccurredAt.Before(from) || !m.OccurredAt.Before(to) {
			continue
		}
		if warehouseID != nil && m.WarehouseID != *warehouseID {
			continue
		}
		result = append(result, m)
	}
	sortByOccurredAt(result)
	return result, nil
}

// FindByProductInWindow returns entries for one product in [from, to).
func (repo *InventoryMovementRepository) FindByProductInWindow(_ context.Context, productID uuid.UUID, from, to time.Time) ([]inventory.InventoryMovement, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	result := make([]inventory.InventoryMovement, 0)
	for _, m := range repo.movements {
		if m.ProductID != productID {
			continue
		}
		if m.OccurredAt.Before(from) || !m.OccurredAt.Before(to) {
			continue
		}
		result = append(result, m)
	}
	sortByOccurredAt(result)
	return result, nil
}

func sortByOccurredAt(movements []inventory.InventoryMovement) {
	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].OccurredAt.Before(movements[j].OccurredAt)
	})
}

var _ inventory.InventoryMovementRepository = (*InventoryMovementRepository)(nil)
