// Package memory provides in-memory repository implementations. They back
// the application-service tests and small tooling runs; the production path
// uses the GORM implementations in the parent package.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/supplychain/backoffice/internal/domain/inventory"
	"github.com/supplychain/backoffice/internal/domain/shared"
)

// InventoryRecordRepository is a thread-safe in-memory record store.
type InventoryRecordRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*inventory.InventoryRecord
}

// NewInventoryRecordRepository creates an empty in-memory record repository.
func NewInventoryRecordRepository() *InventoryRecordRepository {
	return &InventoryRecordRepository{
		records: make(map[uuid.UUID]*inventory.InventoryRecord),
	}
}

func cloneRecord(r *inventory.InventoryRecord) *inventory.InventoryRecord {
	c := *r
	c.ClearDomainEvents()
	return &c
}

// FindByID returns the record with the given ID.
func (repo *InventoryRecordRepository) FindByID(_ context.Context, id uuid.UUID) (*inventory.InventoryRecord, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	record, ok := repo.records[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneRecord(record), nil
}

// FindByProductAndWarehouse returns the record for a warehouse-product pair.
func (repo *InventoryRecordRepository) FindByProductAndWarehouse(_ context.Context, productID, warehouseID uuid.UUID) (*inventory.InventoryRecord, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, record := range repo.records {
		if record.ProductID == productID && record.WarehouseID == warehouseID {
			return cloneRecord(record), nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindAvailableBySKU returns records with available stock for the SKU,
// fullest location first.
func (repo *InventoryRecordRepository) FindAvailableBySKU(_ context.Context, sku string) ([]inventory.InventoryRecord, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	result := make([]inventory.InventoryRecord, 0)
	for _, record := range repo.records {
		if record.SKU == sku && record.QuantityAvailable > 0 {
			result = append(result, *cloneRecord(record))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].QuantityAvailable > result[j].QuantityAvailable
	})
	return result, nil
}

// FindReservedBySKU returns records holding reservations for the SKU,
// largest reservation first.
func (repo *InventoryRecordRepository) FindReservedBySKU(_ context.Context, sku string) ([]inventory.InventoryRecord, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	result := make([]inventory.InventoryRecord, 0)
	for _, record := range repo.records {
		if record.SKU == sku && record.QuantityReserved > 0 {
			result = append(result, *cloneRecord(record))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].QuantityReserved > result[j].QuantityReserved
	})
	return result, nil
}

// FindAll returns all records, paginated.
func (repo *InventoryRecordRepository) FindAll(_ context.Context, filter shared.Filter) ([]inventory.InventoryRecord, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	result := make([]inventory.InventoryRecord, 0, len(repo.records))
	for _, record := range repo.records {
		result = append(result, *cloneRecord(record))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if filter.PageSize > 0 {
		start := (filter.Page - 1) * filter.PageSize
		if start < 0 {
			start = 0
		}
		if start >= len(result) {
			return []inventory.InventoryRecord{}, nil
		}
		end := start + filter.PageSize
		if end > len(result) {
			end = len(result)
		}
		result = result[start:end]
	}
	return result, nil
}

// FindBelowReorderPoint returns records at or below their reorder point.
func (repo *InventoryRecordRepository) FindBelowReorderPoint(_ context.Context, warehouseID *uuid.UUID) ([]inventory.InventoryRecord, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	result := make([]inventory.InventoryRecord, 0)
	for _, record := range repo.records {
		if warehouseID != nil && record.WarehouseID != *warehouseID {
			continue
		}
		if record.QuantityOnHand <= record.ReorderPoint {
			result = append(result, *cloneRecord(record))
		}
	}
	return result, nil
}

// GetOrCreate returns the record for the pair, creating it on first use.
func (repo *InventoryRecordRepository) GetOrCreate(_ context.Context, warehouseID, productID uuid.UUID, sku string) (*inventory.InventoryRecord, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, record := range repo.records {
		if record.ProductID == productID && record.WarehouseID == warehouseID {
			return cloneRecord(record), nil
		}
	}

	record, err := inventory.NewInventoryRecord(warehouseID, productID, sku)
	if err != nil {
		return nil, err
	}
	repo.records[record.ID] = cloneRecord(record)
	return record, nil
}

// Save stores the record unconditionally.
func (repo *InventoryRecordRepository) Save(_ context.Context, record *inventory.InventoryRecord) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.records[record.ID] = cloneRecord(record)
	return nil
}

// SaveWithLock stores the record only if it moves the version forward.
func (repo *InventoryRecordRepository) SaveWithLock(_ context.Context, record *inventory.InventoryRecord) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	stored, ok := repo.records[record.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version >= record.Version {
		return shared.ErrConcurrencyConflict
	}
	repo.records[record.ID] = cloneRecord(record)
	return nil
}

// ReserveQuantity atomically moves quantity from available to reserved.
func (repo *InventoryRecordRepository) ReserveQuantity(_ context.Context, id uuid.UUID, quantity int64) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	record, ok := repo.records[id]
	if !ok {
		return shared.ErrNotFound
	}
	if err := record.Reserve(quantity); err != nil {
		return err
	}
	record.ClearDomainEvents()
	return nil
}

// ReleaseQuantity atomically moves quantity from reserved back to available.
func (repo *InventoryRecordRepository) ReleaseQuantity(_ context.Context, id uuid.UUID, quantity int64) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	record, ok := repo.records[id]
	if !ok {
		return shared.ErrNotFound
	}
	if err := record.Release(quantity); err != nil {
		return err
	}
	record.ClearDomainEvents()
	return nil
}

// ConsumeQuantity atomically spends a reservation.
func (repo *InventoryRecordRepository) ConsumeQuantity(_ context.Context, id uuid.UUID, quantity int64) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	record, ok := repo.records[id]
	if !ok {
		return shared.ErrNotFound
	}
	if err := record.Consume(quantity); err != nil {
		return err
	}
	record.ClearDomainEvents()
	return nil
}

var _ inventory.InventoryRecordRepository = (*InventoryRecordRepository)(nil)
