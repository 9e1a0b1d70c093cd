package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/supplychain/backoffice/internal/domain/order"
	"github.com/supplychain/backoffice/internal/domain/shared"
)

// OrderRepository is a thread-safe in-memory order store.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*order.Order
}

// NewOrderRepository creates an empty in-memory order repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[uuid.UUID]*order.Order),
	}
}

func cloneOrder(o *order.Order) *order.Order {
	c := *o
	c.Items = make([]order.Item, len(o.Items))
	copy(c.Items, o.Items)
	c.ClearDomainEvents()
	return &c
}

// FindByID returns the order with the given ID.
func (repo *OrderRepository) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	o, ok := repo.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneOrder(o), nil
}

// FindByIDs returns the orders for the given IDs. Missing IDs are skipped.
func (repo *OrderRepository) FindByIDs(_ context.Context, ids []uuid.UUID) ([]order.Order, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	result := make([]order.Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := repo.orders[id]; ok {
			result = append(result, *cloneOrder(o))
		}
	}
	return result, nil
}

// FindByStatus returns orders in the given status, oldest first.
func (repo *OrderRepository) FindByStatus(_ context.Context, status order.Status, filter shared.Filter) ([]order.Order, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	result := make([]order.Order, 0)
	for _, o := range repo.orders {
		if o.Status == status {
			result = append(result, *cloneOrder(o))
		}
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
			return []order.Order{}, nil
		}
		end := start + filter.PageSize
		if end > len(result) {
			end = len(result)
		}
		result = result[start:end]
	}
	return result, nil
}

// FindBackordersOf returns the backorders linked to a parent order.
func (repo *OrderRepository) FindBackordersOf(_ context.Context, parentID uuid.UUID) ([]order.Order, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	result := make([]order.Order, 0)
	for _, o := range repo.orders {
		if o.ParentOrderID != nil && *o.ParentOrderID == parentID {
			result = append(result, *cloneOrder(o))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Save stores the order with its items.
func (repo *OrderRepository) Save(_ context.Context, o *order.Order) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.orders[o.ID] = cloneOrder(o)
	return nil
}

var _ order.Repository = (*OrderRepository)(nil)
