package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/supplychain/backoffice/internal/domain/shared"
)

// Repository persists Order aggregates together with their items.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Order, error)
	FindByStatus(ctx context.Context, status Status, filter shared.Filter) ([]Order, error)
	// FindBackordersOf returns the backorders linked to a parent order.
	FindBackordersOf(ctx context.Context, parentID uuid.UUID) ([]Order, error)
	Save(ctx context.Context, o *Order) error
}
