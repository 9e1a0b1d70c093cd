package ledger

import (
	"context"

	"github.com/supplychain/backoffice/internal/domain/inventory"
	"github.com/supplychain/backoffice/internal/domain/order"
)

// TransactionScope provides transactional access to the core repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically. The transaction boundary is the unit of atomicity for
// every ledger mutator and every multi-step fulfillment operation.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all core repositories within
// a transaction. All repositories returned share the same underlying
// database transaction.
type TransactionalRepositories interface {
	// Records returns the inventory record repository scoped to the current transaction
	Records() inventory.InventoryRecordRepository
	// Movements returns the movement ledger repository scoped to the current transaction
	Movements() inventory.InventoryMovementRepository
	// Orders returns the order repository scoped to the current transaction
	Orders() order.Repository
}
