package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplychain/backoffice/internal/domain/shared"
)

func newTestRecord(t *testing.T) *InventoryRecord {
	t.Helper()
	record, err := NewInventoryRecord(uuid.New(), uuid.New(), "WIDGET-01")
	require.NoError(t, err)
	return record
}

func TestNewInventoryRecord(t *testing.T) {
	t.Run("valid record", func(t *testing.T) {
		record := newTestRecord(t)
		assert.Equal(t, int64(0), record.QuantityOnHand)
		assert.Equal(t, DefaultReorderPoint, record.ReorderPoint)
		assert.Equal(t, DefaultReorderQuantity, record.ReorderQuantity)
		assert.Equal(t, StockStatusOutOfStock, record.StockStatus)
		assert.Nil(t, record.LastMovementAt)
		assert.True(t, record.IsConserved())
	})

	t.Run("empty SKU", func(t *testing.T) {
		_, err := NewInventoryRecord(uuid.New(), uuid.New(), "")
		assert.Error(t, err)
	})

	t.Run("nil warehouse", func(t *testing.T) {
		_, err := NewInventoryRecord(uuid.Nil, uuid.New(), "WIDGET-01")
		assert.Error(t, err)
	})
}

func TestInventoryRecord_Receive(t *testing.T) {
	t.Run("first receipt takes the unit cost as average", func(t *testing.T) {
		record := newTestRecord(t)
		err := record.Receive(100, decimal.RequireFromString("10.00"))
		require.NoError(t, err)

		assert.Equal(t, int64(100), record.QuantityOnHand)
		assert.Equal(t, int64(100), record.QuantityAvailable)
		assert.True(t, record.AverageCost.Equal(decimal.RequireFromString("10.00")))
		assert.Equal(t, StockStatusInStock, record.StockStatus)
		assert.NotNil(t, record.LastMovementAt)
	})

	t.Run("average cost is quantity weighted", func(t *testing.T) {
		record := newTestRecord(t)
		require.NoError(t, record.Receive(100, decimal.RequireFromString("10.00")))
		require.NoError(t, record.Receive(50, decimal.RequireFromString("16.00")))

		// (100*10 + 50*16) / 150 = 12
		assert.True(t, record.AverageCost.Equal(decimal.RequireFromString("12")),
			"got %s", record.AverageCost)
		assert.True(t, record.LastPurchaseCost.Equal(decimal.RequireFromString("16.00")))
	})

	t.Run("rejects non-positive quantity and negative cost", func(t *testing.T) {
		record := newTestRecord(t)
		assert.Error(t, record.Receive(0, decimal.NewFromInt(10)))
		assert.Error(t, record.Receive(-5, decimal.NewFromInt(10)))
		assert.Error(t, record.Receive(5, decimal.NewFromInt(-1)))
	})

	t.Run("emits received and cost change events", func(t *testing.T) {
		record := newTestRecord(t)
		require.NoError(t, record.Receive(10, decimal.NewFromInt(10)))

		events := record.GetDomainEvents()
		require.Len(t, events, 2)
		assert.Equal(t, EventTypeStockReceived, events[0].EventType())
		assert.Equal(t, EventTypeAverageCostChanged, events[1].EventType())
	})
}

func TestInventoryRecord_ReserveReleaseConsume(t *testing.T) {
	record := newTestRecord(t)
	require.NoError(t, record.Receive(100, decimal.NewFromInt(10)))
	record.ClearDomainEvents()

	t.Run("reserve moves available to reserved", func(t *testing.T) {
		require.NoError(t, record.Reserve(30))
		assert.Equal(t, int64(100), record.QuantityOnHand)
		assert.Equal(t, int64(70), record.QuantityAvailable)
		assert.Equal(t, int64(30), record.QuantityReserved)
		assert.True(t, record.IsConserved())
	})

	t.Run("reserve beyond available fails", func(t *testing.T) {
		err := record.Reserve(71)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.True(t, record.IsConserved())
	})

	t.Run("release moves reserved back", func(t *testing.T) {
		require.NoError(t, record.Release(10))
		assert.Equal(t, int64(80), record.QuantityAvailable)
		assert.Equal(t, int64(20), record.QuantityReserved)
		assert.True(t, record.IsConserved())
	})

	t.Run("release beyond reserved fails", func(t *testing.T) {
		assert.ErrorIs(t, record.Release(21), shared.ErrInvalidQuantity)
	})

	t.Run("consume lowers on-hand and reserved together", func(t *testing.T) {
		require.NoError(t, record.Consume(20))
		assert.Equal(t, int64(80), record.QuantityOnHand)
		assert.Equal(t, int64(80), record.QuantityAvailable)
		assert.Equal(t, int64(0), record.QuantityReserved)
		assert.True(t, record.IsConserved())
	})

	t.Run("consume without reservation fails", func(t *testing.T) {
		assert.ErrorIs(t, record.Consume(1), shared.ErrInvalidQuantity)
	})
}

func TestInventoryRecord_Adjust(t *testing.T) {
	t.Run("returns the signed delta", func(t *testing.T) {
		record := newTestRecord(t)
		require.NoError(t, record.Receive(100, decimal.NewFromInt(10)))

		delta, err := record.Adjust(94, "cycle count")
		require.NoError(t, err)
		assert.Equal(t, int64(-6), delta)
		assert.Equal(t, int64(94), record.QuantityOnHand)
		assert.Equal(t, int64(94), record.QuantityAvailable)
	})

	t.Run("blocked while reserved", func(t *testing.T) {
		record := newTestRecord(t)
		require.NoError(t, record.Receive(100, decimal.NewFromInt(10)))
		require.NoError(t, record.Reserve(1))

		_, err := record.Adjust(90, "cycle count")
		assert.Error(t, err)
	})

	t.Run("requires a reason", func(t *testing.T) {
		record := newTestRecord(t)
		_, err := record.Adjust(10, "")
		assert.Error(t, err)
	})

	t.Run("rejects negative counts", func(t *testing.T) {
		record := newTestRecord(t)
		_, err := record.Adjust(-1, "cycle count")
		assert.Error(t, err)
	})
}

func TestInventoryRecord_InTransit(t *testing.T) {
	record := newTestRecord(t)
	require.NoError(t, record.MarkInTransit(40))
	assert.Equal(t, int64(40), record.QuantityInTransit)

	t.Run("cannot receive more than in transit", func(t *testing.T) {
		assert.ErrorIs(t, record.ReceiveInTransit(41, decimal.NewFromInt(10)), shared.ErrInvalidQuantity)
	})

	require.NoError(t, record.ReceiveInTransit(40, decimal.NewFromInt(10)))
	assert.Equal(t, int64(0), record.QuantityInTransit)
	assert.Equal(t, int64(40), record.QuantityOnHand)
}

func TestComputeStockStatus(t *testing.T) {
	assert.Equal(t, StockStatusOutOfStock, ComputeStockStatus(0, 10))
	assert.Equal(t, StockStatusOutOfStock, ComputeStockStatus(-1, 10))
	assert.Equal(t, StockStatusLowStock, ComputeStockStatus(10, 10))
	assert.Equal(t, StockStatusInStock, ComputeStockStatus(11, 10))
}

func TestInventoryRecord_SetReorderParameters(t *testing.T) {
	record := newTestRecord(t)
	require.NoError(t, record.SetReorderParameters(25, 100))
	assert.Equal(t, int64(25), record.ReorderPoint)
	assert.Equal(t, int64(100), record.ReorderQuantity)

	assert.Error(t, record.SetReorderParameters(-1, 100))
	assert.Error(t, record.SetReorderParameters(10, 0))
}

func TestInventoryRecord_TotalValue(t *testing.T) {
	record := newTestRecord(t)
	require.NoError(t, record.Receive(50, decimal.RequireFromString("12.50")))
	assert.True(t, record.TotalValue().Equal(decimal.RequireFromString("625")))
}
