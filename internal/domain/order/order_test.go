package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplychain/backoffice/internal/domain/shared"
)

func newTestOrder(t *testing.T, quantities map[string]int64) *Order {
	t.Helper()
	o, err := NewOrder("SO-1001", uuid.New())
	require.NoError(t, err)
	for sku, qty := range quantities {
		_, err := o.AddItem(uuid.New(), sku, sku, qty, decimal.NewFromInt(25))
		require.NoError(t, err)
	}
	return o
}

func TestNewOrder(t *testing.T) {
	o := newTestOrder(t, map[string]int64{"WIDGET-01": 10})
	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(250)))

	_, err := NewOrder("", uuid.New())
	assert.Error(t, err)
	_, err = NewOrder("SO-1", uuid.Nil)
	assert.Error(t, err)
}

func TestOrder_AddItem(t *testing.T) {
	o := newTestOrder(t, map[string]int64{"WIDGET-01": 10})

	t.Run("duplicate SKU rejected", func(t *testing.T) {
		_, err := o.AddItem(uuid.New(), "WIDGET-01", "dup", 5, decimal.NewFromInt(10))
		assert.Error(t, err)
	})

	t.Run("locked after allocation starts", func(t *testing.T) {
		confirmed := newTestOrder(t, map[string]int64{"WIDGET-01": 10})
		require.NoError(t, confirmed.RecordAllocation("WIDGET-01", 10))
		require.NoError(t, confirmed.MarkConfirmed())

		_, err := confirmed.AddItem(uuid.New(), "GADGET-02", "g", 1, decimal.NewFromInt(1))
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusPartiallyAllocated, true},
		{StatusPending, StatusShipped, false},
		{StatusConfirmed, StatusProcessing, true},
		{StatusConfirmed, StatusShipped, true},
		{StatusProcessing, StatusPartiallyShipped, true},
		{StatusPartiallyShipped, StatusShipped, true},
		{StatusShipped, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusBackorder, StatusPending, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestStatus_IsAllocatable(t *testing.T) {
	assert.True(t, StatusPending.IsAllocatable())
	for _, s := range []Status{StatusConfirmed, StatusPartiallyAllocated, StatusProcessing,
		StatusShipped, StatusPartiallyShipped, StatusBackorder, StatusCancelled} {
		assert.False(t, s.IsAllocatable(), s)
	}
}

func TestOrder_RecordAllocation(t *testing.T) {
	o := newTestOrder(t, map[string]int64{"WIDGET-01": 10})

	require.NoError(t, o.RecordAllocation("WIDGET-01", 6))
	assert.Equal(t, int64(6), o.ItemBySKU("WIDGET-01").AllocatedQuantity)
	assert.False(t, o.IsFullyAllocated())

	require.NoError(t, o.RecordAllocation("WIDGET-01", 4))
	assert.True(t, o.IsFullyAllocated())

	t.Run("over-allocation rejected", func(t *testing.T) {
		assert.ErrorIs(t, o.RecordAllocation("WIDGET-01", 1), shared.ErrInvalidQuantity)
	})

	t.Run("unknown SKU", func(t *testing.T) {
		assert.ErrorIs(t, o.RecordAllocation("NOPE", 1), shared.ErrNotFound)
	})
}

func TestOrder_RecordShipmentAndReturn(t *testing.T) {
	o := newTestOrder(t, map[string]int64{"WIDGET-01": 10})
	require.NoError(t, o.RecordAllocation("WIDGET-01", 10))

	require.NoError(t, o.RecordShipment("WIDGET-01", 7))
	assert.Equal(t, int64(3), o.ItemBySKU("WIDGET-01").UnshippedQuantity())
	assert.False(t, o.IsFullyShipped())

	t.Run("shipment capped at ordered quantity", func(t *testing.T) {
		assert.ErrorIs(t, o.RecordShipment("WIDGET-01", 4), shared.ErrInvalidQuantity)
	})

	t.Run("returns capped at shipped quantity", func(t *testing.T) {
		require.NoError(t, o.RecordReturn("WIDGET-01", 7))
		assert.ErrorIs(t, o.RecordReturn("WIDGET-01", 1), shared.ErrInvalidQuantity)
	})
}

func TestOrder_Lifecycle(t *testing.T) {
	t.Run("full allocation confirms, full shipment closes", func(t *testing.T) {
		o := newTestOrder(t, map[string]int64{"WIDGET-01": 10})
		require.NoError(t, o.RecordAllocation("WIDGET-01", 10))
		require.NoError(t, o.MarkConfirmed())
		assert.NotNil(t, o.ConfirmedAt)

		require.NoError(t, o.MarkProcessing())
		require.NoError(t, o.RecordShipment("WIDGET-01", 10))
		require.NoError(t, o.MarkShipped())
		assert.NotNil(t, o.ShippedAt)
	})

	t.Run("cannot mark shipped with unshipped lines", func(t *testing.T) {
		o := newTestOrder(t, map[string]int64{"WIDGET-01": 10})
		require.NoError(t, o.RecordAllocation("WIDGET-01", 10))
		require.NoError(t, o.MarkConfirmed())
		require.NoError(t, o.RecordShipment("WIDGET-01", 9))

		assert.ErrorIs(t, o.MarkShipped(), shared.ErrInvalidState)
	})

	t.Run("confirm twice fails", func(t *testing.T) {
		o := newTestOrder(t, map[string]int64{"WIDGET-01": 10})
		require.NoError(t, o.RecordAllocation("WIDGET-01", 10))
		require.NoError(t, o.MarkConfirmed())
		assert.ErrorIs(t, o.MarkConfirmed(), shared.ErrInvalidState)
	})
}

func TestNewBackorder(t *testing.T) {
	parent := newTestOrder(t, map[string]int64{"WIDGET-01": 60, "GADGET-02": 5})
	require.NoError(t, parent.RecordAllocation("WIDGET-01", 40))
	require.NoError(t, parent.RecordAllocation("GADGET-02", 5))

	lines := parent.UnfulfilledLines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(20), lines[0].Quantity)

	bo, err := NewBackorder(parent, "SO-1001-BO", lines)
	require.NoError(t, err)
	assert.Equal(t, StatusBackorder, bo.Status)
	assert.Equal(t, parent.CustomerID, bo.CustomerID)
	require.NotNil(t, bo.ParentOrderID)
	assert.Equal(t, parent.ID, *bo.ParentOrderID)
	require.Len(t, bo.Items, 1)
	assert.Equal(t, int64(20), bo.Items[0].Quantity)
	assert.Equal(t, int64(0), bo.Items[0].AllocatedQuantity)

	t.Run("requires unfulfilled lines", func(t *testing.T) {
		_, err := NewBackorder(parent, "SO-X", nil)
		assert.Error(t, err)
	})
}
