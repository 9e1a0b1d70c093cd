package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInventoryMovement(t *testing.T) {
	record := newTestRecord(t)
	require.NoError(t, record.Receive(100, decimal.NewFromInt(10)))

	t.Run("valid entry", func(t *testing.T) {
		cost := decimal.NewFromInt(10)
		m, err := NewInventoryMovement(record, MovementTypePurchase, 100, &cost,
			ReceiptReference("GR-1"), 100, 100)
		require.NoError(t, err)
		assert.Equal(t, record.ID, m.InventoryRecordID)
		assert.Equal(t, record.ProductID, m.ProductID)
		assert.Equal(t, record.WarehouseID, m.WarehouseID)
		assert.False(t, m.OccurredAt.IsZero())
	})

	t.Run("zero quantity only for adjustments and cost refreshes", func(t *testing.T) {
		_, err := NewInventoryMovement(record, MovementTypePurchase, 0, nil,
			ReceiptReference("GR-1"), 100, 100)
		assert.Error(t, err)

		_, err = NewInventoryMovement(record, MovementTypeAdjustment, 0, nil,
			ManualReference("CC-1"), 100, 100)
		assert.NoError(t, err)

		_, err = NewInventoryMovement(record, MovementTypeExtractionUpdate, 0, nil,
			ManualReference("pricelist"), 100, 100)
		assert.NoError(t, err)
	})

	t.Run("unknown movement type", func(t *testing.T) {
		_, err := NewInventoryMovement(record, MovementType("teleport"), 1, nil,
			ManualReference("x"), 100, 100)
		assert.Error(t, err)
	})

	t.Run("empty reference", func(t *testing.T) {
		_, err := NewInventoryMovement(record, MovementTypePurchase, 1, nil,
			Reference{Type: ReferenceTypeManual}, 100, 100)
		assert.Error(t, err)
	})
}

func TestMovementType_AffectsOnHand(t *testing.T) {
	onHand := []MovementType{
		MovementTypePurchase, MovementTypeSale, MovementTypeReturn,
		MovementTypeAdjustment, MovementTypeInitialStock,
	}
	for _, mt := range onHand {
		assert.True(t, mt.AffectsOnHand(), mt)
	}

	auditOnly := []MovementType{
		MovementTypeAllocation, MovementTypeRelease, MovementTypeWriteOff,
		MovementTypeExtractionUpdate, MovementTypeInTransit,
	}
	for _, mt := range auditOnly {
		assert.False(t, mt.AffectsOnHand(), mt)
	}
}

func TestReplayOnHand(t *testing.T) {
	record := newTestRecord(t)
	require.NoError(t, record.Receive(100, decimal.NewFromInt(10)))

	mk := func(mt MovementType, qty int64) InventoryMovement {
		m, err := NewInventoryMovement(record, mt, qty, nil, ManualReference("r"), 0, 0)
		require.NoError(t, err)
		return *m
	}

	movements := []InventoryMovement{
		mk(MovementTypeInitialStock, 100),
		mk(MovementTypeAllocation, -30), // reservation, no on-hand effect
		mk(MovementTypeSale, -20),
		mk(MovementTypeRelease, 10),
		mk(MovementTypeReturn, 5),
		mk(MovementTypeAdjustment, -3),
		mk(MovementTypeWriteOff, 2), // audit only
	}

	// 100 - 20 + 5 - 3 = 82
	assert.Equal(t, int64(82), ReplayOnHand(movements))
}

func TestInventoryMovement_TotalCost(t *testing.T) {
	record := newTestRecord(t)
	require.NoError(t, record.Receive(100, decimal.NewFromInt(10)))

	cost := decimal.RequireFromString("12.50")
	m, err := NewInventoryMovement(record, MovementTypeSale, -4, &cost,
		OrderReference(uuid.New()), 96, 96)
	require.NoError(t, err)
	assert.True(t, m.TotalCost().Equal(decimal.RequireFromString("50")))

	noCost, err := NewInventoryMovement(record, MovementTypeRelease, 4, nil,
		ManualReference("r"), 96, 96)
	require.NoError(t, err)
	assert.True(t, noCost.TotalCost().IsZero())
}
