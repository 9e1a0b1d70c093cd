package optimizer

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supplychain/backoffice/internal/application/ledger"
	"github.com/supplychain/backoffice/internal/domain/inventory"
	"github.com/supplychain/backoffice/internal/infrastructure/persistence/memory"
)

func TestEOQ(t *testing.T) {
	// sqrt(2 * 1200 * 50 / 5) = sqrt(24000)
	got := EOQ(1200, 50, 5)
	assert.InDelta(t, 154.9, got, 0.1)

	assert.Equal(t, 0.0, EOQ(0, 50, 5))
	assert.Equal(t, 0.0, EOQ(1200, 50, 0))
}

func TestZScore(t *testing.T) {
	assert.Equal(t, 1.28, ZScore(0.90))
	assert.Equal(t, 1.65, ZScore(0.95))
	assert.Equal(t, 1.96, ZScore(0.975))
	assert.Equal(t, 2.33, ZScore(0.99))
	// Unlisted levels fall back to the 95% score.
	assert.Equal(t, 1.65, ZScore(0.80))
}

func TestSafetyStockAndReorderPoint(t *testing.T) {
	// z=1.65, stdDev=4, sqrt(9)=3 -> 19.8
	safety := SafetyStock(4, 9, 0.95)
	assert.InDelta(t, 19.8, safety, 0.001)

	// 10/day over 9 days lead time plus the buffer.
	rop := ReorderPoint(10, 9, safety)
	assert.InDelta(t, 109.8, rop, 0.001)

	assert.Equal(t, 0.0, SafetyStock(4, 0, 0.95))
}

func TestStdDev(t *testing.T) {
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 0.001)
	assert.Equal(t, 0.0, StdDev([]float64{5}))
	assert.Equal(t, 0.0, StdDev(nil))
}

type optimizerFixture struct {
	service *Service
	ledger  *ledger.Service
}

func newOptimizerFixture(t *testing.T) *optimizerFixture {
	t.Helper()
	records := memory.NewInventoryRecordRepository()
	movements := memory.NewInventoryMovementRepository()
	orders := memory.NewOrderRepository()
	scope := memory.NewTransactionScope(records, movements, orders)
	return &optimizerFixture{
		service: NewService(scope, zap.NewNop()),
		ledger:  ledger.NewService(scope, zap.NewNop()),
	}
}

func TestService_Recommend(t *testing.T) {
	ctx := context.Background()
	warehouseID := uuid.New()
	productID := uuid.New()

	f := newOptimizerFixture(t)
	_, err := f.ledger.Receive(ctx, warehouseID, productID, "WIDGET-01",
		500, decimal.NewFromInt(10), inventory.ReceiptReference("GR-1"))
	require.NoError(t, err)

	// One burst of demand inside the window.
	_, err = f.ledger.Reserve(ctx, productID, warehouseID, 90, inventory.ManualReference("s1"))
	require.NoError(t, err)
	_, err = f.ledger.Consume(ctx, productID, warehouseID, 90, inventory.ManualReference("s1"))
	require.NoError(t, err)

	params := DefaultParams()
	rec, err := f.service.Recommend(ctx, productID, warehouseID, params)
	require.NoError(t, err)

	assert.Equal(t, "WIDGET-01", rec.SKU)
	assert.InDelta(t, 1.0, rec.AvgDailyDemand, 0.001)
	assert.Equal(t, int64(410), rec.CurrentOnHand)
	assert.Positive(t, rec.SafetyStock)
	assert.Positive(t, rec.ReorderPoint)
	assert.Positive(t, rec.EOQ)

	// EOQ with annual demand 365, ordering cost 50, holding cost 2.5.
	expectedEOQ := math.Sqrt(2 * 365 * 50 / 2.5)
	assert.InDelta(t, float64(rec.EOQ), expectedEOQ, 1.0)

	// 410 on hand against a lead-time demand in the tens: overstocked.
	assert.Equal(t, ActionReduceStock, rec.Action)
}

func TestService_Recommend_Validation(t *testing.T) {
	f := newOptimizerFixture(t)
	_, err := f.service.Recommend(context.Background(), uuid.New(), uuid.New(), Params{})
	assert.Error(t, err)
}

func TestService_Recommend_UnknownRecord(t *testing.T) {
	f := newOptimizerFixture(t)
	_, err := f.service.Recommend(context.Background(), uuid.New(), uuid.New(), DefaultParams())
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name        string
		onHand      int64
		currentROP  int64
		computedROP float64
		want        Action
	}{
		{"overstocked", 500, 100, 100, ActionReduceStock},
		{"understocked", 20, 100, 100, ActionIncreaseStock},
		{"reorder point drifted", 150, 100, 160, ActionOptimizeReorderPoint},
		{"healthy", 150, 100, 110, ActionMaintainCurrent},
		{"no demand history", 150, 100, 0, ActionMaintainCurrent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify(tc.onHand, tc.currentROP, tc.computedROP))
		})
	}
}
