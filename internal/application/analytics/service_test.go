package analytics

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supplychain/backoffice/internal/application/ledger"
	"github.com/supplychain/backoffice/internal/domain/inventory"
	"github.com/supplychain/backoffice/internal/domain/order"
	"github.com/supplychain/backoffice/internal/infrastructure/persistence/memory"
)

type analyticsFixture struct {
	service *Service
	ledger  *ledger.Service
	orders  *memory.OrderRepository
}

func newAnalyticsFixture(t *testing.T) *analyticsFixture {
	t.Helper()
	records := memory.NewInventoryRecordRepository()
	movements := memory.NewInventoryMovementRepository()
	orders := memory.NewOrderRepository()
	scope := memory.NewTransactionScope(records, movements, orders)
	return &analyticsFixture{
		service: NewService(scope, zap.NewNop()),
		ledger:  ledger.NewService(scope, zap.NewNop()),
		orders:  orders,
	}
}

// sell books a receive-reserve-consume cycle so the ledger holds sale
// entries for the product.
func (f *analyticsFixture) sell(t *testing.T, warehouseID, productID uuid.UUID, sku string, stocked, sold int64, cost string, ref inventory.Reference) {
	t.Helper()
	ctx := context.Background()
	_, err := f.ledger.Receive(ctx, warehouseID, productID, sku, stocked,
		decimal.RequireFromString(cost), inventory.ReceiptReference("GR-1"))
	require.NoError(t, err)
	if sold == 0 {
		return
	}
	_, err = f.ledger.Reserve(ctx, productID, warehouseID, sold, ref)
	require.NoError(t, err)
	_, err = f.ledger.Consume(ctx, productID, warehouseID, sold, ref)
	require.NoError(t, err)
}

func TestService_Turnover(t *testing.T) {
	ctx := context.Background()
	warehouseID := uuid.New()
	productID := uuid.New()

	f := newAnalyticsFixture(t)
	// 100 in at 10.00, 50 sold: COGS 500, remaining value 500, ratio 1.0.
	f.sell(t, warehouseID, productID, "WIDGET-01", 100, 50, "10.00", inventory.ManualReference("sale-1"))

	entries, err := f.service.Turnover(ctx, TurnoverParams{WindowDays: 30})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "WIDGET-01", entry.SKU)
	assert.True(t, entry.COGS.Equal(decimal.NewFromInt(500)), "got %s", entry.COGS)
	assert.True(t, entry.InventoryValue.Equal(decimal.NewFromInt(500)))
	assert.True(t, entry.Ratio.Equal(decimal.NewFromInt(1)))
	// 1.0 annualized over 30 days is ~12.17 turns per year.
	assert.Equal(t, BandExcellent, entry.Band)
}

func TestService_Turnover_Validation(t *testing.T) {
	f := newAnalyticsFixture(t)
	_, err := f.service.Turnover(context.Background(), TurnoverParams{WindowDays: 0})
	assert.Error(t, err)
}

func TestClassifyTurnover(t *testing.T) {
	cases := []struct {
		annualized string
		band       TurnoverBand
	}{
		{"14.2", BandExcellent},
		{"12", BandExcellent},
		{"7.5", BandGood},
		{"3", BandFair},
		{"1.1", BandPoor},
		{"0.4", BandCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.band, ClassifyTurnover(decimal.RequireFromString(tc.annualized)), tc.annualized)
	}
}

func TestService_ABCAnalysis(t *testing.T) {
	ctx := context.Background()
	warehouseID := uuid.New()

	t.Run("classifies by cumulative value share", func(t *testing.T) {
		f := newAnalyticsFixture(t)
		// Revenue 800 / 150 / 50: cumulative shares 80%, 95%, 100%.
		f.sell(t, warehouseID, uuid.New(), "SKU-A", 100, 80, "10.00", inventory.ManualReference("s1"))
		f.sell(t, warehouseID, uuid.New(), "SKU-B", 100, 15, "10.00", inventory.ManualReference("s2"))
		f.sell(t, warehouseID, uuid.New(), "SKU-C", 100, 5, "10.00", inventory.ManualReference("s3"))

		entries, err := f.service.ABCAnalysis(ctx, ABCParams{WindowDays: 30, Criterion: CriterionRevenue})
		require.NoError(t, err)
		require.Len(t, entries, 3)

		assert.Equal(t, "SKU-A", entries[0].SKU)
		assert.Equal(t, ClassA, entries[0].Class)
		assert.Equal(t, "SKU-B", entries[1].SKU)
		assert.Equal(t, ClassB, entries[1].Class)
		assert.Equal(t, "SKU-C", entries[2].SKU)
		assert.Equal(t, ClassC, entries[2].Class)
	})

	t.Run("margin uses the order line price", func(t *testing.T) {
		f := newAnalyticsFixture(t)
		productID := uuid.New()

		o, err := order.NewOrder("SO-1", uuid.New())
		require.NoError(t, err)
		_, err = o.AddItem(productID, "SKU-M", "SKU-M", 10, decimal.RequireFromString("25.00"))
		require.NoError(t, err)
		require.NoError(t, f.orders.Save(ctx, o))

		f.sell(t, warehouseID, productID, "SKU-M", 100, 10, "10.00", inventory.OrderReference(o.ID))

		entries, err := f.service.ABCAnalysis(ctx, ABCParams{WindowDays: 30, Criterion: CriterionMargin})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		// (25 - 10) * 10 sold.
		assert.True(t, entries[0].Value.Equal(decimal.NewFromInt(150)), "got %s", entries[0].Value)
	})

	t.Run("unknown criterion is rejected", func(t *testing.T) {
		f := newAnalyticsFixture(t)
		_, err := f.service.ABCAnalysis(ctx, ABCParams{WindowDays: 30, Criterion: "popularity"})
		assert.Error(t, err)
	})
}

func TestService_DeadStock(t *testing.T) {
	ctx := context.Background()
	warehouseID := uuid.New()

	f := newAnalyticsFixture(t)
	// Never sold: dead, high risk.
	f.sell(t, warehouseID, uuid.New(), "SKU-DEAD", 50, 0, "10.00", inventory.ManualReference("x"))
	// Sold 5 of 100: outbound under 10% of on-hand, slow mover.
	f.sell(t, warehouseID, uuid.New(), "SKU-SLOW", 100, 5, "10.00", inventory.ManualReference("s4"))
	// Sold 40 of 100: healthy, not flagged.
	f.sell(t, warehouseID, uuid.New(), "SKU-FAST", 100, 40, "10.00", inventory.ManualReference("s5"))

	entries, err := f.service.DeadStock(ctx, DefaultDeadStockParams())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	bySKU := make(map[string]DeadStockEntry)
	for _, entry := range entries {
		bySKU[entry.SKU] = entry
	}

	dead := bySKU["SKU-DEAD"]
	assert.Equal(t, ClassificationDead, dead.Classification)
	assert.Equal(t, "high", dead.Risk)
	assert.Equal(t, -1, dead.DaysSinceLastSale)

	slow := bySKU["SKU-SLOW"]
	assert.Equal(t, ClassificationSlowMoving, slow.Classification)
	assert.Equal(t, "medium", slow.Risk)
	assert.Equal(t, int64(5), slow.OutboundQuantity)
}
