package optimizer

import (
	"context"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supplychain/backoffice/internal/application/ledger"
	"github.com/supplychain/backoffice/internal/domain/shared"
)

// Action is the advised course for a warehouse-product pair.
type Action string

const (
	ActionReduceStock          Action = "reduce_stock"
	ActionIncreaseStock        Action = "increase_stock"
	ActionOptimizeReorderPoint Action = "optimize_reorder_point"
	ActionMaintainCurrent      Action = "maintain_current"
)

// HoldingCostRate is the share of unit cost carried per year as holding cost.
const HoldingCostRate = 0.25

// Params tunes a recommendation run.
type Params struct {
	WindowDays   int     `validate:"required,gt=0,lte=1825"`
	LeadTimeDays float64 `validate:"required,gt=0"`
	ServiceLevel float64 `validate:"required,gt=0,lt=1"`
	OrderingCost float64 `validate:"required,gt=0"`
}

// DefaultParams returns the standard 90-day window with a 95% service level.
func DefaultParams() Params {
	return Params{
		WindowDays:   90,
		LeadTimeDays: 7,
		ServiceLevel: 0.95,
		OrderingCost: 50,
	}
}

// Recommendation is the advisory output for one warehouse-product pair.
// Nothing here is applied automatically; a replenishment collaborator
// decides whether to adopt it.
type Recommendation struct {
	ProductID           uuid.UUID `json:"product_id"`
	WarehouseID         uuid.UUID `json:"warehouse_id"`
	SKU                 string    `json:"sku"`
	AvgDailyDemand      float64   `json:"avg_daily_demand"`
	StdDevDailyDemand   float64   `json:"std_dev_daily_demand"`
	SafetyStock         int64     `json:"safety_stock"`
	ReorderPoint        int64     `json:"reorder_point"`
	EOQ                 int64     `json:"eoq"`
	CurrentOnHand       int64     `json:"current_on_hand"`
	CurrentReorderPoint int64     `json:"current_reorder_point"`
	Action              Action    `json:"action"`
}

// Service computes stock optimization advice from ledger demand history.
type Service struct {
	scope    ledger.TransactionScope
	validate *validator.Validate
	logger   *zap.Logger
}

// NewService creates an optimizer service.
func NewService(scope ledger.TransactionScope, logger *zap.Logger) *Service {
	return &Service{
		scope:    scope,
		validate: validator.New(),
		logger:   logger,
	}
}

// Recommend derives demand statistics for a warehouse-product pair from its
// sale entries and turns them into safety stock, reorder point and EOQ
// advice plus a coarse action.
func (s *Service) Recommend(ctx context.Context, productID, warehouseID uuid.UUID, params Params) (*Recommendation, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, shared.NewDomainError("INVALID_PARAMS", err.Error())
	}

	var rec *Recommendation

	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		record, err := repos.Records().FindByProductAndWarehouse(ctx, productID, warehouseID)
		if err != nil {
			return err
		}

		now := time.Now()
		from := now.AddDate(0, 0, -params.WindowDays)
		movements, err := repos.Movements().FindByProductInWindow(ctx, productID, from, now)
		if err != nil {
			return err
		}

		// Daily demand series, zero-filled so quiet days count.
		daily := make([]float64, params.WindowDays)
		var totalSold int64
		for idx := range movements {
			m := &movements[idx]
			if m.WarehouseID != warehouseID || !m.MovementType.IsOutbound() {
				continue
			}
			qty := m.Quantity
			if qty < 0 {
				qty = -qty
			}
			day := int(m.OccurredAt.Sub(from).Hours() / 24)
			if day < 0 || day >= params.WindowDays {
				continue
			}
			daily[day] += float64(qty)
			totalSold += qty
		}

		avgDemand := float64(totalSold) / float64(params.WindowDays)
		stdDev := StdDev(daily)

		safety := SafetyStock(stdDev, params.LeadTimeDays, params.ServiceLevel)
		rop := ReorderPoint(avgDemand, params.LeadTimeDays, safety)

		annualDemand := avgDemand * 365
		holdingCost := record.AverageCost.InexactFloat64() * HoldingCostRate
		eoq := EOQ(annualDemand, params.OrderingCost, holdingCost)

		rec = &Recommendation{
			ProductID:           productID,
			WarehouseID:         warehouseID,
			SKU:                 record.SKU,
			AvgDailyDemand:      avgDemand,
			StdDevDailyDemand:   stdDev,
			SafetyStock:         int64(math.Ceil(safety)),
			ReorderPoint:        int64(math.Ceil(rop)),
			EOQ:                 int64(math.Round(eoq)),
			CurrentOnHand:       record.QuantityOnHand,
			CurrentReorderPoint: record.ReorderPoint,
			Action:              classify(record.QuantityOnHand, record.ReorderPoint, rop),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("stock recommendation computed",
		zap.String("sku", rec.SKU),
		zap.String("action", string(rec.Action)),
		zap.Int64("reorder_point", rec.ReorderPoint),
		zap.Int64("eoq", rec.EOQ))
	return rec, nil
}

// classify picks the advised action from on-hand stock and the computed
// reorder point.
func classify(onHand, currentROP int64, computedROP float64) Action {
	if computedROP <= 0 {
		return ActionMaintainCurrent
	}
	current := float64(onHand)
	switch {
	case current > 2*computedROP:
		return ActionReduceStock
	case current < 0.5*computedROP:
		return ActionIncreaseStock
	}
	diff := math.Abs(float64(currentROP) - computedROP)
	if diff/computedROP > 0.30 {
		return ActionOptimizeReorderPoint
	}
	return ActionMaintainCurrent
}
