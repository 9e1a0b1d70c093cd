// Package analytics derives demand insight from the movement ledger:
// inventory turnover, ABC classification and dead stock detection. All
// operations are read-only; incomplete data is logged and skipped rather
// than failing the whole report.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/supplychain/backoffice/internal/application/ledger"
	"github.com/supplychain/backoffice/internal/domain/inventory"
	"github.com/supplychain/backoffice/internal/domain/shared"
)

// TurnoverBand grades an annualized turnover ratio.
type TurnoverBand string

const (
	BandExcellent TurnoverBand = "excellent"
	BandGood      TurnoverBand = "good"
	BandFair      TurnoverBand = "fair"
	BandPoor      TurnoverBand = "poor"
	BandCritical  TurnoverBand = "critical"
)

// ClassifyTurnover grades an annualized turnover ratio.
func ClassifyTurnover(annualized decimal.Decimal) TurnoverBand {
	switch {
	case annualized.GreaterThanOrEqual(decimal.NewFromInt(12)):
		return BandExcellent
	case annualized.GreaterThanOrEqual(decimal.NewFromInt(6)):
		return BandGood
	case annualized.GreaterThanOrEqual(decimal.NewFromInt(3)):
		return BandFair
	case annualized.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return BandPoor
	default:
		return BandCritical
	}
}

// TurnoverParams scopes a turnover report.
type TurnoverParams struct {
	WindowDays  int `validate:"required,gt=0,lte=1825"`
	WarehouseID *uuid.UUID
}

// TurnoverEntry is the turnover report line for one product.
type TurnoverEntry struct {
	ProductID      uuid.UUID       `json:"product_id"`
	SKU            string          `json:"sku"`
	COGS           decimal.Decimal `json:"cogs"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
	Ratio          decimal.Decimal `json:"ratio"`
	Annualized     decimal.Decimal `json:"annualized"`
	Band           TurnoverBand    `json:"band"`
}

// ABCCriterion selects the value measure for ABC classification.
type ABCCriterion string

const (
	CriterionRevenue  ABCCriterion = "revenue"
	CriterionQuantity ABCCriterion = "quantity"
	CriterionMargin   ABCCriterion = "margin"
)

// ABCParams scopes an ABC classification run.
type ABCParams struct {
	WindowDays int          `validate:"required,gt=0,lte=1825"`
	Criterion  ABCCriterion `validate:"required,oneof=revenue quantity margin"`
}

// ABCClass is the classification bucket.
type ABCClass string

const (
	ClassA ABCClass = "A"
	ClassB ABCClass = "B"
	ClassC ABCClass = "C"
)

// ABCEntry is one product's classification.
type ABCEntry struct {
	ProductID       uuid.UUID       `json:"product_id"`
	SKU             string          `json:"sku"`
	Value           decimal.Decimal `json:"value"`
	CumulativeShare decimal.Decimal `json:"cumulative_share"`
	Class           ABCClass        `json:"class"`
}

// DeadStockParams scopes a dead stock scan.
type DeadStockParams struct {
	DeadStockDays  int `validate:"required,gt=0"`
	SlowMovingDays int `validate:"required,gt=0,ltefield=DeadStockDays"`
	WarehouseID    *uuid.UUID
}

// DefaultDeadStockParams returns the standard 180/90 day windows.
func DefaultDeadStockParams() DeadStockParams {
	return DeadStockParams{DeadStockDays: 180, SlowMovingDays: 90}
}

// StockClassification labels a dead stock finding.
type StockClassification string

const (
	ClassificationDead       StockClassification = "dead"
	ClassificationSlowMoving StockClassification = "slow_moving"
)

// DeadStockEntry is one flagged warehouse-product pair.
type DeadStockEntry struct {
	ProductID         uuid.UUID           `json:"product_id"`
	WarehouseID       uuid.UUID           `json:"warehouse_id"`
	SKU               string              `json:"sku"`
	QuantityOnHand    int64               `json:"quantity_on_hand"`
	Value             decimal.Decimal     `json:"value"`
	OutboundQuantity  int64               `json:"outbound_quantity"`
	DaysSinceLastSale int                 `json:"days_since_last_sale"` // -1 when the product never sold
	Classification    StockClassification `json:"classification"`
	Risk              string              `json:"risk"`
}

// Service computes demand analytics from the ledger.
type Service struct {
	scope    ledger.TransactionScope
	validate *validator.Validate
	logger   *zap.Logger
}

// NewService creates an analytics service.
func NewService(scope ledger.TransactionScope, logger *zap.Logger) *Service {
	return &Service{
		scope:    scope,
		validate: validator.New(),
		logger:   logger,
	}
}

// Turnover computes inventory turnover per product over the window. COGS is
// the ledger-valued sum of outbound quantities; the ratio is annualized so
// bands are comparable across window sizes. Products with stock but no value
// are logged and skipped.
func (s *Service) Turnover(ctx context.Context, params TurnoverParams) ([]TurnoverEntry, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, shared.NewDomainError("INVALID_PARAMS", err.Error())
	}

	to := time.Now()
	from := to.AddDate(0, 0, -params.WindowDays)

	type productAgg struct {
		sku   string
		cogs  decimal.Decimal
		value decimal.Decimal
	}
	aggregates := make(map[uuid.UUID]*productAgg)

	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		records, err := repos.Records().FindAll(ctx, shared.Filter{})
		if err != nil {
			return err
		}
		for idx := range records {
			record := &records[idx]
			if params.WarehouseID != nil && record.WarehouseID != *params.WarehouseID {
				continue
			}
			agg, ok := aggregates[record.ProductID]
			if !ok {
				agg = &productAgg{sku: record.SKU, cogs: decimal.Zero, value: decimal.Zero}
				aggregates[record.ProductID] = agg
			}
			agg.value = agg.value.Add(record.TotalValue())
		}

		movements, err := repos.Movements().FindInWindow(ctx, from, to, params.WarehouseID)
		if err != nil {
			return err
		}
		for idx := range movements {
			m := &movements[idx]
			if !m.MovementType.IsOutbound() {
				continue
			}
			agg, ok := aggregates[m.ProductID]
			if !ok {
				continue
			}
			agg.cogs = agg.cogs.Add(m.TotalCost())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	yearFactor := decimal.NewFromInt(365).Div(decimal.NewFromInt(int64(params.WindowDays)))

	entries := make([]TurnoverEntry, 0, len(aggregates))
	for productID, agg := range aggregates {
		if agg.value.IsZero() {
			if agg.cogs.IsZero() {
				continue
			}
			s.logger.Warn("skipping turnover for product with sales but no inventory value",
				zap.String("product_id", productID.String()),
				zap.String("sku", agg.sku))
			continue
		}
		ratio := agg.cogs.Div(agg.value)
		annualized := ratio.Mul(yearFactor)
		entries = append(entries, TurnoverEntry{
			ProductID:      productID,
			SKU:            agg.sku,
			COGS:           agg.cogs,
			InventoryValue: agg.value,
			Ratio:          ratio.Round(4),
			Annualized:     annualized.Round(4),
			Band:           ClassifyTurnover(annualized),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SKU < entries[j].SKU
	})
	return entries, nil
}

// ABCAnalysis classifies products by their share of total value over the
// window: the products making up the first 80% of cumulative value are A,
// up to 95% are B, the tail is C.
//
// Revenue values sales at the price on the referenced order line; when no
// order can be resolved the ledger cost is used instead and a warning is
// logged. Margin is revenue minus ledger cost.
func (s *Service) ABCAnalysis(ctx context.Context, params ABCParams) ([]ABCEntry, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, shared.NewDomainError("INVALID_PARAMS", err.Error())
	}

	to := time.Now()
	from := to.AddDate(0, 0, -params.WindowDays)

	type productValue struct {
		sku   string
		value decimal.Decimal
	}
	values := make(map[uuid.UUID]*productValue)

	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		movements, err := repos.Movements().FindInWindow(ctx, from, to, nil)
		if err != nil {
			return err
		}

		sales := make([]inventory.InventoryMovement, 0)
		for idx := range movements {
			if movements[idx].MovementType.IsOutbound() {
				sales = append(sales, movements[idx])
			}
		}

		prices, err := s.resolveOrderPrices(ctx, repos, sales)
		if err != nil {
			return err
		}

		for idx := range sales {
			m := &sales[idx]
			qty := m.Quantity
			if qty < 0 {
				qty = -qty
			}

			record, err := repos.Records().FindByID(ctx, m.InventoryRecordID)
			if err != nil {
				s.logger.Warn("skipping sale with missing inventory record",
					zap.String("movement_id", m.ID.String()))
				continue
			}

			pv, ok := values[m.ProductID]
			if !ok {
				pv = &productValue{sku: record.SKU, value: decimal.Zero}
				values[m.ProductID] = pv
			}

			cost := m.TotalCost()
			revenue := cost
			if price, ok := prices[priceKey{m.ReferenceID, m.ProductID}]; ok {
				revenue = decimal.NewFromInt(qty).Mul(price)
			} else if m.ReferenceType == inventory.ReferenceTypeOrder {
				s.logger.Warn("sale references an unresolvable order, using ledger cost as revenue",
					zap.String("reference_id", m.ReferenceID),
					zap.String("sku", record.SKU))
			}

			switch params.Criterion {
			case CriterionQuantity:
				pv.value = pv.value.Add(decimal.NewFromInt(qty))
			case CriterionMargin:
				pv.value = pv.value.Add(revenue.Sub(cost))
			default:
				pv.value = pv.value.Add(revenue)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entries := make([]ABCEntry, 0, len(values))
	total := decimal.Zero
	for productID, pv := range values {
		entries = append(entries, ABCEntry{ProductID: productID, SKU: pv.sku, Value: pv.value})
		total = total.Add(pv.value)
	}

	// SKU order first so the descending sort is deterministic across runs.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SKU < entries[j].SKU
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value.GreaterThan(entries[j].Value)
	})

	if total.IsZero() {
		return entries, nil
	}

	cumulative := decimal.Zero
	for idx := range entries {
		cumulative = cumulative.Add(entries[idx].Value)
		share := cumulative.Div(total)
		entries[idx].CumulativeShare = share.Round(4)
		switch {
		case share.LessThanOrEqual(decimal.NewFromFloat(0.80)):
			entries[idx].Class = ClassA
		case share.LessThanOrEqual(decimal.NewFromFloat(0.95)):
			entries[idx].Class = ClassB
		default:
			entries[idx].Class = ClassC
		}
	}
	return entries, nil
}

type priceKey struct {
	referenceID string
	productID   uuid.UUID
}

// resolveOrderPrices maps order-referenced sales to the unit price on the
// matching order line.
func (s *Service) resolveOrderPrices(
	ctx context.Context,
	repos ledger.TransactionalRepositories,
	sales []inventory.InventoryMovement,
) (map[priceKey]decimal.Decimal, error) {
	idSet := make(map[uuid.UUID]struct{})
	for idx := range sales {
		if sales[idx].ReferenceType != inventory.ReferenceTypeOrder {
			continue
		}
		orderID, err := uuid.Parse(sales[idx].ReferenceID)
		if err != nil {
			continue
		}
		idSet[orderID] = struct{}{}
	}
	if len(idSet) == 0 {
		return map[priceKey]decimal.Decimal{}, nil
	}

	ids := make([]uuid.UUID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	orders, err := repos.Orders().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	prices := make(map[priceKey]decimal.Decimal)
	for idx := range orders {
		o := &orders[idx]
		for itemIdx := range o.Items {
			item := &o.Items[itemIdx]
			prices[priceKey{o.ID.String(), item.ProductID}] = item.UnitPrice
		}
	}
	return prices, nil
}

// DeadStock flags warehouse-product pairs with stock on hand but little or
// no recent demand. Dead stock sold nothing in the long window and carries
// high risk; slow movers either had no sale in the short window or moved
// less than 10% of their on-hand quantity.
func (s *Service) DeadStock(ctx context.Context, params DeadStockParams) ([]DeadStockEntry, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, shared.NewDomainError("INVALID_PARAMS", err.Error())
	}

	now := time.Now()
	deadFrom := now.AddDate(0, 0, -params.DeadStockDays)
	slowFrom := now.AddDate(0, 0, -params.SlowMovingDays)

	var entries []DeadStockEntry

	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		records, err := repos.Records().FindAll(ctx, shared.Filter{})
		if err != nil {
			return err
		}
		movements, err := repos.Movements().FindInWindow(ctx, deadFrom, now, params.WarehouseID)
		if err != nil {
			return err
		}

		type recordAgg struct {
			outbound int64
			lastSale *time.Time
		}
		perRecord := make(map[uuid.UUID]*recordAgg)
		for idx := range movements {
			m := &movements[idx]
			if !m.MovementType.IsOutbound() {
				continue
			}
			agg, ok := perRecord[m.InventoryRecordID]
			if !ok {
				agg = &recordAgg{}
				perRecord[m.InventoryRecordID] = agg
			}
			qty := m.Quantity
			if qty < 0 {
				qty = -qty
			}
			agg.outbound += qty
			occurred := m.OccurredAt
			if agg.lastSale == nil || occurred.After(*agg.lastSale) {
				agg.lastSale = &occurred
			}
		}

		for idx := range records {
			record := &records[idx]
			if params.WarehouseID != nil && record.WarehouseID != *params.WarehouseID {
				continue
			}
			if record.QuantityOnHand <= 0 {
				continue
			}

			agg := perRecord[record.ID]
			var outbound int64
			var lastSale *time.Time
			if agg != nil {
				outbound = agg.outbound
				lastSale = agg.lastSale
			}

			daysSince := -1
			if lastSale != nil {
				daysSince = int(now.Sub(*lastSale).Hours() / 24)
			}

			entry := DeadStockEntry{
				ProductID:         record.ProductID,
				WarehouseID:       record.WarehouseID,
				SKU:               record.SKU,
				QuantityOnHand:    record.QuantityOnHand,
				Value:             record.TotalValue(),
				OutboundQuantity:  outbound,
				DaysSinceLastSale: daysSince,
			}

			switch {
			case outbound == 0:
				entry.Classification = ClassificationDead
				entry.Risk = "high"
			case lastSale == nil || lastSale.Before(slowFrom) || outbound*10 < record.QuantityOnHand:
				entry.Classification = ClassificationSlowMoving
				entry.Risk = "medium"
			default:
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value.GreaterThan(entries[j].Value)
	})
	return entries, nil
}
