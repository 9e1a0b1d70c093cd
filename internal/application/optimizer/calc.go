// Package optimizer computes replenishment advice: safety stock, reorder
// point and economic order quantity. Its output is advisory; it never writes
// reorder parameters back to inventory records.
package optimizer

import "math"

// zTable maps a service level to its standard normal z-score. Unlisted
// levels fall back to the 95% score.
var zTable = map[float64]float64{
	0.90:  1.28,
	0.95:  1.65,
	0.975: 1.96,
	0.99:  2.33,
}

const defaultZScore = 1.65

// ZScore returns the z-score for a service level.
func ZScore(serviceLevel float64) float64 {
	if z, ok := zTable[serviceLevel]; ok {
		return z
	}
	return defaultZScore
}

// SafetyStock is the buffer against demand variability during lead time:
// z * stdDev(daily demand) * sqrt(lead time).
func SafetyStock(stdDevDailyDemand, leadTimeDays, serviceLevel float64) float64 {
	if stdDevDailyDemand < 0 || leadTimeDays <= 0 {
		return 0
	}
	return ZScore(serviceLevel) * stdDevDailyDemand * math.Sqrt(leadTimeDays)
}

// ReorderPoint is the stock level that should trigger replenishment:
// expected demand over lead time plus safety stock.
func ReorderPoint(avgDailyDemand, leadTimeDays, safetyStock float64) float64 {
	if avgDailyDemand < 0 || leadTimeDays <= 0 {
		return safetyStock
	}
	return avgDailyDemand*leadTimeDays + safetyStock
}

// EOQ is the classic economic order quantity: sqrt(2 * annual demand *
// ordering cost / holding cost). Zero when any input makes the formula
// meaningless.
func EOQ(annualDemand, orderingCost, holdingCostPerUnit float64) float64 {
	if annualDemand <= 0 || orderingCost <= 0 || holdingCostPerUnit <= 0 {
		return 0
	}
	return math.Sqrt(2 * annualDemand * orderingCost / holdingCostPerUnit)
}

// Mean returns the arithmetic mean of the series.
func Mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

// StdDev returns the population standard deviation of the series.
func StdDev(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	mean := Mean(series)
	sumSq := 0.0
	for _, v := range series {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(series)))
}
