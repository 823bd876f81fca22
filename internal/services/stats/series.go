package stats

import (
	"math"
	"sort"

	"FXBias/internal/domain/models"
)

// Median returns the median of the non-NaN values. ok is false when no value
// remains, which callers must treat as "no data" rather than zero.
func Median(values []float64) (m float64, ok bool) {
	vals := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return 0, false
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 0 {
		return (vals[mid-1] + vals[mid]) / 2, true
	}
	return vals[mid], true
}

// SMA computes the simple moving average over period trailing points. Each
// output point carries the date of the last point in its window. It returns
// nil when the series is shorter than period.
func SMA(series []models.IndicatorDataPoint, period int) []models.IndicatorDataPoint {
	if period <= 0 || len(series) < period {
		return nil
	}
	out := make([]models.IndicatorDataPoint, 0, len(series)-period+1)
	sum := 0.0
	for i, p := range series {
		sum += p.Value
		if i >= period {
			sum -= series[i-period].Value
		}
		if i >= period-1 {
			out = append(out, models.IndicatorDataPoint{
				Date:  p.Date,
				Value: sum / float64(period),
			})
		}
	}
	return out
}

// Last returns the value of the final point, or ok=false for an empty series.
func Last(series []models.IndicatorDataPoint) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1].Value, true
}
