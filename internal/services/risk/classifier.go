package risk

import (
	"fmt"
	"strings"

	"FXBias/internal/domain/models"
	"FXBias/internal/services/stats"
)

// Fear-gauge levels.
const (
	VIXLow  = 20.0
	VIXHigh = 25.0
)

const (
	trendFast      = 20
	trendSlow      = 50
	yieldTrendFast = 10
	yieldTrendSlow = 30
)

// TrendSignal reads value > fast > slow as Risk-On and value < fast < slow as
// Risk-Off. Anything else is Neutral.
func TrendSignal(value, fast, slow float64) models.RiskSignal {
	switch {
	case value > fast && fast > slow:
		return models.RiskOn
	case value < fast && fast < slow:
		return models.RiskOff
	default:
		return models.RiskNeutral
	}
}

// LevelSignal reads a fear-gauge value against the low and high levels.
func LevelSignal(value, low, high float64) models.RiskSignal {
	switch {
	case value < low:
		return models.RiskOn
	case value > high:
		return models.RiskOff
	default:
		return models.RiskNeutral
	}
}

// trend computes both moving averages and the resulting signal. A series too
// short for either average is Neutral.
func trend(data []models.IndicatorDataPoint, fastPeriod, slowPeriod int) (models.RiskSignal, []models.IndicatorDataPoint, []models.IndicatorDataPoint) {
	fast := stats.SMA(data, fastPeriod)
	slow := stats.SMA(data, slowPeriod)
	value, okV := stats.Last(data)
	f, okF := stats.Last(fast)
	s, okS := stats.Last(slow)
	if !okV || !okF || !okS {
		return models.RiskNeutral, fast, slow
	}
	return TrendSignal(value, f, s), fast, slow
}

// AnalyzeSPX classifies the equity index trend.
func AnalyzeSPX(data []models.IndicatorDataPoint) models.IndicatorAnalysis {
	signal, sma20, sma50 := trend(data, trendFast, trendSlow)
	return models.IndicatorAnalysis{
		Name:      "S&P 500 Index",
		Role:      "The Market Trend",
		Signal:    signal,
		Rationale: trendRationale(signal, "Price"),
		Data:      data,
		SMA20:     sma20,
		SMA50:     sma50,
	}
}

// AnalyzeAUDJPY classifies the carry-trade pair with the equity trend rule.
func AnalyzeAUDJPY(data []models.IndicatorDataPoint) models.IndicatorAnalysis {
	signal, sma20, sma50 := trend(data, trendFast, trendSlow)
	return models.IndicatorAnalysis{
		Name:      "AUD/JPY",
		Role:      "The Risk Barometer",
		Signal:    signal,
		Rationale: trendRationale(signal, "AUD/JPY"),
		Data:      data,
		SMA20:     sma20,
		SMA50:     sma50,
	}
}

// AnalyzeVIX classifies the fear gauge against fixed levels.
func AnalyzeVIX(data []models.IndicatorDataPoint) models.IndicatorAnalysis {
	signal := models.RiskNeutral
	if v, ok := stats.Last(data); ok {
		signal = LevelSignal(v, VIXLow, VIXHigh)
	}
	var rationale string
	switch signal {
	case models.RiskOn:
		rationale = fmt.Sprintf("VIX is below the key level of %g.", VIXLow)
	case models.RiskOff:
		rationale = fmt.Sprintf("VIX is above the key level of %g.", VIXHigh)
	default:
		rationale = fmt.Sprintf("VIX is between %g and %g.", VIXLow, VIXHigh)
	}
	return models.IndicatorAnalysis{
		Name:      "VIX Index",
		Role:      "The Fear Gauge",
		Signal:    signal,
		Rationale: rationale,
		Data:      data,
		Levels:    map[string]float64{"low": VIXLow, "high": VIXHigh},
	}
}

// AnalyzeUS10Y classifies the 10-year yield trend. The 10 and 30 period
// averages are carried in the SMA20 and SMA50 slots.
func AnalyzeUS10Y(data []models.IndicatorDataPoint) models.IndicatorAnalysis {
	signal, sma10, sma30 := trend(data, yieldTrendFast, yieldTrendSlow)
	var rationale string
	switch signal {
	case models.RiskOn:
		rationale = "Yield is in a clear uptrend (rising)."
	case models.RiskOff:
		rationale = "Yield is in a clear downtrend (falling)."
	default:
		rationale = "Yield is moving sideways or trend is unclear."
	}
	return models.IndicatorAnalysis{
		Name:      "US 10-Year Yield",
		Role:      "The Economic Outlook",
		Signal:    signal,
		Rationale: rationale,
		Data:      data,
		SMA20:     sma10,
		SMA50:     sma30,
	}
}

func trendRationale(signal models.RiskSignal, subject string) string {
	switch signal {
	case models.RiskOn:
		return strings.Replace("Price > 20 SMA, and 20 SMA > 50 SMA.", "Price", subject, 1)
	case models.RiskOff:
		return strings.Replace("Price < 20 SMA, and 20 SMA < 50 SMA.", "Price", subject, 1)
	default:
		return "Conditions for a clear trend are not met."
	}
}
