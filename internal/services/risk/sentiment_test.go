package risk

import (
	"fmt"
	"testing"

	"FXBias/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(from, step float64, n int) []models.IndicatorDataPoint {
	out := make([]models.IndicatorDataPoint, n)
	for i := 0; i < n; i++ {
		out[i] = models.IndicatorDataPoint{
			Date:  fmt.Sprintf("2024-01-%03d", i+1),
			Value: from + step*float64(i),
		}
	}
	return out
}

func TestTrendSignal(t *testing.T) {
	assert.Equal(t, models.RiskOn, TrendSignal(105, 100, 90))
	assert.Equal(t, models.RiskOff, TrendSignal(85, 90, 100))
	assert.Equal(t, models.RiskNeutral, TrendSignal(95, 100, 90))
	assert.Equal(t, models.RiskNeutral, TrendSignal(100, 100, 90))
}

func TestLevelSignal(t *testing.T) {
	assert.Equal(t, models.RiskOn, LevelSignal(18, VIXLow, VIXHigh))
	assert.Equal(t, models.RiskOff, LevelSignal(30, VIXLow, VIXHigh))
	assert.Equal(t, models.RiskNeutral, LevelSignal(22, VIXLow, VIXHigh))
	assert.Equal(t, models.RiskNeutral, LevelSignal(20, VIXLow, VIXHigh))
	assert.Equal(t, models.RiskNeutral, LevelSignal(25, VIXLow, VIXHigh))
}

func TestAnalyzeSPX(t *testing.T) {
	up := AnalyzeSPX(ramp(100, 1, 60))
	assert.Equal(t, models.RiskOn, up.Signal)
	assert.Equal(t, "Price > 20 SMA, and 20 SMA > 50 SMA.", up.Rationale)
	assert.Len(t, up.SMA20, 41)
	assert.Len(t, up.SMA50, 11)

	down := AnalyzeSPX(ramp(200, -1, 60))
	assert.Equal(t, models.RiskOff, down.Signal)
	assert.Equal(t, "Price < 20 SMA, and 20 SMA < 50 SMA.", down.Rationale)
}

func TestAnalyzeSPXShortSeriesIsNeutral(t *testing.T) {
	for _, n := range []int{0, 1, 25, 49} {
		a := AnalyzeSPX(ramp(100, 1, n))
		assert.Equal(t, models.RiskNeutral, a.Signal, "n=%d", n)
		assert.Equal(t, "Conditions for a clear trend are not met.", a.Rationale)
		assert.Empty(t, a.SMA50)
	}
}

func TestAnalyzeAUDJPYRationale(t *testing.T) {
	a := AnalyzeAUDJPY(ramp(90, 0.5, 60))
	assert.Equal(t, models.RiskOn, a.Signal)
	assert.Equal(t, "AUD/JPY > 20 SMA, and 20 SMA > 50 SMA.", a.Rationale)
	assert.Equal(t, "The Risk Barometer", a.Role)
}

func TestAnalyzeVIX(t *testing.T) {
	tests := []struct {
		value     float64
		signal    models.RiskSignal
		rationale string
	}{
		{18, models.RiskOn, "VIX is below the key level of 20."},
		{30, models.RiskOff, "VIX is above the key level of 25."},
		{22, models.RiskNeutral, "VIX is between 20 and 25."},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.value), func(t *testing.T) {
			a := AnalyzeVIX([]models.IndicatorDataPoint{{Date: "2024-01-01", Value: 40}, {Date: "2024-01-02", Value: tt.value}})
			assert.Equal(t, tt.signal, a.Signal)
			assert.Equal(t, tt.rationale, a.Rationale)
			assert.Equal(t, map[string]float64{"low": 20, "high": 25}, a.Levels)
		})
	}

	empty := AnalyzeVIX(nil)
	assert.Equal(t, models.RiskNeutral, empty.Signal)
}

func TestAnalyzeUS10Y(t *testing.T) {
	up := AnalyzeUS10Y(ramp(3, 0.01, 40))
	assert.Equal(t, models.RiskOn, up.Signal)
	assert.Equal(t, "Yield is in a clear uptrend (rising).", up.Rationale)
	assert.Len(t, up.SMA20, 31)
	assert.Len(t, up.SMA50, 11)

	down := AnalyzeUS10Y(ramp(5, -0.01, 40))
	assert.Equal(t, models.RiskOff, down.Signal)

	flat := AnalyzeUS10Y(ramp(4, 0, 40))
	assert.Equal(t, models.RiskNeutral, flat.Signal)
}

func TestAggregate(t *testing.T) {
	on, off, n := models.RiskOn, models.RiskOff, models.RiskNeutral
	tests := []struct {
		name       string
		signals    []models.RiskSignal
		summary    models.RiskSummary
		signal     models.RiskSignal
		conviction models.RiskConviction
	}{
		{"three on", []models.RiskSignal{on, on, on, n}, models.RiskSummary{On: 3, Neutral: 1}, on, models.ConvictionHigh},
		{"four off", []models.RiskSignal{off, off, off, off}, models.RiskSummary{Off: 4}, off, models.ConvictionHigh},
		{"two on one off", []models.RiskSignal{on, on, off, n}, models.RiskSummary{On: 2, Off: 1, Neutral: 1}, on, models.ConvictionMedium},
		{"two off", []models.RiskSignal{off, off, n, n}, models.RiskSummary{Off: 2, Neutral: 2}, off, models.ConvictionMedium},
		{"split", []models.RiskSignal{on, on, off, off}, models.RiskSummary{On: 2, Off: 2}, n, models.ConvictionUncertain},
		{"mixed", []models.RiskSignal{on, off, n, n}, models.RiskSummary{On: 1, Off: 1, Neutral: 2}, n, models.ConvictionUncertain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, sig, conv := Aggregate(tt.signals)
			assert.Equal(t, tt.summary, sum)
			assert.Equal(t, tt.signal, sig)
			assert.Equal(t, tt.conviction, conv)
		})
	}
}

func sentiment(signals ...models.RiskSignal) *models.RiskSentimentAnalysis {
	r := &models.RiskSentimentAnalysis{}
	for i, inst := range models.Instruments {
		slot, _ := r.Slot(inst)
		slot.Signal = signals[i]
	}
	Recalculate(r)
	return r
}

func TestIndicatorOverrideWins(t *testing.T) {
	r := sentiment(models.RiskOn, models.RiskOn, models.RiskNeutral, models.RiskNeutral)
	assert.Equal(t, models.ConvictionMedium, r.Conviction)

	on := models.RiskOn
	require.NoError(t, SetIndicatorOverride(r, models.InstrumentAUDJPY, &on))
	assert.Equal(t, models.RiskOn, r.OverallSignal)
	assert.Equal(t, models.ConvictionHigh, r.Conviction)
	assert.Equal(t, 3, r.Summary.On)

	require.NoError(t, SetIndicatorOverride(r, models.InstrumentAUDJPY, nil))
	assert.Nil(t, r.AUDJPY.UserOverrideSignal)
	assert.Equal(t, models.ConvictionMedium, r.Conviction)
}

func TestIndicatorOverrideRejectsBadInput(t *testing.T) {
	r := sentiment(models.RiskOn, models.RiskOn, models.RiskNeutral, models.RiskNeutral)
	bad := models.RiskSignal("Sideways")
	assert.ErrorIs(t, SetIndicatorOverride(r, models.InstrumentSPX, &bad), ErrInvalidSignal)
	assert.ErrorIs(t, SetIndicatorOverride(r, "dxy", nil), ErrUnknownInstrument)
}

func TestOverallOverrideKeepsComputedSummary(t *testing.T) {
	r := sentiment(models.RiskOn, models.RiskOn, models.RiskOn, models.RiskNeutral)
	off := models.RiskOff
	med := models.ConvictionMedium
	require.NoError(t, SetOverallOverride(r, &off, &med))

	assert.Equal(t, models.RiskOff, r.OverallSignal)
	assert.Equal(t, models.ConvictionMedium, r.Conviction)
	assert.Equal(t, models.RiskSummary{On: 3, Neutral: 1}, r.Summary)

	require.NoError(t, SetOverallOverride(r, nil, nil))
	assert.Equal(t, models.RiskOn, r.OverallSignal)
	assert.Equal(t, models.ConvictionHigh, r.Conviction)
}

func TestPreserveOverrides(t *testing.T) {
	prev := sentiment(models.RiskOn, models.RiskOn, models.RiskNeutral, models.RiskNeutral)
	off := models.RiskOff
	unc := models.ConvictionUncertain
	require.NoError(t, SetIndicatorOverride(prev, models.InstrumentVIX, &off))
	require.NoError(t, SetOverallOverride(prev, nil, &unc))

	next := Analyze(Series{SPX: ramp(100, 1, 60), VIX: ramp(12, 0, 5), AUDJPY: ramp(90, 1, 60), US10Y: ramp(4, 0, 40)})
	assert.Equal(t, models.ConvictionHigh, next.Conviction)

	PreserveOverrides(prev, next)
	require.NotNil(t, next.VIX.UserOverrideSignal)
	assert.Equal(t, models.RiskOff, *next.VIX.UserOverrideSignal)
	assert.Equal(t, models.RiskSummary{On: 2, Off: 1, Neutral: 1}, next.Summary)
	assert.Equal(t, models.RiskOn, next.OverallSignal)
	assert.Equal(t, models.ConvictionUncertain, next.Conviction)

	// the copy must not alias prev
	*prev.VIX.UserOverrideSignal = models.RiskOn
	assert.Equal(t, models.RiskOff, *next.VIX.UserOverrideSignal)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(nil))
	r := sentiment(models.RiskOn, models.RiskOn, models.RiskNeutral, models.RiskNeutral)
	require.NoError(t, Validate(r))

	bad := models.RiskSignal("Sideways")
	r.US10Y.UserOverrideSignal = &bad
	assert.ErrorIs(t, Validate(r), ErrInvalidSignal)

	r = sentiment(models.RiskOn, models.RiskOn, models.RiskNeutral, models.RiskNeutral)
	r.AUDJPY.Signal = "Up"
	assert.ErrorIs(t, Validate(r), ErrInvalidSignal)

	r = sentiment(models.RiskOn, models.RiskOn, models.RiskNeutral, models.RiskNeutral)
	r.UserOverrideSignal = &bad
	assert.ErrorIs(t, Validate(r), ErrInvalidSignal)

	total := models.RiskConviction("Total")
	r = sentiment(models.RiskOn, models.RiskOn, models.RiskNeutral, models.RiskNeutral)
	r.UserOverrideConviction = &total
	assert.ErrorIs(t, Validate(r), ErrInvalidConviction)
}
