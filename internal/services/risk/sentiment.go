package risk

import (
	"errors"
	"fmt"

	"FXBias/internal/domain/models"
)

var (
	ErrUnknownInstrument = errors.New("unknown risk instrument")
	ErrInvalidSignal     = errors.New("invalid risk signal")
	ErrInvalidConviction = errors.New("invalid risk conviction")
)

// Series groups the raw input of the four instruments.
type Series struct {
	SPX    []models.IndicatorDataPoint
	VIX    []models.IndicatorDataPoint
	AUDJPY []models.IndicatorDataPoint
	US10Y  []models.IndicatorDataPoint
}

// Analyze classifies every instrument and aggregates the overall sentiment.
func Analyze(in Series) *models.RiskSentimentAnalysis {
	r := &models.RiskSentimentAnalysis{
		SPX:    AnalyzeSPX(in.SPX),
		VIX:    AnalyzeVIX(in.VIX),
		AUDJPY: AnalyzeAUDJPY(in.AUDJPY),
		US10Y:  AnalyzeUS10Y(in.US10Y),
	}
	Recalculate(r)
	return r
}

// Aggregate counts the signals and resolves the overall signal and conviction.
func Aggregate(signals []models.RiskSignal) (models.RiskSummary, models.RiskSignal, models.RiskConviction) {
	var sum models.RiskSummary
	for _, s := range signals {
		switch s {
		case models.RiskOn:
			sum.On++
		case models.RiskOff:
			sum.Off++
		default:
			sum.Neutral++
		}
	}

	switch {
	case sum.On >= 3:
		return sum, models.RiskOn, models.ConvictionHigh
	case sum.Off >= 3:
		return sum, models.RiskOff, models.ConvictionHigh
	case sum.On == 2 && sum.Off <= 1:
		return sum, models.RiskOn, models.ConvictionMedium
	case sum.Off == 2 && sum.On <= 1:
		return sum, models.RiskOff, models.ConvictionMedium
	default:
		return sum, models.RiskNeutral, models.ConvictionUncertain
	}
}

// Recalculate refreshes the summary from the effective instrument signals and
// sets the exposed signal and conviction, top-level overrides first.
func Recalculate(r *models.RiskSentimentAnalysis) {
	if r == nil {
		return
	}
	sum, signal, conviction := Aggregate(r.Signals())
	r.Summary = sum
	r.OverallSignal = signal
	r.Conviction = conviction
	if r.UserOverrideSignal != nil {
		r.OverallSignal = *r.UserOverrideSignal
	}
	if r.UserOverrideConviction != nil {
		r.Conviction = *r.UserOverrideConviction
	}
}

// PreserveOverrides copies every manual override of prev onto next and
// recalculates next.
func PreserveOverrides(prev, next *models.RiskSentimentAnalysis) {
	if prev == nil || next == nil {
		return
	}
	for _, inst := range models.Instruments {
		from, _ := prev.Slot(inst)
		to, _ := next.Slot(inst)
		to.UserOverrideSignal = copySignal(from.UserOverrideSignal)
	}
	next.UserOverrideSignal = copySignal(prev.UserOverrideSignal)
	if prev.UserOverrideConviction != nil {
		c := *prev.UserOverrideConviction
		next.UserOverrideConviction = &c
	}
	Recalculate(next)
}

// SetIndicatorOverride sets the override of one instrument. A nil signal
// clears it.
func SetIndicatorOverride(r *models.RiskSentimentAnalysis, inst models.Instrument, signal *models.RiskSignal) error {
	slot, ok := r.Slot(inst)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownInstrument, inst)
	}
	if signal != nil && !signal.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSignal, *signal)
	}
	slot.UserOverrideSignal = copySignal(signal)
	Recalculate(r)
	return nil
}

// SetOverallOverride sets the top-level overrides. Nil values clear them.
func SetOverallOverride(r *models.RiskSentimentAnalysis, signal *models.RiskSignal, conviction *models.RiskConviction) error {
	if signal != nil && !signal.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSignal, *signal)
	}
	if conviction != nil && !conviction.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidConviction, *conviction)
	}
	r.UserOverrideSignal = copySignal(signal)
	r.UserOverrideConviction = nil
	if conviction != nil {
		c := *conviction
		r.UserOverrideConviction = &c
	}
	Recalculate(r)
	return nil
}

// Validate rejects a sentiment whose signals or overrides are outside the
// known values. Computed fields are not checked; Recalculate rewrites them.
func Validate(r *models.RiskSentimentAnalysis) error {
	if r == nil {
		return nil
	}
	for _, inst := range models.Instruments {
		slot, _ := r.Slot(inst)
		if !slot.Signal.Valid() {
			return fmt.Errorf("%s: %w: %q", inst, ErrInvalidSignal, slot.Signal)
		}
		if slot.UserOverrideSignal != nil && !slot.UserOverrideSignal.Valid() {
			return fmt.Errorf("%s override: %w: %q", inst, ErrInvalidSignal, *slot.UserOverrideSignal)
		}
	}
	if r.UserOverrideSignal != nil && !r.UserOverrideSignal.Valid() {
		return fmt.Errorf("overall override: %w: %q", ErrInvalidSignal, *r.UserOverrideSignal)
	}
	if r.UserOverrideConviction != nil && !r.UserOverrideConviction.Valid() {
		return fmt.Errorf("overall override: %w: %q", ErrInvalidConviction, *r.UserOverrideConviction)
	}
	return nil
}

func copySignal(s *models.RiskSignal) *models.RiskSignal {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
