package models

// RiskSignal is the market-appetite reading of one instrument or of the whole market.
type RiskSignal string

const (
	RiskOn      RiskSignal = "Risk-On"
	RiskOff     RiskSignal = "Risk-Off"
	RiskNeutral RiskSignal = "Neutral"
)

// Valid reports whether s is one of the three known signals.
func (s RiskSignal) Valid() bool {
	return s == RiskOn || s == RiskOff || s == RiskNeutral
}

// RiskConviction is the confidence in the aggregated signal.
type RiskConviction string

const (
	ConvictionHigh      RiskConviction = "High"
	ConvictionMedium    RiskConviction = "Medium"
	ConvictionUncertain RiskConviction = "Uncertain"
)

func (c RiskConviction) Valid() bool {
	return c == ConvictionHigh || c == ConvictionMedium || c == ConvictionUncertain
}

// Instrument keys the four risk-sentiment slots.
type Instrument string

const (
	InstrumentSPX    Instrument = "spx"
	InstrumentVIX    Instrument = "vix"
	InstrumentAUDJPY Instrument = "audjpy"
	InstrumentUS10Y  Instrument = "us10y"
)

// Instruments lists the slots in aggregation order.
var Instruments = []Instrument{InstrumentSPX, InstrumentVIX, InstrumentAUDJPY, InstrumentUS10Y}

// IndicatorDataPoint is one observation of an ascending time series.
type IndicatorDataPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// IndicatorAnalysis is the classified state of one risk instrument.
type IndicatorAnalysis struct {
	Name               string               `json:"name"`
	Role               string               `json:"role"`
	Signal             RiskSignal           `json:"signal"`
	Rationale          string               `json:"rationale"`
	Data               []IndicatorDataPoint `json:"data"`
	SMA20              []IndicatorDataPoint `json:"sma20,omitempty"`
	SMA50              []IndicatorDataPoint `json:"sma50,omitempty"`
	Levels             map[string]float64   `json:"levels,omitempty"`
	UserOverrideSignal *RiskSignal          `json:"userOverrideSignal,omitempty"`
}

// EffectiveSignal returns the override when set, otherwise the computed signal.
func (a IndicatorAnalysis) EffectiveSignal() RiskSignal {
	if a.UserOverrideSignal != nil {
		return *a.UserOverrideSignal
	}
	return a.Signal
}

func (a IndicatorAnalysis) clone() IndicatorAnalysis {
	out := a
	out.Data = append([]IndicatorDataPoint(nil), a.Data...)
	if a.SMA20 != nil {
		out.SMA20 = append([]IndicatorDataPoint(nil), a.SMA20...)
	}
	if a.SMA50 != nil {
		out.SMA50 = append([]IndicatorDataPoint(nil), a.SMA50...)
	}
	if a.Levels != nil {
		out.Levels = make(map[string]float64, len(a.Levels))
		for k, v := range a.Levels {
			out.Levels[k] = v
		}
	}
	if a.UserOverrideSignal != nil {
		s := *a.UserOverrideSignal
		out.UserOverrideSignal = &s
	}
	return out
}

// RiskSummary counts effective signals across the four instruments.
type RiskSummary struct {
	On      int `json:"on"`
	Off     int `json:"off"`
	Neutral int `json:"neutral"`
}

// RiskSentimentAnalysis is the four-instrument risk view. OverallSignal and
// Conviction are the exposed values: the top-level overrides when set.
type RiskSentimentAnalysis struct {
	SPX                    IndicatorAnalysis `json:"spx"`
	VIX                    IndicatorAnalysis `json:"vix"`
	AUDJPY                 IndicatorAnalysis `json:"audjpy"`
	US10Y                  IndicatorAnalysis `json:"us10y"`
	Summary                RiskSummary       `json:"summary"`
	OverallSignal          RiskSignal        `json:"overallSignal"`
	Conviction             RiskConviction    `json:"conviction"`
	UserOverrideSignal     *RiskSignal       `json:"userOverrideSignal,omitempty"`
	UserOverrideConviction *RiskConviction   `json:"userOverrideConviction,omitempty"`
}

// Slot returns a pointer to the analysis for the given instrument.
func (r *RiskSentimentAnalysis) Slot(inst Instrument) (*IndicatorAnalysis, bool) {
	switch inst {
	case InstrumentSPX:
		return &r.SPX, true
	case InstrumentVIX:
		return &r.VIX, true
	case InstrumentAUDJPY:
		return &r.AUDJPY, true
	case InstrumentUS10Y:
		return &r.US10Y, true
	}
	return nil, false
}

// Signals returns the effective signal of each instrument in aggregation order.
func (r *RiskSentimentAnalysis) Signals() []RiskSignal {
	return []RiskSignal{
		r.SPX.EffectiveSignal(),
		r.VIX.EffectiveSignal(),
		r.AUDJPY.EffectiveSignal(),
		r.US10Y.EffectiveSignal(),
	}
}

// Clone returns a deep copy.
func (r *RiskSentimentAnalysis) Clone() *RiskSentimentAnalysis {
	if r == nil {
		return nil
	}
	out := *r
	out.SPX = r.SPX.clone()
	out.VIX = r.VIX.clone()
	out.AUDJPY = r.AUDJPY.clone()
	out.US10Y = r.US10Y.clone()
	if r.UserOverrideSignal != nil {
		s := *r.UserOverrideSignal
		out.UserOverrideSignal = &s
	}
	if r.UserOverrideConviction != nil {
		c := *r.UserOverrideConviction
		out.UserOverrideConviction = &c
	}
	return &out
}
