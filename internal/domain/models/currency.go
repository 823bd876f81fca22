package models

// Currency is a tracked currency and its display flag.
type Currency struct {
	Code string `json:"code" yaml:"code"`
	Flag string `json:"flag" yaml:"flag"`
}

// Indicator names one economic input scored per currency.
type Indicator string

const (
	IndicatorManufacturingPMI   Indicator = "Manufacturing PMI"
	IndicatorServicesPMI        Indicator = "Services PMI"
	IndicatorConsumerConfidence Indicator = "Consumer Confidence"
	IndicatorCPI                Indicator = "CPI"
	IndicatorMoneySupply        Indicator = "Money Supply"
	IndicatorCOT                Indicator = "COT"
	IndicatorCentralBank        Indicator = "Central Bank"
	IndicatorSeasonality        Indicator = "Seasonality"
	IndicatorRetailSentiment    Indicator = "Retail Sentiment"
	IndicatorStrongVsWeak       Indicator = "Strong vs Weak"
)

// Indicators is the catalog in display order.
var Indicators = []Indicator{
	IndicatorManufacturingPMI,
	IndicatorServicesPMI,
	IndicatorConsumerConfidence,
	IndicatorCPI,
	IndicatorMoneySupply,
	IndicatorCOT,
	IndicatorCentralBank,
	IndicatorSeasonality,
	IndicatorRetailSentiment,
	IndicatorStrongVsWeak,
}

// IsKnownIndicator reports whether ind is part of the catalog.
func IsKnownIndicator(ind Indicator) bool {
	for _, i := range Indicators {
		if i == ind {
			return true
		}
	}
	return false
}

// Score is a single indicator reading for a currency, in [-2, 2].
type Score struct {
	Score     int    `json:"score"`
	Rationale string `json:"rationale"`
	RawData   string `json:"rawData,omitempty"`
}

// ManualRationale is attached to scores entered by hand.
const ManualRationale = "Manual override."

// Direction is the five-level directional label.
type Direction string

const (
	DirectionVeryBullish Direction = "Very Bullish"
	DirectionBullish     Direction = "Bullish"
	DirectionNeutral     Direction = "Neutral"
	DirectionBearish     Direction = "Bearish"
	DirectionVeryBearish Direction = "Very Bearish"
)

// CurrencyAnalysis is the per-currency aggregate. SigmaScore, Direction and
// RiskModifier are derived and rewritten on every recompute.
type CurrencyAnalysis struct {
	Scores                 map[Indicator]Score `json:"scores"`
	SigmaScore             float64             `json:"sigmaScore"`
	Direction              Direction           `json:"direction"`
	Recap                  *EconomicRecap      `json:"recap,omitempty"`
	EventModifierScore     int                 `json:"eventModifierScore"`
	EventModifierRationale *string             `json:"eventModifierRationale,omitempty"`
	RiskModifier           int                 `json:"riskModifier"`
}

// NewCurrencyAnalysis returns an empty, neutral analysis.
func NewCurrencyAnalysis() *CurrencyAnalysis {
	return &CurrencyAnalysis{
		Scores:    make(map[Indicator]Score),
		Direction: DirectionNeutral,
	}
}

// FinalScore is sigma plus both modifiers.
func (a *CurrencyAnalysis) FinalScore() float64 {
	return a.SigmaScore + float64(a.EventModifierScore) + float64(a.RiskModifier)
}

// Clone returns a deep copy.
func (a *CurrencyAnalysis) Clone() *CurrencyAnalysis {
	if a == nil {
		return nil
	}
	out := *a
	out.Scores = make(map[Indicator]Score, len(a.Scores))
	for k, v := range a.Scores {
		out.Scores[k] = v
	}
	if a.EventModifierRationale != nil {
		r := *a.EventModifierRationale
		out.EventModifierRationale = &r
	}
	out.Recap = a.Recap.Clone()
	return &out
}

// AnalysisData maps currency code to its analysis. A missing or nil entry
// means the currency has not been analyzed yet.
type AnalysisData map[string]*CurrencyAnalysis

// Clone deep-copies the map, dropping nil entries.
func (d AnalysisData) Clone() AnalysisData {
	out := make(AnalysisData, len(d))
	for code, a := range d {
		if a == nil {
			continue
		}
		out[code] = a.Clone()
	}
	return out
}

// HistoricalSnapshot is the analysis state captured for one calendar day.
type HistoricalSnapshot struct {
	Date string       `json:"date"`
	Data AnalysisData `json:"data"`
}

// HistoricalData holds at most one snapshot per date.
type HistoricalData []HistoricalSnapshot

// Upsert replaces the snapshot for s.Date or appends a new one.
func (h HistoricalData) Upsert(s HistoricalSnapshot) HistoricalData {
	for i := range h {
		if h[i].Date == s.Date {
			out := h.Clone()
			out[i] = s
			return out
		}
	}
	return append(h.Clone(), s)
}

// Clone deep-copies every snapshot.
func (h HistoricalData) Clone() HistoricalData {
	if h == nil {
		return nil
	}
	out := make(HistoricalData, len(h))
	for i, s := range h {
		out[i] = HistoricalSnapshot{Date: s.Date, Data: s.Data.Clone()}
	}
	return out
}
