package scoring

import "FXBias/internal/domain/models"

var (
	riskOnBasket    = map[string]bool{"AUD": true, "NZD": true, "CAD": true}
	safeHavenBasket = map[string]bool{"JPY": true, "CHF": true}
)

// RiskModifierFor returns the score adjustment a currency receives from the
// overall risk sentiment.
func RiskModifierFor(code string, signal models.RiskSignal, conviction models.RiskConviction, enabled bool) int {
	if !enabled || signal == "" || conviction == "" || conviction == models.ConvictionUncertain {
		return 0
	}
	magnitude := 1
	if conviction == models.ConvictionHigh {
		magnitude = 2
	}

	var sign int
	switch signal {
	case models.RiskOn:
		sign = 1
	case models.RiskOff:
		sign = -1
	default:
		return 0
	}

	switch {
	case riskOnBasket[code]:
		return sign * magnitude
	case safeHavenBasket[code]:
		return -sign * magnitude
	default:
		return 0
	}
}

// ApplyRiskModifier returns a copy of data with every risk modifier set from
// the given sentiment. When any modifier changed, directions are recomputed.
func ApplyRiskModifier(data models.AnalysisData, signal models.RiskSignal, conviction models.RiskConviction, enabled bool) (models.AnalysisData, bool) {
	out := data.Clone()
	changed := false
	for code, a := range out {
		m := RiskModifierFor(code, signal, conviction, enabled)
		if a.RiskModifier != m {
			a.RiskModifier = m
			changed = true
		}
	}
	if changed {
		out = RecomputeAllDirections(out)
	}
	return out, changed
}

// ApplyEventModifier sets the event modifier of one analyzed currency and
// recomputes directions. Returning to the recap's recommendation (or to zero
// without a recap) drops the manual rationale.
func ApplyEventModifier(data models.AnalysisData, code string, value int) (models.AnalysisData, error) {
	if err := ValidateEventModifier(value); err != nil {
		return data, err
	}
	out := data.Clone()
	a, ok := out[code]
	if !ok {
		a = models.NewCurrencyAnalysis()
		out[code] = a
	}
	a.EventModifierScore = value
	recommended := 0
	if a.Recap != nil {
		recommended = a.Recap.ScoreModifier
	}
	if value == recommended {
		a.EventModifierRationale = nil
	}
	return RecomputeAllDirections(out), nil
}
