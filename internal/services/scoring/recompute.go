package scoring

import (
	"FXBias/internal/domain/models"
	"FXBias/internal/services/risk"
)

// Recompute derives every computed field of the state from its inputs:
// sigma scores, risk summary, risk modifiers, then directions. The input is
// left untouched and Recompute(Recompute(s)) equals Recompute(s).
func Recompute(s models.SessionState) models.SessionState {
	out := s.Clone()
	if out.AnalysisData == nil {
		out.AnalysisData = make(models.AnalysisData)
	}
	for _, a := range out.AnalysisData {
		if a.Scores == nil {
			a.Scores = make(map[models.Indicator]models.Score)
		}
		a.SigmaScore = ComputeSigmaScore(a.Scores)
	}

	var (
		signal     models.RiskSignal
		conviction models.RiskConviction
	)
	if out.RiskSentiment != nil {
		risk.Recalculate(out.RiskSentiment)
		signal, conviction = out.RiskSentiment.OverallSignal, out.RiskSentiment.Conviction
	}
	for code, a := range out.AnalysisData {
		a.RiskModifier = RiskModifierFor(code, signal, conviction, out.UseRiskModifier)
	}

	out.AnalysisData = RecomputeAllDirections(out.AnalysisData)
	return out
}
