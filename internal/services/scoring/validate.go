package scoring

import (
	"errors"
	"fmt"
	"strings"

	"FXBias/internal/domain/models"
	"FXBias/internal/services/risk"
)

var (
	ErrInvalidTrade    = errors.New("invalid trade")
	ErrInvalidSettings = errors.New("invalid settings")
)

// ValidateState checks every user-controlled input of a state that did not
// come through the regular operations, such as an import or a restored
// snapshot. Computed fields are ignored since Recompute derives them.
func ValidateState(st models.SessionState) error {
	if err := validateAnalysis(st.AnalysisData); err != nil {
		return err
	}
	for _, snap := range st.HistoricalData {
		if err := validateAnalysis(snap.Data); err != nil {
			return fmt.Errorf("history %s: %w", snap.Date, err)
		}
	}
	if err := risk.Validate(st.RiskSentiment); err != nil {
		return fmt.Errorf("risk sentiment: %w", err)
	}
	if err := ValidateSettings(st.RecapStyle, st.RetrySettings); err != nil {
		return err
	}
	for _, t := range st.Trades {
		if err := ValidateTrade(t); err != nil {
			return fmt.Errorf("trade %s: %w", t.ID, err)
		}
	}
	return nil
}

func validateAnalysis(data models.AnalysisData) error {
	for code, a := range data {
		if a == nil {
			continue
		}
		for ind, s := range a.Scores {
			if err := ValidateScore(ind, s); err != nil {
				return fmt.Errorf("%s: %w", code, err)
			}
		}
		if err := ValidateEventModifier(a.EventModifierScore); err != nil {
			return fmt.Errorf("%s: %w", code, err)
		}
		if a.Recap != nil {
			if err := ValidateEventModifier(a.Recap.ScoreModifier); err != nil {
				return fmt.Errorf("%s recap: %w", code, err)
			}
		}
	}
	return nil
}

// ValidateSettings accepts an empty style, meaning the configured one.
func ValidateSettings(recapStyle string, retry *models.RetrySettings) error {
	if recapStyle != "" && !models.ValidRecapStyle(recapStyle) {
		return fmt.Errorf("%w: recap style %q", ErrInvalidSettings, recapStyle)
	}
	if retry == nil {
		return nil
	}
	for name, r := range map[string]models.RetrySetting{"analyzeAll": retry.AnalyzeAll, "generateRecap": retry.GenerateRecap} {
		if r.Attempts < 1 || r.Attempts > 10 {
			return fmt.Errorf("%w: %s attempts must be in [1, 10], got %d", ErrInvalidSettings, name, r.Attempts)
		}
	}
	return nil
}

// ValidateTrade checks the fields a journal entry cannot do without.
func ValidateTrade(t models.Trade) error {
	switch {
	case strings.TrimSpace(t.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidTrade)
	case strings.TrimSpace(t.Pair) == "":
		return fmt.Errorf("%w: missing pair", ErrInvalidTrade)
	case t.Direction != models.TradeLong && t.Direction != models.TradeShort:
		return fmt.Errorf("%w: direction %q", ErrInvalidTrade, t.Direction)
	case t.Status != models.TradeOpen && t.Status != models.TradeClosed:
		return fmt.Errorf("%w: status %q", ErrInvalidTrade, t.Status)
	case t.EntryPrice <= 0:
		return fmt.Errorf("%w: entry price must be positive", ErrInvalidTrade)
	}
	return nil
}
