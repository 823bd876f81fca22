package scoring

import (
	"errors"
	"fmt"
	"strings"

	"FXBias/internal/domain/models"
)

var (
	ErrInvalidScore     = errors.New("score must be an integer in [-2, 2]")
	ErrEmptyRationale   = errors.New("rationale must not be empty")
	ErrInvalidModifier  = errors.New("event modifier must be -1, 0 or 1")
	ErrUnknownIndicator = errors.New("unknown indicator")
)

// ComputeSigmaScore sums a currency's indicator scores. The two PMI readings
// count as one: their average when both are present, otherwise whichever exists.
func ComputeSigmaScore(scores map[models.Indicator]models.Score) float64 {
	mfg, hasMfg := scores[models.IndicatorManufacturingPMI]
	svc, hasSvc := scores[models.IndicatorServicesPMI]

	var pmi float64
	switch {
	case hasMfg && hasSvc:
		pmi = float64(mfg.Score+svc.Score) / 2
	case hasMfg:
		pmi = float64(mfg.Score)
	case hasSvc:
		pmi = float64(svc.Score)
	}

	rest := 0
	for ind, s := range scores {
		if ind == models.IndicatorManufacturingPMI || ind == models.IndicatorServicesPMI {
			continue
		}
		rest += s.Score
	}
	return pmi + float64(rest)
}

// ValidateScore rejects scores a collaborator should never have produced.
func ValidateScore(ind models.Indicator, s models.Score) error {
	if !models.IsKnownIndicator(ind) {
		return fmt.Errorf("%w: %q", ErrUnknownIndicator, ind)
	}
	if s.Score < -2 || s.Score > 2 {
		return fmt.Errorf("%s: %w, got %d", ind, ErrInvalidScore, s.Score)
	}
	if strings.TrimSpace(s.Rationale) == "" {
		return fmt.Errorf("%s: %w", ind, ErrEmptyRationale)
	}
	return nil
}

// ValidateEventModifier checks v is in {-1, 0, 1}.
func ValidateEventModifier(v int) error {
	if v < -1 || v > 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidModifier, v)
	}
	return nil
}
