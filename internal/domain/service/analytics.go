package service

import (
	"context"

	"FXBias/internal/domain/models"
)

// ScoreInput is everything the scoring service needs for one indicator.
type ScoreInput struct {
	Currency  string           `json:"currency"`
	Indicator models.Indicator `json:"indicator"`
	Sources   []string         `json:"sources,omitempty"`
	Text      string           `json:"text,omitempty"`
	// Attempts overrides the configured retry attempts when positive.
	Attempts int `json:"-"`
}

// IndicatorScorer scores one indicator of one currency.
type IndicatorScorer interface {
	Score(ctx context.Context, in ScoreInput) (models.Score, error)
}

// RecapInput carries the current scores a recap is written against.
type RecapInput struct {
	Currency string                             `json:"currency"`
	Style    string                             `json:"style"`
	Scores   map[models.Indicator]models.Score `json:"scores"`
	Attempts int                               `json:"-"`
}

// RecapGenerator writes the economic recap for a currency.
type RecapGenerator interface {
	Generate(ctx context.Context, in RecapInput) (models.EconomicRecap, error)
}

// MarketData supplies ascending daily series for the risk instruments.
type MarketData interface {
	DailyStock(ctx context.Context, symbol string) ([]models.IndicatorDataPoint, error)
	DailyFX(ctx context.Context, from, to string) ([]models.IndicatorDataPoint, error)
	TreasuryYield(ctx context.Context, maturity string) ([]models.IndicatorDataPoint, error)
}
