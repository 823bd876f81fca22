package repository

import (
	"context"

	"FXBias/internal/domain/models"
)

// StateRepository persists the session state between restarts.
type StateRepository interface {
	Load(ctx context.Context) (*models.SessionState, error) // nil, nil when nothing is stored
	Save(ctx context.Context, s models.SessionState) error
}

// HistoryRepository stores one snapshot per day.
type HistoryRepository interface {
	SaveSnapshot(ctx context.Context, s models.HistoricalSnapshot) error
	ListSnapshots(ctx context.Context, limit int) (models.HistoricalData, error)
}

// Publisher fans recomputed currency analyses out to downstream consumers.
type Publisher interface {
	PublishAnalysis(ctx context.Context, data models.AnalysisData) error
	Close() error
}

type Metrics interface {
	RecordRecompute()
	RecordAnalysis(currency, result string)
	RecordCacheRequest(cache, result string)
	RecordFinalScore(currency string, score float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
