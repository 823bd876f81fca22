//go:build wireinject
// +build wireinject

package di

import (
	"FXBias/pkg/config"
	"FXBias/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients, nil when disabled
		ProvideRedisClient,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideStateRepository,
		ProvideHistoryRepository,
		ProvidePublisher,
		ProvideSharedCache,

		// Collaborators
		ProvideMarketData,
		ProvideScorer,
		ProvideRecapGenerator,

		// Use cases
		ProvideSession,
		ProvideAnalysisUseCase,
		ProvideRiskSentimentUseCase,

		// HTTP
		ProvideBiasHandler,
		ProvideStreamHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
