//go:build wireinject
// +build wireinject

package di

import (
	"Tradia/pkg/config"
	"Tradia/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideBarStore,
		ProvideSignalStore,
		ProvidePublisher,
		ProvideMarketData,
		ProvideMarketStream,

		// Analytics services
		ProvideEdgeScorer,
		ProvideRanker,

		// Use cases
		ProvideSignalProcessor,
		ProvideScanner,
		ProvideScanQueue,
		ProvideOutcomeTracker,
		ProvidePriceCollector,
		ProvideSignalsQuery,
		ProvideKafkaSignalsHandler,

		// HTTP
		ProvideSignalsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
