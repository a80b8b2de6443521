//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"AssetRevest/pkg/config"
	"AssetRevest/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisQueue,

		// Repositories
		ProvideStore,
		ProvideEventPublisher,
		ProvideLoader,

		// Use cases
		ProvidePipeline,
		ProvidePortfolio,
		ProvideDailySignal,
		ProvideBacktests,
		ProvideBacktestJob,
		ProvideMarketDataHandler,

		// HTTP
		ProvideAPIHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
