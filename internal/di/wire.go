//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"ComicScout/pkg/config"
	"ComicScout/pkg/server"
)

// InitializeApp wires every component from the loaded config.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvidePostgresClient,
		ProvideMarketplaceClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvideSalesStore,
		ProvideListingSource,
		ProvideSalesSource,
		ProvideDealPublisher,

		// Domain services
		ProvideMarketValuer,
		ProvideValueInvalidator,
		ProvideDealScorer,
		ProvideTitleNormalizer,

		// Use cases
		ProvideTopDealsUseCase,
		ProvideLocker,
		ProvideHub,
		ProvideDealFeed,
		ProvideSalesIngestHandler,

		// Transport
		ProvideRateLimiter,
		ProvideDealsHandler,

		ProvideApp,
	)
	return &server.App{}, nil
}
