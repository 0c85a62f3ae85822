//go:build wireinject
// +build wireinject

package di

import (
	"RWAPrice/pkg/config"
	"RWAPrice/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,
		ProvideLimiter,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories (with business logic)
		ProvideEmbedder,
		ProvideKnowledgeStore,
		ProvideAssetCatalog,
		ProvideAuditSink,
		ProvideSignalPublisher,

		// Signal sources and generation
		ProvideSources,
		ProvideGenerator,

		// Use cases
		ProvideAggregator,
		ProvideSynthesizer,
		ProvidePricer,
		ProvideObservationsHandler,

		// HTTP
		ProvidePricingHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
