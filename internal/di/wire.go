//go:build wireinject
// +build wireinject

package di

import (
	"SignalFlow/pkg/config"
	"SignalFlow/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideRegistry,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Stores
		ProvideSnapshotSource,
		ProvideHistoryStore,
		ProvideCooldownStore,
		ProvideSubscriptionStore,
		ProvideSignalPublisher,

		// Detection
		ProvideBus,
		ProvideDetector,
		ProvidePollEngine,
		ProvideFeedClient,
		ProvideSnapshotsHandler,

		// Delivery
		ProvideSpoolQueue,
		ProvideDispatcher,

		// HTTP and application
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
