//go:build wireinject
// +build wireinject

package di

import (
	"TypoTrade/pkg/config"
	"TypoTrade/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,

		// Sources and sinks
		ProvideResultStore,
		ProvideResultPublisher,
		ProvideResultSink,
		ProvideBarSource,
		ProvideNasdaqClient,
		ProvideUniverseSource,
		ProvideIPOSource,

		// Matching and analytics services
		ProvideMatcher,
		ProvideAnomalyDetector,
		ProvideCorrelationEngine,
		ProvideBacktestSimulator,

		// Use cases
		ProvidePairScanner,
		ProvidePairStudy,
		ProvideIPOStudy,

		// HTTP
		ProvideStudyHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
