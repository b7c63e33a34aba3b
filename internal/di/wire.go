//go:build wireinject
// +build wireinject

package di

import (
	"DeclCast/pkg/config"
	"DeclCast/pkg/server"

	"github.com/google/wire"
)

var runtimeSet = wire.NewSet(
	// Ambient
	ProvideLogger,
	ProvideMetrics,

	// Infrastructure
	ProvideBlobStore,
	ProvideEvaluationLog,
	ProvideEventPublisher,

	// Domain services
	ProvideModelFactory,
	ProvideModelStore,
	ProvideFeatureBuilder,
	ProvideHorizonBuilder,
	ProvideEvaluator,

	// Use cases
	ProvideForecastingUseCase,
	ProvideRuntime,
)

// InitializeRuntime wires the use case without the HTTP layer, for the CLI.
func InitializeRuntime(cfg *config.Config) (*Runtime, error) {
	wire.Build(runtimeSet)
	return &Runtime{}, nil
}

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		runtimeSet,

		// HTTP
		ProvideRateLimiter,
		ProvideForecastHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
