//go:build wireinject
// +build wireinject

package di

import (
	"LearnCast/internal/usecase"
	"LearnCast/pkg/config"
	"LearnCast/pkg/server"

	"github.com/google/wire"
)

var predictionSet = wire.NewSet(
	// Infrastructure
	ProvideTracer,
	ProvideMetrics,
	ProvideActivityBackend,
	ProvideActivityStore,
	ProvideKafkaProducer,
	ProvidePredictionPublisher,
	ProvideResultCache,

	// Models
	ProvideAnalyticsParams,
	ProvideTrajectoryForecaster,
	ProvideMasteryEstimator,
	ProvideCompletionProjector,
	ProvideRecommendationRanker,

	// Use cases
	ProvideSignalAggregator,
	ProvidePredictionUseCase,
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		predictionSet,
		ProvideRateLimiter,
		ProvidePredictionsHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,
		ProvideActivityHandler,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializePredictor wires the prediction pipeline alone, for one-shot CLI use.
func InitializePredictor(cfg *config.Config) (*usecase.PredictionUseCase, func(), error) {
	wire.Build(
		ProvideLogger,
		predictionSet,
	)
	return nil, nil, nil
}
