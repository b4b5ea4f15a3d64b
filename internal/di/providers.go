package di

import (
	"context"
	"fmt"
	"time"

	domrepo "LearnCast/internal/domain/repository"
	domsvc "LearnCast/internal/domain/service"
	"LearnCast/internal/handler/api"
	internalrepo "LearnCast/internal/repository"
	"LearnCast/internal/service/cache"
	"LearnCast/internal/service/ratelimit"
	"LearnCast/internal/services/analytics"
	"LearnCast/internal/usecase"
	pkgch "LearnCast/pkg/clickhouse"
	"LearnCast/pkg/config"
	xhttp "LearnCast/pkg/http"
	pkgkafka "LearnCast/pkg/kafka"
	applogger "LearnCast/pkg/logger"
	"LearnCast/pkg/metrics"
	"LearnCast/pkg/server"
	"LearnCast/pkg/tracing"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	initTimeout = 10 * time.Second
	tracerName  = "LearnCast/usecase"
)

// ActivityBackend is the configured learning-record store. Writer is nil for
// read-only backends.
type ActivityBackend struct {
	Store  domrepo.ActivityStore
	Writer domrepo.ActivityWriter
}

// ProvideLogger creates the structured logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideTracer installs the otel tracer provider when tracing is enabled. The
// cleanup flushes buffered spans. Disabled tracing yields the global no-op tracer.
func ProvideTracer(cfg *config.Config, l *applogger.Logger) (trace.Tracer, func(), error) {
	if !cfg.Tracing.Enabled {
		return otel.Tracer(tracerName), func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	p, err := tracing.New(ctx, tracing.Config{
		ServiceName:  cfg.Tracing.ServiceName,
		Environment:  cfg.Environment,
		Exporter:     cfg.Tracing.Exporter,
		Endpoint:     cfg.Tracing.Endpoint,
		Insecure:     cfg.Tracing.Insecure,
		Headers:      cfg.Tracing.Headers,
		SampleRatio:  cfg.Tracing.SampleRatio,
		BatchTimeout: cfg.Tracing.BatchTimeout,
	}, l)
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: %w", err)
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
		defer cancel()
		if err := p.Shutdown(ctx); err != nil {
			l.Warn("tracer shutdown failed", applogger.Error(err))
		}
	}
	return p.TracerProvider().Tracer(tracerName), cleanup, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideActivityBackend opens the store selected by backend.type.
func ProvideActivityBackend(cfg *config.Config, l *applogger.Logger) (*ActivityBackend, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	switch cfg.Backend.Type {
	case config.BackendClickHouse:
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		if err := client.InitSchema(ctx, internalrepo.ActivitySchema()); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		store := internalrepo.NewCHActivityStore(client, l)
		cleanup := func() {
			if err := client.Close(); err != nil {
				l.Warn("clickhouse close error", applogger.Error(err))
			}
		}
		return &ActivityBackend{Store: store, Writer: store}, cleanup, nil

	case config.BackendPostgres:
		db, err := internalrepo.OpenPostgres(internalrepo.PostgresConfig{
			DSN:          cfg.Postgres.DSN,
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
			MaxIdleConns: cfg.Postgres.MaxIdleConns,
			ConnMaxLife:  cfg.Postgres.ConnMaxLife,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		store := internalrepo.NewGormActivityStore(db, l)
		cleanup := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		if cfg.Postgres.AutoMigrate {
			if err := store.AutoMigrate(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("postgres migrate: %w", err)
			}
		}
		return &ActivityBackend{Store: store, Writer: store}, cleanup, nil

	case config.BackendHTTP:
		store := internalrepo.NewHTTPActivityStore(internalrepo.HTTPStoreConfig{
			BaseURL:  cfg.ActivityAPI.BaseURL,
			Token:    cfg.ActivityAPI.Token,
			Timeout:  cfg.ActivityAPI.Timeout,
			Attempts: cfg.ActivityAPI.Attempts,
		}, l)
		return &ActivityBackend{Store: store}, func() {}, nil

	default:
		store := internalrepo.NewMemoryActivityStore()
		if cfg.Backend.Seed != "" {
			if err := store.LoadSeed(cfg.Backend.Seed); err != nil {
				return nil, nil, fmt.Errorf("memory seed: %w", err)
			}
		}
		return &ActivityBackend{Store: store, Writer: store}, func() {}, nil
	}
}

func ProvideActivityStore(b *ActivityBackend) domrepo.ActivityStore {
	return b.Store
}

// ProvideKafkaProducer creates a Kafka producer when predictions or logs are
// shipped to Kafka; otherwise it returns nil.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled && !cfg.Logging.Collector.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvidePredictionPublisher publishes prediction events when Kafka is enabled.
func ProvidePredictionPublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.PredictionPublisher {
	if !cfg.Kafka.Enabled || producer == nil {
		return internalrepo.NopPredictionPublisher{}
	}
	return internalrepo.NewKafkaPredictionPublisher(producer, cfg.Kafka.PredictionsTopic)
}

// ProvideResultCache builds the in-process cache, layered over Redis when
// Redis is reachable. A nil cache disables memoization.
func ProvideResultCache(cfg *config.Config, l *applogger.Logger) (cache.BytesCache, func(), error) {
	if !cfg.Cache.Enabled {
		return nil, func() {}, nil
	}
	local := cache.NewTTLCache(cache.WithMaxEntries(10000))
	if !cfg.Redis.Enabled {
		return local, func() {}, nil
	}

	rc := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Cache.Prefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		l.Warn("redis unavailable, using local cache only", applogger.String("addr", cfg.Redis.Addr), applogger.Error(err))
		_ = rc.Close()
		return local, func() {}, nil
	}
	return cache.NewLayered(local, rc, cfg.Cache.TTL), func() { _ = rc.Close() }, nil
}

func ProvideAnalyticsParams(cfg *config.Config) analytics.Params {
	return analytics.ParamsFromConfig(cfg)
}

func ProvideTrajectoryForecaster(p analytics.Params, l *applogger.Logger) domsvc.TrajectoryForecaster {
	f := analytics.NewTrajectoryForecaster(p)
	f.SetLogger(l)
	return f
}

func ProvideMasteryEstimator(p analytics.Params) domsvc.MasteryEstimator {
	return analytics.NewMasteryEstimator(p)
}

func ProvideCompletionProjector(p analytics.Params) domsvc.CompletionProjector {
	return analytics.NewCompletionProjector(p)
}

func ProvideRecommendationRanker(p analytics.Params) domsvc.RecommendationRanker {
	return analytics.NewRecommendationRanker(p)
}

func ProvideSignalAggregator(cfg *config.Config, store domrepo.ActivityStore, m domrepo.Metrics, l *applogger.Logger) *usecase.SignalAggregator {
	return usecase.NewSignalAggregator(store, m, l, cfg.Backend.Timeout)
}

// ProvidePredictionUseCase assembles the prediction pipeline.
func ProvidePredictionUseCase(
	cfg *config.Config,
	agg *usecase.SignalAggregator,
	forecaster domsvc.TrajectoryForecaster,
	mastery domsvc.MasteryEstimator,
	projector domsvc.CompletionProjector,
	ranker domsvc.RecommendationRanker,
	resultCache cache.BytesCache,
	pub domrepo.PredictionPublisher,
	m domrepo.Metrics,
	tracer trace.Tracer,
	l *applogger.Logger,
) *usecase.PredictionUseCase {
	opts := []usecase.PredictionOption{
		usecase.WithPublisher(pub),
		usecase.WithMetrics(m),
		usecase.WithTracer(tracer),
		usecase.WithLogger(l),
	}
	if resultCache != nil {
		opts = append(opts, usecase.WithResultCache(resultCache, cfg.Cache.TTL))
	}
	return usecase.NewPredictionUseCase(agg, forecaster, mastery, projector, ranker, opts...)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

func ProvidePredictionsHandler(l *applogger.Logger, uc *usecase.PredictionUseCase, store domrepo.ActivityStore, lim *ratelimit.Limiter) *api.PredictionsEchoHandler {
	var mw []echo.MiddlewareFunc
	if lim != nil {
		mw = append(mw, lim.Middleware())
	}
	return api.NewPredictionsEchoHandler(l, uc, store, mw...)
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.PredictionsEchoHandler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(
		[]xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideKafkaConsumer creates the activity consumer, or nil when ingestion
// is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideActivityHandler returns nil for read-only backends.
func ProvideActivityHandler(cfg *config.Config, b *ActivityBackend, m domrepo.Metrics, l *applogger.Logger) *usecase.KafkaActivityHandler {
	if b.Writer == nil {
		return nil
	}
	return usecase.NewKafkaActivityHandler(cfg.Kafka.Topic, b.Writer, m, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	handler *usecase.KafkaActivityHandler,
	producer *pkgkafka.Producer,
) *server.App {
	if cfg.Logging.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collector.FlushInterval,
			CountThreshold: cfg.Logging.Collector.CountThreshold,
			Topic:          cfg.Logging.Collector.Topic,
			Publisher:      producer,
		})
	}

	opts := []server.Option{server.WithShutdownTimeout(cfg.Server.ShutdownTimeout)}
	if consumer != nil && handler != nil {
		consumer.WithConsumerHook(pkgkafka.TraceHook())
		opts = append(opts, server.WithConsumer(consumer, handler))
	} else if consumer != nil {
		l.Warn("kafka consumer enabled but backend is read-only", applogger.String("backend", cfg.Backend.Type))
	}
	return server.New(l, srv, opts...)
}
