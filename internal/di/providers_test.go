package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"LearnCast/internal/domain/models"
	internalrepo "LearnCast/internal/repository"
	"LearnCast/internal/service/cache"
	"LearnCast/internal/usecase"
	"LearnCast/pkg/config"
	applogger "LearnCast/pkg/logger"
	"LearnCast/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

const seed = `{
  "profiles": [{"id": "u1", "enrollments": ["c1"], "created_at": "2026-01-01T00:00:00Z"}],
  "activity": [
    {"learner_id": "u1", "target": "skill", "target_id": "algebra", "ts": "2026-04-01T00:00:00Z", "score": 0.4},
    {"learner_id": "u1", "target": "skill", "target_id": "algebra", "ts": "2026-04-10T00:00:00Z", "score": 0.6},
    {"learner_id": "u1", "target": "course", "target_id": "c1", "ts": "2026-04-10T00:00:00Z", "score": 0.3}
  ]
}`

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))
	cfg := config.Default()
	cfg.Backend.Seed = path
	return cfg
}

func TestProvideActivityBackendMemorySeed(t *testing.T) {
	b, cleanup, err := ProvideActivityBackend(memoryConfig(t), applogger.NewNop())
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, b.Writer)
	p, err := b.Store.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, p.Enrollments)

	recs, err := b.Store.ListActivity(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestProvideActivityBackendMissingSeed(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Seed = filepath.Join(t.TempDir(), "absent.json")
	_, _, err := ProvideActivityBackend(cfg, applogger.NewNop())
	assert.Error(t, err)
}

func TestProvideActivityBackendHTTPIsReadOnly(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Type = config.BackendHTTP
	cfg.ActivityAPI.BaseURL = "http://lrs.invalid"

	b, cleanup, err := ProvideActivityBackend(cfg, applogger.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &internalrepo.HTTPActivityStore{}, b.Store)
	assert.Nil(t, b.Writer)
	assert.Nil(t, ProvideActivityHandler(cfg, b, metrics.Nop{}, nil))
}

func TestProvideResultCache(t *testing.T) {
	l := applogger.NewNop()

	cfg := config.Default()
	cfg.Cache.Enabled = false
	c, cleanup, err := ProvideResultCache(cfg, l)
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, c)

	cfg = config.Default()
	c, cleanup, err = ProvideResultCache(cfg, l)
	require.NoError(t, err)
	cleanup()
	assert.IsType(t, &cache.TTLCache{}, c)

	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"
	c, cleanup, err = ProvideResultCache(cfg, l)
	require.NoError(t, err)
	cleanup()
	assert.IsType(t, &cache.TTLCache{}, c, "unreachable redis falls back to the local cache")
}

func TestOptionalComponentsDisabledByDefault(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.Enabled = false

	producer, cleanup, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, producer)

	consumer, err := ProvideKafkaConsumer(cfg, applogger.NewNop())
	require.NoError(t, err)
	assert.Nil(t, consumer)

	assert.Nil(t, ProvideRateLimiter(cfg))
	assert.IsType(t, internalrepo.NopPredictionPublisher{}, ProvidePredictionPublisher(cfg, nil))
}

func TestProvideTracer(t *testing.T) {
	cfg := config.Default()
	l := applogger.NewNop()

	tracer, cleanup, err := ProvideTracer(cfg, l)
	require.NoError(t, err)
	_, span := tracer.Start(context.Background(), "disabled")
	assert.False(t, span.IsRecording())
	span.End()
	cleanup()

	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "none"
	cfg.Tracing.SampleRatio = 1
	tracer, cleanup, err = ProvideTracer(cfg, l)
	require.NoError(t, err)
	_, span = tracer.Start(context.Background(), "enabled")
	assert.True(t, span.IsRecording())
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	cleanup()
}

func TestPredictionPipelineFromProviders(t *testing.T) {
	cfg := memoryConfig(t)
	l := applogger.NewNop()
	m := metrics.Nop{}

	b, cleanup, err := ProvideActivityBackend(cfg, l)
	require.NoError(t, err)
	defer cleanup()
	rc, cleanupCache, err := ProvideResultCache(cfg, l)
	require.NoError(t, err)
	defer cleanupCache()

	tracer, cleanupTracer, err := ProvideTracer(cfg, l)
	require.NoError(t, err)
	defer cleanupTracer()

	p := ProvideAnalyticsParams(cfg)
	uc := ProvidePredictionUseCase(cfg,
		ProvideSignalAggregator(cfg, ProvideActivityStore(b), m, l),
		ProvideTrajectoryForecaster(p, l),
		ProvideMasteryEstimator(p),
		ProvideCompletionProjector(p),
		ProvideRecommendationRanker(p),
		rc, ProvidePredictionPublisher(cfg, nil), m, tracer, l,
	)

	res, err := uc.Predict(context.Background(), usecase.PredictParams{
		UserID:    "u1",
		Timeframe: "30d",
		Flags:     models.AllFlags(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, res.Status)
	require.NotNil(t, res.Skills)
	require.Len(t, res.Skills.Items, 1)
	assert.Equal(t, "algebra", res.Skills.Items[0].SkillID)
	require.NotNil(t, res.Courses)
	assert.Len(t, res.Courses.Items, 1)

	_, err = uc.Predict(context.Background(), usecase.PredictParams{UserID: "ghost", Timeframe: "30d", Flags: models.AllFlags()})
	assert.Equal(t, models.KindLearnerNotFound, models.KindOf(err))
}
