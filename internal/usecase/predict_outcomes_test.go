package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"LearnCast/internal/domain/models"
	"LearnCast/internal/service/cache"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allFlags(user, tf string) PredictParams {
	return PredictParams{UserID: user, Timeframe: tf, Flags: models.AllFlags()}
}

func TestPredictNegotiationScenario(t *testing.T) {
	uc := newUseCase(u1Store(), useCaseDeps{})
	res, err := uc.Predict(context.Background(), allFlags("u1", "30d"))
	require.NoError(t, err)

	assert.Equal(t, "u1", res.LearnerID)
	assert.Equal(t, "30d", res.Timeframe)
	assert.Equal(t, 30, res.HorizonDays)
	assert.Equal(t, testNow, res.GeneratedAt)

	require.NotNil(t, res.Skills)
	require.Len(t, res.Skills.Items, 1)
	neg := res.Skills.Items[0]
	assert.Equal(t, "negotiation", neg.SkillID)
	assert.Equal(t, models.TrendImproving, neg.Trend)
	assert.Greater(t, neg.Forecast, 0.55)
	assert.LessOrEqual(t, neg.Forecast, 0.8)
	assert.LessOrEqual(t, neg.Low, neg.Forecast)
	assert.GreaterOrEqual(t, neg.High, neg.Forecast)

	require.NotNil(t, res.Courses)
	require.Len(t, res.Courses.Items, 2)
	assert.Equal(t, "c1", res.Courses.Items[0].CourseID)
	c2 := res.Courses.Items[1]
	assert.Equal(t, "c2", c2.CourseID)
	assert.True(t, c2.AtRisk)
	assert.InDelta(t, 0.3, c2.Probability, 1e-9)

	require.NotNil(t, res.Mastery)
	require.NotNil(t, res.Recommendations)
	assert.LessOrEqual(t, len(res.Recommendations.Items), 5)
	for i := 1; i < len(res.Recommendations.Items); i++ {
		assert.GreaterOrEqual(t, res.Recommendations.Items[i-1].Score, res.Recommendations.Items[i].Score)
	}
}

func TestPredictEmptyLearner(t *testing.T) {
	uc := newUseCase(u2Store(), useCaseDeps{})
	res, err := uc.Predict(context.Background(), allFlags("u2", "7d"))
	require.NoError(t, err)

	assert.True(t, res.ColdStart)
	assert.Equal(t, models.StatusOK, res.Status)
	require.NotNil(t, res.Courses)
	assert.NotNil(t, res.Courses.Items)
	assert.Empty(t, res.Courses.Items)
	assert.Equal(t, models.StatusOK, res.Courses.Status)
	require.NotNil(t, res.Recommendations)
	assert.NotNil(t, res.Recommendations.Items)
	assert.Empty(t, res.Recommendations.Items)
}

func TestPredictIsDeterministic(t *testing.T) {
	uc := newUseCase(u1Store(), useCaseDeps{})
	first, err := uc.Predict(context.Background(), allFlags("u1", "90d"))
	require.NoError(t, err)
	second, err := uc.Predict(context.Background(), allFlags("u1", "90d"))
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("predictions differ (-first +second):\n%s", diff)
	}
}

func TestPredictRejectsBeforeStoreAccess(t *testing.T) {
	store := u1Store()
	uc := newUseCase(store, useCaseDeps{})

	for _, tf := range []string{"0", "0d", "-3d", "1000d", "fortnight", ""} {
		_, err := uc.Predict(context.Background(), allFlags("u1", tf))
		require.Error(t, err, tf)
		assert.Equal(t, models.KindInvalidRequest, models.KindOf(err), tf)
	}
	assert.Equal(t, int32(0), store.calls.Load())
}

func TestPredictMalformedSkillIsIsolated(t *testing.T) {
	store := u1Store()
	store.records = append(store.records,
		models.ActivityRecord{LearnerID: "u1", Target: models.TargetSkill, TargetID: "listening", Timestamp: ago(2), Score: 0.5, Weight: 1},
		models.ActivityRecord{LearnerID: "u1", Target: models.TargetSkill, TargetID: "listening", Timestamp: ago(9), Score: 0.6, Weight: 1},
	)
	uc := newUseCase(store, useCaseDeps{})
	res, err := uc.Predict(context.Background(), allFlags("u1", "30d"))
	require.NoError(t, err)

	require.Len(t, res.Skills.Items, 2)
	assert.Equal(t, models.StatusDegraded, res.Skills.Status)
	listening := res.Skills.Items[0]
	assert.Equal(t, "listening", listening.SkillID)
	assert.Equal(t, models.StatusUnavailable, listening.Status)
	assert.Equal(t, models.ReasonMalformedSeries, listening.Reason)
	assert.Equal(t, models.StatusOK, res.Skills.Items[1].Status)
	assert.Equal(t, models.StatusDegraded, res.Status)
}

func TestPredictHonorsFlags(t *testing.T) {
	uc := newUseCase(u1Store(), useCaseDeps{})
	res, err := uc.Predict(context.Background(), PredictParams{
		UserID:    "u1",
		Timeframe: "30d",
		Flags:     models.Flags{Courses: true},
	})
	require.NoError(t, err)
	assert.Nil(t, res.Skills)
	assert.Nil(t, res.Mastery)
	assert.Nil(t, res.Recommendations)
	require.NotNil(t, res.Courses)
	assert.Len(t, res.Courses.Items, 2)

	res, err = uc.Predict(context.Background(), PredictParams{
		UserID:    "u1",
		Timeframe: "30d",
		Flags:     models.Flags{Mastery: true},
	})
	require.NoError(t, err)
	assert.Nil(t, res.Skills)
	assert.Nil(t, res.Courses)
	require.NotNil(t, res.Mastery)
	assert.Equal(t, "negotiation", res.Mastery.Items[0].TopicID)
}

func TestPredictIsolatesPanickingDomain(t *testing.T) {
	m := newRecordingMetrics()
	uc := newUseCase(u1Store(), useCaseDeps{forecaster: panicForecaster{}, metrics: m})
	res, err := uc.Predict(context.Background(), allFlags("u1", "30d"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusDegraded, res.Status)
	assert.Equal(t, models.StatusUnavailable, res.Skills.Status)
	assert.Equal(t, models.ReasonPanic, res.Skills.Reason)
	assert.Empty(t, res.Skills.Items)
	assert.Equal(t, models.StatusUnavailable, res.Mastery.Status)
	assert.Equal(t, models.StatusOK, res.Courses.Status)
	assert.Equal(t, models.StatusDegraded, res.Recommendations.Status)
	assert.Equal(t, models.ReasonPartialInputs, res.Recommendations.Reason)

	for _, r := range res.Recommendations.Items {
		assert.Equal(t, models.TargetCourse, r.TargetType)
	}
	assert.Equal(t, "unavailable", m.domains[DomainSkills])
}

func TestPredictMapsStoreErrors(t *testing.T) {
	uc := newUseCase(u1Store(), useCaseDeps{})
	_, err := uc.Predict(context.Background(), allFlags("ghost", "30d"))
	assert.True(t, errors.Is(err, models.ErrLearnerNotFound))

	store := u1Store()
	store.listErr = errors.New("timeout talking to store")
	m := newRecordingMetrics()
	uc = newUseCase(store, useCaseDeps{metrics: m})
	_, err = uc.Predict(context.Background(), allFlags("u1", "30d"))
	assert.True(t, errors.Is(err, models.ErrAggregationFailure))
	assert.Equal(t, 1, m.errors[string(models.KindAggregation)])
}

func TestPredictCanceledDuringFetch(t *testing.T) {
	store := u1Store()
	store.block = true
	uc := newUseCase(store, useCaseDeps{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := uc.Predict(ctx, allFlags("u1", "30d"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrCanceled))
	assert.Less(t, time.Since(start), time.Second)
}

func TestPredictCachesOkResultsForTTL(t *testing.T) {
	var mu sync.Mutex
	clock := testNow
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(d)
	}

	store := u2Store()
	pub := &capturePublisher{}
	ttl := cache.NewTTLCache(cache.WithClock(now))
	uc := newUseCase(store, useCaseDeps{}, WithResultCache(ttl, 30*time.Second), WithPublisher(pub), WithClock(now))

	first, err := uc.Predict(context.Background(), allFlags("u2", "7d"))
	require.NoError(t, err)
	require.Equal(t, models.StatusOK, first.Status)

	advance(10 * time.Second)
	second, err := uc.Predict(context.Background(), allFlags("u2", "7d"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.calls.Load())
	assert.True(t, first.GeneratedAt.Equal(second.GeneratedAt))

	_, err = uc.Predict(context.Background(), PredictParams{UserID: "u2", Timeframe: "7d", Flags: models.Flags{Courses: true}})
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.calls.Load())

	advance(25 * time.Second)
	third, err := uc.Predict(context.Background(), allFlags("u2", "7d"))
	require.NoError(t, err)
	assert.Equal(t, int32(3), store.calls.Load())
	assert.True(t, third.GeneratedAt.After(first.GeneratedAt))

	assert.Len(t, pub.events, 3)
	assert.Equal(t, "u2", pub.events[0].LearnerID)
}

func TestPredictDoesNotCacheDegradedResults(t *testing.T) {
	store := u1Store()
	ttl := cache.NewTTLCache()
	uc := newUseCase(store, useCaseDeps{forecaster: panicForecaster{}}, WithResultCache(ttl, time.Minute))

	for i := 0; i < 2; i++ {
		res, err := uc.Predict(context.Background(), allFlags("u1", "30d"))
		require.NoError(t, err)
		require.Equal(t, models.StatusDegraded, res.Status)
	}
	assert.Equal(t, int32(2), store.calls.Load())
	assert.Equal(t, 0, ttl.Len())
}

func TestCacheKeyDistinguishesFlags(t *testing.T) {
	a, err := ValidateRequest(allFlags("u1", "30d"))
	require.NoError(t, err)
	b := a
	b.Flags.Mastery = false
	c, err := ValidateRequest(allFlags("u1", "31d"))
	require.NoError(t, err)

	assert.NotEqual(t, cacheKey(a), cacheKey(b))
	assert.NotEqual(t, cacheKey(a), cacheKey(c))
	assert.Equal(t, "u1|30d|15", cacheKey(a))
}

func TestCachedResultEchoesRequestedTimeframe(t *testing.T) {
	store := u2Store()
	uc := newUseCase(store, useCaseDeps{}, WithResultCache(cache.NewTTLCache(), time.Minute))

	year, err := uc.Predict(context.Background(), allFlags("u2", "1y"))
	require.NoError(t, err)
	require.Equal(t, models.StatusOK, year.Status)
	assert.Equal(t, "1y", year.Timeframe)

	days, err := uc.Predict(context.Background(), allFlags("u2", "365"))
	require.NoError(t, err)
	assert.Equal(t, "365d", days.Timeframe)
	assert.Equal(t, 365, days.HorizonDays)

	again, err := uc.Predict(context.Background(), allFlags("u2", "1y"))
	require.NoError(t, err)
	assert.Equal(t, "1y", again.Timeframe)
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestConcurrentDuplicatesGetPrivateResults(t *testing.T) {
	store := u1Store()
	store.release = make(chan struct{})
	pub := &capturePublisher{}
	uc := newUseCase(store, useCaseDeps{}, WithPublisher(pub))

	const n = 4
	results := make([]*models.PredictionResult, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = uc.Predict(context.Background(), allFlags("u1", "30d"))
		}(i)
	}
	require.Eventually(t, func() bool { return store.calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		for j := 0; j < i; j++ {
			assert.NotSame(t, results[j], results[i])
			assert.Empty(t, cmp.Diff(results[j], results[i]))
		}
	}
	assert.Len(t, pub.events, int(store.calls.Load()))
}
