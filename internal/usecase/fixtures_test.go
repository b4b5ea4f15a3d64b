package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"LearnCast/internal/domain/models"
	domrepo "LearnCast/internal/domain/repository"
	domsvc "LearnCast/internal/domain/service"
	"LearnCast/internal/services/analytics"
)

const day = 24 * time.Hour

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func ago(days int) time.Time { return testNow.Add(-time.Duration(days) * day) }

func rec(target models.TargetKind, id string, daysAgo int, score float64) models.ActivityRecord {
	return models.ActivityRecord{LearnerID: "u1", Target: target, TargetID: id, Timestamp: ago(daysAgo), Score: score, Weight: 1}
}

// stubStore serves one learner; block makes every call wait for ctx and a
// non-nil release holds profile reads until it is closed.
type stubStore struct {
	profile    *models.LearnerProfile
	records    []models.ActivityRecord
	profileErr error
	listErr    error
	block      bool
	release    chan struct{}
	calls      atomic.Int32
}

func (s *stubStore) GetProfile(ctx context.Context, learnerID string) (*models.LearnerProfile, error) {
	s.calls.Add(1)
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	if s.profile == nil || s.profile.ID != learnerID {
		return nil, domrepo.ErrProfileNotFound
	}
	p := *s.profile
	return &p, nil
}

func (s *stubStore) ListActivity(ctx context.Context, learnerID string) ([]models.ActivityRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]models.ActivityRecord(nil), s.records...), nil
}

func (s *stubStore) Health(context.Context) error { return nil }

func u1Store() *stubStore {
	return &stubStore{
		profile: &models.LearnerProfile{ID: "u1", Enrollments: []string{"c1", "c2"}, CreatedAt: ago(60)},
		records: []models.ActivityRecord{
			rec(models.TargetCourse, "c1", 20, 0.2),
			rec(models.TargetSkill, "negotiation", 10, 0.4),
			rec(models.TargetCourse, "c1", 10, 0.4),
			rec(models.TargetSkill, "negotiation", 5, 0.5),
			rec(models.TargetCourse, "c9", 3, 0.9),
			rec(models.TargetSkill, "negotiation", 0, 0.55),
			rec(models.TargetCourse, "c1", 0, 0.6),
		},
	}
}

func u2Store() *stubStore {
	return &stubStore{profile: &models.LearnerProfile{ID: "u2"}}
}

type recordingMetrics struct {
	mu      sync.Mutex
	clamped int
	errors  map[string]int
	domains map[string]string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{errors: map[string]int{}, domains: map[string]string{}}
}

func (m *recordingMetrics) RecordPrediction(string) {}

func (m *recordingMetrics) RecordDomainStatus(domain, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domains[domain] = status
}

func (m *recordingMetrics) RecordRecordsIngested(string, int) {}

func (m *recordingMetrics) RecordClamped(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clamped += n
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *recordingMetrics) RecordLatency(string, float64) {}

type capturePublisher struct {
	mu     sync.Mutex
	events []domrepo.PredictionEvent
}

func (p *capturePublisher) PublishPrediction(_ context.Context, ev domrepo.PredictionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

type panicForecaster struct{}

func (panicForecaster) Forecast(domsvc.Horizon, []models.SkillSeries) []models.SkillTrajectory {
	panic("forecast exploded")
}

type useCaseDeps struct {
	forecaster domsvc.TrajectoryForecaster
	metrics    domrepo.Metrics
}

func newUseCase(store domrepo.ActivityStore, deps useCaseDeps, opts ...PredictionOption) *PredictionUseCase {
	p := analytics.DefaultParams()
	forecaster := deps.forecaster
	if forecaster == nil {
		forecaster = analytics.NewTrajectoryForecaster(p)
	}
	agg := NewSignalAggregator(store, deps.metrics, nil, 0)
	base := []PredictionOption{WithClock(func() time.Time { return testNow })}
	if deps.metrics != nil {
		base = append(base, WithMetrics(deps.metrics))
	}
	return NewPredictionUseCase(agg,
		forecaster,
		analytics.NewMasteryEstimator(p),
		analytics.NewCompletionProjector(p),
		analytics.NewRecommendationRanker(p),
		append(base, opts...)...,
	)
}
