package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"LearnCast/internal/domain/models"
	domrepo "LearnCast/internal/domain/repository"
	domsvc "LearnCast/internal/domain/service"
	"LearnCast/internal/service/cache"
	applogger "LearnCast/pkg/logger"
	"LearnCast/pkg/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// Domain names used in logs, metrics and DomainUnavailable errors.
const (
	DomainSkills          = "skills"
	DomainCourses         = "courses"
	DomainMastery         = "mastery"
	DomainRecommendations = "recommendations"
)

// PredictionUseCase validates a request, aggregates the learner's signals
// once and composes the requested prediction domains.
type PredictionUseCase struct {
	agg        *SignalAggregator
	forecaster domsvc.TrajectoryForecaster
	mastery    domsvc.MasteryEstimator
	projector  domsvc.CompletionProjector
	ranker     domsvc.RecommendationRanker

	cache     cache.BytesCache
	cacheTTL  time.Duration
	publisher domrepo.PredictionPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	now       func() time.Time
	tracer    trace.Tracer
	group     singleflight.Group
}

type PredictionOption func(*PredictionUseCase)

// WithResultCache memoizes ok results for ttl.
func WithResultCache(c cache.BytesCache, ttl time.Duration) PredictionOption {
	return func(u *PredictionUseCase) {
		u.cache = c
		u.cacheTTL = ttl
	}
}

func WithPublisher(p domrepo.PredictionPublisher) PredictionOption {
	return func(u *PredictionUseCase) { u.publisher = p }
}

func WithMetrics(m domrepo.Metrics) PredictionOption {
	return func(u *PredictionUseCase) { u.metrics = m }
}

func WithLogger(l *applogger.Logger) PredictionOption {
	return func(u *PredictionUseCase) { u.l = l }
}

// WithClock fixes the evaluation instant source.
func WithClock(now func() time.Time) PredictionOption {
	return func(u *PredictionUseCase) { u.now = now }
}

// WithTracer replaces the global otel tracer.
func WithTracer(t trace.Tracer) PredictionOption {
	return func(u *PredictionUseCase) {
		if t != nil {
			u.tracer = t
		}
	}
}

func NewPredictionUseCase(
	agg *SignalAggregator,
	forecaster domsvc.TrajectoryForecaster,
	mastery domsvc.MasteryEstimator,
	projector domsvc.CompletionProjector,
	ranker domsvc.RecommendationRanker,
	opts ...PredictionOption,
) *PredictionUseCase {
	u := &PredictionUseCase{
		agg:        agg,
		forecaster: forecaster,
		mastery:    mastery,
		projector:  projector,
		ranker:     ranker,
		metrics:    metrics.Nop{},
		l:          applogger.NewNop(),
		now:        time.Now,
		tracer:     otel.Tracer("LearnCast/usecase"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Predict fails with InvalidRequest, LearnerNotFound, AggregationFailure or
// Canceled. Domain failures are reported inside the result.
func (u *PredictionUseCase) Predict(ctx context.Context, p PredictParams) (*models.PredictionResult, error) {
	req, err := ValidateRequest(p)
	if err != nil {
		u.metrics.RecordError(string(models.KindInvalidRequest))
		return nil, err
	}

	key := cacheKey(req)
	if res, ok := u.cached(ctx, key); ok {
		u.metrics.RecordPrediction("cache_hit")
		return res, nil
	}

	ch := u.group.DoChan(key, func() (interface{}, error) {
		res, err := u.compute(ctx, req)
		if err != nil {
			return nil, err
		}
		c := &computed{res: res}
		if c.raw, err = json.Marshal(res); err != nil {
			u.l.Warn("prediction result not encodable", applogger.String("key", key), applogger.Error(err))
		}
		u.afterCompute(ctx, key, c)
		return c, nil
	})
	select {
	case <-ctx.Done():
		return nil, models.Canceled(ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			u.metrics.RecordError(string(models.KindOf(r.Err)))
			return nil, r.Err
		}
		c := r.Val.(*computed)
		if r.Shared {
			return c.copy()
		}
		return c.res, nil
	}
}

// computed is one pipeline run; raw lets every caller that shared the run
// decode a private copy.
type computed struct {
	res *models.PredictionResult
	raw []byte
}

func (c *computed) copy() (*models.PredictionResult, error) {
	if c.raw == nil {
		return nil, errors.New("shared prediction result not encodable")
	}
	var res models.PredictionResult
	if err := json.Unmarshal(c.raw, &res); err != nil {
		return nil, fmt.Errorf("copy shared prediction: %w", err)
	}
	return &res, nil
}

func (u *PredictionUseCase) compute(ctx context.Context, req ValidatedRequest) (*models.PredictionResult, error) {
	ctx, span := u.tracer.Start(ctx, "PredictionUseCase.compute", trace.WithAttributes(
		attribute.String("learner.id", req.LearnerID),
		attribute.Int("horizon.days", req.Timeframe.Days),
	))
	defer span.End()

	start := time.Now()
	h := domsvc.Horizon{Now: u.now().UTC(), Days: req.Timeframe.Days}

	sig, err := u.agg.Aggregate(ctx, req.LearnerID)
	if err != nil {
		if ctx.Err() != nil {
			err = models.Canceled(err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(models.KindOf(err)))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, models.Canceled(err)
	}

	res := &models.PredictionResult{
		LearnerID:   req.LearnerID,
		Timeframe:   req.Timeframe.Token,
		HorizonDays: req.Timeframe.Days,
		GeneratedAt: h.Now,
		ColdStart:   sig.ColdStart,
	}
	f := req.Flags
	needSkills := f.Skills || f.Mastery || f.Recommendations
	needCourses := f.Courses || f.Recommendations
	needMastery := f.Mastery || f.Recommendations

	var (
		trajectories []models.SkillTrajectory
		courses      []models.CoursePrediction
		estimates    []models.MasteryEstimate
		skillsErr    error
		coursesErr   error
		masteryErr   error
	)

	type stageResult struct {
		domain       string
		trajectories []models.SkillTrajectory
		courses      []models.CoursePrediction
		err          error
	}
	results := make(chan stageResult, 2)
	var wg sync.WaitGroup
	if needSkills {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out []models.SkillTrajectory
			err := u.guard(req.LearnerID, DomainSkills, func() {
				out = u.forecaster.Forecast(h, sig.Skills)
			})
			results <- stageResult{domain: DomainSkills, trajectories: out, err: err}
		}()
	}
	if needCourses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out []models.CoursePrediction
			err := u.guard(req.LearnerID, DomainCourses, func() {
				out = u.projector.Project(h, sig.Courses)
			})
			results <- stageResult{domain: DomainCourses, courses: out, err: err}
		}()
	}
	wg.Wait()
	close(results)
	for r := range results {
		switch r.domain {
		case DomainSkills:
			trajectories, skillsErr = r.trajectories, r.err
		case DomainCourses:
			courses, coursesErr = r.courses, r.err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, models.Canceled(err)
	}

	if needMastery {
		if skillsErr != nil {
			masteryErr = models.DomainUnavailable(DomainMastery, models.ReasonPartialInputs, skillsErr)
		} else {
			masteryErr = u.guard(req.LearnerID, DomainMastery, func() {
				estimates = u.mastery.Estimate(h, trajectories)
			})
		}
	}

	if f.Skills {
		res.Skills = skillsDomain(trajectories, skillsErr)
	}
	if f.Courses {
		res.Courses = coursesDomain(courses, coursesErr)
	}
	if f.Mastery {
		res.Mastery = masteryDomain(estimates, masteryErr)
	}
	if f.Recommendations {
		if err := ctx.Err(); err != nil {
			return nil, models.Canceled(err)
		}
		res.Recommendations = u.recommend(h, req.LearnerID, trajectories, estimates, courses, skillsErr, masteryErr, coursesErr)
	}

	res.Status = overallStatus(res)
	u.metrics.RecordLatency("predict", time.Since(start).Seconds())
	u.recordDomains(res)
	span.SetAttributes(attribute.String("prediction.status", string(res.Status)))
	return res, nil
}

func (u *PredictionUseCase) recommend(
	h domsvc.Horizon,
	learnerID string,
	trajectories []models.SkillTrajectory,
	estimates []models.MasteryEstimate,
	courses []models.CoursePrediction,
	skillsErr, masteryErr, coursesErr error,
) *models.RecommendationsDomain {
	in := domsvc.RankInput{LearnerID: learnerID}
	partial := false
	if skillsErr == nil {
		in.Trajectories = trajectories
	} else {
		partial = true
	}
	if masteryErr == nil {
		in.Mastery = estimates
	} else {
		partial = true
	}
	if coursesErr == nil {
		in.Courses = courses
	} else {
		partial = true
	}

	var recs []models.Recommendation
	if err := u.guard(learnerID, DomainRecommendations, func() {
		recs = u.ranker.Rank(h, in)
	}); err != nil {
		return &models.RecommendationsDomain{Status: models.StatusUnavailable, Reason: reasonOf(err), Items: []models.Recommendation{}}
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}
	d := &models.RecommendationsDomain{Status: models.StatusOK, Items: recs}
	if partial {
		d.Status, d.Reason = models.StatusDegraded, models.ReasonPartialInputs
	}
	return d
}

// guard runs one domain computation and turns a panic into DomainUnavailable.
func (u *PredictionUseCase) guard(learnerID, domain string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = models.DomainUnavailable(domain, models.ReasonPanic, fmt.Errorf("%v", r))
			u.l.Error("prediction domain failed",
				applogger.String("learner_id", learnerID),
				applogger.String("domain", domain),
				applogger.Error(err),
			)
		}
	}()
	fn()
	return nil
}

func reasonOf(err error) string {
	var pe *models.PredictionError
	if errors.As(err, &pe) && pe.Reason != "" {
		return pe.Reason
	}
	return models.ReasonInternal
}

func itemsStatus(statuses []models.Status) models.Status {
	for _, s := range statuses {
		if s != models.StatusOK {
			return models.StatusDegraded
		}
	}
	return models.StatusOK
}

func skillsDomain(items []models.SkillTrajectory, err error) *models.SkillsDomain {
	if err != nil {
		return &models.SkillsDomain{Status: models.StatusUnavailable, Reason: reasonOf(err), Items: []models.SkillTrajectory{}}
	}
	st := make([]models.Status, len(items))
	for i, t := range items {
		st[i] = t.Status
	}
	return &models.SkillsDomain{Status: itemsStatus(st), Items: nonNil(items)}
}

func coursesDomain(items []models.CoursePrediction, err error) *models.CoursesDomain {
	if err != nil {
		return &models.CoursesDomain{Status: models.StatusUnavailable, Reason: reasonOf(err), Items: []models.CoursePrediction{}}
	}
	st := make([]models.Status, len(items))
	for i, c := range items {
		st[i] = c.Status
	}
	return &models.CoursesDomain{Status: itemsStatus(st), Items: nonNil(items)}
}

func masteryDomain(items []models.MasteryEstimate, err error) *models.MasteryDomain {
	if err != nil {
		return &models.MasteryDomain{Status: models.StatusUnavailable, Reason: reasonOf(err), Items: []models.MasteryEstimate{}}
	}
	st := make([]models.Status, len(items))
	for i, m := range items {
		st[i] = m.Status
	}
	return &models.MasteryDomain{Status: itemsStatus(st), Items: nonNil(items)}
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}

func overallStatus(r *models.PredictionResult) models.Status {
	var st []models.Status
	if r.Skills != nil {
		st = append(st, r.Skills.Status)
	}
	if r.Courses != nil {
		st = append(st, r.Courses.Status)
	}
	if r.Mastery != nil {
		st = append(st, r.Mastery.Status)
	}
	if r.Recommendations != nil {
		st = append(st, r.Recommendations.Status)
	}
	return itemsStatus(st)
}

func (u *PredictionUseCase) recordDomains(r *models.PredictionResult) {
	if r.Skills != nil {
		u.metrics.RecordDomainStatus(DomainSkills, string(r.Skills.Status))
	}
	if r.Courses != nil {
		u.metrics.RecordDomainStatus(DomainCourses, string(r.Courses.Status))
	}
	if r.Mastery != nil {
		u.metrics.RecordDomainStatus(DomainMastery, string(r.Mastery.Status))
	}
	if r.Recommendations != nil {
		u.metrics.RecordDomainStatus(DomainRecommendations, string(r.Recommendations.Status))
	}
	u.metrics.RecordPrediction(string(r.Status))
}

// afterCompute caches ok results and emits the prediction event. Neither
// failure affects the response.
func (u *PredictionUseCase) afterCompute(ctx context.Context, key string, c *computed) {
	res := c.res
	if u.cache != nil && res.Status == models.StatusOK && c.raw != nil {
		if err := u.cache.SetBytes(ctx, key, c.raw, u.cacheTTL); err != nil {
			u.l.Warn("prediction cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	if u.publisher != nil {
		if err := u.publisher.PublishPrediction(ctx, predictionEvent(res)); err != nil {
			u.l.Warn("prediction event publish failed",
				applogger.String("learner_id", res.LearnerID),
				applogger.Error(err),
			)
		}
	}
}

func (u *PredictionUseCase) cached(ctx context.Context, key string) (*models.PredictionResult, bool) {
	if u.cache == nil {
		return nil, false
	}
	b, ok, err := u.cache.GetBytes(ctx, key)
	if err != nil {
		u.l.Warn("prediction cache read failed", applogger.String("key", key), applogger.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var res models.PredictionResult
	if err := json.Unmarshal(b, &res); err != nil {
		u.l.Warn("prediction cache entry undecodable", applogger.String("key", key), applogger.Error(err))
		return nil, false
	}
	return &res, true
}

func cacheKey(req ValidatedRequest) string {
	f := req.Flags
	bits := 0
	for i, on := range []bool{f.Skills, f.Courses, f.Mastery, f.Recommendations} {
		if on {
			bits |= 1 << i
		}
	}
	return req.LearnerID + "|" + req.Timeframe.Token + "|" + strconv.Itoa(bits)
}

func predictionEvent(r *models.PredictionResult) domrepo.PredictionEvent {
	ev := domrepo.PredictionEvent{
		LearnerID:   r.LearnerID,
		Timeframe:   r.Timeframe,
		Status:      r.Status,
		GeneratedAt: r.GeneratedAt,
	}
	if r.Skills != nil {
		ev.Skills = len(r.Skills.Items)
	}
	if r.Courses != nil {
		ev.Courses = len(r.Courses.Items)
		for _, c := range r.Courses.Items {
			if c.AtRisk {
				ev.AtRiskCourses++
			}
		}
	}
	if r.Recommendations != nil {
		ev.Recommendations = len(r.Recommendations.Items)
	}
	return ev
}
