package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"LearnCast/internal/domain/models"
	domrepo "LearnCast/internal/domain/repository"
	"LearnCast/internal/services/features"
	applogger "LearnCast/pkg/logger"
	"LearnCast/pkg/metrics"
)

// SignalAggregator loads a learner's profile and activity and derives the
// per-skill and per-course series every predictor reads.
type SignalAggregator struct {
	store   domrepo.ActivityStore
	metrics domrepo.Metrics
	l       *applogger.Logger
	timeout time.Duration
}

func NewSignalAggregator(store domrepo.ActivityStore, m domrepo.Metrics, l *applogger.Logger, timeout time.Duration) *SignalAggregator {
	if m == nil {
		m = metrics.Nop{}
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &SignalAggregator{store: store, metrics: m, l: l, timeout: timeout}
}

// Aggregate fails with LearnerNotFound or AggregationFailure. Store errors are
// never retried here.
func (a *SignalAggregator) Aggregate(ctx context.Context, learnerID string) (*models.LearnerSignals, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	profile, err := a.store.GetProfile(ctx, learnerID)
	if err != nil {
		if errors.Is(err, domrepo.ErrProfileNotFound) {
			return nil, models.LearnerNotFound(learnerID, err)
		}
		a.metrics.RecordError("store_profile")
		return nil, models.AggregationFailure(fmt.Errorf("load profile %s: %w", learnerID, err))
	}
	records, err := a.store.ListActivity(ctx, learnerID)
	if err != nil {
		a.metrics.RecordError("store_activity")
		return nil, models.AggregationFailure(fmt.Errorf("load activity %s: %w", learnerID, err))
	}
	a.metrics.RecordLatency("store_fetch", time.Since(start).Seconds())

	sig := a.partition(*profile, records)
	if sig.Clamped > 0 {
		a.metrics.RecordClamped(sig.Clamped)
	}
	return sig, nil
}

func (a *SignalAggregator) partition(profile models.LearnerProfile, records []models.ActivityRecord) *models.LearnerSignals {
	sig := &models.LearnerSignals{
		Profile:   profile,
		ColdStart: len(records) == 0,
	}

	enrolled := make(map[string][]models.SeriesPoint, len(profile.Enrollments))
	for _, id := range profile.Enrollments {
		enrolled[id] = nil
	}
	skills := make(map[string][]models.SeriesPoint)

	for _, r := range records {
		if r.TargetID == "" {
			continue
		}
		score, clamped := features.ClampScore(r.Score)
		if clamped {
			sig.Clamped++
			a.l.Warn("activity score clamped",
				applogger.String("learner_id", profile.ID),
				applogger.String("target", string(r.Target)),
				applogger.String("target_id", r.TargetID),
				applogger.Float64("score", r.Score),
			)
		}
		p := models.SeriesPoint{At: r.Timestamp, Value: score, Weight: features.NormalizeWeight(r.Weight)}

		switch r.Target {
		case models.TargetSkill:
			skills[r.TargetID] = append(skills[r.TargetID], p)
		case models.TargetCourse:
			if pts, ok := enrolled[r.TargetID]; ok {
				enrolled[r.TargetID] = append(pts, p)
			}
		default:
			a.l.Debug("activity record with unknown target ignored",
				applogger.String("learner_id", profile.ID),
				applogger.String("target", string(r.Target)),
			)
		}
	}

	sig.Skills = make([]models.SkillSeries, 0, len(skills))
	for id, pts := range skills {
		s := models.SkillSeries{SkillID: id, Points: pts, LastActivity: features.LastActivity(pts)}
		if !features.CheckSeries(pts) {
			s.Malformed, s.Reason = true, models.ReasonMalformedSeries
		}
		sig.Skills = append(sig.Skills, s)
	}
	sort.Slice(sig.Skills, func(i, j int) bool { return sig.Skills[i].SkillID < sig.Skills[j].SkillID })

	sig.Courses = make([]models.CourseSeries, 0, len(enrolled))
	for id, pts := range enrolled {
		c := models.CourseSeries{CourseID: id, Points: pts, LastActivity: features.LastActivity(pts)}
		if !features.CheckSeries(pts) {
			c.Malformed, c.Reason = true, models.ReasonMalformedSeries
		}
		sig.Courses = append(sig.Courses, c)
	}
	sort.Slice(sig.Courses, func(i, j int) bool { return sig.Courses[i].CourseID < sig.Courses[j].CourseID })
	return sig
}
