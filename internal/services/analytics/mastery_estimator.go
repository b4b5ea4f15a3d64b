package analytics

import (
	"sort"
	"time"

	"LearnCast/internal/domain/models"
	domsvc "LearnCast/internal/domain/service"
	"LearnCast/internal/services/features"
)

// MasteryEstimator converts skill trajectories into the probability of
// meeting each topic's threshold by the horizon.
type MasteryEstimator struct {
	p Params
}

func NewMasteryEstimator(p Params) *MasteryEstimator {
	return &MasteryEstimator{p: p}
}

// Estimate covers the learner's skills plus every topic with a configured
// threshold, ordered by topic id.
func (m *MasteryEstimator) Estimate(h domsvc.Horizon, trajectories []models.SkillTrajectory) []models.MasteryEstimate {
	byTopic := make(map[string]models.SkillTrajectory, len(trajectories))
	for _, t := range trajectories {
		byTopic[t.SkillID] = t
	}
	topics := make([]string, 0, len(byTopic)+len(m.p.Thresholds))
	for id := range byTopic {
		topics = append(topics, id)
	}
	for id := range m.p.Thresholds {
		if _, ok := byTopic[id]; !ok {
			topics = append(topics, id)
		}
	}
	sort.Strings(topics)

	out := make([]models.MasteryEstimate, 0, len(topics))
	for _, topic := range topics {
		t, ok := byTopic[topic]
		if !ok {
			t = priorTrajectory(m.p, models.SkillTrajectory{SkillID: topic}, m.p.NeutralPrior)
		}
		out = append(out, m.estimateOne(h, topic, t))
	}
	return out
}

func (m *MasteryEstimator) estimateOne(h domsvc.Horizon, topic string, t models.SkillTrajectory) models.MasteryEstimate {
	e := models.MasteryEstimate{TopicID: topic, Status: models.StatusOK}

	threshold, ok := m.p.ThresholdFor(topic)
	if !ok {
		e.Status = models.StatusUnavailable
		e.Reason = models.ReasonMissingThreshold
		return e
	}
	e.Threshold = threshold

	if t.Status == models.StatusUnavailable {
		e.Status = models.StatusUnavailable
		e.Reason = t.Reason
		return e
	}

	e.Probability = MasteryProbability(t.Forecast, t.HalfWidth, threshold)

	fit := features.TrendFit{Slope: t.Slope, Intercept: t.Intercept}
	if days, ok := fit.DaysToReach(threshold, m.p.DampingDays); ok && days <= float64(h.Days) {
		at := h.Now.Add(time.Duration(days * float64(24*time.Hour)))
		e.ExpectedDate = &at
	}
	return e
}

// MasteryProbability is the share of the band [f-h, f+h] at or above the
// threshold. It is non-decreasing in f for a fixed h.
func MasteryProbability(forecast, halfWidth, threshold float64) float64 {
	if halfWidth <= 0 {
		if forecast >= threshold {
			return 1
		}
		return 0
	}
	return features.Clamp01((forecast + halfWidth - threshold) / (2 * halfWidth))
}

var _ domsvc.MasteryEstimator = (*MasteryEstimator)(nil)
