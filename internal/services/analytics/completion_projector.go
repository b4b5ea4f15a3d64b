package analytics

import (
	"math"
	"time"

	"LearnCast/internal/domain/models"
	domsvc "LearnCast/internal/domain/service"
	"LearnCast/internal/services/features"
)

// CompletionProjector estimates, per enrolled course, the probability of
// finishing within the horizon from the decayed progress trend.
type CompletionProjector struct {
	p Params
}

func NewCompletionProjector(p Params) *CompletionProjector {
	return &CompletionProjector{p: p}
}

func (c *CompletionProjector) Project(h domsvc.Horizon, series []models.CourseSeries) []models.CoursePrediction {
	out := make([]models.CoursePrediction, 0, len(series))
	for _, s := range series {
		out = append(out, c.projectOne(h, s))
	}
	return out
}

func (c *CompletionProjector) projectOne(h domsvc.Horizon, s models.CourseSeries) models.CoursePrediction {
	cp := models.CoursePrediction{
		CourseID:     s.CourseID,
		Observations: len(s.Points),
		LastActivity: s.LastActivity,
		Status:       models.StatusOK,
	}
	if s.Malformed {
		cp.Status = models.StatusUnavailable
		cp.Reason = models.ReasonMalformedSeries
		return cp
	}

	if done, ok := features.FirstReaching(s.Points, 1); ok {
		at := done.At
		cp.Probability = 1
		cp.ExpectedCompletion = &at
		cp.Progress = 1
		cp.Trend = models.TrendCompleted
		return cp
	}

	if len(s.Points) < 2 {
		cp.Probability = c.p.CompletionPrior
		cp.AtRisk = true
		cp.Trend = models.TrendInsufficientData
		cp.Progress = features.MaxValue(s.Points)
		return cp
	}

	fit, ok := features.FitTrend(s.Points, h.Now, c.p.HalfLife)
	if !ok {
		cp.Status = models.StatusUnavailable
		cp.Reason = models.ReasonFitDiverged
		return cp
	}

	current := features.Clamp01(fit.Intercept)
	cp.Progress = features.MaxValue(s.Points)
	cp.Trend = trendLabel(fit.Slope, c.p.StableBand)

	remainingDays := math.Inf(1)
	if remaining := 1 - current; remaining <= 0 {
		remainingDays = 0
	} else if fit.Slope > 0 {
		remainingDays = remaining / fit.Slope
	}

	cp.Probability = c.completionProbability(remainingDays, float64(h.Days))
	if remainingDays <= float64(h.Days) {
		at := h.Now.Add(time.Duration(remainingDays * float64(24*time.Hour)))
		cp.ExpectedCompletion = &at
	}
	cp.AtRisk = cp.Probability < c.p.RiskFloor
	return cp
}

// completionProbability maps projected remaining days against the horizon
// through a logistic curve: 0.5 when they match, floored to avoid certainty.
func (c *CompletionProjector) completionProbability(remainingDays, horizonDays float64) float64 {
	if math.IsInf(remainingDays, 1) || horizonDays <= 0 {
		return c.p.CompletionFloor
	}
	x := c.p.CompletionSteepness * (horizonDays - remainingDays) / horizonDays
	p := 1 / (1 + math.Exp(-x))
	return math.Max(p, c.p.CompletionFloor)
}

var _ domsvc.CompletionProjector = (*CompletionProjector)(nil)
