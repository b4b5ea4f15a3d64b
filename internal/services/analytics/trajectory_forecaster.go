package analytics

import (
	"math"

	"LearnCast/internal/domain/models"
	domsvc "LearnCast/internal/domain/service"
	"LearnCast/internal/services/features"
	applogger "LearnCast/pkg/logger"
)

// TrajectoryForecaster fits a recency-decayed linear trend per skill and
// extrapolates it with a damped slope to the requested horizon.
type TrajectoryForecaster struct {
	p Params
	l *applogger.Logger
}

func NewTrajectoryForecaster(p Params) *TrajectoryForecaster {
	return &TrajectoryForecaster{p: p}
}

// SetLogger injects a structured logger.
func (f *TrajectoryForecaster) SetLogger(l *applogger.Logger) { f.l = l }

func (f *TrajectoryForecaster) Forecast(h domsvc.Horizon, series []models.SkillSeries) []models.SkillTrajectory {
	out := make([]models.SkillTrajectory, 0, len(series))
	for _, s := range series {
		out = append(out, f.forecastOne(h, s))
	}
	return out
}

func (f *TrajectoryForecaster) forecastOne(h domsvc.Horizon, s models.SkillSeries) models.SkillTrajectory {
	t := models.SkillTrajectory{
		SkillID:      s.SkillID,
		Observations: len(s.Points),
		LastActivity: s.LastActivity,
		Status:       models.StatusOK,
	}
	if s.Malformed {
		t.Status = models.StatusUnavailable
		t.Reason = models.ReasonMalformedSeries
		return t
	}

	switch len(s.Points) {
	case 0:
		return priorTrajectory(f.p, t, f.p.NeutralPrior)
	case 1:
		return priorTrajectory(f.p, t, features.Clamp01(s.Points[0].Value))
	}

	fit, ok := features.FitTrend(s.Points, h.Now, f.p.HalfLife)
	if !ok {
		if f.l != nil {
			f.l.Warn("skill trend fit diverged",
				applogger.String("skill", s.SkillID),
				applogger.Int("points", len(s.Points)),
			)
		}
		t.Status = models.StatusUnavailable
		t.Reason = models.ReasonFitDiverged
		return t
	}

	forecast := features.Clamp01(fit.Project(float64(h.Days), f.p.DampingDays))
	half := f.bandHalfWidth(fit)

	t.Slope = fit.Slope
	t.Intercept = fit.Intercept
	t.Forecast = forecast
	t.HalfWidth = half
	t.Low = features.Clamp01(forecast - half)
	t.High = features.Clamp01(forecast + half)
	t.Trend = trendLabel(fit.Slope, f.p.StableBand)
	return t
}

// bandHalfWidth widens with residual noise and narrows with more and more
// recent observations.
func (f *TrajectoryForecaster) bandHalfWidth(fit features.TrendFit) float64 {
	sigma := math.Max(fit.Sigma, f.p.MinSigma)
	support := fit.NEff * fit.Recency
	if support <= 0 {
		return f.p.MaxHalfWidth
	}
	return features.Clamp(f.p.BandZ*sigma/math.Sqrt(support), f.p.MinHalfWidth, f.p.MaxHalfWidth)
}

// priorTrajectory centres the widest band on center with a flat trend.
func priorTrajectory(p Params, t models.SkillTrajectory, center float64) models.SkillTrajectory {
	t.Intercept = center
	t.Forecast = center
	t.HalfWidth = p.MaxHalfWidth
	t.Low = features.Clamp01(center - p.MaxHalfWidth)
	t.High = features.Clamp01(center + p.MaxHalfWidth)
	t.Trend = models.TrendInsufficientData
	t.Status = models.StatusOK
	return t
}

func trendLabel(slope, stableBand float64) string {
	monthly := slope * 30
	switch {
	case math.Abs(monthly) < stableBand:
		return models.TrendStable
	case monthly > 0:
		return models.TrendImproving
	default:
		return models.TrendDeclining
	}
}

var _ domsvc.TrajectoryForecaster = (*TrajectoryForecaster)(nil)
