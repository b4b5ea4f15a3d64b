package features

import (
	"math"
	"time"

	"LearnCast/internal/domain/models"
)

const day = 24 * time.Hour

// TrendFit is a recency-weighted linear fit over a series.
// The x axis is days relative to the evaluation instant, so Intercept is the
// fitted value "now".
type TrendFit struct {
	Slope     float64 // value units per day
	Intercept float64
	Sigma     float64 // weighted residual standard deviation
	NEff      float64 // Kish effective sample size
	Recency   float64 // mean decay weight in (0,1]
	N         int
}

// DecayWeight returns 2^(-age/halfLife); ages in the future count as zero age.
func DecayWeight(age, halfLife time.Duration) float64 {
	if halfLife <= 0 {
		return 1
	}
	if age < 0 {
		age = 0
	}
	return math.Exp2(-float64(age) / float64(halfLife))
}

// DaysBetween returns b-a in fractional days.
func DaysBetween(a, b time.Time) float64 {
	return float64(b.Sub(a)) / float64(day)
}

// FitTrend runs weighted least squares with exponential recency decay.
// It needs at least two points; ok is false otherwise or when the fit is not finite.
func FitTrend(points []models.SeriesPoint, now time.Time, halfLife time.Duration) (TrendFit, bool) {
	n := len(points)
	if n < 2 {
		return TrendFit{N: n}, false
	}

	xs := make([]float64, n)
	ws := make([]float64, n)
	var sw, sw2, sx, sy, decaySum float64
	for i, p := range points {
		decay := DecayWeight(now.Sub(p.At), halfLife)
		w := decay * p.Weight
		xs[i] = DaysBetween(now, p.At)
		ws[i] = w
		sw += w
		sw2 += w * w
		sx += w * xs[i]
		sy += w * p.Value
		decaySum += decay
	}
	if sw <= 0 {
		return TrendFit{N: n}, false
	}
	xbar := sx / sw
	ybar := sy / sw

	var sxx, sxy float64
	for i, p := range points {
		dx := xs[i] - xbar
		sxx += ws[i] * dx * dx
		sxy += ws[i] * dx * (p.Value - ybar)
	}

	// all observations at the same instant: no slope information
	slope := 0.0
	if sxx > 1e-10 {
		slope = sxy / sxx
	}
	intercept := ybar - slope*xbar

	var rss float64
	for i, p := range points {
		r := p.Value - (intercept + slope*xs[i])
		rss += ws[i] * r * r
	}

	fit := TrendFit{
		Slope:     slope,
		Intercept: intercept,
		Sigma:     math.Sqrt(rss / sw),
		NEff:      sw * sw / sw2,
		Recency:   decaySum / float64(n),
		N:         n,
	}
	if !finite(fit.Slope) || !finite(fit.Intercept) || !finite(fit.Sigma) || !finite(fit.NEff) {
		return fit, false
	}
	return fit, true
}

// DampedSteps is the effective number of trend steps applied over days when
// the slope decays with time constant tau: tau*(1-e^(-days/tau)).
func DampedSteps(days, tau float64) float64 {
	if tau <= 0 {
		return days
	}
	return tau * (1 - math.Exp(-days/tau))
}

// Project evaluates the damped trend curve days ahead of now.
func (f TrendFit) Project(days, tau float64) float64 {
	return f.Intercept + f.Slope*DampedSteps(days, tau)
}

// DaysToReach solves the damped trend curve for target. ok is false when the
// slope is not positive or the curve never gets there.
func (f TrendFit) DaysToReach(target, tau float64) (float64, bool) {
	if f.Slope <= 0 {
		return 0, false
	}
	if f.Intercept >= target {
		return 0, true
	}
	need := (target - f.Intercept) / f.Slope
	if tau <= 0 {
		return need, true
	}
	q := need / tau
	if q >= 1 {
		return 0, false
	}
	return -tau * math.Log(1-q), true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
