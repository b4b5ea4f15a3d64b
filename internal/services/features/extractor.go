package features

import (
	"math"
	"time"

	"LearnCast/internal/domain/models"
)

// ClampScore bounds a score to [0,1]. clamped is true if the value moved.
// Non-finite scores are left untouched so the series check can reject them.
func ClampScore(v float64) (out float64, clamped bool) {
	if !finite(v) {
		return v, false
	}
	out = Clamp01(v)
	return out, out != v
}

// NormalizeWeight maps missing, non-positive or non-finite weights to 1.
func NormalizeWeight(w float64) float64 {
	if !finite(w) || w <= 0 {
		return 1
	}
	return w
}

// CheckSeries reports whether points form a usable series: non-zero,
// non-decreasing timestamps and finite values.
func CheckSeries(points []models.SeriesPoint) bool {
	var prev time.Time
	for i, p := range points {
		if p.At.IsZero() || !finite(p.Value) {
			return false
		}
		if i > 0 && p.At.Before(prev) {
			return false
		}
		prev = p.At
	}
	return true
}

// LastActivity returns the latest timestamp of points.
func LastActivity(points []models.SeriesPoint) time.Time {
	var last time.Time
	for _, p := range points {
		if p.At.After(last) {
			last = p.At
		}
	}
	return last
}

// FirstReaching returns the first point whose value is at least target.
func FirstReaching(points []models.SeriesPoint, target float64) (models.SeriesPoint, bool) {
	for _, p := range points {
		if p.Value >= target {
			return p, true
		}
	}
	return models.SeriesPoint{}, false
}

// MaxValue returns the largest value in points, or 0.
func MaxValue(points []models.SeriesPoint) float64 {
	m := 0.0
	for _, p := range points {
		m = math.Max(m, p.Value)
	}
	return m
}
