package service

import (
	"time"

	"LearnCast/internal/domain/models"
)

// Horizon fixes the evaluation instant and the forecast span of one request.
type Horizon struct {
	Now  time.Time
	Days int
}

// TrajectoryForecaster projects each skill series to the horizon.
type TrajectoryForecaster interface {
	Forecast(h Horizon, series []models.SkillSeries) []models.SkillTrajectory
}

// MasteryEstimator turns trajectories into threshold-crossing probabilities.
type MasteryEstimator interface {
	Estimate(h Horizon, trajectories []models.SkillTrajectory) []models.MasteryEstimate
}

// CompletionProjector projects completion of each enrolled course.
type CompletionProjector interface {
	Project(h Horizon, series []models.CourseSeries) []models.CoursePrediction
}

// RankInput bundles everything the ranker may draw candidates from.
// Nil slices mean the domain was unavailable.
type RankInput struct {
	LearnerID    string
	Trajectories []models.SkillTrajectory
	Mastery      []models.MasteryEstimate
	Courses      []models.CoursePrediction
}

// RecommendationRanker scores and orders candidate next actions.
type RecommendationRanker interface {
	Rank(h Horizon, in RankInput) []models.Recommendation
}
