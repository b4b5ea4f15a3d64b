package models

import "time"

// Status describes the outcome of a single item or a whole domain.
type Status string

const (
	StatusOK          Status = "ok"
	StatusDegraded    Status = "degraded"
	StatusUnavailable Status = "unavailable"
)

// Trend labels of a skill trajectory.
const (
	TrendImproving        = "improving"
	TrendStable           = "stable"
	TrendDeclining        = "declining"
	TrendInsufficientData = "insufficient-data"
	TrendCompleted        = "completed"
)

// Reason codes for unavailable items and domains.
const (
	ReasonMalformedSeries  = "malformed-series"
	ReasonFitDiverged      = "fit-diverged"
	ReasonMissingThreshold = "missing-threshold"
	ReasonPartialInputs    = "partial-inputs"
	ReasonInternal         = "internal-error"
	ReasonPanic            = "panic"
)

// Rationale tags of a recommendation.
const (
	RationaleAtRisk        = "at-risk"
	RationaleHighLeverage  = "high-leverage"
	RationaleReinforcement = "reinforcement"
	RationaleExploration   = "exploration"
)

// Recommended action kinds.
const (
	ActionPracticeSkill = "practice-skill"
	ActionAssessSkill   = "assess-skill"
	ActionReviewSkill   = "review-skill"
	ActionResumeCourse  = "resume-course"
)

// Flags selects the domains included in a prediction.
type Flags struct {
	Skills          bool
	Courses         bool
	Mastery         bool
	Recommendations bool
}

// AllFlags enables every domain.
func AllFlags() Flags {
	return Flags{Skills: true, Courses: true, Mastery: true, Recommendations: true}
}

// Any reports whether at least one domain is requested.
func (f Flags) Any() bool {
	return f.Skills || f.Courses || f.Mastery || f.Recommendations
}

// SkillTrajectory is the projected score of one skill at the horizon.
type SkillTrajectory struct {
	SkillID      string
	Slope        float64 // score units per day
	Intercept    float64 // fitted score at prediction time
	Forecast     float64
	Low          float64
	High         float64
	HalfWidth    float64 // unclamped band half-width
	Trend        string
	Observations int
	LastActivity time.Time
	Status       Status
	Reason       string
}

// MasteryEstimate is the probability that a topic meets its threshold by the horizon.
type MasteryEstimate struct {
	TopicID      string
	Threshold    float64
	Probability  float64
	ExpectedDate *time.Time
	Status       Status
	Reason       string
}

// CoursePrediction is the completion outlook of one enrolled course.
type CoursePrediction struct {
	CourseID           string
	Probability        float64
	ExpectedCompletion *time.Time
	AtRisk             bool
	Progress           float64
	Trend              string
	Observations       int
	LastActivity       time.Time
	Status             Status
	Reason             string
}

// Recommendation is one ranked next action.
type Recommendation struct {
	ActionID   string
	Action     string
	TargetType TargetKind
	TargetID   string
	Score      float64
	Rationale  string
}

type SkillsDomain struct {
	Status Status
	Reason string
	Items  []SkillTrajectory
}

type CoursesDomain struct {
	Status Status
	Reason string
	Items  []CoursePrediction
}

type MasteryDomain struct {
	Status Status
	Reason string
	Items  []MasteryEstimate
}

type RecommendationsDomain struct {
	Status Status
	Reason string
	Items  []Recommendation
}

// PredictionResult is the composed response. A nil domain was not requested.
type PredictionResult struct {
	LearnerID       string
	Timeframe       string
	HorizonDays     int
	GeneratedAt     time.Time
	Status          Status
	ColdStart       bool
	Skills          *SkillsDomain
	Courses         *CoursesDomain
	Mastery         *MasteryDomain
	Recommendations *RecommendationsDomain
}
